package main

import (
	"strconv"

	sq "github.com/Masterminds/squirrel"
	"github.com/gin-gonic/gin"
)

// Shape is the response shape of a route.
type Shape int

const (
	// ShapeList responds with every row as a JSON array.
	ShapeList Shape = iota
	// ShapeSingle responds with the first row as a JSON object and fails
	// when there is none.
	ShapeSingle
)

// Route binds one request path to one query.
type Route struct {
	Path  string
	Shape Shape
	// Query is the fixed query text. Unused when Bind is set.
	Query string
	// Bind builds the query and its arguments from the path parameters.
	Bind func(params gin.Params) (query string, args []any, err error)
}

// psq builds PostgreSQL statements with $n placeholders.
var psq = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Routes returns the full route table.
func Routes() []Route {
	return []Route{
		// Growth
		{Path: "/api/new-users/daily", Shape: ShapeList, Query: `
			SELECT
				metric_date AS date,
				new_signups,
				new_finder_signups,
				new_standard_signups,
				total_users_cumulative
			FROM aggregates.daily_metrics
			WHERE metric_date >= CURRENT_DATE - INTERVAL '30 days'
			ORDER BY metric_date DESC`},
		{Path: "/api/new-users/monthly", Shape: ShapeList, Query: `
			SELECT
				metric_month AS month,
				new_signups,
				total_users_end_of_month,
				growth_rate_pct
			FROM aggregates.monthly_metrics
			ORDER BY metric_month DESC`},
		{Path: "/api/new-users/weekly", Shape: ShapeList, Query: `
			SELECT
				DATE_TRUNC('week', metric_date) AS week,
				SUM(new_signups) AS new_users
			FROM aggregates.daily_metrics
			GROUP BY DATE_TRUNC('week', metric_date)
			ORDER BY week DESC
			LIMIT 12`},
		{Path: "/api/growth-rate/monthly", Shape: ShapeList, Query: `
			SELECT
				metric_month AS month,
				new_signups,
				growth_rate_pct
			FROM aggregates.monthly_metrics
			ORDER BY metric_month DESC`},

		// Active users
		{Path: "/api/active-users/daily", Shape: ShapeList, Query: `
			SELECT
				metric_date AS date,
				dau,
				active_posters,
				active_commenters,
				active_voters,
				active_collectors,
				engagement_rate
			FROM aggregates.daily_metrics
			WHERE metric_date >= CURRENT_DATE - INTERVAL '30 days'
			ORDER BY metric_date DESC`},
		{Path: "/api/active-users/monthly", Shape: ShapeList, Query: `
			SELECT
				metric_month AS month,
				mau,
				avg_dau,
				finder_mau,
				standard_mau,
				activation_rate
			FROM aggregates.monthly_metrics
			ORDER BY metric_month DESC`},
		{Path: "/api/active-users/weekly", Shape: ShapeList, Query: `
			SELECT
				DATE_TRUNC('week', metric_date) AS week,
				MAX(dau) AS peak_dau,
				AVG(dau) AS avg_dau
			FROM aggregates.daily_metrics
			GROUP BY DATE_TRUNC('week', metric_date)
			ORDER BY week DESC
			LIMIT 12`},

		// Engagement
		{Path: "/api/engagement/daily", Shape: ShapeList, Query: `
			SELECT
				metric_date AS date,
				posts_created,
				comments_created,
				votes_cast,
				collections_created,
				views_given,
				engagement_rate,
				social_engagement_rate
			FROM aggregates.daily_metrics
			WHERE metric_date >= CURRENT_DATE - INTERVAL '30 days'
			ORDER BY metric_date DESC`},
		{Path: "/api/engagement/monthly", Shape: ShapeList, Query: `
			SELECT
				metric_month AS month,
				total_posts,
				total_comments,
				total_votes,
				total_collections,
				avg_activities_per_user,
				avg_engagement_score,
				activation_rate
			FROM aggregates.monthly_metrics
			ORDER BY metric_month DESC`},
		{Path: "/api/engagement/post-frequency", Shape: ShapeList, Query: `
			SELECT
				metric_date AS date,
				posts_created,
				unique_posters,
				avg_posts_per_poster
			FROM aggregates.post_metrics
			ORDER BY metric_date DESC
			LIMIT 30`},
		{Path: "/api/engagement/post-engagement-rate", Shape: ShapeList, Query: `
			SELECT
				metric_date AS date,
				posts_created,
				comments_created,
				total_votes,
				avg_comments_per_post,
				avg_votes_per_post,
				engagement_rate_comments_pct,
				engagement_rate_votes_pct
			FROM aggregates.post_metrics
			ORDER BY metric_date DESC`},
		{Path: "/api/engagement/content-analysis", Shape: ShapeList, Query: `
			SELECT
				metric_date AS date,
				text_posts,
				link_posts,
				media_posts,
				posts_created AS total_posts
			FROM aggregates.post_metrics
			ORDER BY metric_date DESC`},

		// Segmentation
		{Path: "/api/users/segmentation", Shape: ShapeList, Query: `
			SELECT
				engagement_level,
				COUNT(*) AS user_count,
				ROUND(AVG(engagement_score), 2) AS avg_score,
				ROUND(AVG(total_activities), 2) AS avg_activities
			FROM aggregates.user_engagement_levels
			GROUP BY engagement_level
			ORDER BY
				CASE engagement_level
					WHEN 'POWER_USER' THEN 1
					WHEN 'ACTIVE' THEN 2
					WHEN 'CASUAL' THEN 3
					WHEN 'LURKER' THEN 4
					ELSE 5
				END`},
		{Path: "/api/users/power-users", Shape: ShapeList, Query: `
			SELECT
				user_id,
				email,
				first_name,
				last_name,
				engagement_score,
				total_activities,
				posts_created,
				votes_cast,
				collections_created,
				days_since_last_activity
			FROM aggregates.user_engagement_levels
			WHERE engagement_level IN ('POWER_USER', 'ACTIVE')
			ORDER BY engagement_score DESC
			LIMIT 50`},

		// Retention
		{Path: "/api/retention/cohorts", Shape: ShapeList, Query: `
			SELECT
				cohort_month,
				weeks_since_signup,
				total_users,
				retained_users,
				retention_rate,
				cumulative_retention
			FROM aggregates.cohort_retention
			WHERE cohort_month >= DATE_TRUNC('month', CURRENT_DATE - INTERVAL '6 months')
			ORDER BY cohort_month DESC, weeks_since_signup ASC`},
		{Path: "/api/retention/summary", Shape: ShapeList, Query: `
			SELECT
				cohort_month,
				total_users,
				finder_users,
				standard_users,
				activation_rate,
				retention_rate_30d,
				retention_rate_60d,
				retention_rate_90d
			FROM core.user_cohorts
			ORDER BY cohort_month DESC`},

		// Summary
		{Path: "/api/summary/stats", Shape: ShapeSingle, Query: `
			SELECT
				(SELECT COUNT(*) FROM core.unified_users WHERE deleted_at IS NULL AND is_test_account = FALSE) AS total_users,
				(SELECT dau FROM aggregates.daily_metrics ORDER BY metric_date DESC LIMIT 1) AS current_dau,
				(SELECT mau FROM aggregates.monthly_metrics ORDER BY metric_month DESC LIMIT 1) AS current_mau,
				(SELECT COUNT(*) FROM aggregates.user_engagement_levels WHERE engagement_level IN ('POWER_USER', 'ACTIVE')) AS active_users,
				(SELECT SUM(posts_created) FROM aggregates.daily_metrics WHERE metric_date >= CURRENT_DATE - INTERVAL '30 days') AS posts_30d,
				(SELECT SUM(votes_cast) FROM aggregates.daily_metrics WHERE metric_date >= CURRENT_DATE - INTERVAL '30 days') AS votes_30d,
				(SELECT ROUND(AVG(engagement_rate), 2) FROM aggregates.daily_metrics WHERE metric_date >= CURRENT_DATE - INTERVAL '30 days') AS avg_engagement_rate`},

		// Finder
		{Path: "/api/finder/searches", Shape: ShapeList, Query: `
			SELECT
				metric_date AS date,
				total_votes AS searches,
				unique_voters AS unique_searchers,
				profiles_viewed
			FROM aggregates.finder_metrics
			ORDER BY metric_date DESC`},
		{Path: "/api/finder/engagement", Shape: ShapeSingle, Query: `
			SELECT
				SUM(total_votes) AS total_searches,
				SUM(profiles_viewed) AS total_views,
				COUNT(DISTINCT unique_voters) AS active_searchers
			FROM aggregates.finder_metrics`},

		// Collections
		{Path: "/api/collections/created", Shape: ShapeList, Query: `
			SELECT
				metric_date AS date,
				total_collections_created,
				unique_collectors
			FROM aggregates.collection_metrics
			ORDER BY metric_date DESC`},
		{Path: "/api/collections/created-by-privacy", Shape: ShapeList, Query: `
			SELECT
				metric_date AS date,
				public_collections,
				private_collections,
				total_collections_created
			FROM aggregates.collection_metrics
			ORDER BY metric_date DESC`},
		{Path: "/api/collections/summary", Shape: ShapeSingle, Query: `
			SELECT
				SUM(total_collections_created) AS total_collections,
				SUM(public_collections) AS public_count,
				SUM(private_collections) AS private_count,
				COUNT(DISTINCT unique_collectors) AS total_collectors
			FROM aggregates.collection_metrics`},

		// Profiles
		{Path: "/api/profile/completion-rate", Shape: ShapeList, Query: `
			SELECT
				metric_date AS date,
				avg_profile_completion_score,
				profiles_with_headline,
				profiles_with_linkedin,
				profiles_with_location,
				profiles_with_experience,
				profiles_with_education
			FROM aggregates.profile_metrics
			ORDER BY metric_date DESC`},
		{Path: "/api/profile/update-frequency", Shape: ShapeList, Query: `
			SELECT
				metric_date AS date,
				profiles_updated,
				experiences_added,
				education_added
			FROM aggregates.profile_metrics
			ORDER BY metric_date DESC`},

		// Funnel
		{Path: "/api/funnel/account-creation", Shape: ShapeSingle, Query: `
			SELECT
				total_signups,
				profiles_with_basic_info,
				profiles_with_experience,
				profiles_with_education,
				profiles_completed,
				profiles_activated,
				basic_info_rate,
				experience_rate,
				education_rate,
				completion_rate,
				activation_rate
			FROM aggregates.funnel_metrics
			ORDER BY metric_date DESC
			LIMIT 1`},

		// Graph analytics
		{Path: "/api/graph/connection-recommendations", Shape: ShapeList, Query: `
			SELECT
				user_id,
				recommended_user_id,
				recommendation_score,
				common_companies,
				common_roles,
				common_schools,
				recommendation_reason
			FROM aggregates.connection_recommendations
			ORDER BY recommendation_score DESC
			LIMIT 500`},
		{Path: "/api/graph/connection-recommendations/:user_id", Shape: ShapeList, Bind: bindConnectionRecommendations},
		{Path: "/api/graph/company-network", Shape: ShapeList, Query: `
			SELECT
				company_id_1,
				company_id_2,
				company_name_1,
				company_name_2,
				shared_employee_count,
				employee_ids,
				network_strength_score
			FROM aggregates.company_network_map
			ORDER BY shared_employee_count DESC`},
		{Path: "/api/graph/company-network/:company_name", Shape: ShapeList, Bind: bindCompanyNetwork},
		{Path: "/api/graph/skills-matching", Shape: ShapeList, Query: `
			SELECT
				user_id,
				role_id,
				role_title,
				experience_years,
				proficiency_score,
				similar_user_count
			FROM aggregates.skills_matching_scores
			ORDER BY proficiency_score DESC
			LIMIT 500`},
		{Path: "/api/graph/skills-matching/:user_id", Shape: ShapeList, Bind: bindSkillsMatching},
		{Path: "/api/graph/career-paths", Shape: ShapeList, Query: `
			SELECT
				path_vector,
				role_sequence,
				user_count,
				user_ids,
				avg_years_per_role
			FROM aggregates.career_path_patterns
			ORDER BY user_count DESC`},
		{Path: "/api/graph/location-networks", Shape: ShapeList, Query: `
			SELECT
				location_id,
				country,
				user_count,
				company_diversity_score,
				role_diversity_score,
				top_companies,
				top_roles
			FROM aggregates.location_based_networks
			ORDER BY user_count DESC`},
		{Path: "/api/graph/alumni-networks", Shape: ShapeList, Query: `
			SELECT
				school_id,
				school_name,
				degree_id,
				degree_name,
				alumni_count,
				graduation_year_min,
				graduation_year_max,
				current_companies,
				current_roles
			FROM aggregates.alumni_networks
			WHERE alumni_count > 0
			ORDER BY alumni_count DESC`},
		{Path: "/api/graph/project-collaborations", Shape: ShapeList, Query: `
			SELECT
				project_id,
				project_name,
				company_id,
				company_name,
				user_count,
				role_ids,
				collaboration_strength
			FROM aggregates.project_collaboration_graph
			WHERE user_count > 0
			ORDER BY user_count DESC`},

		// Authentication activity
		{Path: "/api/kratos/daily-logins", Shape: ShapeList, Query: `
			SELECT
				metric_date,
				unique_users_logged_in,
				total_sessions,
				mfa_sessions,
				password_only_sessions,
				mfa_session_rate,
				avg_session_minutes,
				mobile_users,
				desktop_users
			FROM aggregates.kratos_daily_logins
			WHERE metric_date >= CURRENT_DATE - INTERVAL '30 days'
			ORDER BY metric_date DESC`},
		{Path: "/api/kratos/user-segments", Shape: ShapeList, Query: `
			SELECT
				recency_segment,
				COUNT(*) AS user_count,
				AVG(total_sessions) AS avg_sessions
			FROM aggregates.kratos_user_activity
			GROUP BY recency_segment
			ORDER BY
				CASE recency_segment
					WHEN 'Active (< 7 days)' THEN 1
					WHEN 'Recent (7-30 days)' THEN 2
					WHEN 'At Risk (30-90 days)' THEN 3
					ELSE 4
				END`},
		{Path: "/api/kratos/login-frequency", Shape: ShapeList, Query: `
			SELECT
				frequency_segment,
				user_count,
				avg_logins,
				avg_days_active,
				avg_logins_per_active_day
			FROM aggregates.kratos_login_frequency_segments
			ORDER BY user_count DESC`},
		{Path: "/api/kratos/mfa-adoption", Shape: ShapeList, Query: `
			SELECT
				metric_month,
				totp_users,
				webauthn_users,
				password_only_users,
				mfa_adoption_rate
			FROM aggregates.kratos_mfa_adoption
			ORDER BY metric_month DESC`},
		{Path: "/api/kratos/activation-funnel", Shape: ShapeList, Query: `
			SELECT
				signup_week,
				new_identities,
				activated_within_1_day,
				activated_within_7_days,
				activated_within_30_days,
				day1_activation_rate,
				week1_activation_rate,
				month1_activation_rate,
				avg_hours_to_first_login
			FROM aggregates.kratos_activation_funnel
			ORDER BY signup_week DESC`},
		{Path: "/api/kratos/security-alerts", Shape: ShapeList, Query: `
			SELECT
				identity_id,
				risk_level,
				session_count_7d,
				unique_ips_7d,
				active_days_7d,
				flag_multiple_ips,
				flag_high_volume
			FROM aggregates.kratos_security_alerts
			ORDER BY unique_ips_7d DESC, session_count_7d DESC
			LIMIT 50`},
		{Path: "/api/kratos/hourly-patterns", Shape: ShapeList, Query: `
			SELECT
				hour_of_day,
				day_type,
				SUM(total_sessions) AS total_sessions,
				SUM(unique_users) AS unique_users,
				AVG(avg_session_minutes) AS avg_session_minutes
			FROM aggregates.kratos_hourly_patterns
			GROUP BY hour_of_day, day_type
			ORDER BY hour_of_day`},
		{Path: "/api/kratos/account-states", Shape: ShapeList, Query: `
			SELECT
				state,
				identity_count,
				percentage,
				new_in_last_30_days
			FROM aggregates.kratos_account_states
			ORDER BY identity_count DESC`},
		{Path: "/api/kratos/summary-stats", Shape: ShapeSingle, Query: `
			SELECT
				(SELECT COUNT(*) FROM aggregates.kratos_user_activity) AS total_users,
				(SELECT COUNT(*) FROM aggregates.kratos_user_activity
					WHERE recency_segment = 'Active (< 7 days)') AS active_users_7d,
				(SELECT COALESCE(SUM(unique_users_logged_in), 0)
					FROM aggregates.kratos_daily_logins
					WHERE metric_date >= CURRENT_DATE - INTERVAL '7 days') AS total_logins_7d,
				(SELECT COALESCE(AVG(mfa_session_rate), 0)
					FROM aggregates.kratos_daily_logins
					WHERE metric_date >= CURRENT_DATE - INTERVAL '30 days') AS avg_mfa_rate,
				(SELECT COUNT(*) FROM aggregates.kratos_security_alerts) AS security_alerts_count`},
	}
}

func bindConnectionRecommendations(params gin.Params) (string, []any, error) {
	userID, err := userIDParam(params)
	if err != nil {
		return "", nil, err
	}

	return psq.Select(
		"user_id",
		"recommended_user_id",
		"recommendation_score",
		"common_companies",
		"common_roles",
		"common_schools",
		"recommendation_reason",
	).From("aggregates.connection_recommendations").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("recommendation_score DESC").
		Limit(50).
		ToSql()
}

func bindSkillsMatching(params gin.Params) (string, []any, error) {
	userID, err := userIDParam(params)
	if err != nil {
		return "", nil, err
	}

	return psq.Select(
		"user_id",
		"role_id",
		"role_title",
		"experience_years",
		"proficiency_score",
		"similar_user_count",
	).From("aggregates.skills_matching_scores").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("proficiency_score DESC").
		ToSql()
}

// bindCompanyNetwork matches the company name as a case-insensitive
// substring of either side of the pair.
func bindCompanyNetwork(params gin.Params) (string, []any, error) {
	pattern := "%" + params.ByName("company_name") + "%"

	return psq.Select(
		"company_id_1",
		"company_id_2",
		"company_name_1",
		"company_name_2",
		"shared_employee_count",
		"network_strength_score",
	).From("aggregates.company_network_map").
		Where(sq.Or{
			sq.ILike{"company_name_1": pattern},
			sq.ILike{"company_name_2": pattern},
		}).
		OrderBy("shared_employee_count DESC").
		Limit(100).
		ToSql()
}

func userIDParam(params gin.Params) (int64, error) {
	raw := params.ByName("user_id")
	// ParseUint rejects a leading sign.
	id, err := strconv.ParseUint(raw, 10, 63)
	if err != nil {
		return 0, NewBadParameterError("user_id", raw)
	}

	return int64(id), nil
}
