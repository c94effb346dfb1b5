package main

import "maps"

// CatalogEntry documents the query behind one dashboard chart.
type CatalogEntry struct {
	Name     string `json:"name"`
	Database string `json:"database"`
	Query    string `json:"query"`
}

const aggregatesDatabase = "chemlink_analytics (aggregates schema)"

// catalog is keyed by chart identifier. It is display-only; nothing here
// is ever executed.
var catalog = map[string]CatalogEntry{
	"new_users_monthly": {
		Name:     "New Users Monthly",
		Database: aggregatesDatabase,
		Query:    `SELECT
    metric_month as month,
    new_signups,
    total_users_end_of_month,
    growth_rate_pct
FROM aggregates.monthly_metrics
ORDER BY metric_month DESC;`,
	},
	"growth_rate": {
		Name:     "Monthly Growth Rate",
		Database: aggregatesDatabase,
		Query:    `SELECT
    metric_month as month,
    new_signups,
    growth_rate_pct
FROM aggregates.monthly_metrics
ORDER BY metric_month DESC;`,
	},
	"dau": {
		Name:     "Daily Active Users",
		Database: aggregatesDatabase,
		Query:    `SELECT
    metric_date as date,
    dau,
    active_posters,
    active_commenters,
    active_voters,
    engagement_rate
FROM aggregates.daily_metrics
WHERE metric_date >= CURRENT_DATE - INTERVAL '30 days'
ORDER BY metric_date DESC;`,
	},
	"mau": {
		Name:     "Monthly Active Users",
		Database: aggregatesDatabase,
		Query:    `SELECT
    metric_month as month,
    mau,
    finder_mau,
    standard_mau,
    activation_rate
FROM aggregates.monthly_metrics
ORDER BY metric_month DESC;`,
	},
	"new_users_weekly": {
		Name:     "New Users Weekly",
		Database: aggregatesDatabase,
		Query:    `SELECT
    DATE_TRUNC('week', metric_date) as week_start,
    SUM(new_signups) as new_users
FROM aggregates.daily_metrics
GROUP BY DATE_TRUNC('week', metric_date)
ORDER BY week_start DESC
LIMIT 12;`,
	},
	"active_users_weekly": {
		Name:     "Active Users Weekly",
		Database: aggregatesDatabase,
		Query:    `SELECT
    DATE_TRUNC('week', metric_date) as week_start,
    MAX(dau) as peak_dau,
    AVG(dau) as avg_dau
FROM aggregates.daily_metrics
GROUP BY DATE_TRUNC('week', metric_date)
ORDER BY week_start DESC
LIMIT 12;`,
	},
	"engagement_daily": {
		Name:     "Daily Engagement Activities",
		Database: aggregatesDatabase,
		Query:    `SELECT
    metric_date as date,
    posts_created,
    comments_created,
    votes_cast,
    collections_created,
    engagement_rate
FROM aggregates.daily_metrics
WHERE metric_date >= CURRENT_DATE - INTERVAL '30 days'
ORDER BY metric_date DESC;`,
	},
	"engagement_monthly": {
		Name:     "Monthly Engagement Activities",
		Database: aggregatesDatabase,
		Query:    `SELECT
    metric_month as month,
    total_posts,
    total_comments,
    total_votes,
    total_collections,
    avg_activities_per_user
FROM aggregates.monthly_metrics
ORDER BY metric_month DESC;`,
	},
	"user_segmentation": {
		Name:     "User Segmentation by Engagement Level",
		Database: aggregatesDatabase,
		Query:    `SELECT
    engagement_level,
    COUNT(*) as user_count,
    AVG(engagement_score) as avg_score
FROM aggregates.user_engagement_levels
GROUP BY engagement_level
ORDER BY
    CASE engagement_level
        WHEN 'POWER_USER' THEN 1
        WHEN 'ACTIVE' THEN 2
        WHEN 'CASUAL' THEN 3
        WHEN 'LURKER' THEN 4
    END;`,
	},
	"mau_by_type": {
		Name:     "MAU by User Type",
		Database: aggregatesDatabase,
		Query:    `SELECT
    metric_month as month,
    finder_mau,
    standard_mau,
    mau as total_mau
FROM aggregates.monthly_metrics
ORDER BY metric_month DESC;`,
	},
	"retention_summary": {
		Name:     "Cohort Retention Rates",
		Database: aggregatesDatabase,
		Query:    `SELECT
    cohort_month,
    retention_rate_30d,
    retention_rate_60d,
    retention_rate_90d,
    activation_rate
FROM core.user_cohorts
ORDER BY cohort_month DESC;`,
	},
	"activation_rate": {
		Name:     "Activation Rate by Cohort",
		Database: aggregatesDatabase,
		Query:    `SELECT
    metric_month as month,
    activation_rate,
    mau,
    new_signups
FROM aggregates.monthly_metrics
ORDER BY metric_month DESC;`,
	},
	"power_users": {
		Name:     "Power Users Distribution",
		Database: aggregatesDatabase,
		Query:    `SELECT
    engagement_level,
    COUNT(*) as user_count
FROM aggregates.user_engagement_levels
GROUP BY engagement_level;`,
	},
	"post_frequency": {
		Name:     "Post Frequency",
		Database: aggregatesDatabase,
		Query:    `SELECT
    metric_date as date,
    posts_created,
    unique_posters,
    avg_posts_per_poster
FROM aggregates.post_metrics
ORDER BY metric_date DESC
LIMIT 30;`,
	},
	"post_engagement": {
		Name:     "Post Engagement Rate (Votes & Comments)",
		Database: aggregatesDatabase,
		Query:    `SELECT
    metric_date as date,
    posts_created,
    total_votes,
    comments_created,
    engagement_rate_votes_pct,
    engagement_rate_comments_pct
FROM aggregates.post_metrics
ORDER BY metric_date DESC;`,
	},
	"finder_searches": {
		Name:     "Finder Searches & Profile Views",
		Database: aggregatesDatabase,
		Query:    `SELECT
    metric_date as date,
    total_votes as searches,
    profiles_viewed
FROM aggregates.finder_metrics
ORDER BY metric_date DESC;`,
	},
	"collections": {
		Name:     "Collections Created by Privacy Type",
		Database: aggregatesDatabase,
		Query:    `SELECT
    metric_date as date,
    public_collections,
    private_collections,
    total_collections_created
FROM aggregates.collection_metrics
ORDER BY metric_date DESC;`,
	},
	"profile_completion": {
		Name:     "Profile Completion Breakdown",
		Database: aggregatesDatabase,
		Query:    `SELECT
    profiles_with_headline,
    profiles_with_linkedin,
    profiles_with_location,
    profiles_with_experience,
    profiles_with_education,
    avg_profile_completion_score
FROM aggregates.profile_metrics
ORDER BY metric_date DESC
LIMIT 1;`,
	},
	"account_funnel": {
		Name:     "Account Creation Funnel",
		Database: aggregatesDatabase,
		Query:    `SELECT
    total_signups,
    profiles_with_basic_info,
    profiles_with_experience,
    profiles_with_education,
    profiles_completed,
    profiles_activated,
    basic_info_rate,
    completion_rate,
    activation_rate
FROM aggregates.funnel_metrics
ORDER BY metric_date DESC
LIMIT 1;`,
	},
	"account_funnel_pyramid": {
		Name:     "Account Creation Funnel (Pyramid)",
		Database: aggregatesDatabase,
		Query:    `-- Same query as account_funnel, different visualization
SELECT
    total_signups,
    profiles_with_basic_info,
    profiles_with_experience,
    profiles_with_education,
    profiles_completed,
    profiles_activated,
    basic_info_rate,
    completion_rate,
    activation_rate
FROM aggregates.funnel_metrics
ORDER BY metric_date DESC
LIMIT 1;`,
	},
}

// Catalog returns a copy of the chart query catalog.
func Catalog() map[string]CatalogEntry {
	return maps.Clone(catalog)
}
