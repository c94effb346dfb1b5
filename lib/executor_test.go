package analytics_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net"
	"path/filepath"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	analytics "github.com/chemlink/analytics-api/lib"
)

// newFixture builds a SQLite database from schema and opens it read-only.
func newFixture(t *testing.T, schema string) *sql.DB {
	t.Helper()

	filename := filepath.Join(t.TempDir(), "fixture.db")

	setup, err := sql.Open("sqlite", filename)
	require.NoError(t, err)
	_, err = setup.Exec(schema)
	require.NoError(t, err)
	require.NoError(t, setup.Close())

	db, err := sql.Open("sqlite", "file:"+filename+"?mode=ro")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func TestExecute(t *testing.T) {
	t.Parallel()

	db := newFixture(t, `
		CREATE TABLE daily_metrics (
			metric_date DATE,
			new_signups INTEGER,
			engagement_rate REAL,
			note TEXT
		);

		INSERT INTO daily_metrics VALUES ('2024-03-01', 10, 12.5, 'first');
		INSERT INTO daily_metrics VALUES ('2024-03-02', 7, 8.25, NULL);
		INSERT INTO daily_metrics VALUES ('2024-03-03', 12, 15, 'third');
	`)
	executor := analytics.NewExecutor(db)

	t.Run("Order", func(t *testing.T) {
		t.Parallel()

		result, err := executor.Execute(context.TODO(), `
			SELECT metric_date AS date, new_signups
			FROM daily_metrics
			ORDER BY metric_date DESC`)
		require.NoError(t, err)

		assert.Equal(t, []string{"date", "new_signups"}, result.Columns)
		require.Equal(t, 3, result.Len())
		assert.Equal(t, "2024-03-03", result.Rows[0]["date"])
		assert.Equal(t, "2024-03-02", result.Rows[1]["date"])
		assert.Equal(t, "2024-03-01", result.Rows[2]["date"])
		assert.Equal(t, int64(12), result.Rows[0]["new_signups"])
	})

	t.Run("Values", func(t *testing.T) {
		t.Parallel()

		result, err := executor.Execute(context.TODO(), "SELECT * FROM daily_metrics WHERE new_signups = ?", 7)
		require.NoError(t, err)

		require.Equal(t, 1, result.Len())
		assert.Equal(t, analytics.Row{
			"metric_date":     "2024-03-02",
			"new_signups":     int64(7),
			"engagement_rate": 8.25,
			"note":            nil,
		}, result.Rows[0])
	})

	t.Run("Empty", func(t *testing.T) {
		t.Parallel()

		result, err := executor.Execute(context.TODO(), "SELECT * FROM daily_metrics WHERE new_signups > 100")
		require.NoError(t, err)

		assert.Len(t, result.Columns, 4)
		assert.NotNil(t, result.Rows)
		assert.Equal(t, 0, result.Len())
	})

	t.Run("Invalid", func(t *testing.T) {
		t.Parallel()

		_, err := executor.Execute(context.TODO(), "SELECT * FROM missing_table")
		require.ErrorAs(t, err, &analytics.QueryError{})
	})

	t.Run("Readonly", func(t *testing.T) {
		t.Parallel()

		_, err := executor.Execute(context.TODO(), "INSERT INTO daily_metrics (new_signups) VALUES (1)")
		require.ErrorAs(t, err, &analytics.QueryError{})
	})
}

func TestExecuteOne(t *testing.T) {
	t.Parallel()

	db := newFixture(t, `
		CREATE TABLE collection_metrics (
			total_collections_created INTEGER,
			public_collections INTEGER
		);

		INSERT INTO collection_metrics VALUES (4, 3);
		INSERT INTO collection_metrics VALUES (6, 1);
	`)
	executor := analytics.NewExecutor(db)

	t.Run("Single", func(t *testing.T) {
		t.Parallel()

		row, err := executor.ExecuteOne(context.TODO(), `
			SELECT SUM(total_collections_created) AS total_collections,
				SUM(public_collections) AS public_count
			FROM collection_metrics`)
		require.NoError(t, err)

		assert.Equal(t, analytics.Row{
			"total_collections": int64(10),
			"public_count":      int64(4),
		}, row)
	})

	t.Run("Empty", func(t *testing.T) {
		t.Parallel()

		row, err := executor.ExecuteOne(context.TODO(), "SELECT * FROM collection_metrics WHERE 1 = 0")
		require.ErrorAs(t, err, &analytics.EmptyResultError{})
		assert.ErrorIs(t, err, analytics.ErrEmptyResult)
		assert.Nil(t, row)
	})

	t.Run("Invalid", func(t *testing.T) {
		t.Parallel()

		_, err := executor.ExecuteOne(context.TODO(), "SELECT nope FROM collection_metrics")
		require.ErrorAs(t, err, &analytics.QueryError{})
	})
}

func TestExecuteReleasesConnection(t *testing.T) {
	t.Parallel()

	db := newFixture(t, `
		CREATE TABLE releasetest (
			value TEXT
		);

		INSERT INTO releasetest (value) VALUES ('hello');
	`)
	executor := analytics.NewExecutor(db)

	queries := []string{
		"SELECT value FROM releasetest",
		"SELECT value FROM releasetest WHERE 1 = 0",
		"SELECT value FROM missing_table",
		"SELECT value FROM releasetest WHERE value = ?",
	}

	for _, query := range queries {
		_, _ = executor.Execute(context.TODO(), query)
		assert.Equal(t, 0, db.Stats().InUse, "connection held after %q", query)
	}

	_, _ = executor.ExecuteOne(context.TODO(), "SELECT value FROM releasetest WHERE 1 = 0")
	assert.Equal(t, 0, db.Stats().InUse)
}

func TestExecuteTimeout(t *testing.T) {
	t.Parallel()

	db := newFixture(t, `
		CREATE TABLE timeouttest (
			value TEXT
		);
	`)
	executor := analytics.NewExecutor(db)

	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()

	_, err := executor.Execute(ctx, "SELECT value FROM timeouttest")

	var queryError analytics.QueryError
	require.ErrorAs(t, err, &queryError)
	assert.Equal(t, context.DeadlineExceeded, queryError.Parent)
}

func TestExecutePostgresTypes(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	executor := analytics.NewExecutor(db)

	cohort := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	refreshed := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)

	rows := mock.NewRowsWithColumnDefinition(
		mock.NewColumn("cohort_month").OfType("DATE", time.Time{}),
		mock.NewColumn("refreshed_at").OfType("TIMESTAMPTZ", time.Time{}),
		mock.NewColumn("retention_rate").OfType("NUMERIC", ""),
		mock.NewColumn("user_ids").OfType("_INT4", ""),
		mock.NewColumn("top_companies").OfType("_TEXT", ""),
	).AddRow(cohort, refreshed, "41.67", "{3,5,8}", "{Acme,Globex}")

	mock.ExpectQuery("SELECT (.+) FROM core.user_cohorts").WillReturnRows(rows)

	result, err := executor.Execute(context.TODO(), "SELECT * FROM core.user_cohorts")
	require.NoError(t, err)
	require.Equal(t, 1, result.Len())

	row := result.Rows[0]
	assert.Equal(t, "2024-02-01", row["cohort_month"])
	assert.Equal(t, "2024-02-03T04:05:06Z", row["refreshed_at"])
	assert.Equal(t, json.Number("41.67"), row["retention_rate"])
	assert.Equal(t, []int64{3, 5, 8}, row["user_ids"])
	assert.Equal(t, []string{"Acme", "Globex"}, row["top_companies"])

	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, 0, db.Stats().InUse)
}

func TestExecuteErrorTaxonomy(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		err        error
		connection bool
	}{
		{"bad connection", sql.ErrConnDone, true},
		{"network", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, true},
		{"authentication", &pq.Error{Code: "28P01", Message: "password authentication failed"}, true},
		{"connection exception", &pq.Error{Code: "08006", Message: "connection failure"}, true},
		{"admin shutdown", &pq.Error{Code: "57P01", Message: "terminating connection"}, true},
		{"undefined table", &pq.Error{Code: "42P01", Message: `relation "aggregates.nope" does not exist`}, false},
		{"syntax", &pq.Error{Code: "42601", Message: "syntax error"}, false},
		{"other", errors.New("boom"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer func() { _ = db.Close() }()

			mock.ExpectQuery("SELECT").WillReturnError(tc.err)

			_, err = analytics.NewExecutor(db).Execute(context.TODO(), "SELECT 1")
			if tc.connection {
				var connErr analytics.ConnectionError
				require.ErrorAs(t, err, &connErr)
				assert.ErrorIs(t, err, tc.err)
			} else {
				require.ErrorAs(t, err, &analytics.QueryError{})
			}

			assert.Equal(t, 0, db.Stats().InUse)
		})
	}
}

func TestPing(t *testing.T) {
	t.Parallel()

	t.Run("Reachable", func(t *testing.T) {
		t.Parallel()

		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectPing()

		require.NoError(t, analytics.NewExecutor(db).Ping(context.TODO()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unreachable", func(t *testing.T) {
		t.Parallel()

		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectPing().WillReturnError(errors.New("connection refused"))

		err = analytics.NewExecutor(db).Ping(context.TODO())
		require.ErrorAs(t, err, &analytics.ConnectionError{})
	})
}

func BenchmarkExecute(b *testing.B) {
	b.ReportAllocs()

	filename := filepath.Join(b.TempDir(), "bench.db")
	setup, err := sql.Open("sqlite", filename)
	require.NoError(b, err)
	_, err = setup.Exec(`
		CREATE TABLE benchtest (metric_date DATE, dau INTEGER);
		INSERT INTO benchtest VALUES ('2024-01-01', 10);
		INSERT INTO benchtest VALUES ('2024-01-02', 11);
	`)
	require.NoError(b, err)
	require.NoError(b, setup.Close())

	db, err := sql.Open("sqlite", "file:"+filename+"?mode=ro")
	require.NoError(b, err)
	defer func() { _ = db.Close() }()

	executor := analytics.NewExecutor(db)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = executor.Execute(context.TODO(), "SELECT metric_date, dau FROM benchtest ORDER BY metric_date DESC")
	}
}
