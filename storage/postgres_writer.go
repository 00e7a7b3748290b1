package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"itinerary-scraper/models"
)

// PostgresWriter persists run manifests to PostgreSQL.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(dsn string) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	pw := &PostgresWriter{db: db}
	if err := pw.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

func (pw *PostgresWriter) migrate() error {
	_, err := pw.db.Exec(`
		CREATE TABLE IF NOT EXISTS scrape_runs (
			id            SERIAL PRIMARY KEY,
			business      TEXT        NOT NULL,
			locale        TEXT        NOT NULL DEFAULT '',
			output_dir    TEXT        NOT NULL,
			state         VARCHAR(20) NOT NULL,
			started_at    TIMESTAMPTZ NOT NULL,
			finished_at   TIMESTAMPTZ NOT NULL
		);

		CREATE TABLE IF NOT EXISTS download_results (
			id          SERIAL PRIMARY KEY,
			run_id      INTEGER     NOT NULL REFERENCES scrape_runs(id) ON DELETE CASCADE,
			source      VARCHAR(20) NOT NULL,
			ordinal     INTEGER     NOT NULL,
			url         TEXT        NOT NULL,
			outcome     VARCHAR(20) NOT NULL,
			status_code INTEGER     NOT NULL DEFAULT 0,
			saved_path  TEXT,
			bytes       BIGINT      NOT NULL DEFAULT 0,
			error       TEXT        NOT NULL DEFAULT '',
			UNIQUE (run_id, source, ordinal)
		);

		CREATE INDEX IF NOT EXISTS idx_scrape_runs_business ON scrape_runs(business);
		CREATE INDEX IF NOT EXISTS idx_download_results_outcome ON download_results(outcome);
	`)
	return err
}

// Write stores the run and batch-inserts its results in one transaction.
func (pw *PostgresWriter) Write(m *models.Manifest) error {
	tx, err := pw.db.Begin()
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var runID int64
	err = tx.QueryRow(`
		INSERT INTO scrape_runs (business, locale, output_dir, state, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, m.Target.BusinessName, m.Target.Locale, m.Target.OutputDirectory, string(m.State), m.StartedAt, m.FinishedAt).Scan(&runID)
	if err != nil {
		return fmt.Errorf("postgres: insert run: %w", err)
	}

	const batchSize = 50
	for i := 0; i < len(m.Results); i += batchSize {
		end := i + batchSize
		if end > len(m.Results) {
			end = len(m.Results)
		}
		if err := insertBatch(tx, runID, m.Results[i:end]); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

func insertBatch(tx *sql.Tx, runID int64, batch []models.DownloadResult) error {
	const cols = 9
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*cols)

	for idx, r := range batch {
		base := idx * cols
		valueStrings = append(valueStrings,
			fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
				base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9))
		var savedPath sql.NullString
		if r.SavedPath != nil {
			savedPath = sql.NullString{String: *r.SavedPath, Valid: true}
		}
		valueArgs = append(valueArgs,
			runID, string(r.Asset.Source), r.Asset.Ordinal, r.Asset.URL, string(r.Outcome),
			r.StatusCode, savedPath, r.Bytes, r.Error)
	}

	query := fmt.Sprintf(`
		INSERT INTO download_results (run_id, source, ordinal, url, outcome, status_code, saved_path, bytes, error)
		VALUES %s
		ON CONFLICT (run_id, source, ordinal) DO NOTHING
	`, strings.Join(valueStrings, ","))

	if _, err := tx.Exec(query, valueArgs...); err != nil {
		return fmt.Errorf("postgres: insert results: %w", err)
	}
	return nil
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}

// SavedCounts returns, per business, how many images were saved across all
// recorded runs.
func (pw *PostgresWriter) SavedCounts() (map[string]int, error) {
	rows, err := pw.db.Query(`
		SELECT r.business, COUNT(d.id)
		FROM scrape_runs r
		JOIN download_results d ON d.run_id = r.id AND d.outcome = 'saved'
		GROUP BY r.business
		ORDER BY r.business
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: saved counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var business string
		var n int
		if err := rows.Scan(&business, &n); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		counts[business] = n
	}
	return counts, rows.Err()
}
