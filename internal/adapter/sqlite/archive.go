// Package sqlite persists PPI product summaries in an embedded SQLite
// database. The archive gives operators a replay-safe record of what was
// published (the deterministic product id makes duplicate inserts no-ops)
// and backs the service's /stats endpoint.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"

	"github.com/couchcryptid/radar-ppi-etl/internal/pipeline"
)

// Archive stores product summaries.
type Archive struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the archive database at path.
func Open(path string, logger *slog.Logger) (*Archive, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	a := &Archive{db: db, logger: logger}
	if err := a.initDB(); err != nil {
		db.Close()
		return nil, err
	}
	return a, nil
}

func (a *Archive) initDB() error {
	_, err := a.db.Exec(`
		CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			site_code TEXT NOT NULL,
			nominal_time TIMESTAMP NOT NULL,
			elevation_deg REAL NOT NULL,
			classified BOOLEAN NOT NULL,
			biology_fraction REAL NOT NULL,
			processed_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create products table: %w", err)
	}

	_, err = a.db.Exec(`CREATE INDEX IF NOT EXISTS idx_products_site ON products(site_code)`)
	if err != nil {
		return fmt.Errorf("create site index: %w", err)
	}
	_, err = a.db.Exec(`CREATE INDEX IF NOT EXISTS idx_products_nominal ON products(nominal_time)`)
	if err != nil {
		return fmt.Errorf("create nominal_time index: %w", err)
	}
	return nil
}

// Record inserts a product summary. Re-recording the same product id is
// a no-op: ids are deterministic, so replays never duplicate rows.
func (a *Archive) Record(ctx context.Context, s pipeline.Summary) error {
	_, err := a.db.ExecContext(ctx,
		`INSERT INTO products
		(id, site_code, nominal_time, elevation_deg, classified, biology_fraction, processed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		s.ID, s.SiteCode, s.NominalTime, s.Elevation, s.Classified, s.BiologyFraction, s.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("record product %s: %w", s.ID, err)
	}
	return nil
}

// Latest returns the most recently processed product summary. ok is
// false when the archive is empty.
func (a *Archive) Latest(ctx context.Context) (pipeline.Summary, bool, error) {
	var s pipeline.Summary
	err := a.db.QueryRowContext(ctx,
		`SELECT id, site_code, nominal_time, elevation_deg, classified, biology_fraction, processed_at
		FROM products ORDER BY processed_at DESC LIMIT 1`,
	).Scan(&s.ID, &s.SiteCode, &s.NominalTime, &s.Elevation, &s.Classified, &s.BiologyFraction, &s.ProcessedAt)
	if err == sql.ErrNoRows {
		return pipeline.Summary{}, false, nil
	}
	if err != nil {
		return pipeline.Summary{}, false, fmt.Errorf("query latest product: %w", err)
	}
	return s, true, nil
}

// Count returns the number of archived products.
func (a *Archive) Count(ctx context.Context) (int, error) {
	var n int
	if err := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

func (a *Archive) Close() error {
	return a.db.Close()
}

// ArchivingLoader decorates a BatchLoader with archive recording. The
// sink publish stays authoritative: archive failures are logged and do
// not fail the batch.
type ArchivingLoader struct {
	inner   pipeline.BatchLoader
	archive *Archive
	logger  *slog.Logger
}

// NewArchivingLoader wraps a loader with the archive.
func NewArchivingLoader(inner pipeline.BatchLoader, archive *Archive, logger *slog.Logger) *ArchivingLoader {
	return &ArchivingLoader{inner: inner, archive: archive, logger: logger}
}

func (l *ArchivingLoader) LoadBatch(ctx context.Context, events []pipeline.OutputEvent) error {
	if err := l.inner.LoadBatch(ctx, events); err != nil {
		return err
	}
	for _, e := range events {
		if err := l.archive.Record(ctx, e.Summary); err != nil {
			l.logger.Warn("archive record failed", "error", err, "product_id", e.Summary.ID)
		}
	}
	return nil
}
