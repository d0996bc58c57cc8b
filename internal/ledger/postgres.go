package ledger

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// PostgresLedger implements Ledger on Postgres, for deployments that already
// run one. INSERT ... ON CONFLICT DO NOTHING provides the atomic
// insert-if-absent primitive.
type PostgresLedger struct {
	db  *sql.DB
	log logrus.FieldLogger
}

// NewPostgresLedger connects, verifies the connection and creates the two
// ledger tables when missing.
func NewPostgresLedger(dsn string, logger logrus.FieldLogger) (*PostgresLedger, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	l := &PostgresLedger{db: db, log: logger.WithField("component", "ledger")}
	if err := l.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate ledger schema: %w", err)
	}
	return l, nil
}

func (l *PostgresLedger) migrate() error {
	_, err := l.db.Exec(`
		CREATE TABLE IF NOT EXISTS seen_properties (
			id        INTEGER     NOT NULL,
			user_name VARCHAR(50) NOT NULL,
			PRIMARY KEY (id, user_name)
		);
		CREATE TABLE IF NOT EXISTS skipped_properties (
			id INTEGER PRIMARY KEY
		);
	`)
	return err
}

// Close closes the connection pool.
func (l *PostgresLedger) Close() error {
	return l.db.Close()
}

// HasSeen reports whether the pair exists.
func (l *PostgresLedger) HasSeen(ctx context.Context, listingID int, subscriber string) (bool, error) {
	var exists bool
	err := l.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM seen_properties WHERE id = $1 AND user_name = $2)`,
		listingID, subscriber).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query seen: %w", err)
	}
	return exists, nil
}

// MarkSeen inserts the pair if absent.
func (l *PostgresLedger) MarkSeen(ctx context.Context, listingID int, subscriber string) (bool, error) {
	res, err := l.db.ExecContext(ctx,
		`INSERT INTO seen_properties (id, user_name) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		listingID, subscriber)
	if err != nil {
		return false, fmt.Errorf("insert seen: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert seen: %w", err)
	}
	return rows > 0, nil
}

// IsSkipped reports whether the listing is permanently skipped.
func (l *PostgresLedger) IsSkipped(ctx context.Context, listingID int) (bool, error) {
	var exists bool
	err := l.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM skipped_properties WHERE id = $1)`, listingID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query skipped: %w", err)
	}
	return exists, nil
}

// MarkSkipped inserts the listing into the skipped set if absent.
func (l *PostgresLedger) MarkSkipped(ctx context.Context, listingID int) (bool, error) {
	res, err := l.db.ExecContext(ctx,
		`INSERT INTO skipped_properties (id) VALUES ($1) ON CONFLICT DO NOTHING`, listingID)
	if err != nil {
		return false, fmt.Errorf("insert skipped: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert skipped: %w", err)
	}
	return rows > 0, nil
}
