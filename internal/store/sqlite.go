package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"goquant/internal/errors"
)

// SQLiteJournal implements Journal using SQLite.
type SQLiteJournal struct {
	db *sql.DB
}

// NewSQLiteJournal creates a new SQLite-backed result journal.
func NewSQLiteJournal(dbPath string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrap(err, "failed to open journal database")
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	j := &SQLiteJournal{db: db}
	if err := j.initSchema(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to initialize journal schema")
	}
	return j, nil
}

func (j *SQLiteJournal) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		instrument_token TEXT NOT NULL,
		instrument_type TEXT NOT NULL,
		provider TEXT NOT NULL,
		measure TEXT NOT NULL,
		pricing_date DATE NOT NULL,
		market_type TEXT NOT NULL,
		quantity TEXT NOT NULL,
		value REAL,
		value_text TEXT,
		is_error INTEGER NOT NULL DEFAULT 0,
		error_message TEXT,
		computed_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_results_token ON results(instrument_token);
	CREATE INDEX IF NOT EXISTS idx_results_measure ON results(measure, pricing_date);
	CREATE INDEX IF NOT EXISTS idx_results_computed ON results(computed_at);
	`
	_, err := j.db.Exec(schema)
	return err
}

// Record inserts the given records in one transaction.
func (j *SQLiteJournal) Record(ctx context.Context, records []ResultRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin journal transaction")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO results (
			instrument_token, instrument_type, provider, measure,
			pricing_date, market_type, quantity, value, value_text,
			is_error, error_message, computed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "failed to prepare journal insert")
	}
	defer stmt.Close()

	for _, r := range records {
		computedAt := r.ComputedAt
		if computedAt.IsZero() {
			computedAt = time.Now()
		}
		if _, err := stmt.ExecContext(ctx,
			r.InstrumentToken, r.InstrumentType, r.Provider, r.Measure,
			r.PricingDate.Format("2006-01-02"), r.MarketType, r.Quantity.String(),
			r.Value, r.ValueText, r.IsError, r.ErrorMessage, computedAt,
		); err != nil {
			return errors.Wrap(err, "failed to insert journal record")
		}
	}

	return tx.Commit()
}

// Query returns records matching the filter, most recent first.
func (j *SQLiteJournal) Query(ctx context.Context, filter RecordFilter) ([]ResultRecord, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.InstrumentToken != "" {
		conds = append(conds, "instrument_token = ?")
		args = append(args, filter.InstrumentToken)
	}
	if filter.Provider != "" {
		conds = append(conds, "provider = ?")
		args = append(args, filter.Provider)
	}
	if filter.Measure != "" {
		conds = append(conds, "measure = ?")
		args = append(args, filter.Measure)
	}
	if !filter.From.IsZero() {
		conds = append(conds, "pricing_date >= ?")
		args = append(args, filter.From.Format("2006-01-02"))
	}
	if !filter.To.IsZero() {
		conds = append(conds, "pricing_date <= ?")
		args = append(args, filter.To.Format("2006-01-02"))
	}

	query := `
		SELECT id, instrument_token, instrument_type, provider, measure,
		       pricing_date, market_type, quantity, value, value_text,
		       is_error, error_message, computed_at
		FROM results`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY computed_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query journal")
	}
	defer rows.Close()

	var records []ResultRecord
	for rows.Next() {
		var (
			r           ResultRecord
			pricingDate string
			quantity    string
			value       sql.NullFloat64
			valueText   sql.NullString
			errMsg      sql.NullString
		)
		if err := rows.Scan(
			&r.ID, &r.InstrumentToken, &r.InstrumentType, &r.Provider, &r.Measure,
			&pricingDate, &r.MarketType, &quantity, &value, &valueText,
			&r.IsError, &errMsg, &r.ComputedAt,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan journal record")
		}
		r.PricingDate, _ = time.Parse("2006-01-02", pricingDate)
		r.Quantity, _ = decimal.NewFromString(quantity)
		r.Value = value.Float64
		r.ValueText = valueText.String
		r.ErrorMessage = errMsg.String
		records = append(records, r)
	}
	return records, rows.Err()
}

// Recent returns the most recently journaled records.
func (j *SQLiteJournal) Recent(ctx context.Context, limit int) ([]ResultRecord, error) {
	return j.Query(ctx, RecordFilter{Limit: limit})
}

// Close closes the underlying database.
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
