// Package sqlite provides a SQLite result store for analysis runs
package sqlite

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/ChrisMcGann/isostat/pkg/bivariate"
	"github.com/ChrisMcGann/isostat/pkg/core"
	"github.com/ChrisMcGann/isostat/pkg/univariate"
)

// Timestamp format for the runs table (RFC 3339)
const runDateFormat = time.RFC3339

// Writer stores result rows of one run
type Writer struct {
	db            *sqlx.DB
	outputPath    string
	runID         uuid.UUID
	univariateStm *sqlx.Stmt
	bivariateStm  *sqlx.Stmt
	rows          int
}

// UnitInfo identifies the batch a result row belongs to
type UnitInfo struct {
	Kind        core.FileKind
	Compartment string
	Comparison  string
	Test        string
	// Behavior and Key are only set for bivariate units
	Behavior string
	Key      string
}

// NewWriter opens the database and registers a new run
func NewWriter(outputPath, name string) (*Writer, error) {
	db, err := sqlx.Open("sqlite3", outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	w := &Writer{
		db:         db,
		outputPath: outputPath,
		runID:      uuid.New(),
	}

	if err := w.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	if err := w.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}

	_, err = db.Exec(`INSERT INTO runs (id, name, created_at) VALUES (?, ?, ?)`,
		w.runID.String(), name, time.Now().UTC().Format(runDateFormat))
	if err != nil {
		w.closeStatements()
		db.Close()
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}

	return w, nil
}

// RunID returns the identifier of the current run
func (w *Writer) RunID() uuid.UUID {
	return w.runID
}

// createTables creates the required database schema
func (w *Writer) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		name TEXT,
		created_at TEXT,
		finished_at TEXT,
		result_count INTEGER
	);

	CREATE TABLE IF NOT EXISTS univariate_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT REFERENCES runs(id),
		file_kind TEXT,
		compartment TEXT,
		comparison TEXT,
		test TEXT,
		metabolite TEXT,
		distance DOUBLE,
		span_allsamples DOUBLE,
		distance_span DOUBLE,
		stat DOUBLE,
		pvalue DOUBLE,
		padj DOUBLE,
		log2fc DOUBLE,
		fc DOUBLE,
		count_nan_samples_group1 INTEGER,
		count_nan_samples_group2 INTEGER
	);

	CREATE TABLE IF NOT EXISTS bivariate_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT REFERENCES runs(id),
		file_kind TEXT,
		compartment TEXT,
		behavior TEXT,
		comparison TEXT,
		unit_key TEXT,
		method TEXT,
		metabolite TEXT,
		gmean_arr_1 TEXT,
		gmean_arr_2 TEXT,
		correlation_coefficient DOUBLE,
		pvalue DOUBLE,
		padj DOUBLE
	);
	`

	if _, err := w.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// prepareStatements prepares SQL statements for batch insertion
func (w *Writer) prepareStatements() error {
	var err error

	w.univariateStm, err = w.db.Preparex(`
		INSERT INTO univariate_results (
			run_id, file_kind, compartment, comparison, test, metabolite,
			distance, span_allsamples, distance_span, stat, pvalue, padj,
			log2fc, fc, count_nan_samples_group1, count_nan_samples_group2
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare univariate statement: %w", err)
	}

	w.bivariateStm, err = w.db.Preparex(`
		INSERT INTO bivariate_results (
			run_id, file_kind, compartment, behavior, comparison, unit_key, method,
			metabolite, gmean_arr_1, gmean_arr_2, correlation_coefficient, pvalue, padj
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare bivariate statement: %w", err)
	}

	return nil
}

// nullable maps NaN to NULL
func nullable(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

// WriteDifferential stores the rows of one univariate unit in a transaction
func (w *Writer) WriteDifferential(unit UnitInfo, rows []univariate.Result) error {
	tx, err := w.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	stmt := tx.Stmtx(w.univariateStm)

	for _, r := range rows {
		_, err := stmt.Exec(
			w.runID.String(),
			unit.Kind.String(),
			unit.Compartment,
			unit.Comparison,
			unit.Test,
			r.Metabolite,
			nullable(r.Distance),
			nullable(r.Span),
			nullable(r.DistanceOverSpan),
			nullable(r.Stat),
			nullable(r.PValue),
			nullable(r.Padj),
			nullable(r.Log2FC),
			nullable(r.FC),
			r.MissingA,
			r.MissingB,
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert univariate result %s: %w", r.Metabolite, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit univariate results: %w", err)
	}
	w.rows += len(rows)
	return nil
}

// WriteBivariate stores the rows of one bivariate unit in a transaction
func (w *Writer) WriteBivariate(unit UnitInfo, rows []bivariate.Result) error {
	tx, err := w.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	stmt := tx.Stmtx(w.bivariateStm)

	for _, r := range rows {
		_, err := stmt.Exec(
			w.runID.String(),
			unit.Kind.String(),
			unit.Compartment,
			unit.Behavior,
			unit.Comparison,
			unit.Key,
			unit.Test,
			r.Metabolite,
			r.GmeanA.String(),
			r.GmeanB.String(),
			nullable(r.Coefficient),
			nullable(r.PValue),
			nullable(r.Padj),
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert bivariate result %s: %w", r.Metabolite, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit bivariate results: %w", err)
	}
	w.rows += len(rows)
	return nil
}

// StoredDifferential is a univariate row read back from the store
type StoredDifferential struct {
	Comparison  string          `db:"comparison"`
	Test        string          `db:"test"`
	Compartment string          `db:"compartment"`
	Metabolite  string          `db:"metabolite"`
	PValue      sql.NullFloat64 `db:"pvalue"`
	Padj        sql.NullFloat64 `db:"padj"`
}

// Differential reads back the univariate rows of the current run ordered by padj
func (w *Writer) Differential() ([]StoredDifferential, error) {
	var out []StoredDifferential
	err := w.db.Select(&out, `
		SELECT comparison, test, compartment, metabolite, pvalue, padj
		FROM univariate_results
		WHERE run_id = ?
		ORDER BY padj IS NULL, padj, id
	`, w.runID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query univariate results: %w", err)
	}
	return out, nil
}

// Finalize marks the run finished and closes the database
func (w *Writer) Finalize() error {
	_, err := w.db.Exec(`UPDATE runs SET finished_at = ?, result_count = ? WHERE id = ?`,
		time.Now().UTC().Format(runDateFormat), w.rows, w.runID.String())
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	w.closeStatements()

	if err := w.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

func (w *Writer) closeStatements() {
	if w.univariateStm != nil {
		w.univariateStm.Close()
	}
	if w.bivariateStm != nil {
		w.bivariateStm.Close()
	}
}

// Close closes the database connection (alias for Finalize)
func (w *Writer) Close() error {
	return w.Finalize()
}
