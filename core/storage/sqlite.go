package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/cesdm/modelkit/core/exchange"
	"github.com/cesdm/modelkit/core/model"
	"github.com/cesdm/modelkit/core/schema"
)

// SQLiteStore persists model snapshots in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Set pragmas for performance
	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -64000",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// NewSQLiteStoreFromDB wraps an existing connection.
func NewSQLiteStoreFromDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Snapshot writes the full model state into the database, one table
// per concrete class. Existing tables are replaced, so the database
// always reflects exactly one point in time. The whole snapshot runs
// in a single transaction.
func (s *SQLiteStore) Snapshot(ctx context.Context, m *model.Model) error {
	rs := m.Schema()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback()

	for _, cname := range rs.Names() {
		ec, ok := rs.Class(cname)
		if !ok || ec.Abstract {
			continue
		}

		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(cname)); err != nil {
			return fmt.Errorf("drop table %s: %w", cname, err)
		}
		if _, err := tx.ExecContext(ctx, BuildCreateTableSQL(ec)); err != nil {
			return fmt.Errorf("create table %s: %w", cname, err)
		}

		cols := classColumns(ec)
		stmt, err := tx.PrepareContext(ctx, buildInsertSQL(ec, cols))
		if err != nil {
			return fmt.Errorf("prepare insert for %s: %w", cname, err)
		}
		for _, ent := range m.EntitiesOf(cname) {
			if _, err := stmt.ExecContext(ctx, rowValues(ec, cols, ent)...); err != nil {
				stmt.Close()
				return fmt.Errorf("insert [%s:%s]: %w", cname, ent.ID(), err)
			}
		}
		stmt.Close()
	}

	return tx.Commit()
}

// Restore replays the stored snapshot into the model through the
// regular write path, so coercion, unit resolution and logging behave
// exactly as on any other import. Classes without a table are skipped;
// entities that already exist are updated in place.
func (s *SQLiteStore) Restore(ctx context.Context, m *model.Model) (exchange.Summary, error) {
	sum := exchange.Summary{PerClassRows: map[string]int{}}
	rs := m.Schema()

	for _, cname := range rs.Names() {
		ec, ok := rs.Class(cname)
		if !ok || ec.Abstract {
			continue
		}

		exists, err := s.tableExists(ctx, cname)
		if err != nil {
			return sum, fmt.Errorf("check table %s: %w", cname, err)
		}
		if !exists {
			continue
		}

		if err := s.restoreClass(ctx, m, &sum, ec); err != nil {
			return sum, err
		}
	}
	return sum, nil
}

func (s *SQLiteStore) restoreClass(ctx context.Context, m *model.Model, sum *exchange.Summary, ec *schema.EntityClass) error {
	cols := classColumns(ec)
	rows, err := s.db.QueryContext(ctx, buildSelectSQL(ec, cols))
	if err != nil {
		return fmt.Errorf("read table %s: %w", ec.Name, err)
	}
	defer rows.Close()

	for rows.Next() {
		values := make([]any, len(cols))
		dest := make([]any, len(cols))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return fmt.Errorf("scan %s row: %w", ec.Name, err)
		}
		if err := applyRow(m, sum, ec, cols, values); err != nil {
			return err
		}
	}
	return rows.Err()
}

// applyRow writes one scanned row back into the model.
func applyRow(m *model.Model, sum *exchange.Summary, ec *schema.EntityClass, cols []column, values []any) error {
	vals := map[string]any{}
	units := map[string]string{}
	provs := map[string]string{}
	rels := map[string]string{}
	var eid string

	for i, c := range cols {
		v := fromDB(values[i])
		if v == nil {
			continue
		}
		switch c.Kind {
		case columnID:
			eid, _ = v.(string)
		case columnValue:
			vals[c.Field] = v
		case columnUnit:
			if s, ok := v.(string); ok {
				units[c.Field] = strings.TrimSpace(s)
			}
		case columnProv:
			if s, ok := v.(string); ok {
				provs[c.Field] = strings.TrimSpace(s)
			}
		case columnRelation:
			if s, ok := v.(string); ok {
				rels[c.Field] = s
			}
		}
	}

	eid = strings.TrimSpace(eid)
	if eid == "" {
		return nil
	}

	if _, exists := m.Entity(eid); !exists {
		if _, err := m.AddEntity(ec.Name, eid); err != nil {
			return fmt.Errorf("restore %s %q: %w", ec.Name, eid, err)
		}
		sum.CreatedEntities++
	}
	sum.PerClassRows[ec.Name]++

	for _, an := range ec.AttributeNames() {
		v, ok := vals[an]
		if !ok {
			continue
		}
		if err := m.SetAttribute(eid, an, v, model.SetOptions{Unit: units[an], ProvenanceRef: provs[an]}); err != nil {
			return err
		}
		sum.SetAttributes++
	}

	for _, rn := range ec.RelationNames() {
		targets := decodeTargets(rels[rn])
		if len(targets) == 0 {
			continue
		}
		if err := m.SetRelationTargets(eid, rn, targets); err != nil {
			return err
		}
		sum.SetRelations += len(targets)
	}
	return nil
}

func (s *SQLiteStore) tableExists(ctx context.Context, name string) (bool, error) {
	var n string
	err := s.db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
