// Package sqlstore stores records in a relational table through database/sql.
// Supported dialects: sqlite (modernc.org/sqlite), postgres (pgx) and mysql.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	pr "github.com/unkn0wn-root/swrcache/provider"
)

const defaultTable = "swr_records"

var sqlIdentPartRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
	dialectMySQL
)

type Config struct {
	// DB is an open handle. When nil, DriverName and DSN are used to open
	// one and the provider owns it.
	DB         *sql.DB
	DriverName string // "sqlite", "pgx", "postgres" or "mysql"
	DSN        string
	Table      string // "" => swr_records; may be schema-qualified
}

type Provider struct {
	db      *sql.DB
	ownsDB  bool
	dialect dialect
	table   string
	now     func() time.Time

	getStmt    *sql.Stmt
	upsertStmt *sql.Stmt
	deleteStmt *sql.Stmt
	clearStmt  *sql.Stmt
	scopeStmt  *sql.Stmt
}

var _ pr.Provider = (*Provider)(nil)

// New opens (or adopts) the database, creates the table if missing and
// prepares every statement.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	d, err := dialectFor(cfg.DriverName)
	if err != nil {
		return nil, err
	}
	table := cfg.Table
	if table == "" {
		table = defaultTable
	}
	if err := validateSQLTableName(table); err != nil {
		return nil, err
	}

	db, owns := cfg.DB, false
	if db == nil {
		if cfg.DSN == "" {
			return nil, errors.New("sql provider: dsn is required without a DB")
		}
		if db, err = sql.Open(cfg.DriverName, cfg.DSN); err != nil {
			return nil, err
		}
		owns = true
		if d == dialectSQLite {
			// single writer; avoids SQLITE_BUSY from concurrent refreshes
			db.SetMaxOpenConns(1)
		}
	}

	p := &Provider{db: db, ownsDB: owns, dialect: d, table: table, now: time.Now}
	if err := p.init(ctx); err != nil {
		_ = p.Close(ctx)
		return nil, err
	}
	return p, nil
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case "sqlite":
		return dialectSQLite, nil
	case "pgx", "postgres":
		return dialectPostgres, nil
	case "mysql":
		return dialectMySQL, nil
	default:
		return 0, fmt.Errorf("sql provider: unsupported driver %q", driver)
	}
}

func (p *Provider) init(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return err
	}
	if _, err := p.db.ExecContext(ctx, p.schemaSQL()); err != nil {
		return fmt.Errorf("sql provider: create table: %w", err)
	}
	stmts := []struct {
		dst   **sql.Stmt
		query string
	}{
		{&p.getStmt, fmt.Sprintf("SELECT value, created_at, ttl FROM %s WHERE namespace = %s AND id = %s", p.table, p.ph(1), p.ph(2))},
		{&p.upsertStmt, p.upsertSQL()},
		{&p.deleteStmt, fmt.Sprintf("DELETE FROM %s WHERE namespace = %s AND id = %s", p.table, p.ph(1), p.ph(2))},
		{&p.clearStmt, fmt.Sprintf("DELETE FROM %s WHERE namespace = %s", p.table, p.ph(1))},
		{&p.scopeStmt, p.scopeSQL()},
	}
	for _, s := range stmts {
		stmt, err := p.db.PrepareContext(ctx, s.query)
		if err != nil {
			return err
		}
		*s.dst = stmt
	}
	return nil
}

func (p *Provider) Get(ctx context.Context, namespace, id string) (pr.Record, bool, error) {
	rec := pr.Record{Namespace: namespace, ID: id}
	err := p.getStmt.QueryRowContext(ctx, namespace, id).Scan(&rec.Value, &rec.CreatedAt, &rec.TTL)
	if errors.Is(err, sql.ErrNoRows) {
		return pr.Record{}, false, nil
	}
	if err != nil {
		return pr.Record{}, false, err
	}
	if rec.TTL > 0 && p.now().Unix() >= rec.TTL {
		_ = p.Del(ctx, namespace, id)
		return pr.Record{}, false, nil
	}
	return rec, true, nil
}

func (p *Provider) Set(ctx context.Context, rec pr.Record) (bool, error) {
	value := rec.Value
	if value == nil {
		value = []byte{}
	}
	_, err := p.upsertStmt.ExecContext(ctx, rec.Namespace, rec.ID, value, rec.CreatedAt, rec.TTL)
	if err != nil {
		return false, err
	}
	return true, nil
}

func (p *Provider) Del(ctx context.Context, namespace, id string) error {
	_, err := p.deleteStmt.ExecContext(ctx, namespace, id)
	return err
}

// Clear deletes the namespace, or only ids starting with idPrefix.
func (p *Provider) Clear(ctx context.Context, namespace, idPrefix string) error {
	var err error
	if idPrefix == "" {
		_, err = p.clearStmt.ExecContext(ctx, namespace)
	} else {
		_, err = p.scopeStmt.ExecContext(ctx, p.scopeArgs(namespace, idPrefix)...)
	}
	return err
}

// Purge removes rows whose TTL passed. Expired rows are otherwise only
// dropped when read.
func (p *Provider) Purge(ctx context.Context) (int64, error) {
	res, err := p.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE ttl > 0 AND ttl <= %s", p.table, p.ph(1)),
		p.now().Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (p *Provider) Close(_ context.Context) error {
	var errs []error
	for _, s := range []*sql.Stmt{p.getStmt, p.upsertStmt, p.deleteStmt, p.clearStmt, p.scopeStmt} {
		if s != nil {
			errs = append(errs, s.Close())
		}
	}
	if p.ownsDB {
		errs = append(errs, p.db.Close())
	}
	return errors.Join(errs...)
}

func (p *Provider) schemaSQL() string {
	switch p.dialect {
	case dialectPostgres:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			namespace TEXT NOT NULL,
			id TEXT NOT NULL,
			value BYTEA NOT NULL,
			created_at BIGINT NOT NULL,
			ttl BIGINT NOT NULL,
			PRIMARY KEY (namespace, id)
		);`, p.table)
	case dialectMySQL:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			namespace VARBINARY(255) NOT NULL,
			id VARBINARY(255) NOT NULL,
			value LONGBLOB NOT NULL,
			created_at BIGINT NOT NULL,
			ttl BIGINT NOT NULL,
			PRIMARY KEY (namespace, id)
		) ENGINE=InnoDB;`, p.table)
	default: // sqlite
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			namespace TEXT NOT NULL,
			id TEXT NOT NULL,
			value BLOB NOT NULL,
			created_at INTEGER NOT NULL,
			ttl INTEGER NOT NULL,
			PRIMARY KEY (namespace, id)
		);`, p.table)
	}
}

func (p *Provider) upsertSQL() string {
	p1, p2, p3, p4, p5 := p.ph(1), p.ph(2), p.ph(3), p.ph(4), p.ph(5)
	switch p.dialect {
	case dialectMySQL:
		return fmt.Sprintf("INSERT INTO %s (namespace, id, value, created_at, ttl) VALUES (%s, %s, %s, %s, %s) ON DUPLICATE KEY UPDATE value = VALUES(value), created_at = VALUES(created_at), ttl = VALUES(ttl)", p.table, p1, p2, p3, p4, p5)
	default: // sqlite, postgres
		return fmt.Sprintf("INSERT INTO %s (namespace, id, value, created_at, ttl) VALUES (%s, %s, %s, %s, %s) ON CONFLICT (namespace, id) DO UPDATE SET value = excluded.value, created_at = excluded.created_at, ttl = excluded.ttl", p.table, p1, p2, p3, p4, p5)
	}
}

// scopeSQL deletes ids starting with a prefix, case-sensitively on every
// dialect. sqlite's LIKE folds ASCII case, so it compares a substring instead.
func (p *Provider) scopeSQL() string {
	switch p.dialect {
	case dialectSQLite:
		return fmt.Sprintf("DELETE FROM %s WHERE namespace = ? AND substr(id, 1, length(?)) = ?", p.table)
	case dialectMySQL:
		// VARBINARY compares bytes; '\' is already the default LIKE escape
		return fmt.Sprintf("DELETE FROM %s WHERE namespace = ? AND id LIKE ?", p.table)
	default:
		return fmt.Sprintf(`DELETE FROM %s WHERE namespace = $1 AND id LIKE $2 ESCAPE '\'`, p.table)
	}
}

func (p *Provider) scopeArgs(namespace, idPrefix string) []any {
	if p.dialect == dialectSQLite {
		return []any{namespace, idPrefix, idPrefix}
	}
	return []any{namespace, likeEscape(idPrefix) + "%"}
}

func (p *Provider) ph(i int) string {
	if p.dialect == dialectPostgres {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}

// likeEscape makes s match literally inside a LIKE pattern.
func likeEscape(s string) string {
	if !strings.ContainsAny(s, `\%_`) {
		return s
	}
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func validateSQLTableName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("sql table name is required")
	}
	for _, part := range strings.Split(name, ".") {
		if !sqlIdentPartRE.MatchString(part) {
			return fmt.Errorf("invalid sql table name %q", name)
		}
	}
	return nil
}
