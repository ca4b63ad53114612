package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/modelbind/binding"
)

var (
	ErrUnsafeIdentifier  = errors.New("postgres: unsafe identifier")
	ErrUnsupportedOption = errors.New("postgres: unsupported option")
	ErrInvalidQueryFunc  = errors.New("postgres: query modifier must be func(*QueryBuilder)")
)

// identPattern restricts dynamic identifiers to plain SQL names. Field
// and column names that fail this check abort the query instead of
// being dropped.
var identPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Table describes one bindable relation.
type Table struct {
	Name             string
	PrimaryKey       string // defaults to "id"
	SoftDeleteColumn string // empty = hard deletes only
}

func (t Table) primaryKey() string {
	if t.PrimaryKey == "" {
		return "id"
	}
	return t.PrimaryKey
}

// Querier is the subset of pgxpool.Pool the adapter needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Adapter resolves bindings against PostgreSQL via pgx. Records are
// returned as map[string]any keyed by column name.
type Adapter struct {
	db Querier
}

// New creates a Postgres adapter on top of an established pool or
// compatible querier.
func New(db Querier) *Adapter {
	return &Adapter{db: db}
}

// QueryBuilder is handed to the Options.Query escape hatch for
// adapter-native extension of the generated statement.
type QueryBuilder struct {
	conds  []queryCond
	suffix string
}

type queryCond struct {
	expr string
	args []any
}

// Where appends an extra condition, AND-combined with the rest of the
// statement. Use ? placeholders for arguments.
func (qb *QueryBuilder) Where(expr string, args ...any) {
	qb.conds = append(qb.conds, queryCond{expr: expr, args: args})
}

// Suffix appends raw SQL after the WHERE clause (ORDER BY and friends).
func (qb *QueryBuilder) Suffix(sql string) {
	qb.suffix = sql
}

// FindByKey builds and runs a single-row SELECT honoring Select, Where,
// soft-delete visibility, row locking and the Query escape hatch.
// Include is rejected: the adapter has no relation metadata to resolve
// eager loads against.
func (a *Adapter) FindByKey(ctx context.Context, model any, field string, value any, opts binding.Options) (any, bool, error) {
	t, ok := asTable(model)
	if !ok {
		return nil, false, fmt.Errorf("%w: descriptor %T", ErrUnsafeIdentifier, model)
	}

	sql, args, err := buildQuery(t, field, value, opts)
	if err != nil {
		return nil, false, err
	}

	rows, err := a.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, false, err
	}

	record, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return record, true, nil
}

// buildQuery assembles the SELECT statement. Split out of FindByKey so
// statement generation is testable without a database.
func buildQuery(t Table, field string, value any, opts binding.Options) (string, []any, error) {
	if len(opts.Include) > 0 {
		return "", nil, fmt.Errorf("%w: include", ErrUnsupportedOption)
	}
	if err := checkIdent(t.Name); err != nil {
		return "", nil, err
	}
	if err := checkIdent(field); err != nil {
		return "", nil, err
	}

	cols := "*"
	if len(opts.Select) > 0 {
		quoted := make([]string, len(opts.Select))
		for i, c := range opts.Select {
			if err := checkIdent(c); err != nil {
				return "", nil, err
			}
			quoted[i] = quoteIdent(c)
		}
		cols = strings.Join(quoted, ", ")
	}

	var sb strings.Builder
	args := make([]any, 0, 1+len(opts.Where))

	sb.WriteString("SELECT ")
	sb.WriteString(cols)
	sb.WriteString(" FROM ")
	sb.WriteString(quoteIdent(t.Name))
	sb.WriteString(" WHERE ")
	sb.WriteString(quoteIdent(field))
	args = append(args, value)
	sb.WriteString(" = $" + strconv.Itoa(len(args)))

	// Sorted keys keep generated SQL deterministic.
	whereKeys := make([]string, 0, len(opts.Where))
	for k := range opts.Where {
		whereKeys = append(whereKeys, k)
	}
	sort.Strings(whereKeys)
	for _, k := range whereKeys {
		if err := checkIdent(k); err != nil {
			return "", nil, err
		}
		args = append(args, opts.Where[k])
		sb.WriteString(" AND " + quoteIdent(k) + " = $" + strconv.Itoa(len(args)))
	}

	if t.SoftDeleteColumn != "" {
		if err := checkIdent(t.SoftDeleteColumn); err != nil {
			return "", nil, err
		}
		switch {
		case opts.OnlyTrashed:
			sb.WriteString(" AND " + quoteIdent(t.SoftDeleteColumn) + " IS NOT NULL")
		case !opts.WithTrashed:
			sb.WriteString(" AND " + quoteIdent(t.SoftDeleteColumn) + " IS NULL")
		}
	}

	if opts.Query != nil {
		fn, ok := opts.Query.(func(*QueryBuilder))
		if !ok {
			return "", nil, ErrInvalidQueryFunc
		}
		qb := &QueryBuilder{}
		fn(qb)
		for _, c := range qb.conds {
			expr := c.expr
			for _, arg := range c.args {
				args = append(args, arg)
				expr = strings.Replace(expr, "?", "$"+strconv.Itoa(len(args)), 1)
			}
			sb.WriteString(" AND (" + expr + ")")
		}
		if qb.suffix != "" {
			sb.WriteString(" " + qb.suffix)
		}
	}

	sb.WriteString(" LIMIT 1")

	switch opts.Lock {
	case binding.LockForUpdate:
		sb.WriteString(" FOR UPDATE")
	case binding.LockForShare:
		sb.WriteString(" FOR SHARE")
	}

	return sb.String(), args, nil
}

// PrimaryKey returns the table's configured primary key.
func (a *Adapter) PrimaryKey(model any) string {
	if t, ok := asTable(model); ok {
		return t.primaryKey()
	}
	return "id"
}

// IsValidModel accepts Table descriptors with a safe relation name.
func (a *Adapter) IsValidModel(model any) bool {
	t, ok := asTable(model)
	return ok && identPattern.MatchString(t.Name)
}

// TransformValue coerces route values to native key types: integer-like
// strings become int64 for non-UUID columns, UUID strings stay verbatim,
// everything ambiguous stays a string.
func (a *Adapter) TransformValue(model any, field, raw string) any {
	return binding.DefaultTransform(raw)
}

// SupportsSoftDeletes reports whether the table declares a soft-delete
// column.
func (a *Adapter) SupportsSoftDeletes(model any) bool {
	t, ok := asTable(model)
	return ok && t.SoftDeleteColumn != ""
}

// ModelName implements binding.ModelNamer.
func (a *Adapter) ModelName(model any) string {
	if t, ok := asTable(model); ok {
		return t.Name
	}
	return ""
}

func asTable(model any) (Table, bool) {
	switch t := model.(type) {
	case Table:
		return t, true
	case *Table:
		if t != nil {
			return *t, true
		}
	}
	return Table{}, false
}

func checkIdent(name string) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrUnsafeIdentifier, name)
	}
	return nil
}

func quoteIdent(name string) string {
	return `"` + name + `"`
}
