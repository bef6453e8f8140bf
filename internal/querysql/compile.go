package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/slotgraph/internal/ir"
	"github.com/roach88/slotgraph/internal/queryir"
)

// Table aliases used by compiled SQL. Columns must be qualified with them.
const (
	PassAlias         = "p"
	NotificationAlias = "n"
)

// SQLCompiler compiles journal queries to parameterized SQL for SQLite.
//
// Every query is ordered by seq and then id so results are deterministic.
// All values are parameterized, never interpolated.
type SQLCompiler struct {
	// Columns is the SELECT list, qualified with PassAlias.
	Columns string
}

// NewSQLCompiler creates a compiler that selects columns.
func NewSQLCompiler(columns string) *SQLCompiler {
	return &SQLCompiler{Columns: columns}
}

// Compile converts a query to parameterized SQL.
// Returns (sql, params, error) tuple.
//
// Compile does not validate field names; callers run queryir.Validate first.
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	switch query := q.(type) {
	case nil:
		return "", nil, fmt.Errorf("cannot compile nil query")
	case queryir.Select:
		return c.compileSelect(query)
	case *queryir.Select:
		return c.compileSelect(*query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

func (c *SQLCompiler) compileSelect(q queryir.Select) (string, []any, error) {
	columns := c.Columns
	if columns == "" {
		columns = PassAlias + ".*"
	}

	var whereClause string
	var params []any
	if q.Filter != nil {
		filterSQL, filterParams, err := c.compilePredicate(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		whereClause = " WHERE " + filterSQL
		params = filterParams
	}

	var limitClause string
	if q.Limit > 0 {
		limitClause = " LIMIT ?"
		params = append(params, int64(q.Limit))
	}

	sql := fmt.Sprintf("SELECT %s FROM passes %s%s ORDER BY %s%s",
		columns,
		PassAlias,
		whereClause,
		stableOrderKey(),
		limitClause)

	return sql, params, nil
}

// stableOrderKey returns the ORDER BY list shared by every query.
// COLLATE BINARY keeps id ordering identical across SQLite builds.
func stableOrderKey() string {
	return PassAlias + ".seq ASC, " + PassAlias + ".id COLLATE BINARY ASC"
}

// compilePredicate compiles a predicate to a WHERE clause fragment.
func (c *SQLCompiler) compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case nil:
		return "1 = 1", nil, nil
	case queryir.Equals:
		return c.compileEquals(pred)
	case *queryir.Equals:
		return c.compileEquals(*pred)
	case queryir.Touches:
		return c.compileTouches(pred)
	case *queryir.Touches:
		return c.compileTouches(*pred)
	case queryir.Aborted, *queryir.Aborted:
		return PassAlias + ".error_code != ''", nil, nil
	case queryir.After:
		return PassAlias + ".seq > ?", []any{pred.Seq}, nil
	case *queryir.After:
		return PassAlias + ".seq > ?", []any{pred.Seq}, nil
	case queryir.And:
		return c.compileAnd(pred)
	case *queryir.And:
		return c.compileAnd(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// compileEquals compiles an Equals predicate to "p.field = ?".
func (c *SQLCompiler) compileEquals(eq queryir.Equals) (string, []any, error) {
	param, err := irValueToParam(eq.Value)
	if err != nil {
		return "", nil, fmt.Errorf("convert value: %w", err)
	}
	return fmt.Sprintf("%s.%s = ?", PassAlias, eq.Field), []any{param}, nil
}

// compileTouches compiles a Touches predicate to a notifications subquery.
func (c *SQLCompiler) compileTouches(t queryir.Touches) (string, []any, error) {
	sql := fmt.Sprintf("%[1]s.id IN (SELECT %[2]s.pass_id FROM notifications %[2]s WHERE %[2]s.signal = ? AND %[2]s.slot = ?)",
		PassAlias, NotificationAlias)
	return sql, []any{t.Signal, t.Slot}, nil
}

// compileAnd compiles an And predicate to a conjunction.
func (c *SQLCompiler) compileAnd(and queryir.And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil // vacuous truth
	}

	var sqlParts []string
	var allParams []any
	for _, pred := range and.Predicates {
		sql, params, err := c.compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		sqlParts = append(sqlParts, sql)
		allParams = append(allParams, params...)
	}

	return strings.Join(sqlParts, " AND "), allParams, nil
}

// irValueToParam converts an ir.IRValue to a Go native SQL parameter.
func irValueToParam(v ir.IRValue) (any, error) {
	switch val := v.(type) {
	case ir.IRString:
		return string(val), nil
	case ir.IRInt:
		return int64(val), nil
	case ir.IRBool:
		return bool(val), nil
	case ir.IRArray:
		return nil, fmt.Errorf("IRArray cannot be used as SQL parameter directly")
	case ir.IRObject:
		return nil, fmt.Errorf("IRObject cannot be used as SQL parameter directly")
	default:
		return nil, fmt.Errorf("unsupported IRValue type for SQL parameter: %T", v)
	}
}
