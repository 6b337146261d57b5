package sql

import (
	"strings"

	"github.com/xwb1989/sqlparser"

	"github.com/rowguard-labs/rowguard/internal/errors"
	"github.com/rowguard-labs/rowguard/internal/schema"
)

// Guard verifies built statements before they leave the package: every
// SELECT, UPDATE and DELETE must carry an owner_user predicate reachable
// only through AND, and every INSERT must stamp the ownership columns.
// A guard rejection is an internal defect, not a user error.
type Guard struct {
	table string
}

// NewGuard creates a guard for the given fully-qualified table name.
func NewGuard(qualifiedTable string) *Guard {
	return &Guard{table: qualifiedTable}
}

// Check parses the statement and verifies the ownership invariant.
func (g *Guard) Check(stmt Statement) error {
	parsed, err := sqlparser.Parse(g.normalize(stmt.SQL))
	if err != nil {
		return errors.NewGuardRejected(stmt.SQL, "statement does not parse: "+err.Error())
	}

	switch s := parsed.(type) {
	case *sqlparser.Select:
		if !whereGuaranteesOwner(whereExpr(s.Where)) {
			return errors.NewGuardRejected(stmt.SQL, "select lacks a mandatory owner_user predicate")
		}
	case *sqlparser.Update:
		if !whereGuaranteesOwner(whereExpr(s.Where)) {
			return errors.NewGuardRejected(stmt.SQL, "update lacks a mandatory owner_user predicate")
		}
		for _, expr := range s.Exprs {
			name := expr.Name.Name.Lowered()
			if schema.IsManagedColumn(name) && name != schema.ColumnUpdatedAt {
				return errors.NewGuardRejected(stmt.SQL, "update writes a layer-managed column")
			}
		}
	case *sqlparser.Delete:
		if !whereGuaranteesOwner(whereExpr(s.Where)) {
			return errors.NewGuardRejected(stmt.SQL, "delete lacks a mandatory owner_user predicate")
		}
	case *sqlparser.Insert:
		if !insertStampsOwnership(s) {
			return errors.NewGuardRejected(stmt.SQL, "insert does not stamp ownership and timestamps")
		}
	default:
		return errors.NewGuardRejected(stmt.SQL, "unexpected statement kind")
	}
	return nil
}

// normalize rewrites the three-part qualified table name to a single
// identifier so the parser's two-part name grammar accepts the statement.
// The guard checks predicates and columns, not the table name itself.
func (g *Guard) normalize(sql string) string {
	return strings.ReplaceAll(sql, g.table, "guarded_table")
}

func whereExpr(w *sqlparser.Where) sqlparser.Expr {
	if w == nil {
		return nil
	}
	return w.Expr
}

// whereGuaranteesOwner reports whether the expression guarantees an
// owner_user = <placeholder> comparison for every matched row. Only AND
// conjunctions and parentheses preserve the guarantee; an owner predicate
// under OR or NOT does not count.
func whereGuaranteesOwner(expr sqlparser.Expr) bool {
	switch e := expr.(type) {
	case *sqlparser.AndExpr:
		return whereGuaranteesOwner(e.Left) || whereGuaranteesOwner(e.Right)
	case *sqlparser.ParenExpr:
		return whereGuaranteesOwner(e.Expr)
	case *sqlparser.ComparisonExpr:
		if e.Operator != sqlparser.EqualStr {
			return false
		}
		col, ok := e.Left.(*sqlparser.ColName)
		if !ok || !col.Name.EqualString(schema.ColumnOwnerUser) {
			return false
		}
		return isPlaceholder(e.Right)
	}
	return false
}

// insertStampsOwnership verifies the insert names owner_user, created_at and
// updated_at, and binds every value through a placeholder.
func insertStampsOwnership(ins *sqlparser.Insert) bool {
	stamped := map[string]bool{}
	for _, col := range ins.Columns {
		stamped[col.Lowered()] = true
	}
	if !stamped[schema.ColumnOwnerUser] || !stamped[schema.ColumnCreatedAt] || !stamped[schema.ColumnUpdatedAt] {
		return false
	}
	if stamped[schema.ColumnID] {
		return false
	}

	rows, ok := ins.Rows.(sqlparser.Values)
	if !ok {
		return false
	}
	for _, row := range rows {
		for _, val := range row {
			if !isPlaceholder(val) {
				return false
			}
		}
	}
	return true
}

func isPlaceholder(expr sqlparser.Expr) bool {
	val, ok := expr.(*sqlparser.SQLVal)
	return ok && val.Type == sqlparser.ValArg
}
