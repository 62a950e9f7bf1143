package storage

import (
	"fmt"
	"strings"

	"github.com/maruel/sheetgrid/internal/grid"
)

// lowered is a plan rendered for one dialect.
type lowered struct {
	where   string
	args    []any
	orderBy string
}

// lowerPlan renders p's predicates and order. Column keys are inlined; every
// operand is a bind parameter.
func lowerPlan(d dialect, p *grid.Plan) (*lowered, error) {
	l := &lowered{}
	conds := []string{"table_id = ?"}
	l.args = append(l.args, p.TableID)
	for _, pred := range p.Predicates {
		c, args, err := lowerPredicate(d, pred)
		if err != nil {
			return nil, err
		}
		conds = append(conds, c)
		l.args = append(l.args, args...)
	}
	l.where = strings.Join(conds, " AND ")

	keys := make([]string, 0, len(p.Order)+2)
	for _, k := range p.Order {
		expr := d.sortExpr(k.ColumnID)
		if k.Numeric {
			expr = numExpr(d, k.ColumnID)
		}
		dir := "ASC"
		if k.Desc {
			dir = "DESC"
		}
		keys = append(keys, expr+" "+dir+" NULLS LAST")
	}
	keys = append(keys, "idx ASC", "id ASC")
	l.orderBy = strings.Join(keys, ", ")
	return l, nil
}

func lowerPredicate(d dialect, p grid.Predicate) (string, []any, error) {
	t := d.textExpr(p.ColumnID)
	switch p.Op {
	case grid.OpIsEmpty:
		return "trim(coalesce(" + t + ", '')) = ''", nil, nil
	case grid.OpIsNotEmpty:
		return "trim(coalesce(" + t + ", '')) <> ''", nil, nil
	}
	if p.Numeric {
		n := numExpr(d, p.ColumnID)
		var op string
		switch p.Op {
		case grid.OpIs:
			op = "="
		case grid.OpIsNot:
			op = "<>"
		case grid.OpGreaterThan:
			op = ">"
		case grid.OpLessThan:
			op = "<"
		default:
			return "", nil, fmt.Errorf("operator %s cannot be lowered for numbers", p.Op)
		}
		return n + " " + op + " ?", []any{p.Number}, nil
	}
	switch p.Op {
	case grid.OpContains:
		return d.likeExpr(t), []any{likePattern(p.Text)}, nil
	case grid.OpDoesNotContain:
		return "(" + t + " IS NULL OR NOT " + d.likeExpr(t) + ")", []any{likePattern(p.Text)}, nil
	case grid.OpIs:
		return d.foldExpr(t) + " = " + d.foldExpr("?"), []any{p.Text}, nil
	case grid.OpIsNot:
		return "(" + t + " IS NULL OR " + d.foldExpr(t) + " <> " + d.foldExpr("?") + ")", []any{p.Text}, nil
	default:
		return "", nil, fmt.Errorf("operator %s cannot be lowered for text", p.Op)
	}
}

// likePattern returns a pattern matching s as a substring, with LIKE
// metacharacters escaped.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
