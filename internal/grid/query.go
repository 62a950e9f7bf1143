package grid

import (
	"strings"

	"github.com/maruel/sheetgrid/internal/errors"
)

// Predicate is one validated filter. ColumnID is a well-formed identifier
// that belongs to the plan's table.
type Predicate struct {
	ColumnID string
	Op       FilterOp
	// Numeric is set when the column compares as a number. Number then holds
	// the operand; otherwise Text does.
	Numeric bool
	Text    string
	Number  float64
}

// OrderKey is one validated sort key.
type OrderKey struct {
	ColumnID string
	Numeric  bool
	Desc     bool
}

// Plan is the typed form of a window query's filters and sort, checked
// against the table's columns. Storage dialects lower it to SQL.
//
// The effective order is Order, then placement key ascending, then row id.
type Plan struct {
	TableID    string
	Predicates []Predicate
	Order      []OrderKey
}

// FastPath reports whether rows can be served by a placement key range scan.
func (p *Plan) FastPath() bool {
	return len(p.Predicates) == 0 && len(p.Order) == 0
}

// Compile validates filters and sorts against cols and returns a plan.
//
// Every column reference must belong to cols. Operators are checked against
// the column type and operands are normalized. Duplicate sort keys on the same
// column keep the first occurrence.
func Compile(tableID string, cols []*Column, filters []Filter, sorts []Sort) (*Plan, error) {
	if !ValidID(tableID) {
		return nil, errors.InvalidIdentifier("table_id", tableID)
	}
	tableID = CanonicalID(tableID)
	byID := make(map[string]*Column, len(cols))
	for _, c := range cols {
		byID[c.ID] = c
	}
	lookup := func(id string) (*Column, error) {
		c := byID[CanonicalID(id)]
		if c == nil {
			return nil, errors.InvalidColumn(id)
		}
		if !ValidID(c.ID) {
			return nil, errors.InvalidIdentifier("column_id", c.ID)
		}
		return c, nil
	}

	p := &Plan{TableID: tableID}
	for _, f := range filters {
		c, err := lookup(f.ColumnID)
		if err != nil {
			return nil, err
		}
		pred, err := compilePredicate(c, f)
		if err != nil {
			return nil, err
		}
		p.Predicates = append(p.Predicates, pred)
	}
	seen := map[string]bool{}
	for _, s := range sorts {
		c, err := lookup(s.ColumnID)
		if err != nil {
			return nil, err
		}
		var desc bool
		switch s.Direction {
		case SortAsc:
		case SortDesc:
			desc = true
		default:
			return nil, errors.BadRequest("invalid sort direction " + string(s.Direction)).WithDetail("column_id", s.ColumnID)
		}
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		p.Order = append(p.Order, OrderKey{ColumnID: c.ID, Numeric: c.Type.Numeric(), Desc: desc})
	}
	return p, nil
}

func compilePredicate(c *Column, f Filter) (Predicate, error) {
	pred := Predicate{ColumnID: c.ID, Op: f.Operator, Numeric: c.Type.Numeric()}
	switch f.Operator {
	case OpIsEmpty, OpIsNotEmpty:
		return pred, nil
	case OpContains, OpDoesNotContain:
		if pred.Numeric {
			return pred, errors.UnsupportedOperator(string(f.Operator), string(c.Type))
		}
	case OpGreaterThan, OpLessThan:
		if !pred.Numeric {
			return pred, errors.UnsupportedOperator(string(f.Operator), string(c.Type))
		}
	case OpIs, OpIsNot:
	default:
		return pred, errors.UnsupportedOperator(string(f.Operator), string(c.Type))
	}
	if f.Value == nil {
		return pred, errors.MalformedFilterValue(c.ID, "value is required")
	}
	if pred.Numeric {
		n, ok := NumberOf(f.Value)
		if !ok {
			return pred, errors.MalformedFilterValue(c.ID, "value is not a finite number")
		}
		pred.Number = n
		return pred, nil
	}
	s := stringOf(f.Value)
	if strings.TrimSpace(s) == "" {
		return pred, errors.MalformedFilterValue(c.ID, "value is empty")
	}
	pred.Text = s
	return pred, nil
}
