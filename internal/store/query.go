package store

import "slices"

// FilterOp is a comparison applied by a Filter.
type FilterOp int

const (
	FilterEq FilterOp = iota
	FilterIn
)

// Filter restricts a read to records whose field matches.
type Filter struct {
	Field  string
	Op     FilterOp
	Values []any
}

// Eq matches records whose field equals value.
func Eq(field string, value any) Filter {
	return Filter{Field: field, Op: FilterEq, Values: []any{value}}
}

// In matches records whose field equals any of values.
// An In filter with no values matches nothing.
func In[T any](field string, values ...T) Filter {
	vs := make([]any, len(values))
	for i, v := range values {
		vs[i] = v
	}
	return Filter{Field: field, Op: FilterIn, Values: vs}
}

// Order sorts a read by one field.
type Order struct {
	Field string
	Desc  bool
}

// Asc sorts ascending.
func Asc(field string) Order { return Order{Field: field} }

// Desc sorts descending.
func Desc(field string) Order { return Order{Field: field, Desc: true} }

// Query describes a List read. A zero Limit means no limit.
type Query struct {
	Filters    []Filter
	OrderBy    []Order
	Limit      int
	Offset     int
	Projection []string
}

// Fields returns every field the query refers to, for schema checks.
func (q Query) Fields() []string {
	fields := slices.Clone(q.Projection)
	for _, f := range q.Filters {
		fields = append(fields, f.Field)
	}
	for _, o := range q.OrderBy {
		fields = append(fields, o.Field)
	}
	return fields
}
