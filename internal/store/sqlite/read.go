package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/devoverflow/overflow-server/internal/store"
)

// Get returns one record by id.
func (s *Store) Get(ctx context.Context, coll store.Collection, id string, projection ...string) (store.Record, error) {
	cols, err := columns(coll, projection)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", joinQuoted(cols), quote(string(coll)))
	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", coll, id, err)
	}
	defer rows.Close()

	records, err := scanRecords(rows, cols)
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", coll, id, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s/%s: %w", coll, id, store.ErrNotFound)
	}
	return records[0], nil
}

// List returns the records matching q.
func (s *Store) List(ctx context.Context, coll store.Collection, q store.Query) ([]store.Record, error) {
	if err := coll.CheckFields(q.Fields()...); err != nil {
		return nil, err
	}
	cols, err := columns(coll, q.Projection)
	if err != nil {
		return nil, err
	}

	where, args, empty := whereClause(q.Filters)
	if empty {
		return []store.Record{}, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s%s", joinQuoted(cols), quote(string(coll)), where)
	if len(q.OrderBy) > 0 {
		orders := make([]string, len(q.OrderBy))
		for i, o := range q.OrderBy {
			dir := "ASC"
			if o.Desc {
				dir = "DESC"
			}
			orders[i] = quote(o.Field) + " " + dir
		}
		sb.WriteString(" ORDER BY " + strings.Join(orders, ", "))
	}
	if q.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, q.Limit)
		if q.Offset > 0 {
			sb.WriteString(" OFFSET ?")
			args = append(args, q.Offset)
		}
	} else if q.Offset > 0 {
		sb.WriteString(" LIMIT -1 OFFSET ?")
		args = append(args, q.Offset)
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", coll, err)
	}
	defer rows.Close()

	records, err := scanRecords(rows, cols)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", coll, err)
	}
	return records, nil
}

// Count returns the number of records matching every filter.
func (s *Store) Count(ctx context.Context, coll store.Collection, filters ...store.Filter) (int, error) {
	q := store.Query{Filters: filters}
	if err := coll.CheckFields(q.Fields()...); err != nil {
		return 0, err
	}

	where, args, empty := whereClause(filters)
	if empty {
		return 0, nil
	}

	var n int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", quote(string(coll)), where)
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("count %s: %w", coll, err)
	}
	return n, nil
}

// columns resolves a projection; the id is always selected.
func columns(coll store.Collection, projection []string) ([]string, error) {
	if len(projection) == 0 {
		if !coll.Valid() {
			return nil, coll.CheckFields()
		}
		return coll.Fields(), nil
	}
	if err := coll.CheckFields(projection...); err != nil {
		return nil, err
	}
	cols := slices.Clone(projection)
	if !slices.Contains(cols, store.FieldID) {
		cols = append([]string{store.FieldID}, cols...)
	}
	return cols, nil
}

// whereClause renders filters joined by AND. empty reports an IN filter
// with no values, which can match nothing.
func whereClause(filters []store.Filter) (clause string, args []any, empty bool) {
	if len(filters) == 0 {
		return "", nil, false
	}

	parts := make([]string, 0, len(filters))
	for _, f := range filters {
		switch f.Op {
		case store.FilterIn:
			if len(f.Values) == 0 {
				return "", nil, true
			}
			parts = append(parts, fmt.Sprintf("%s IN (%s)", quote(f.Field), placeholders(len(f.Values))))
		default:
			parts = append(parts, quote(f.Field)+" = ?")
		}
		for _, v := range f.Values {
			args = append(args, sqlValue(v))
		}
	}
	return " WHERE " + strings.Join(parts, " AND "), args, false
}

func scanRecords(rows *sql.Rows, cols []string) ([]store.Record, error) {
	var records []store.Record
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		rec := make(store.Record, len(cols))
		for i, c := range cols {
			if b, ok := values[i].([]byte); ok {
				rec[c] = string(b)
			} else {
				rec[c] = values[i]
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func joinQuoted(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quote(c)
	}
	return strings.Join(quoted, ", ")
}
