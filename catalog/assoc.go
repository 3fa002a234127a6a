package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/filecat/filecat"
)

// assoc manages a many-to-many association table keyed by a map of
// lookup columns to values on the owning side, with one value column for
// the other side. users_roles and files_datasets both fit this shape.
type assoc struct {
	table    string
	valueCol string
}

// keyOf flattens the lookup map into ordered column and value slices so
// the generated SQL is deterministic.
func keyOf(lookup map[string]any) (cols []string, vals []any) {
	cols = make([]string, 0, len(lookup))
	for col := range lookup {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	vals = make([]any, len(cols))
	for i, col := range cols {
		vals[i] = lookup[col]
	}
	return cols, vals
}

func whereClause(cols []string) string {
	conds := make([]string, len(cols))
	for i, col := range cols {
		conds[i] = fmt.Sprintf("%s = $%d", col, i+1)
	}
	return strings.Join(conds, " and ")
}

// list returns the associated values for the lookup key, ordered.
func (a assoc) list(ctx context.Context, db DB, lookup map[string]any) ([]string, error) {
	cols, args := keyOf(lookup)
	rows, err := db.Query(ctx, fmt.Sprintf(
		"select %s from %s where %s order by %s",
		a.valueCol, a.table, whereClause(cols), a.valueCol), args...)
	if err != nil {
		return nil, filecat.MapStoreError("list "+a.table, err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, filecat.MapStoreError("list "+a.table, err)
		}
		out = append(out, v)
	}
	return out, filecat.MapStoreError("list "+a.table, rows.Err())
}

// add inserts one association; duplicates are no-ops.
func (a assoc) add(ctx context.Context, db DB, lookup map[string]any, value string) error {
	cols, args := keyOf(lookup)
	cols = append(cols, a.valueCol)
	args = append(args, value)
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	_, err := db.Exec(ctx, fmt.Sprintf(
		"insert into %s (%s) values (%s) on conflict do nothing",
		a.table, strings.Join(cols, ", "), strings.Join(placeholders, ", ")), args...)
	return filecat.MapStoreError("add "+a.table, err)
}

// set replaces the association list for the lookup key.
func (a assoc) set(ctx context.Context, db DB, lookup map[string]any, values []string) error {
	cols, args := keyOf(lookup)
	if _, err := db.Exec(ctx, fmt.Sprintf(
		"delete from %s where %s", a.table, whereClause(cols)), args...); err != nil {
		return filecat.MapStoreError("set "+a.table, err)
	}
	for _, value := range values {
		if err := a.add(ctx, db, lookup, value); err != nil {
			return err
		}
	}
	return nil
}

// remove deletes one association; removing a missing one is a no-op.
func (a assoc) remove(ctx context.Context, db DB, lookup map[string]any, value string) error {
	cols, args := keyOf(lookup)
	args = append(args, value)
	_, err := db.Exec(ctx, fmt.Sprintf(
		"delete from %s where %s and %s = $%d",
		a.table, whereClause(cols), a.valueCol, len(args)), args...)
	return filecat.MapStoreError("remove "+a.table, err)
}
