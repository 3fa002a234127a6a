package query

import (
	"fmt"
	"strings"

	"github.com/filecat/filecat"
	"github.com/filecat/filecat/internal/sqlgen"
)

// NoLimit disables the row limit of a query. A limit of 0 is a valid
// query that returns nothing.
const NoLimit = -1

// Relationship optionally maps a query's result files to their
// provenance neighbours.
type Relationship string

const (
	RelNone     Relationship = ""
	RelParents  Relationship = "parents"
	RelChildren Relationship = "children"
)

// BasicFileQuery is a filter over files: an optional dataset selector,
// a metadata condition, projection flags, and a limit. The zero value
// is not useful - construct with NewBasicFileQuery so Limit defaults to
// NoLimit.
type BasicFileQuery struct {
	Selector       *DatasetSelector `json:"selector,omitempty"`
	Wheres         DNF              `json:"wheres,omitempty"`
	WithMeta       bool             `json:"with_metadata,omitempty"`
	WithProvenance bool             `json:"with_provenance,omitempty"`
	Limit          int              `json:"limit"`
	Relationship   Relationship     `json:"relationship,omitempty"`
}

// NewBasicFileQuery returns an unlimited query with no condition.
func NewBasicFileQuery() *BasicFileQuery {
	return &BasicFileQuery{Limit: NoLimit}
}

// FileColumns is the fixed projection shape every file query produces:
// id, namespace, name, metadata, creator, created_timestamp, size,
// checksums, parents, children. Unrequested projections are selected as
// null literals so row scanning is uniform.
const FileColumns = "id, namespace, name, metadata, creator, created_timestamp, size, checksums, parents, children"

// FileProjection renders the projection list for the files table (or
// the provenance view) aliased as alias, with unrequested projections
// replaced by null literals.
func FileProjection(alias string, withMeta, withProvenance bool) string {
	cols := []string{
		alias + ".id",
		alias + ".namespace",
		alias + ".name",
	}
	if withMeta {
		cols = append(cols, alias+".metadata")
	} else {
		cols = append(cols, "null as metadata")
	}
	cols = append(cols,
		alias+".creator",
		alias+".created_timestamp",
		alias+".size",
		alias+".checksums",
	)
	if withProvenance {
		cols = append(cols, alias+".parents", alias+".children")
	} else {
		cols = append(cols, "null as parents", "null as children")
	}
	return strings.Join(cols, ", ")
}

// fileTable picks the base relation: the provenance view aggregates
// parent/child id arrays per file, the plain table is cheaper when they
// are not requested.
func fileTable(withProvenance bool) string {
	if withProvenance {
		return "files_with_provenance"
	}
	return "files"
}

// SQLForBasicQuery compiles the query's base statement. The planner's
// zero-dataset and single-dataset fast paths are taken by the caller
// before this point; here a selector always compiles to the WITH-clause
// join. The relationship hop is a separate statement
// (SQLForRelationship) run over the base result's ids.
func SQLForBasicQuery(q *BasicFileQuery, aliases *sqlgen.Aliases) (string, error) {
	f := aliases.Next("f")
	cond, err := CompileDNF(q.Wheres, f)
	if err != nil {
		return "", err
	}
	where := sqlgen.Optf(cond != "", "where %s", cond)
	limit := sqlgen.Optf(q.Limit >= 0, "limit %d", q.Limit)

	if q.Selector == nil {
		return sqlgen.Sqlf(`
			select %s
				from %s %s
				%s
				%s
		`, FileProjection(f, q.WithMeta, q.WithProvenance), fileTable(q.WithProvenance), f,
			where, limit), nil
	}

	dsSQL, err := CompileSelector(q.Selector, aliases)
	if err != nil {
		return "", err
	}
	fd := aliases.Next("fd")
	return sqlgen.Sqlf(`
		with selected_datasets as (
		%s
		)
		select %s
			from %s %s
			inner join files_datasets %s on %s.file_id = %s.id
			inner join selected_datasets on
				selected_datasets.namespace = %s.dataset_namespace
				and selected_datasets.name = %s.dataset_name
			%s
			%s
	`, sqlgen.Indent(dsSQL, "\t"),
		FileProjection(f, q.WithMeta, q.WithProvenance), fileTable(q.WithProvenance), f,
		fd, fd, f,
		fd, fd,
		where, limit), nil
}

// SQLForDatasetFiles compiles the single-dataset fast path: files of
// one dataset, identified by the $1/$2 namespace and name parameters,
// filtered by cond.
func SQLForDatasetFiles(cond DNF, withMeta, withProvenance bool, limit int, aliases *sqlgen.Aliases) (string, error) {
	f := aliases.Next("f")
	fd := aliases.Next("fd")
	c, err := CompileDNF(cond, f)
	if err != nil {
		return "", err
	}
	return sqlgen.Sqlf(`
		select %s
			from %s %s
			inner join files_datasets %s on %s.file_id = %s.id
			where %s.dataset_namespace = $1 and %s.dataset_name = $2
			%s
			%s
	`, FileProjection(f, withMeta, withProvenance), fileTable(withProvenance), f,
		fd, fd, f,
		fd, fd,
		sqlgen.Optf(c != "", "and ( %s )", c),
		sqlgen.Optf(limit >= 0, "limit %d", limit)), nil
}

// SQLForFileList compiles a lookup of explicitly named files: fids and
// resolved namespace:name pairs, as one union. Either list may be empty;
// both empty is the caller's degenerate case and compiles to "".
func SQLForFileList(fids []string, names []filecat.FileRef, withMeta, withProvenance bool, aliases *sqlgen.Aliases) (string, error) {
	var parts []string

	if len(fids) > 0 {
		f := aliases.Next("f")
		quoted := make([]string, len(fids))
		for i, fid := range fids {
			quoted[i] = sqlgen.QuoteString(fid)
		}
		parts = append(parts, sqlgen.Sqlf(`
			select %s
				from %s %s
				where %s.id in (%s)
		`, FileProjection(f, withMeta, withProvenance), fileTable(withProvenance), f,
			f, strings.Join(quoted, ", ")))
	}

	if len(names) > 0 {
		f := aliases.Next("f")
		pairs := make([]string, len(names))
		for i, ref := range names {
			pairs[i] = fmt.Sprintf("(%s, %s)",
				sqlgen.QuoteString(ref.Namespace), sqlgen.QuoteString(ref.Name))
		}
		parts = append(parts, sqlgen.Sqlf(`
			select %s
				from %s %s
				where (%s.namespace, %s.name) in (%s)
		`, FileProjection(f, withMeta, withProvenance), fileTable(withProvenance), f,
			f, f, strings.Join(pairs, ", ")))
	}

	return strings.Join(parts, "\nunion\n"), nil
}

// SQLForRelationship compiles the provenance hop: given the base
// result's file ids as the $1 array parameter, select their parents or
// children, deduplicated.
func SQLForRelationship(rel Relationship, withMeta, withProvenance bool, aliases *sqlgen.Aliases) (string, error) {
	var selfCol, otherCol string
	switch rel {
	case RelParents:
		selfCol, otherCol = "child_id", "parent_id"
	case RelChildren:
		selfCol, otherCol = "parent_id", "child_id"
	default:
		return "", &filecat.CompileError{Reason: "unknown operator", Detail: "relationship " + string(rel)}
	}
	f := aliases.Next("f")
	pc := aliases.Next("pc")
	return sqlgen.Sqlf(`
		select distinct %s
			from %s %s
			inner join parent_child %s on %s.id = %s.%s
			where %s.%s = any($1)
	`, FileProjection(f, withMeta, withProvenance), fileTable(withProvenance), f,
		pc, f, pc, otherCol,
		pc, selfCol), nil
}
