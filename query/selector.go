package query

import (
	"strings"

	"github.com/filecat/filecat/internal/sqlgen"
)

// DatasetPattern matches datasets by namespace and a name or SQL LIKE
// pattern.
type DatasetPattern struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
	Wildcard  bool   `json:"wildcard,omitempty"` // Name is a LIKE pattern, not an exact name
}

// DatasetSelector selects a set of datasets: a union over patterns,
// optionally extended with the matched datasets' children (one hop, or
// all transitive descendants), optionally filtered by a metadata
// condition on the datasets themselves.
type DatasetSelector struct {
	Patterns     []DatasetPattern `json:"patterns"`
	WithChildren bool             `json:"with_children,omitempty"`
	Recursively  bool             `json:"recursively,omitempty"` // with WithChildren: all descendants, not one hop
	Having       DNF              `json:"having,omitempty"`      // dataset-metadata filter over the whole union
}

// CompileSelector renders the selector as a subquery yielding
// (namespace, name) rows. Aliases come from the enclosing compilation's
// allocator so the selector can be embedded in a larger statement.
func CompileSelector(sel *DatasetSelector, aliases *sqlgen.Aliases) (string, error) {
	having := len(sel.Having) > 0
	havingAlias := aliases.Next("ds")

	// No patterns select no datasets; compile to a well-formed zero-row
	// subquery rather than an empty string.
	if len(sel.Patterns) == 0 {
		return "select namespace, name, metadata from datasets where false", nil
	}

	metaColumn := "null as metadata"
	if having {
		metaColumn = "metadata"
	}

	var parts []string
	for _, p := range sel.Patterns {
		ns := sqlgen.QuoteString(p.Namespace)
		name := sqlgen.QuoteString(p.Name)

		switch {
		case p.Wildcard:
			parts = append(parts, sqlgen.Sqlf(`
				select namespace, name, %s
					from datasets
					where namespace = %s and name like %s
			`, metaColumn, ns, name))
		case having:
			parts = append(parts, sqlgen.Sqlf(`
				select namespace, name, metadata
					from datasets
					where namespace = %s and name = %s
			`, ns, name))
		default:
			// No table scan needed for an exact pattern without a
			// metadata filter.
			parts = append(parts, sqlgen.Sqlf(
				"select %s as namespace, %s as name, null as metadata", ns, name))
		}

		if !sel.WithChildren {
			continue
		}
		if sel.Recursively {
			d := aliases.Next("ds")
			s := aliases.Next("s")
			parts = append(parts, sqlgen.Sqlf(`
				(
					with recursive subsets as (
						select namespace, name, metadata
							from datasets
							where parent_namespace = %s and parent_name like %s
						union
						select %s.namespace, %s.name, %s.metadata
							from datasets %s
							inner join subsets %s
								on %s.namespace = %s.parent_namespace and %s.name = %s.parent_name
					)
					select distinct namespace, name, metadata from subsets
				)
			`, ns, name, d, d, d, d, s, s, d, s, d))
		} else {
			parts = append(parts, sqlgen.Sqlf(`
				select namespace, name, %s
					from datasets
					where parent_namespace = %s and parent_name like %s
			`, metaColumn, ns, name))
		}
	}

	sql := strings.Join(parts, "\nunion\n")
	if having {
		cond, err := CompileDNF(sel.Having, havingAlias)
		if err != nil {
			return "", err
		}
		sql = sqlgen.Sqlf(`
			select namespace, name
				from (
			%s
				) %s
				where %s
		`, sqlgen.Indent(sql, "\t\t"), havingAlias, cond)
	}
	return sql, nil
}
