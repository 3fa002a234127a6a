package query

import (
	"strings"
	"testing"

	"github.com/filecat/filecat/internal/sqlgen"
)

// norm collapses all whitespace so layout does not matter in SQL
// comparisons.
func norm(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func TestCompileSelectorExactPattern(t *testing.T) {
	sel := &DatasetSelector{
		Patterns: []DatasetPattern{{Namespace: "dune", Name: "raw"}},
	}
	got, err := CompileSelector(sel, sqlgen.NewAliases())
	if err != nil {
		t.Fatalf("CompileSelector() error: %v", err)
	}
	expect := "select 'dune' as namespace, 'raw' as name, null as metadata"
	if norm(got) != expect {
		t.Errorf("CompileSelector() =\n%s\nwant:\n%s", norm(got), expect)
	}
}

func TestCompileSelectorWildcard(t *testing.T) {
	sel := &DatasetSelector{
		Patterns: []DatasetPattern{{Namespace: "dune", Name: "raw_%", Wildcard: true}},
	}
	got, err := CompileSelector(sel, sqlgen.NewAliases())
	if err != nil {
		t.Fatalf("CompileSelector() error: %v", err)
	}
	expect := "select namespace, name, null as metadata" +
		" from datasets" +
		" where namespace = 'dune' and name like 'raw_%'"
	if norm(got) != expect {
		t.Errorf("CompileSelector() =\n%s\nwant:\n%s", norm(got), expect)
	}
}

func TestCompileSelectorWithChildrenOneHop(t *testing.T) {
	sel := &DatasetSelector{
		Patterns:     []DatasetPattern{{Namespace: "root", Name: "%", Wildcard: true}},
		WithChildren: true,
	}
	got, err := CompileSelector(sel, sqlgen.NewAliases())
	if err != nil {
		t.Fatalf("CompileSelector() error: %v", err)
	}
	expect := "select namespace, name, null as metadata" +
		" from datasets" +
		" where namespace = 'root' and name like '%'" +
		" union" +
		" select namespace, name, null as metadata" +
		" from datasets" +
		" where parent_namespace = 'root' and parent_name like '%'"
	if norm(got) != expect {
		t.Errorf("CompileSelector() =\n%s\nwant:\n%s", norm(got), expect)
	}
}

func TestCompileSelectorRecursive(t *testing.T) {
	sel := &DatasetSelector{
		Patterns:     []DatasetPattern{{Namespace: "root", Name: "%", Wildcard: true}},
		WithChildren: true,
		Recursively:  true,
	}
	got, err := CompileSelector(sel, sqlgen.NewAliases())
	if err != nil {
		t.Fatalf("CompileSelector() error: %v", err)
	}
	n := norm(got)
	for _, want := range []string{
		"with recursive subsets as (",
		"where parent_namespace = 'root' and parent_name like '%'",
		"inner join subsets s_1 on s_1.namespace = ds_2.parent_namespace",
		"select distinct namespace, name, metadata from subsets",
	} {
		if !strings.Contains(n, want) {
			t.Errorf("recursive selector missing %q in:\n%s", want, n)
		}
	}
}

func TestCompileSelectorHaving(t *testing.T) {
	sel := &DatasetSelector{
		Patterns: []DatasetPattern{{Namespace: "dune", Name: "raw"}},
		Having:   And(Cmp(ScalarAttr("type"), "==", "mc")),
	}
	got, err := CompileSelector(sel, sqlgen.NewAliases())
	if err != nil {
		t.Fatalf("CompileSelector() error: %v", err)
	}
	n := norm(got)
	// Under a having filter the exact pattern must scan the table so the
	// metadata column is real, and the union is wrapped.
	for _, want := range []string{
		"select namespace, name from (",
		"select namespace, name, metadata from datasets where namespace = 'dune' and name = 'raw'",
		`) ds_1 where ( ds_1.metadata @@ '$."type" == "mc"' )`,
	} {
		if !strings.Contains(n, want) {
			t.Errorf("having selector missing %q in:\n%s", want, n)
		}
	}
}

func TestCompileSelectorAliasesAreLocal(t *testing.T) {
	sel := &DatasetSelector{
		Patterns: []DatasetPattern{{Namespace: "a", Name: "b"}},
		Having:   And(Present("x")),
	}
	first, err := CompileSelector(sel, sqlgen.NewAliases())
	if err != nil {
		t.Fatalf("CompileSelector() error: %v", err)
	}
	second, err := CompileSelector(sel, sqlgen.NewAliases())
	if err != nil {
		t.Fatalf("CompileSelector() error: %v", err)
	}
	if first != second {
		t.Errorf("independent compilations should produce identical SQL:\n%s\nvs:\n%s", first, second)
	}
}

func TestCompileSelectorNoPatterns(t *testing.T) {
	got, err := CompileSelector(&DatasetSelector{}, sqlgen.NewAliases())
	if err != nil {
		t.Fatalf("CompileSelector() error: %v", err)
	}
	want := "select namespace, name, metadata from datasets where false"
	if got != want {
		t.Errorf("CompileSelector(no patterns) = %q, want %q", got, want)
	}

	// The zero-row form stays well-formed when embedded as a subquery.
	wrapped := "select namespace, name from (" + got + ") _sel"
	if !strings.Contains(wrapped, "from (select") {
		t.Errorf("embedding produced malformed SQL: %s", wrapped)
	}
}
