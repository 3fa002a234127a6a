package query

import (
	"strings"
	"testing"

	"github.com/filecat/filecat"
	"github.com/filecat/filecat/internal/sqlgen"
)

func TestSQLForBasicQueryScan(t *testing.T) {
	q := NewBasicFileQuery()
	q.Wheres = And(Cmp(ScalarAttr("run"), "==", 4242))
	q.WithMeta = true

	got, err := SQLForBasicQuery(q, sqlgen.NewAliases())
	if err != nil {
		t.Fatalf("SQLForBasicQuery() error: %v", err)
	}
	expect := "select f_1.id, f_1.namespace, f_1.name, f_1.metadata," +
		" f_1.creator, f_1.created_timestamp, f_1.size, f_1.checksums," +
		" null as parents, null as children" +
		" from files f_1" +
		` where ( f_1.metadata @@ '$."run" == 4242' )`
	if norm(got) != expect {
		t.Errorf("SQLForBasicQuery() =\n%s\nwant:\n%s", norm(got), expect)
	}
}

func TestSQLForBasicQueryEmptyDNFHasNoWhere(t *testing.T) {
	q := NewBasicFileQuery()
	got, err := SQLForBasicQuery(q, sqlgen.NewAliases())
	if err != nil {
		t.Fatalf("SQLForBasicQuery() error: %v", err)
	}
	if strings.Contains(got, "where") {
		t.Errorf("empty DNF must not emit a where clause:\n%s", got)
	}
	if strings.Contains(got, "limit") {
		t.Errorf("NoLimit must not emit a limit clause:\n%s", got)
	}
}

func TestSQLForBasicQueryProjectionFlags(t *testing.T) {
	q := NewBasicFileQuery()
	q.WithProvenance = true

	got, err := SQLForBasicQuery(q, sqlgen.NewAliases())
	if err != nil {
		t.Fatalf("SQLForBasicQuery() error: %v", err)
	}
	n := norm(got)
	if !strings.Contains(n, "from files_with_provenance f_1") {
		t.Errorf("provenance should query the view:\n%s", n)
	}
	if !strings.Contains(n, "f_1.parents, f_1.children") {
		t.Errorf("provenance columns should be projected:\n%s", n)
	}
	if !strings.Contains(n, "null as metadata") {
		t.Errorf("metadata should project as null when not requested:\n%s", n)
	}
}

func TestSQLForBasicQueryLimit(t *testing.T) {
	q := NewBasicFileQuery()
	q.Limit = 10
	got, err := SQLForBasicQuery(q, sqlgen.NewAliases())
	if err != nil {
		t.Fatalf("SQLForBasicQuery() error: %v", err)
	}
	if !strings.HasSuffix(norm(got), "limit 10") {
		t.Errorf("limit clause missing:\n%s", norm(got))
	}
}

func TestSQLForBasicQueryWithSelector(t *testing.T) {
	q := NewBasicFileQuery()
	q.WithMeta = true
	q.Selector = &DatasetSelector{
		Patterns: []DatasetPattern{
			{Namespace: "dune", Name: "raw_%", Wildcard: true},
		},
	}
	q.Wheres = And(Cmp(ScalarAttr("run"), ">", 100))

	got, err := SQLForBasicQuery(q, sqlgen.NewAliases())
	if err != nil {
		t.Fatalf("SQLForBasicQuery() error: %v", err)
	}
	n := norm(got)
	for _, want := range []string{
		"with selected_datasets as (",
		"inner join files_datasets fd_1 on fd_1.file_id = f_1.id",
		"selected_datasets.namespace = fd_1.dataset_namespace",
		"selected_datasets.name = fd_1.dataset_name",
		`where ( f_1.metadata @@ '$."run" > 100' )`,
	} {
		if !strings.Contains(n, want) {
			t.Errorf("join plan missing %q in:\n%s", want, n)
		}
	}
}

func TestSQLForDatasetFiles(t *testing.T) {
	got, err := SQLForDatasetFiles(
		And(Cmp(ScalarAttr("run"), "==", 1)), true, false, 5, sqlgen.NewAliases())
	if err != nil {
		t.Fatalf("SQLForDatasetFiles() error: %v", err)
	}
	n := norm(got)
	for _, want := range []string{
		"inner join files_datasets fd_1 on fd_1.file_id = f_1.id",
		"where fd_1.dataset_namespace = $1 and fd_1.dataset_name = $2",
		`and ( ( f_1.metadata @@ '$."run" == 1' ) )`,
		"limit 5",
	} {
		if !strings.Contains(n, want) {
			t.Errorf("dataset file list missing %q in:\n%s", want, n)
		}
	}
}

func TestSQLForFileList(t *testing.T) {
	got, err := SQLForFileList(
		[]string{"fid1", "fid2"},
		[]filecat.FileRef{filecat.ByName("dune", "a.root")},
		false, false, sqlgen.NewAliases())
	if err != nil {
		t.Fatalf("SQLForFileList() error: %v", err)
	}
	n := norm(got)
	for _, want := range []string{
		"where f_1.id in ('fid1', 'fid2')",
		"union",
		"where (f_2.namespace, f_2.name) in (('dune', 'a.root'))",
	} {
		if !strings.Contains(n, want) {
			t.Errorf("file list missing %q in:\n%s", want, n)
		}
	}
}

func TestSQLForRelationship(t *testing.T) {
	tests := []struct {
		name string
		rel  Relationship
		join string
		cond string
	}{
		{"parents", RelParents, "on f_1.id = pc_1.parent_id", "where pc_1.child_id = any($1)"},
		{"children", RelChildren, "on f_1.id = pc_1.child_id", "where pc_1.parent_id = any($1)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SQLForRelationship(tt.rel, false, false, sqlgen.NewAliases())
			if err != nil {
				t.Fatalf("SQLForRelationship() error: %v", err)
			}
			n := norm(got)
			if !strings.HasPrefix(n, "select distinct") {
				t.Errorf("relationship hop must deduplicate:\n%s", n)
			}
			for _, want := range []string{tt.join, tt.cond} {
				if !strings.Contains(n, want) {
					t.Errorf("missing %q in:\n%s", want, n)
				}
			}
		})
	}

	if _, err := SQLForRelationship("siblings", false, false, sqlgen.NewAliases()); err == nil {
		t.Error("unknown relationship should fail")
	}
}
