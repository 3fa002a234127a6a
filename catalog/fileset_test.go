package catalog

import (
	"testing"

	"github.com/filecat/filecat"
)

func fids(t *testing.T, s *FileSet) []string {
	t.Helper()
	ids, err := s.FIDs()
	if err != nil {
		t.Fatalf("draining set: %v", err)
	}
	return ids
}

func set(ids ...string) *FileSet {
	files := make([]*filecat.File, len(ids))
	for i, id := range ids {
		files[i] = &filecat.File{FID: id}
	}
	return NewFileSet(files...)
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestUnionFirstSeenWins(t *testing.T) {
	got := fids(t, Union(set("f1", "f2"), set("f2", "f3")))
	if !equalIDs(got, []string{"f1", "f2", "f3"}) {
		t.Errorf("Union = %v, want [f1 f2 f3]", got)
	}
}

func TestUnionPreservesLeftOrder(t *testing.T) {
	got := fids(t, Union(set("f3", "f1"), set("f2", "f1")))
	if !equalIDs(got, []string{"f3", "f1", "f2"}) {
		t.Errorf("Union = %v, want [f3 f1 f2]", got)
	}
}

func TestJoinIntersects(t *testing.T) {
	got := fids(t, Join(set("f1", "f2", "f3"), set("f2", "f3", "f4"), set("f3", "f2")))
	if !equalIDs(got, []string{"f2", "f3"}) {
		t.Errorf("Join = %v, want [f2 f3]", got)
	}
}

func TestJoinEmpty(t *testing.T) {
	if got := fids(t, Join()); len(got) != 0 {
		t.Errorf("Join() = %v, want empty", got)
	}
	if got := fids(t, Join(set("f1"), set())); len(got) != 0 {
		t.Errorf("Join with empty operand = %v, want empty", got)
	}
}

func TestSubtract(t *testing.T) {
	got := fids(t, Subtract(set("f1", "f2", "f3"), set("f2")))
	if !equalIDs(got, []string{"f1", "f3"}) {
		t.Errorf("Subtract = %v, want [f1 f3]", got)
	}
}

func TestCollect(t *testing.T) {
	files, err := set("f1", "f2").Collect()
	if err != nil {
		t.Fatalf("Collect() error: %v", err)
	}
	if len(files) != 2 || files[0].FID != "f1" || files[1].FID != "f2" {
		t.Errorf("Collect() = %v", files)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	s := set("f1")
	s.Close()
	s.Close()
	if s.Next() {
		t.Error("Next() after Close() should be false")
	}
}
