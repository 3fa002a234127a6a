package filecat

import (
	"reflect"
	"testing"
	"time"
)

func TestFileToPlainOmitsUnsetFields(t *testing.T) {
	f := &File{
		FID:       "a1b2c3",
		Namespace: "dune",
		Name:      "raw_0001.root",
	}

	got := f.ToPlain()
	want := map[string]any{
		"fid":       "a1b2c3",
		"namespace": "dune",
		"name":      "raw_0001.root",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ToPlain() = %v, want %v", got, want)
	}
	for _, key := range []string{"metadata", "size", "checksums", "parents", "children", "datasets"} {
		if _, ok := got[key]; ok {
			t.Errorf("ToPlain() includes unset field %q", key)
		}
	}
}

func TestFileToPlainFullProjection(t *testing.T) {
	size := int64(1024)
	f := &File{
		FID:       "a1b2c3",
		Namespace: "dune",
		Name:      "raw_0001.root",
		Metadata:  map[string]any{"run": 4242},
		Size:      &size,
		Checksums: map[string]string{"adler32": "deadbeef"},
		Parents:   []string{"p1"},
		Children:  []string{},
		Datasets:  []DatasetRef{{Namespace: "dune", Name: "raw"}},
	}

	got := f.ToPlain()
	if got["size"] != int64(1024) {
		t.Errorf("size = %v, want 1024", got["size"])
	}
	if _, ok := got["metadata"]; !ok {
		t.Errorf("metadata missing from full projection")
	}
	// Empty-but-loaded provenance is still projected.
	if children, ok := got["children"].([]string); !ok || len(children) != 0 {
		t.Errorf("children = %v, want loaded empty list", got["children"])
	}
}

func TestFileAttributes(t *testing.T) {
	f := &File{Metadata: map[string]any{"run": 4242}}

	if !f.HasAttribute("run") {
		t.Errorf("HasAttribute(run) = false")
	}
	if f.HasAttribute("missing") {
		t.Errorf("HasAttribute(missing) = true")
	}
	if got := f.GetAttribute("run", 0); got != 4242 {
		t.Errorf("GetAttribute(run) = %v, want 4242", got)
	}
	if got := f.GetAttribute("missing", "dflt"); got != "dflt" {
		t.Errorf("GetAttribute(missing) = %v, want dflt", got)
	}

	var empty File
	if empty.HasAttribute("run") {
		t.Errorf("HasAttribute on nil metadata = true")
	}
}

func TestFileRef(t *testing.T) {
	byID := ByID("a1b2c3")
	if !byID.IsID() || byID.String() != "a1b2c3" {
		t.Errorf("ByID: IsID=%v String=%q", byID.IsID(), byID.String())
	}

	byName := ByName("dune", "raw_0001.root")
	if byName.IsID() || byName.String() != "dune:raw_0001.root" {
		t.Errorf("ByName: IsID=%v String=%q", byName.IsID(), byName.String())
	}
}

func TestDatasetHasParent(t *testing.T) {
	d := &Dataset{Namespace: "dune", Name: "raw"}
	if d.HasParent() {
		t.Errorf("HasParent() = true for root dataset")
	}
	d.ParentNamespace, d.ParentName = "dune", "all"
	if !d.HasParent() {
		t.Errorf("HasParent() = false with parent set")
	}
}

func TestDatasetToPlain(t *testing.T) {
	created := time.Unix(1700000000, 500000000)
	d := &Dataset{
		Namespace:        "dune",
		Name:             "raw",
		Creator:          "alice",
		CreatedTimestamp: created,
	}

	got := d.ToPlain()
	if got["created_timestamp"] != 1700000000.5 {
		t.Errorf("created_timestamp = %v, want 1700000000.5", got["created_timestamp"])
	}
	// Unloaded metadata projects as an empty dict, not null.
	meta, ok := got["metadata"].(map[string]any)
	if !ok || len(meta) != 0 {
		t.Errorf("metadata = %v, want empty map", got["metadata"])
	}
}

func TestEpoch(t *testing.T) {
	if got := Epoch(time.Time{}); got != 0 {
		t.Errorf("Epoch(zero) = %v, want 0", got)
	}
	if got := Epoch(time.Unix(1700000000, 250000000)); got != 1700000000.25 {
		t.Errorf("Epoch() = %v, want 1700000000.25", got)
	}
}

func TestNamespaceOwnership(t *testing.T) {
	n := &Namespace{Name: "dune", OwnerUser: "alice"}
	if !n.DirectlyOwnedBy("alice") {
		t.Errorf("DirectlyOwnedBy(alice) = false")
	}
	if n.DirectlyOwnedBy("bob") {
		t.Errorf("DirectlyOwnedBy(bob) = true")
	}

	roleOwned := &Namespace{Name: "dune", OwnerRole: "operators"}
	if roleOwned.DirectlyOwnedBy("alice") {
		t.Errorf("DirectlyOwnedBy = true for role-owned namespace")
	}
}
