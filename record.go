package filecat

import (
	"strings"
	"time"
)

// FileRef identifies a file either by fid or by namespace:name.
// Operations accept a FileRef and resolve it once at the top; this
// replaces the original system's habit of accepting "an entity or its
// bare key" and testing types at runtime.
type FileRef struct {
	FID       string
	Namespace string
	Name      string
}

// ByID references a file by its fid.
func ByID(fid string) FileRef { return FileRef{FID: fid} }

// ByName references a file by its namespace:name pair.
func ByName(namespace, name string) FileRef {
	return FileRef{Namespace: namespace, Name: name}
}

// IsID reports whether the reference carries a fid.
func (r FileRef) IsID() bool { return r.FID != "" }

func (r FileRef) String() string {
	if r.IsID() {
		return r.FID
	}
	return r.Namespace + ":" + r.Name
}

// DatasetRef identifies a dataset by its (namespace, name) key.
type DatasetRef struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

func (r DatasetRef) String() string { return r.Namespace + ":" + r.Name }

// File is a catalog record about one file.
//
// Metadata is nil when it was not fetched (queries project null unless
// asked for metadata) and non-nil, possibly empty, once loaded. Parents
// and Children hold fids and are populated only when provenance was
// requested; records never embed other records, so no reference cycles
// can form in memory.
type File struct {
	FID              string
	Namespace        string
	Name             string
	Metadata         map[string]any
	Size             *int64
	Checksums        map[string]string
	Creator          string
	CreatedTimestamp time.Time
	Parents          []string
	Children         []string
	Datasets         []DatasetRef
}

func (f *File) String() string {
	return "[File " + f.FID + " " + f.Namespace + ":" + f.Name + "]"
}

// Ref returns the fid reference for this file.
func (f *File) Ref() FileRef { return ByID(f.FID) }

// HasAttribute reports whether the loaded metadata contains the key.
func (f *File) HasAttribute(name string) bool {
	_, ok := f.Metadata[name]
	return ok
}

// GetAttribute returns the metadata value for name, or def when absent.
func (f *File) GetAttribute(name string, def any) any {
	if v, ok := f.Metadata[name]; ok {
		return v
	}
	return def
}

// ToPlain projects the record into its stable JSON shape. Optional fields
// are omitted when unset so partial projections (no metadata, no
// provenance) round-trip cleanly.
func (f *File) ToPlain() map[string]any {
	out := map[string]any{
		"fid":       f.FID,
		"namespace": f.Namespace,
		"name":      f.Name,
	}
	if f.Checksums != nil {
		out["checksums"] = f.Checksums
	}
	if f.Size != nil {
		out["size"] = *f.Size
	}
	if f.Metadata != nil {
		out["metadata"] = f.Metadata
	}
	if f.Parents != nil {
		out["parents"] = f.Parents
	}
	if f.Children != nil {
		out["children"] = f.Children
	}
	if f.Datasets != nil {
		out["datasets"] = f.Datasets
	}
	return out
}

// Dataset is a named, optionally hierarchical grouping of files.
type Dataset struct {
	Namespace        string
	Name             string
	ParentNamespace  string
	ParentName       string
	Frozen           bool
	Monotonic        bool
	Metadata         map[string]any
	Creator          string
	CreatedTimestamp time.Time
	Description      string
}

func (d *Dataset) String() string { return "Dataset(" + d.Namespace + ":" + d.Name + ")" }

// Ref returns the dataset's (namespace, name) key.
func (d *Dataset) Ref() DatasetRef { return DatasetRef{Namespace: d.Namespace, Name: d.Name} }

// HasParent reports whether the dataset references a parent dataset.
// The parent reference is either fully present or fully absent.
func (d *Dataset) HasParent() bool { return d.ParentNamespace != "" && d.ParentName != "" }

// ToPlain projects the record into its stable JSON shape; the timestamp
// is seconds since epoch as a float.
func (d *Dataset) ToPlain() map[string]any {
	meta := d.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	return map[string]any{
		"namespace":         d.Namespace,
		"name":              d.Name,
		"parent_namespace":  d.ParentNamespace,
		"parent_name":       d.ParentName,
		"metadata":          meta,
		"creator":           d.Creator,
		"created_timestamp": Epoch(d.CreatedTimestamp),
	}
}

// Namespace scopes file and dataset names and carries ownership: exactly
// one of OwnerUser / OwnerRole is set.
type Namespace struct {
	Name             string
	OwnerUser        string
	OwnerRole        string
	Description      string
	Creator          string
	CreatedTimestamp time.Time
}

// DirectlyOwnedBy reports whether user owns the namespace directly.
// Role-based ownership needs the role's member list; see
// catalog.Namespaces.OwnedBy.
func (n *Namespace) DirectlyOwnedBy(user string) bool {
	return n.OwnerUser != "" && n.OwnerUser == user
}

// ToPlain projects the record into its stable JSON shape.
func (n *Namespace) ToPlain() map[string]any {
	return map[string]any{
		"name":              n.Name,
		"owner_user":        n.OwnerUser,
		"owner_role":        n.OwnerRole,
		"description":       n.Description,
		"creator":           n.Creator,
		"created_timestamp": Epoch(n.CreatedTimestamp),
	}
}

// User is a catalog account. Flags is a string of single-letter markers;
// 'a' marks an administrator. The engine itself never consults flags -
// callers decide when admin overrides ownership checks.
type User struct {
	Username       string
	Name           string
	Email          string
	Flags          string
	Authenticators map[string]*Authenticator
	RoleNames      []string
}

func (u *User) String() string {
	return "User(" + u.Username + ", " + u.Name + ", " + u.Email + ", " + u.Flags + ")"
}

// IsAdmin reports whether the user carries the admin flag.
func (u *User) IsAdmin() bool { return strings.ContainsRune(u.Flags, 'a') }

// Role is a named group of users. Membership lives in the users_roles
// association and is managed through catalog.Roles.
type Role struct {
	Name        string
	Description string
}

// NamedQuery is a stored query source with its declared parameters.
type NamedQuery struct {
	Namespace        string
	Name             string
	Source           string
	Parameters       []string
	Metadata         map[string]any
	Creator          string
	CreatedTimestamp time.Time
}

// Epoch converts a timestamp to seconds-since-epoch as a float, the wire
// form used in plain projections. The zero time maps to 0.
func Epoch(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return float64(t.UnixNano()) / 1e9
}
