package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/filecat/filecat"
)

// Namespaces is the namespace repository.
type Namespaces struct {
	c *Catalog
}

const namespaceColumns = "name, owner_user, owner_role, description, creator, created_timestamp"

func scanNamespace(row interface{ Scan(...any) error }) (*filecat.Namespace, error) {
	var (
		ns          filecat.Namespace
		ownerUser   *string
		ownerRole   *string
		description *string
		creator     *string
		created     *time.Time
	)
	err := row.Scan(&ns.Name, &ownerUser, &ownerRole, &description, &creator, &created)
	if err != nil {
		return nil, err
	}
	if ownerUser != nil {
		ns.OwnerUser = *ownerUser
	}
	if ownerRole != nil {
		ns.OwnerRole = *ownerRole
	}
	if description != nil {
		ns.Description = *description
	}
	if creator != nil {
		ns.Creator = *creator
	}
	if created != nil {
		ns.CreatedTimestamp = *created
	}
	return &ns, nil
}

func ownerColumns(ns *filecat.Namespace) (ownerUser, ownerRole *string) {
	if ns.OwnerUser != "" {
		ownerUser = &ns.OwnerUser
	}
	if ns.OwnerRole != "" {
		ownerRole = &ns.OwnerRole
	}
	return
}

// Get fetches one namespace, or nil when it does not exist.
func (r *Namespaces) Get(ctx context.Context, name string) (*filecat.Namespace, error) {
	row := r.c.db.QueryRow(ctx,
		"select "+namespaceColumns+" from namespaces where name = $1", name)
	ns, err := scanNamespace(row)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, filecat.MapStoreError("get namespace", err)
	}
	return ns, nil
}

// Exists reports whether the namespace exists.
func (r *Namespaces) Exists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.c.db.QueryRow(ctx,
		"select exists (select 1 from namespaces where name = $1)", name).Scan(&exists)
	if err != nil {
		return false, filecat.MapStoreError("namespace exists", err)
	}
	return exists, nil
}

// Create strict-inserts the namespace; an existing name fails with
// ErrAlreadyExists. Exactly one of OwnerUser/OwnerRole must be set (the
// store enforces it).
func (r *Namespaces) Create(ctx context.Context, ns *filecat.Namespace, creator string) error {
	if ns.Creator == "" {
		ns.Creator = creator
	}
	if ns.CreatedTimestamp.IsZero() {
		ns.CreatedTimestamp = time.Now()
	}
	ownerUser, ownerRole := ownerColumns(ns)
	_, err := r.c.db.Exec(ctx, `
		insert into namespaces (name, owner_user, owner_role, description, creator, created_timestamp)
			values ($1, $2, $3, $4, $5, $6)`,
		ns.Name, ownerUser, ownerRole, ns.Description, ns.Creator, ns.CreatedTimestamp)
	return filecat.MapStoreError("create namespace", err)
}

// Save upserts the namespace's ownership and description.
func (r *Namespaces) Save(ctx context.Context, ns *filecat.Namespace, creator string) error {
	if ns.Creator == "" {
		ns.Creator = creator
	}
	if ns.CreatedTimestamp.IsZero() {
		ns.CreatedTimestamp = time.Now()
	}
	ownerUser, ownerRole := ownerColumns(ns)
	_, err := r.c.db.Exec(ctx, `
		insert into namespaces (name, owner_user, owner_role, description, creator, created_timestamp)
			values ($1, $2, $3, $4, $5, $6)
			on conflict (name) do update
				set owner_user = excluded.owner_user,
					owner_role = excluded.owner_role,
					description = excluded.description`,
		ns.Name, ownerUser, ownerRole, ns.Description, ns.Creator, ns.CreatedTimestamp)
	return filecat.MapStoreError("save namespace", err)
}

// List returns all namespaces, by name.
func (r *Namespaces) List(ctx context.Context) ([]*filecat.Namespace, error) {
	rows, err := r.c.db.Query(ctx,
		"select "+namespaceColumns+" from namespaces order by name")
	if err != nil {
		return nil, filecat.MapStoreError("list namespaces", err)
	}
	defer rows.Close()
	var out []*filecat.Namespace
	for rows.Next() {
		ns, err := scanNamespace(rows)
		if err != nil {
			return nil, filecat.MapStoreError("list namespaces", err)
		}
		out = append(out, ns)
	}
	return out, filecat.MapStoreError("list namespaces", rows.Err())
}

// ListOwnedBy returns the namespaces the user owns directly or through a
// role.
func (r *Namespaces) ListOwnedBy(ctx context.Context, user string) ([]*filecat.Namespace, error) {
	rows, err := r.c.db.Query(ctx, `
		select `+namespaceColumns+`
			from namespaces
			where owner_user = $1
				or owner_role in (select role_name from users_roles where username = $1)
			order by name`, user)
	if err != nil {
		return nil, filecat.MapStoreError("list owned namespaces", err)
	}
	defer rows.Close()
	var out []*filecat.Namespace
	for rows.Next() {
		ns, err := scanNamespace(rows)
		if err != nil {
			return nil, filecat.MapStoreError("list owned namespaces", err)
		}
		out = append(out, ns)
	}
	return out, filecat.MapStoreError("list owned namespaces", rows.Err())
}

// ListOwnedByRole returns the namespaces owned by the role.
func (r *Namespaces) ListOwnedByRole(ctx context.Context, role string) ([]*filecat.Namespace, error) {
	rows, err := r.c.db.Query(ctx,
		"select "+namespaceColumns+" from namespaces where owner_role = $1 order by name", role)
	if err != nil {
		return nil, filecat.MapStoreError("list role namespaces", err)
	}
	defer rows.Close()
	var out []*filecat.Namespace
	for rows.Next() {
		ns, err := scanNamespace(rows)
		if err != nil {
			return nil, filecat.MapStoreError("list role namespaces", err)
		}
		out = append(out, ns)
	}
	return out, filecat.MapStoreError("list role namespaces", rows.Err())
}

// OwnedBy reports whether user owns the namespace: directly, or (unless
// direct is set) through membership of the owning role. Admin overrides
// are the caller's concern, not the engine's.
func (r *Namespaces) OwnedBy(ctx context.Context, ns *filecat.Namespace, user string, direct bool) (bool, error) {
	if ns.DirectlyOwnedBy(user) {
		return true, nil
	}
	if direct || ns.OwnerRole == "" {
		return false, nil
	}
	var member bool
	err := r.c.db.QueryRow(ctx,
		"select exists (select 1 from users_roles where role_name = $1 and username = $2)",
		ns.OwnerRole, user).Scan(&member)
	if err != nil {
		return false, filecat.MapStoreError("namespace owned by", err)
	}
	return member, nil
}

// FileCount returns the number of files in the namespace.
func (r *Namespaces) FileCount(ctx context.Context, name string) (int64, error) {
	return r.count(ctx, "select count(*) from files where namespace = $1", name)
}

// DatasetCount returns the number of datasets in the namespace.
func (r *Namespaces) DatasetCount(ctx context.Context, name string) (int64, error) {
	return r.count(ctx, "select count(*) from datasets where namespace = $1", name)
}

// QueryCount returns the number of named queries in the namespace.
func (r *Namespaces) QueryCount(ctx context.Context, name string) (int64, error) {
	return r.count(ctx, "select count(*) from queries where namespace = $1", name)
}

func (r *Namespaces) count(ctx context.Context, sql, name string) (int64, error) {
	var n int64
	if err := r.c.db.QueryRow(ctx, sql, name).Scan(&n); err != nil {
		return 0, filecat.MapStoreError("namespace count", err)
	}
	return n, nil
}

// Delete removes an empty namespace. A namespace still holding files,
// datasets, or queries fails with ErrNamespaceNotEmpty.
func (r *Namespaces) Delete(ctx context.Context, name string) error {
	return r.c.withTx(ctx, "delete namespace", func(db DB) error {
		bound := r.c.clone(db).Namespaces()
		for _, count := range []func(context.Context, string) (int64, error){
			bound.FileCount, bound.DatasetCount, bound.QueryCount,
		} {
			n, err := count(ctx, name)
			if err != nil {
				return err
			}
			if n > 0 {
				return fmt.Errorf("%w: %s", filecat.ErrNamespaceNotEmpty, name)
			}
		}
		tag, err := db.Exec(ctx, "delete from namespaces where name = $1", name)
		if err != nil {
			return filecat.MapStoreError("delete namespace", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: namespace %s", filecat.ErrNotFound, name)
		}
		return nil
	})
}
