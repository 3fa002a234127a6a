package catalog

import (
	"context"

	"github.com/filecat/filecat"
)

// Roles is the role repository; it also manages the users_roles
// membership association.
type Roles struct {
	c *Catalog
}

var roleMembers = assoc{table: "users_roles", valueCol: "username"}

// Get fetches one role, or nil when it does not exist.
func (r *Roles) Get(ctx context.Context, name string) (*filecat.Role, error) {
	var role filecat.Role
	var description *string
	err := r.c.db.QueryRow(ctx,
		"select name, description from roles where name = $1", name).
		Scan(&role.Name, &description)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, filecat.MapStoreError("get role", err)
	}
	if description != nil {
		role.Description = *description
	}
	return &role, nil
}

// Save upserts the role.
func (r *Roles) Save(ctx context.Context, role *filecat.Role) error {
	_, err := r.c.db.Exec(ctx, `
		insert into roles (name, description)
			values ($1, $2)
			on conflict (name) do update set description = excluded.description`,
		role.Name, role.Description)
	return filecat.MapStoreError("save role", err)
}

// List returns all roles.
func (r *Roles) List(ctx context.Context) ([]*filecat.Role, error) {
	rows, err := r.c.db.Query(ctx, "select name, description from roles order by name")
	if err != nil {
		return nil, filecat.MapStoreError("list roles", err)
	}
	defer rows.Close()
	var out []*filecat.Role
	for rows.Next() {
		var role filecat.Role
		var description *string
		if err := rows.Scan(&role.Name, &description); err != nil {
			return nil, filecat.MapStoreError("list roles", err)
		}
		if description != nil {
			role.Description = *description
		}
		out = append(out, &role)
	}
	return out, filecat.MapStoreError("list roles", rows.Err())
}

// Members returns the role's member usernames, ordered.
func (r *Roles) Members(ctx context.Context, name string) ([]string, error) {
	return roleMembers.list(ctx, r.c.db, map[string]any{"role_name": name})
}

// AddMember adds a user to the role; adding twice is equivalent to once.
func (r *Roles) AddMember(ctx context.Context, name, username string) error {
	return roleMembers.add(ctx, r.c.db, map[string]any{"role_name": name}, username)
}

// SetMembers replaces the role's member list in one transaction.
func (r *Roles) SetMembers(ctx context.Context, name string, usernames []string) error {
	return r.c.withTx(ctx, "set role members", func(db DB) error {
		return roleMembers.set(ctx, db, map[string]any{"role_name": name}, usernames)
	})
}

// RemoveMember removes a user from the role; removing a non-member is a
// no-op.
func (r *Roles) RemoveMember(ctx context.Context, name, username string) error {
	return roleMembers.remove(ctx, r.c.db, map[string]any{"role_name": name}, username)
}

// HasMember reports role membership.
func (r *Roles) HasMember(ctx context.Context, name, username string) (bool, error) {
	var member bool
	err := r.c.db.QueryRow(ctx,
		"select exists (select 1 from users_roles where role_name = $1 and username = $2)",
		name, username).Scan(&member)
	if err != nil {
		return false, filecat.MapStoreError("role has member", err)
	}
	return member, nil
}
