package catalog

import (
	"context"

	"github.com/filecat/filecat"
)

// Users is the user repository. Role membership is read through the
// users_roles association and managed from the Roles side.
type Users struct {
	c *Catalog
}

var userRoles = assoc{table: "users_roles", valueCol: "role_name"}

// Get fetches one user with authenticators and role names, or nil when
// it does not exist.
func (r *Users) Get(ctx context.Context, username string) (*filecat.User, error) {
	var u filecat.User
	var name, email *string
	err := r.c.db.QueryRow(ctx,
		"select username, name, email, flags from users where username = $1",
		username).Scan(&u.Username, &name, &email, &u.Flags)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, filecat.MapStoreError("get user", err)
	}
	if name != nil {
		u.Name = *name
	}
	if email != nil {
		u.Email = *email
	}

	u.Authenticators = map[string]*filecat.Authenticator{}
	rows, err := r.c.db.Query(ctx,
		"select type, secrets from authenticators where username = $1", username)
	if err != nil {
		return nil, filecat.MapStoreError("get user", err)
	}
	defer rows.Close()
	for rows.Next() {
		var typ string
		var secrets []string
		if err := rows.Scan(&typ, &secrets); err != nil {
			return nil, filecat.MapStoreError("get user", err)
		}
		u.Authenticators[typ] = &filecat.Authenticator{Type: typ, Secrets: secrets}
	}
	if err := rows.Err(); err != nil {
		return nil, filecat.MapStoreError("get user", err)
	}

	u.RoleNames, err = userRoles.list(ctx, r.c.db, map[string]any{"username": username})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Exists reports whether the user exists.
func (r *Users) Exists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.c.db.QueryRow(ctx,
		"select exists (select 1 from users where username = $1)", username).Scan(&exists)
	if err != nil {
		return false, filecat.MapStoreError("user exists", err)
	}
	return exists, nil
}

// Save upserts the user and rewrites their authenticators.
func (r *Users) Save(ctx context.Context, u *filecat.User) error {
	return r.c.withTx(ctx, "save user", func(db DB) error {
		_, err := db.Exec(ctx, `
			insert into users (username, name, email, flags)
				values ($1, $2, $3, $4)
				on conflict (username) do update
					set name = excluded.name,
						email = excluded.email,
						flags = excluded.flags`,
			u.Username, u.Name, u.Email, u.Flags)
		if err != nil {
			return filecat.MapStoreError("save user", err)
		}
		if u.Authenticators == nil {
			return nil
		}
		if _, err := db.Exec(ctx,
			"delete from authenticators where username = $1", u.Username); err != nil {
			return filecat.MapStoreError("save user", err)
		}
		for typ, auth := range u.Authenticators {
			_, err := db.Exec(ctx, `
				insert into authenticators (username, type, secrets)
					values ($1, $2, $3)`,
				u.Username, typ, auth.Secrets)
			if err != nil {
				return filecat.MapStoreError("save user", err)
			}
		}
		return nil
	})
}

// List returns all users without authenticators or role names.
func (r *Users) List(ctx context.Context) ([]*filecat.User, error) {
	rows, err := r.c.db.Query(ctx,
		"select username, name, email, flags from users order by username")
	if err != nil {
		return nil, filecat.MapStoreError("list users", err)
	}
	defer rows.Close()
	var out []*filecat.User
	for rows.Next() {
		var u filecat.User
		var name, email *string
		if err := rows.Scan(&u.Username, &name, &email, &u.Flags); err != nil {
			return nil, filecat.MapStoreError("list users", err)
		}
		if name != nil {
			u.Name = *name
		}
		if email != nil {
			u.Email = *email
		}
		out = append(out, &u)
	}
	return out, filecat.MapStoreError("list users", rows.Err())
}
