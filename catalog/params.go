package catalog

import (
	"context"
	"fmt"

	"github.com/filecat/filecat"
	"github.com/filecat/filecat/metaval"
)

// Params is the parameter-category repository.
type Params struct {
	c *Catalog
}

// Get fetches one category by path, or nil when it does not exist.
func (r *Params) Get(ctx context.Context, path string) (*metaval.ParamCategory, error) {
	row := r.c.db.QueryRow(ctx,
		"select path, owner, restricted, definitions from parameter_categories where path = $1",
		path)
	c, err := scanCategory(row)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, filecat.MapStoreError("get category", err)
	}
	return c, nil
}

func scanCategory(row interface{ Scan(...any) error }) (*metaval.ParamCategory, error) {
	var c metaval.ParamCategory
	var owner *string
	if err := row.Scan(&c.Path, &owner, &c.Restricted, &c.Definitions); err != nil {
		return nil, err
	}
	if owner != nil {
		c.Owner = *owner
	}
	return &c, nil
}

// Save upserts the category.
func (r *Params) Save(ctx context.Context, c *metaval.ParamCategory) error {
	_, err := r.c.db.Exec(ctx, `
		insert into parameter_categories (path, owner, restricted, definitions)
			values ($1, $2, $3, $4)
			on conflict (path) do update
				set owner = excluded.owner,
					restricted = excluded.restricted,
					definitions = excluded.definitions`,
		c.Path, c.Owner, c.Restricted, c.Definitions)
	return filecat.MapStoreError("save category", err)
}

// List returns all categories.
func (r *Params) List(ctx context.Context) ([]*metaval.ParamCategory, error) {
	rows, err := r.c.db.Query(ctx,
		"select path, owner, restricted, definitions from parameter_categories order by path")
	if err != nil {
		return nil, filecat.MapStoreError("list categories", err)
	}
	defer rows.Close()
	var out []*metaval.ParamCategory
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, filecat.MapStoreError("list categories", err)
		}
		out = append(out, c)
	}
	return out, filecat.MapStoreError("list categories", rows.Err())
}

// Delete removes the category.
func (r *Params) Delete(ctx context.Context, path string) error {
	tag, err := r.c.db.Exec(ctx,
		"delete from parameter_categories where path = $1", path)
	if err != nil {
		return filecat.MapStoreError("delete category", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: category %s", filecat.ErrNotFound, path)
	}
	return nil
}

// Validator loads all categories into a metaval.Validator.
func (r *Params) Validator(ctx context.Context) (*metaval.Validator, error) {
	categories, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	return metaval.NewValidator(categories), nil
}

// CategoryForPath returns the deepest stored category covering the
// dotted name, or nil.
func (r *Params) CategoryForPath(ctx context.Context, name string) (*metaval.ParamCategory, error) {
	v, err := r.Validator(ctx)
	if err != nil {
		return nil, err
	}
	return v.CategoryFor(name), nil
}
