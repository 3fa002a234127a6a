package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/filecat/filecat"
)

// Queries is the named-query repository: stored query sources with their
// declared parameters, keyed by (namespace, name).
type Queries struct {
	c *Catalog
}

const queryColumns = "namespace, name, source, parameters, metadata, creator, created_timestamp"

func scanQuery(row interface{ Scan(...any) error }) (*filecat.NamedQuery, error) {
	var (
		q       filecat.NamedQuery
		source  *string
		creator *string
		created *time.Time
	)
	err := row.Scan(&q.Namespace, &q.Name, &source, &q.Parameters,
		&q.Metadata, &creator, &created)
	if err != nil {
		return nil, err
	}
	if source != nil {
		q.Source = *source
	}
	if creator != nil {
		q.Creator = *creator
	}
	if created != nil {
		q.CreatedTimestamp = *created
	}
	return &q, nil
}

// Get fetches one named query, or nil when it does not exist.
func (r *Queries) Get(ctx context.Context, namespace, name string) (*filecat.NamedQuery, error) {
	row := r.c.db.QueryRow(ctx,
		"select "+queryColumns+" from queries where namespace = $1 and name = $2",
		namespace, name)
	q, err := scanQuery(row)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, filecat.MapStoreError("get query", err)
	}
	return q, nil
}

// Resolve fetches the query's source text, failing with ErrNotFound when
// the query does not exist.
func (r *Queries) Resolve(ctx context.Context, namespace, name string) (string, error) {
	q, err := r.Get(ctx, namespace, name)
	if err != nil {
		return "", err
	}
	if q == nil {
		return "", fmt.Errorf("%w: query %s:%s", filecat.ErrNotFound, namespace, name)
	}
	return q.Source, nil
}

// Save upserts the named query.
func (r *Queries) Save(ctx context.Context, q *filecat.NamedQuery, creator string) error {
	if q.Creator == "" {
		q.Creator = creator
	}
	if q.CreatedTimestamp.IsZero() {
		q.CreatedTimestamp = time.Now()
	}
	_, err := r.c.db.Exec(ctx, `
		insert into queries (namespace, name, source, parameters, metadata, creator, created_timestamp)
			values ($1, $2, $3, $4, $5, $6, $7)
			on conflict (namespace, name) do update
				set source = excluded.source,
					parameters = excluded.parameters,
					metadata = excluded.metadata`,
		q.Namespace, q.Name, q.Source, q.Parameters, orEmpty(q.Metadata),
		q.Creator, q.CreatedTimestamp)
	return filecat.MapStoreError("save query", err)
}

// List returns the named queries of a namespace.
func (r *Queries) List(ctx context.Context, namespace string) ([]*filecat.NamedQuery, error) {
	rows, err := r.c.db.Query(ctx,
		"select "+queryColumns+" from queries where namespace = $1 order by name",
		namespace)
	if err != nil {
		return nil, filecat.MapStoreError("list queries", err)
	}
	defer rows.Close()
	var out []*filecat.NamedQuery
	for rows.Next() {
		q, err := scanQuery(rows)
		if err != nil {
			return nil, filecat.MapStoreError("list queries", err)
		}
		out = append(out, q)
	}
	return out, filecat.MapStoreError("list queries", rows.Err())
}

// Delete removes the named query.
func (r *Queries) Delete(ctx context.Context, namespace, name string) error {
	tag, err := r.c.db.Exec(ctx,
		"delete from queries where namespace = $1 and name = $2", namespace, name)
	if err != nil {
		return filecat.MapStoreError("delete query", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: query %s:%s", filecat.ErrNotFound, namespace, name)
	}
	return nil
}
