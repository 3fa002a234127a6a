package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/filecat/filecat"
	"github.com/filecat/filecat/internal/sqlgen"
	"github.com/filecat/filecat/query"
)

// Datasets is the dataset repository.
type Datasets struct {
	c *Catalog
}

const datasetColumns = `namespace, name, parent_namespace, parent_name,
	frozen, monotonic, metadata, creator, created_timestamp, description`

func scanDataset(row interface{ Scan(...any) error }) (*filecat.Dataset, error) {
	var (
		d               filecat.Dataset
		parentNamespace *string
		parentName      *string
		creator         *string
		created         *time.Time
		description     *string
	)
	err := row.Scan(&d.Namespace, &d.Name, &parentNamespace, &parentName,
		&d.Frozen, &d.Monotonic, &d.Metadata, &creator, &created, &description)
	if err != nil {
		return nil, err
	}
	if parentNamespace != nil {
		d.ParentNamespace = *parentNamespace
	}
	if parentName != nil {
		d.ParentName = *parentName
	}
	if creator != nil {
		d.Creator = *creator
	}
	if created != nil {
		d.CreatedTimestamp = *created
	}
	if description != nil {
		d.Description = *description
	}
	return &d, nil
}

// Get fetches one dataset, or nil when it does not exist.
func (r *Datasets) Get(ctx context.Context, namespace, name string) (*filecat.Dataset, error) {
	row := r.c.db.QueryRow(ctx,
		"select "+datasetColumns+" from datasets where namespace = $1 and name = $2",
		namespace, name)
	d, err := scanDataset(row)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, filecat.MapStoreError("get dataset", err)
	}
	return d, nil
}

// Exists reports whether the dataset exists.
func (r *Datasets) Exists(ctx context.Context, namespace, name string) (bool, error) {
	var exists bool
	err := r.c.db.QueryRow(ctx,
		"select exists (select 1 from datasets where namespace = $1 and name = $2)",
		namespace, name).Scan(&exists)
	if err != nil {
		return false, filecat.MapStoreError("dataset exists", err)
	}
	return exists, nil
}

// Save upserts the dataset. A parent reference must name an existing
// dataset, and the parent chain must not loop back to the saved dataset;
// a loop fails with ErrCircularDataset and writes nothing.
func (r *Datasets) Save(ctx context.Context, d *filecat.Dataset, creator string) error {
	if d.Creator == "" {
		d.Creator = creator
	}
	if d.CreatedTimestamp.IsZero() {
		d.CreatedTimestamp = time.Now()
	}
	return r.c.withTx(ctx, "save dataset", func(db DB) error {
		if d.HasParent() {
			if err := r.checkCycle(ctx, db, d); err != nil {
				return err
			}
		}
		var parentNamespace, parentName *string
		if d.HasParent() {
			parentNamespace, parentName = &d.ParentNamespace, &d.ParentName
		}
		_, err := db.Exec(ctx, `
			insert into datasets (namespace, name, parent_namespace, parent_name,
					frozen, monotonic, metadata, creator, created_timestamp, description)
				values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
				on conflict (namespace, name) do update
					set parent_namespace = excluded.parent_namespace,
						parent_name = excluded.parent_name,
						frozen = excluded.frozen,
						monotonic = excluded.monotonic,
						metadata = excluded.metadata,
						description = excluded.description`,
			d.Namespace, d.Name, parentNamespace, parentName,
			d.Frozen, d.Monotonic, orEmpty(d.Metadata), d.Creator,
			d.CreatedTimestamp, d.Description)
		return filecat.MapStoreError("save dataset", err)
	})
}

// checkCycle walks the parent chain from the new parent upward; finding
// the saved dataset on the way means the save would close a loop. The
// walk also verifies the parent exists.
func (r *Datasets) checkCycle(ctx context.Context, db DB, d *filecat.Dataset) error {
	namespace, name := d.ParentNamespace, d.ParentName
	seen := map[filecat.DatasetRef]bool{d.Ref(): true}
	for {
		if seen[filecat.DatasetRef{Namespace: namespace, Name: name}] {
			return fmt.Errorf("%w: %s:%s", filecat.ErrCircularDataset, d.Namespace, d.Name)
		}
		seen[filecat.DatasetRef{Namespace: namespace, Name: name}] = true

		var parentNamespace, parentName *string
		err := db.QueryRow(ctx,
			"select parent_namespace, parent_name from datasets where namespace = $1 and name = $2",
			namespace, name).Scan(&parentNamespace, &parentName)
		if isNoRows(err) {
			if namespace == d.ParentNamespace && name == d.ParentName {
				return fmt.Errorf("%w: parent dataset %s:%s", filecat.ErrNotFound, namespace, name)
			}
			return nil
		}
		if err != nil {
			return filecat.MapStoreError("dataset cycle check", err)
		}
		if parentNamespace == nil || parentName == nil {
			return nil
		}
		namespace, name = *parentNamespace, *parentName
	}
}

// Delete removes the dataset; file memberships cascade away, files stay.
func (r *Datasets) Delete(ctx context.Context, namespace, name string) error {
	tag, err := r.c.db.Exec(ctx,
		"delete from datasets where namespace = $1 and name = $2", namespace, name)
	if err != nil {
		return filecat.MapStoreError("delete dataset", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: dataset %s:%s", filecat.ErrNotFound, namespace, name)
	}
	return nil
}

// AddFile adds one file to the dataset; adding it twice is equivalent to
// once. The dataset must exist.
func (r *Datasets) AddFile(ctx context.Context, ds filecat.DatasetRef, file filecat.FileRef) error {
	return r.AddFiles(ctx, ds, []filecat.FileRef{file})
}

// AddFiles adds files to the dataset in one transaction.
func (r *Datasets) AddFiles(ctx context.Context, ds filecat.DatasetRef, files []filecat.FileRef) error {
	return r.c.withTx(ctx, "add files to dataset", func(db DB) error {
		exists, err := r.c.clone(db).Datasets().Exists(ctx, ds.Namespace, ds.Name)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: dataset %s", filecat.ErrNotFound, ds)
		}
		bound := r.c.clone(db).Files()
		for _, file := range files {
			fid, err := bound.resolveFID(ctx, db, file)
			if err != nil {
				return err
			}
			_, err = db.Exec(ctx, `
				insert into files_datasets (file_id, dataset_namespace, dataset_name)
					values ($1, $2, $3)
					on conflict do nothing`,
				fid, ds.Namespace, ds.Name)
			if err != nil {
				return filecat.MapStoreError("add file to dataset", err)
			}
		}
		return nil
	})
}

// RemoveFile removes the membership; removing a missing one is a no-op.
func (r *Datasets) RemoveFile(ctx context.Context, ds filecat.DatasetRef, file filecat.FileRef) error {
	return r.c.withTx(ctx, "remove file from dataset", func(db DB) error {
		fid, err := r.c.clone(db).Files().resolveFID(ctx, db, file)
		if err != nil {
			return err
		}
		_, err = db.Exec(ctx, `
			delete from files_datasets
				where file_id = $1 and dataset_namespace = $2 and dataset_name = $3`,
			fid, ds.Namespace, ds.Name)
		return filecat.MapStoreError("remove file from dataset", err)
	})
}

// ListFiles streams the dataset's files, optionally filtered by a
// metadata condition and limited.
func (r *Datasets) ListFiles(ctx context.Context, ds filecat.DatasetRef, cond query.DNF, withMeta, withProvenance bool, limit int) (*FileSet, error) {
	if limit == 0 {
		return EmptyFileSet(), nil
	}
	sql, err := query.SQLForDatasetFiles(cond, withMeta, withProvenance, limit, sqlgen.NewAliases())
	if err != nil {
		return nil, err
	}
	rows, err := r.c.db.Query(ctx, sql, ds.Namespace, ds.Name)
	if err != nil {
		return nil, filecat.MapStoreError("list dataset files", err)
	}
	return fileSetFromRows(rows, "list dataset files"), nil
}

// FileCount returns the dataset's membership count.
func (r *Datasets) FileCount(ctx context.Context, ds filecat.DatasetRef) (int64, error) {
	var n int64
	err := r.c.db.QueryRow(ctx, `
		select count(*) from files_datasets
			where dataset_namespace = $1 and dataset_name = $2`,
		ds.Namespace, ds.Name).Scan(&n)
	if err != nil {
		return 0, filecat.MapStoreError("dataset file count", err)
	}
	return n, nil
}

// List returns the datasets of a namespace whose names match the LIKE
// pattern; empty pattern matches all.
func (r *Datasets) List(ctx context.Context, namespace, pattern string) ([]*filecat.Dataset, error) {
	if pattern == "" {
		pattern = "%"
	}
	rows, err := r.c.db.Query(ctx,
		"select "+datasetColumns+` from datasets
			where namespace = $1 and name like $2
			order by namespace, name`,
		namespace, pattern)
	if err != nil {
		return nil, filecat.MapStoreError("list datasets", err)
	}
	defer rows.Close()
	var out []*filecat.Dataset
	for rows.Next() {
		d, err := scanDataset(rows)
		if err != nil {
			return nil, filecat.MapStoreError("list datasets", err)
		}
		out = append(out, d)
	}
	return out, filecat.MapStoreError("list datasets", rows.Err())
}

// ListByCreator returns the datasets of a namespace created by creator.
func (r *Datasets) ListByCreator(ctx context.Context, namespace, creator string) ([]*filecat.Dataset, error) {
	rows, err := r.c.db.Query(ctx,
		"select "+datasetColumns+` from datasets
			where namespace = $1 and creator = $2
			order by namespace, name`,
		namespace, creator)
	if err != nil {
		return nil, filecat.MapStoreError("list datasets", err)
	}
	defer rows.Close()
	var out []*filecat.Dataset
	for rows.Next() {
		d, err := scanDataset(rows)
		if err != nil {
			return nil, filecat.MapStoreError("list datasets", err)
		}
		out = append(out, d)
	}
	return out, filecat.MapStoreError("list datasets", rows.Err())
}

// Children returns the datasets whose parent is ds.
func (r *Datasets) Children(ctx context.Context, ds filecat.DatasetRef) ([]*filecat.Dataset, error) {
	rows, err := r.c.db.Query(ctx,
		"select "+datasetColumns+` from datasets
			where parent_namespace = $1 and parent_name = $2
			order by namespace, name`,
		ds.Namespace, ds.Name)
	if err != nil {
		return nil, filecat.MapStoreError("dataset children", err)
	}
	defer rows.Close()
	var out []*filecat.Dataset
	for rows.Next() {
		d, err := scanDataset(rows)
		if err != nil {
			return nil, filecat.MapStoreError("dataset children", err)
		}
		out = append(out, d)
	}
	return out, filecat.MapStoreError("dataset children", rows.Err())
}

// SelectDatasets evaluates a dataset selector eagerly, returning the
// matched (namespace, name) keys. The planner uses it as its plan-time
// probe.
func (r *Datasets) SelectDatasets(ctx context.Context, sel *query.DatasetSelector) ([]filecat.DatasetRef, error) {
	sql, err := query.CompileSelector(sel, sqlgen.NewAliases())
	if err != nil {
		return nil, err
	}
	rows, err := r.c.db.Query(ctx, "select namespace, name from ("+sql+") _sel")
	if err != nil {
		return nil, filecat.MapStoreError("select datasets", err)
	}
	defer rows.Close()
	var out []filecat.DatasetRef
	for rows.Next() {
		var d filecat.DatasetRef
		if err := rows.Scan(&d.Namespace, &d.Name); err != nil {
			return nil, filecat.MapStoreError("select datasets", err)
		}
		out = append(out, d)
	}
	return out, filecat.MapStoreError("select datasets", rows.Err())
}

// QueryFiles plans and runs a basic file query.
//
// Plan: limit 0 and empty selectors return without touching the store; a
// selector matching exactly one dataset takes the single-dataset path;
// otherwise one statement joins files against the selected datasets. The
// relationship hop, when requested, runs as a second statement over the
// base result's ids.
func (c *Catalog) QueryFiles(ctx context.Context, q *query.BasicFileQuery) (*FileSet, error) {
	if q.Limit == 0 {
		return EmptyFileSet(), nil
	}

	withMeta, withProvenance := q.WithMeta, q.WithProvenance
	if q.Relationship != query.RelNone {
		// The base query only feeds ids into the hop.
		withMeta, withProvenance = false, false
	}

	var base *FileSet
	switch {
	case q.Selector != nil:
		selected, err := c.Datasets().SelectDatasets(ctx, q.Selector)
		if err != nil {
			return nil, err
		}
		switch len(selected) {
		case 0:
			return EmptyFileSet(), nil
		case 1:
			base, err = c.Datasets().ListFiles(ctx, selected[0], q.Wheres, withMeta, withProvenance, q.Limit)
			if err != nil {
				return nil, err
			}
		default:
			base, err = c.runBasicQuery(ctx, q, withMeta, withProvenance)
			if err != nil {
				return nil, err
			}
		}
	default:
		var err error
		base, err = c.runBasicQuery(ctx, q, withMeta, withProvenance)
		if err != nil {
			return nil, err
		}
	}

	if q.Relationship == query.RelNone {
		return base, nil
	}
	return c.relationshipHop(ctx, base, q.Relationship, q.WithMeta, q.WithProvenance)
}

// Parents maps a file set to the distinct provenance parents of its
// members, draining and closing the input set.
func (c *Catalog) Parents(ctx context.Context, fs *FileSet, withMeta, withProvenance bool) (*FileSet, error) {
	return c.relationshipHop(ctx, fs, query.RelParents, withMeta, withProvenance)
}

// Children maps a file set to the distinct provenance children of its
// members, draining and closing the input set.
func (c *Catalog) Children(ctx context.Context, fs *FileSet, withMeta, withProvenance bool) (*FileSet, error) {
	return c.relationshipHop(ctx, fs, query.RelChildren, withMeta, withProvenance)
}

func (c *Catalog) relationshipHop(ctx context.Context, fs *FileSet, rel query.Relationship, withMeta, withProvenance bool) (*FileSet, error) {
	fids, err := fs.FIDs()
	if err != nil {
		return nil, err
	}
	if len(fids) == 0 {
		return EmptyFileSet(), nil
	}
	sql, err := query.SQLForRelationship(rel, withMeta, withProvenance, sqlgen.NewAliases())
	if err != nil {
		return nil, err
	}
	rows, err := c.db.Query(ctx, sql, fids)
	if err != nil {
		return nil, filecat.MapStoreError("relationship query", err)
	}
	return fileSetFromRows(rows, "relationship query"), nil
}

func (c *Catalog) runBasicQuery(ctx context.Context, q *query.BasicFileQuery, withMeta, withProvenance bool) (*FileSet, error) {
	plan := *q
	plan.WithMeta = withMeta
	plan.WithProvenance = withProvenance
	sql, err := query.SQLForBasicQuery(&plan, sqlgen.NewAliases())
	if err != nil {
		return nil, err
	}
	rows, err := c.db.Query(ctx, sql)
	if err != nil {
		return nil, filecat.MapStoreError("basic query", err)
	}
	return fileSetFromRows(rows, "basic query"), nil
}
