package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/filecat/filecat"
	"github.com/filecat/filecat/internal/sqlgen"
	"github.com/filecat/filecat/query"
)

// Files is the file repository.
type Files struct {
	c *Catalog
}

// resolveFID resolves a FileRef to a fid, looking up namespace:name
// references. Returns ErrNotFound when the reference names no file.
func (r *Files) resolveFID(ctx context.Context, db DB, ref filecat.FileRef) (string, error) {
	if ref.IsID() {
		return ref.FID, nil
	}
	var fid string
	err := db.QueryRow(ctx,
		"select id from files where namespace = $1 and name = $2",
		ref.Namespace, ref.Name).Scan(&fid)
	if isNoRows(err) {
		return "", fmt.Errorf("%w: file %s", filecat.ErrNotFound, ref)
	}
	if err != nil {
		return "", filecat.MapStoreError("resolve file", err)
	}
	return fid, nil
}

// Get fetches one file record, or nil when it does not exist.
// Metadata and provenance are loaded only when asked for; the other
// fields are always present.
func (r *Files) Get(ctx context.Context, ref filecat.FileRef, withMeta, withProvenance bool) (*filecat.File, error) {
	aliases := sqlgen.NewAliases()
	var (
		sql string
		err error
	)
	if ref.IsID() {
		sql, err = query.SQLForFileList([]string{ref.FID}, nil, withMeta, withProvenance, aliases)
	} else {
		sql, err = query.SQLForFileList(nil, []filecat.FileRef{ref}, withMeta, withProvenance, aliases)
	}
	if err != nil {
		return nil, err
	}
	rows, err := r.c.db.Query(ctx, sql)
	if err != nil {
		return nil, filecat.MapStoreError("get file", err)
	}
	fs := fileSetFromRows(rows, "get file")
	defer fs.Close()
	if !fs.Next() {
		return nil, fs.Err()
	}
	return fs.File(), nil
}

// Exists reports whether the referenced file exists.
func (r *Files) Exists(ctx context.Context, ref filecat.FileRef) (bool, error) {
	var (
		exists bool
		err    error
	)
	if ref.IsID() {
		err = r.c.db.QueryRow(ctx,
			"select exists (select 1 from files where id = $1)", ref.FID).Scan(&exists)
	} else {
		err = r.c.db.QueryRow(ctx,
			"select exists (select 1 from files where namespace = $1 and name = $2)",
			ref.Namespace, ref.Name).Scan(&exists)
	}
	if err != nil {
		return false, filecat.MapStoreError("file exists", err)
	}
	return exists, nil
}

// Create strict-inserts one file. A missing fid is generated; metadata
// and checksums default to empty objects. Colliding with an existing fid
// or namespace:name fails with ErrAlreadyExists. Parent edges listed on
// the record are created in the same transaction.
func (r *Files) Create(ctx context.Context, f *filecat.File, creator string) error {
	if f.FID == "" {
		f.FID = filecat.GenerateFileID()
	}
	if f.Creator == "" {
		f.Creator = creator
	}
	if f.CreatedTimestamp.IsZero() {
		f.CreatedTimestamp = time.Now()
	}
	return r.c.withTx(ctx, "create file", func(db DB) error {
		_, err := db.Exec(ctx, `
			insert into files (id, namespace, name, metadata, size, checksums, creator, created_timestamp)
				values ($1, $2, $3, $4, $5, $6, $7, $8)`,
			f.FID, f.Namespace, f.Name, orEmpty(f.Metadata), f.Size,
			orEmptyChecksums(f.Checksums), f.Creator, f.CreatedTimestamp)
		if err != nil {
			return filecat.MapStoreError("create file", err)
		}
		for _, parent := range f.Parents {
			if err := addEdge(ctx, db, parent, f.FID); err != nil {
				return err
			}
		}
		return nil
	})
}

// Update rewrites the file's mutable fields: metadata, size, checksums.
// The record must carry a fid. Missing files fail with ErrNotFound.
func (r *Files) Update(ctx context.Context, f *filecat.File) error {
	tag, err := r.c.db.Exec(ctx, `
		update files
			set metadata = coalesce($2, metadata),
				size = coalesce($3, size),
				checksums = coalesce($4, checksums)
			where id = $1`,
		f.FID, f.Metadata, f.Size, f.Checksums)
	if err != nil {
		return filecat.MapStoreError("update file", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: file %s", filecat.ErrNotFound, f.FID)
	}
	return nil
}

// Rename moves the file to a new namespace:name. The new pair must be
// free; colliding fails with ErrAlreadyExists.
func (r *Files) Rename(ctx context.Context, ref filecat.FileRef, namespace, name string) error {
	return r.c.withTx(ctx, "rename file", func(db DB) error {
		fid, err := r.resolveFID(ctx, db, ref)
		if err != nil {
			return err
		}
		tag, err := db.Exec(ctx,
			"update files set namespace = $2, name = $3 where id = $1",
			fid, namespace, name)
		if err != nil {
			return filecat.MapStoreError("rename file", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: file %s", filecat.ErrNotFound, ref)
		}
		return nil
	})
}

// UpdateMany applies Update to each record inside one transaction.
func (r *Files) UpdateMany(ctx context.Context, files []*filecat.File) error {
	return r.c.withTx(ctx, "update files", func(db DB) error {
		bound := r.c.clone(db)
		for _, f := range files {
			if err := bound.Files().Update(ctx, f); err != nil {
				return err
			}
		}
		return nil
	})
}

// FetchMetadata loads just the metadata object of one file.
func (r *Files) FetchMetadata(ctx context.Context, ref filecat.FileRef) (map[string]any, error) {
	fid, err := r.resolveFID(ctx, r.c.db, ref)
	if err != nil {
		return nil, err
	}
	var meta map[string]any
	err = r.c.db.QueryRow(ctx, "select metadata from files where id = $1", fid).Scan(&meta)
	if isNoRows(err) {
		return nil, fmt.Errorf("%w: file %s", filecat.ErrNotFound, ref)
	}
	if err != nil {
		return nil, filecat.MapStoreError("fetch metadata", err)
	}
	return meta, nil
}

// List streams the files of one namespace, optionally limited.
func (r *Files) List(ctx context.Context, namespace string, withMeta bool, limit int) (*FileSet, error) {
	if limit == 0 {
		return EmptyFileSet(), nil
	}
	f := sqlgen.NewAliases().Next("f")
	sql := sqlgen.Sqlf(`
		select %s
			from files %s
			where %s.namespace = $1
			%s
	`, query.FileProjection(f, withMeta, false), f, f,
		sqlgen.Optf(limit > 0, "limit %d", limit))
	rows, err := r.c.db.Query(ctx, sql, namespace)
	if err != nil {
		return nil, filecat.MapStoreError("list files", err)
	}
	return fileSetFromRows(rows, "list files"), nil
}

// Lookup streams the files named by the given references (any mix of fid
// and namespace:name) without resolving them one by one.
func (r *Files) Lookup(ctx context.Context, refs []filecat.FileRef, withMeta, withProvenance bool) (*FileSet, error) {
	var fids []string
	var names []filecat.FileRef
	for _, ref := range refs {
		if ref.IsID() {
			fids = append(fids, ref.FID)
		} else {
			names = append(names, ref)
		}
	}
	if len(fids) == 0 && len(names) == 0 {
		return EmptyFileSet(), nil
	}
	sql, err := query.SQLForFileList(fids, names, withMeta, withProvenance, sqlgen.NewAliases())
	if err != nil {
		return nil, err
	}
	rows, err := r.c.db.Query(ctx, sql)
	if err != nil {
		return nil, filecat.MapStoreError("lookup files", err)
	}
	return fileSetFromRows(rows, "lookup files"), nil
}

// AddParent records parent as a provenance parent of child.
// Adding an existing edge is a no-op.
func (r *Files) AddParent(ctx context.Context, child, parent filecat.FileRef) error {
	return r.c.withTx(ctx, "add parent", func(db DB) error {
		childID, err := r.resolveFID(ctx, db, child)
		if err != nil {
			return err
		}
		parentID, err := r.resolveFID(ctx, db, parent)
		if err != nil {
			return err
		}
		return addEdge(ctx, db, parentID, childID)
	})
}

// AddChild records child as a provenance child of parent.
func (r *Files) AddChild(ctx context.Context, parent, child filecat.FileRef) error {
	return r.AddParent(ctx, child, parent)
}

// AddParents records every given parent of child in one transaction.
func (r *Files) AddParents(ctx context.Context, child filecat.FileRef, parents []filecat.FileRef) error {
	return r.c.withTx(ctx, "add parents", func(db DB) error {
		childID, err := r.resolveFID(ctx, db, child)
		if err != nil {
			return err
		}
		for _, parent := range parents {
			parentID, err := r.resolveFID(ctx, db, parent)
			if err != nil {
				return err
			}
			if err := addEdge(ctx, db, parentID, childID); err != nil {
				return err
			}
		}
		return nil
	})
}

// RemoveParent removes the provenance edge; removing a missing edge is a
// no-op.
func (r *Files) RemoveParent(ctx context.Context, child, parent filecat.FileRef) error {
	return r.c.withTx(ctx, "remove parent", func(db DB) error {
		childID, err := r.resolveFID(ctx, db, child)
		if err != nil {
			return err
		}
		parentID, err := r.resolveFID(ctx, db, parent)
		if err != nil {
			return err
		}
		_, err = db.Exec(ctx,
			"delete from parent_child where parent_id = $1 and child_id = $2",
			parentID, childID)
		return filecat.MapStoreError("remove parent", err)
	})
}

// RemoveChild removes the provenance edge from the parent's side.
func (r *Files) RemoveChild(ctx context.Context, parent, child filecat.FileRef) error {
	return r.RemoveParent(ctx, child, parent)
}

// SetParents replaces the child's parent set.
func (r *Files) SetParents(ctx context.Context, child filecat.FileRef, parents []filecat.FileRef) error {
	return r.c.withTx(ctx, "set parents", func(db DB) error {
		childID, err := r.resolveFID(ctx, db, child)
		if err != nil {
			return err
		}
		if _, err := db.Exec(ctx,
			"delete from parent_child where child_id = $1", childID); err != nil {
			return filecat.MapStoreError("set parents", err)
		}
		for _, parent := range parents {
			parentID, err := r.resolveFID(ctx, db, parent)
			if err != nil {
				return err
			}
			if err := addEdge(ctx, db, parentID, childID); err != nil {
				return err
			}
		}
		return nil
	})
}

// Datasets lists the datasets the file belongs to.
func (r *Files) Datasets(ctx context.Context, ref filecat.FileRef) ([]filecat.DatasetRef, error) {
	fid, err := r.resolveFID(ctx, r.c.db, ref)
	if err != nil {
		return nil, err
	}
	rows, err := r.c.db.Query(ctx, `
		select dataset_namespace, dataset_name
			from files_datasets
			where file_id = $1
			order by dataset_namespace, dataset_name`, fid)
	if err != nil {
		return nil, filecat.MapStoreError("file datasets", err)
	}
	defer rows.Close()
	var out []filecat.DatasetRef
	for rows.Next() {
		var d filecat.DatasetRef
		if err := rows.Scan(&d.Namespace, &d.Name); err != nil {
			return nil, filecat.MapStoreError("file datasets", err)
		}
		out = append(out, d)
	}
	return out, filecat.MapStoreError("file datasets", rows.Err())
}

// Delete removes the file; its provenance edges and dataset memberships
// cascade away with it.
func (r *Files) Delete(ctx context.Context, ref filecat.FileRef) error {
	return r.c.withTx(ctx, "delete file", func(db DB) error {
		fid, err := r.resolveFID(ctx, db, ref)
		if err != nil {
			return err
		}
		tag, err := db.Exec(ctx, "delete from files where id = $1", fid)
		if err != nil {
			return filecat.MapStoreError("delete file", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: file %s", filecat.ErrNotFound, ref)
		}
		return nil
	})
}

func addEdge(ctx context.Context, db DB, parentID, childID string) error {
	_, err := db.Exec(ctx, `
		insert into parent_child (parent_id, child_id)
			values ($1, $2)
			on conflict do nothing`,
		parentID, childID)
	return filecat.MapStoreError("add provenance edge", err)
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func orEmptyChecksums(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
