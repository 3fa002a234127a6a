package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/filecat/filecat"
)

var fileInsertColumns = []string{
	"id", "namespace", "name", "metadata", "size", "checksums", "creator", "created_timestamp",
}

// CreateMany ingests a batch of files with their parent edges in one
// transaction. Missing fids are generated in place. Batches up to the
// copy threshold go through one multi-row INSERT; larger batches stream
// through the COPY protocol. Parent edges are buffered and written the
// same way after the files.
//
// Any uniqueness collision rolls the whole batch back and surfaces as
// ErrAlreadyExists.
func (r *Files) CreateMany(ctx context.Context, files []*filecat.File, creator string) error {
	if len(files) == 0 {
		return nil
	}
	now := time.Now()
	rows := make([][]any, 0, len(files))
	var edges [][]any
	for _, f := range files {
		if f.FID == "" {
			f.FID = filecat.GenerateFileID()
		}
		if f.Creator == "" {
			f.Creator = creator
		}
		if f.CreatedTimestamp.IsZero() {
			f.CreatedTimestamp = now
		}
		rows = append(rows, []any{
			f.FID, f.Namespace, f.Name, orEmpty(f.Metadata), f.Size,
			orEmptyChecksums(f.Checksums), f.Creator, f.CreatedTimestamp,
		})
		for _, parent := range f.Parents {
			edges = append(edges, []any{parent, f.FID})
		}
	}

	return r.c.withTx(ctx, "bulk ingest", func(db DB) error {
		if err := insertMany(ctx, db, r.c.copyThreshold, "files", fileInsertColumns, rows); err != nil {
			return err
		}
		return insertMany(ctx, db, r.c.copyThreshold, "parent_child",
			[]string{"parent_id", "child_id"}, edges)
	})
}

// insertMany writes rows into table, choosing between a parameterized
// multi-row INSERT (small batches) and COPY (large ones). At exactly the
// threshold the row path is used.
func insertMany(ctx context.Context, db DB, threshold int, table string, columns []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	if len(rows) <= threshold {
		return insertRows(ctx, db, table, columns, rows)
	}
	_, err := db.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
	return filecat.MapStoreError("bulk copy "+table, err)
}

func insertRows(ctx context.Context, db DB, table string, columns []string, rows [][]any) error {
	placeholders := make([]string, len(rows))
	args := make([]any, 0, len(rows)*len(columns))
	n := 1
	for i, row := range rows {
		ph := make([]string, len(columns))
		for j := range columns {
			ph[j] = fmt.Sprintf("$%d", n)
			n++
		}
		placeholders[i] = "(" + strings.Join(ph, ", ") + ")"
		args = append(args, row...)
	}
	sql := fmt.Sprintf("insert into %s (%s) values %s",
		table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
	_, err := db.Exec(ctx, sql, args...)
	return filecat.MapStoreError("bulk insert "+table, err)
}
