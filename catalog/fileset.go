package catalog

import (
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/filecat/filecat"
)

// FileSet is a lazy finite sequence of file records. Query results
// stream from an open cursor; Close releases it, and the owning
// transaction stays open until the set is closed or exhausted.
//
//	fs, err := cat.QueryFiles(ctx, q)
//	if err != nil { ... }
//	defer fs.Close()
//	for fs.Next() {
//	    use(fs.File())
//	}
//	if err := fs.Err(); err != nil { ... }
//
// Sets compose with Union, Join, and Subtract; all three are by file-ID
// and preserve the leftmost operand's order.
type FileSet struct {
	src     fileSource
	current *filecat.File
	err     error
	closed  bool
}

// fileSource yields records one at a time; (nil, nil) marks exhaustion.
type fileSource interface {
	next() (*filecat.File, error)
	close()
}

// Next advances to the next record. It returns false at the end of the
// set or on error; check Err after the loop.
func (s *FileSet) Next() bool {
	if s.closed || s.err != nil {
		return false
	}
	f, err := s.src.next()
	if err != nil {
		s.err = err
		s.Close()
		return false
	}
	if f == nil {
		s.Close()
		return false
	}
	s.current = f
	return true
}

// File returns the record at the current position.
func (s *FileSet) File() *filecat.File { return s.current }

// Err returns the first error encountered while streaming.
func (s *FileSet) Err() error { return s.err }

// Close releases the underlying cursor. Safe to call more than once.
func (s *FileSet) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.src.close()
}

// Collect drains the set into a slice and closes it.
func (s *FileSet) Collect() ([]*filecat.File, error) {
	defer s.Close()
	var out []*filecat.File
	for s.Next() {
		out = append(out, s.File())
	}
	return out, s.Err()
}

// FIDs drains the set into the list of file ids and closes it.
func (s *FileSet) FIDs() ([]string, error) {
	defer s.Close()
	var out []string
	for s.Next() {
		out = append(out, s.File().FID)
	}
	return out, s.Err()
}

// NewFileSet builds an in-memory set from records, in order.
func NewFileSet(files ...*filecat.File) *FileSet {
	return &FileSet{src: &sliceSource{files: files}}
}

// EmptyFileSet is a set with no records; limit-zero and zero-dataset
// query plans return it without a store round trip.
func EmptyFileSet() *FileSet { return NewFileSet() }

type sliceSource struct {
	files []*filecat.File
	pos   int
}

func (s *sliceSource) next() (*filecat.File, error) {
	if s.pos >= len(s.files) {
		return nil, nil
	}
	f := s.files[s.pos]
	s.pos++
	return f, nil
}

func (s *sliceSource) close() {}

// rowsSource streams from a pgx cursor, scanning the fixed file
// projection shape.
type rowsSource struct {
	rows pgx.Rows
	op   string
}

func fileSetFromRows(rows pgx.Rows, op string) *FileSet {
	return &FileSet{src: &rowsSource{rows: rows, op: op}}
}

func (s *rowsSource) next() (*filecat.File, error) {
	if !s.rows.Next() {
		if err := s.rows.Err(); err != nil {
			return nil, filecat.MapStoreError(s.op, err)
		}
		return nil, nil
	}
	f, err := scanFile(s.rows)
	if err != nil {
		return nil, filecat.MapStoreError(s.op, err)
	}
	return f, nil
}

func (s *rowsSource) close() { s.rows.Close() }

// scanFile reads one row of the fixed projection (query.FileColumns
// order). Unrequested projections arrive as SQL nulls and leave the
// corresponding fields nil.
func scanFile(row pgx.Row) (*filecat.File, error) {
	var (
		f         filecat.File
		namespace *string
		name      *string
		metadata  []byte
		creator   *string
		created   *time.Time
		checksums []byte
		parents   []string
		children  []string
	)
	err := row.Scan(&f.FID, &namespace, &name, &metadata,
		&creator, &created, &f.Size, &checksums, &parents, &children)
	if err != nil {
		return nil, err
	}
	if namespace != nil {
		f.Namespace = *namespace
	}
	if name != nil {
		f.Name = *name
	}
	if creator != nil {
		f.Creator = *creator
	}
	if created != nil {
		f.CreatedTimestamp = *created
	}
	if metadata != nil {
		if err := json.Unmarshal(metadata, &f.Metadata); err != nil {
			return nil, err
		}
	}
	if checksums != nil {
		if err := json.Unmarshal(checksums, &f.Checksums); err != nil {
			return nil, err
		}
	}
	f.Parents = parents
	f.Children = children
	return &f, nil
}

// Union merges sets by file-ID, first seen wins: all of the first set in
// its order, then unseen records of the second, and so on. Fully lazy.
func Union(sets ...*FileSet) *FileSet {
	return &FileSet{src: &unionSource{sets: sets, seen: map[string]bool{}}}
}

type unionSource struct {
	sets []*FileSet
	pos  int
	seen map[string]bool
}

func (s *unionSource) next() (*filecat.File, error) {
	for s.pos < len(s.sets) {
		set := s.sets[s.pos]
		for set.Next() {
			f := set.File()
			if s.seen[f.FID] {
				continue
			}
			s.seen[f.FID] = true
			return f, nil
		}
		if err := set.Err(); err != nil {
			return nil, err
		}
		s.pos++
	}
	return nil, nil
}

func (s *unionSource) close() {
	for _, set := range s.sets {
		set.Close()
	}
}

// Join intersects sets by file-ID, streaming the first set in order and
// materializing the rest into ID sets on first use.
func Join(sets ...*FileSet) *FileSet {
	if len(sets) == 0 {
		return EmptyFileSet()
	}
	return &FileSet{src: &joinSource{left: sets[0], rest: sets[1:]}}
}

type joinSource struct {
	left   *FileSet
	rest   []*FileSet
	filter []map[string]bool
	primed bool
}

func (s *joinSource) next() (*filecat.File, error) {
	if !s.primed {
		s.primed = true
		for _, set := range s.rest {
			ids, err := set.FIDs()
			if err != nil {
				return nil, err
			}
			m := make(map[string]bool, len(ids))
			for _, id := range ids {
				m[id] = true
			}
			s.filter = append(s.filter, m)
		}
	}
outer:
	for s.left.Next() {
		f := s.left.File()
		for _, m := range s.filter {
			if !m[f.FID] {
				continue outer
			}
		}
		return f, nil
	}
	return nil, s.left.Err()
}

func (s *joinSource) close() {
	s.left.Close()
	for _, set := range s.rest {
		set.Close()
	}
}

// Subtract removes right's file-IDs from left, streaming left in order
// and materializing right on first use.
func Subtract(left, right *FileSet) *FileSet {
	return &FileSet{src: &subtractSource{left: left, right: right}}
}

type subtractSource struct {
	left   *FileSet
	right  *FileSet
	drop   map[string]bool
	primed bool
}

func (s *subtractSource) next() (*filecat.File, error) {
	if !s.primed {
		s.primed = true
		ids, err := s.right.FIDs()
		if err != nil {
			return nil, err
		}
		s.drop = make(map[string]bool, len(ids))
		for _, id := range ids {
			s.drop[id] = true
		}
	}
	for s.left.Next() {
		f := s.left.File()
		if s.drop[f.FID] {
			continue
		}
		return f, nil
	}
	return nil, s.left.Err()
}

func (s *subtractSource) close() {
	s.left.Close()
	s.right.Close()
}
