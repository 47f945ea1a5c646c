// Package warehouse defines the collaborator boundaries consumed by the
// download pipeline, tabular cleaning and warehouse upload, plus the
// PostgreSQL-backed Uploader used by the load command. Cleaning stays a
// boundary: no concrete Cleaner ships here.
package warehouse

import (
	"context"

	"github.com/rotisserie/eris"
)

// WriteMode controls how UploadTable treats an existing destination.
type WriteMode string

const (
	Replace WriteMode = "replace"
	Append  WriteMode = "append"
	Fail    WriteMode = "fail"
)

// ParseWriteMode validates a user-supplied write mode.
func ParseWriteMode(s string) (WriteMode, error) {
	switch WriteMode(s) {
	case Replace, Append, Fail:
		return WriteMode(s), nil
	}
	return "", eris.Errorf("warehouse: unknown write mode %q", s)
}

// Table is a rectangular dataset exchanged with the collaborators.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Cleaner consumes a raw rectangular dataset and returns a cleaned one
// (column renaming, whitespace/accent normalization, type coercion).
type Cleaner interface {
	Clean(ctx context.Context, raw Table) (Table, error)
}

// Uploader pushes artifacts to the warehouse.
type Uploader interface {
	// UploadFile uploads a local file under the given remote name.
	UploadFile(ctx context.Context, localPath, remoteName string) error

	// UploadTable writes a table to the destination with the given mode.
	UploadTable(ctx context.Context, t Table, destination string, mode WriteMode) error
}
