package ports

import (
	"context"
	"io"
)

// TransferType names a bulk-transferable collection.
type TransferType string

const (
	TransferUsers     TransferType = "users"
	TransferAdmins    TransferType = "admins"
	TransferBooks     TransferType = "books"
	TransferBorrowers TransferType = "borrowers"
)

// SpreadsheetCodec encodes and decodes tabular data as a spreadsheet
// file. The concrete format (xlsx) is an infrastructure detail.
type SpreadsheetCodec interface {
	// Encode writes header plus rows into a single named sheet.
	Encode(sheet string, header []string, rows [][]any) ([]byte, error)
	// Decode reads the first sheet into one map per row, keyed by the
	// header row. All values are strings.
	Decode(r io.Reader) ([]map[string]string, error)
}

// ExportResult is a ready-to-send spreadsheet attachment.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

// TransferService implements bulk spreadsheet export and import of
// entity collections. Import is fail-the-batch: one malformed row
// aborts the whole file.
type TransferService interface {
	Export(ctx context.Context, t TransferType) (*ExportResult, error)
	Import(ctx context.Context, t TransferType, r io.Reader) (int, error)
}
