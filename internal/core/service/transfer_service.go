package service

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/openshelf/library-system/internal/core/domain"
	"github.com/openshelf/library-system/internal/core/ports"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// TransferService implements bulk spreadsheet export/import for the four
// entity collections. Import is fail-the-batch: the first malformed row
// aborts the file and nothing is inserted.
type TransferService struct {
	accounts ports.AccountRepository
	books    ports.BookRepository
	records  ports.BorrowRepository
	codec    ports.SpreadsheetCodec
	log      zerolog.Logger
}

func NewTransferService(
	accounts ports.AccountRepository,
	books ports.BookRepository,
	records ports.BorrowRepository,
	codec ports.SpreadsheetCodec,
	log zerolog.Logger,
) *TransferService {
	return &TransferService{accounts: accounts, books: books, records: records, codec: codec, log: log}
}

func (s *TransferService) Export(ctx context.Context, t ports.TransferType) (*ports.ExportResult, error) {
	var (
		header []string
		rows   [][]any
		err    error
	)

	switch t {
	case ports.TransferUsers:
		header, rows, err = s.accountRows(ctx, domain.RoleUser)
	case ports.TransferAdmins:
		header, rows, err = s.accountRows(ctx, domain.RoleAdmin)
	case ports.TransferBooks:
		header, rows, err = s.bookRows(ctx)
	case ports.TransferBorrowers:
		header, rows, err = s.borrowerRows(ctx)
	default:
		return nil, domain.ErrInvalidTransferType
	}
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", t, err)
	}

	data, err := s.codec.Encode(string(t), header, rows)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", t, err)
	}

	s.log.Info().Str("type", string(t)).Int("rows", len(rows)).Msg("collection exported")
	return &ports.ExportResult{
		Filename:    string(t) + ".xlsx",
		ContentType: xlsxContentType,
		Data:        data,
	}, nil
}

func (s *TransferService) Import(ctx context.Context, t ports.TransferType, r io.Reader) (int, error) {
	rows, err := s.codec.Decode(r)
	if err != nil {
		return 0, fmt.Errorf("decode %s: %w", t, err)
	}

	switch t {
	case ports.TransferUsers:
		err = s.importAccounts(ctx, domain.RoleUser, rows)
	case ports.TransferAdmins:
		err = s.importAccounts(ctx, domain.RoleAdmin, rows)
	case ports.TransferBooks:
		err = s.importBooks(ctx, rows)
	case ports.TransferBorrowers:
		err = s.importBorrowers(ctx, rows)
	default:
		return 0, domain.ErrInvalidTransferType
	}
	if err != nil {
		return 0, fmt.Errorf("import %s: %w", t, err)
	}

	s.log.Info().Str("type", string(t)).Int("rows", len(rows)).Msg("collection imported")
	return len(rows), nil
}

var accountHeader = []string{"role", "name", "email", "password", "phone", "address", "image", "isActive", "isBanned", "createdAt"}

func (s *TransferService) accountRows(ctx context.Context, role domain.Role) ([]string, [][]any, error) {
	accounts, err := s.accounts.FindAll(ctx, role)
	if err != nil {
		return nil, nil, err
	}

	rows := make([][]any, 0, len(accounts))
	for _, a := range accounts {
		rows = append(rows, []any{
			string(a.Role), a.Name, a.Email, a.PasswordHash, a.Phone, a.Address,
			a.Image, a.IsActive, a.IsBanned, a.CreatedAt.Format(time.RFC3339),
		})
	}
	return accountHeader, rows, nil
}

var bookHeader = []string{"name", "author", "category", "description", "publisherYear", "rating", "totalCopies", "availableCopies", "borrowPrice", "status", "image", "createdAt"}

func (s *TransferService) bookRows(ctx context.Context) ([]string, [][]any, error) {
	books, err := s.books.FindAll(ctx)
	if err != nil {
		return nil, nil, err
	}

	rows := make([][]any, 0, len(books))
	for _, b := range books {
		rows = append(rows, []any{
			b.Name, b.Author, b.Category, b.Description, b.PublisherYear, b.Rating,
			b.TotalCopies, b.AvailableCopies, b.BorrowPrice, string(b.Status),
			b.Image, b.CreatedAt.Format(time.RFC3339),
		})
	}
	return bookHeader, rows, nil
}

var borrowerHeader = []string{"userId", "bookId", "type", "borrowedDate", "dueDate", "returnedDate", "fine"}

func (s *TransferService) borrowerRows(ctx context.Context) ([]string, [][]any, error) {
	records, err := s.records.FindAll(ctx)
	if err != nil {
		return nil, nil, err
	}

	rows := make([][]any, 0, len(records))
	for _, rec := range records {
		returned := ""
		if rec.ReturnedDate != nil {
			returned = rec.ReturnedDate.Format(time.RFC3339)
		}
		rows = append(rows, []any{
			rec.AccountID, rec.BookID, string(rec.Type),
			rec.BorrowedDate.Format(time.RFC3339), rec.DueDate.Format(time.RFC3339),
			returned, rec.Fine,
		})
	}
	return borrowerHeader, rows, nil
}

func (s *TransferService) importAccounts(ctx context.Context, role domain.Role, rows []map[string]string) error {
	accounts := make([]*domain.Account, 0, len(rows))
	for i, row := range rows {
		if row["name"] == "" || row["email"] == "" {
			return fmt.Errorf("row %d: name and email are required", i+1)
		}
		createdAt, err := parseTime(row["createdAt"])
		if err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
		accounts = append(accounts, &domain.Account{
			Role:         role,
			Name:         row["name"],
			Email:        row["email"],
			PasswordHash: row["password"],
			Phone:        row["phone"],
			Address:      row["address"],
			Image:        row["image"],
			IsActive:     parseBool(row["isActive"], true),
			IsBanned:     parseBool(row["isBanned"], false),
			CreatedAt:    createdAt,
		})
	}
	return s.accounts.InsertMany(ctx, role, accounts)
}

func (s *TransferService) importBooks(ctx context.Context, rows []map[string]string) error {
	books := make([]*domain.Book, 0, len(rows))
	for i, row := range rows {
		if row["name"] == "" || row["author"] == "" {
			return fmt.Errorf("row %d: name and author are required", i+1)
		}
		total, err := strconv.Atoi(orZero(row["totalCopies"]))
		if err != nil {
			return fmt.Errorf("row %d: totalCopies: %w", i+1, err)
		}
		available, err := strconv.Atoi(orZero(row["availableCopies"]))
		if err != nil {
			return fmt.Errorf("row %d: availableCopies: %w", i+1, err)
		}
		price, err := strconv.ParseFloat(orZero(row["borrowPrice"]), 64)
		if err != nil {
			return fmt.Errorf("row %d: borrowPrice: %w", i+1, err)
		}
		year, err := strconv.Atoi(orZero(row["publisherYear"]))
		if err != nil {
			return fmt.Errorf("row %d: publisherYear: %w", i+1, err)
		}
		rating, err := strconv.Atoi(orZero(row["rating"]))
		if err != nil {
			return fmt.Errorf("row %d: rating: %w", i+1, err)
		}
		createdAt, err := parseTime(row["createdAt"])
		if err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}

		book := &domain.Book{
			Name:            row["name"],
			Author:          row["author"],
			Category:        row["category"],
			Description:     row["description"],
			PublisherYear:   year,
			Rating:          rating,
			TotalCopies:     total,
			AvailableCopies: available,
			BorrowPrice:     price,
			Image:           row["image"],
			CreatedAt:       createdAt,
		}
		if book.Rating == 0 {
			book.Rating = domain.DefaultRating
		}
		book.RefreshStatus()
		books = append(books, book)
	}
	return s.books.InsertMany(ctx, books)
}

func (s *TransferService) importBorrowers(ctx context.Context, rows []map[string]string) error {
	records := make([]*domain.BorrowRecord, 0, len(rows))
	for i, row := range rows {
		if row["userId"] == "" || row["bookId"] == "" {
			return fmt.Errorf("row %d: userId and bookId are required", i+1)
		}
		borrowed, err := parseTime(row["borrowedDate"])
		if err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
		due, err := parseTime(row["dueDate"])
		if err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
		fine, err := strconv.ParseInt(orZero(row["fine"]), 10, 64)
		if err != nil {
			return fmt.Errorf("row %d: fine: %w", i+1, err)
		}

		record := &domain.BorrowRecord{
			AccountID:    row["userId"],
			BookID:       row["bookId"],
			Type:         domain.BorrowType(row["type"]),
			BorrowedDate: borrowed,
			DueDate:      due,
			Fine:         fine,
		}
		if raw := row["returnedDate"]; raw != "" {
			returned, err := parseTime(raw)
			if err != nil {
				return fmt.Errorf("row %d: %w", i+1, err)
			}
			record.ReturnedDate = &returned
		}
		records = append(records, record)
	}
	return s.records.InsertMany(ctx, records)
}

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q", raw)
	}
	return t, nil
}

func parseBool(raw string, fallback bool) bool {
	if raw == "" {
		return fallback
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return b
}

func orZero(raw string) string {
	if raw == "" {
		return "0"
	}
	return raw
}
