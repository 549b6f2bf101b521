package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/openshelf/library-system/internal/core/domain"
	"github.com/openshelf/library-system/internal/core/ports"
)

const borrowersCollection = "borrowers"

// BorrowRepository persists the borrow ledger. The admin report is a
// single aggregation with $lookup joins against users and books, so
// paging and filtering happen server side.
type BorrowRepository struct {
	coll *mongo.Collection
}

func NewBorrowRepository(db *mongo.Database) *BorrowRepository {
	return &BorrowRepository{coll: db.Collection(borrowersCollection)}
}

type borrowDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	AccountID    primitive.ObjectID `bson:"userId"`
	BookID       primitive.ObjectID `bson:"bookId"`
	Type         string             `bson:"type"`
	BorrowedDate time.Time          `bson:"borrowedDate"`
	DueDate      time.Time          `bson:"dueDate"`
	ReturnedDate *time.Time         `bson:"returnedDate,omitempty"`
	Fine         int64              `bson:"fine"`
}

func toBorrowDoc(r *domain.BorrowRecord) (borrowDoc, error) {
	accountID, err := primitive.ObjectIDFromHex(r.AccountID)
	if err != nil {
		return borrowDoc{}, fmt.Errorf("borrow record account id %q: %w", r.AccountID, err)
	}
	bookID, err := primitive.ObjectIDFromHex(r.BookID)
	if err != nil {
		return borrowDoc{}, fmt.Errorf("borrow record book id %q: %w", r.BookID, err)
	}
	return borrowDoc{
		AccountID:    accountID,
		BookID:       bookID,
		Type:         string(r.Type),
		BorrowedDate: r.BorrowedDate,
		DueDate:      r.DueDate,
		ReturnedDate: r.ReturnedDate,
		Fine:         r.Fine,
	}, nil
}

func (d borrowDoc) toDomain() *domain.BorrowRecord {
	return &domain.BorrowRecord{
		ID:           d.ID.Hex(),
		AccountID:    d.AccountID.Hex(),
		BookID:       d.BookID.Hex(),
		Type:         domain.BorrowType(d.Type),
		BorrowedDate: d.BorrowedDate,
		DueDate:      d.DueDate,
		ReturnedDate: d.ReturnedDate,
		Fine:         d.Fine,
	}
}

func (r *BorrowRepository) Create(ctx context.Context, record *domain.BorrowRecord) (*domain.BorrowRecord, error) {
	doc, err := toBorrowDoc(record)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("insert borrow record: %w", err)
	}

	created := *record
	created.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return &created, nil
}

func (r *BorrowRepository) FindByID(ctx context.Context, id string) (*domain.BorrowRecord, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrRecordNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc borrowDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, fmt.Errorf("find borrow record: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *BorrowRepository) Update(ctx context.Context, record *domain.BorrowRecord) error {
	oid, err := primitive.ObjectIDFromHex(record.ID)
	if err != nil {
		return domain.ErrRecordNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"type":         string(record.Type),
		"returnedDate": record.ReturnedDate,
		"fine":         record.Fine,
	}}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("update borrow record: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

type reportDoc struct {
	borrowDoc `bson:",inline"`
	Account   []struct {
		Name  string `bson:"name"`
		Email string `bson:"email"`
	} `bson:"account"`
	Book []struct {
		Name   string `bson:"name"`
		Author string `bson:"author"`
	} `bson:"book"`
}

func (r *BorrowRepository) Report(ctx context.Context, filter ports.BorrowFilter) ([]*ports.BorrowReportRow, int64, error) {
	match := bson.M{}
	if filter.Type != "" {
		match["type"] = filter.Type
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	total, err := r.coll.CountDocuments(ctx, match)
	if err != nil {
		return nil, 0, fmt.Errorf("count borrow records: %w", err)
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{{Key: "borrowedDate", Value: -1}}}},
		{{Key: "$skip", Value: int64((filter.Page - 1) * filter.Limit)}},
		{{Key: "$limit", Value: int64(filter.Limit)}},
		{{Key: "$lookup", Value: bson.M{
			"from":         usersCollection,
			"localField":   "userId",
			"foreignField": "_id",
			"as":           "account",
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         booksCollection,
			"localField":   "bookId",
			"foreignField": "_id",
			"as":           "book",
		}}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, 0, fmt.Errorf("borrow report: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []*ports.BorrowReportRow
	for cursor.Next(ctx) {
		var doc reportDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, 0, fmt.Errorf("decode report row: %w", err)
		}
		row := &ports.BorrowReportRow{Record: doc.borrowDoc.toDomain()}
		if len(doc.Account) > 0 {
			row.AccountName = doc.Account[0].Name
			row.AccountEmail = doc.Account[0].Email
		}
		if len(doc.Book) > 0 {
			row.BookName = doc.Book[0].Name
			row.BookAuthor = doc.Book[0].Author
		}
		rows = append(rows, row)
	}
	return rows, total, cursor.Err()
}

func (r *BorrowRepository) FindAll(ctx context.Context) ([]*domain.BorrowRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, exportTimeout)
	defer cancel()

	cursor, err := r.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("find all borrow records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*domain.BorrowRecord
	for cursor.Next(ctx) {
		var doc borrowDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode borrow record: %w", err)
		}
		records = append(records, doc.toDomain())
	}
	return records, cursor.Err()
}

func (r *BorrowRepository) InsertMany(ctx context.Context, records []*domain.BorrowRecord) error {
	if len(records) == 0 {
		return nil
	}

	docs := make([]any, 0, len(records))
	for i, rec := range records {
		doc, err := toBorrowDoc(rec)
		if err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
		docs = append(docs, doc)
	}

	ctx, cancel := context.WithTimeout(ctx, exportTimeout)
	defer cancel()

	if _, err := r.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true)); err != nil {
		return fmt.Errorf("bulk insert borrow records: %w", err)
	}
	return nil
}

// EnsureIndexes creates query indexes on the borrowers collection.
func (r *BorrowRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}}},
		{Keys: bson.D{{Key: "type", Value: 1}, {Key: "borrowedDate", Value: -1}}},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexes)
	return err
}
