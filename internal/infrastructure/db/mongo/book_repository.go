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

const booksCollection = "books"

// BookRepository implements ports.BookRepository. BorrowCopy and
// ReturnCopy are single findOneAndUpdate calls whose update pipelines
// recompute the status field in the same atomic step as the copy-count
// change, so no interleaving can drive the count negative or past
// totalCopies.
type BookRepository struct {
	coll *mongo.Collection
}

func NewBookRepository(db *mongo.Database) *BookRepository {
	return &BookRepository{coll: db.Collection(booksCollection)}
}

type bookDoc struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	Name            string             `bson:"name"`
	Author          string             `bson:"author"`
	Category        string             `bson:"category,omitempty"`
	Description     string             `bson:"description,omitempty"`
	PublisherYear   int                `bson:"publisherYear,omitempty"`
	Rating          int                `bson:"rating"`
	TotalCopies     int                `bson:"totalCopies"`
	AvailableCopies int                `bson:"availableCopies"`
	BorrowPrice     float64            `bson:"borrowPrice"`
	Status          string             `bson:"status"`
	Image           string             `bson:"image,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt"`
}

func toBookDoc(b *domain.Book) bookDoc {
	return bookDoc{
		Name:            b.Name,
		Author:          b.Author,
		Category:        b.Category,
		Description:     b.Description,
		PublisherYear:   b.PublisherYear,
		Rating:          b.Rating,
		TotalCopies:     b.TotalCopies,
		AvailableCopies: b.AvailableCopies,
		BorrowPrice:     b.BorrowPrice,
		Status:          string(b.Status),
		Image:           b.Image,
		CreatedAt:       b.CreatedAt,
	}
}

func (d bookDoc) toDomain() *domain.Book {
	return &domain.Book{
		ID:              d.ID.Hex(),
		Name:            d.Name,
		Author:          d.Author,
		Category:        d.Category,
		Description:     d.Description,
		PublisherYear:   d.PublisherYear,
		Rating:          d.Rating,
		TotalCopies:     d.TotalCopies,
		AvailableCopies: d.AvailableCopies,
		BorrowPrice:     d.BorrowPrice,
		Status:          domain.BookStatus(d.Status),
		Image:           d.Image,
		CreatedAt:       d.CreatedAt,
	}
}

func (r *BookRepository) Create(ctx context.Context, book *domain.Book) (*domain.Book, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.InsertOne(ctx, toBookDoc(book))
	if err != nil {
		return nil, fmt.Errorf("insert book: %w", err)
	}

	created := *book
	created.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return &created, nil
}

func (r *BookRepository) FindByID(ctx context.Context, id string) (*domain.Book, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrBookNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc bookDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrBookNotFound
		}
		return nil, fmt.Errorf("find book: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *BookRepository) List(ctx context.Context, f ports.BookFilter) ([]*domain.Book, int64, error) {
	filter := bson.M{}
	if f.Author != "" {
		filter["author"] = containsRegex(f.Author)
	}
	if f.Category != "" {
		filter["category"] = containsRegex(f.Category)
	}
	if f.MinPrice != nil || f.MaxPrice != nil {
		price := bson.M{}
		if f.MinPrice != nil {
			price["$gte"] = *f.MinPrice
		}
		if f.MaxPrice != nil {
			price["$lte"] = *f.MaxPrice
		}
		filter["borrowPrice"] = price
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count books: %w", err)
	}

	opts := options.Find().
		SetSkip(int64((f.Page - 1) * f.Limit)).
		SetLimit(int64(f.Limit)).
		SetSort(bson.D{{Key: "createdAt", Value: 1}})

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list books: %w", err)
	}
	defer cursor.Close(ctx)

	var books []*domain.Book
	for cursor.Next(ctx) {
		var doc bookDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, 0, fmt.Errorf("decode book: %w", err)
		}
		books = append(books, doc.toDomain())
	}
	return books, total, cursor.Err()
}

func (r *BookRepository) Update(ctx context.Context, id string, u ports.BookUpdate) (*domain.Book, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrBookNotFound
	}

	set := bson.M{}
	setField(set, "name", u.Name)
	setField(set, "author", u.Author)
	setField(set, "category", u.Category)
	setField(set, "description", u.Description)
	setField(set, "image", u.Image)
	if u.PublisherYear != nil {
		set["publisherYear"] = *u.PublisherYear
	}
	if u.Rating != nil {
		set["rating"] = *u.Rating
	}
	if u.TotalCopies != nil {
		set["totalCopies"] = *u.TotalCopies
	}
	if u.AvailableCopies != nil {
		set["availableCopies"] = *u.AvailableCopies
	}
	if u.BorrowPrice != nil {
		set["borrowPrice"] = *u.BorrowPrice
	}
	if u.Status != nil {
		set["status"] = string(*u.Status)
	}
	if len(set) == 0 {
		return r.FindByID(ctx, id)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc bookDoc
	err = r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrBookNotFound
		}
		return nil, fmt.Errorf("update book: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *BookRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrBookNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrBookNotFound
	}
	return nil
}

// BorrowCopy atomically takes one copy, guarded by availableCopies > 0.
// The update pipeline recomputes status from the decremented count in
// the same write.
func (r *BookRepository) BorrowCopy(ctx context.Context, id string) (*domain.Book, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrBookNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"_id": oid, "availableCopies": bson.M{"$gt": 0}}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"availableCopies": bson.M{"$add": bson.A{"$availableCopies", -1}},
			"status": bson.M{"$cond": bson.A{
				bson.M{"$gt": bson.A{"$availableCopies", 1}},
				string(domain.StatusAvailable),
				string(domain.StatusOutOfStock),
			}},
		}}},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc bookDoc
	err = r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err == nil {
		return doc.toDomain(), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("borrow copy: %w", err)
	}

	// No matching document: distinguish a missing book from a depleted one.
	if _, findErr := r.FindByID(ctx, id); findErr != nil {
		return nil, findErr
	}
	return nil, domain.ErrOutOfStock
}

// ReturnCopy atomically gives one copy back, capped at totalCopies, and
// forces status back to available.
func (r *BookRepository) ReturnCopy(ctx context.Context, id string) (*domain.Book, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrBookNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{
		"_id":   oid,
		"$expr": bson.M{"$lt": bson.A{"$availableCopies", "$totalCopies"}},
	}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"availableCopies": bson.M{"$add": bson.A{"$availableCopies", 1}},
			"status":          string(domain.StatusAvailable),
		}}},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc bookDoc
	err = r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err == nil {
		return doc.toDomain(), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("return copy: %w", err)
	}

	// Already at capacity: the count stays put, only status is corrected.
	book, findErr := r.FindByID(ctx, id)
	if findErr != nil {
		return nil, findErr
	}
	if err := r.ForceStatus(ctx, id, domain.StatusAvailable); err != nil {
		return nil, err
	}
	book.Status = domain.StatusAvailable
	return book, nil
}

func (r *BookRepository) ForceStatus(ctx context.Context, id string, status domain.BookStatus) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrBookNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"status": string(status)}})
	if err != nil {
		return fmt.Errorf("force status: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrBookNotFound
	}
	return nil
}

func (r *BookRepository) FindAll(ctx context.Context) ([]*domain.Book, error) {
	ctx, cancel := context.WithTimeout(ctx, exportTimeout)
	defer cancel()

	cursor, err := r.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("find all books: %w", err)
	}
	defer cursor.Close(ctx)

	var books []*domain.Book
	for cursor.Next(ctx) {
		var doc bookDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode book: %w", err)
		}
		books = append(books, doc.toDomain())
	}
	return books, cursor.Err()
}

func (r *BookRepository) InsertMany(ctx context.Context, books []*domain.Book) error {
	if len(books) == 0 {
		return nil
	}

	docs := make([]any, 0, len(books))
	for _, b := range books {
		docs = append(docs, toBookDoc(b))
	}

	ctx, cancel := context.WithTimeout(ctx, exportTimeout)
	defer cancel()

	if _, err := r.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true)); err != nil {
		return fmt.Errorf("bulk insert books: %w", err)
	}
	return nil
}

// EnsureIndexes creates query indexes on the books collection.
func (r *BookRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "author", Value: 1}}},
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "borrowPrice", Value: 1}}},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexes)
	return err
}
