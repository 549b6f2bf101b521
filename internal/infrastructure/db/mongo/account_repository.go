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

const (
	usersCollection  = "users"
	adminsCollection = "admins"
)

// AccountRepository implements ports.AccountRepository over the two
// account collections. Field names match the original document layout so
// existing data and spreadsheet round-trips keep working.
type AccountRepository struct {
	db *mongo.Database
}

func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{db: db}
}

type accountDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Role      string             `bson:"role"`
	Name      string             `bson:"name"`
	Email     string             `bson:"email"`
	Password  string             `bson:"password"` // bcrypt hash
	Phone     string             `bson:"phone,omitempty"`
	Image     string             `bson:"image,omitempty"`
	Address   string             `bson:"address,omitempty"`
	IsActive  bool               `bson:"isActive"`
	IsBanned  bool               `bson:"isBanned"`
	CreatedAt time.Time          `bson:"createdAt"`
}

func (r *AccountRepository) coll(role domain.Role) *mongo.Collection {
	if role == domain.RoleAdmin {
		return r.db.Collection(adminsCollection)
	}
	return r.db.Collection(usersCollection)
}

func toAccountDoc(a *domain.Account) accountDoc {
	return accountDoc{
		Role:      string(a.Role),
		Name:      a.Name,
		Email:     a.Email,
		Password:  a.PasswordHash,
		Phone:     a.Phone,
		Image:     a.Image,
		Address:   a.Address,
		IsActive:  a.IsActive,
		IsBanned:  a.IsBanned,
		CreatedAt: a.CreatedAt,
	}
}

func (d accountDoc) toDomain() *domain.Account {
	return &domain.Account{
		ID:           d.ID.Hex(),
		Role:         domain.Role(d.Role),
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.Password,
		Phone:        d.Phone,
		Image:        d.Image,
		Address:      d.Address,
		IsActive:     d.IsActive,
		IsBanned:     d.IsBanned,
		CreatedAt:    d.CreatedAt,
	}
}

func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll(account.Role).InsertOne(ctx, toAccountDoc(account))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrEmailTaken
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}

	created := *account
	created.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return &created, nil
}

func (r *AccountRepository) FindByID(ctx context.Context, role domain.Role, id string) (*domain.Account, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrAccountNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc accountDoc
	if err := r.coll(role).FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *AccountRepository) FindByEmail(ctx context.Context, role domain.Role, email string) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc accountDoc
	if err := r.coll(role).FindOne(ctx, bson.M{"email": email}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account by email: %w", err)
	}
	return doc.toDomain(), nil
}

// containsRegex builds a case-insensitive substring matcher.
func containsRegex(value string) primitive.Regex {
	return primitive.Regex{Pattern: regexQuote(value), Options: "i"}
}

func (r *AccountRepository) List(ctx context.Context, role domain.Role, f ports.AccountFilter) ([]*domain.Account, int64, error) {
	filter := bson.M{}
	if f.Name != "" {
		filter["name"] = containsRegex(f.Name)
	}
	if f.Email != "" {
		filter["email"] = containsRegex(f.Email)
	}
	if f.Phone != "" {
		filter["phone"] = containsRegex(f.Phone)
	}
	if f.Address != "" && role == domain.RoleAdmin {
		filter["address"] = containsRegex(f.Address)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	coll := r.coll(role)
	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count accounts: %w", err)
	}

	opts := options.Find().
		SetSkip(int64((f.Page - 1) * f.Limit)).
		SetLimit(int64(f.Limit)).
		SetSort(bson.D{{Key: "createdAt", Value: 1}})

	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list accounts: %w", err)
	}
	defer cursor.Close(ctx)

	var accounts []*domain.Account
	for cursor.Next(ctx) {
		var doc accountDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, 0, fmt.Errorf("decode account: %w", err)
		}
		accounts = append(accounts, doc.toDomain())
	}
	return accounts, total, cursor.Err()
}

func (r *AccountRepository) Update(ctx context.Context, role domain.Role, id string, u ports.AccountUpdate) (*domain.Account, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrAccountNotFound
	}

	set := bson.M{}
	setField(set, "name", u.Name)
	setField(set, "email", u.Email)
	setField(set, "password", u.PasswordHash)
	setField(set, "phone", u.Phone)
	setField(set, "address", u.Address)
	setField(set, "image", u.Image)
	if u.IsActive != nil {
		set["isActive"] = *u.IsActive
	}
	if u.IsBanned != nil {
		set["isBanned"] = *u.IsBanned
	}
	if len(set) == 0 {
		return r.FindByID(ctx, role, id)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc accountDoc
	err = r.coll(role).FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrEmailTaken
		}
		return nil, fmt.Errorf("update account: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *AccountRepository) Delete(ctx context.Context, role domain.Role, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrAccountNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll(role).DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) FindAll(ctx context.Context, role domain.Role) ([]*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, exportTimeout)
	defer cancel()

	cursor, err := r.coll(role).Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("find all accounts: %w", err)
	}
	defer cursor.Close(ctx)

	var accounts []*domain.Account
	for cursor.Next(ctx) {
		var doc accountDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode account: %w", err)
		}
		accounts = append(accounts, doc.toDomain())
	}
	return accounts, cursor.Err()
}

func (r *AccountRepository) InsertMany(ctx context.Context, role domain.Role, accounts []*domain.Account) error {
	if len(accounts) == 0 {
		return nil
	}

	docs := make([]any, 0, len(accounts))
	for _, a := range accounts {
		a.Role = role
		docs = append(docs, toAccountDoc(a))
	}

	ctx, cancel := context.WithTimeout(ctx, exportTimeout)
	defer cancel()

	// Ordered insert: the batch stops at the first bad row.
	if _, err := r.coll(role).InsertMany(ctx, docs, options.InsertMany().SetOrdered(true)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("bulk insert accounts: %w", err)
	}
	return nil
}

// EnsureIndexes creates the unique email index on both account collections.
func (r *AccountRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	emailUnique := mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}

	for _, role := range []domain.Role{domain.RoleUser, domain.RoleAdmin} {
		if _, err := r.coll(role).Indexes().CreateOne(ctx, emailUnique); err != nil {
			return fmt.Errorf("ensure %s email index: %w", role, err)
		}
	}
	return nil
}

func setField(set bson.M, key string, value *string) {
	if value != nil {
		set[key] = *value
	}
}
