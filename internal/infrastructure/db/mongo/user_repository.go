package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/beautyclinic/clinic-api/internal/core/domain"
	"github.com/beautyclinic/clinic-api/internal/core/ports"
)

const (
	collectionUsers = "users"

	indexUsersEmail    = "users_email_unique"
	indexUsersUsername = "users_username_unique"
	indexUsersReset    = "users_password_reset_token"
)

// UserRepository persists accounts in the users collection. Ids are numeric
// and come from the "users" sequence.
type UserRepository struct {
	col *mongo.Collection
	seq *Sequence
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{
		col: db.Collection(collectionUsers),
		seq: NewSequence(db, collectionUsers),
	}
}

type userDocument struct {
	ID                   int64      `bson:"_id"`
	Username             string     `bson:"username"`
	Email                string     `bson:"email"`
	PasswordHash         string     `bson:"password_hash"`
	DisplayName          string     `bson:"display_name"`
	Role                 string     `bson:"role"`
	PhoneNumber          string     `bson:"phone_number,omitempty"`
	PasswordResetToken   string     `bson:"password_reset_token,omitempty"`
	PasswordResetExpires *time.Time `bson:"password_reset_expires,omitempty"`
	CreatedAt            time.Time  `bson:"created_at"`
	UpdatedAt            time.Time  `bson:"updated_at"`
}

func toUserDocument(u *domain.User) userDocument {
	return userDocument{
		ID:                   u.ID,
		Username:             u.Username,
		Email:                u.Email,
		PasswordHash:         u.PasswordHash,
		DisplayName:          u.DisplayName,
		Role:                 string(u.Role),
		PhoneNumber:          u.PhoneNumber,
		PasswordResetToken:   u.PasswordResetToken,
		PasswordResetExpires: u.PasswordResetExpires,
		CreatedAt:            u.CreatedAt,
		UpdatedAt:            u.UpdatedAt,
	}
}

func (d userDocument) toDomain() *domain.User {
	var expires *time.Time
	if d.PasswordResetExpires != nil {
		t := d.PasswordResetExpires.UTC()
		expires = &t
	}
	return &domain.User{
		ID:                   d.ID,
		Username:             d.Username,
		Email:                d.Email,
		PasswordHash:         d.PasswordHash,
		DisplayName:          d.DisplayName,
		Role:                 domain.Role(d.Role),
		PhoneNumber:          d.PhoneNumber,
		PasswordResetToken:   d.PasswordResetToken,
		PasswordResetExpires: expires,
		CreatedAt:            d.CreatedAt.UTC(),
		UpdatedAt:            d.UpdatedAt.UTC(),
	}
}

// Create assigns the next id and inserts user.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	id, err := r.seq.Next(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := toUserDocument(user)
	doc.ID = id
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, duplicateUserError(err)
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

// FindByResetToken matches on the stored digest and treats an expired token
// the same as a missing one.
func (r *UserRepository) FindByResetToken(ctx context.Context, digest string, now time.Time) (*domain.User, error) {
	return r.findOne(ctx, bson.M{
		"password_reset_token":   digest,
		"password_reset_expires": bson.M{"$gt": now},
	})
}

func (r *UserRepository) List(ctx context.Context, filter ports.UserFilter) ([]*domain.User, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := bson.M{}
	if filter.Role != "" {
		query["role"] = string(filter.Role)
	}

	total, err := r.col.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(filter.Skip).
		SetLimit(filter.Limit)

	cur, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer cur.Close(ctx)

	var docs []userDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode users: %w", err)
	}

	users := make([]*domain.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, d.toDomain())
	}
	return users, total, nil
}

// Update replaces the stored document. Empty reset fields are omitted from
// the replacement, which removes them from the stored account.
func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": user.ID}, toUserDocument(user))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return duplicateUserError(err)
		}
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// ConsumeResetToken sets the new password digest and clears the reset fields
// in one conditional write. Of several concurrent callers holding the same
// token, only the first one matches.
func (r *UserRepository) ConsumeResetToken(ctx context.Context, id int64, digest, passwordHash string, now time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{
		"_id":                    id,
		"password_reset_token":   digest,
		"password_reset_expires": bson.M{"$gt": now},
	}
	update := bson.M{
		"$set": bson.M{
			"password_hash": passwordHash,
			"updated_at":    now.UTC(),
		},
		"$unset": bson.M{
			"password_reset_token":   "",
			"password_reset_expires": "",
		},
	}

	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("consume reset token: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrInvalidResetToken
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// EnsureIndexes creates the unique and lookup indexes on the users collection.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName(indexUsersEmail).SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetName(indexUsersUsername).SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "password_reset_token", Value: 1}},
			Options: options.Index().SetName(indexUsersReset).SetSparse(true),
		},
		{Keys: bson.D{{Key: "role", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc userDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return doc.toDomain(), nil
}

// duplicateUserError maps a duplicate-key failure to the domain error for the
// index that rejected the write.
func duplicateUserError(err error) error {
	if strings.Contains(err.Error(), indexUsersUsername) {
		return domain.ErrUsernameTaken
	}
	return domain.ErrEmailInUse
}
