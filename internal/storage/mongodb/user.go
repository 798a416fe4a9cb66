package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/xenking/bookstore-api/internal/domain/user"
)

var _ user.Repository = (*UserRepository)(nil)

type userDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Username  string             `bson:"username"`
	Password  string             `bson:"password"`
	Role      string             `bson:"role"`
	CreatedAt time.Time          `bson:"createdAt"`
}

// UserRepository implements user.Repository backed by MongoDB. Username
// uniqueness is enforced by the unique index created in EnsureIndexes.
type UserRepository struct {
	coll *mongo.Collection
}

// NewUserRepository returns a UserRepository using c.
func NewUserRepository(c *Client) *UserRepository {
	return &UserRepository{coll: c.db.Collection(usersCollection)}
}

// Create inserts u and assigns its ID. Returns user.ErrDuplicate when the
// username is taken.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	doc := userDoc{
		ID:        primitive.NewObjectID(),
		Username:  u.Username,
		Password:  u.PasswordHash,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return user.ErrDuplicate
		}
		return fmt.Errorf("inserting user %q: %w", u.Username, err)
	}
	u.ID = doc.ID.Hex()
	return nil
}

// FindByUsername returns user.ErrNotFound when no such user exists.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*user.User, error) {
	var doc userDoc
	if err := r.coll.FindOne(ctx, bson.D{{Key: "username", Value: username}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("finding user %q: %w", username, err)
	}

	return &user.User{
		ID:           doc.ID.Hex(),
		Username:     doc.Username,
		PasswordHash: doc.Password,
		Role:         user.Role(doc.Role),
		CreatedAt:    doc.CreatedAt.UTC(),
	}, nil
}
