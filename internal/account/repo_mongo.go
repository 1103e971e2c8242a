package account

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"track75/internal/store"
)

type accountDoc struct {
	ID           string    `bson:"_id"`
	Username     string    `bson:"username"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"password_hash"`
	Department   string    `bson:"department,omitempty"`
	Subjects     []string  `bson:"subjects"`
	CreatedAt    time.Time `bson:"created_at"`
}

// MongoRepository stores accounts in the users collection.
type MongoRepository struct {
	users *mongo.Collection
}

// NewMongoRepository binds the users collection of db.
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{users: db.Collection(store.UsersCollection)}
}

func (r *MongoRepository) CreateAccount(ctx context.Context, acc *Account) error {
	_, err := r.users.InsertOne(ctx, accountDoc{
		ID:           acc.ID,
		Username:     acc.Username,
		Email:        acc.Email,
		PasswordHash: acc.PasswordHash,
		Department:   acc.Department,
		Subjects:     nonNil(acc.Subjects),
		CreatedAt:    acc.CreatedAt,
	})
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateEmail
	}
	return store.Unavailable(err)
}

func (r *MongoRepository) AccountByEmail(ctx context.Context, email string) (*Account, error) {
	return r.one(ctx, bson.M{"email": email})
}

func (r *MongoRepository) AccountByID(ctx context.Context, id string) (*Account, error) {
	return r.one(ctx, bson.M{"_id": id})
}

func (r *MongoRepository) UpdateProfile(ctx context.Context, id, department string, subjects []string) error {
	res, err := r.users.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"department": department, "subjects": nonNil(subjects)}},
	)
	if err != nil {
		return store.Unavailable(err)
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *MongoRepository) one(ctx context.Context, filter bson.M) (*Account, error) {
	res := r.users.FindOne(ctx, filter)
	if err := res.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, store.Unavailable(err)
	}
	var doc accountDoc
	if err := res.Decode(&doc); err != nil {
		return nil, err
	}
	return &Account{
		ID:           doc.ID,
		Username:     doc.Username,
		Email:        doc.Email,
		PasswordHash: doc.PasswordHash,
		Department:   doc.Department,
		Subjects:     nonNil(doc.Subjects),
		CreatedAt:    doc.CreatedAt,
	}, nil
}
