package attendance

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"track75/internal/store"
)

type classDoc struct {
	Subject string  `bson:"subject"`
	Status  *string `bson:"status"`
}

type recordDoc struct {
	UserID    string     `bson:"user_id"`
	Date      string     `bson:"date"`
	Classes   []classDoc `bson:"classes"`
	UpdatedAt time.Time  `bson:"updated_at"`
}

type auditDoc struct {
	ID          string     `bson:"_id"`
	UserID      string     `bson:"user_id"`
	Date        string     `bson:"date"`
	Classes     []classDoc `bson:"classes"`
	Source      string     `bson:"source"`
	SubmittedAt time.Time  `bson:"submitted_at"`
}

// MongoRepository keeps records as one document per user and day.
type MongoRepository struct {
	records *mongo.Collection
	audit   *mongo.Collection
}

// NewMongoRepository binds the attendance collections of db.
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		records: db.Collection(store.AttendanceCollection),
		audit:   db.Collection(store.AuditCollection),
	}
}

// UpsertRecord sets the classes list on the (user_id, date) document.
func (r *MongoRepository) UpsertRecord(ctx context.Context, rec Record) error {
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	_, err := r.records.UpdateOne(ctx,
		bson.M{"user_id": rec.UserID, "date": rec.Date},
		bson.M{"$set": bson.M{"classes": toClassDocs(rec.Classes), "updated_at": rec.UpdatedAt}},
		options.Update().SetUpsert(true),
	)
	return store.Unavailable(err)
}

// GetRecord returns the document for a single day.
func (r *MongoRepository) GetRecord(ctx context.Context, userID, date string) (*Record, error) {
	res := r.records.FindOne(ctx, bson.M{"user_id": userID, "date": date})
	if err := res.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, store.Unavailable(err)
	}
	var doc recordDoc
	if err := res.Decode(&doc); err != nil {
		return nil, err
	}
	rec := doc.record()
	return &rec, nil
}

// ListRecords returns every document for the user.
func (r *MongoRepository) ListRecords(ctx context.Context, userID string) ([]Record, error) {
	cur, err := r.records.Find(ctx, bson.M{"user_id": userID}, options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
	if err != nil {
		return nil, store.Unavailable(err)
	}
	defer cur.Close(ctx)

	var res []Record
	for cur.Next(ctx) {
		var doc recordDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		res = append(res, doc.record())
	}
	return res, store.Unavailable(cur.Err())
}

// AppendAudit inserts one submission document.
func (r *MongoRepository) AppendAudit(ctx context.Context, entry AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	_, err := r.audit.InsertOne(ctx, auditDoc{
		ID:          entry.ID,
		UserID:      entry.UserID,
		Date:        entry.Date,
		Classes:     toClassDocs(entry.Classes),
		Source:      entry.Source,
		SubmittedAt: entry.SubmittedAt,
	})
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return store.Unavailable(err)
}

// ListAudit returns the newest submissions first.
func (r *MongoRepository) ListAudit(ctx context.Context, userID string, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "submitted_at", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := r.audit.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, store.Unavailable(err)
	}
	defer cur.Close(ctx)

	var res []AuditEntry
	for cur.Next(ctx) {
		var doc auditDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		res = append(res, AuditEntry{
			ID:          doc.ID,
			UserID:      doc.UserID,
			Date:        doc.Date,
			Classes:     fromClassDocs(doc.Classes),
			Source:      doc.Source,
			SubmittedAt: doc.SubmittedAt,
		})
	}
	return res, store.Unavailable(cur.Err())
}

func (d recordDoc) record() Record {
	return Record{
		UserID:    d.UserID,
		Date:      d.Date,
		Classes:   fromClassDocs(d.Classes),
		UpdatedAt: d.UpdatedAt,
	}
}

func toClassDocs(classes []ClassEntry) []classDoc {
	docs := make([]classDoc, 0, len(classes))
	for _, c := range classes {
		doc := classDoc{Subject: c.Subject}
		if c.Status != StatusUnset {
			s := string(c.Status)
			doc.Status = &s
		}
		docs = append(docs, doc)
	}
	return docs
}

func fromClassDocs(docs []classDoc) []ClassEntry {
	classes := make([]ClassEntry, 0, len(docs))
	for _, d := range docs {
		entry := ClassEntry{Subject: d.Subject}
		if d.Status != nil {
			entry.Status = Status(*d.Status)
		}
		classes = append(classes, entry)
	}
	return classes
}
