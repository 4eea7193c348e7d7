package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ucouncil/portal/backend/go-services/internal/editing"
	"github.com/ucouncil/portal/backend/go-services/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepo implements editing.Store on a MongoDB collection (one per kind).
// Lease and save preconditions live in the update filters, so each transition
// is a single atomic document write.
type MongoRepo struct {
	kind editing.Kind
	col  *mongo.Collection
}

func NewMongoRepo(kind editing.Kind, col *mongo.Collection) *MongoRepo {
	// supports the sweep's "holder set and older than cutoff" scan
	idxModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "priorityEditor", Value: 1}, {Key: "priorityEditStartedAt", Value: 1}},
		Options: options.Index().SetName("priority_lease"),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := col.Indexes().CreateOne(ctx, idxModel); err != nil {
		logger.Warnf("create lease index on %s: %v", col.Name(), err)
	}
	return &MongoRepo{kind: kind, col: col}
}

func (m *MongoRepo) Create(ctx context.Context, doc *editing.Document) (*editing.Document, error) {
	d := doc.Clone()
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.Kind == "" {
		d.Kind = m.kind
	}
	if d.Fields == nil {
		// must be a sub-document for "fields.<key>" updates
		d.Fields = map[string]interface{}{}
	}
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = d.CreatedAt
	}
	if _, err := m.col.InsertOne(ctx, d); err != nil {
		return nil, fmt.Errorf("insert %s document: %w", m.kind, err)
	}
	return d, nil
}

func (m *MongoRepo) Get(ctx context.Context, id string) (*editing.Document, error) {
	var d editing.Document
	err := m.col.FindOne(ctx, bson.M{"_id": id}).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, editing.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (m *MongoRepo) List(ctx context.Context) ([]*editing.Document, error) {
	return m.find(ctx, bson.M{})
}

func (m *MongoRepo) ListLeased(ctx context.Context) ([]*editing.Document, error) {
	return m.find(ctx, bson.M{"priorityEditor": bson.M{"$ne": nil}})
}

func (m *MongoRepo) find(ctx context.Context, filter bson.M) ([]*editing.Document, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cur, err := m.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*editing.Document{}
	for cur.Next(ctx) {
		var d editing.Document
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, cur.Err()
}

func (m *MongoRepo) AcquireLease(ctx context.Context, id, userID string, at time.Time) (*editing.Document, bool, error) {
	filter := bson.M{"_id": id, "priorityEditor": nil}
	update := bson.M{"$set": bson.M{"priorityEditor": userID, "priorityEditStartedAt": at}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var d editing.Document
	err := m.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&d)
	if err == nil {
		return &d, true, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, err
	}
	// either missing or already leased
	cur, gerr := m.Get(ctx, id)
	if gerr != nil {
		return nil, false, gerr
	}
	return cur, false, nil
}

func (m *MongoRepo) ReleaseLease(ctx context.Context, id, userID string) (bool, error) {
	res, err := m.col.UpdateOne(ctx,
		bson.M{"_id": id, "priorityEditor": userID},
		bson.M{"$set": bson.M{"priorityEditor": nil, "priorityEditStartedAt": nil}},
	)
	if err != nil {
		return false, err
	}
	if res.MatchedCount > 0 {
		return true, nil
	}
	if err := m.exists(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (m *MongoRepo) SaveContent(ctx context.Context, id string, s editing.ContentSave) (*editing.Document, error) {
	set := bson.M{
		"status":                editing.StatusDraft,
		"editedBy":              s.UserID,
		"editedAt":              s.At,
		"updatedAt":             s.At,
		"priorityEditor":        nil,
		"priorityEditStartedAt": nil,
	}
	for k, v := range s.Fields {
		set["fields."+k] = v
	}
	filter := bson.M{"_id": id, "priorityEditor": s.UserID, "version": s.ExpectedVersion}
	update := bson.M{"$set": set, "$inc": bson.M{"version": 1}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var d editing.Document
	err := m.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&d)
	if err == nil {
		return &d, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}
	if err := m.exists(ctx, id); err != nil {
		return nil, err
	}
	return nil, editing.ErrPreconditionFailed
}

func (m *MongoRepo) SetStatus(ctx context.Context, id string, status editing.Status, at time.Time) (*editing.Document, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var d editing.Document
	err := m.col.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": status, "updatedAt": at}},
		opts,
	).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, editing.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (m *MongoRepo) ClearStaleLeases(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := m.col.UpdateMany(ctx,
		bson.M{"priorityEditor": bson.M{"$ne": nil}, "priorityEditStartedAt": bson.M{"$lt": olderThan}},
		bson.M{"$set": bson.M{"priorityEditor": nil, "priorityEditStartedAt": nil}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (m *MongoRepo) exists(ctx context.Context, id string) error {
	n, err := m.col.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return err
	}
	if n == 0 {
		return editing.ErrNotFound
	}
	return nil
}
