package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"amazon-scraper/models"
)

// scheduleDoc is the persisted layout of a schedule in the schedules collection.
type scheduleDoc struct {
	ID         primitive.ObjectID    `bson:"_id,omitempty"`
	Frequency  models.Frequency      `bson:"frequency"`
	TimeOfDay  string                `bson:"time,omitempty"`
	DayOfWeek  string                `bson:"day,omitempty"`
	Categories map[string]string     `bson:"categories,omitempty"`
	IsRunning  bool                  `bson:"is_running"`
	Status     models.ScheduleStatus `bson:"status"`
	LastRun    *time.Time            `bson:"last_run,omitempty"`
}

func (d scheduleDoc) toModel() *models.Schedule {
	return &models.Schedule{
		ID:         d.ID.Hex(),
		Frequency:  d.Frequency,
		TimeOfDay:  d.TimeOfDay,
		DayOfWeek:  d.DayOfWeek,
		Categories: d.Categories,
		IsRunning:  d.IsRunning,
		Status:     d.Status,
		LastRun:    d.LastRun,
	}
}

// MongoStore keeps every category in its own collection keyed by asin, and schedules in one collection.
type MongoStore struct {
	client    *mongo.Client
	db        *mongo.Database
	schedules *mongo.Collection
}

// NewMongoStore connects to uri and waits for the primary to answer.
func NewMongoStore(ctx context.Context, uri, database, scheduleCollection string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = client.Ping(ctx, readpref.Primary()); err == nil {
			break
		}
		select {
		case <-ctx.Done():
			_ = client.Disconnect(context.Background())
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: ping failed after retries: %w", err)
	}

	db := client.Database(database)
	return &MongoStore{client: client, db: db, schedules: db.Collection(scheduleCollection)}, nil
}

func (m *MongoStore) EnsureIndexes(ctx context.Context, collection string) error {
	_, err := m.db.Collection(collection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "asin", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("asin_unique"),
	})
	if err != nil {
		return fmt.Errorf("mongo: create asin index on %s: %w", collection, err)
	}
	return nil
}

func (m *MongoStore) Upsert(ctx context.Context, collection string, l *models.Listing) error {
	if err := ValidateListing(l); err != nil {
		return err
	}

	_, err := m.db.Collection(collection).UpdateOne(ctx,
		bson.M{"asin": l.ID},
		bson.M{"$set": l},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongo: upsert %s into %s: %w", l.ID, collection, err)
	}
	return nil
}

func (m *MongoStore) FetchListings(ctx context.Context, collection string) ([]*models.Listing, error) {
	cur, err := m.db.Collection(collection).Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "asin", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("mongo: fetch listings of %s: %w", collection, err)
	}

	var listings []*models.Listing
	if err := cur.All(ctx, &listings); err != nil {
		return nil, fmt.Errorf("mongo: decode listings of %s: %w", collection, err)
	}
	return listings, nil
}

func (m *MongoStore) ListIdle(ctx context.Context) ([]*models.Schedule, error) {
	return m.find(ctx, bson.M{"is_running": false})
}

func (m *MongoStore) List(ctx context.Context) ([]*models.Schedule, error) {
	return m.find(ctx, bson.M{})
}

func (m *MongoStore) find(ctx context.Context, filter bson.M) ([]*models.Schedule, error) {
	cur, err := m.schedules.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("mongo: find schedules: %w", err)
	}

	var docs []scheduleDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo: decode schedules: %w", err)
	}

	out := make([]*models.Schedule, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toModel())
	}
	return out, nil
}

// Claim flips is_running in a single conditional update.
func (m *MongoStore) Claim(ctx context.Context, id string) (bool, error) {
	oid, err := objectID(id)
	if err != nil {
		return false, err
	}

	res, err := m.schedules.UpdateOne(ctx,
		bson.M{"_id": oid, "is_running": false},
		bson.M{"$set": bson.M{"is_running": true, "status": models.StatusActive}},
	)
	if err != nil {
		return false, fmt.Errorf("mongo: claim schedule %s: %w", id, err)
	}
	if res.MatchedCount == 1 {
		return true, nil
	}

	n, err := m.schedules.CountDocuments(ctx, bson.M{"_id": oid})
	if err != nil {
		return false, fmt.Errorf("mongo: claim schedule %s: %w", id, err)
	}
	if n == 0 {
		return false, ErrScheduleNotFound
	}
	return false, nil
}

func (m *MongoStore) Release(ctx context.Context, id string) error {
	return m.finish(ctx, id, bson.M{"is_running": false, "status": models.StatusIdle})
}

func (m *MongoStore) Complete(ctx context.Context, id string, at time.Time) error {
	return m.finish(ctx, id, bson.M{"is_running": false, "status": models.StatusComplete, "last_run": at})
}

func (m *MongoStore) Fail(ctx context.Context, id string) error {
	return m.finish(ctx, id, bson.M{"is_running": false, "status": models.StatusFailed})
}

func (m *MongoStore) ResetRunning(ctx context.Context) (int, error) {
	res, err := m.schedules.UpdateMany(ctx,
		bson.M{"is_running": true},
		bson.M{"$set": bson.M{"is_running": false, "status": models.StatusFailed}},
	)
	if err != nil {
		return 0, fmt.Errorf("mongo: reset running schedules: %w", err)
	}
	return int(res.ModifiedCount), nil
}

func (m *MongoStore) finish(ctx context.Context, id string, set bson.M) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	res, err := m.schedules.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("mongo: update schedule %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrScheduleNotFound
	}
	return nil
}

func (m *MongoStore) Create(ctx context.Context, s *models.Schedule) (*models.Schedule, error) {
	n := newSchedule(s)
	doc := scheduleDoc{
		ID:         primitive.NewObjectID(),
		Frequency:  n.Frequency,
		TimeOfDay:  n.TimeOfDay,
		DayOfWeek:  n.DayOfWeek,
		Categories: n.Categories,
		Status:     n.Status,
		LastRun:    n.LastRun,
	}
	if _, err := m.schedules.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("mongo: insert schedule: %w", err)
	}
	return doc.toModel(), nil
}

func (m *MongoStore) Get(ctx context.Context, id string) (*models.Schedule, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	var doc scheduleDoc
	err = m.schedules.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrScheduleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongo: get schedule %s: %w", id, err)
	}
	return doc.toModel(), nil
}

func (m *MongoStore) Delete(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	res, err := m.schedules.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("mongo: delete schedule %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return ErrScheduleNotFound
	}
	return nil
}

func (m *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q is not an object id", ErrScheduleNotFound, id)
	}
	return oid, nil
}
