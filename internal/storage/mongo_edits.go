package storage

import (
	"context"
	"fmt"
	"time"

	"worksheet/internal/domain"
	"worksheet/internal/logger"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const defaultMongoTimeout = 10 * time.Second

// MongoEditStore keeps the edit history in a MongoDB collection, for
// deployments that share history across machines.
type MongoEditStore struct {
	client  *mongo.Client
	coll    *mongo.Collection
	timeout time.Duration
}

type editDoc struct {
	ID           string      `bson:"_id"`
	SessionID    string      `bson:"session_id"`
	SelectionKey string      `bson:"selection_key,omitempty"`
	Instruction  string      `bson:"instruction"`
	Changes      []changeDoc `bson:"changes"`
	Timestamp    time.Time   `bson:"timestamp"`
	Success      bool        `bson:"success"`
	Error        string      `bson:"error,omitempty"`
}

type changeDoc struct {
	Field       string `bson:"field"`
	Description string `bson:"description"`
}

// NewMongoEditStore connects to uri and ensures the session index exists.
func NewMongoEditStore(ctx context.Context, uri, database, collection string, log *logger.Logger) (*MongoEditStore, error) {
	if log == nil {
		log = logger.Nop()
	}
	if database == "" {
		database = "worksheet"
	}
	if collection == "" {
		collection = "edits"
	}

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	s := &MongoEditStore{
		client:  client,
		coll:    client.Database(database).Collection(collection),
		timeout: defaultMongoTimeout,
	}

	ictx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	_, err = s.coll.Indexes().CreateOne(ictx, mongo.IndexModel{
		Keys: bson.D{{Key: "session_id", Value: 1}, {Key: "timestamp", Value: 1}},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("create mongo index: %w", err)
	}
	log.Info("mongo edit store ready", "database", database, "collection", collection)
	return s, nil
}

func (s *MongoEditStore) AppendEdit(e domain.WorksheetEdit) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if _, err := s.coll.InsertOne(ctx, toEditDoc(e)); err != nil {
		return fmt.Errorf("insert edit: %w", err)
	}
	return nil
}

func (s *MongoEditStore) ListEdits(sessionID string) ([]domain.WorksheetEdit, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.coll.Find(ctx, bson.D{{Key: "session_id", Value: sessionID}}, opts)
	if err != nil {
		return nil, fmt.Errorf("find edits: %w", err)
	}
	var docs []editDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode edits: %w", err)
	}

	out := make([]domain.WorksheetEdit, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.edit())
	}
	return out, nil
}

func (s *MongoEditStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func toEditDoc(e domain.WorksheetEdit) editDoc {
	d := editDoc{
		ID:           e.ID,
		SessionID:    e.SessionID,
		SelectionKey: e.SelectionKey,
		Instruction:  e.Instruction,
		Changes:      make([]changeDoc, 0, len(e.Changes)),
		Timestamp:    e.Timestamp.UTC(),
		Success:      e.Success,
		Error:        e.Error,
	}
	for _, c := range e.Changes {
		d.Changes = append(d.Changes, changeDoc{Field: c.Field, Description: c.Description})
	}
	return d
}

func (d editDoc) edit() domain.WorksheetEdit {
	e := domain.WorksheetEdit{
		ID:           d.ID,
		SessionID:    d.SessionID,
		SelectionKey: d.SelectionKey,
		Instruction:  d.Instruction,
		Timestamp:    d.Timestamp,
		Success:      d.Success,
		Error:        d.Error,
	}
	for _, c := range d.Changes {
		e.Changes = append(e.Changes, domain.WorksheetEditChange{Field: c.Field, Description: c.Description})
	}
	return e
}
