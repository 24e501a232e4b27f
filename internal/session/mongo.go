package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/crystaldolphin/friday/internal/schema"
)

const (
	sessionsCollection = "sessions"
	messagesCollection = "messages"
	countersCollection = "counters"

	disconnectTimeout = 5 * time.Second
)

type sessionDocument struct {
	ID        int64   `bson:"_id"`
	UserID    *string `bson:"user_id"`
	CreatedAt float64 `bson:"created_at"`
}

type messageDocument struct {
	ID        int64   `bson:"_id"`
	SessionID int64   `bson:"session_id"`
	Role      string  `bson:"role"`
	Content   string  `bson:"content"`
	Metadata  *string `bson:"metadata"`
	Timestamp float64 `bson:"timestamp"`
}

// newMessageDocument stores metadata as the same JSON blob the SQLite
// backend writes, so both stores hold identical message rows.
func newMessageDocument(id, sessionID int64, m schema.Message) (messageDocument, error) {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	doc := messageDocument{
		ID:        id,
		SessionID: sessionID,
		Role:      string(m.Role),
		Content:   m.Content,
		Timestamp: toEpoch(ts),
	}
	meta, err := encodeMetadata(m.Metadata)
	if err != nil {
		return messageDocument{}, err
	}
	if blob, ok := meta.(string); ok {
		doc.Metadata = &blob
	}
	return doc, nil
}

func (d messageDocument) toStored() (StoredMessage, error) {
	var blob string
	if d.Metadata != nil {
		blob = *d.Metadata
	}
	meta, err := decodeMetadata(blob)
	if err != nil {
		return StoredMessage{}, fmt.Errorf("message %d: %w", d.ID, err)
	}
	return StoredMessage{
		ID: d.ID,
		Message: schema.Message{
			Role:      schema.Role(d.Role),
			Content:   d.Content,
			Timestamp: fromEpoch(d.Timestamp),
			Metadata:  meta,
		},
	}, nil
}

type counterDocument struct {
	ID  string `bson:"_id"`
	Seq int64  `bson:"seq"`
}

// MongoConfig configures OpenMongo.
type MongoConfig struct {
	URI      string
	Database string
	Logger   *slog.Logger
}

// MongoStore is a Store backed by MongoDB. Integer ids come from a counters
// collection so they keep the same ordering guarantees as the SQLite backend.
//
// AppendMessages uses one ordered InsertMany; without a replica set MongoDB
// cannot make it atomic, so a failure part way leaves a prefix written.
type MongoStore struct {
	client   *mongo.Client
	sessions *mongo.Collection
	messages *mongo.Collection
	counters *mongo.Collection
	logger   *slog.Logger
}

var _ Store = (*MongoStore)(nil)

// OpenMongo connects, verifies the server is reachable and ensures the
// message index exists.
func OpenMongo(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.URI == "" {
		cfg.URI = "mongodb://localhost:27017"
	}
	if cfg.Database == "" {
		cfg.Database = "friday"
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("session: mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("session: mongo ping: %w", err)
	}

	s := newMongoStore(client, client.Database(cfg.Database), logger)
	_, err = s.messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "session_id", Value: 1}, {Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("session: mongo index: %w", err)
	}

	logger.Debug("mongo session store opened", "database", cfg.Database)
	return s, nil
}

func newMongoStore(client *mongo.Client, db *mongo.Database, logger *slog.Logger) *MongoStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &MongoStore{
		client:   client,
		sessions: db.Collection(sessionsCollection),
		messages: db.Collection(messagesCollection),
		counters: db.Collection(countersCollection),
		logger:   logger,
	}
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("session: mongo disconnect: %w", err)
	}
	return nil
}

// nextIDs reserves n consecutive ids from the named counter and returns the
// first of them.
func (s *MongoStore) nextIDs(ctx context.Context, counter string, n int) (int64, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var doc counterDocument
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": counter},
		bson.M{"$inc": bson.M{"seq": int64(n)}},
		opts,
	).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("allocate %s id: %w", counter, err)
	}
	return doc.Seq - int64(n) + 1, nil
}

func (s *MongoStore) CreateSession(ctx context.Context, userID string) (schema.Session, error) {
	id, err := s.nextIDs(ctx, sessionsCollection, 1)
	if err != nil {
		return schema.Session{}, schema.NewStorageError("create session", err)
	}

	now := time.Now()
	doc := sessionDocument{ID: id, CreatedAt: toEpoch(now)}
	if userID != "" {
		doc.UserID = &userID
	}
	if _, err := s.sessions.InsertOne(ctx, doc); err != nil {
		return schema.Session{}, schema.NewStorageError("create session", err)
	}

	s.logger.Debug("session created", "session_id", id, "user_id", userID)
	return schema.Session{ID: id, UserID: userID, CreatedAt: now}, nil
}

func (s *MongoStore) GetSession(ctx context.Context, id int64) (schema.Session, error) {
	var doc sessionDocument
	err := s.sessions.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return schema.Session{}, fmt.Errorf("session %d: %w", id, ErrSessionNotFound)
	}
	if err != nil {
		return schema.Session{}, schema.NewStorageError("get session", err)
	}
	return doc.toSession(), nil
}

func (s *MongoStore) AppendMessages(ctx context.Context, sessionID int64, msgs ...schema.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	first, err := s.nextIDs(ctx, messagesCollection, len(msgs))
	if err != nil {
		return schema.NewStorageError("append messages", err)
	}

	docs := make([]any, 0, len(msgs))
	for i, m := range msgs {
		doc, err := newMessageDocument(first+int64(i), sessionID, m)
		if err != nil {
			return schema.NewStorageError("append messages", err)
		}
		docs = append(docs, doc)
	}

	if _, err := s.messages.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true)); err != nil {
		return schema.NewStorageError("append messages", err)
	}
	return nil
}

func (s *MongoStore) LoadMessages(ctx context.Context, sessionID int64, q Query) ([]StoredMessage, error) {
	filter := bson.M{"session_id": sessionID, "_id": bson.M{"$gt": q.AfterID}}

	dir := -1
	if q.Oldest {
		dir = 1
	}
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: dir}, {Key: "_id", Value: dir}})
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cursor, err := s.messages.Find(ctx, filter, opts)
	if err != nil {
		return nil, schema.NewStorageError("load messages", err)
	}
	var docs []messageDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, schema.NewStorageError("load messages", err)
	}
	if !q.Oldest {
		slices.Reverse(docs)
	}

	out := make([]StoredMessage, 0, len(docs))
	for _, d := range docs {
		m, err := d.toStored()
		if err != nil {
			return nil, schema.NewStorageError("load messages", err)
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *MongoStore) ListSessions(ctx context.Context) ([]Info, error) {
	cursor, err := s.sessions.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, schema.NewStorageError("list sessions", err)
	}
	var sessions []sessionDocument
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, schema.NewStorageError("list sessions", err)
	}

	type stats struct {
		ID    int64   `bson:"_id"`
		Count int     `bson:"count"`
		Last  float64 `bson:"last"`
	}
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$session_id"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "last", Value: bson.D{{Key: "$max", Value: "$timestamp"}}},
		}}},
	}
	agg, err := s.messages.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, schema.NewStorageError("list sessions", err)
	}
	var rows []stats
	if err := agg.All(ctx, &rows); err != nil {
		return nil, schema.NewStorageError("list sessions", err)
	}
	bySession := make(map[int64]stats, len(rows))
	for _, r := range rows {
		bySession[r.ID] = r
	}

	out := make([]Info, 0, len(sessions))
	for _, d := range sessions {
		info := Info{Session: d.toSession()}
		if st, ok := bySession[d.ID]; ok {
			info.MessageCount = st.Count
			info.LastActivity = fromEpoch(st.Last)
		}
		out = append(out, info)
	}
	return out, nil
}

func (d sessionDocument) toSession() schema.Session {
	sess := schema.Session{ID: d.ID, CreatedAt: fromEpoch(d.CreatedAt)}
	if d.UserID != nil {
		sess.UserID = *d.UserID
	}
	return sess
}
