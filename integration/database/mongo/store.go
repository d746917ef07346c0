package mongo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/sessionguard/core/traffic"
)

// Collection names.
const (
	ClientsCollection = "clientips"
	RecordsCollection = "httplogs"
)

type clientDoc struct {
	ClientID      string    `bson:"clientIP"`
	Blacklisted   bool      `bson:"blacklisted"`
	BlacklistedAt time.Time `bson:"blacklistTime"`
	CreatedAt     time.Time `bson:"createdAt"`
}

type recordDoc struct {
	ID           bson.ObjectID `bson:"_id,omitempty"`
	ClientID     string        `bson:"clientIP"`
	Timestamp    time.Time     `bson:"timestamp"`
	Method       string        `bson:"method"`
	URL          string        `bson:"url"`
	FullURL      string        `bson:"fullUrl"`
	StatusCode   int           `bson:"statusCode"`
	RequestSize  int64         `bson:"requestSize"`
	ResponseSize int64         `bson:"responseSize"`
	ContentType  string        `bson:"resContentType"`
	UserAgent    string        `bson:"userAgent"`
	RequestLine  string        `bson:"reqhttp"`
	Headers      http.Header   `bson:"headers"`
	// nil while unassigned
	SessionID *string `bson:"sessionID"`
}

func (d recordDoc) record() traffic.Record {
	rec := traffic.Record{
		ID:           d.ID.Hex(),
		ClientID:     d.ClientID,
		Timestamp:    d.Timestamp,
		Method:       d.Method,
		URL:          d.URL,
		FullURL:      d.FullURL,
		StatusCode:   d.StatusCode,
		RequestSize:  d.RequestSize,
		ResponseSize: d.ResponseSize,
		ContentType:  d.ContentType,
		UserAgent:    d.UserAgent,
		RequestLine:  d.RequestLine,
		Headers:      d.Headers,
		Session:      traffic.Unassigned(),
	}
	if d.SessionID != nil {
		rec.Session = traffic.Assigned(*d.SessionID)
	}
	return rec
}

// Store implements traffic.Store on two collections of a MongoDB database.
// Record ids are ObjectID hex strings.
type Store struct {
	clients *mongo.Collection
	records *mongo.Collection
}

// NewStore creates a store over db. Call EnsureIndexes once before serving.
func NewStore(db *mongo.Database) *Store {
	if db == nil {
		panic("mongo: database is required")
	}
	return &Store{
		clients: db.Collection(ClientsCollection),
		records: db.Collection(RecordsCollection),
	}
}

// EnsureIndexes creates the indexes every store query relies on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	if _, err := s.clients.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "clientIP", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("mongo: create %s index: %w", ClientsCollection, err)
	}

	if _, err := s.records.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "clientIP", Value: 1}, {Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}}},
		{Keys: bson.D{{Key: "sessionID", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("mongo: create %s indexes: %w", RecordsCollection, err)
	}
	return nil
}

func (s *Store) EnsureClient(ctx context.Context, clientID string) error {
	_, err := s.clients.UpdateOne(ctx,
		bson.M{"clientIP": clientID},
		bson.M{"$setOnInsert": clientDoc{ClientID: clientID, CreatedAt: time.Now()}},
		options.UpdateOne().SetUpsert(true))
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return wrap("ensure client", err)
	}
	return nil
}

func (s *Store) GetClient(ctx context.Context, clientID string) (*traffic.ClientEntry, error) {
	var doc clientDoc
	if err := s.clients.FindOne(ctx, bson.M{"clientIP": clientID}).Decode(&doc); err != nil {
		return nil, wrap("get client", err)
	}
	return &traffic.ClientEntry{
		ClientID:      doc.ClientID,
		Blacklisted:   doc.Blacklisted,
		BlacklistedAt: doc.BlacklistedAt,
		CreatedAt:     doc.CreatedAt,
	}, nil
}

func (s *Store) SetBlacklisted(ctx context.Context, clientID string, at time.Time) error {
	_, err := s.clients.UpdateOne(ctx,
		bson.M{"clientIP": clientID},
		bson.M{
			"$set":         bson.M{"blacklisted": true, "blacklistTime": at},
			"$setOnInsert": bson.M{"createdAt": time.Now()},
		},
		options.UpdateOne().SetUpsert(true))
	if err != nil {
		return wrap("set blacklisted", err)
	}
	return nil
}

func (s *Store) ClearBlacklist(ctx context.Context, clientID string, blacklistedAt time.Time) (bool, error) {
	res, err := s.clients.UpdateOne(ctx,
		bson.M{"clientIP": clientID, "blacklisted": true, "blacklistTime": blacklistedAt},
		bson.M{"$set": bson.M{"blacklisted": false}})
	if err != nil {
		return false, wrap("clear blacklist", err)
	}
	return res.ModifiedCount > 0, nil
}

func (s *Store) InsertRecord(ctx context.Context, rec *traffic.Record) (string, error) {
	if rec == nil {
		return "", traffic.ErrInvalidRecord
	}

	doc := recordDoc{
		ID:           bson.NewObjectID(),
		ClientID:     rec.ClientID,
		Timestamp:    rec.Timestamp,
		Method:       rec.Method,
		URL:          rec.URL,
		FullURL:      rec.FullURL,
		StatusCode:   rec.StatusCode,
		RequestSize:  rec.RequestSize,
		ResponseSize: rec.ResponseSize,
		ContentType:  rec.ContentType,
		UserAgent:    rec.UserAgent,
		RequestLine:  rec.RequestLine,
		Headers:      rec.Headers,
	}
	if doc.Headers == nil {
		doc.Headers = http.Header{}
	}
	if id, ok := rec.Session.Get(); ok {
		doc.SessionID = &id
	}

	if _, err := s.records.InsertOne(ctx, doc); err != nil {
		return "", wrap("insert record", err)
	}
	return doc.ID.Hex(), nil
}

func (s *Store) GetRecord(ctx context.Context, id string) (*traffic.Record, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, traffic.ErrNotFound
	}

	var doc recordDoc
	if err := s.records.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, wrap("get record", err)
	}
	rec := doc.record()
	return &rec, nil
}

func (s *Store) RecentRecords(ctx context.Context, clientID string, since time.Time) ([]traffic.Record, error) {
	cur, err := s.records.Find(ctx,
		bson.M{"clientIP": clientID, "timestamp": bson.M{"$gte": since}},
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, wrap("recent records", err)
	}

	var docs []recordDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, wrap("recent records", err)
	}

	recs := make([]traffic.Record, len(docs))
	for i, d := range docs {
		recs[i] = d.record()
	}
	return recs, nil
}

func (s *Store) AssignSession(ctx context.Context, recordID, sessionID string) (bool, error) {
	oid, err := bson.ObjectIDFromHex(recordID)
	if err != nil {
		return false, traffic.ErrNotFound
	}

	// {sessionID: null} also matches documents without the field.
	res, err := s.records.UpdateOne(ctx,
		bson.M{"_id": oid, "sessionID": nil},
		bson.M{"$set": bson.M{"sessionID": sessionID}})
	if err != nil {
		return false, wrap("assign session", err)
	}
	return res.ModifiedCount > 0, nil
}

func (s *Store) CountSession(ctx context.Context, sessionID string) (int, error) {
	n, err := s.records.CountDocuments(ctx, bson.M{"sessionID": sessionID})
	if err != nil {
		return 0, wrap("count session", err)
	}
	return int(n), nil
}

func (s *Store) PreviousRecord(ctx context.Context, clientID string, before time.Time, beforeID string) (*traffic.Record, error) {
	// Hex ids compare like the ObjectIDs they encode.
	earlier := bson.A{bson.M{"timestamp": bson.M{"$lt": before}}}
	if oid, err := bson.ObjectIDFromHex(beforeID); err == nil {
		earlier = append(earlier, bson.M{"timestamp": before, "_id": bson.M{"$lt": oid}})
	}
	filter := bson.M{"clientIP": clientID, "$or": earlier}

	var doc recordDoc
	err := s.records.FindOne(ctx, filter,
		options.FindOne().SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}})).
		Decode(&doc)
	if err != nil {
		return nil, wrap("previous record", err)
	}
	rec := doc.record()
	return &rec, nil
}

// wrap maps driver errors onto the traffic error vocabulary.
func wrap(op string, err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return traffic.ErrNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case mongo.IsNetworkError(err), mongo.IsTimeout(err), errors.Is(err, mongo.ErrClientDisconnected):
		return errors.Join(traffic.ErrStoreUnavailable, fmt.Errorf("mongo: %s: %w", op, err))
	default:
		return fmt.Errorf("mongo: %s: %w", op, err)
	}
}

var _ traffic.Store = (*Store)(nil)
