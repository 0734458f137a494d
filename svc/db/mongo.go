package db

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bindrop/pkg/domain"
	"bindrop/pkg/ident"
)

// mongoMaxDataSize leaves headroom under MongoDB's 16 MiB document limit
// for the metadata fields next to the payload.
const mongoMaxDataSize = 15 * 1024 * 1024

// Mongo backend: 12-byte ObjectID identifiers generated by the driver,
// one BSON document per paste, TTL index on best_before.
type Mongo struct {
	client *mongo.Client
	coll   *mongo.Collection
}

type mongoEntry struct {
	ID         primitive.ObjectID `bson:"_id"`
	Data       primitive.Binary   `bson:"data"`
	FileName   string             `bson:"file_name,omitempty"`
	MimeType   string             `bson:"mime_type"`
	BestBefore *time.Time         `bson:"best_before,omitempty"`
}

func NewMongo(ctx context.Context, uri, database, collection string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "connect mongo")
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, errors.Wrap(err, "ping mongo")
	}
	coll := client.Database(database).Collection(collection)
	// mongod sweeps documents past best_before on its own; reads still
	// filter because the sweep runs on a coarse interval.
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "best_before", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		return nil, errors.Wrap(err, "create ttl index")
	}
	return &Mongo{client: client, coll: coll}, nil
}

func (m *Mongo) decodeID(id string) (primitive.ObjectID, error) {
	raw, err := ident.DecodeObjectID(id)
	if err != nil {
		return primitive.NilObjectID, err
	}
	var oid primitive.ObjectID
	copy(oid[:], raw)
	return oid, nil
}

func (m *Mongo) Put(ctx context.Context, entry *domain.PasteEntry) (string, error) {
	oid := primitive.NewObjectID()
	doc := mongoEntry{
		ID:         oid,
		Data:       primitive.Binary{Subtype: 0x00, Data: entry.Data},
		FileName:   entry.FileName,
		MimeType:   entry.MimeType,
		BestBefore: entry.BestBefore,
	}
	if _, err := m.coll.InsertOne(ctx, doc); err != nil {
		return "", domain.WrapStorage(errors.Wrap(err, "insert paste"))
	}
	return ident.EncodeBytes(oid[:]), nil
}

func (m *Mongo) Get(ctx context.Context, id string) (*domain.PasteEntry, error) {
	oid, err := m.decodeID(id)
	if err != nil {
		return nil, err
	}
	var doc mongoEntry
	err = m.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrIDNotFound
		}
		return nil, domain.WrapStorage(errors.Wrap(err, "find paste"))
	}
	entry := &domain.PasteEntry{
		Data:       doc.Data.Data,
		FileName:   doc.FileName,
		MimeType:   doc.MimeType,
		BestBefore: doc.BestBefore,
	}
	if entry.Expired(time.Now()) {
		return nil, domain.ErrIDNotFound
	}
	return entry, nil
}

func (m *Mongo) FileName(ctx context.Context, id string) (string, error) {
	oid, err := m.decodeID(id)
	if err != nil {
		return "", err
	}
	var doc struct {
		FileName   string     `bson:"file_name,omitempty"`
		BestBefore *time.Time `bson:"best_before,omitempty"`
	}
	opts := options.FindOne().SetProjection(bson.M{"_id": 0, "file_name": 1, "best_before": 1})
	err = m.coll.FindOne(ctx, bson.M{"_id": oid}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", domain.ErrIDNotFound
		}
		return "", domain.WrapStorage(errors.Wrap(err, "find file name"))
	}
	if doc.BestBefore != nil && time.Now().After(*doc.BestBefore) {
		return "", domain.ErrIDNotFound
	}
	return doc.FileName, nil
}

func (m *Mongo) Remove(ctx context.Context, id string) error {
	oid, err := m.decodeID(id)
	if err != nil {
		return err
	}
	if _, err := m.coll.DeleteOne(ctx, bson.M{"_id": oid}); err != nil {
		return domain.WrapStorage(errors.Wrap(err, "delete paste"))
	}
	return nil
}

func (m *Mongo) MaxDataSize() int64 { return mongoMaxDataSize }

func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
