// Package mongostore implements the store contracts on MongoDB.
package mongostore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/raushankrgupta/temple-connect/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	usersCollection     = "users"
	otpsCollection      = "otps"
	outreachCollection  = "outreach"
	followUpsCollection = "followups"
	programsCollection  = "programs"
	sessionsCollection  = "sessions"
)

type DB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// Connect initializes the MongoDB connection and pings the server.
func Connect(ctx context.Context, uri, dbName string) (*DB, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to mongodb")
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, errors.Wrap(err, "failed to ping mongodb")
	}

	zap.S().Infow("Connected to MongoDB", "db", dbName)
	return &DB{Client: client, Database: client.Database(dbName)}, nil
}

func (db *DB) Disconnect(ctx context.Context) error {
	return db.Client.Disconnect(ctx)
}

// Collection returns a handle to a MongoDB collection
func (db *DB) Collection(name string) *mongo.Collection {
	return db.Database.Collection(name)
}

func (db *DB) Store() *store.Store {
	return &store.Store{
		Accounts:  &accountRepo{c: db.Collection(usersCollection)},
		OTPs:      &otpRepo{c: db.Collection(otpsCollection)},
		Outreach:  &outreachRepo{c: db.Collection(outreachCollection)},
		FollowUps: &followUpRepo{c: db.Collection(followUpsCollection)},
		Programs:  &programRepo{c: db.Collection(programsCollection), sessions: db.Collection(sessionsCollection)},
	}
}

// EnsureIndexes creates the indexes the repositories rely on for uniqueness and lookups.
func (db *DB) EnsureIndexes(ctx context.Context) error {
	nonEmptyString := func(field string) bson.D {
		return bson.D{{Key: field, Value: bson.D{{Key: "$type", Value: "string"}, {Key: "$gt", Value: ""}}}}
	}

	indexes := map[string][]mongo.IndexModel{
		usersCollection: {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetUnique(true).SetPartialFilterExpression(nonEmptyString("email")),
			},
			{
				Keys:    bson.D{{Key: "phone", Value: 1}},
				Options: options.Index().SetUnique(true).SetPartialFilterExpression(nonEmptyString("phone")),
			},
			{Keys: bson.D{{Key: "role", Value: 1}, {Key: "is_active", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "programs", Value: 1}}},
		},
		otpsCollection: {
			{Keys: bson.D{{Key: "target", Value: 1}, {Key: "channel", Value: 1}, {Key: "purpose", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
		},
		outreachCollection: {
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		},
		followUpsCollection: {
			{
				Keys: bson.D{{Key: "target_id", Value: 1}, {Key: "program_date", Value: 1}},
				Options: options.Index().SetUnique(true).
					SetPartialFilterExpression(bson.D{{Key: "is_deleted", Value: false}}),
			},
			{Keys: bson.D{{Key: "assigned_to", Value: 1}, {Key: "program_date", Value: 1}}},
		},
		programsCollection: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		sessionsCollection: {
			{Keys: bson.D{{Key: "program_id", Value: 1}, {Key: "date", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}

	for name, models := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return errors.Wrapf(err, "creating %s indexes", name)
		}
	}
	return nil
}

// translate maps driver errors onto the store sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return store.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return store.ErrDuplicate
	default:
		return err
	}
}
