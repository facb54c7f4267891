package mongostore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/raushankrgupta/temple-connect/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type programRepo struct {
	c        *mongo.Collection
	sessions *mongo.Collection
}

func (r *programRepo) Create(ctx context.Context, p *models.Program) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	_, err := r.c.InsertOne(ctx, p)
	return translate(err)
}

func (r *programRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Program, error) {
	var p models.Program
	if err := r.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *programRepo) List(ctx context.Context) ([]models.Program, error) {
	cursor, err := r.c.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(err, "listing programs")
	}
	out := make([]models.Program, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, errors.Wrap(err, "decoding programs")
	}
	return out, nil
}

func (r *programRepo) UpsertSession(ctx context.Context, programID primitive.ObjectID, day time.Time, now time.Time) (*models.Session, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	update := bson.M{"$setOnInsert": bson.M{
		"attendees":  []primitive.ObjectID{},
		"created_at": now,
	}}

	var s models.Session
	err := r.sessions.FindOneAndUpdate(ctx, bson.M{"program_id": programID, "date": day}, update, opts).Decode(&s)
	if mongo.IsDuplicateKeyError(err) {
		// lost an upsert race; the other writer's session is there now
		err = r.sessions.FindOne(ctx, bson.M{"program_id": programID, "date": day}).Decode(&s)
	}
	if err != nil {
		return nil, errors.Wrap(translate(err), "upserting session")
	}
	return &s, nil
}

func (r *programRepo) MarkAttendance(ctx context.Context, sessionID primitive.ObjectID, userIDs []primitive.ObjectID) (*models.Session, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{"$addToSet": bson.M{"attendees": bson.M{"$each": userIDs}}}

	var s models.Session
	if err := r.sessions.FindOneAndUpdate(ctx, bson.M{"_id": sessionID}, update, opts).Decode(&s); err != nil {
		return nil, translate(err)
	}
	return &s, nil
}
