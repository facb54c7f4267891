package mongostore

import (
	"context"

	"github.com/pkg/errors"
	"github.com/raushankrgupta/temple-connect/models"
	"github.com/raushankrgupta/temple-connect/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type outreachRepo struct {
	c *mongo.Collection
}

func (r *outreachRepo) Create(ctx context.Context, c *models.OutreachContact) error {
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	_, err := r.c.InsertOne(ctx, c)
	return translate(err)
}

func (r *outreachRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.OutreachContact, error) {
	var c models.OutreachContact
	if err := r.c.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *outreachRepo) List(ctx context.Context, skip, limit int64) ([]models.OutreachContact, int64, error) {
	total, err := r.c.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, errors.Wrap(err, "counting outreach contacts")
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(skip)
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := r.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, errors.Wrap(err, "listing outreach contacts")
	}
	contacts := make([]models.OutreachContact, 0)
	if err := cursor.All(ctx, &contacts); err != nil {
		return nil, 0, errors.Wrap(err, "decoding outreach contacts")
	}
	return contacts, total, nil
}

func (r *outreachRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translate(err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}
