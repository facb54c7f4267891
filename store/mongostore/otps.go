package mongostore

import (
	"context"
	"time"

	"github.com/raushankrgupta/temple-connect/models"
	"github.com/raushankrgupta/temple-connect/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type otpRepo struct {
	c *mongo.Collection
}

func (r *otpRepo) Create(ctx context.Context, o *models.OTP) error {
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	_, err := r.c.InsertOne(ctx, o)
	return translate(err)
}

func (r *otpRepo) Latest(ctx context.Context, target string, channel models.Channel, purpose models.Purpose, now time.Time) (*models.OTP, error) {
	filter := bson.M{
		"target":     target,
		"channel":    channel,
		"purpose":    purpose,
		"expires_at": bson.M{"$gt": now},
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})

	var o models.OTP
	if err := r.c.FindOne(ctx, filter, opts).Decode(&o); err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

// Consume only matches an unconsumed record, so concurrent verifies cannot both succeed.
func (r *otpRepo) Consume(ctx context.Context, id primitive.ObjectID, now time.Time) error {
	res, err := r.c.UpdateOne(ctx,
		bson.M{"_id": id, "consumed_at": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"consumed_at": now}},
	)
	if err != nil {
		return translate(err)
	}
	if res.ModifiedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *otpRepo) IncrementAttempts(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"attempts": 1}})
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}
