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

type accountRepo struct {
	c *mongo.Collection
}

func (r *accountRepo) Create(ctx context.Context, u *models.User) error {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	_, err := r.c.InsertOne(ctx, u)
	return translate(err)
}

func (r *accountRepo) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := r.c.FindOne(ctx, filter).Decode(&u); err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *accountRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *accountRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if email == "" {
		return nil, store.ErrNotFound
	}
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *accountRepo) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	if phone == "" {
		return nil, store.ErrNotFound
	}
	return r.findOne(ctx, bson.M{"phone": phone})
}

func (r *accountRepo) Update(ctx context.Context, u *models.User) error {
	res, err := r.c.ReplaceOne(ctx, bson.M{"_id": u.ID}, u)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *accountRepo) list(ctx context.Context, filter bson.M) ([]models.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrap(err, "listing users")
	}
	users := make([]models.User, 0)
	if err := cursor.All(ctx, &users); err != nil {
		return nil, errors.Wrap(err, "decoding users")
	}
	return users, nil
}

func (r *accountRepo) ListEligibleVolunteers(ctx context.Context) ([]models.User, error) {
	return r.list(ctx, bson.M{
		"role":      bson.M{"$in": []models.Role{models.RoleVolunteer, models.RoleAdmin}},
		"is_active": true,
		"status":    bson.M{"$ne": models.StatusPending},
	})
}

func (r *accountRepo) ListByProgram(ctx context.Context, programID primitive.ObjectID) ([]models.User, error) {
	return r.list(ctx, bson.M{"programs": programID})
}
