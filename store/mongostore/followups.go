package mongostore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/raushankrgupta/temple-connect/models"
	"github.com/raushankrgupta/temple-connect/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type followUpRepo struct {
	c *mongo.Collection
}

// Create relies on the partial unique index on (target_id, program_date).
func (r *followUpRepo) Create(ctx context.Context, f *models.FollowUp) error {
	if f.ID.IsZero() {
		f.ID = primitive.NewObjectID()
	}
	_, err := r.c.InsertOne(ctx, f)
	return translate(err)
}

func (r *followUpRepo) ExistsActive(ctx context.Context, targetID primitive.ObjectID, programDate time.Time) (bool, error) {
	n, err := r.c.CountDocuments(ctx, bson.M{
		"target_id":    targetID,
		"program_date": programDate,
		"is_deleted":   false,
	}, options.Count().SetLimit(1))
	if err != nil {
		return false, errors.Wrap(err, "checking existing follow-up")
	}
	return n > 0, nil
}

func (r *followUpRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.FollowUp, error) {
	var f models.FollowUp
	if err := r.c.FindOne(ctx, bson.M{"_id": id}).Decode(&f); err != nil {
		return nil, translate(err)
	}
	return &f, nil
}

func (r *followUpRepo) Update(ctx context.Context, f *models.FollowUp) error {
	res, err := r.c.ReplaceOne(ctx, bson.M{"_id": f.ID}, f)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func filterDoc(filter store.FollowUpFilter) bson.M {
	doc := bson.M{"is_deleted": false}
	if filter.AssignedTo != nil {
		doc["assigned_to"] = *filter.AssignedTo
	}
	if filter.ProgramDate != nil {
		doc["program_date"] = *filter.ProgramDate
	}
	return doc
}

func (r *followUpRepo) List(ctx context.Context, filter store.FollowUpFilter) ([]models.FollowUp, error) {
	opts := options.Find().SetSort(bson.D{{Key: "program_date", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.c.Find(ctx, filterDoc(filter), opts)
	if err != nil {
		return nil, errors.Wrap(err, "listing follow-ups")
	}
	out := make([]models.FollowUp, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, errors.Wrap(err, "decoding follow-ups")
	}
	return out, nil
}

type statusCount struct {
	ID struct {
		AssignedTo primitive.ObjectID    `bson:"assigned_to"`
		Status     models.FollowUpStatus `bson:"status"`
	} `bson:"_id"`
	Count int `bson:"count"`
}

func (r *followUpRepo) CountByVolunteer(ctx context.Context, programDate *time.Time) ([]models.VolunteerLoad, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: filterDoc(store.FollowUpFilter{ProgramDate: programDate})}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{{Key: "assigned_to", Value: "$assigned_to"}, {Key: "status", Value: "$status"}}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id.assigned_to", Value: 1}}}},
	}

	cursor, err := r.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, errors.Wrap(err, "aggregating follow-ups")
	}
	var rows []statusCount
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, errors.Wrap(err, "decoding follow-up counts")
	}

	out := make([]models.VolunteerLoad, 0)
	index := make(map[primitive.ObjectID]int)
	for _, row := range rows {
		i, ok := index[row.ID.AssignedTo]
		if !ok {
			i = len(out)
			index[row.ID.AssignedTo] = i
			out = append(out, models.VolunteerLoad{VolunteerID: row.ID.AssignedTo, ByStatus: make(map[models.FollowUpStatus]int)})
		}
		out[i].Total += row.Count
		out[i].ByStatus[row.ID.Status] += row.Count
	}
	return out, nil
}

// Retarget moves follow-ups one at a time; a move that would collide with an
// existing live follow-up for the new target soft-deletes the old record instead.
func (r *followUpRepo) Retarget(ctx context.Context, from, to primitive.ObjectID, toType models.TargetType) (int64, error) {
	cursor, err := r.c.Find(ctx, bson.M{"target_id": from, "is_deleted": false})
	if err != nil {
		return 0, errors.Wrap(err, "finding follow-ups to retarget")
	}
	var records []models.FollowUp
	if err := cursor.All(ctx, &records); err != nil {
		return 0, errors.Wrap(err, "decoding follow-ups to retarget")
	}

	var moved int64
	for _, f := range records {
		_, err := r.c.UpdateOne(ctx, bson.M{"_id": f.ID},
			bson.M{"$set": bson.M{"target_id": to, "target_type": toType}})
		if mongo.IsDuplicateKeyError(err) {
			now := time.Now().UTC()
			_, err = r.c.UpdateOne(ctx, bson.M{"_id": f.ID},
				bson.M{"$set": bson.M{"is_deleted": true, "deleted_at": now}})
			if err != nil {
				return moved, errors.Wrap(err, "soft-deleting colliding follow-up")
			}
			continue
		}
		if err != nil {
			return moved, errors.Wrap(err, "retargeting follow-up")
		}
		moved++
	}
	return moved, nil
}
