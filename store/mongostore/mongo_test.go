package mongostore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/raushankrgupta/temple-connect/models"
	"github.com/raushankrgupta/temple-connect/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil))
	assert.ErrorIs(t, translate(mongo.ErrNoDocuments), store.ErrNotFound)

	dup := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}
	assert.ErrorIs(t, translate(dup), store.ErrDuplicate)

	other := errors.New("socket closed")
	assert.Equal(t, other, translate(other))
}

func TestFilterDoc(t *testing.T) {
	assert.Equal(t, bson.M{"is_deleted": false}, filterDoc(store.FollowUpFilter{}))

	vol := primitive.NewObjectID()
	day := models.Day(time.Now())
	assert.Equal(t, bson.M{
		"is_deleted":   false,
		"assigned_to":  vol,
		"program_date": day,
	}, filterDoc(store.FollowUpFilter{AssignedTo: &vol, ProgramDate: &day}))
}

// TestFollowUpUniqueIndex runs against a real server when MONGO_TEST_URI is set.
func TestFollowUpUniqueIndex(t *testing.T) {
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}
	ctx := context.Background()

	db, err := Connect(ctx, uri, "temple_test_"+primitive.NewObjectID().Hex())
	require.NoError(t, err)
	defer func() {
		_ = db.Database.Drop(ctx)
		_ = db.Disconnect(ctx)
	}()
	require.NoError(t, db.EnsureIndexes(ctx))

	s := db.Store()
	target := primitive.NewObjectID()
	day := models.Day(time.Now())

	first := &models.FollowUp{TargetID: target, AssignedTo: primitive.NewObjectID(), ProgramDate: day, Status: models.FollowUpPending}
	require.NoError(t, s.FollowUps.Create(ctx, first))
	err = s.FollowUps.Create(ctx, &models.FollowUp{TargetID: target, AssignedTo: primitive.NewObjectID(), ProgramDate: day})
	assert.ErrorIs(t, err, store.ErrDuplicate)

	first.IsDeleted = true
	require.NoError(t, s.FollowUps.Update(ctx, first))
	require.NoError(t, s.FollowUps.Create(ctx, &models.FollowUp{TargetID: target, AssignedTo: primitive.NewObjectID(), ProgramDate: day}))
}
