package roles

import (
	"context"
	"testing"
	"time"

	"github.com/raushankrgupta/temple-connect/apperr"
	"github.com/raushankrgupta/temple-connect/models"
	"github.com/raushankrgupta/temple-connect/store"
	"github.com/raushankrgupta/temple-connect/store/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCanChangeNeverTouchesPeersOrSuperiors(t *testing.T) {
	for _, actor := range models.AllRoles {
		for _, target := range models.AllRoles {
			if target.Rank() < actor.Rank() {
				continue
			}
			for _, desired := range models.AllRoles {
				assert.False(t, CanChange(actor, target, desired), "%s changing %s to %s", actor, target, desired)
			}
		}
	}
}

func TestCanChangeVolunteerCeiling(t *testing.T) {
	for _, target := range models.AllRoles {
		assert.False(t, CanChange(models.RoleVolunteer, target, models.RoleVolunteer), "target %s", target)
		assert.False(t, CanChange(models.RoleVolunteer, target, models.RoleAdmin), "target %s", target)
	}
}

func TestCanChangeAllowed(t *testing.T) {
	tests := []struct {
		actor, target, desired models.Role
		want                   bool
	}{
		{models.RoleAdmin, models.RoleVolunteer, models.RoleAdmin, true},
		{models.RoleAdmin, models.RoleGuest, models.RoleVolunteer, true},
		{models.RoleAdmin, models.RoleOutreach, models.RoleParticipant, true},
		{models.RoleVolunteer, models.RoleGuest, models.RoleParticipant, true},
		{models.RoleVolunteer, models.RoleParticipant, models.RoleGuest, true},
		{models.RoleVolunteer, models.RoleOutreach, models.RoleGuest, true},
		{models.RoleParticipant, models.RoleGuest, models.RoleOutreach, true},
		{models.RoleAdmin, models.RoleGuest, models.Role("king"), false},
		{models.Role("king"), models.RoleGuest, models.RoleGuest, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanChange(tt.actor, tt.target, tt.desired), "%s changing %s to %s", tt.actor, tt.target, tt.desired)
	}
}

func TestDecode(t *testing.T) {
	uid := primitive.NewObjectID()
	oid := primitive.NewObjectID()

	req, err := ChangeRoleBody{UserID: uid.Hex(), NewRole: "Participant"}.Decode()
	require.NoError(t, err)
	assert.Equal(t, ByUser{UserID: uid, NewRole: models.RoleParticipant}, req)

	req, err = ChangeRoleBody{OutreachID: oid.Hex(), NewRole: "guest"}.Decode()
	require.NoError(t, err)
	assert.Equal(t, ByOutreach{OutreachID: oid, NewRole: models.RoleGuest}, req)

	for _, body := range []ChangeRoleBody{
		{UserID: uid.Hex(), OutreachID: oid.Hex(), NewRole: "guest"},
		{NewRole: "guest"},
		{UserID: "xyz", NewRole: "guest"},
		{UserID: uid.Hex(), NewRole: "king"},
	} {
		_, err := body.Decode()
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err), "%+v", body)
	}
}

type fixture struct {
	svc   *Service
	store *store.Store
	admin models.Actor
	vol   models.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := memstore.New()
	return &fixture{
		svc:   NewService(s.Accounts, s.Outreach, s.FollowUps),
		store: s,
		admin: models.Actor{ID: primitive.NewObjectID(), Role: models.RoleAdmin},
		vol:   models.Actor{ID: primitive.NewObjectID(), Role: models.RoleVolunteer},
	}
}

func (f *fixture) user(t *testing.T, email, phone string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{Name: email, Email: email, Phone: phone, Role: role, Status: models.StatusActive, IsActive: true}
	require.NoError(t, f.store.Accounts.Create(context.Background(), u))
	return u
}

func TestChangeUserRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	original := primitive.NewObjectID()
	guest := f.user(t, "g@x.com", "", models.RoleGuest)
	guest.RegisteredBy = &original
	require.NoError(t, f.store.Accounts.Update(ctx, guest))

	res, err := f.svc.ChangeRole(ctx, f.vol, ByUser{UserID: guest.ID, NewRole: models.RoleParticipant})
	require.NoError(t, err)
	assert.Equal(t, models.RoleParticipant, res.User.Role)
	assert.Equal(t, f.vol.ID, *res.User.HandledBy)
	assert.Equal(t, original, *res.User.RegisteredBy, "original registrant is preserved")

	_, err = f.svc.ChangeRole(ctx, f.vol, ByUser{UserID: guest.ID, NewRole: models.RoleVolunteer})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	peer := f.user(t, "v@x.com", "", models.RoleVolunteer)
	_, err = f.svc.ChangeRole(ctx, f.vol, ByUser{UserID: peer.ID, NewRole: models.RoleGuest})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	res, err = f.svc.ChangeRole(ctx, f.admin, ByUser{UserID: peer.ID, NewRole: models.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, f.admin.ID, *res.User.RegisteredBy, "unset registrant becomes the actor")

	_, err = f.svc.ChangeRole(ctx, f.admin, ByUser{UserID: primitive.NewObjectID(), NewRole: models.RoleGuest})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestPromoteOutreachCreatesAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	registrar := primitive.NewObjectID()
	contact := &models.OutreachContact{Name: "Kiran", Phone: "+91 77777 77777", Profession: "Engineer", RegisteredBy: &registrar, CreatedAt: time.Now()}
	require.NoError(t, f.store.Outreach.Create(ctx, contact))

	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, f.store.FollowUps.Create(ctx, &models.FollowUp{TargetType: models.TargetOutreach, TargetID: contact.ID, AssignedTo: f.vol.ID, ProgramDate: day}))

	res, err := f.svc.ChangeRole(ctx, f.vol, ByOutreach{OutreachID: contact.ID, NewRole: models.RoleParticipant})
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, int64(1), res.Retargeted)

	u := res.User
	assert.Equal(t, "+917777777777", u.Phone)
	assert.Equal(t, models.RoleParticipant, u.Role)
	assert.Equal(t, registrar, *u.RegisteredBy)
	assert.Equal(t, f.vol.ID, *u.HandledBy)
	assert.Equal(t, contact.ID, *u.SourceOutreachID)
	assert.True(t, u.IsPending(), "no password yet, still cannot log in")

	_, err = f.store.Outreach.GetByID(ctx, contact.ID)
	assert.ErrorIs(t, err, store.ErrNotFound, "contact is deleted after promotion")

	live, err := f.store.FollowUps.List(ctx, store.FollowUpFilter{})
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, u.ID, live[0].TargetID)
	assert.Equal(t, models.TargetUser, live[0].TargetType)
}

func TestPromoteOutreachToStaffStaysInactive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	contact := &models.OutreachContact{Name: "Kiran", Phone: "+917777777777"}
	require.NoError(t, f.store.Outreach.Create(ctx, contact))

	res, err := f.svc.ChangeRole(ctx, f.admin, ByOutreach{OutreachID: contact.ID, NewRole: models.RoleVolunteer})
	require.NoError(t, err)
	require.True(t, res.Created)
	assert.False(t, res.User.IsActive, "only a signup verification activates an account")
	assert.True(t, res.User.IsPending())
	assert.False(t, res.User.CanLogin())

	stored, err := f.store.Accounts.GetByID(ctx, res.User.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)

	eligible, err := f.store.Accounts.ListEligibleVolunteers(ctx)
	require.NoError(t, err)
	for _, v := range eligible {
		assert.NotEqual(t, res.User.ID, v.ID, "a passwordless placeholder is not handed calls")
	}
}

func TestPromoteOutreachMergesExisting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	existing := f.user(t, "k@x.com", "+917777777777", models.RoleGuest)
	contact := &models.OutreachContact{Name: "Kiran", Phone: "+917777777777", Profession: "Engineer"}
	require.NoError(t, f.store.Outreach.Create(ctx, contact))

	res, err := f.svc.ChangeRole(ctx, f.admin, ByOutreach{OutreachID: contact.ID, NewRole: models.RoleVolunteer})
	require.NoError(t, err)
	assert.True(t, res.Merged)
	assert.Equal(t, existing.ID, res.User.ID)
	assert.Equal(t, models.RoleVolunteer, res.User.Role)
	assert.Equal(t, "Engineer", res.User.Profession)

	_, err = f.store.Outreach.GetByID(ctx, contact.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPromoteOutreachDenied(t *testing.T) {
	tests := []struct {
		name     string
		existing models.Role
		desired  models.Role
	}{
		{"volunteer cannot mint a volunteer", "", models.RoleVolunteer},
		{"volunteer cannot mint an admin", "", models.RoleAdmin},
		{"existing account is a peer", models.RoleVolunteer, models.RoleGuest},
		{"existing account is a superior", models.RoleAdmin, models.RoleParticipant},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			if tt.existing != "" {
				f.user(t, "e@x.com", "+916666666666", tt.existing)
			}
			contact := &models.OutreachContact{Name: "C", Phone: "+916666666666"}
			require.NoError(t, f.store.Outreach.Create(ctx, contact))

			_, err := f.svc.ChangeRole(ctx, f.vol, ByOutreach{OutreachID: contact.ID, NewRole: tt.desired})
			assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

			_, err = f.store.Outreach.GetByID(ctx, contact.ID)
			assert.NoError(t, err, "contact is kept when the change is denied")
		})
	}
}
