// Package memstore keeps every collection in process memory. It backs the
// service tests and STORE=memory local runs.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/raushankrgupta/temple-connect/models"
	"github.com/raushankrgupta/temple-connect/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type (
	DB struct {
		mutex     sync.RWMutex
		users     map[primitive.ObjectID]models.User
		otps      map[primitive.ObjectID]models.OTP
		outreach  map[primitive.ObjectID]models.OutreachContact
		followUps map[primitive.ObjectID]models.FollowUp
		programs  map[primitive.ObjectID]models.Program
		sessions  map[primitive.ObjectID]models.Session
		// seq orders records created within the same instant.
		seq   int64
		order map[primitive.ObjectID]int64
	}

	accountRepo  struct{ db *DB }
	otpRepo      struct{ db *DB }
	outreachRepo struct{ db *DB }
	followUpRepo struct{ db *DB }
	programRepo  struct{ db *DB }
)

func Open() *DB {
	return &DB{
		users:     make(map[primitive.ObjectID]models.User),
		otps:      make(map[primitive.ObjectID]models.OTP),
		outreach:  make(map[primitive.ObjectID]models.OutreachContact),
		followUps: make(map[primitive.ObjectID]models.FollowUp),
		programs:  make(map[primitive.ObjectID]models.Program),
		sessions:  make(map[primitive.ObjectID]models.Session),
		order:     make(map[primitive.ObjectID]int64),
	}
}

// New returns a store.Store backed by a fresh in-memory DB.
func New() *store.Store {
	return Open().Store()
}

func (db *DB) Store() *store.Store {
	return &store.Store{
		Accounts:  &accountRepo{db},
		OTPs:      &otpRepo{db},
		Outreach:  &outreachRepo{db},
		FollowUps: &followUpRepo{db},
		Programs:  &programRepo{db},
	}
}

// assignID must be called with the write lock held.
func (db *DB) assignID(id *primitive.ObjectID) {
	if id.IsZero() {
		*id = primitive.NewObjectID()
	}
	db.seq++
	db.order[*id] = db.seq
}

// ---- accounts ----

func (r *accountRepo) uniqueViolation(u *models.User) bool {
	for id, existing := range r.db.users {
		if id == u.ID {
			continue
		}
		if u.Email != "" && existing.Email == u.Email {
			return true
		}
		if u.Phone != "" && existing.Phone == u.Phone {
			return true
		}
	}
	return false
}

func (r *accountRepo) Create(_ context.Context, u *models.User) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	if r.uniqueViolation(u) {
		return store.ErrDuplicate
	}
	r.db.assignID(&u.ID)
	r.db.users[u.ID] = copyUser(*u)
	return nil
}

func (r *accountRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	u, ok := r.db.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	u = copyUser(u)
	return &u, nil
}

func (r *accountRepo) findOne(match func(models.User) bool) (*models.User, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	for _, u := range r.db.users {
		if match(u) {
			u = copyUser(u)
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r *accountRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	if email == "" {
		return nil, store.ErrNotFound
	}
	return r.findOne(func(u models.User) bool { return u.Email == email })
}

func (r *accountRepo) GetByPhone(_ context.Context, phone string) (*models.User, error) {
	if phone == "" {
		return nil, store.ErrNotFound
	}
	return r.findOne(func(u models.User) bool { return u.Phone == phone })
}

func (r *accountRepo) Update(_ context.Context, u *models.User) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	if _, ok := r.db.users[u.ID]; !ok {
		return store.ErrNotFound
	}
	if r.uniqueViolation(u) {
		return store.ErrDuplicate
	}
	r.db.users[u.ID] = copyUser(*u)
	return nil
}

func (r *accountRepo) list(match func(models.User) bool) []models.User {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	out := make([]models.User, 0)
	for _, u := range r.db.users {
		if match(u) {
			out = append(out, copyUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return r.db.order[out[i].ID] < r.db.order[out[j].ID]
	})
	return out
}

func (r *accountRepo) ListEligibleVolunteers(_ context.Context) ([]models.User, error) {
	return r.list(func(u models.User) bool {
		return u.Role.IsStaff() && u.IsActive && u.Status != models.StatusPending
	}), nil
}

func (r *accountRepo) ListByProgram(_ context.Context, programID primitive.ObjectID) ([]models.User, error) {
	return r.list(func(u models.User) bool { return u.HasProgram(programID) }), nil
}

func copyUser(u models.User) models.User {
	if u.Programs != nil {
		u.Programs = append([]primitive.ObjectID(nil), u.Programs...)
	}
	return u
}

// ---- otps ----

func (r *otpRepo) Create(_ context.Context, o *models.OTP) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	r.db.assignID(&o.ID)
	r.db.otps[o.ID] = *o
	return nil
}

func (r *otpRepo) Latest(_ context.Context, target string, channel models.Channel, purpose models.Purpose, now time.Time) (*models.OTP, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	var latest *models.OTP
	for _, o := range r.db.otps {
		if o.Target != target || o.Channel != channel || o.Purpose != purpose {
			continue
		}
		if !now.Before(o.ExpiresAt) {
			continue
		}
		if latest == nil || r.newer(o, *latest) {
			o := o
			latest = &o
		}
	}
	if latest == nil {
		return nil, store.ErrNotFound
	}
	return latest, nil
}

func (r *otpRepo) newer(a, b models.OTP) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return r.db.order[a.ID] > r.db.order[b.ID]
}

func (r *otpRepo) Consume(_ context.Context, id primitive.ObjectID, now time.Time) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	o, ok := r.db.otps[id]
	if !ok || o.ConsumedAt != nil {
		return store.ErrNotFound
	}
	o.ConsumedAt = &now
	r.db.otps[id] = o
	return nil
}

func (r *otpRepo) IncrementAttempts(_ context.Context, id primitive.ObjectID) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	o, ok := r.db.otps[id]
	if !ok {
		return store.ErrNotFound
	}
	o.Attempts++
	r.db.otps[id] = o
	return nil
}

// ---- outreach ----

func (r *outreachRepo) Create(_ context.Context, c *models.OutreachContact) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	r.db.assignID(&c.ID)
	r.db.outreach[c.ID] = *c
	return nil
}

func (r *outreachRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.OutreachContact, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	c, ok := r.db.outreach[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (r *outreachRepo) List(_ context.Context, skip, limit int64) ([]models.OutreachContact, int64, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	all := make([]models.OutreachContact, 0, len(r.db.outreach))
	for _, c := range r.db.outreach {
		all = append(all, c)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return r.db.order[all[i].ID] > r.db.order[all[j].ID]
	})

	total := int64(len(all))
	if skip >= total {
		return []models.OutreachContact{}, total, nil
	}
	end := total
	if limit > 0 && skip+limit < total {
		end = skip + limit
	}
	return all[skip:end], total, nil
}

func (r *outreachRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	if _, ok := r.db.outreach[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.db.outreach, id)
	return nil
}

// ---- follow-ups ----

// liveConflict must be called with a lock held.
func (r *followUpRepo) liveConflict(f *models.FollowUp) bool {
	if f.IsDeleted {
		return false
	}
	for id, existing := range r.db.followUps {
		if id == f.ID || existing.IsDeleted {
			continue
		}
		if existing.TargetID == f.TargetID && existing.ProgramDate.Equal(f.ProgramDate) {
			return true
		}
	}
	return false
}

func (r *followUpRepo) Create(_ context.Context, f *models.FollowUp) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	if r.liveConflict(f) {
		return store.ErrDuplicate
	}
	r.db.assignID(&f.ID)
	r.db.followUps[f.ID] = *f
	return nil
}

func (r *followUpRepo) ExistsActive(_ context.Context, targetID primitive.ObjectID, programDate time.Time) (bool, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	return r.liveConflict(&models.FollowUp{TargetID: targetID, ProgramDate: programDate}), nil
}

func (r *followUpRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.FollowUp, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	f, ok := r.db.followUps[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &f, nil
}

func (r *followUpRepo) Update(_ context.Context, f *models.FollowUp) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	if _, ok := r.db.followUps[f.ID]; !ok {
		return store.ErrNotFound
	}
	if r.liveConflict(f) {
		return store.ErrDuplicate
	}
	r.db.followUps[f.ID] = *f
	return nil
}

func matchFilter(f models.FollowUp, filter store.FollowUpFilter) bool {
	if f.IsDeleted {
		return false
	}
	if filter.AssignedTo != nil && f.AssignedTo != *filter.AssignedTo {
		return false
	}
	if filter.ProgramDate != nil && !f.ProgramDate.Equal(*filter.ProgramDate) {
		return false
	}
	return true
}

func (r *followUpRepo) List(_ context.Context, filter store.FollowUpFilter) ([]models.FollowUp, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	out := make([]models.FollowUp, 0)
	for _, f := range r.db.followUps {
		if matchFilter(f, filter) {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ProgramDate.Equal(out[j].ProgramDate) {
			return out[i].ProgramDate.Before(out[j].ProgramDate)
		}
		return r.db.order[out[i].ID] < r.db.order[out[j].ID]
	})
	return out, nil
}

func (r *followUpRepo) CountByVolunteer(_ context.Context, programDate *time.Time) ([]models.VolunteerLoad, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	loads := make(map[primitive.ObjectID]*models.VolunteerLoad)
	for _, f := range r.db.followUps {
		if !matchFilter(f, store.FollowUpFilter{ProgramDate: programDate}) {
			continue
		}
		l, ok := loads[f.AssignedTo]
		if !ok {
			l = &models.VolunteerLoad{VolunteerID: f.AssignedTo, ByStatus: make(map[models.FollowUpStatus]int)}
			loads[f.AssignedTo] = l
		}
		l.Total++
		l.ByStatus[f.Status]++
	}

	out := make([]models.VolunteerLoad, 0, len(loads))
	for _, l := range loads {
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VolunteerID.Hex() < out[j].VolunteerID.Hex() })
	return out, nil
}

func (r *followUpRepo) Retarget(_ context.Context, from, to primitive.ObjectID, toType models.TargetType) (int64, error) {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	var n int64
	for id, f := range r.db.followUps {
		if f.IsDeleted || f.TargetID != from {
			continue
		}
		f.TargetID = to
		f.TargetType = toType
		if r.liveConflict(&f) {
			// the new target already has a call that day
			f.IsDeleted = true
			deletedAt := time.Now().UTC()
			f.DeletedAt = &deletedAt
		} else {
			n++
		}
		r.db.followUps[id] = f
	}
	return n, nil
}

// ---- programs ----

func (r *programRepo) Create(_ context.Context, p *models.Program) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	for _, existing := range r.db.programs {
		if existing.Name == p.Name {
			return store.ErrDuplicate
		}
	}
	r.db.assignID(&p.ID)
	r.db.programs[p.ID] = *p
	return nil
}

func (r *programRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Program, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	p, ok := r.db.programs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (r *programRepo) List(_ context.Context) ([]models.Program, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	out := make([]models.Program, 0, len(r.db.programs))
	for _, p := range r.db.programs {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *programRepo) UpsertSession(_ context.Context, programID primitive.ObjectID, day time.Time, now time.Time) (*models.Session, error) {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	for _, s := range r.db.sessions {
		if s.ProgramID == programID && s.Date.Equal(day) {
			s = copySession(s)
			return &s, nil
		}
	}
	s := models.Session{ProgramID: programID, Date: day, Attendees: []primitive.ObjectID{}, CreatedAt: now}
	r.db.assignID(&s.ID)
	r.db.sessions[s.ID] = s
	s = copySession(s)
	return &s, nil
}

func (r *programRepo) MarkAttendance(_ context.Context, sessionID primitive.ObjectID, userIDs []primitive.ObjectID) (*models.Session, error) {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	s, ok := r.db.sessions[sessionID]
	if !ok {
		return nil, store.ErrNotFound
	}
	s = copySession(s)
	for _, id := range userIDs {
		if !containsID(s.Attendees, id) {
			s.Attendees = append(s.Attendees, id)
		}
	}
	r.db.sessions[sessionID] = s
	s = copySession(s)
	return &s, nil
}

func copySession(s models.Session) models.Session {
	s.Attendees = append([]primitive.ObjectID{}, s.Attendees...)
	return s
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}
