// Package followup assigns follow-up calls to volunteers and tracks their outcome.
package followup

import (
	"context"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/raushankrgupta/temple-connect/apperr"
	"github.com/raushankrgupta/temple-connect/models"
	"github.com/raushankrgupta/temple-connect/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Mode string

const (
	ModeEqual  Mode = "equal"
	ModeAuto   Mode = "auto"
	ModeManual Mode = "manual"
)

const defaultChannel = "phone"

// ErrAlreadyExists is reported for a target that already has a live follow-up that day.
var ErrAlreadyExists = apperr.Conflict("follow-up already exists for this date")

// Target references the participant or outreach contact to call.
type Target struct {
	Type models.TargetType `json:"type"`
	ID   string            `json:"id"`
}

// Pair is a manual assignment.
type Pair struct {
	Target
	VolunteerID string `json:"volunteerId"`
}

type AssignRequest struct {
	Mode         Mode     `json:"mode"`
	ProgramDate  string   `json:"programDate"`
	ProgramID    string   `json:"programId,omitempty"`
	Targets      []Target `json:"targets"`
	VolunteerIDs []string `json:"volunteerIds,omitempty"`
	Assignments  []Pair   `json:"assignments,omitempty"`
}

type DateRequest struct {
	ProgramID    string   `json:"programId"`
	Date         string   `json:"date"`
	Targets      []Target `json:"targets,omitempty"`
	VolunteerIDs []string `json:"volunteerIds,omitempty"`
}

type Assignment struct {
	FollowUpID  primitive.ObjectID `json:"followUpId"`
	TargetID    primitive.ObjectID `json:"targetId"`
	VolunteerID primitive.ObjectID `json:"volunteerId"`
}

// ItemError explains why one target was skipped.
type ItemError struct {
	TargetID string `json:"targetId"`
	Error    string `json:"error"`
}

type AssignResult struct {
	Created      int             `json:"created"`
	Assignments  []Assignment    `json:"assignments"`
	Errors       []ItemError     `json:"errors"`
	Distribution map[string]int  `json:"distribution"`
	Session      *models.Session `json:"session,omitempty"`
}

func newResult() *AssignResult {
	return &AssignResult{
		Assignments:  make([]Assignment, 0),
		Errors:       make([]ItemError, 0),
		Distribution: make(map[string]int),
	}
}

func (r *AssignResult) add(f *models.FollowUp) {
	r.Created++
	r.Assignments = append(r.Assignments, Assignment{FollowUpID: f.ID, TargetID: f.TargetID, VolunteerID: f.AssignedTo})
	r.Distribution[f.AssignedTo.Hex()]++
}

func (r *AssignResult) fail(targetID string, err error) {
	msg := "could not be assigned"
	if ae, ok := apperr.As(err); ok && ae.Kind != apperr.KindInternal {
		msg = ae.Message
	} else {
		zap.S().Errorw("assigning follow-up failed", "targetId", targetID, "error", err)
	}
	r.Errors = append(r.Errors, ItemError{TargetID: targetID, Error: msg})
}

// Exporter stores a generated file and returns a download link.
type Exporter interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

// Observer is told how many follow-ups each run created.
type Observer interface {
	Assigned(mode Mode, n int)
}

type nopObserver struct{}

func (nopObserver) Assigned(Mode, int) {}

type Service struct {
	accounts  store.Accounts
	outreach  store.Outreach
	followUps store.FollowUps
	programs  store.Programs
	exporter  Exporter
	observer  Observer

	Now func() time.Time
}

func NewService(accounts store.Accounts, outreach store.Outreach, followUps store.FollowUps, programs store.Programs) *Service {
	return &Service{
		accounts:  accounts,
		outreach:  outreach,
		followUps: followUps,
		programs:  programs,
		observer:  nopObserver{},
		Now:       time.Now,
	}
}

// SetExporter enables Export. Without one Export reports the feature unavailable.
func (s *Service) SetExporter(e Exporter) {
	s.exporter = e
}

func (s *Service) SetObserver(o Observer) {
	if o != nil {
		s.observer = o
	}
}

// BulkAssign creates one pending follow-up per target for the program date.
// Targets that cannot be assigned are reported in the result and do not
// consume a rotation slot.
func (s *Service) BulkAssign(ctx context.Context, actor models.Actor, req AssignRequest) (*AssignResult, error) {
	day, err := parseDay(req.ProgramDate, "programDate")
	if err != nil {
		return nil, err
	}
	programID, err := optionalID(req.ProgramID, "programId")
	if err != nil {
		return nil, err
	}

	mode := Mode(strings.ToLower(string(req.Mode)))
	if mode == "" {
		mode = ModeEqual
	}

	var res *AssignResult
	switch mode {
	case ModeManual:
		if len(req.Assignments) == 0 {
			return nil, apperr.Validation("assignments are required in manual mode")
		}
		res, err = s.assignManual(ctx, actor, req.Assignments, day, programID)
	case ModeEqual, ModeAuto:
		if len(req.Targets) == 0 {
			return nil, apperr.Validation("targets are required")
		}
		var volunteers []models.User
		if mode == ModeAuto {
			volunteers, err = s.byWorkload(ctx, day)
		} else {
			volunteers, err = s.pool(ctx, req.VolunteerIDs)
		}
		if err != nil {
			return nil, err
		}
		res = s.distribute(ctx, actor, req.Targets, volunteers, day, programID)
	default:
		return nil, apperr.Validation("mode must be one of auto, equal, manual")
	}
	if err != nil {
		return nil, err
	}

	s.observer.Assigned(mode, res.Created)
	return res, nil
}

// CreateForDate opens the program session for the date and assigns the given
// targets, or every enrolled participant when none are given.
func (s *Service) CreateForDate(ctx context.Context, actor models.Actor, req DateRequest) (*AssignResult, error) {
	programID, err := primitive.ObjectIDFromHex(strings.TrimSpace(req.ProgramID))
	if err != nil {
		return nil, apperr.Validation("invalid programId")
	}
	day, err := parseDay(req.Date, "date")
	if err != nil {
		return nil, err
	}

	if _, err := s.programs.GetByID(ctx, programID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("program not found")
		}
		return nil, errors.Wrap(err, "finding program")
	}

	session, err := s.programs.UpsertSession(ctx, programID, day, s.Now().UTC())
	if err != nil {
		return nil, errors.Wrap(err, "opening session")
	}

	targets := req.Targets
	if len(targets) == 0 {
		enrolled, err := s.accounts.ListByProgram(ctx, programID)
		if err != nil {
			return nil, errors.Wrap(err, "listing enrolled participants")
		}
		for _, u := range enrolled {
			if u.Role.IsStaff() {
				continue
			}
			targets = append(targets, Target{Type: models.TargetUser, ID: u.ID.Hex()})
		}
	}

	res := newResult()
	if len(targets) > 0 {
		volunteers, err := s.pool(ctx, req.VolunteerIDs)
		if err != nil {
			return nil, err
		}
		res = s.distribute(ctx, actor, targets, volunteers, day, &programID)
	}
	res.Session = session

	s.observer.Assigned(ModeEqual, res.Created)
	return res, nil
}

// distribute is the round-robin loop. The rotation index only advances when
// a follow-up is actually created.
func (s *Service) distribute(ctx context.Context, actor models.Actor, targets []Target, volunteers []models.User, day time.Time, programID *primitive.ObjectID) *AssignResult {
	res := newResult()
	index := 0
	for _, t := range targets {
		f, err := s.resolve(ctx, t)
		if err == nil {
			f.AssignedTo = volunteers[index%len(volunteers)].ID
			err = s.create(ctx, actor, f, day, programID)
		}
		if err != nil {
			res.fail(t.ID, err)
			continue
		}
		index++
		res.add(f)
	}
	return res
}

func (s *Service) assignManual(ctx context.Context, actor models.Actor, pairs []Pair, day time.Time, programID *primitive.ObjectID) (*AssignResult, error) {
	eligible, err := s.accounts.ListEligibleVolunteers(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "listing volunteers")
	}
	byID := make(map[string]primitive.ObjectID, len(eligible))
	for _, v := range eligible {
		byID[v.ID.Hex()] = v.ID
	}

	res := newResult()
	for _, p := range pairs {
		volunteerID, ok := byID[strings.ToLower(strings.TrimSpace(p.VolunteerID))]
		if !ok {
			res.fail(p.ID, apperr.Validation("volunteer %q is not eligible", p.VolunteerID))
			continue
		}
		f, err := s.resolve(ctx, p.Target)
		if err == nil {
			f.AssignedTo = volunteerID
			err = s.create(ctx, actor, f, day, programID)
		}
		if err != nil {
			res.fail(p.ID, err)
			continue
		}
		res.add(f)
	}
	return res, nil
}

// pool returns the requested volunteers in the requested order, or every
// eligible volunteer ordered by creation when ids is empty.
func (s *Service) pool(ctx context.Context, ids []string) ([]models.User, error) {
	eligible, err := s.accounts.ListEligibleVolunteers(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "listing volunteers")
	}
	if len(ids) == 0 {
		if len(eligible) == 0 {
			return nil, apperr.Validation("no eligible volunteers")
		}
		return eligible, nil
	}

	byID := make(map[primitive.ObjectID]models.User, len(eligible))
	for _, v := range eligible {
		byID[v.ID] = v
	}
	seen := make(map[primitive.ObjectID]bool, len(ids))
	out := make([]models.User, 0, len(ids))
	for _, raw := range ids {
		id, err := primitive.ObjectIDFromHex(strings.TrimSpace(raw))
		if err != nil {
			return nil, apperr.Validation("invalid volunteer id %q", raw)
		}
		v, ok := byID[id]
		if !ok {
			return nil, apperr.Validation("volunteer %q is not eligible", raw)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, v)
	}
	return out, nil
}

// byWorkload orders eligible volunteers by their live follow-ups on day,
// lightest first. Ties keep creation order.
func (s *Service) byWorkload(ctx context.Context, day time.Time) ([]models.User, error) {
	volunteers, err := s.pool(ctx, nil)
	if err != nil {
		return nil, err
	}
	loads, err := s.followUps.CountByVolunteer(ctx, &day)
	if err != nil {
		return nil, errors.Wrap(err, "counting workload")
	}
	total := make(map[primitive.ObjectID]int, len(loads))
	for _, l := range loads {
		total[l.VolunteerID] = l.Total
	}
	sort.SliceStable(volunteers, func(i, j int) bool {
		return total[volunteers[i].ID] < total[volunteers[j].ID]
	})
	return volunteers, nil
}

// resolve builds a follow-up draft for t from the referenced record.
func (s *Service) resolve(ctx context.Context, t Target) (*models.FollowUp, error) {
	if !t.Type.Valid() {
		return nil, apperr.Validation("type must be user or outreach")
	}
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(t.ID))
	if err != nil {
		return nil, apperr.Validation("invalid id")
	}

	f := &models.FollowUp{TargetType: t.Type, TargetID: id}
	switch t.Type {
	case models.TargetUser:
		u, err := s.accounts.GetByID(ctx, id)
		if err != nil {
			return nil, notFound(err, "user not found")
		}
		f.TargetName, f.TargetPhone = u.Name, u.Phone
	case models.TargetOutreach:
		c, err := s.outreach.GetByID(ctx, id)
		if err != nil {
			return nil, notFound(err, "outreach contact not found")
		}
		f.TargetName, f.TargetPhone = c.Name, c.Phone
	}
	return f, nil
}

func (s *Service) create(ctx context.Context, actor models.Actor, f *models.FollowUp, day time.Time, programID *primitive.ObjectID) error {
	exists, err := s.followUps.ExistsActive(ctx, f.TargetID, day)
	if err != nil {
		return errors.Wrap(err, "checking existing follow-up")
	}
	if exists {
		return ErrAlreadyExists
	}

	now := s.Now().UTC()
	f.ProgramDate = day
	f.ProgramID = programID
	f.Status = models.FollowUpPending
	f.Channel = defaultChannel
	f.CreatedBy = actor.ID
	f.CreatedAt = now
	f.UpdatedAt = now

	if err := s.followUps.Create(ctx, f); err != nil {
		// a concurrent run got there first
		if errors.Is(err, store.ErrDuplicate) {
			return ErrAlreadyExists
		}
		return errors.Wrap(err, "creating follow-up")
	}
	return nil
}

func notFound(err error, message string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("%s", message)
	}
	return err
}

func parseDay(s, field string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, apperr.Validation("%s is required", field)
	}
	day, err := models.ParseDay(strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, apperr.Validation("%s must be a date (YYYY-MM-DD)", field)
	}
	return day, nil
}

func optionalID(s, field string) (*primitive.ObjectID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	id, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return nil, apperr.Validation("invalid %s", field)
	}
	return &id, nil
}
