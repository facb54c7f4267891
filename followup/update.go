package followup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/raushankrgupta/temple-connect/apperr"
	"github.com/raushankrgupta/temple-connect/models"
	"github.com/raushankrgupta/temple-connect/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const noteTimeLayout = "2006-01-02 15:04"

var channels = map[string]bool{
	"phone":     true,
	"whatsapp":  true,
	"sms":       true,
	"in_person": true,
}

// UpdateRequest carries the fields a call outcome may change. Notes are appended.
type UpdateRequest struct {
	Status  *string `json:"status"`
	Notes   *string `json:"notes"`
	Channel *string `json:"channel"`
}

func (s *Service) live(ctx context.Context, id primitive.ObjectID) (*models.FollowUp, error) {
	f, err := s.followUps.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) || (err == nil && f.IsDeleted) {
		return nil, apperr.NotFound("follow-up not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "finding follow-up")
	}
	return f, nil
}

// Update records a call outcome. Only the assignee or an admin may update.
func (s *Service) Update(ctx context.Context, actor models.Actor, id primitive.ObjectID, req UpdateRequest) (*models.FollowUp, error) {
	f, err := s.live(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && f.AssignedTo != actor.ID {
		return nil, apperr.Forbidden("only the assigned volunteer or an admin can update this follow-up")
	}
	if req.Status == nil && req.Notes == nil && req.Channel == nil {
		return nil, apperr.Validation("nothing to update")
	}

	now := s.Now().UTC()
	if req.Status != nil {
		status, ok := ParseStatus(*req.Status)
		if !ok {
			return nil, apperr.Validation("unknown status %q", *req.Status)
		}
		f.Status = status
	}
	if req.Channel != nil {
		channel := strings.ToLower(strings.TrimSpace(*req.Channel))
		if !channels[channel] {
			return nil, apperr.Validation("channel must be one of phone, whatsapp, sms, in_person")
		}
		f.Channel = channel
	}
	if req.Notes != nil {
		if text := strings.TrimSpace(*req.Notes); text != "" {
			f.Notes = appendNote(f.Notes, now, authorName(actor), text)
		}
	}
	f.UpdatedAt = now

	if err := s.followUps.Update(ctx, f); err != nil {
		return nil, errors.Wrap(err, "updating follow-up")
	}
	return f, nil
}

func authorName(a models.Actor) string {
	if a.Name != "" {
		return a.Name
	}
	return a.ID.Hex()
}

func appendNote(notes string, at time.Time, author, text string) string {
	line := fmt.Sprintf("[%s] %s: %s", at.Format(noteTimeLayout), author, text)
	if notes == "" {
		return line
	}
	return notes + "\n" + line
}

// SoftDelete hides a follow-up from every listing and frees its target and
// date for a new assignment.
func (s *Service) SoftDelete(ctx context.Context, actor models.Actor, id primitive.ObjectID) error {
	if !actor.IsAdmin() {
		return apperr.Forbidden("only admins can delete follow-ups")
	}
	f, err := s.live(ctx, id)
	if err != nil {
		return err
	}

	now := s.Now().UTC()
	f.IsDeleted = true
	f.DeletedAt = &now
	f.UpdatedAt = now
	if err := s.followUps.Update(ctx, f); err != nil {
		return errors.Wrap(err, "deleting follow-up")
	}
	return nil
}

// Mine lists the live follow-ups assigned to actor, optionally for one day.
func (s *Service) Mine(ctx context.Context, actor models.Actor, day *time.Time) ([]models.FollowUp, error) {
	id := actor.ID
	out, err := s.followUps.List(ctx, store.FollowUpFilter{AssignedTo: &id, ProgramDate: day})
	if err != nil {
		return nil, errors.Wrap(err, "listing follow-ups")
	}
	return out, nil
}

// Stats reports the live workload of every eligible volunteer, zero loads
// included, followed by any other account still holding follow-ups.
func (s *Service) Stats(ctx context.Context, day *time.Time) ([]models.VolunteerLoad, error) {
	loads, err := s.followUps.CountByVolunteer(ctx, day)
	if err != nil {
		return nil, errors.Wrap(err, "counting follow-ups")
	}
	volunteers, err := s.accounts.ListEligibleVolunteers(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "listing volunteers")
	}

	byID := make(map[primitive.ObjectID]models.VolunteerLoad, len(loads))
	for _, l := range loads {
		byID[l.VolunteerID] = l
	}

	out := make([]models.VolunteerLoad, 0, len(volunteers)+len(loads))
	for _, v := range volunteers {
		l, ok := byID[v.ID]
		if !ok {
			l = models.VolunteerLoad{VolunteerID: v.ID}
		}
		delete(byID, v.ID)
		l.Name = v.Name
		out = append(out, withStatuses(l))
	}
	for _, l := range loads {
		if _, left := byID[l.VolunteerID]; !left {
			continue
		}
		if u, err := s.accounts.GetByID(ctx, l.VolunteerID); err == nil {
			l.Name = u.Name
		}
		out = append(out, withStatuses(l))
	}
	return out, nil
}

func withStatuses(l models.VolunteerLoad) models.VolunteerLoad {
	counts := make(map[models.FollowUpStatus]int, len(labels))
	for status := range labels {
		counts[status] = l.ByStatus[status]
	}
	l.ByStatus = counts
	return l
}
