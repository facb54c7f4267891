package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/raushankrgupta/temple-connect/apperr"
	"github.com/raushankrgupta/temple-connect/followup"
	"github.com/raushankrgupta/temple-connect/models"
	"github.com/raushankrgupta/temple-connect/utils"
)

// queryDay reads ?date=. A missing date is nil unless required.
func queryDay(r *http.Request, required bool) (*time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("date"))
	if raw == "" {
		if required {
			return nil, apperr.Validation("date is required")
		}
		return nil, nil
	}
	day, err := models.ParseDay(raw)
	if err != nil {
		return nil, apperr.Validation("date must be a date (YYYY-MM-DD)")
	}
	return &day, nil
}

// BulkAssign spreads targets over volunteers for a program date
func (h *Handler) BulkAssign(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLog(r, "Bulk Assign API")
	defer logger.Flush()

	var req followup.AssignRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondAppError(w, logger, err)
		return
	}

	s, _ := SessionFrom(r.Context())
	res, err := h.FollowUps.BulkAssign(r.Context(), s.Actor(), req)
	if err != nil {
		utils.RespondAppError(w, logger, err)
		return
	}

	logger.Add(fmt.Sprintf("Created %d follow-ups, %d skipped", res.Created, len(res.Errors)))
	utils.RespondJSON(w, http.StatusOK, res)
}

// CreateForDate opens a program session and assigns its calls
func (h *Handler) CreateForDate(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLog(r, "Create For Date API")
	defer logger.Flush()

	var req followup.DateRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondAppError(w, logger, err)
		return
	}

	s, _ := SessionFrom(r.Context())
	res, err := h.FollowUps.CreateForDate(r.Context(), s.Actor(), req)
	if err != nil {
		utils.RespondAppError(w, logger, err)
		return
	}

	logger.Add(fmt.Sprintf("Session %s: created %d follow-ups, %d skipped", res.Session.ID.Hex(), res.Created, len(res.Errors)))
	utils.RespondJSON(w, http.StatusOK, res)
}

func (h *Handler) UpdateFollowUp(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLog(r, "Update Follow-up API")
	defer logger.Flush()

	id, err := pathID(r)
	if err != nil {
		utils.RespondAppError(w, logger, err)
		return
	}
	var req followup.UpdateRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondAppError(w, logger, err)
		return
	}

	s, _ := SessionFrom(r.Context())
	f, err := h.FollowUps.Update(r.Context(), s.Actor(), id, req)
	if err != nil {
		utils.RespondAppError(w, logger, err)
		return
	}

	logger.Add(fmt.Sprintf("Follow-up %s is %s", id.Hex(), f.Status))
	utils.RespondJSON(w, http.StatusOK, f)
}

func (h *Handler) DeleteFollowUp(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLog(r, "Delete Follow-up API")
	defer logger.Flush()

	id, err := pathID(r)
	if err != nil {
		utils.RespondAppError(w, logger, err)
		return
	}

	s, _ := SessionFrom(r.Context())
	if err := h.FollowUps.SoftDelete(r.Context(), s.Actor(), id); err != nil {
		utils.RespondAppError(w, logger, err)
		return
	}

	logger.Add(fmt.Sprintf("Follow-up %s deleted", id.Hex()))
	utils.RespondJSON(w, http.StatusOK, messageResponse{Message: "Follow-up deleted"})
}

// VolunteerStats reports the live workload per volunteer
func (h *Handler) VolunteerStats(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLog(r, "Volunteer Stats API")
	defer logger.Flush()

	day, err := queryDay(r, false)
	if err != nil {
		utils.RespondAppError(w, logger, err)
		return
	}
	stats, err := h.FollowUps.Stats(r.Context(), day)
	if err != nil {
		utils.RespondAppError(w, logger, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"data": stats})
}

func (h *Handler) MyFollowUps(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLog(r, "My Follow-ups API")
	defer logger.Flush()

	day, err := queryDay(r, false)
	if err != nil {
		utils.RespondAppError(w, logger, err)
		return
	}
	s, _ := SessionFrom(r.Context())
	items, err := h.FollowUps.Mine(r.Context(), s.Actor(), day)
	if err != nil {
		utils.RespondAppError(w, logger, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"data": items})
}

// ExportFollowUps uploads the day's call list and links to it
func (h *Handler) ExportFollowUps(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLog(r, "Export Follow-ups API")
	defer logger.Flush()

	day, err := queryDay(r, true)
	if err != nil {
		utils.RespondAppError(w, logger, err)
		return
	}
	res, err := h.FollowUps.Export(r.Context(), *day)
	if err != nil {
		utils.RespondAppError(w, logger, err)
		return
	}

	logger.Add(fmt.Sprintf("Exported %d follow-ups to %s", res.Rows, res.Key))
	utils.RespondJSON(w, http.StatusOK, res)
}
