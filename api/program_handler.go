package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/raushankrgupta/temple-connect/apperr"
	"github.com/raushankrgupta/temple-connect/program"
	"github.com/raushankrgupta/temple-connect/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type enrolRequest struct {
	UserID string `json:"userId"`
}

func (h *Handler) ListPrograms(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLog(r, "List Programs API")
	defer logger.Flush()

	items, err := h.Programs.List(r.Context())
	if err != nil {
		utils.RespondAppError(w, logger, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"data": items})
}

func (h *Handler) CreateProgram(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLog(r, "Create Program API")
	defer logger.Flush()

	var req program.CreateRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondAppError(w, logger, err)
		return
	}

	s, _ := SessionFrom(r.Context())
	p, err := h.Programs.Create(r.Context(), s.Actor(), req)
	if err != nil {
		utils.RespondAppError(w, logger, err)
		return
	}

	logger.Add(fmt.Sprintf("Program %s created", p.ID.Hex()))
	utils.RespondJSON(w, http.StatusCreated, p)
}

// EnrolParticipant adds a user to a program
func (h *Handler) EnrolParticipant(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLog(r, "Enrol Participant API")
	defer logger.Flush()

	programID, err := pathID(r)
	if err != nil {
		utils.RespondAppError(w, logger, err)
		return
	}
	var req enrolRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondAppError(w, logger, err)
		return
	}
	userID, err := primitive.ObjectIDFromHex(strings.TrimSpace(req.UserID))
	if err != nil {
		utils.RespondAppError(w, logger, apperr.Validation("invalid userId"))
		return
	}

	user, err := h.Programs.Enrol(r.Context(), programID, userID)
	if err != nil {
		utils.RespondAppError(w, logger, err)
		return
	}

	logger.Add(fmt.Sprintf("User %s enrolled in %s", userID.Hex(), programID.Hex()))
	utils.RespondJSON(w, http.StatusOK, user)
}

func (h *Handler) MarkAttendance(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLog(r, "Mark Attendance API")
	defer logger.Flush()

	programID, err := pathID(r)
	if err != nil {
		utils.RespondAppError(w, logger, err)
		return
	}
	var req program.AttendanceRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondAppError(w, logger, err)
		return
	}

	session, err := h.Programs.MarkAttendance(r.Context(), programID, req)
	if err != nil {
		utils.RespondAppError(w, logger, err)
		return
	}

	logger.Add(fmt.Sprintf("Session %s has %d attendees", session.ID.Hex(), len(session.Attendees)))
	utils.RespondJSON(w, http.StatusOK, session)
}
