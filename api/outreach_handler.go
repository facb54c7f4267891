package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/raushankrgupta/temple-connect/apperr"
	"github.com/raushankrgupta/temple-connect/outreach"
	"github.com/raushankrgupta/temple-connect/roles"
	"github.com/raushankrgupta/temple-connect/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func pathID(r *http.Request) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		return primitive.NilObjectID, apperr.Validation("invalid id")
	}
	return id, nil
}

func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}

// RegisterOutreach records a contact. Open to the public
func (h *Handler) RegisterOutreach(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLog(r, "Register Outreach API")
	defer logger.Flush()

	var req outreach.RegisterRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondAppError(w, logger, err)
		return
	}

	var registeredBy *primitive.ObjectID
	if s, ok := SessionFrom(r.Context()); ok {
		id := s.User.ID
		registeredBy = &id
	}

	contact, err := h.Outreach.Register(r.Context(), req, registeredBy)
	if err != nil {
		utils.RespondAppError(w, logger, err)
		return
	}

	logger.Add(fmt.Sprintf("Outreach contact %s registered", contact.ID.Hex()))
	utils.RespondJSON(w, http.StatusCreated, contact)
}

func (h *Handler) ListOutreach(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLog(r, "List Outreach API")
	defer logger.Flush()

	page, err := h.Outreach.List(r.Context(), queryInt(r, "page"), queryInt(r, "limit"))
	if err != nil {
		utils.RespondAppError(w, logger, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, page)
}

func (h *Handler) DeleteOutreach(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLog(r, "Delete Outreach API")
	defer logger.Flush()

	id, err := pathID(r)
	if err != nil {
		utils.RespondAppError(w, logger, err)
		return
	}
	if err := h.Outreach.Delete(r.Context(), id); err != nil {
		utils.RespondAppError(w, logger, err)
		return
	}

	logger.Add(fmt.Sprintf("Outreach contact %s deleted", id.Hex()))
	utils.RespondJSON(w, http.StatusOK, messageResponse{Message: "Outreach contact deleted"})
}

// ChangeRole changes an account's role or promotes an outreach contact
func (h *Handler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLog(r, "Change Role API")
	defer logger.Flush()

	var body roles.ChangeRoleBody
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.RespondAppError(w, logger, err)
		return
	}
	req, err := body.Decode()
	if err != nil {
		utils.RespondAppError(w, logger, err)
		return
	}

	s, _ := SessionFrom(r.Context())
	res, err := h.Roles.ChangeRole(r.Context(), s.Actor(), req)
	if err != nil {
		utils.RespondAppError(w, logger, err)
		return
	}

	logger.Add(fmt.Sprintf("User %s is now %s (created=%t merged=%t)", res.User.ID.Hex(), res.User.Role, res.Created, res.Merged))
	utils.RespondJSON(w, http.StatusOK, res)
}
