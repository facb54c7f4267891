package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/raushankrgupta/temple-connect/account"
	"github.com/raushankrgupta/temple-connect/models"
	"github.com/raushankrgupta/temple-connect/utils"
)

// VerifyOTPRequest represents the payload for verifying a signup code
type VerifyOTPRequest struct {
	Target  string         `json:"target"`
	Email   string         `json:"email"`
	Phone   string         `json:"phone"`
	Channel models.Channel `json:"channel"`
	OTP     string         `json:"otp"`
}

// resolve picks the channel and target, preferring phone when no channel is given.
func (req VerifyOTPRequest) resolve() (string, models.Channel) {
	channel := models.Channel(strings.ToLower(string(req.Channel)))
	if channel == "" {
		channel = models.ChannelEmail
		if req.Phone != "" {
			channel = models.ChannelPhone
		}
	}
	if req.Target != "" {
		return req.Target, channel
	}
	if channel == models.ChannelPhone {
		return req.Phone, channel
	}
	return req.Email, channel
}

// LoginRequest represents the payload for user login
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Password   string `json:"password"`
}

// ForgotPasswordRequest represents the payload for forgot password
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// VerifyResetRequest represents the payload for verifying a reset code
type VerifyResetRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// ResetPasswordRequest represents the payload for resetting password
type ResetPasswordRequest struct {
	ResetToken  string `json:"resetToken"`
	NewPassword string `json:"newPassword"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Signup handles user registration
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLog(r, "Signup API")
	defer logger.Flush()

	var req account.SignupRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondAppError(w, logger, err)
		return
	}

	res, err := h.Accounts.Signup(r.Context(), req)
	if err != nil {
		utils.RespondAppError(w, logger, err)
		return
	}

	logger.Add(fmt.Sprintf("Verification code for user %s sent via %s", res.UserID.Hex(), res.Target))
	utils.RespondJSON(w, http.StatusOK, res)
}

// VerifyOTP activates an account and starts its session
func (h *Handler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLog(r, "Verify OTP API")
	defer logger.Flush()

	var req VerifyOTPRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondAppError(w, logger, err)
		return
	}

	target, channel := req.resolve()
	res, err := h.Accounts.VerifySignup(r.Context(), target, req.OTP, channel)
	if err != nil {
		utils.RespondAppError(w, logger, err)
		return
	}

	h.setSessionCookie(w, res.Token)
	logger.Add(fmt.Sprintf("User %s verified", res.User.ID.Hex()))
	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Account verified successfully",
		"user":    res.User,
		"token":   res.Token,
	})
}

// Login handles user login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLog(r, "Login API")
	defer logger.Flush()

	var req LoginRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondAppError(w, logger, err)
		return
	}

	identifier := req.Identifier
	if identifier == "" {
		identifier = req.Email
	}
	if identifier == "" {
		identifier = req.Phone
	}

	res, err := h.Accounts.Login(r.Context(), identifier, req.Password)
	if err != nil {
		utils.RespondAppError(w, logger, err)
		return
	}

	h.setSessionCookie(w, res.Token)
	logger.Add(fmt.Sprintf("User %s logged in", res.User.ID.Hex()))
	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Login successful",
		"user":    res.User,
		"token":   res.Token,
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLog(r, "Logout API")
	defer logger.Flush()

	h.clearSessionCookies(w)
	utils.RespondJSON(w, http.StatusOK, messageResponse{Message: "Logged out"})
}

// Me returns the signed-in account
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	s, _ := SessionFrom(r.Context())
	utils.RespondJSON(w, http.StatusOK, s.User)
}

// SendResetOTP emails a password reset code
func (h *Handler) SendResetOTP(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLog(r, "Forgot Password API")
	defer logger.Flush()

	var req ForgotPasswordRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondAppError(w, logger, err)
		return
	}

	if err := h.Accounts.SendResetOTP(r.Context(), req.Email); err != nil {
		utils.RespondAppError(w, logger, err)
		return
	}

	logger.Add("Reset code sent")
	utils.RespondJSON(w, http.StatusOK, messageResponse{Message: "OTP sent to your email"})
}

// VerifyResetOTP exchanges a reset code for a reset token
func (h *Handler) VerifyResetOTP(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLog(r, "Verify Reset OTP API")
	defer logger.Flush()

	var req VerifyResetRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondAppError(w, logger, err)
		return
	}

	token, err := h.Accounts.VerifyResetOTP(r.Context(), req.Email, req.OTP)
	if err != nil {
		utils.RespondAppError(w, logger, err)
		return
	}

	logger.Add("Reset code verified")
	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"message":    "OTP verified",
		"resetToken": token,
	})
}

// ResetPassword sets a new password using a reset token
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLog(r, "Reset Password API")
	defer logger.Flush()

	var req ResetPasswordRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondAppError(w, logger, err)
		return
	}

	if err := h.Accounts.ResetPassword(r.Context(), req.ResetToken, req.NewPassword); err != nil {
		utils.RespondAppError(w, logger, err)
		return
	}

	logger.Add("Password reset")
	utils.RespondJSON(w, http.StatusOK, messageResponse{Message: "Password reset successfully"})
}

// GetProfile returns the caller's profile
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLog(r, "Get Profile API")
	defer logger.Flush()

	s, _ := SessionFrom(r.Context())
	user, err := h.Accounts.GetProfile(r.Context(), s.User.ID)
	if err != nil {
		utils.RespondAppError(w, logger, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, user)
}

// UpdateProfile edits the caller's own profile fields
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLog(r, "Update Profile API")
	defer logger.Flush()

	var req account.ProfileUpdate
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondAppError(w, logger, err)
		return
	}

	s, _ := SessionFrom(r.Context())
	user, err := h.Accounts.UpdateProfile(r.Context(), s.User.ID, req)
	if err != nil {
		utils.RespondAppError(w, logger, err)
		return
	}

	logger.Add(fmt.Sprintf("Profile updated for user %s", user.ID.Hex()))
	utils.RespondJSON(w, http.StatusOK, user)
}
