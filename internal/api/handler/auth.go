package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"fixmycity/backend/internal/activity"
	"fixmycity/backend/internal/auth"
	"fixmycity/backend/internal/models"
	"fixmycity/backend/internal/otp"
	"fixmycity/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson"
)

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Phone    string `json:"phone"`
	Language string `json:"language" binding:"omitempty,oneof=en hi"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type updateProfileRequest struct {
	Name     *string `json:"name"`
	Phone    *string `json:"phone"`
	Language *string `json:"language" binding:"omitempty,oneof=en hi"`
	Password *string `json:"password" binding:"omitempty,min=8"`
}

type otpRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Language string `json:"language"`
}

type otpVerifyRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required"`
}

func bind(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			err = errInvalidBody
		}
		fail(c, err)
		return false
	}
	return true
}

// token issues a bearer token for p and writes the login response.
func (h *Handler) token(c *gin.Context, p *models.Principal, status int, account interface{}) {
	token, err := h.JWT.Generate(p)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, status, gin.H{"token": token, string(p.Kind): account})
}

// Register creates a citizen account.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if !bind(c, &req) {
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	u := &models.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        req.Email,
		Phone:        strings.TrimSpace(req.Phone),
		PasswordHash: hash,
		Language:     req.Language,
	}
	if err := h.Store.CreateUser(c.Request.Context(), u); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			err = errAccountInUse
		}
		fail(c, err)
		return
	}
	h.audit(c, activity.Entry{Actor: u.Principal(), Action: activity.ActionRegister, TargetType: "user", TargetID: u.ID.Hex(), Success: true})
	h.token(c, u.Principal(), http.StatusCreated, u)
}

// Login authenticates a citizen with email and password.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if !bind(c, &req) {
		return
	}
	u, err := h.Store.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			err = errLoginFailed
		}
		fail(c, err)
		return
	}
	if err := auth.CheckPassword(u.PasswordHash, req.Password); err != nil {
		h.audit(c, activity.Entry{Actor: u.Principal(), Action: activity.ActionLogin, TargetType: "user", TargetID: u.ID.Hex(), Success: false})
		fail(c, errLoginFailed)
		return
	}
	if u.Status != models.StatusActive {
		fail(c, errAccountBlocked)
		return
	}
	h.audit(c, activity.Entry{Actor: u.Principal(), Action: activity.ActionLogin, TargetType: "user", TargetID: u.ID.Hex(), Success: true})
	h.token(c, u.Principal(), http.StatusOK, u)
}

// Me returns the caller's account.
func (h *Handler) Me(c *gin.Context) {
	u, err := h.Store.GetUserByID(c.Request.Context(), principal(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"user": u})
}

// UpdateMe edits the caller's profile.
func (h *Handler) UpdateMe(c *gin.Context) {
	var req updateProfileRequest
	if !bind(c, &req) {
		return
	}
	set := bson.M{}
	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		set["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Phone != nil {
		set["phone"] = strings.TrimSpace(*req.Phone)
	}
	if req.Language != nil {
		set["language"] = *req.Language
	}
	if req.Password != nil {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			fail(c, err)
			return
		}
		set["passwordHash"] = hash
	}
	if len(set) == 0 {
		fail(c, errInvalidBody)
		return
	}

	p := principal(c)
	ctx := c.Request.Context()
	if err := h.Store.UpdateUser(ctx, p.ID, set); err != nil {
		fail(c, err)
		return
	}
	h.audit(c, activity.Entry{Action: activity.ActionProfileUpdated, TargetType: "user", TargetID: p.ID.Hex(), Success: true, Changed: changedKeys(set)})

	u, err := h.Store.GetUserByID(ctx, p.ID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"user": u})
}

// DeleteMe removes the caller's account.
func (h *Handler) DeleteMe(c *gin.Context) {
	p := principal(c)
	if err := h.Store.DeleteUser(c.Request.Context(), p.ID); err != nil {
		fail(c, err)
		return
	}
	h.audit(c, activity.Entry{Action: activity.ActionAccountDeleted, TargetType: "user", TargetID: p.ID.Hex(), Success: true})
	ok(c, http.StatusOK, gin.H{"message": "Account deleted"})
}

// RequestOTP mails a one-time login code.
func (h *Handler) RequestOTP(c *gin.Context) {
	var req otpRequest
	if !bind(c, &req) {
		return
	}
	if err := h.OTP.Request(c.Request.Context(), req.Email, req.Language); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"message": "OTP sent"})
}

// VerifyOTP exchanges a valid code for a user token.
func (h *Handler) VerifyOTP(c *gin.Context) {
	var req otpVerifyRequest
	if !bind(c, &req) {
		return
	}
	ctx := c.Request.Context()
	if err := h.OTP.Verify(ctx, req.Email, req.OTP); err != nil {
		fail(c, err)
		return
	}
	u, err := h.Store.GetUserByEmail(ctx, otp.NormalizeEmail(req.Email))
	if err != nil {
		fail(c, err)
		return
	}
	if u.Status != models.StatusActive {
		fail(c, errAccountBlocked)
		return
	}
	h.audit(c, activity.Entry{Actor: u.Principal(), Action: activity.ActionOTPVerified, TargetType: "user", TargetID: u.ID.Hex(), Success: true})
	h.token(c, u.Principal(), http.StatusOK, u)
}

// AdminLogin authenticates an administrator.
func (h *Handler) AdminLogin(c *gin.Context) {
	var req loginRequest
	if !bind(c, &req) {
		return
	}
	ctx := c.Request.Context()
	a, err := h.Store.GetAdminByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			err = errLoginFailed
		}
		fail(c, err)
		return
	}
	if err := auth.CheckPassword(a.PasswordHash, req.Password); err != nil {
		h.audit(c, activity.Entry{Actor: a.Principal(), Action: activity.ActionLogin, TargetType: "admin", TargetID: a.ID.Hex(), Success: false})
		fail(c, errLoginFailed)
		return
	}
	if a.Status != models.StatusActive {
		fail(c, errAccountBlocked)
		return
	}
	now := time.Now().UTC()
	if err := h.Store.UpdateAdmin(ctx, a.ID, bson.M{"lastLoginAt": now}); err == nil {
		a.LastLoginAt = &now
	}
	h.audit(c, activity.Entry{Actor: a.Principal(), Action: activity.ActionLogin, TargetType: "admin", TargetID: a.ID.Hex(), Success: true})
	h.token(c, a.Principal(), http.StatusOK, a)
}

// WorkerLogin authenticates a field worker.
func (h *Handler) WorkerLogin(c *gin.Context) {
	var req loginRequest
	if !bind(c, &req) {
		return
	}
	w, err := h.Store.GetWorkerByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			err = errLoginFailed
		}
		fail(c, err)
		return
	}
	if err := auth.CheckPassword(w.PasswordHash, req.Password); err != nil {
		h.audit(c, activity.Entry{Actor: w.Principal(), Action: activity.ActionLogin, TargetType: "worker", TargetID: w.ID.Hex(), Success: false})
		fail(c, errLoginFailed)
		return
	}
	if w.Status != models.StatusActive {
		fail(c, errAccountBlocked)
		return
	}
	h.audit(c, activity.Entry{Actor: w.Principal(), Action: activity.ActionLogin, TargetType: "worker", TargetID: w.ID.Hex(), Success: true})
	h.token(c, w.Principal(), http.StatusOK, w)
}

func changedKeys(set bson.M) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		if k == "passwordHash" {
			k = "password"
		}
		out = append(out, k)
	}
	return out
}
