package handler

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"fixmycity/backend/internal/activity"
	"fixmycity/backend/internal/auth"
	"fixmycity/backend/internal/logging"
	"fixmycity/backend/internal/models"
	"fixmycity/backend/internal/storage"
	"fixmycity/backend/internal/upload"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type createAdminRequest struct {
	Name     string           `json:"name" binding:"required"`
	Email    string           `json:"email" binding:"required,email"`
	Password string           `json:"password" binding:"required,min=8"`
	Role     models.AdminRole `json:"role" binding:"omitempty,oneof=admin superadmin"`
}

type createWorkerRequest struct {
	Name         string `json:"name" binding:"required"`
	Email        string `json:"email" binding:"required,email"`
	Password     string `json:"password" binding:"required,min=8"`
	EmployeeID   string `json:"employeeId" binding:"required"`
	Phone        string `json:"phone"`
	DepartmentID string `json:"department" binding:"required,objectid"`
	BlockID      string `json:"block" binding:"omitempty,objectid"`
}

type updateWorkerRequest struct {
	Name         *string `json:"name"`
	Phone        *string `json:"phone"`
	EmployeeID   *string `json:"employeeId"`
	DepartmentID *string `json:"department" binding:"omitempty,objectid"`
	BlockID      *string `json:"block" binding:"omitempty,objectid"`
	Password     *string `json:"password" binding:"omitempty,min=8"`
}

type accountStatusRequest struct {
	Status models.AccountStatus `json:"status" binding:"required,principalstatus"`
}

func principalFilter(c *gin.Context) (storage.PrincipalFilter, error) {
	f := storage.PrincipalFilter{
		Status: models.AccountStatus(c.Query("status")),
		Search: c.Query("search"),
	}
	if f.Status != "" && !f.Status.Valid() {
		return f, errInvalidQuery
	}
	if s := c.Query("department"); s != "" {
		id, err := storage.ParseID(s)
		if err != nil {
			return f, errInvalidID
		}
		f.DepartmentID = &id
	}
	if s := c.Query("block"); s != "" {
		id, err := storage.ParseID(s)
		if err != nil {
			return f, errInvalidID
		}
		f.BlockID = &id
	}
	return f, nil
}

// AdminMe returns the calling administrator.
func (h *Handler) AdminMe(c *gin.Context) {
	a, err := h.Store.GetAdminByID(c.Request.Context(), principal(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"admin": a})
}

// UpdateProfileImage replaces the caller's profile picture.
func (h *Handler) UpdateProfileImage(c *gin.Context) {
	fh, err := c.FormFile("image")
	if err != nil {
		fail(c, errNoFile)
		return
	}
	files, err := upload.ReadMultipart([]*multipart.FileHeader{fh})
	if err != nil {
		fail(c, err)
		return
	}

	ctx := c.Request.Context()
	p := principal(c)
	a, err := h.Store.GetAdminByID(ctx, p.ID)
	if err != nil {
		fail(c, err)
		return
	}
	url, err := h.ProfileFiles.Upload(ctx, files[0])
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.Store.UpdateAdmin(ctx, p.ID, bson.M{"profileImage": url}); err != nil {
		_ = h.ProfileFiles.Delete(ctx, url)
		fail(c, err)
		return
	}
	if a.ProfileImage != "" {
		if err := h.ProfileFiles.Delete(ctx, a.ProfileImage); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("url", a.ProfileImage).Msg("failed to remove old profile image")
		}
	}
	h.audit(c, activity.Entry{Action: activity.ActionProfileUpdated, TargetType: "admin", TargetID: p.ID.Hex(), Success: true, Changed: []string{"profileImage"}})
	ok(c, http.StatusOK, gin.H{"profileImage": url})
}

// --- admins (superadmin only) ---

func (h *Handler) ListAdmins(c *gin.Context) {
	f, err := principalFilter(c)
	if err != nil {
		fail(c, err)
		return
	}
	page := pageFrom(c)
	admins, total, err := h.Store.ListAdmins(c.Request.Context(), f, page)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"admins": storage.NewPagedResult(admins, total, page)})
}

func (h *Handler) CreateAdmin(c *gin.Context) {
	var req createAdminRequest
	if !bind(c, &req) {
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	creator := principal(c).ID
	a := &models.Admin{
		Name:         strings.TrimSpace(req.Name),
		Email:        req.Email,
		PasswordHash: hash,
		Role:         req.Role,
		CreatedBy:    &creator,
	}
	if err := h.Store.CreateAdmin(c.Request.Context(), a); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			err = errAccountInUse
		}
		fail(c, err)
		return
	}
	h.audit(c, activity.Entry{Action: activity.ActionAdminCreated, TargetType: "admin", TargetID: a.ID.Hex(), Success: true,
		Details: map[string]interface{}{"role": a.Role}})
	ok(c, http.StatusCreated, gin.H{"admin": a})
}

func (h *Handler) SetAdminStatus(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var req accountStatusRequest
	if !bind(c, &req) {
		return
	}
	if id == principal(c).ID {
		fail(c, errForbidden)
		return
	}
	if err := h.Store.UpdateAdmin(c.Request.Context(), id, bson.M{"status": req.Status}); err != nil {
		fail(c, err)
		return
	}
	h.auditStatus(c, "admin", id, req.Status)
	ok(c, http.StatusOK, gin.H{"message": "Status updated"})
}

// --- workers ---

func (h *Handler) ListWorkers(c *gin.Context) {
	f, err := principalFilter(c)
	if err != nil {
		fail(c, err)
		return
	}
	page := pageFrom(c)
	workers, total, err := h.Store.ListWorkers(c.Request.Context(), f, page)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"workers": storage.NewPagedResult(workers, total, page)})
}

func (h *Handler) CreateWorker(c *gin.Context) {
	var req createWorkerRequest
	if !bind(c, &req) {
		return
	}
	ctx := c.Request.Context()
	deptID, blockID, err := h.placement(c, &req.DepartmentID, &req.BlockID)
	if err != nil {
		fail(c, err)
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	creator := principal(c).ID
	w := &models.Worker{
		Name:         strings.TrimSpace(req.Name),
		Email:        req.Email,
		EmployeeID:   strings.TrimSpace(req.EmployeeID),
		Phone:        strings.TrimSpace(req.Phone),
		PasswordHash: hash,
		DepartmentID: *deptID,
		BlockID:      blockID,
		CreatedBy:    &creator,
	}
	if err := h.Store.CreateWorker(ctx, w); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			err = errAccountInUse
		}
		fail(c, err)
		return
	}
	h.audit(c, activity.Entry{Action: activity.ActionWorkerCreated, TargetType: "worker", TargetID: w.ID.Hex(), Success: true,
		Details: map[string]interface{}{"department": w.DepartmentID.Hex()}})
	ok(c, http.StatusCreated, gin.H{"worker": w})
}

func (h *Handler) UpdateWorker(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var req updateWorkerRequest
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
	if req.EmployeeID != nil && strings.TrimSpace(*req.EmployeeID) != "" {
		set["employeeId"] = strings.TrimSpace(*req.EmployeeID)
	}
	if req.DepartmentID != nil || req.BlockID != nil {
		deptID, blockID, err := h.placement(c, req.DepartmentID, req.BlockID)
		if err != nil {
			fail(c, err)
			return
		}
		if deptID != nil {
			set["department"] = *deptID
		}
		if blockID != nil {
			set["block"] = *blockID
		}
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
	changed := changedKeys(set)
	set["updatedBy"] = principal(c).ID

	ctx := c.Request.Context()
	if err := h.Store.UpdateWorker(ctx, id, set); err != nil {
		fail(c, err)
		return
	}
	h.audit(c, activity.Entry{Action: activity.ActionWorkerUpdated, TargetType: "worker", TargetID: id.Hex(), Success: true, Changed: changed})

	w, err := h.Store.GetWorkerByID(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"worker": w})
}

func (h *Handler) SetWorkerStatus(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var req accountStatusRequest
	if !bind(c, &req) {
		return
	}
	if err := h.Store.UpdateWorker(c.Request.Context(), id, bson.M{"status": req.Status, "updatedBy": principal(c).ID}); err != nil {
		fail(c, err)
		return
	}
	h.auditStatus(c, "worker", id, req.Status)
	ok(c, http.StatusOK, gin.H{"message": "Status updated"})
}

// placement resolves and checks the department and block ids of a worker.
// Empty or nil ids resolve to nil.
func (h *Handler) placement(c *gin.Context, dept, block *string) (*primitive.ObjectID, *primitive.ObjectID, error) {
	ctx := c.Request.Context()
	var deptID, blockID *primitive.ObjectID
	if dept != nil && *dept != "" {
		id, err := storage.ParseID(*dept)
		if err != nil {
			return nil, nil, errInvalidID
		}
		if _, err := h.Store.GetDepartmentByID(ctx, id); err != nil {
			return nil, nil, err
		}
		deptID = &id
	}
	if block != nil && *block != "" {
		id, err := storage.ParseID(*block)
		if err != nil {
			return nil, nil, errInvalidID
		}
		if _, err := h.Store.GetBlockByID(ctx, id); err != nil {
			return nil, nil, err
		}
		blockID = &id
	}
	return deptID, blockID, nil
}

// --- users ---

func (h *Handler) ListUsers(c *gin.Context) {
	f, err := principalFilter(c)
	if err != nil {
		fail(c, err)
		return
	}
	f.DepartmentID, f.BlockID = nil, nil
	page := pageFrom(c)
	users, total, err := h.Store.ListUsers(c.Request.Context(), f, page)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"users": storage.NewPagedResult(users, total, page)})
}

func (h *Handler) SetUserStatus(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var req accountStatusRequest
	if !bind(c, &req) {
		return
	}
	if err := h.Store.UpdateUser(c.Request.Context(), id, bson.M{"status": req.Status}); err != nil {
		fail(c, err)
		return
	}
	h.auditStatus(c, "user", id, req.Status)
	ok(c, http.StatusOK, gin.H{"message": "Status updated"})
}

// DeleteUser permanently removes a user account. Complaints filed by the
// user are kept.
func (h *Handler) DeleteUser(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.Store.DeleteUser(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	h.audit(c, activity.Entry{Action: activity.ActionUserDeleted, TargetType: "user", TargetID: id.Hex(), Success: true})
	ok(c, http.StatusOK, gin.H{"message": "User deleted"})
}

func (h *Handler) auditStatus(c *gin.Context, targetType string, id primitive.ObjectID, status models.AccountStatus) {
	h.audit(c, activity.Entry{
		Action:     activity.ActionStatusChanged,
		TargetType: targetType,
		TargetID:   id.Hex(),
		Success:    true,
		Details:    map[string]interface{}{"status": status},
		Changed:    []string{"status"},
	})
}

// WorkerMe returns the calling worker.
func (h *Handler) WorkerMe(c *gin.Context) {
	w, err := h.Store.GetWorkerByID(c.Request.Context(), principal(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"worker": w})
}
