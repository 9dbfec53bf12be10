package handler

import (
	"net/http"
	"strconv"
	"strings"

	"fixmycity/backend/internal/activity"
	"fixmycity/backend/internal/models"
	"fixmycity/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type departmentRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type blockRequest struct {
	Name         string `json:"name" binding:"required"`
	DepartmentID string `json:"department" binding:"omitempty,objectid"`
}

type complaintTypeRequest struct {
	Name         string   `json:"name" binding:"required"`
	DepartmentID string   `json:"department" binding:"required,objectid"`
	SubTypes     []string `json:"subTypes"`
}

type updateComplaintTypeRequest struct {
	Name         *string `json:"name"`
	DepartmentID *string `json:"department" binding:"omitempty,objectid"`
}

type subTypeRequest struct {
	Name string `json:"name" binding:"required"`
}

// --- departments ---

func (h *Handler) ListDepartments(c *gin.Context) {
	depts, err := h.Store.ListDepartments(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	if depts == nil {
		depts = []models.Department{}
	}
	ok(c, http.StatusOK, gin.H{"departments": depts})
}

func (h *Handler) CreateDepartment(c *gin.Context) {
	var req departmentRequest
	if !bind(c, &req) {
		return
	}
	by := principal(c).ID
	d := &models.Department{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		CreatedBy:   &by,
	}
	if err := h.Store.CreateDepartment(c.Request.Context(), d); err != nil {
		fail(c, err)
		return
	}
	h.audit(c, activity.Entry{Action: activity.ActionDepartmentSaved, TargetType: "department", TargetID: d.ID.Hex(), Success: true})
	ok(c, http.StatusCreated, gin.H{"department": d})
}

func (h *Handler) UpdateDepartment(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var req departmentRequest
	if !bind(c, &req) {
		return
	}
	ctx := c.Request.Context()
	set := bson.M{
		"name":        strings.TrimSpace(req.Name),
		"description": strings.TrimSpace(req.Description),
		"updatedBy":   principal(c).ID,
	}
	if err := h.Store.UpdateDepartment(ctx, id, set); err != nil {
		fail(c, err)
		return
	}
	h.audit(c, activity.Entry{Action: activity.ActionDepartmentSaved, TargetType: "department", TargetID: id.Hex(), Success: true, Changed: []string{"name", "description"}})
	d, err := h.Store.GetDepartmentByID(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"department": d})
}

// --- blocks ---

func (h *Handler) ListBlocks(c *gin.Context) {
	blocks, err := h.Store.ListBlocks(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	if blocks == nil {
		blocks = []models.Block{}
	}
	ok(c, http.StatusOK, gin.H{"blocks": blocks})
}

func (h *Handler) CreateBlock(c *gin.Context) {
	var req blockRequest
	if !bind(c, &req) {
		return
	}
	deptID, err := h.department(c, req.DepartmentID)
	if err != nil {
		fail(c, err)
		return
	}
	by := principal(c).ID
	b := &models.Block{Name: strings.TrimSpace(req.Name), DepartmentID: deptID, CreatedBy: &by}
	if err := h.Store.CreateBlock(c.Request.Context(), b); err != nil {
		fail(c, err)
		return
	}
	h.audit(c, activity.Entry{Action: activity.ActionBlockSaved, TargetType: "block", TargetID: b.ID.Hex(), Success: true})
	ok(c, http.StatusCreated, gin.H{"block": b})
}

func (h *Handler) UpdateBlock(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var req blockRequest
	if !bind(c, &req) {
		return
	}
	deptID, err := h.department(c, req.DepartmentID)
	if err != nil {
		fail(c, err)
		return
	}
	ctx := c.Request.Context()
	set := bson.M{"name": strings.TrimSpace(req.Name), "updatedBy": principal(c).ID}
	changed := []string{"name"}
	if deptID != nil {
		set["department"] = *deptID
		changed = append(changed, "department")
	}
	if err := h.Store.UpdateBlock(ctx, id, set); err != nil {
		fail(c, err)
		return
	}
	h.audit(c, activity.Entry{Action: activity.ActionBlockSaved, TargetType: "block", TargetID: id.Hex(), Success: true, Changed: changed})
	b, err := h.Store.GetBlockByID(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"block": b})
}

// --- complaint types ---

// AdminComplaintTypes lists every complaint type including retired
// subtypes.
func (h *Handler) AdminComplaintTypes(c *gin.Context) {
	types, err := h.Store.ListComplaintTypes(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	if types == nil {
		types = []models.ComplaintType{}
	}
	ok(c, http.StatusOK, gin.H{"complaintTypes": types})
}

func (h *Handler) CreateComplaintType(c *gin.Context) {
	var req complaintTypeRequest
	if !bind(c, &req) {
		return
	}
	deptID, err := h.department(c, req.DepartmentID)
	if err != nil {
		fail(c, err)
		return
	}
	by := principal(c).ID
	t := &models.ComplaintType{
		Name:         strings.TrimSpace(req.Name),
		DepartmentID: deptID,
		SubTypes:     models.NewSubTypes(req.SubTypes),
		CreatedBy:    &by,
	}
	if err := h.Store.CreateComplaintType(c.Request.Context(), t); err != nil {
		fail(c, err)
		return
	}
	h.audit(c, activity.Entry{Action: activity.ActionComplaintTypeSaved, TargetType: "complaint_type", TargetID: t.ID.Hex(), Success: true,
		Details: map[string]interface{}{"subTypes": len(t.SubTypes)}})
	ok(c, http.StatusCreated, gin.H{"complaintType": t})
}

// UpdateComplaintType renames a type or moves it to another department.
// Subtypes are edited through their own endpoints so keys stay stable.
func (h *Handler) UpdateComplaintType(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var req updateComplaintTypeRequest
	if !bind(c, &req) {
		return
	}
	set := bson.M{}
	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		set["name"] = strings.TrimSpace(*req.Name)
	}
	if req.DepartmentID != nil {
		deptID, err := h.department(c, *req.DepartmentID)
		if err != nil {
			fail(c, err)
			return
		}
		if deptID != nil {
			set["department"] = *deptID
		}
	}
	if len(set) == 0 {
		fail(c, errInvalidBody)
		return
	}
	changed := changedKeys(set)
	set["updatedBy"] = principal(c).ID
	h.saveComplaintType(c, id, set, changed)
}

// AddSubType appends a subtype under a fresh key.
func (h *Handler) AddSubType(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var req subTypeRequest
	if !bind(c, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		fail(c, errInvalidBody)
		return
	}
	t, err := h.Store.GetComplaintTypeByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	t.AppendSubType(req.Name)
	h.saveComplaintType(c, id, bson.M{"subTypes": t.SubTypes, "updatedBy": principal(c).ID}, []string{"subTypes"})
}

// RetireSubType hides a subtype from new submissions. Its key is never
// reused.
func (h *Handler) RetireSubType(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	key, err := strconv.Atoi(c.Param("key"))
	if err != nil {
		fail(c, errInvalidID)
		return
	}
	t, err := h.Store.GetComplaintTypeByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	if !t.RetireSubType(key) {
		fail(c, storage.ErrNotFound)
		return
	}
	h.saveComplaintType(c, id, bson.M{"subTypes": t.SubTypes, "updatedBy": principal(c).ID}, []string{"subTypes"})
}

func (h *Handler) saveComplaintType(c *gin.Context, id primitive.ObjectID, set bson.M, changed []string) {
	ctx := c.Request.Context()
	if err := h.Store.UpdateComplaintType(ctx, id, set); err != nil {
		fail(c, err)
		return
	}
	h.audit(c, activity.Entry{Action: activity.ActionComplaintTypeSaved, TargetType: "complaint_type", TargetID: id.Hex(), Success: true, Changed: changed})
	t, err := h.Store.GetComplaintTypeByID(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"complaintType": t})
}

// department parses and checks an optional department id.
func (h *Handler) department(c *gin.Context, hex string) (*primitive.ObjectID, error) {
	if hex == "" {
		return nil, nil
	}
	id, err := storage.ParseID(hex)
	if err != nil {
		return nil, errInvalidID
	}
	if _, err := h.Store.GetDepartmentByID(c.Request.Context(), id); err != nil {
		return nil, err
	}
	return &id, nil
}
