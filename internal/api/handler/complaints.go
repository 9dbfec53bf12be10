package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fixmycity/backend/internal/activity"
	"fixmycity/backend/internal/complaint"
	"fixmycity/backend/internal/models"
	"fixmycity/backend/internal/storage"

	"github.com/gin-gonic/gin"
)

type assignBlockRequest struct {
	Block string `json:"block" binding:"omitempty,objectid"`
}

type statusRequest struct {
	Status models.ComplaintStatus `json:"status" binding:"required,complaintstatus"`
	Note   string                 `json:"note"`
}

// SubmitComplaint files a new complaint from a multipart form.
func (h *Handler) SubmitComplaint(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		fail(c, errInvalidBody)
		return
	}

	typeID := c.PostForm("typeId")
	if typeID == "" {
		typeID = c.PostForm("complaintType")
	}
	sub := complaint.Submission{
		TypeID:      typeID,
		SubTypeKey:  c.PostForm("subTypeId"),
		Description: c.PostForm("description"),
		Address: models.Address{
			Line:    strings.TrimSpace(c.PostForm("line")),
			Area:    c.PostForm("area"),
			City:    c.PostForm("city"),
			Pincode: strings.TrimSpace(c.PostForm("pincode")),
		},
		Latitude:  c.PostForm("latitude"),
		Longitude: c.PostForm("longitude"),
		Meta:      activity.Meta(c),
	}
	if form != nil {
		sub.Attachments = form.File["images"]
	}

	v, err := h.Complaints.Submit(c.Request.Context(), principal(c), sub)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, gin.H{"message": "Complaint submitted", "complaint": v})
}

// MyComplaints lists the caller's complaints, newest first.
func (h *Handler) MyComplaints(c *gin.Context) {
	res, err := h.Complaints.ListMine(c.Request.Context(), principal(c), pageFrom(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"complaints": res})
}

// GetComplaint returns one complaint the caller may see.
func (h *Handler) GetComplaint(c *gin.Context) {
	v, err := h.Complaints.Get(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"complaint": v})
}

// WorkerComplaints lists complaints of the worker's department.
func (h *Handler) WorkerComplaints(c *gin.Context) {
	f, err := complaintFilter(c, false)
	if err != nil {
		fail(c, err)
		return
	}
	res, err := h.Complaints.ListForWorker(c.Request.Context(), principal(c), f, pageFrom(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"complaints": res})
}

// AdminComplaints lists all complaints with optional filters.
func (h *Handler) AdminComplaints(c *gin.Context) {
	f, err := complaintFilter(c, true)
	if err != nil {
		fail(c, err)
		return
	}
	res, err := h.Complaints.ListAll(c.Request.Context(), f, pageFrom(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"complaints": res})
}

// UpdateComplaintStatus changes the status of a complaint. Mounted for
// both workers and admins; the service enforces department scope.
func (h *Handler) UpdateComplaintStatus(c *gin.Context) {
	var req statusRequest
	if !bind(c, &req) {
		return
	}
	v, err := h.Complaints.UpdateStatus(c.Request.Context(), principal(c), c.Param("id"), req.Status, req.Note, activity.Meta(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"message": "Status updated", "complaint": v})
}

// AssignComplaintBlock places a complaint in a block. An empty block clears it.
func (h *Handler) AssignComplaintBlock(c *gin.Context) {
	var req assignBlockRequest
	if !bind(c, &req) {
		return
	}
	v, err := h.Complaints.AssignBlock(c.Request.Context(), principal(c), c.Param("id"), req.Block, activity.Meta(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"message": "Block updated", "complaint": v})
}

// ComplaintTypes lists the taxonomy offered to citizens. Retired subtypes
// are hidden.
func (h *Handler) ComplaintTypes(c *gin.Context) {
	types, err := h.Store.ListComplaintTypes(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	out := make([]models.ComplaintType, 0, len(types))
	for _, t := range types {
		if t.DepartmentID == nil {
			continue
		}
		t.SubTypes = t.ActiveSubTypes()
		out = append(out, t)
	}
	ok(c, http.StatusOK, gin.H{"complaintTypes": out})
}

// complaintFilter reads listing filters from the query string. The
// department filter is honoured for admins only.
func complaintFilter(c *gin.Context, admin bool) (storage.ComplaintFilter, error) {
	f := storage.ComplaintFilter{
		Status: models.ComplaintStatus(c.Query("status")),
		City:   c.Query("city"),
		Area:   c.Query("area"),
		Search: c.Query("search"),
	}
	if f.Status != "" && !f.Status.Valid() {
		return f, complaint.ErrInvalidStatus
	}

	if s := c.Query("type"); s != "" {
		id, err := storage.ParseID(s)
		if err != nil {
			return f, errInvalidID
		}
		f.TypeID = &id
	}
	if s := c.Query("block"); s != "" {
		id, err := storage.ParseID(s)
		if err != nil {
			return f, errInvalidID
		}
		f.BlockID = &id
	}
	if s := c.Query("department"); admin && s != "" {
		id, err := storage.ParseID(s)
		if err != nil {
			return f, errInvalidID
		}
		f.DepartmentID = &id
	}

	var err error
	if f.From, err = queryTime(c, "from"); err != nil {
		return f, err
	}
	if f.To, err = queryTime(c, "to"); err != nil {
		return f, err
	}

	if s := c.Query("radius"); s != "" {
		radius, errR := strconv.ParseFloat(s, 64)
		lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
		lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
		if errR != nil || errLat != nil || errLng != nil || radius <= 0 ||
			lat < -90 || lat > 90 || lng < -180 || lng > 180 {
			return f, complaint.ErrInvalidLocation
		}
		f.Lat, f.Lng, f.RadiusMetres = lat, lng, radius
	}
	return f, nil
}

// queryTime accepts RFC 3339 timestamps or plain dates.
func queryTime(c *gin.Context, key string) (*time.Time, error) {
	s := c.Query(key)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, errInvalidQuery
}
