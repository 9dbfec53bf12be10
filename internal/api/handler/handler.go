// Package handler implements the REST endpoints.
package handler

import (
	"strconv"

	"fixmycity/backend/internal/activity"
	"fixmycity/backend/internal/auth"
	"fixmycity/backend/internal/complaint"
	"fixmycity/backend/internal/config"
	"fixmycity/backend/internal/feed"
	"fixmycity/backend/internal/models"
	"fixmycity/backend/internal/otp"
	"fixmycity/backend/internal/storage"
	"fixmycity/backend/internal/upload"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Handler holds the collaborators shared by all endpoints.
type Handler struct {
	Store        storage.Storage
	JWT          *auth.JWTManager
	Complaints   *complaint.Service
	Activity     *activity.Logger
	ActivityLog  activity.Store
	OTP          *otp.Service
	Hub          *feed.Hub
	ProfileFiles upload.Uploader
}

func NewHandler(
	s storage.Storage,
	jwtm *auth.JWTManager,
	complaints *complaint.Service,
	activityStore activity.Store,
	otpSvc *otp.Service,
	hub *feed.Hub,
	profileFiles upload.Uploader,
) *Handler {
	return &Handler{
		Store:        s,
		JWT:          jwtm,
		Complaints:   complaints,
		Activity:     activity.NewLogger(activityStore),
		ActivityLog:  activityStore,
		OTP:          otpSvc,
		Hub:          hub,
		ProfileFiles: profileFiles,
	}
}

// principal returns the authenticated caller. Routes are only mounted
// behind auth.Middleware, so it is always present.
func principal(c *gin.Context) *models.Principal {
	p, _ := auth.PrincipalFrom(c)
	return p
}

// audit records e for the current request.
func (h *Handler) audit(c *gin.Context, e activity.Entry) {
	if e.Actor == nil {
		e.Actor = principal(c)
	}
	e.Meta = activity.Meta(c)
	h.Activity.Log(c.Request.Context(), e)
}

func pageFrom(c *gin.Context) storage.Page {
	page, _ := strconv.ParseInt(c.Query("page"), 10, 64)
	limit, _ := strconv.ParseInt(c.Query("limit"), 10, 64)
	return storage.Page{Page: page, Limit: limit}.Normalize(config.DefaultPageSize, config.MaxPageSize)
}

func pathID(c *gin.Context, name string) (primitive.ObjectID, error) {
	id, err := storage.ParseID(c.Param(name))
	if err != nil {
		return id, errInvalidID
	}
	return id, nil
}
