package activity

import (
	"context"
	"fmt"
	"time"

	"fixmycity/backend/internal/logging"
	"fixmycity/backend/internal/metrics"
	"fixmycity/backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// Action names written to the audit trail.
const (
	ActionLogin              = "login"
	ActionRegister           = "register"
	ActionOTPVerified        = "otp_verified"
	ActionProfileUpdated     = "profile_updated"
	ActionAccountDeleted     = "account_deleted"
	ActionComplaintSubmitted = "complaint_submitted"
	ActionComplaintStatus    = "complaint_status_changed"
	ActionComplaintBlock     = "complaint_block_assigned"
	ActionAdminCreated       = "admin_created"
	ActionWorkerCreated      = "worker_created"
	ActionWorkerUpdated      = "worker_updated"
	ActionStatusChanged      = "account_status_changed"
	ActionUserDeleted        = "user_deleted"
	ActionDepartmentSaved    = "department_saved"
	ActionBlockSaved         = "block_saved"
	ActionComplaintTypeSaved = "complaint_type_saved"
)

// Entry describes one action. Actor is required; the request metadata is
// filled by Meta when the call originates from an HTTP handler.
type Entry struct {
	Actor      *models.Principal
	Action     string
	TargetType string
	TargetID   string
	Success    bool
	Details    map[string]interface{}
	Changed    []string
	Meta       RequestMeta
}

// RequestMeta is the request context copied onto each record.
type RequestMeta struct {
	IP        string
	UserAgent string
	RequestID string
}

// Meta extracts request metadata from a gin context.
func Meta(c *gin.Context) RequestMeta {
	return RequestMeta{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		RequestID: logging.RequestIDFromContext(c.Request.Context()),
	}
}

// Logger writes activity records on a best-effort basis: a failed write is
// logged and counted, never returned to the caller.
type Logger struct {
	store Store
	now   func() time.Time
}

func NewLogger(store Store) *Logger {
	return &Logger{store: store, now: time.Now}
}

// Log persists e. It never returns an error and never panics.
func (l *Logger) Log(ctx context.Context, e Entry) {
	if l == nil || l.store == nil || e.Actor == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			metrics.ActivityWriteFailures.Inc()
			logging.Ctx(ctx).Error().
				Str("action", e.Action).
				Str("panic", fmt.Sprint(r)).
				Msg("activity logger panicked")
		}
	}()

	rec := &models.ActivityRecord{
		ActorKind:  e.Actor.Kind,
		ActorID:    e.Actor.ID.Hex(),
		ActorName:  e.Actor.Name,
		Action:     e.Action,
		TargetType: e.TargetType,
		TargetID:   e.TargetID,
		Success:    e.Success,
		IP:         e.Meta.IP,
		UserAgent:  e.Meta.UserAgent,
		RequestID:  e.Meta.RequestID,
		CreatedAt:  l.now().UTC(),
	}
	if len(e.Details) > 0 {
		rec.Details = datatypes.JSONMap(e.Details)
	}
	if len(e.Changed) > 0 {
		rec.ChangedFields = pq.StringArray(e.Changed)
	}

	if err := l.store.Save(ctx, rec); err != nil {
		metrics.ActivityWriteFailures.Inc()
		logging.Ctx(ctx).Warn().Err(err).
			Str("action", e.Action).
			Str("actor", rec.ActorID).
			Msg("activity record not saved")
	}
}
