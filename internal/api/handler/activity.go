package handler

import (
	"net/http"
	"strconv"

	"fixmycity/backend/internal/activity"
	"fixmycity/backend/internal/models"
	"fixmycity/backend/internal/storage"

	"github.com/gin-gonic/gin"
)

// ListActivity returns the audit trail, newest first.
func (h *Handler) ListActivity(c *gin.Context) {
	f := activity.Filter{
		ActorKind: models.PrincipalKind(c.Query("actorKind")),
		ActorID:   c.Query("actorId"),
		Action:    c.Query("action"),
		TargetID:  c.Query("targetId"),
	}
	if s := c.Query("success"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			fail(c, errInvalidQuery)
			return
		}
		f.Success = &v
	}
	var err error
	if f.From, err = queryTime(c, "from"); err != nil {
		fail(c, err)
		return
	}
	if f.To, err = queryTime(c, "to"); err != nil {
		fail(c, err)
		return
	}

	page := pageFrom(c)
	records, total, err := h.ActivityLog.List(c.Request.Context(), f, int(page.Page), int(page.Limit))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"activity": storage.NewPagedResult(records, total, page)})
}
