package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"fixmycity/backend/internal/logging"
	"fixmycity/backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const principalKey = "principal"

var ErrInactive = errors.New("account is not active")

// PrincipalStore loads accounts by id.
type PrincipalStore interface {
	GetAdminByID(ctx context.Context, id primitive.ObjectID) (*models.Admin, error)
	GetWorkerByID(ctx context.Context, id primitive.ObjectID) (*models.Worker, error)
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// LoadPrincipal fetches the account of the given kind and returns its principal.
func LoadPrincipal(ctx context.Context, s PrincipalStore, kind models.PrincipalKind, id primitive.ObjectID) (*models.Principal, error) {
	switch kind {
	case models.KindAdmin:
		a, err := s.GetAdminByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return a.Principal(), nil
	case models.KindWorker:
		w, err := s.GetWorkerByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return w.Principal(), nil
	case models.KindUser:
		u, err := s.GetUserByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return u.Principal(), nil
	}
	return nil, ErrWrongKind
}

// Middleware authenticates requests for one principal kind. Any failure
// aborts with 401, and a non-active account with 403.
func Middleware(jwtm *JWTManager, store PrincipalStore, kind models.PrincipalKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok && websocket.IsWebSocketUpgrade(c.Request) {
			// Browsers cannot set headers on a websocket handshake.
			token = c.Query("token")
			ok = token != ""
		}
		if !ok {
			abort(c, http.StatusUnauthorized, "Not authorized, no token")
			return
		}

		claims, err := jwtm.Verify(token, kind)
		if err != nil {
			logging.Ctx(c.Request.Context()).Debug().Err(err).Str("kind", string(kind)).Msg("token rejected")
			abort(c, http.StatusUnauthorized, "Not authorized, token failed")
			return
		}

		id, err := primitive.ObjectIDFromHex(claims.Subject)
		if err != nil {
			abort(c, http.StatusUnauthorized, "Not authorized, token failed")
			return
		}

		p, err := LoadPrincipal(c.Request.Context(), store, kind, id)
		if err != nil {
			abort(c, http.StatusUnauthorized, "Not authorized, account not found")
			return
		}
		if p.Status != models.StatusActive {
			abort(c, http.StatusForbidden, "Account is "+string(p.Status))
			return
		}

		c.Set(principalKey, p)
		c.Next()
	}
}

// RequireRole allows only admins holding one of roles. It must run after
// Middleware for KindAdmin.
func RequireRole(roles ...models.AdminRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok || p.Kind != models.KindAdmin {
			abort(c, http.StatusUnauthorized, "Not authorized")
			return
		}
		for _, r := range roles {
			if p.Role == r {
				c.Next()
				return
			}
		}
		abort(c, http.StatusForbidden, "Insufficient role")
	}
}

// PrincipalFrom returns the principal attached by Middleware.
func PrincipalFrom(c *gin.Context) (*models.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(*models.Principal)
	return p, ok
}

// SetPrincipal attaches p to c. Used by tests and by the websocket upgrade.
func SetPrincipal(c *gin.Context, p *models.Principal) {
	c.Set(principalKey, p)
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": msg})
}
