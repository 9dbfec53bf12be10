package handler

import (
	"errors"
	"net/http"

	"fixmycity/backend/internal/auth"
	"fixmycity/backend/internal/complaint"
	"fixmycity/backend/internal/logging"
	"fixmycity/backend/internal/otp"
	"fixmycity/backend/internal/storage"
	"fixmycity/backend/internal/upload"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var (
	errInvalidBody    = errors.New("invalid request body")
	errInvalidID      = errors.New("invalid id")
	errAccountInUse   = errors.New("an account with this email already exists")
	errLoginFailed    = errors.New("invalid email or password")
	errAccountBlocked = errors.New("account is not active")
	errNoFile         = errors.New("no image uploaded")
	errInvalidQuery   = errors.New("invalid query parameter")
	errForbidden      = errors.New("not allowed")
)

// statusFor maps service and storage errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, complaint.ErrMissingFields),
		errors.Is(err, complaint.ErrMissingLocation),
		errors.Is(err, complaint.ErrInvalidLocation),
		errors.Is(err, complaint.ErrInvalidSubType),
		errors.Is(err, complaint.ErrTooManyImages),
		errors.Is(err, complaint.ErrInvalidStatus),
		errors.Is(err, complaint.ErrBlockMismatch),
		errors.Is(err, upload.ErrUnsupportedType),
		errors.Is(err, upload.ErrTooLarge),
		errors.Is(err, otp.ErrInvalidCode),
		errors.Is(err, otp.ErrExpired),
		errors.Is(err, otp.ErrMissingEmail),
		errors.Is(err, storage.ErrInvalidID),
		errors.Is(err, errInvalidBody),
		errors.Is(err, errInvalidID),
		errors.Is(err, errInvalidQuery),
		errors.Is(err, errNoFile):
		return http.StatusBadRequest

	case errors.Is(err, complaint.ErrTypeNotFound),
		errors.Is(err, complaint.ErrDepartmentNotFound),
		errors.Is(err, complaint.ErrNotFound),
		errors.Is(err, complaint.ErrBlockNotFound),
		errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, errLoginFailed),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized

	case errors.Is(err, errAccountBlocked),
		errors.Is(err, errForbidden),
		errors.Is(err, auth.ErrInactive):
		return http.StatusForbidden

	case errors.Is(err, storage.ErrDuplicate),
		errors.Is(err, errAccountInUse):
		return http.StatusConflict

	case errors.Is(err, otp.ErrRateLimited),
		errors.Is(err, otp.ErrTooManyAttempts):
		return http.StatusTooManyRequests
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// fail writes the error envelope. Server errors are logged and hidden
// behind a generic message.
func fail(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logging.Ctx(c.Request.Context()).Error().Err(err).
			Str("path", c.FullPath()).
			Msg("request failed")
		msg = "Server error"
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msg = validationMessage(verrs)
	}
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": msg})
}

func ok(c *gin.Context, status int, body gin.H) {
	if body == nil {
		body = gin.H{}
	}
	body["success"] = true
	c.JSON(status, body)
}
