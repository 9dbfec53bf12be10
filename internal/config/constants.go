package config

import "time"

const (
	// Complaints
	MaxComplaintImages = 5
	MaxImageBytes      = 10 << 20
	ComplaintFolder    = "complaints"

	// Pagination
	DefaultPageSize = 20
	MaxPageSize     = 100

	// OTP
	OTPLength         = 6
	OTPTTL            = 5 * time.Minute
	OTPMaxAttempts    = 5
	OTPRequestsPerMin = 3

	// Tokens
	DefaultTokenTTL = 7 * 24 * time.Hour

	// Server
	ShutdownTimeout = 15 * time.Second
	RequestTimeout  = 30 * time.Second
)

// ImageContentTypes lists the attachment types accepted for complaint photos.
var ImageContentTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/heic": ".heic",
}
