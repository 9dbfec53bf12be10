// Package router mounts the HTTP routes.
package router

import (
	"net/http"

	"fixmycity/backend/internal/api/handler"
	"fixmycity/backend/internal/auth"
	"fixmycity/backend/internal/logging"
	"fixmycity/backend/internal/metrics"
	"fixmycity/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// Options configures New. UploadDir is served under /uploads when set.
// An empty CORSOrigins allows any origin.
type Options struct {
	UploadDir   string
	CORSOrigins []string
}

// New builds the gin engine with every route mounted.
func New(h *handler.Handler, opts Options) *gin.Engine {
	handler.RegisterValidators()

	r := gin.New()
	r.Use(logging.Middleware(), metrics.Middleware(), gin.Recovery(), corsMiddleware(opts.CORSOrigins))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true, "status": "ok", "feedClients": h.Hub.Count()})
	})
	r.GET("/metrics", metrics.Handler())
	if opts.UploadDir != "" {
		r.Static("/uploads", opts.UploadDir)
	}

	api := r.Group("/api")

	userAuth := auth.Middleware(h.JWT, h.Store, models.KindUser)
	workerAuth := auth.Middleware(h.JWT, h.Store, models.KindWorker)
	adminAuth := auth.Middleware(h.JWT, h.Store, models.KindAdmin)

	// Public
	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)
	api.POST("/otp/request-otp", h.RequestOTP)
	api.POST("/otp/verify-otp", h.VerifyOTP)
	api.POST("/admin/login", h.AdminLogin)
	api.POST("/worker/auth/login", h.WorkerLogin)

	// Citizens
	me := api.Group("/auth", userAuth)
	me.GET("/me", h.Me)
	me.PUT("/me", h.UpdateMe)
	me.DELETE("/me", h.DeleteMe)

	user := api.Group("", userAuth)
	user.POST("/complaints", h.SubmitComplaint)
	user.GET("/complaints", h.MyComplaints)
	user.GET("/complaints/:id", h.GetComplaint)
	user.GET("/complaint-types", h.ComplaintTypes)

	// Workers
	worker := api.Group("/worker", workerAuth)
	worker.GET("/me", h.WorkerMe)
	worker.GET("/complaints", h.WorkerComplaints)
	worker.GET("/complaints/:id", h.GetComplaint)
	worker.PATCH("/complaints/:id/status", h.UpdateComplaintStatus)
	worker.GET("/ws", h.ServeFeed)

	// Admins
	admin := api.Group("/admin", adminAuth)
	admin.GET("/me", h.AdminMe)
	admin.PUT("/me/profile-image", h.UpdateProfileImage)

	super := admin.Group("/admins", auth.RequireRole(models.RoleSuperAdmin))
	super.GET("", h.ListAdmins)
	super.POST("", h.CreateAdmin)
	super.PATCH("/:id/status", h.SetAdminStatus)

	admin.GET("/workers", h.ListWorkers)
	admin.POST("/workers", h.CreateWorker)
	admin.PUT("/workers/:id", h.UpdateWorker)
	admin.PATCH("/workers/:id/status", h.SetWorkerStatus)

	admin.GET("/users", h.ListUsers)
	admin.PATCH("/users/:id/status", h.SetUserStatus)
	admin.DELETE("/users/:id", h.DeleteUser)

	admin.GET("/departments", h.ListDepartments)
	admin.POST("/departments", h.CreateDepartment)
	admin.PUT("/departments/:id", h.UpdateDepartment)
	admin.GET("/blocks", h.ListBlocks)
	admin.POST("/blocks", h.CreateBlock)
	admin.PUT("/blocks/:id", h.UpdateBlock)
	admin.GET("/complaint-types", h.AdminComplaintTypes)
	admin.POST("/complaint-types", h.CreateComplaintType)
	admin.PUT("/complaint-types/:id", h.UpdateComplaintType)
	admin.POST("/complaint-types/:id/subtypes", h.AddSubType)
	admin.DELETE("/complaint-types/:id/subtypes/:key", h.RetireSubType)

	admin.GET("/complaints", h.AdminComplaints)
	admin.GET("/complaints/:id", h.GetComplaint)
	admin.PATCH("/complaints/:id/status", h.UpdateComplaintStatus)
	admin.PATCH("/complaints/:id/block", h.AssignComplaintBlock)

	admin.GET("/activity", h.ListActivity)
	admin.GET("/ws", h.ServeFeed)

	return r
}
