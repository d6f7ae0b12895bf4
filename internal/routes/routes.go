// Package routes mounts every HTTP handler under the configured API prefix.
package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sasm-ims-api/internal/handler"
	"github.com/noah-isme/sasm-ims-api/internal/middleware"
	"github.com/noah-isme/sasm-ims-api/internal/models"
)

// Handlers groups the HTTP handlers served by the API.
type Handlers struct {
	Auth            *handler.AuthHandler
	Users           *handler.UserHandler
	Notifications   *handler.NotificationHandler
	Applications    *handler.ApplicationHandler
	Scholars        *handler.ScholarHandler
	Schedules       *handler.ScheduleHandler
	DTR             *handler.DTRHandler
	Leaves          *handler.LeaveHandler
	Evaluations     *handler.EvaluationHandler
	ScholarRequests *handler.ScholarRequestHandler
	Dashboard       *handler.DashboardHandler
	Exports         *handler.ExportHandler
	Metrics         *handler.MetricsHandler
}

// Options carries the cross-cutting middleware the routes depend on.
type Options struct {
	Auth  gin.HandlerFunc
	Audit middleware.AuditWriter
}

var (
	staff       = middleware.Staff()
	staffOffice = middleware.RequireRoles(models.RoleSuperAdmin, models.RoleHR, models.RoleOffice)
	students    = middleware.RequireRoles(models.RoleStudent)
	offices     = middleware.RequireRoles(models.RoleOffice)
)

// Setup registers the API under group. Exports are mounted only when h.Exports is set.
func Setup(group *gin.RouterGroup, h Handlers, opts Options) {
	auth := group.Group("/auth")
	{
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.Refresh)
	}

	secured := group.Group("")
	secured.Use(opts.Auth)

	secured.POST("/auth/logout", h.Auth.Logout)
	secured.GET("/auth/me", h.Auth.Me)
	secured.POST("/auth/change-password", h.Auth.ChangePassword)

	users := secured.Group("/users")
	{
		users.GET("", staff, h.Users.List)
		users.POST("", staff, h.Users.Create)
		users.GET("/:id", middleware.RBAC(string(models.RoleSuperAdmin), string(models.RoleHR), middleware.RoleSelf), h.Users.Get)
		users.PUT("/:id", staff, h.Users.Update)
		users.DELETE("/:id", middleware.RequireRoles(models.RoleSuperAdmin), h.Users.Delete)
	}

	notifications := secured.Group("/notifications")
	{
		notifications.GET("", h.Notifications.List)
		notifications.GET("/unread-count", h.Notifications.UnreadCount)
		notifications.PUT("/mark-all-read", h.Notifications.MarkAllRead)
		notifications.PUT("/bulk-read", h.Notifications.MarkManyRead)
		notifications.PUT("/:id/read", h.Notifications.MarkRead)
		notifications.DELETE("/bulk", h.Notifications.DeleteMany)
		notifications.DELETE("/:id", h.Notifications.Delete)
	}

	applications := secured.Group("/applications")
	{
		applications.POST("", students, h.Applications.Submit)
		applications.GET("", h.Applications.List)
		applications.POST("/bulk", staff, h.Applications.Bulk)
		applications.POST("/archive", staff, h.Applications.Archive)
		applications.GET("/:id", h.Applications.Get)
		applications.GET("/:id/progress", h.Applications.Progress)
		applications.GET("/:id/history", h.Applications.History)
		applications.PUT("/:id", staff, h.Applications.Update)
		applications.PATCH("/:id/status", staff, h.Applications.UpdateStatus)
	}

	scholars := secured.Group("/scholars")
	{
		scholars.GET("", staffOffice, h.Scholars.List)
		scholars.GET("/me", h.Scholars.Mine)
		scholars.GET("/:id", h.Scholars.Get)
		scholars.PUT("/:id", staff, h.Scholars.Update)
		scholars.DELETE("/:id", staff, h.Scholars.Deactivate)
	}

	schedules := secured.Group("/schedules")
	{
		schedules.GET("/:userId", h.Schedules.Get)
		schedules.PUT("/:userId",
			middleware.RBAC(string(models.RoleSuperAdmin), string(models.RoleHR), middleware.RoleSelf),
			middleware.Audit(opts.Audit, nil, models.AuditActionScheduleUpsert, "schedules"),
			h.Schedules.Upsert)
	}

	dtr := secured.Group("/dtr")
	{
		dtr.POST("/time-in", students, h.DTR.TimeIn)
		dtr.POST("/time-out", students, h.DTR.TimeOut)
		dtr.GET("", h.DTR.List)
		dtr.PUT("/:id/review", staffOffice, h.DTR.Review)
	}

	leaves := secured.Group("/leaves")
	{
		leaves.POST("", students, h.Leaves.Create)
		leaves.GET("", h.Leaves.List)
		leaves.PUT("/:id/review", staffOffice, h.Leaves.Review)
		leaves.PUT("/:id/cancel", students, h.Leaves.Cancel)
	}

	evaluations := secured.Group("/evaluations")
	{
		evaluations.POST("", staffOffice, h.Evaluations.Create)
		evaluations.GET("", h.Evaluations.List)
		evaluations.GET("/:id", h.Evaluations.Get)
		evaluations.PUT("/:id", staffOffice, h.Evaluations.Update)
	}

	requests := secured.Group("/scholar-requests")
	{
		requests.POST("", offices, h.ScholarRequests.Create)
		requests.GET("", staffOffice, h.ScholarRequests.List)
		requests.GET("/:id", staffOffice, h.ScholarRequests.Get)
		requests.PUT("/:id/review", staff, h.ScholarRequests.Review)
		requests.PUT("/:id/cancel", offices, h.ScholarRequests.Cancel)
	}

	dashboard := secured.Group("/dashboard")
	{
		dashboard.GET("/hr", staff, h.Dashboard.HR)
		dashboard.GET("/office", staffOffice, h.Dashboard.Office)
		dashboard.GET("/student", students, h.Dashboard.Student)
	}

	if h.Exports != nil {
		group.GET("/exports/download/:token", h.Exports.Download)
		exports := secured.Group("/exports")
		{
			exports.POST("", middleware.Audit(opts.Audit, nil, models.AuditActionExportRequest, "exports"), h.Exports.Create)
			exports.GET("/:id", h.Exports.Status)
		}
	}

	if h.Metrics != nil {
		secured.GET("/system/metrics", staff, h.Metrics.Snapshot)
	}
}
