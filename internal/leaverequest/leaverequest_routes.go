package leaverequest

import (
	"leavehub/internal/middleware"
	"leavehub/internal/rbac"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func RegisterRoutes(
	r *gin.RouterGroup,
	handler *Handler,
	rbacService rbac.Service,
	rdb *redis.Client,
) {
	requests := r.Group("/leave-requests")
	requests.Use(middleware.AuthMiddleware())
	{
		requests.POST("",
			middleware.RBACAuthorize(rbacService, "leave_request", "create"),
			middleware.Idempotency(rdb),
			handler.Submit,
		)
		requests.GET("", middleware.RBACAuthorize(rbacService, "leave_request", "read"), handler.GetAll)
		requests.GET("/mine", middleware.RBACAuthorize(rbacService, "leave_request", "read"), handler.GetMine)
		requests.GET("/summary", middleware.RBACAuthorize(rbacService, "leave_request", "approve"), handler.GetSummary)
		requests.GET("/:id", middleware.RBACAuthorize(rbacService, "leave_request", "read"), handler.GetById)
		requests.POST("/:id/approve", middleware.RBACAuthorize(rbacService, "leave_request", "approve"), handler.Approve)
		requests.POST("/:id/reject", middleware.RBACAuthorize(rbacService, "leave_request", "approve"), handler.Reject)
	}
}
