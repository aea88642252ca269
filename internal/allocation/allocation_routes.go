package allocation

import (
	"leavehub/internal/middleware"
	"leavehub/internal/rbac"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(
	r *gin.RouterGroup,
	handler *Handler,
	rbacService rbac.Service,
) {
	allocations := r.Group("/allocations")
	allocations.Use(middleware.AuthMiddleware())
	{
		allocations.GET("/balance", middleware.RBACAuthorize(rbacService, "allocation", "read"), handler.GetBalance)
		allocations.GET("/employee/:employeeId", middleware.RBACAuthorize(rbacService, "allocation", "read"), handler.GetByEmployee)
		allocations.POST("/set-leave", middleware.RBACAuthorize(rbacService, "allocation", "manage"), handler.SetLeave)
		allocations.PUT("/:id", middleware.RBACAuthorize(rbacService, "allocation", "manage"), handler.Edit)
	}
}
