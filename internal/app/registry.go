package app

import (
	"database/sql"
	"path/filepath"

	"leavehub/internal/allocation"
	"leavehub/internal/employee"
	"leavehub/internal/leaverequest"
	"leavehub/internal/leavetype"
	"leavehub/internal/messaging/kafka"
	"leavehub/internal/rbac"
	"leavehub/internal/rbac/infra"
	"leavehub/internal/shared/counter"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

func registerModules(
	router *gin.Engine,
	db *sql.DB,
	gormDB *gorm.DB,
	rdb *redis.Client,
) error {
	// --- Repositories ---
	rbacRepo := rbac.NewRepository(gormDB)
	employeeRepo := employee.NewRepository(gormDB)
	leaveTypeRepo := leavetype.NewRepository(gormDB)
	allocationRepo := allocation.NewRepository(gormDB)
	leaveRequestRepo := leaverequest.NewRepository(gormDB)
	counterRepo := counter.NewRepository(gormDB)
	outboxRepo := kafka.NewOutboxRepository(db)

	// --- RBAC Core ---
	enforcer, err := infra.NewEnforcer(filepath.Join("internal", "rbac", "infra", "model.conf"))
	if err != nil {
		return err
	}
	rbacService := rbac.NewService(rbacRepo, enforcer)

	// --- Services ---
	employeeService := employee.NewServiceWithOutbox(db, employeeRepo, outboxRepo, rdb)
	leaveTypeService := leavetype.NewService(db, leaveTypeRepo)
	allocationService := allocation.NewService(db, allocationRepo, employeeRepo, leaveTypeRepo)
	leaveRequestService := leaverequest.NewService(
		db, leaveRequestRepo, allocationRepo, counterRepo, outboxRepo, rdb,
	)

	// --- Handlers ---
	employeeHandler := employee.NewHandler(employeeService)
	leaveTypeHandler := leavetype.NewHandler(leaveTypeService)
	allocationHandler := allocation.NewHandler(allocationService)
	leaveRequestHandler := leaverequest.NewHandlerWithRedis(leaveRequestService, rdb)

	// --- Routes Registration ---
	api := router.Group("/api/v1")
	{
		employee.RegisterRoutes(api, employeeHandler, rbacService)
		leavetype.RegisterRoutes(api, leaveTypeHandler, rbacService)
		allocation.RegisterRoutes(api, allocationHandler, rbacService)
		leaverequest.RegisterRoutes(api, leaveRequestHandler, rbacService, rdb)
	}

	return nil
}
