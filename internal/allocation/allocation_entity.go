package allocation

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Allocation is the remaining leave-day balance for one employee, one
// leave type, one period (calendar year). The composite unique index is
// what makes bulk seeding safe to repeat.
type Allocation struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey"`
	CompanyID     uuid.UUID      `gorm:"type:uuid;not null;index:idx_allocations_company;uniqueIndex:uq_allocations_employee_type_period,priority:1"`
	EmployeeID    uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uq_allocations_employee_type_period"`
	LeaveTypeID   uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uq_allocations_employee_type_period"`
	Period        int            `gorm:"type:int;not null;uniqueIndex:uq_allocations_employee_type_period"`
	RemainingDays int            `gorm:"type:int;not null;default:0"`
	CreatedAt     time.Time      `gorm:"autoCreateTime"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime"`
	DeletedAt     gorm.DeletedAt `gorm:"index"`
}
