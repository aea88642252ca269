package employee

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleEmployee      = "employee"
	RoleAdministrator = "administrator"
)

type Employee struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey"`
	CompanyID uuid.UUID      `gorm:"type:uuid;not null;index:idx_employees_company_role"`
	FullName  string         `gorm:"size:255;not null"`
	Email     string         `gorm:"size:255;not null;uniqueIndex:uq_employees_email"`
	Role      string         `gorm:"size:30;not null;default:'employee';index:idx_employees_company_role"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}
