package leaverequest

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
)

// LeaveRequest carries its approval outcome as a tri-state: nil is
// pending, true approved, false rejected. ApprovedByID and DateActioned
// are only set once the request has been actioned.
type LeaveRequest struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey"`
	CompanyID     uuid.UUID  `gorm:"type:uuid;not null;index:idx_leave_requests_company"`
	EmployeeID    uuid.UUID  `gorm:"type:uuid;not null;index:idx_leave_requests_employee"`
	LeaveTypeID   uuid.UUID  `gorm:"type:uuid;not null"`
	RequestNumber string     `gorm:"size:20;not null;uniqueIndex:uq_leave_requests_number"`
	StartDate     time.Time  `gorm:"type:date;not null"`
	EndDate       time.Time  `gorm:"type:date;not null"`
	DaysRequested int        `gorm:"type:int;not null"`
	Approved      *bool      `gorm:"index:idx_leave_requests_approved"`
	ApprovedByID  *uuid.UUID `gorm:"type:uuid"`
	DateRequested time.Time  `gorm:"not null"`
	DateActioned  *time.Time

	CreatedAt time.Time      `gorm:"autoCreateTime"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// Status maps the tri-state onto the wire-level status string.
func (lr LeaveRequest) Status() string {
	switch {
	case lr.Approved == nil:
		return StatusPending
	case *lr.Approved:
		return StatusApproved
	default:
		return StatusRejected
	}
}
