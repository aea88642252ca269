package events

import "time"

const LeaveRequestLifecycleTopic = "leave.request.lifecycle.v1"

const (
	LeaveRequestSubmitted = "leave_request_submitted"
	LeaveRequestApproved  = "leave_request_approved"
	LeaveRequestRejected  = "leave_request_rejected"
)

type LeaveRequestLifecycleEvent struct {
	EventType     string    `json:"event_type"`
	RequestID     string    `json:"request_id,omitempty"`
	LeaveRequest  string    `json:"leave_request_id"`
	RequestNumber string    `json:"request_number"`
	CompanyID     string    `json:"company_id"`
	EmployeeID    string    `json:"employee_id"`
	LeaveTypeID   string    `json:"leave_type_id"`
	DaysRequested int       `json:"days_requested"`
	ActionedBy    string    `json:"actioned_by,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}
