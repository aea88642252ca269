package allocation

type SetLeaveRequest struct {
	LeaveTypeID string `json:"leave_type_id" binding:"required,uuid"`
}

type SetLeaveResponse struct {
	LeaveTypeID   string `json:"leave_type_id"`
	Period        int    `json:"period"`
	NumberCreated int    `json:"number_created"`
}

type EditAllocationRequest struct {
	RemainingDays int `json:"remaining_days" binding:"min=0"`
}

type AllocationResponse struct {
	ID            string `json:"id"`
	CompanyID     string `json:"company_id"`
	EmployeeID    string `json:"employee_id"`
	LeaveTypeID   string `json:"leave_type_id"`
	Period        int    `json:"period"`
	RemainingDays int    `json:"remaining_days"`
}
