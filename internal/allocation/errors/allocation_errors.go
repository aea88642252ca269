package allocationerrors

import (
	"net/http"

	"leavehub/internal/shared/apperror"
)

var (
	ErrInvalidCompanyID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid company id",
		http.StatusBadRequest,
	)
	ErrInvalidEmployeeID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid employee id",
		http.StatusBadRequest,
	)
	ErrInvalidLeaveTypeID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid leave type id",
		http.StatusBadRequest,
	)
	ErrInvalidRemainingDays = apperror.New(
		apperror.CodeInvalidInput,
		"remaining_days must be zero or a positive number",
		http.StatusBadRequest,
	)
	ErrAllocationNotFound = apperror.New(
		apperror.CodeNotFound,
		"no allocation exists for this employee and leave type",
		http.StatusNotFound,
	)
	ErrAllocationExists = apperror.New(
		apperror.CodeConflict,
		"an allocation already exists for this employee, leave type and period",
		http.StatusConflict,
	)
	ErrInsufficientBalance = apperror.New(
		apperror.CodeConflict,
		"remaining allocation is less than the requested debit",
		http.StatusConflict,
	)
)
