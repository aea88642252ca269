package allocation

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	allocationerrors "leavehub/internal/allocation/errors"
	"leavehub/internal/employee"
	"leavehub/internal/leavetype"
	leavetypeerrors "leavehub/internal/leavetype/errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service interface {
	GetBalance(ctx context.Context, companyID, employeeID, leaveTypeID string, period int) (AllocationResponse, error)
	GetByEmployee(ctx context.Context, companyID, employeeID string) ([]AllocationResponse, error)
	SetLeave(ctx context.Context, companyID, leaveTypeID string) (SetLeaveResponse, error)
	Edit(ctx context.Context, companyID, id string, req EditAllocationRequest) (AllocationResponse, error)
}

type service struct {
	db            *sql.DB
	repo          Repository
	employeeRepo  employee.Repository
	leaveTypeRepo leavetype.Repository
	logger        *zap.Logger
}

func NewService(
	db *sql.DB,
	repo Repository,
	employeeRepo employee.Repository,
	leaveTypeRepo leavetype.Repository,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("allocation.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("allocation.service")
	}
	return &service{
		db:            db,
		repo:          repo,
		employeeRepo:  employeeRepo,
		leaveTypeRepo: leaveTypeRepo,
		logger:        l,
	}
}

func (s *service) GetBalance(ctx context.Context, companyID, employeeID, leaveTypeID string, period int) (AllocationResponse, error) {
	if _, err := uuid.Parse(employeeID); err != nil {
		return AllocationResponse{}, allocationerrors.ErrInvalidEmployeeID
	}
	if _, err := uuid.Parse(leaveTypeID); err != nil {
		return AllocationResponse{}, allocationerrors.ErrInvalidLeaveTypeID
	}
	if period == 0 {
		period = time.Now().UTC().Year()
	}

	a, err := s.repo.FindByEmployeeAndType(ctx, companyID, employeeID, leaveTypeID, period)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return AllocationResponse{}, allocationerrors.ErrAllocationNotFound
		}
		return AllocationResponse{}, err
	}

	return mapToResponse(*a), nil
}

func (s *service) GetByEmployee(ctx context.Context, companyID, employeeID string) ([]AllocationResponse, error) {
	if _, err := uuid.Parse(employeeID); err != nil {
		return nil, allocationerrors.ErrInvalidEmployeeID
	}

	allocations, err := s.repo.FindAllByEmployee(ctx, companyID, employeeID)
	if err != nil {
		return nil, err
	}

	return mapToListResponse(allocations), nil
}

// SetLeave seeds one allocation per employee holding the employee role
// for the given leave type and the current year. Employees already
// allocated for that (type, period) are skipped, so repeating the call
// is a no-op for them.
func (s *service) SetLeave(ctx context.Context, companyID, leaveTypeID string) (SetLeaveResponse, error) {
	s.logger.Debug("set leave requested",
		zap.String("company_id", companyID),
		zap.String("leave_type_id", leaveTypeID),
	)

	companyUUID, err := uuid.Parse(companyID)
	if err != nil {
		return SetLeaveResponse{}, allocationerrors.ErrInvalidCompanyID
	}
	leaveTypeUUID, err := uuid.Parse(leaveTypeID)
	if err != nil {
		return SetLeaveResponse{}, allocationerrors.ErrInvalidLeaveTypeID
	}

	lt, err := s.leaveTypeRepo.FindByIDAndCompany(ctx, companyID, leaveTypeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return SetLeaveResponse{}, leavetypeerrors.ErrLeaveTypeNotFound
		}
		return SetLeaveResponse{}, err
	}

	employees, err := s.employeeRepo.FindByRoleAndCompany(ctx, companyID, employee.RoleEmployee)
	if err != nil {
		return SetLeaveResponse{}, err
	}

	period := time.Now().UTC().Year()
	created := 0

	for _, emp := range employees {
		exists, err := s.repo.Exists(ctx, companyID, emp.ID.String(), leaveTypeID, period)
		if err != nil {
			return SetLeaveResponse{}, err
		}
		if exists {
			continue
		}

		a := &Allocation{
			ID:            uuid.New(),
			CompanyID:     companyUUID,
			EmployeeID:    emp.ID,
			LeaveTypeID:   leaveTypeUUID,
			Period:        period,
			RemainingDays: lt.DefaultDays,
		}

		if err := s.repo.Create(ctx, a); err != nil {
			// The unique index is the backstop against a concurrent
			// SetLeave seeding the same pair; treat it as a skip.
			if isDuplicateAllocation(err) {
				continue
			}
			s.logger.Error("set leave create allocation failed",
				zap.String("employee_id", emp.ID.String()),
				zap.Error(err),
			)
			return SetLeaveResponse{}, err
		}
		created++
	}

	s.logger.Info("set leave success",
		zap.String("company_id", companyID),
		zap.String("leave_type_id", leaveTypeID),
		zap.Int("number_created", created),
	)

	return SetLeaveResponse{
		LeaveTypeID:   leaveTypeID,
		Period:        period,
		NumberCreated: created,
	}, nil
}

func (s *service) Edit(ctx context.Context, companyID, id string, req EditAllocationRequest) (AllocationResponse, error) {
	if req.RemainingDays < 0 {
		return AllocationResponse{}, allocationerrors.ErrInvalidRemainingDays
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("edit allocation begin tx failed", zap.Error(err))
		return AllocationResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	a, err := qtx.FindByIDAndCompany(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return AllocationResponse{}, allocationerrors.ErrAllocationNotFound
		}
		return AllocationResponse{}, err
	}

	a.RemainingDays = req.RemainingDays

	if err := qtx.Update(ctx, a); err != nil {
		s.logger.Error("edit allocation persist failed",
			zap.String("allocation_id", id),
			zap.Error(err),
		)
		return AllocationResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("edit allocation commit failed", zap.Error(err))
		return AllocationResponse{}, err
	}

	return mapToResponse(*a), nil
}

func isDuplicateAllocation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "uq_allocations_employee_type_period"
	}

	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "duplicate key value") && strings.Contains(errMsg, "uq_allocations_employee_type_period")
}

func mapToResponse(a Allocation) AllocationResponse {
	return AllocationResponse{
		ID:            a.ID.String(),
		CompanyID:     a.CompanyID.String(),
		EmployeeID:    a.EmployeeID.String(),
		LeaveTypeID:   a.LeaveTypeID.String(),
		Period:        a.Period,
		RemainingDays: a.RemainingDays,
	}
}

func mapToListResponse(allocations []Allocation) []AllocationResponse {
	resp := make([]AllocationResponse, len(allocations))
	for i, a := range allocations {
		resp[i] = mapToResponse(a)
	}
	return resp
}
