package leaverequest_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"leavehub/internal/allocation"
	"leavehub/internal/leaverequest"
	leaverequesterrors "leavehub/internal/leaverequest/errors"
	"leavehub/internal/messaging/kafka"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

type fakeLeaveRequestRepository struct {
	withTxFn             func(tx *sql.Tx) leaverequest.Repository
	createFn             func(ctx context.Context, lr *leaverequest.LeaveRequest) error
	findAllByCompanyFn   func(ctx context.Context, companyID string) ([]leaverequest.LeaveRequest, error)
	findAllByEmployeeFn  func(ctx context.Context, companyID, employeeID string) ([]leaverequest.LeaveRequest, error)
	findByIDAndCompanyFn func(ctx context.Context, companyID, id string) (*leaverequest.LeaveRequest, error)
	markActionedFn       func(ctx context.Context, id string, approved bool, actorID string, actionedAt time.Time) (int64, error)
}

func (f *fakeLeaveRequestRepository) WithTx(tx *sql.Tx) leaverequest.Repository {
	if f.withTxFn != nil {
		return f.withTxFn(tx)
	}
	return f
}

func (f *fakeLeaveRequestRepository) Create(ctx context.Context, lr *leaverequest.LeaveRequest) error {
	if f.createFn != nil {
		return f.createFn(ctx, lr)
	}
	return nil
}

func (f *fakeLeaveRequestRepository) FindAllByCompany(ctx context.Context, companyID string) ([]leaverequest.LeaveRequest, error) {
	if f.findAllByCompanyFn != nil {
		return f.findAllByCompanyFn(ctx, companyID)
	}
	return nil, nil
}

func (f *fakeLeaveRequestRepository) FindAllByEmployee(ctx context.Context, companyID, employeeID string) ([]leaverequest.LeaveRequest, error) {
	if f.findAllByEmployeeFn != nil {
		return f.findAllByEmployeeFn(ctx, companyID, employeeID)
	}
	return nil, nil
}

func (f *fakeLeaveRequestRepository) FindByIDAndCompany(ctx context.Context, companyID, id string) (*leaverequest.LeaveRequest, error) {
	if f.findByIDAndCompanyFn != nil {
		return f.findByIDAndCompanyFn(ctx, companyID, id)
	}
	return nil, nil
}

func (f *fakeLeaveRequestRepository) MarkActioned(ctx context.Context, id string, approved bool, actorID string, actionedAt time.Time) (int64, error) {
	if f.markActionedFn != nil {
		return f.markActionedFn(ctx, id, approved, actorID, actionedAt)
	}
	return 1, nil
}

type fakeAllocationRepository struct {
	findByEmployeeAndTypeFn func(ctx context.Context, companyID, employeeID, leaveTypeID string, period int) (*allocation.Allocation, error)
	debitFn                 func(ctx context.Context, allocationID string, days int) (int64, error)
}

func (f *fakeAllocationRepository) WithTx(tx *sql.Tx) allocation.Repository { return f }

func (f *fakeAllocationRepository) Create(ctx context.Context, a *allocation.Allocation) error {
	return nil
}

func (f *fakeAllocationRepository) Exists(ctx context.Context, companyID, employeeID, leaveTypeID string, period int) (bool, error) {
	return false, nil
}

func (f *fakeAllocationRepository) FindByEmployeeAndType(ctx context.Context, companyID, employeeID, leaveTypeID string, period int) (*allocation.Allocation, error) {
	if f.findByEmployeeAndTypeFn != nil {
		return f.findByEmployeeAndTypeFn(ctx, companyID, employeeID, leaveTypeID, period)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeAllocationRepository) FindAllByEmployee(ctx context.Context, companyID, employeeID string) ([]allocation.Allocation, error) {
	return nil, nil
}

func (f *fakeAllocationRepository) FindByIDAndCompany(ctx context.Context, companyID, id string) (*allocation.Allocation, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeAllocationRepository) Update(ctx context.Context, a *allocation.Allocation) error {
	return nil
}

func (f *fakeAllocationRepository) Debit(ctx context.Context, allocationID string, days int) (int64, error) {
	if f.debitFn != nil {
		return f.debitFn(ctx, allocationID, days)
	}
	return 1, nil
}

type fakeCounterRepository struct {
	getNextValueFn func(ctx context.Context, companyID, counterType string) (int64, error)
}

func (f *fakeCounterRepository) GetNextValue(ctx context.Context, companyID, counterType string) (int64, error) {
	if f.getNextValueFn != nil {
		return f.getNextValueFn(ctx, companyID, counterType)
	}
	return 42, nil
}

type fakeOutboxRepository struct {
	createFn func(ctx context.Context, event kafka.OutboxEvent) error
}

func (f *fakeOutboxRepository) WithTx(tx *sql.Tx) kafka.OutboxRepository { return f }

func (f *fakeOutboxRepository) Create(ctx context.Context, event kafka.OutboxEvent) error {
	if f.createFn != nil {
		return f.createFn(ctx, event)
	}
	return nil
}

func (f *fakeOutboxRepository) ListPending(ctx context.Context, limit int) ([]kafka.OutboxEvent, error) {
	return nil, nil
}

func (f *fakeOutboxRepository) MarkSent(ctx context.Context, id string) error { return nil }

func (f *fakeOutboxRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	return nil
}

type leaveRequestServiceDeps struct {
	db             *sql.DB
	sqlMock        sqlmock.Sqlmock
	service        leaverequest.Service
	repo           *fakeLeaveRequestRepository
	allocationRepo *fakeAllocationRepository
	counterRepo    *fakeCounterRepository
	outboxRepo     *fakeOutboxRepository
}

func setupLeaveRequestServiceTest(t *testing.T) *leaveRequestServiceDeps {
	t.Helper()

	db, sqlMock, err := sqlmock.New()
	assert.NoError(t, err)

	repo := &fakeLeaveRequestRepository{}
	allocationRepo := &fakeAllocationRepository{}
	counterRepo := &fakeCounterRepository{}
	outboxRepo := &fakeOutboxRepository{}
	svc := leaverequest.NewService(db, repo, allocationRepo, counterRepo, outboxRepo, nil)

	return &leaveRequestServiceDeps{
		db:             db,
		sqlMock:        sqlMock,
		service:        svc,
		repo:           repo,
		allocationRepo: allocationRepo,
		counterRepo:    counterRepo,
		outboxRepo:     outboxRepo,
	}
}

func expectTx(t *testing.T, mock sqlmock.Sqlmock, commit bool) {
	t.Helper()
	mock.ExpectBegin()
	if commit {
		mock.ExpectCommit()
	} else {
		mock.ExpectRollback()
	}
}

func allocationFor(companyID, employeeID, leaveTypeID string, period, remaining int) *allocation.Allocation {
	return &allocation.Allocation{
		ID:            uuid.New(),
		CompanyID:     uuid.MustParse(companyID),
		EmployeeID:    uuid.MustParse(employeeID),
		LeaveTypeID:   uuid.MustParse(leaveTypeID),
		Period:        period,
		RemainingDays: remaining,
	}
}

func TestLeaveRequestService_Submit(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New().String()
	employeeID := uuid.New().String()
	leaveTypeID := uuid.New().String()

	t.Run("success", func(t *testing.T) {
		deps := setupLeaveRequestServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, true)
		deps.allocationRepo.findByEmployeeAndTypeFn = func(ctx context.Context, cid, eid, ltid string, period int) (*allocation.Allocation, error) {
			assert.Equal(t, companyID, cid)
			assert.Equal(t, employeeID, eid)
			assert.Equal(t, leaveTypeID, ltid)
			assert.Equal(t, 2026, period)
			return allocationFor(cid, eid, ltid, period, 10), nil
		}

		var outboxEventType string
		deps.outboxRepo.createFn = func(ctx context.Context, event kafka.OutboxEvent) error {
			outboxEventType = event.EventType
			assert.Equal(t, "leave.request.lifecycle.v1", event.Topic)
			return nil
		}

		resp, err := deps.service.Submit(ctx, companyID, employeeID, leaverequest.SubmitLeaveRequest{
			LeaveTypeID: leaveTypeID,
			StartDate:   "2026-03-02",
			EndDate:     "2026-03-05",
		})

		assert.NoError(t, err)
		assert.Equal(t, 3, resp.DaysRequested)
		assert.Equal(t, leaverequest.StatusPending, resp.Status)
		assert.Equal(t, "LR-000042", resp.RequestNumber)
		assert.Equal(t, employeeID, resp.EmployeeID)
		assert.Nil(t, resp.ApprovedBy)
		assert.Equal(t, "leave_request_submitted", outboxEventType)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("exact remaining balance is accepted", func(t *testing.T) {
		deps := setupLeaveRequestServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, true)
		deps.allocationRepo.findByEmployeeAndTypeFn = func(ctx context.Context, cid, eid, ltid string, period int) (*allocation.Allocation, error) {
			return allocationFor(cid, eid, ltid, period, 3), nil
		}

		resp, err := deps.service.Submit(ctx, companyID, employeeID, leaverequest.SubmitLeaveRequest{
			LeaveTypeID: leaveTypeID,
			StartDate:   "2026-06-01",
			EndDate:     "2026-06-04",
		})

		assert.NoError(t, err)
		assert.Equal(t, 3, resp.DaysRequested)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative insufficient balance", func(t *testing.T) {
		deps := setupLeaveRequestServiceTest(t)
		defer deps.db.Close()

		deps.allocationRepo.findByEmployeeAndTypeFn = func(ctx context.Context, cid, eid, ltid string, period int) (*allocation.Allocation, error) {
			return allocationFor(cid, eid, ltid, period, 3), nil
		}

		created := false
		deps.repo.createFn = func(ctx context.Context, lr *leaverequest.LeaveRequest) error {
			created = true
			return nil
		}

		_, err := deps.service.Submit(ctx, companyID, employeeID, leaverequest.SubmitLeaveRequest{
			LeaveTypeID: leaveTypeID,
			StartDate:   "2026-06-01",
			EndDate:     "2026-06-06",
		})

		assert.ErrorIs(t, err, leaverequesterrors.ErrInsufficientBalance)
		assert.False(t, created)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative no allocation", func(t *testing.T) {
		deps := setupLeaveRequestServiceTest(t)
		defer deps.db.Close()

		deps.allocationRepo.findByEmployeeAndTypeFn = func(ctx context.Context, cid, eid, ltid string, period int) (*allocation.Allocation, error) {
			return nil, gorm.ErrRecordNotFound
		}

		_, err := deps.service.Submit(ctx, companyID, employeeID, leaverequest.SubmitLeaveRequest{
			LeaveTypeID: leaveTypeID,
			StartDate:   "2026-06-01",
			EndDate:     "2026-06-03",
		})

		assert.ErrorIs(t, err, leaverequesterrors.ErrNoAllocation)
	})

	t.Run("negative end before start", func(t *testing.T) {
		deps := setupLeaveRequestServiceTest(t)
		defer deps.db.Close()

		_, err := deps.service.Submit(ctx, companyID, employeeID, leaverequest.SubmitLeaveRequest{
			LeaveTypeID: leaveTypeID,
			StartDate:   "2026-06-10",
			EndDate:     "2026-06-05",
		})

		assert.ErrorIs(t, err, leaverequesterrors.ErrInvalidDateRange)
	})

	t.Run("negative bad date format", func(t *testing.T) {
		deps := setupLeaveRequestServiceTest(t)
		defer deps.db.Close()

		_, err := deps.service.Submit(ctx, companyID, employeeID, leaverequest.SubmitLeaveRequest{
			LeaveTypeID: leaveTypeID,
			StartDate:   "06/01/2026",
			EndDate:     "2026-06-03",
		})

		assert.ErrorIs(t, err, leaverequesterrors.ErrInvalidDateFormat)
	})

	t.Run("negative counter error", func(t *testing.T) {
		deps := setupLeaveRequestServiceTest(t)
		defer deps.db.Close()

		deps.allocationRepo.findByEmployeeAndTypeFn = func(ctx context.Context, cid, eid, ltid string, period int) (*allocation.Allocation, error) {
			return allocationFor(cid, eid, ltid, period, 10), nil
		}
		deps.counterRepo.getNextValueFn = func(ctx context.Context, cid, counterType string) (int64, error) {
			return 0, errors.New("db error")
		}

		_, err := deps.service.Submit(ctx, companyID, employeeID, leaverequest.SubmitLeaveRequest{
			LeaveTypeID: leaveTypeID,
			StartDate:   "2026-06-01",
			EndDate:     "2026-06-03",
		})

		assert.Error(t, err)
	})
}

func pendingLeaveRequest(companyID, id string, days int) *leaverequest.LeaveRequest {
	return &leaverequest.LeaveRequest{
		ID:            uuid.MustParse(id),
		CompanyID:     uuid.MustParse(companyID),
		EmployeeID:    uuid.New(),
		LeaveTypeID:   uuid.New(),
		RequestNumber: "LR-000007",
		StartDate:     time.Date(2026, 7, 6, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2026, 7, 6+days, 0, 0, 0, 0, time.UTC),
		DaysRequested: days,
		DateRequested: time.Date(2026, 6, 20, 10, 0, 0, 0, time.UTC),
	}
}

func TestLeaveRequestService_Approve(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New().String()
	actorID := uuid.New().String()
	id := uuid.New().String()

	t.Run("success debits the allocation", func(t *testing.T) {
		deps := setupLeaveRequestServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, true)
		lr := pendingLeaveRequest(companyID, id, 4)
		deps.repo.findByIDAndCompanyFn = func(ctx context.Context, cid, targetID string) (*leaverequest.LeaveRequest, error) {
			assert.Equal(t, companyID, cid)
			assert.Equal(t, id, targetID)
			return lr, nil
		}
		deps.repo.markActionedFn = func(ctx context.Context, targetID string, approved bool, actor string, actionedAt time.Time) (int64, error) {
			assert.True(t, approved)
			assert.Equal(t, actorID, actor)
			return 1, nil
		}

		alloc := allocationFor(companyID, lr.EmployeeID.String(), lr.LeaveTypeID.String(), 2026, 10)
		deps.allocationRepo.findByEmployeeAndTypeFn = func(ctx context.Context, cid, eid, ltid string, period int) (*allocation.Allocation, error) {
			assert.Equal(t, lr.EmployeeID.String(), eid)
			assert.Equal(t, lr.LeaveTypeID.String(), ltid)
			assert.Equal(t, 2026, period)
			return alloc, nil
		}

		var debitedDays int
		deps.allocationRepo.debitFn = func(ctx context.Context, allocationID string, days int) (int64, error) {
			assert.Equal(t, alloc.ID.String(), allocationID)
			debitedDays = days
			return 1, nil
		}

		var outboxEventType string
		deps.outboxRepo.createFn = func(ctx context.Context, event kafka.OutboxEvent) error {
			outboxEventType = event.EventType
			return nil
		}

		resp, err := deps.service.Approve(ctx, companyID, id, actorID)

		assert.NoError(t, err)
		assert.Equal(t, 4, debitedDays)
		assert.Equal(t, leaverequest.StatusApproved, resp.Status)
		assert.NotNil(t, resp.ApprovedBy)
		assert.Equal(t, actorID, *resp.ApprovedBy)
		assert.NotNil(t, resp.DateActioned)
		assert.Equal(t, "leave_request_approved", outboxEventType)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative already actioned", func(t *testing.T) {
		deps := setupLeaveRequestServiceTest(t)
		defer deps.db.Close()

		approved := true
		lr := pendingLeaveRequest(companyID, id, 2)
		lr.Approved = &approved
		deps.repo.findByIDAndCompanyFn = func(ctx context.Context, cid, targetID string) (*leaverequest.LeaveRequest, error) {
			return lr, nil
		}

		_, err := deps.service.Approve(ctx, companyID, id, actorID)

		assert.ErrorIs(t, err, leaverequesterrors.ErrAlreadyActioned)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative actioned by concurrent actor", func(t *testing.T) {
		deps := setupLeaveRequestServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, false)
		deps.repo.findByIDAndCompanyFn = func(ctx context.Context, cid, targetID string) (*leaverequest.LeaveRequest, error) {
			return pendingLeaveRequest(companyID, id, 2), nil
		}
		deps.repo.markActionedFn = func(ctx context.Context, targetID string, approved bool, actor string, actionedAt time.Time) (int64, error) {
			return 0, nil
		}

		_, err := deps.service.Approve(ctx, companyID, id, actorID)

		assert.ErrorIs(t, err, leaverequesterrors.ErrAlreadyActioned)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative balance no longer covers request", func(t *testing.T) {
		deps := setupLeaveRequestServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, false)
		lr := pendingLeaveRequest(companyID, id, 8)
		deps.repo.findByIDAndCompanyFn = func(ctx context.Context, cid, targetID string) (*leaverequest.LeaveRequest, error) {
			return lr, nil
		}
		deps.allocationRepo.findByEmployeeAndTypeFn = func(ctx context.Context, cid, eid, ltid string, period int) (*allocation.Allocation, error) {
			return allocationFor(cid, eid, ltid, period, 2), nil
		}
		deps.allocationRepo.debitFn = func(ctx context.Context, allocationID string, days int) (int64, error) {
			return 0, nil
		}

		_, err := deps.service.Approve(ctx, companyID, id, actorID)

		assert.ErrorIs(t, err, leaverequesterrors.ErrBalanceConflict)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative not found", func(t *testing.T) {
		deps := setupLeaveRequestServiceTest(t)
		defer deps.db.Close()

		deps.repo.findByIDAndCompanyFn = func(ctx context.Context, cid, targetID string) (*leaverequest.LeaveRequest, error) {
			return nil, gorm.ErrRecordNotFound
		}

		_, err := deps.service.Approve(ctx, companyID, id, actorID)

		assert.ErrorIs(t, err, leaverequesterrors.ErrRequestNotFound)
	})
}

func TestLeaveRequestService_Reject(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New().String()
	actorID := uuid.New().String()
	id := uuid.New().String()

	t.Run("success leaves the ledger untouched", func(t *testing.T) {
		deps := setupLeaveRequestServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, true)
		deps.repo.findByIDAndCompanyFn = func(ctx context.Context, cid, targetID string) (*leaverequest.LeaveRequest, error) {
			return pendingLeaveRequest(companyID, id, 5), nil
		}
		deps.repo.markActionedFn = func(ctx context.Context, targetID string, approved bool, actor string, actionedAt time.Time) (int64, error) {
			assert.False(t, approved)
			return 1, nil
		}

		debited := false
		deps.allocationRepo.debitFn = func(ctx context.Context, allocationID string, days int) (int64, error) {
			debited = true
			return 1, nil
		}

		var outboxEventType string
		deps.outboxRepo.createFn = func(ctx context.Context, event kafka.OutboxEvent) error {
			outboxEventType = event.EventType
			return nil
		}

		resp, err := deps.service.Reject(ctx, companyID, id, actorID)

		assert.NoError(t, err)
		assert.Equal(t, leaverequest.StatusRejected, resp.Status)
		assert.False(t, debited)
		assert.Equal(t, "leave_request_rejected", outboxEventType)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative already actioned", func(t *testing.T) {
		deps := setupLeaveRequestServiceTest(t)
		defer deps.db.Close()

		rejected := false
		lr := pendingLeaveRequest(companyID, id, 2)
		lr.Approved = &rejected
		deps.repo.findByIDAndCompanyFn = func(ctx context.Context, cid, targetID string) (*leaverequest.LeaveRequest, error) {
			return lr, nil
		}

		_, err := deps.service.Reject(ctx, companyID, id, actorID)

		assert.ErrorIs(t, err, leaverequesterrors.ErrAlreadyActioned)
	})
}

func TestLeaveRequestService_GetSummary(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New().String()

	t.Run("counts by outcome", func(t *testing.T) {
		deps := setupLeaveRequestServiceTest(t)
		defer deps.db.Close()

		approved := true
		rejected := false
		deps.repo.findAllByCompanyFn = func(ctx context.Context, cid string) ([]leaverequest.LeaveRequest, error) {
			assert.Equal(t, companyID, cid)
			return []leaverequest.LeaveRequest{
				{Approved: nil},
				{Approved: nil},
				{Approved: &approved},
				{Approved: &rejected},
			}, nil
		}

		summary, err := deps.service.GetSummary(ctx, companyID)

		assert.NoError(t, err)
		assert.Equal(t, 4, summary.Total)
		assert.Equal(t, 2, summary.Pending)
		assert.Equal(t, 1, summary.Approved)
		assert.Equal(t, 1, summary.Rejected)
	})

	t.Run("negative repo error", func(t *testing.T) {
		deps := setupLeaveRequestServiceTest(t)
		defer deps.db.Close()

		deps.repo.findAllByCompanyFn = func(ctx context.Context, cid string) ([]leaverequest.LeaveRequest, error) {
			return nil, errors.New("db error")
		}

		_, err := deps.service.GetSummary(ctx, companyID)

		assert.Error(t, err)
	})
}
