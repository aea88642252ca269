package leaverequest

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"leavehub/internal/allocation"
	"leavehub/internal/events"
	leaverequesterrors "leavehub/internal/leaverequest/errors"
	"leavehub/internal/messaging/kafka"
	"leavehub/internal/shared/contextutil"
	"leavehub/internal/shared/counter"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

const (
	SummaryKeyPrefix   = "leave_request:summary:"
	summaryTTL         = 30 * time.Second
	requestDateLayout  = "2006-01-02"
	requestCounterType = "leave_request"
)

func GetSummaryKey(companyID string) string {
	return SummaryKeyPrefix + companyID
}

type Service interface {
	Submit(ctx context.Context, companyID, employeeID string, req SubmitLeaveRequest) (LeaveRequestResponse, error)
	GetAll(ctx context.Context, companyID string) ([]LeaveRequestResponse, error)
	GetByEmployee(ctx context.Context, companyID, employeeID string) ([]LeaveRequestResponse, error)
	GetByID(ctx context.Context, companyID, id string) (LeaveRequestResponse, error)
	Approve(ctx context.Context, companyID, id, actorID string) (LeaveRequestResponse, error)
	Reject(ctx context.Context, companyID, id, actorID string) (LeaveRequestResponse, error)
	GetSummary(ctx context.Context, companyID string) (SummaryResponse, error)
}

type service struct {
	db             *sql.DB
	repo           Repository
	allocationRepo allocation.Repository
	counterRepo    counter.Repository
	outbox         kafka.OutboxRepository
	rdb            *redis.Client
	sf             *singleflight.Group
	logger         *zap.Logger
}

func NewService(
	db *sql.DB,
	repo Repository,
	allocationRepo allocation.Repository,
	counterRepo counter.Repository,
	outboxRepo kafka.OutboxRepository,
	rdb *redis.Client,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("leaverequest.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("leaverequest.service")
	}
	return &service{
		db:             db,
		repo:           repo,
		allocationRepo: allocationRepo,
		counterRepo:    counterRepo,
		outbox:         outboxRepo,
		rdb:            rdb,
		sf:             &singleflight.Group{},
		logger:         l,
	}
}

// Submit validates the requested span against the employee's remaining
// allocation for the period the leave starts in and records a pending
// request. The span is computed once here and reused verbatim when the
// request is approved. A request covering exactly the remaining balance
// is accepted.
func (s *service) Submit(ctx context.Context, companyID, employeeID string, req SubmitLeaveRequest) (LeaveRequestResponse, error) {
	rid := contextutil.GetRequestID(ctx)
	s.logger.Debug("submit leave request",
		zap.String("request_id", rid),
		zap.String("company_id", companyID),
		zap.String("employee_id", employeeID),
	)

	companyUUID, err := uuid.Parse(companyID)
	if err != nil {
		return LeaveRequestResponse{}, leaverequesterrors.ErrInvalidCompanyID
	}
	employeeUUID, err := uuid.Parse(employeeID)
	if err != nil {
		return LeaveRequestResponse{}, leaverequesterrors.ErrInvalidEmployeeID
	}
	leaveTypeUUID, err := uuid.Parse(req.LeaveTypeID)
	if err != nil {
		return LeaveRequestResponse{}, leaverequesterrors.ErrInvalidLeaveTypeID
	}

	startDate, err := time.ParseInLocation(requestDateLayout, req.StartDate, time.UTC)
	if err != nil {
		return LeaveRequestResponse{}, leaverequesterrors.ErrInvalidDateFormat
	}
	endDate, err := time.ParseInLocation(requestDateLayout, req.EndDate, time.UTC)
	if err != nil {
		return LeaveRequestResponse{}, leaverequesterrors.ErrInvalidDateFormat
	}
	if endDate.Before(startDate) {
		return LeaveRequestResponse{}, leaverequesterrors.ErrInvalidDateRange
	}

	daysRequested := int(endDate.Sub(startDate).Hours() / 24)
	period := startDate.Year()

	alloc, err := s.allocationRepo.FindByEmployeeAndType(ctx, companyID, employeeID, req.LeaveTypeID, period)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LeaveRequestResponse{}, leaverequesterrors.ErrNoAllocation
		}
		return LeaveRequestResponse{}, err
	}
	if daysRequested > alloc.RemainingDays {
		s.logger.Info("submit rejected, insufficient balance",
			zap.String("employee_id", employeeID),
			zap.Int("days_requested", daysRequested),
			zap.Int("remaining_days", alloc.RemainingDays),
		)
		return LeaveRequestResponse{}, leaverequesterrors.ErrInsufficientBalance
	}

	seq, err := s.counterRepo.GetNextValue(ctx, companyID, requestCounterType)
	if err != nil {
		s.logger.Error("get request number failed", zap.Error(err))
		return LeaveRequestResponse{}, err
	}

	lr := &LeaveRequest{
		ID:            uuid.New(),
		CompanyID:     companyUUID,
		EmployeeID:    employeeUUID,
		LeaveTypeID:   leaveTypeUUID,
		RequestNumber: fmt.Sprintf("LR-%06d", seq),
		StartDate:     startDate,
		EndDate:       endDate,
		DaysRequested: daysRequested,
		DateRequested: time.Now().UTC(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("submit begin tx failed", zap.String("request_id", rid), zap.Error(err))
		return LeaveRequestResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	if err := qtx.Create(ctx, lr); err != nil {
		s.logger.Error("submit persist failed", zap.Error(err))
		return LeaveRequestResponse{}, err
	}

	if err := s.enqueueLifecycleEvent(ctx, tx, events.LeaveRequestSubmitted, lr, ""); err != nil {
		return LeaveRequestResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("submit commit failed", zap.Error(err))
		return LeaveRequestResponse{}, err
	}

	s.invalidateSummary(ctx, companyID)

	s.logger.Info("leave request submitted",
		zap.String("leave_request_id", lr.ID.String()),
		zap.String("request_number", lr.RequestNumber),
		zap.Int("days_requested", daysRequested),
	)

	return mapToResponse(*lr), nil
}

func (s *service) GetAll(ctx context.Context, companyID string) ([]LeaveRequestResponse, error) {
	requests, err := s.repo.FindAllByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return mapToListResponse(requests), nil
}

func (s *service) GetByEmployee(ctx context.Context, companyID, employeeID string) ([]LeaveRequestResponse, error) {
	if _, err := uuid.Parse(employeeID); err != nil {
		return nil, leaverequesterrors.ErrInvalidEmployeeID
	}

	requests, err := s.repo.FindAllByEmployee(ctx, companyID, employeeID)
	if err != nil {
		return nil, err
	}
	return mapToListResponse(requests), nil
}

func (s *service) GetByID(ctx context.Context, companyID, id string) (LeaveRequestResponse, error) {
	lr, err := s.repo.FindByIDAndCompany(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LeaveRequestResponse{}, leaverequesterrors.ErrRequestNotFound
		}
		return LeaveRequestResponse{}, err
	}
	return mapToResponse(*lr), nil
}

// Approve settles a pending request: the decision, the ledger debit and
// the lifecycle event commit together or not at all. The conditional
// update on the request guards against a second actor, the conditional
// debit guards against the balance going negative underneath us.
func (s *service) Approve(ctx context.Context, companyID, id, actorID string) (LeaveRequestResponse, error) {
	return s.action(ctx, companyID, id, actorID, true)
}

// Reject records the outcome without touching the allocation ledger.
func (s *service) Reject(ctx context.Context, companyID, id, actorID string) (LeaveRequestResponse, error) {
	return s.action(ctx, companyID, id, actorID, false)
}

func (s *service) action(ctx context.Context, companyID, id, actorID string, approve bool) (LeaveRequestResponse, error) {
	rid := contextutil.GetRequestID(ctx)

	if _, err := uuid.Parse(id); err != nil {
		return LeaveRequestResponse{}, leaverequesterrors.ErrRequestNotFound
	}
	actorUUID, err := uuid.Parse(actorID)
	if err != nil {
		return LeaveRequestResponse{}, leaverequesterrors.ErrInvalidActorID
	}

	lr, err := s.repo.FindByIDAndCompany(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LeaveRequestResponse{}, leaverequesterrors.ErrRequestNotFound
		}
		return LeaveRequestResponse{}, err
	}
	if lr.Approved != nil {
		return LeaveRequestResponse{}, leaverequesterrors.ErrAlreadyActioned
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("action begin tx failed", zap.String("request_id", rid), zap.Error(err))
		return LeaveRequestResponse{}, err
	}
	defer tx.Rollback()

	actionedAt := time.Now().UTC()

	qtx := s.repo.WithTx(tx)
	rows, err := qtx.MarkActioned(ctx, id, approve, actorID, actionedAt)
	if err != nil {
		s.logger.Error("mark actioned failed", zap.String("leave_request_id", id), zap.Error(err))
		return LeaveRequestResponse{}, err
	}
	if rows == 0 {
		return LeaveRequestResponse{}, leaverequesterrors.ErrAlreadyActioned
	}

	eventType := events.LeaveRequestRejected
	if approve {
		eventType = events.LeaveRequestApproved

		alloc, err := s.allocationRepo.FindByEmployeeAndType(
			ctx, companyID, lr.EmployeeID.String(), lr.LeaveTypeID.String(), lr.StartDate.Year(),
		)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return LeaveRequestResponse{}, leaverequesterrors.ErrNoAllocation
			}
			return LeaveRequestResponse{}, err
		}

		debited, err := s.allocationRepo.WithTx(tx).Debit(ctx, alloc.ID.String(), lr.DaysRequested)
		if err != nil {
			s.logger.Error("allocation debit failed",
				zap.String("allocation_id", alloc.ID.String()),
				zap.Error(err),
			)
			return LeaveRequestResponse{}, err
		}
		if debited == 0 {
			s.logger.Info("approve rejected, balance no longer covers request",
				zap.String("leave_request_id", id),
				zap.Int("days_requested", lr.DaysRequested),
			)
			return LeaveRequestResponse{}, leaverequesterrors.ErrBalanceConflict
		}
	}

	if err := s.enqueueLifecycleEvent(ctx, tx, eventType, lr, actorID); err != nil {
		return LeaveRequestResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("action commit failed", zap.Error(err))
		return LeaveRequestResponse{}, err
	}

	s.invalidateSummary(ctx, companyID)

	lr.Approved = &approve
	lr.ApprovedByID = &actorUUID
	lr.DateActioned = &actionedAt

	s.logger.Info("leave request actioned",
		zap.String("leave_request_id", id),
		zap.String("request_number", lr.RequestNumber),
		zap.Bool("approved", approve),
		zap.String("actioned_by", actorID),
	)

	return mapToResponse(*lr), nil
}

// GetSummary serves the per-company tri-state counts from a short-lived
// cache; concurrent misses collapse to one database scan.
func (s *service) GetSummary(ctx context.Context, companyID string) (SummaryResponse, error) {
	key := GetSummaryKey(companyID)

	if s.rdb != nil {
		cached, err := s.rdb.Get(ctx, key).Result()
		if err == nil {
			var summary SummaryResponse
			if err := json.Unmarshal([]byte(cached), &summary); err == nil {
				return summary, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn("summary cache read failed", zap.Error(err))
		}
	}

	v, err, _ := s.sf.Do(key, func() (any, error) {
		requests, err := s.repo.FindAllByCompany(ctx, companyID)
		if err != nil {
			return SummaryResponse{}, err
		}

		summary := SummaryResponse{Total: len(requests)}
		for _, lr := range requests {
			switch {
			case lr.Approved == nil:
				summary.Pending++
			case *lr.Approved:
				summary.Approved++
			default:
				summary.Rejected++
			}
		}

		if s.rdb != nil {
			if payload, err := json.Marshal(summary); err == nil {
				if err := s.rdb.Set(ctx, key, payload, summaryTTL).Err(); err != nil {
					s.logger.Warn("summary cache write failed", zap.Error(err))
				}
			}
		}

		return summary, nil
	})
	if err != nil {
		return SummaryResponse{}, err
	}

	return v.(SummaryResponse), nil
}

func (s *service) enqueueLifecycleEvent(ctx context.Context, tx *sql.Tx, eventType string, lr *LeaveRequest, actorID string) error {
	if s.outbox == nil {
		return nil
	}

	event := events.LeaveRequestLifecycleEvent{
		EventType:     eventType,
		RequestID:     contextutil.GetRequestID(ctx),
		LeaveRequest:  lr.ID.String(),
		RequestNumber: lr.RequestNumber,
		CompanyID:     lr.CompanyID.String(),
		EmployeeID:    lr.EmployeeID.String(),
		LeaveTypeID:   lr.LeaveTypeID.String(),
		DaysRequested: lr.DaysRequested,
		ActionedBy:    actorID,
		OccurredAt:    time.Now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("marshal lifecycle event failed", zap.Error(err))
		return err
	}

	return s.outbox.WithTx(tx).Create(ctx, kafka.OutboxEvent{
		ID:            uuid.NewString(),
		RequestID:     event.RequestID,
		AggregateType: "leave_request",
		AggregateID:   lr.ID.String(),
		EventType:     eventType,
		Topic:         events.LeaveRequestLifecycleTopic,
		Payload:       payload,
		Status:        kafka.OutboxStatusPending,
	})
}

func (s *service) invalidateSummary(ctx context.Context, companyID string) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, GetSummaryKey(companyID)).Err(); err != nil {
		s.logger.Warn("summary cache invalidation failed",
			zap.String("company_id", companyID),
			zap.Error(err),
		)
	}
}

func mapToResponse(lr LeaveRequest) LeaveRequestResponse {
	resp := LeaveRequestResponse{
		ID:            lr.ID.String(),
		CompanyID:     lr.CompanyID.String(),
		EmployeeID:    lr.EmployeeID.String(),
		LeaveTypeID:   lr.LeaveTypeID.String(),
		RequestNumber: lr.RequestNumber,
		StartDate:     lr.StartDate.Format(requestDateLayout),
		EndDate:       lr.EndDate.Format(requestDateLayout),
		DaysRequested: lr.DaysRequested,
		Status:        lr.Status(),
		DateRequested: lr.DateRequested.Format(time.RFC3339),
	}
	if lr.ApprovedByID != nil {
		v := lr.ApprovedByID.String()
		resp.ApprovedBy = &v
	}
	if lr.DateActioned != nil {
		v := lr.DateActioned.Format(time.RFC3339)
		resp.DateActioned = &v
	}
	return resp
}

func mapToListResponse(requests []LeaveRequest) []LeaveRequestResponse {
	resp := make([]LeaveRequestResponse, len(requests))
	for i, lr := range requests {
		resp[i] = mapToResponse(lr)
	}
	return resp
}
