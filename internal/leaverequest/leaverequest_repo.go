package leaverequest

import (
	"context"
	"database/sql"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, lr *LeaveRequest) error
	FindAllByCompany(ctx context.Context, companyID string) ([]LeaveRequest, error)
	FindAllByEmployee(ctx context.Context, companyID, employeeID string) ([]LeaveRequest, error)
	FindByIDAndCompany(ctx context.Context, companyID, id string) (*LeaveRequest, error)
	MarkActioned(ctx context.Context, id string, approved bool, actorID string, actionedAt time.Time) (int64, error)
}

type repository struct {
	db    *gorm.DB
	sqlDB *sql.DB
	tx    *sql.Tx
}

func NewRepository(db *gorm.DB) Repository {
	sqlDB, _ := db.DB()
	return &repository{db: db, sqlDB: sqlDB}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{db: r.db, sqlDB: r.sqlDB, tx: tx}
}

// Create inserts through the raw connection so the row joins the
// enclosing transaction together with the outbox record.
func (r *repository) Create(ctx context.Context, lr *LeaveRequest) error {
	query := `
INSERT INTO leave_requests (
	id, company_id, employee_id, leave_type_id, request_number,
	start_date, end_date, days_requested, date_requested,
	created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
`

	_, err := r.execer().ExecContext(
		ctx, query,
		lr.ID, lr.CompanyID, lr.EmployeeID, lr.LeaveTypeID, lr.RequestNumber,
		lr.StartDate, lr.EndDate, lr.DaysRequested, lr.DateRequested,
	)
	return err
}

func (r *repository) FindAllByCompany(ctx context.Context, companyID string) ([]LeaveRequest, error) {
	var requests []LeaveRequest
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("date_requested DESC").
		Find(&requests).Error
	return requests, err
}

func (r *repository) FindAllByEmployee(ctx context.Context, companyID, employeeID string) ([]LeaveRequest, error) {
	var requests []LeaveRequest
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Where("employee_id = ?", employeeID).
		Order("date_requested DESC").
		Find(&requests).Error
	return requests, err
}

func (r *repository) FindByIDAndCompany(ctx context.Context, companyID, id string) (*LeaveRequest, error) {
	var lr LeaveRequest
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		First(&lr, "id = ?", id).Error
	return &lr, err
}

// MarkActioned records the outcome only while the request is still
// pending. Zero rows affected means another actor got there first.
// Runs against the enclosing transaction when one is set.
func (r *repository) MarkActioned(ctx context.Context, id string, approved bool, actorID string, actionedAt time.Time) (int64, error) {
	query := `
UPDATE leave_requests
SET approved = $2, approved_by_id = $3, date_actioned = $4, updated_at = NOW()
WHERE id = $1
  AND approved IS NULL
  AND deleted_at IS NULL
`

	res, err := r.execer().ExecContext(ctx, query, id, approved, actorID, actionedAt)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *repository) execer() interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
} {
	if r.tx != nil {
		return r.tx
	}
	return r.sqlDB
}
