package allocation

import (
	"context"
	"database/sql"

	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, a *Allocation) error
	Exists(ctx context.Context, companyID, employeeID, leaveTypeID string, period int) (bool, error)
	FindByEmployeeAndType(ctx context.Context, companyID, employeeID, leaveTypeID string, period int) (*Allocation, error)
	FindAllByEmployee(ctx context.Context, companyID, employeeID string) ([]Allocation, error)
	FindByIDAndCompany(ctx context.Context, companyID, id string) (*Allocation, error)
	Update(ctx context.Context, a *Allocation) error
	Debit(ctx context.Context, allocationID string, days int) (int64, error)
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

func (r *repository) Create(ctx context.Context, a *Allocation) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *repository) Exists(ctx context.Context, companyID, employeeID, leaveTypeID string, period int) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&Allocation{}).
		Where("company_id = ?", companyID).
		Where("employee_id = ?", employeeID).
		Where("leave_type_id = ?", leaveTypeID).
		Where("period = ?", period).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) FindByEmployeeAndType(ctx context.Context, companyID, employeeID, leaveTypeID string, period int) (*Allocation, error) {
	var a Allocation
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Where("employee_id = ?", employeeID).
		Where("leave_type_id = ?", leaveTypeID).
		Where("period = ?", period).
		First(&a).Error
	return &a, err
}

func (r *repository) FindAllByEmployee(ctx context.Context, companyID, employeeID string) ([]Allocation, error) {
	var allocations []Allocation
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Where("employee_id = ?", employeeID).
		Order("period DESC").
		Find(&allocations).Error
	return allocations, err
}

func (r *repository) FindByIDAndCompany(ctx context.Context, companyID, id string) (*Allocation, error) {
	var a Allocation
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		First(&a, "id = ?", id).Error
	return &a, err
}

func (r *repository) Update(ctx context.Context, a *Allocation) error {
	return r.db.WithContext(ctx).Save(a).Error
}

// Debit subtracts days from the balance in one conditional statement.
// Zero rows affected means the balance was short (or the row is gone),
// so concurrent approvals can never drive the balance negative. Runs
// against the enclosing transaction when one is set.
func (r *repository) Debit(ctx context.Context, allocationID string, days int) (int64, error) {
	query := `
UPDATE allocations
SET remaining_days = remaining_days - $2, updated_at = NOW()
WHERE id = $1
  AND remaining_days >= $2
  AND deleted_at IS NULL
`

	res, err := r.execer().ExecContext(ctx, query, allocationID, days)
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
