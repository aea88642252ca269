package leavetype_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"leavehub/internal/leavetype"
	leavetypeerrors "leavehub/internal/leavetype/errors"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

type fakeLeaveTypeRepository struct {
	createFn             func(ctx context.Context, lt *leavetype.LeaveType) error
	findAllByCompanyFn   func(ctx context.Context, companyID string) ([]leavetype.LeaveType, error)
	findByIDAndCompanyFn func(ctx context.Context, companyID, id string) (*leavetype.LeaveType, error)
	updateFn             func(ctx context.Context, lt *leavetype.LeaveType) error
	deleteFn             func(ctx context.Context, companyID, id string) error
}

func (f *fakeLeaveTypeRepository) WithTx(tx *sql.Tx) leavetype.Repository { return f }

func (f *fakeLeaveTypeRepository) Create(ctx context.Context, lt *leavetype.LeaveType) error {
	if f.createFn != nil {
		return f.createFn(ctx, lt)
	}
	return nil
}

func (f *fakeLeaveTypeRepository) FindAllByCompany(ctx context.Context, companyID string) ([]leavetype.LeaveType, error) {
	if f.findAllByCompanyFn != nil {
		return f.findAllByCompanyFn(ctx, companyID)
	}
	return nil, nil
}

func (f *fakeLeaveTypeRepository) FindByIDAndCompany(ctx context.Context, companyID, id string) (*leavetype.LeaveType, error) {
	if f.findByIDAndCompanyFn != nil {
		return f.findByIDAndCompanyFn(ctx, companyID, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeLeaveTypeRepository) Update(ctx context.Context, lt *leavetype.LeaveType) error {
	if f.updateFn != nil {
		return f.updateFn(ctx, lt)
	}
	return nil
}

func (f *fakeLeaveTypeRepository) Delete(ctx context.Context, companyID, id string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, companyID, id)
	}
	return nil
}

type leaveTypeServiceDeps struct {
	db      *sql.DB
	sqlMock sqlmock.Sqlmock
	service leavetype.Service
	repo    *fakeLeaveTypeRepository
}

func setupLeaveTypeServiceTest(t *testing.T) *leaveTypeServiceDeps {
	t.Helper()

	db, sqlMock, err := sqlmock.New()
	assert.NoError(t, err)

	repo := &fakeLeaveTypeRepository{}
	svc := leavetype.NewService(db, repo)

	return &leaveTypeServiceDeps{db: db, sqlMock: sqlMock, service: svc, repo: repo}
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

func TestLeaveTypeService_Create(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New().String()

	t.Run("success", func(t *testing.T) {
		deps := setupLeaveTypeServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, true)
		deps.repo.createFn = func(ctx context.Context, lt *leavetype.LeaveType) error {
			assert.Equal(t, uuid.MustParse(companyID), lt.CompanyID)
			assert.Equal(t, "Annual", lt.Name)
			assert.Equal(t, 14, lt.DefaultDays)
			return nil
		}

		resp, err := deps.service.Create(ctx, companyID, leavetype.CreateLeaveTypeRequest{
			Name:        "Annual",
			DefaultDays: 14,
		})

		assert.NoError(t, err)
		assert.Equal(t, "Annual", resp.Name)
		assert.Equal(t, 14, resp.DefaultDays)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative duplicate name", func(t *testing.T) {
		deps := setupLeaveTypeServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, false)
		deps.repo.createFn = func(ctx context.Context, lt *leavetype.LeaveType) error {
			return &pgconn.PgError{Code: "23505", ConstraintName: "uq_leave_types_company_name"}
		}

		_, err := deps.service.Create(ctx, companyID, leavetype.CreateLeaveTypeRequest{
			Name:        "Annual",
			DefaultDays: 14,
		})

		assert.ErrorIs(t, err, leavetypeerrors.ErrLeaveTypeNameTaken)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative default days", func(t *testing.T) {
		deps := setupLeaveTypeServiceTest(t)
		defer deps.db.Close()

		_, err := deps.service.Create(ctx, companyID, leavetype.CreateLeaveTypeRequest{
			Name:        "Annual",
			DefaultDays: -3,
		})

		assert.ErrorIs(t, err, leavetypeerrors.ErrInvalidDefaultDays)
	})
}

func TestLeaveTypeService_GetByID(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New().String()
	id := uuid.New().String()

	t.Run("success", func(t *testing.T) {
		deps := setupLeaveTypeServiceTest(t)
		defer deps.db.Close()

		deps.repo.findByIDAndCompanyFn = func(ctx context.Context, cid, targetID string) (*leavetype.LeaveType, error) {
			return &leavetype.LeaveType{
				ID:          uuid.MustParse(targetID),
				CompanyID:   uuid.MustParse(cid),
				Name:        "Sick",
				DefaultDays: 5,
			}, nil
		}

		resp, err := deps.service.GetByID(ctx, companyID, id)

		assert.NoError(t, err)
		assert.Equal(t, id, resp.ID)
		assert.Equal(t, "Sick", resp.Name)
	})

	t.Run("negative not found", func(t *testing.T) {
		deps := setupLeaveTypeServiceTest(t)
		defer deps.db.Close()

		deps.repo.findByIDAndCompanyFn = func(ctx context.Context, cid, targetID string) (*leavetype.LeaveType, error) {
			return nil, gorm.ErrRecordNotFound
		}

		_, err := deps.service.GetByID(ctx, companyID, id)

		assert.ErrorIs(t, err, leavetypeerrors.ErrLeaveTypeNotFound)
	})
}

func TestLeaveTypeService_Update(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New().String()
	id := uuid.New().String()

	t.Run("success", func(t *testing.T) {
		deps := setupLeaveTypeServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, true)
		deps.repo.findByIDAndCompanyFn = func(ctx context.Context, cid, targetID string) (*leavetype.LeaveType, error) {
			return &leavetype.LeaveType{
				ID:          uuid.MustParse(targetID),
				CompanyID:   uuid.MustParse(cid),
				Name:        "Sick",
				DefaultDays: 5,
			}, nil
		}

		var saved *leavetype.LeaveType
		deps.repo.updateFn = func(ctx context.Context, lt *leavetype.LeaveType) error {
			saved = lt
			return nil
		}

		resp, err := deps.service.Update(ctx, companyID, id, leavetype.UpdateLeaveTypeRequest{
			Name:        "Sick Leave",
			DefaultDays: 8,
		})

		assert.NoError(t, err)
		assert.Equal(t, "Sick Leave", resp.Name)
		assert.Equal(t, 8, resp.DefaultDays)
		assert.NotNil(t, saved)
		assert.Equal(t, 8, saved.DefaultDays)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative not found", func(t *testing.T) {
		deps := setupLeaveTypeServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, false)
		deps.repo.findByIDAndCompanyFn = func(ctx context.Context, cid, targetID string) (*leavetype.LeaveType, error) {
			return nil, gorm.ErrRecordNotFound
		}

		_, err := deps.service.Update(ctx, companyID, id, leavetype.UpdateLeaveTypeRequest{
			Name:        "Sick Leave",
			DefaultDays: 8,
		})

		assert.ErrorIs(t, err, leavetypeerrors.ErrLeaveTypeNotFound)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})
}

func TestLeaveTypeService_GetAll(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New().String()

	t.Run("success", func(t *testing.T) {
		deps := setupLeaveTypeServiceTest(t)
		defer deps.db.Close()

		deps.repo.findAllByCompanyFn = func(ctx context.Context, cid string) ([]leavetype.LeaveType, error) {
			return []leavetype.LeaveType{
				{ID: uuid.New(), CompanyID: uuid.MustParse(cid), Name: "Annual", DefaultDays: 14},
				{ID: uuid.New(), CompanyID: uuid.MustParse(cid), Name: "Sick", DefaultDays: 5},
			}, nil
		}

		resp, err := deps.service.GetAll(ctx, companyID)

		assert.NoError(t, err)
		assert.Len(t, resp, 2)
	})

	t.Run("negative repo error", func(t *testing.T) {
		deps := setupLeaveTypeServiceTest(t)
		defer deps.db.Close()

		deps.repo.findAllByCompanyFn = func(ctx context.Context, cid string) ([]leavetype.LeaveType, error) {
			return nil, errors.New("db error")
		}

		resp, err := deps.service.GetAll(ctx, companyID)

		assert.Error(t, err)
		assert.Nil(t, resp)
	})
}
