package withdrawals

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kbrayane/immoflow-backend/pkg/db/models"
	"github.com/kbrayane/immoflow-backend/pkg/enums"
	"github.com/kbrayane/immoflow-backend/pkg/pagination"
)

// Repository handles withdrawal request persistence plus the balance reads
// that must see the same transaction snapshot the insert does.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, req *models.WithdrawalRequest) error
	Update(ctx context.Context, req *models.WithdrawalRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error)
	// FindByIDForUpdate takes a row lock; call it only inside WithTx.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error)
	ListByAgency(ctx context.Context, params ListQuery) ([]models.WithdrawalRequest, *pagination.Cursor, error)
	ListPending(ctx context.Context, limit int) ([]models.WithdrawalRequest, error)
	// AcquireAgencyLock serializes balance check-then-insert per agency. The
	// advisory lock is transaction-scoped; call it only inside WithTx.
	AcquireAgencyLock(ctx context.Context, agencyID uuid.UUID) error
	SumCompletedTransactions(ctx context.Context, agencyID uuid.UUID) (int64, error)
	SumReserved(ctx context.Context, agencyID uuid.UUID) (int64, error)
	StatusSummary(ctx context.Context) ([]StatusRow, error)
}

// ListQuery configures agency withdrawal listings.
type ListQuery struct {
	AgencyID uuid.UUID
	Status   *enums.WithdrawalStatus
	Limit    int
	Cursor   *pagination.Cursor
}

// StatusRow is one aggregate line of the operator withdrawal report.
type StatusRow struct {
	Status      enums.WithdrawalStatus `gorm:"column:status"`
	Count       int64                  `gorm:"column:count"`
	TotalAmount int64                  `gorm:"column:total_amount"`
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a withdrawal repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, req *models.WithdrawalRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *repository) Update(ctx context.Context, req *models.WithdrawalRequest) error {
	return r.db.WithContext(ctx).Save(req).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error) {
	return r.find(ctx, id, false)
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error) {
	return r.find(ctx, id, true)
}

func (r *repository) find(ctx context.Context, id uuid.UUID, lock bool) (*models.WithdrawalRequest, error) {
	query := r.db.WithContext(ctx)
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var req models.WithdrawalRequest
	if err := query.Where("id = ?", id).First(&req).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

func (r *repository) ListByAgency(ctx context.Context, params ListQuery) ([]models.WithdrawalRequest, *pagination.Cursor, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).
		Model(&models.WithdrawalRequest{}).
		Where("agency_id = ?", params.AgencyID)
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var reqs []models.WithdrawalRequest
	if err := query.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(limit)).Find(&reqs).Error; err != nil {
		return nil, nil, err
	}

	if len(reqs) > limit {
		next := reqs[limit]
		reqs = reqs[:limit]
		return reqs, &pagination.Cursor{
			CreatedAt: next.CreatedAt,
			ID:        next.ID,
		}, nil
	}
	return reqs, nil, nil
}

func (r *repository) ListPending(ctx context.Context, limit int) ([]models.WithdrawalRequest, error) {
	if limit <= 0 {
		limit = 50
	}
	var reqs []models.WithdrawalRequest
	if err := r.db.WithContext(ctx).
		Where("status = ?", enums.WithdrawalStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&reqs).Error; err != nil {
		return nil, err
	}
	return reqs, nil
}

func (r *repository) AcquireAgencyLock(ctx context.Context, agencyID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Exec("SELECT pg_advisory_xact_lock(hashtext(?))", agencyID.String()).Error
}

func (r *repository) SumCompletedTransactions(ctx context.Context, agencyID uuid.UUID) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("agency_id = ? AND status = ?", agencyID, enums.TransactionStatusCompleted).
		Scan(&total).Error
	return total, err
}

func (r *repository) SumReserved(ctx context.Context, agencyID uuid.UUID) (int64, error) {
	reserving := []enums.WithdrawalStatus{
		enums.WithdrawalStatusPending,
		enums.WithdrawalStatusProcessing,
		enums.WithdrawalStatusCompleted,
	}
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.WithdrawalRequest{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("agency_id = ? AND status IN (?)", agencyID, reserving).
		Scan(&total).Error
	return total, err
}

func (r *repository) StatusSummary(ctx context.Context) ([]StatusRow, error) {
	var rows []StatusRow
	if err := r.db.WithContext(ctx).
		Model(&models.WithdrawalRequest{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total_amount").
		Group("status").
		Order("status ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
