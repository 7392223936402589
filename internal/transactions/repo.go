package transactions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kbrayane/immoflow-backend/pkg/db/models"
	"github.com/kbrayane/immoflow-backend/pkg/enums"
	"github.com/kbrayane/immoflow-backend/pkg/pagination"
)

// Repository handles transaction ledger persistence. Rows are append-only:
// status and settlement columns change, rows never disappear.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, txn *models.Transaction) error
	Update(ctx context.Context, txn *models.Transaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	// FindByIDForUpdate takes a row lock; call it only inside WithTx.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	ListByAgency(ctx context.Context, params ListQuery) ([]models.Transaction, *pagination.Cursor, error)
	SumCompletedByAgency(ctx context.Context, agencyID uuid.UUID) (int64, error)
	RevenueSummary(ctx context.Context, query ReportQuery) ([]RevenueRow, error)
	StatusCounts(ctx context.Context, since time.Time) (map[enums.TransactionStatus]int64, error)
	ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.Transaction, error)
}

// ListQuery configures agency transaction listings.
type ListQuery struct {
	AgencyID uuid.UUID
	Status   *enums.TransactionStatus
	Limit    int
	Cursor   *pagination.Cursor
}

// ReportQuery bounds a revenue report. Zero times mean an open bound.
type ReportQuery struct {
	From time.Time
	To   time.Time
}

// RevenueRow is one aggregate line of completed revenue.
type RevenueRow struct {
	PlanID        uuid.UUID           `gorm:"column:plan_id"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method"`
	Currency      enums.Currency      `gorm:"column:currency"`
	TotalAmount   int64               `gorm:"column:total_amount"`
	Count         int64               `gorm:"column:count"`
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a transaction repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, txn *models.Transaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) Update(ctx context.Context, txn *models.Transaction) error {
	return r.db.WithContext(ctx).Save(txn).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	return r.find(ctx, id, false)
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	return r.find(ctx, id, true)
}

func (r *repository) find(ctx context.Context, id uuid.UUID, lock bool) (*models.Transaction, error) {
	query := r.db.WithContext(ctx)
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var txn models.Transaction
	if err := query.Where("id = ?", id).First(&txn).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

func (r *repository) ListByAgency(ctx context.Context, params ListQuery) ([]models.Transaction, *pagination.Cursor, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("agency_id = ?", params.AgencyID)
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var txns []models.Transaction
	if err := query.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(limit)).Find(&txns).Error; err != nil {
		return nil, nil, err
	}

	if len(txns) > limit {
		next := txns[limit]
		txns = txns[:limit]
		return txns, &pagination.Cursor{
			CreatedAt: next.CreatedAt,
			ID:        next.ID,
		}, nil
	}
	return txns, nil, nil
}

func (r *repository) SumCompletedByAgency(ctx context.Context, agencyID uuid.UUID) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("agency_id = ? AND status = ?", agencyID, enums.TransactionStatusCompleted).
		Scan(&total).Error
	return total, err
}

func (r *repository) RevenueSummary(ctx context.Context, query ReportQuery) ([]RevenueRow, error) {
	q := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Select("plan_id, payment_method, currency, COALESCE(SUM(amount), 0) AS total_amount, COUNT(*) AS count").
		Where("status = ?", enums.TransactionStatusCompleted)
	if !query.From.IsZero() {
		q = q.Where("completed_at >= ?", query.From)
	}
	if !query.To.IsZero() {
		q = q.Where("completed_at < ?", query.To)
	}

	var rows []RevenueRow
	if err := q.Group("plan_id, payment_method, currency").
		Order("total_amount DESC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) StatusCounts(ctx context.Context, since time.Time) (map[enums.TransactionStatus]int64, error) {
	type row struct {
		Status enums.TransactionStatus `gorm:"column:status"`
		Count  int64                   `gorm:"column:count"`
	}
	q := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Select("status, COUNT(*) AS count")
	if !since.IsZero() {
		q = q.Where("created_at >= ?", since)
	}

	var rows []row
	if err := q.Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[enums.TransactionStatus]int64, len(rows))
	for _, item := range rows {
		counts[item.Status] = item.Count
	}
	return counts, nil
}

func (r *repository) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = 250
	}
	var txns []models.Transaction
	if err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", enums.TransactionStatusPending, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}
