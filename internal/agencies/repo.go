package agencies

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/immofind/immofind-backend/pkg/db/models"
)

// Repository manages persistence for agencies and their subscription audit
// trail.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Agency, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Agency, error)
	FindByStripeCustomerID(ctx context.Context, customerID string) (*models.Agency, error)
	FindByStripeSubscriptionID(ctx context.Context, subscriptionID string) (*models.Agency, error)
	Update(ctx context.Context, agency *models.Agency) error
	AppendHistory(ctx context.Context, entry *models.SubscriptionHistory) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an agency repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Agency, error) {
	var agency models.Agency
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&agency).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &agency, nil
}

// FindByIDs loads agencies in one query; ranking enrichment batches by
// distinct agency id instead of a lookup per listing.
func (r *repository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Agency, error) {
	result := make(map[uuid.UUID]models.Agency, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var rows []models.Agency
	if err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, agency := range rows {
		result[agency.ID] = agency
	}
	return result, nil
}

func (r *repository) FindByStripeCustomerID(ctx context.Context, customerID string) (*models.Agency, error) {
	if customerID == "" {
		return nil, nil
	}
	var agency models.Agency
	if err := r.db.WithContext(ctx).
		Where("stripe_customer_id = ?", customerID).
		First(&agency).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &agency, nil
}

func (r *repository) FindByStripeSubscriptionID(ctx context.Context, subscriptionID string) (*models.Agency, error) {
	if subscriptionID == "" {
		return nil, nil
	}
	var agency models.Agency
	if err := r.db.WithContext(ctx).
		Where("stripe_subscription_id = ?", subscriptionID).
		First(&agency).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &agency, nil
}

func (r *repository) Update(ctx context.Context, agency *models.Agency) error {
	return r.db.WithContext(ctx).Save(agency).Error
}

func (r *repository) AppendHistory(ctx context.Context, entry *models.SubscriptionHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}
