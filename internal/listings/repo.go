package listings

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/immofind/immofind-backend/internal/geocluster"
	"github.com/immofind/immofind-backend/pkg/db/models"
	"github.com/immofind/immofind-backend/pkg/enums"
)

// Repository persists listings and answers the filtered candidate queries
// the ranking and clustering layers consume.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, listing *models.Listing) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	Search(ctx context.Context, filters SearchFilters) ([]models.Listing, error)
	SearchViewport(ctx context.Context, filters SearchFilters, bbox geocluster.BoundingBox, limit int) ([]models.Listing, error)
	CountActiveByAgency(ctx context.Context, agencyID uuid.UUID) (int, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a listing repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, listing *models.Listing) error {
	return r.db.WithContext(ctx).Create(listing).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&listing).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &listing, nil
}

// Search returns every active listing matching the filters. Ordering is the
// ranking engine's job; the query stays a plain conjunctive filter.
func (r *repository) Search(ctx context.Context, filters SearchFilters) ([]models.Listing, error) {
	var listings []models.Listing
	if err := r.applyFilters(r.db.WithContext(ctx), filters).
		Find(&listings).Error; err != nil {
		return nil, err
	}
	return listings, nil
}

// SearchViewport restricts the filtered set to a geographic envelope. The
// limit is the zoom-scaled candidate cap; sponsored rows order first so a
// dense viewport cannot silently drop them at the cap.
func (r *repository) SearchViewport(ctx context.Context, filters SearchFilters, bbox geocluster.BoundingBox, limit int) ([]models.Listing, error) {
	qb := r.applyFilters(r.db.WithContext(ctx), filters).
		Where("location IS NOT NULL").
		Where("location && ST_MakeEnvelope(?, ?, ?, ?, 4326)", bbox.West, bbox.South, bbox.East, bbox.North).
		Order("is_sponsored DESC, created_at DESC")
	if limit > 0 {
		qb = qb.Limit(limit)
	}

	var listings []models.Listing
	if err := qb.Find(&listings).Error; err != nil {
		return nil, err
	}
	return listings, nil
}

func (r *repository) CountActiveByAgency(ctx context.Context, agencyID uuid.UUID) (int, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("agency_id = ?", agencyID).
		Where("status = ?", enums.ListingStatusActive).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *repository) applyFilters(qb *gorm.DB, filters SearchFilters) *gorm.DB {
	qb = qb.Where("status = ?", enums.ListingStatusActive)

	if q := strings.TrimSpace(filters.Query); q != "" {
		pattern := "%" + strings.ToLower(q) + "%"
		qb = qb.Where("(LOWER(title) LIKE ? OR LOWER(description) LIKE ?)", pattern, pattern)
	}
	if filters.City != "" {
		qb = qb.Where("LOWER(city) = ?", strings.ToLower(filters.City))
	}
	if filters.PostalCode != "" {
		qb = qb.Where("postal_code = ?", filters.PostalCode)
	}
	if len(filters.PropertyTypes) > 0 {
		qb = qb.Where("property_type IN ?", filters.PropertyTypes)
	}
	if filters.PriceMin != nil {
		qb = qb.Where("price >= ?", *filters.PriceMin)
	}
	if filters.PriceMax != nil {
		qb = qb.Where("price <= ?", *filters.PriceMax)
	}
	if filters.SurfaceMin != nil {
		qb = qb.Where("surface >= ?", *filters.SurfaceMin)
	}
	if filters.SurfaceMax != nil {
		qb = qb.Where("surface <= ?", *filters.SurfaceMax)
	}
	if filters.RoomsMin != nil {
		qb = qb.Where("rooms >= ?", *filters.RoomsMin)
	}
	if filters.RenovationMin != nil {
		qb = qb.Where("renovation_score >= ?", *filters.RenovationMin)
	}
	if filters.AnnualEnergyMax != nil {
		qb = qb.Where("annual_energy_cost <= ?", *filters.AnnualEnergyMax)
	}
	if len(filters.DPEClasses) > 0 {
		qb = qb.Where("dpe_class IN ?", filters.DPEClasses)
	}
	if len(filters.GESClasses) > 0 {
		qb = qb.Where("ges_class IN ?", filters.GESClasses)
	}
	if filters.InCoproperty != nil {
		qb = qb.Where("in_coproperty = ?", *filters.InCoproperty)
	}
	return qb
}
