package reviews

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/movemarket-backend/pkg/db/models"
)

// Repository persists customer reviews and their reported issues.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, review *models.Review) error
	FindByBid(ctx context.Context, bidID int64) (*models.Review, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts the review and its Issues in one statement batch.
func (r *repository) Create(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).Create(review).Error
}

func (r *repository) FindByBid(ctx context.Context, bidID int64) (*models.Review, error) {
	var review models.Review
	if err := r.db.WithContext(ctx).Preload("Issues").Where("bid_id = ?", bidID).Take(&review).Error; err != nil {
		return nil, err
	}
	return &review, nil
}
