package suppliers

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/movemarket-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/movemarket-backend/pkg/errors"
)

// Repository reads supplier contact records.
type Repository interface {
	FindByID(ctx context.Context, id int64) (*models.Supplier, error)
	FindByEmail(ctx context.Context, email string) (*models.Supplier, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindByID(ctx context.Context, id int64) (*models.Supplier, error) {
	var supplier models.Supplier
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&supplier).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.NewBilingual(pkgerrors.CodeNotFound, "supplier not found", "leverantören hittades inte")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load supplier")
	}
	return &supplier, nil
}

// FindByEmail matches case-insensitively and returns nil when absent.
func (r *repository) FindByEmail(ctx context.Context, email string) (*models.Supplier, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, nil
	}
	var supplier models.Supplier
	err := r.db.WithContext(ctx).Where("LOWER(email) = ?", email).Take(&supplier).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load supplier by email")
	}
	return &supplier, nil
}
