package quotations

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/angelmondragon/movemarket-backend/pkg/db/models"
	"github.com/angelmondragon/movemarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/movemarket-backend/pkg/errors"
)

// Repository reads customer quotations. The marketplace core never writes them.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, qt enums.QuotationType, id int64) (*models.Quotation, error)
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

// FindByID loads one quotation from the variant's table. Missing rows map to
// CodeNotFound.
func (r *repository) FindByID(ctx context.Context, qt enums.QuotationType, id int64) (*models.Quotation, error) {
	table, err := TableFor(qt)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid quotation type")
	}
	var quotation models.Quotation
	if err := r.db.WithContext(ctx).Table(table).Where("id = ?", id).Take(&quotation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.NewBilingual(pkgerrors.CodeNotFound, "quotation not found", "offerten hittades inte")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load quotation")
	}
	return &quotation, nil
}
