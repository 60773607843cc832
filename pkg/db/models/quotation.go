package models

import (
	"time"

	"gorm.io/datatypes"
)

// Quotation is the column set shared by every per-service quotation table.
// The table is picked at query time from the quotation type lookup table.
type Quotation struct {
	ID            int64          `gorm:"column:id;primaryKey;autoIncrement"`
	CustomerName  string         `gorm:"column:customer_name;not null"`
	CustomerEmail string         `gorm:"column:customer_email;not null"`
	CustomerPhone *string        `gorm:"column:customer_phone"`
	FromCity      string         `gorm:"column:from_city;not null"`
	ToCity        string         `gorm:"column:to_city"`
	MoveDate      *time.Time     `gorm:"column:move_date"`
	RUTEligible   bool           `gorm:"column:rut_eligible;not null;default:false"`
	SSN           *string        `gorm:"column:ssn"`
	Details       datatypes.JSON `gorm:"column:details;type:jsonb"`
	FilePaths     datatypes.JSON `gorm:"column:file_paths;type:jsonb"`
	CreatedAt     time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
