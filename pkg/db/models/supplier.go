package models

import "time"

type Supplier struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	CompanyName string    `gorm:"column:company_name;not null"`
	Email       string    `gorm:"column:email;not null;uniqueIndex"`
	Phone       *string   `gorm:"column:phone"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Supplier) TableName() string { return "suppliers" }
