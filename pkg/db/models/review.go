package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Review struct {
	ID         uuid.UUID     `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	BidID      int64         `gorm:"column:bid_id;not null;uniqueIndex" json:"bid_id"`
	SupplierID int64         `gorm:"column:supplier_id;not null;index" json:"supplier_id"`
	Email      string        `gorm:"column:customer_email;not null" json:"customer_email"`
	Rating     int           `gorm:"column:rating;not null" json:"rating"`
	Comment    *string       `gorm:"column:comment" json:"comment,omitempty"`
	Issues     []ReviewIssue `gorm:"foreignKey:ReviewID" json:"issues"`
	CreatedAt  time.Time     `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Review) TableName() string { return "reviews" }

func (r *Review) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

type ReviewIssue struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ReviewID    uuid.UUID `gorm:"column:review_id;type:uuid;not null;index" json:"review_id"`
	Category    string    `gorm:"column:category;not null" json:"category"`
	Description string    `gorm:"column:description;not null" json:"description"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (ReviewIssue) TableName() string { return "review_issues" }

func (r *ReviewIssue) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
