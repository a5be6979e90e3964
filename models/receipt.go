package models

import "time"

// Receipt processing states.
const (
	ReceiptPending   = "pending"
	ReceiptProcessed = "processed"
	ReceiptFailed    = "failed"
)

// Receipt represents one uploaded receipt photo and its processing state.
type Receipt struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	UserID    uint   `gorm:"index;not null;uniqueIndex:idx_user_receipt_file"`
	User      User   `gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	FileName  string `gorm:"size:255;not null;uniqueIndex:idx_user_receipt_file"`
	// StorePath is the raw upload; ProcessedPath the border-removed JPEG.
	StorePath     string `gorm:"column:store_path;size:512"`
	ProcessedPath string `gorm:"size:512"`
	ContentType   string `gorm:"size:128"`
	Status        string `gorm:"size:16;default:pending;index"`
	// Mark receipt as failed instead of deleting the record so the
	// front-end/admin can review what went wrong.
	FailedReason string `gorm:"size:255"`
}
