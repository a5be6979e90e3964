package models

import "time"

// Transcript stores the stitched OCR text of a receipt together with the
// model that produced it and the token cost of the call(s).
type Transcript struct {
	ID               uint `gorm:"primaryKey"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
	ReceiptID        uint    `gorm:"uniqueIndex;not null"`
	Receipt          Receipt `gorm:"foreignKey:ReceiptID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Text             string  `gorm:"type:text;not null"`
	Model            string  `gorm:"size:128"`
	Chunks           int     `gorm:"not null;default:1"`
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	OcrMillis        int64
}
