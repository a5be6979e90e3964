package models

import "time"

// ScanMetric records the border-removal statistics of one processed receipt:
// dimensions per generation, rotation estimate, area retained, timings.
type ScanMetric struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	ReceiptID uint    `gorm:"index;not null"`
	Receipt   Receipt `gorm:"foreignKey:ReceiptID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`

	OriginalWidth  int
	OriginalHeight int
	RotatedWidth   int
	RotatedHeight  int
	CropWidth      int
	CropHeight     int

	RotationAngle      float64
	RotationConfidence float64
	RotationApplied    bool

	WhitePixels      int
	RetainedPercent  float64
	PreprocessMillis int64
}
