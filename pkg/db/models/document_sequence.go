package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/pos-backend/pkg/enums"
)

// DocumentSequence is the per business/type/year counter behind document numbers.
type DocumentSequence struct {
	BusinessID uuid.UUID          `gorm:"column:business_id;type:uuid;primaryKey"`
	DocType    enums.DocumentType `gorm:"column:doc_type;type:text;primaryKey"`
	Year       int                `gorm:"column:year;primaryKey"`
	LastNumber int64              `gorm:"column:last_number;not null"`
	UpdatedAt  time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
