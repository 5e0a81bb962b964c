package repository

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChangeWindow selects rows whose watermark column lies in (After, Until].
// When AfterID is set the window resumes inside the After instant, skipping
// rows already delivered at (After, id <= AfterID). Rows come back ordered by
// (watermark, id); Limit caps the row count.
type ChangeWindow struct {
	After   time.Time
	AfterID uuid.UUID
	Until   time.Time
	Limit   int
}

func (w ChangeWindow) apply(db *gorm.DB, column string) *gorm.DB {
	q := db.Where(column+" <= ?", w.Until)
	if w.AfterID == uuid.Nil {
		q = q.Where(column+" > ?", w.After)
	} else {
		q = q.Where("("+column+" > ? OR ("+column+" = ? AND id > ?))", w.After, w.After, w.AfterID)
	}
	q = q.Order(column + " ASC").Order("id ASC")
	if w.Limit > 0 {
		q = q.Limit(w.Limit)
	}
	return q
}
