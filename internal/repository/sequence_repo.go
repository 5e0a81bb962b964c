package repository

import (
	"context"

	"gorm.io/gorm"
)

type SequenceRepository interface {
	// Next atomically increments and returns the counter for (prefix, day),
	// starting at 1. Concurrent callers never receive the same value.
	Next(ctx context.Context, prefix, day string) (int64, error)
}

type sequenceRepository struct {
	db *gorm.DB
}

func NewSequenceRepository(db *gorm.DB) SequenceRepository {
	return &sequenceRepository{db: db}
}

const nextSequenceSQL = `INSERT INTO document_sequences (prefix, day, last_value) VALUES (?, ?, 1)
ON CONFLICT (prefix, day) DO UPDATE SET last_value = document_sequences.last_value + 1
RETURNING last_value`

func (r *sequenceRepository) Next(ctx context.Context, prefix, day string) (int64, error) {
	var value int64
	if err := GetDB(ctx, r.db).Raw(nextSequenceSQL, prefix, day).Scan(&value).Error; err != nil {
		return 0, err
	}
	return value, nil
}
