package service

import (
	"context"
	"fmt"
	"time"

	"retail-backend/internal/repository"
)

const maxNumberAttempts = 5

// FormatDocumentNumber renders PREFIX-YYYYMMDD-NNN. The ordinal is padded to
// three digits and widens past 999.
func FormatDocumentNumber(prefix string, day time.Time, n int64) string {
	return fmt.Sprintf("%s-%s-%03d", prefix, dayKey(day), n)
}

func dayKey(t time.Time) string {
	return t.UTC().Format("20060102")
}

// SequenceGenerator hands out human readable document numbers that reset
// every UTC day.
type SequenceGenerator struct {
	seqRepo   repository.SequenceRepository
	txManager repository.TransactionManager
}

func NewSequenceGenerator(seqRepo repository.SequenceRepository, txManager repository.TransactionManager) *SequenceGenerator {
	return &SequenceGenerator{seqRepo: seqRepo, txManager: txManager}
}

// NextNumber reserves the next ordinal for prefix on the UTC day of at.
func (g *SequenceGenerator) NextNumber(ctx context.Context, prefix string, at time.Time) (string, error) {
	n, err := g.seqRepo.Next(ctx, prefix, dayKey(at))
	if err != nil {
		return "", fmt.Errorf("failed to reserve %s number: %w", prefix, err)
	}
	return FormatDocumentNumber(prefix, at, n), nil
}

// insertNumbered assigns a fresh number and runs insert inside a savepoint.
// Offline terminals may already have used a number, so a unique violation
// moves on to the next ordinal.
func (g *SequenceGenerator) insertNumbered(ctx context.Context, prefix string, at time.Time, assign func(number string), insert func(ctx context.Context) error) error {
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		number, err := g.NextNumber(ctx, prefix, at)
		if err != nil {
			return err
		}
		assign(number)

		err = g.txManager.RunInTx(ctx, insert)
		if err == nil {
			return nil
		}
		if !repository.IsDuplicate(err) {
			return err
		}
	}
	return fmt.Errorf("could not allocate a unique %s number after %d attempts", prefix, maxNumberAttempts)
}
