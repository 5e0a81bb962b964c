package service

import (
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}

// parseID parses a required identifier that already passed the uuid tag.
func parseID(value, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, newValidationError("invalid identifier", field)
	}
	return id, nil
}

// parseOptionalID returns nil for an empty value.
func parseOptionalID(value, field string) (*uuid.UUID, error) {
	if value == "" {
		return nil, nil
	}
	id, err := parseID(value, field)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func requireNonNegative(amounts map[string]decimal.Decimal) error {
	var bad []string
	for name, amt := range amounts {
		if amt.IsNegative() {
			bad = append(bad, name)
		}
	}
	if len(bad) > 0 {
		sort.Strings(bad)
		return newValidationError("amounts must not be negative", bad...)
	}
	return nil
}

// moneyScale is the number of decimal places money columns store.
const moneyScale = 2

// requireCents rejects amounts the money columns would round. Trailing zeros
// such as 1.500 are fine.
func requireCents(amounts map[string]decimal.Decimal) error {
	var bad []string
	for name, amt := range amounts {
		if !amt.Equal(amt.Truncate(moneyScale)) {
			bad = append(bad, name)
		}
	}
	if len(bad) > 0 {
		sort.Strings(bad)
		return newValidationError("amounts must have at most 2 decimal places", bad...)
	}
	return nil
}

// clock returns the server time used for synced_at and review stamps.
// Values are UTC and truncated to microseconds so they survive a round trip
// through the database unchanged.
var clock = func() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// normalizeTime brings a client supplied timestamp to the same precision as clock.
func normalizeTime(t *time.Time, fallback time.Time) time.Time {
	if t == nil || t.IsZero() {
		return fallback
	}
	return t.UTC().Truncate(time.Microsecond)
}

func uuidPtr(id uuid.UUID) *uuid.UUID {
	return &id
}

func strPtr(s string) *string {
	return &s
}
