package service

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// pullCursor is the opaque continuation token of a paged pull. It pins the
// upper bound of the window and records where every entity stopped.
type pullCursor struct {
	Until     time.Time                 `json:"until"`
	Positions map[string]cursorPosition `json:"positions"`
}

type cursorPosition struct {
	After   time.Time `json:"after"`
	AfterID uuid.UUID `json:"after_id"`
	Done    bool      `json:"done,omitempty"`
}

func newPullCursor(since, until time.Time) pullCursor {
	cur := pullCursor{Until: until, Positions: make(map[string]cursorPosition, len(pullEntities))}
	for _, entity := range pullEntities {
		cur.Positions[entity] = cursorPosition{After: since}
	}
	return cur
}

func encodeCursor(cur pullCursor) (string, error) {
	raw, err := json.Marshal(cur)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func decodeCursor(token string) (pullCursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return pullCursor{}, err
	}
	var cur pullCursor
	if err := json.Unmarshal(raw, &cur); err != nil {
		return pullCursor{}, err
	}
	if cur.Until.IsZero() || len(cur.Positions) != len(pullEntities) {
		return pullCursor{}, errors.New("incomplete cursor")
	}
	for _, entity := range pullEntities {
		if _, ok := cur.Positions[entity]; !ok {
			return pullCursor{}, errors.New("incomplete cursor")
		}
	}
	return cur, nil
}
