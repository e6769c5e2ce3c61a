package domain

import (
	"fmt"
	"strings"
	"time"
)

// Difficulty classifies a problem.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// ParseDifficulty accepts the upstream spelling in any letter case.
func ParseDifficulty(raw string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "easy":
		return DifficultyEasy, nil
	case "medium":
		return DifficultyMedium, nil
	case "hard":
		return DifficultyHard, nil
	default:
		return "", fmt.Errorf("unknown difficulty %q: %w", raw, ErrMalformedResponse)
	}
}

// Marker returns the colored icon shown next to the difficulty in reports.
func (d Difficulty) Marker() string {
	switch d {
	case DifficultyEasy:
		return "🟢"
	case DifficultyMedium:
		return "🟠"
	default:
		return "🔴"
	}
}

// MetadataEntry is the immutable classification of a problem.
type MetadataEntry struct {
	ItemKey    string
	Difficulty Difficulty
	Title      string
}

// Activity is one accepted submission returned by the upstream feed.
type Activity struct {
	ItemKey     string
	Title       string
	SubmittedAt time.Time
}

// ObservationRecord states that an identity solved an item on a UTC day.
// (Identifier, ItemKey, Day) is unique in the ledger.
type ObservationRecord struct {
	Identifier string
	ItemKey    string
	Day        time.Time
}

// ReportRow is an observation joined with roster and metadata.
// Tracked is false when the identity was removed after the row was recorded.
type ReportRow struct {
	Identifier  string
	DisplayName string
	Tracked     bool
	Item        MetadataEntry
	Day         time.Time
}
