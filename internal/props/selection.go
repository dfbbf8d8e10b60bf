package props

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/propboard/propboard/internal/models"
)

// DefaultMaxEntries bounds a slip when no limit is configured.
const DefaultMaxEntries = 6

var (
	// ErrSlipFull is returned when a new projection would exceed the bound.
	ErrSlipFull = errors.New("slip is full: remove a pick before adding another")
	// ErrInvalidSide is returned for a side other than over/under.
	ErrInvalidSide = errors.New("side must be \"over\" or \"under\"")
)

// Entry is one selected projection side. Confidence and expected value are
// copied from the projection at selection time.
type Entry struct {
	ID            string      `json:"id"`
	ProjectionID  uint        `json:"projection_id"`
	PlayerName    string      `json:"player_name"`
	StatType      string      `json:"stat_type"`
	Line          float64     `json:"line"`
	Side          models.Side `json:"side"`
	Confidence    float64     `json:"confidence"`
	ExpectedValue float64     `json:"expected_value"`
	SelectedAt    time.Time   `json:"selected_at"`
}

// Slip is a bounded selection set: at most MaxEntries entries and at most
// one entry per projection.
type Slip struct {
	ID         string    `json:"id"`
	MaxEntries int       `json:"max_entries"`
	Entries    []Entry   `json:"entries"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewSlip creates an empty slip. A non-positive maxEntries falls back to
// DefaultMaxEntries.
func NewSlip(maxEntries int) *Slip {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	now := time.Now().UTC()
	return &Slip{
		ID:         uuid.NewString(),
		MaxEntries: maxEntries,
		Entries:    []Entry{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Select adds the given side of a projection to the slip.
//
// Selecting a side that is already present is an idempotent no-op. Selecting
// the opposite side of an already-picked projection replaces the entry in
// place, re-copying confidence and expected value. Selecting a new projection
// when the slip is full returns ErrSlipFull and leaves the slip unchanged.
func (s *Slip) Select(p models.Projection, side models.Side) (Entry, error) {
	if !side.Valid() {
		return Entry{}, ErrInvalidSide
	}

	for i, entry := range s.Entries {
		if entry.ProjectionID != p.ID {
			continue
		}
		if entry.Side == side {
			return entry, nil
		}
		// Opposite side: replace, keeping the entry ID stable so clients
		// holding it can still deselect.
		s.Entries[i].Side = side
		s.Entries[i].Confidence = p.Confidence
		s.Entries[i].ExpectedValue = p.ExpectedValue
		s.Entries[i].Line = p.Line
		s.Entries[i].SelectedAt = time.Now().UTC()
		s.UpdatedAt = s.Entries[i].SelectedAt
		return s.Entries[i], nil
	}

	if len(s.Entries) >= s.MaxEntries {
		return Entry{}, ErrSlipFull
	}

	entry := Entry{
		ID:            uuid.NewString(),
		ProjectionID:  p.ID,
		PlayerName:    p.PlayerName,
		StatType:      p.StatType,
		Line:          p.Line,
		Side:          side,
		Confidence:    p.Confidence,
		ExpectedValue: p.ExpectedValue,
		SelectedAt:    time.Now().UTC(),
	}
	s.Entries = append(s.Entries, entry)
	s.UpdatedAt = entry.SelectedAt
	return entry, nil
}

// Deselect removes the entry with the given ID unconditionally. It reports
// whether an entry was removed.
func (s *Slip) Deselect(entryID string) bool {
	for i, entry := range s.Entries {
		if entry.ID == entryID {
			s.Entries = append(s.Entries[:i], s.Entries[i+1:]...)
			s.UpdatedAt = time.Now().UTC()
			return true
		}
	}
	return false
}

// HasProjection checks if a projection already contributes an entry.
func (s *Slip) HasProjection(projectionID uint) bool {
	for _, entry := range s.Entries {
		if entry.ProjectionID == projectionID {
			return true
		}
	}
	return false
}

// Size returns the current entry count.
func (s *Slip) Size() int {
	return len(s.Entries)
}
