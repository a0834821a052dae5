package core

import "fmt"

// ZoneStatusKind is the capture state of a zone
type ZoneStatusKind int

const (
	ZoneNeutral ZoneStatusKind = iota
	ZoneBeingCaptured
	ZoneCaptured
	ZoneBeingContested
	ZoneBeingRetaken
)

func (k ZoneStatusKind) String() string {
	switch k {
	case ZoneNeutral:
		return "neutral"
	case ZoneBeingCaptured:
		return "being_captured"
	case ZoneCaptured:
		return "captured"
	case ZoneBeingContested:
		return "being_contested"
	case ZoneBeingRetaken:
		return "being_retaken"
	default:
		return fmt.Sprintf("ZoneStatusKind(%d)", int(k))
	}
}

// ZoneStatus holds the fields of the active status. Fields not defined by
// Kind are nil.
type ZoneStatus struct {
	Kind           ZoneStatusKind
	PlayerID       *string
	CapturedByID   *string
	RetakenByID    *string
	RemainingTicks *int
}

// Validate checks that every field the status requires is present
func (s ZoneStatus) Validate() error {
	switch s.Kind {
	case ZoneNeutral, ZoneBeingContested:
		return nil
	case ZoneBeingCaptured:
		if s.PlayerID == nil || s.RemainingTicks == nil {
			return fmt.Errorf("being captured needs player and remaining ticks: %w", ErrMalformedZone)
		}
	case ZoneCaptured:
		if s.PlayerID == nil {
			return fmt.Errorf("captured needs player: %w", ErrMalformedZone)
		}
	case ZoneBeingRetaken:
		if s.CapturedByID == nil || s.RetakenByID == nil || s.RemainingTicks == nil {
			return fmt.Errorf("being retaken needs captured by, retaken by and remaining ticks: %w", ErrMalformedZone)
		}
	default:
		return fmt.Errorf("status %d: %w", int(s.Kind), ErrMalformedZone)
	}
	return nil
}

// OwnedBy reports whether the zone is fully captured by playerID
func (s ZoneStatus) OwnedBy(playerID string) bool {
	return s.Kind == ZoneCaptured && s.PlayerID != nil && *s.PlayerID == playerID
}

// CapturingBy reports whether playerID is currently taking the zone
func (s ZoneStatus) CapturingBy(playerID string) bool {
	switch s.Kind {
	case ZoneBeingCaptured:
		return s.PlayerID != nil && *s.PlayerID == playerID
	case ZoneBeingRetaken:
		return s.RetakenByID != nil && *s.RetakenByID == playerID
	default:
		return false
	}
}

// Zone is a capture rectangle. X is the left column and Y the top row.
type Zone struct {
	Index  int
	X, Y   int
	Width  int
	Height int
	Status ZoneStatus
}

// Contains reports whether p lies inside the zone rectangle
func (z Zone) Contains(p Position) bool {
	return p.Col >= z.X && p.Col < z.X+z.Width && p.Row >= z.Y && p.Row < z.Y+z.Height
}

// Cells returns every position inside the zone in row-major order
func (z Zone) Cells() []Position {
	cells := make([]Position, 0, z.Width*z.Height)
	for r := z.Y; r < z.Y+z.Height; r++ {
		for c := z.X; c < z.X+z.Width; c++ {
			cells = append(cells, Position{Row: r, Col: c})
		}
	}
	return cells
}
