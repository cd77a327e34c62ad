package models

import (
	"time"

	"github.com/google/uuid"
)

// Player is a participant in a running session. The name is unique among
// currently live players of the session; ConnID correlates the player to
// its current liveness record.
type Player struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Color    string    `json:"color"`
	ConnID   string    `json:"-"`
	JoinedAt time.Time `json:"joined_at"`
}
