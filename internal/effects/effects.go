// Package effects turns agent-state deltas between consecutive epoch
// generations into one-shot, self-expiring visual effect requests.
package effects

import (
	"time"

	"hexarena.live/internal/hexgrid"
)

// Effect types.
const (
	TypeAttack         = "attack"
	TypeDefend         = "defend"
	TypeDeath          = "death"
	TypeSponsor        = "sponsor"
	TypePredictionWin  = "prediction_win"
	TypePredictionLoss = "prediction_loss"
)

// DefaultLifetimes is the per-type expiry schedule. A timer removes each
// request from the active set when its lifetime elapses, so active-effect
// count stays bounded by arrival rate times max lifetime.
var DefaultLifetimes = map[string]time.Duration{
	TypeAttack:         1200 * time.Millisecond,
	TypeDefend:         1800 * time.Millisecond,
	TypeDeath:          2500 * time.Millisecond,
	TypeSponsor:        3000 * time.Millisecond,
	TypePredictionWin:  1200 * time.Millisecond,
	TypePredictionLoss: 1500 * time.Millisecond,
}

// Request is one live visual cue. It exists only between creation and
// expiry (or early acknowledgment) and is never resurrected.
type Request struct {
	ID        string
	Type      string
	AgentID   string
	Origin    hexgrid.Coord
	Target    *hexgrid.Coord // directional effects only
	Class     string         // palette hint
	CreatedAt time.Time
	Lifetime  time.Duration
}

// ExpiresAt is the instant the request leaves the active set.
func (r Request) ExpiresAt() time.Time {
	return r.CreatedAt.Add(r.Lifetime)
}
