package effects

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"hexarena.live/internal/hexgrid"
	"hexarena.live/internal/protocol"
)

// PositionFunc resolves an agent id to its current tile. Agents without a
// tile still produce effects, anchored at the arena center.
type PositionFunc func(id string) (hexgrid.Coord, bool)

// agentKey is the composite of one agent's transient fields. Edge
// detection compares these across generations; a flag that stays true
// never re-fires.
type agentKey struct {
	alive      bool
	attacking  bool
	attacked   bool
	defending  bool
	prediction string
	winner     bool
}

func keyOf(a protocol.AgentSnapshot) agentKey {
	pred := a.PredictionResult
	if pred == "" {
		pred = protocol.PredictionNone
	}
	return agentKey{
		alive:      a.Alive,
		attacking:  a.Attacking,
		attacked:   a.Attacked,
		defending:  a.Defending,
		prediction: pred,
		winner:     a.IsWinner,
	}
}

// Detector owns the previous-generation composite state for one battle
// view. Instances are independent; two views of different battles never
// cross-contaminate.
type Detector struct {
	lookup    PositionFunc
	lifetimes map[string]time.Duration

	mu       sync.Mutex
	seeded   bool
	prevKeys map[string]agentKey
	prevSet  string
	active   map[string]Request
	timers   map[string]*time.Timer
	closed   bool

	now   func() time.Time
	newID func() string
}

type Option func(*Detector)

// WithLifetimes overrides the default per-type expiry schedule. Types
// absent from the override keep their defaults.
func WithLifetimes(lifetimes map[string]time.Duration) Option {
	return func(d *Detector) {
		for typ, life := range lifetimes {
			if life > 0 {
				d.lifetimes[typ] = life
			}
		}
	}
}

// WithNow injects the clock used for CreatedAt and Active filtering.
func WithNow(now func() time.Time) Option {
	return func(d *Detector) { d.now = now }
}

// WithIDFunc injects the request id generator.
func WithIDFunc(newID func() string) Option {
	return func(d *Detector) { d.newID = newID }
}

func NewDetector(lookup PositionFunc, opts ...Option) *Detector {
	d := &Detector{
		lookup:    lookup,
		lifetimes: make(map[string]time.Duration, len(DefaultLifetimes)),
		prevKeys:  map[string]agentKey{},
		active:    map[string]Request{},
		timers:    map[string]*time.Timer{},
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for typ, life := range DefaultLifetimes {
		d.lifetimes[typ] = life
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// setKey fingerprints a whole generation. Unchanged fingerprint means a
// redundant re-render and zero work.
func setKey(agents []protocol.AgentSnapshot) string {
	var b strings.Builder
	for _, a := range agents {
		k := keyOf(a)
		fmt.Fprintf(&b, "%s:%t%t%t%t%t:%s;", a.ID, k.alive, k.attacking, k.attacked, k.defending, k.winner, k.prediction)
	}
	return b.String()
}

// Observe diffs the new generation against the stored previous one and
// returns the freshly emitted requests. The first generation observed is
// baseline only. Emitted requests are already in the active set.
func (d *Detector) Observe(agents []protocol.AgentSnapshot) []Request {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}

	sk := setKey(agents)
	if d.seeded && sk == d.prevSet {
		return nil
	}

	keys := make(map[string]agentKey, len(agents))
	for _, a := range agents {
		keys[a.ID] = keyOf(a)
	}

	var out []Request
	if d.seeded {
		out = d.diffLocked(agents, keys)
	}
	d.prevKeys = keys
	d.prevSet = sk
	d.seeded = true
	return out
}

func (d *Detector) diffLocked(agents []protocol.AgentSnapshot, keys map[string]agentKey) []Request {
	var out []Request

	// Newly-attacked agents, in delivery order, for attacker pairing.
	// First-match linear scan with claiming; fine at arena sizes <= 8,
	// not a correctness guarantee under concurrent multi-attacker play.
	var attacked []string
	claimed := map[string]bool{}
	for _, a := range agents {
		prev, had := d.prevKeys[a.ID]
		if a.Attacked && (!had || !prev.attacked) {
			attacked = append(attacked, a.ID)
		}
	}

	for _, a := range agents {
		prev, had := d.prevKeys[a.ID]
		cur := keys[a.ID]

		if cur.attacking && (!had || !prev.attacking) {
			var target *hexgrid.Coord
			for _, id := range attacked {
				if id == a.ID || claimed[id] {
					continue
				}
				if c, ok := d.position(id); ok {
					claimed[id] = true
					t := c
					target = &t
				}
				break
			}
			out = append(out, d.emitLocked(TypeAttack, a, target))
		}

		if cur.defending && (!had || !prev.defending) {
			out = append(out, d.emitLocked(TypeDefend, a, nil))
		}

		if had && prev.alive && !cur.alive && cur.attacked {
			out = append(out, d.emitLocked(TypeDeath, a, nil))
		}

		if cur.alive && (!had || prev.prediction == protocol.PredictionNone) {
			switch cur.prediction {
			case protocol.PredictionCorrect:
				out = append(out, d.emitLocked(TypePredictionWin, a, nil))
			case protocol.PredictionWrong:
				out = append(out, d.emitLocked(TypePredictionLoss, a, nil))
			}
		}
	}
	return out
}

func (d *Detector) position(id string) (hexgrid.Coord, bool) {
	if d.lookup == nil {
		return hexgrid.Coord{}, false
	}
	return d.lookup(id)
}

func (d *Detector) emitLocked(typ string, a protocol.AgentSnapshot, target *hexgrid.Coord) Request {
	origin, _ := d.position(a.ID)
	req := Request{
		ID:        d.newID(),
		Type:      typ,
		AgentID:   a.ID,
		Origin:    origin,
		Target:    target,
		Class:     a.Class,
		CreatedAt: d.now(),
		Lifetime:  d.lifetimes[typ],
	}
	d.trackLocked(req)
	return req
}

// Inject enters an externally requested cue (sponsor overlays and the
// like) into the same expiry lifecycle. The detector itself never
// synthesizes sponsor effects.
func (d *Detector) Inject(typ string, origin hexgrid.Coord, class string) (Request, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return Request{}, false
	}
	life, ok := d.lifetimes[typ]
	if !ok {
		return Request{}, false
	}
	req := Request{
		ID:        d.newID(),
		Type:      typ,
		Origin:    origin,
		Class:     class,
		CreatedAt: d.now(),
		Lifetime:  life,
	}
	d.trackLocked(req)
	return req, true
}

func (d *Detector) trackLocked(req Request) {
	d.active[req.ID] = req
	id := req.ID
	d.timers[id] = time.AfterFunc(req.Lifetime, func() {
		d.remove(id)
	})
}

func (d *Detector) remove(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dropLocked(id)
}

func (d *Detector) dropLocked(id string) {
	delete(d.active, id)
	if t, ok := d.timers[id]; ok {
		t.Stop()
		delete(d.timers, id)
	}
}

// Ack removes a request early, on completion acknowledgment from the
// consumer. Unknown ids are a no-op.
func (d *Detector) Ack(id string) {
	d.remove(id)
}

// Active returns the requests whose lifetime has not yet elapsed at the
// detector's clock, oldest first by creation.
func (d *Detector) Active() []Request {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	out := make([]Request, 0, len(d.active))
	for _, r := range d.active {
		if now.Before(r.ExpiresAt()) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Close cancels every pending expiry timer and empties the active set.
// After Close the detector emits nothing.
func (d *Detector) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	for id := range d.timers {
		d.dropLocked(id)
	}
	d.active = map[string]Request{}
}
