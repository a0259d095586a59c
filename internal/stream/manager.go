// Package stream owns the lifecycle of one live battle feed: a single
// websocket connection per battle id, reconnect with bounded backoff, and
// ordered delivery of decoded events to subscribers.
package stream

import (
	"log"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"hexarena.live/internal/protocol"
)

// Status is the connection lifecycle state. Closed is terminal and is
// reached only through Close.
type Status int

const (
	Disconnected Status = iota
	Connecting
	Connected
	Reconnecting
	Closed
)

func (s Status) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// placeholderIDs are battle ids that must never open a stream. They show
// up when a viewer is mounted against demo or preview fixtures.
var placeholderIDs = map[string]struct{}{
	"demo":        {},
	"demo-battle": {},
	"preview":     {},
}

func isPlaceholderID(id string) bool {
	id = strings.TrimSpace(strings.ToLower(id))
	if id == "" {
		return true
	}
	_, ok := placeholderIDs[id]
	return ok
}

// Config controls dialing and retry behavior.
type Config struct {
	// URL returns the websocket endpoint for a battle id.
	URL func(battleID string) string

	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration

	// Reconnect backoff: base delay doubling up to cap, plus uniform
	// jitter of up to a quarter of the delay. Attempts never overlap.
	BackoffBase time.Duration
	BackoffCap  time.Duration

	Logger *log.Logger
}

func (c *Config) normalize() {
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 5 * time.Second
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 60 * time.Second
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 200 * time.Millisecond
	}
	if c.BackoffCap < c.BackoffBase {
		c.BackoffCap = 5 * time.Second
	}
}

// Token identifies one subscription.
type Token int

type subscriber struct {
	onEvent        func(protocol.Event)
	onConnectivity func(bool)
	onFrame        func(kind string, frame []byte)
}

// Manager keeps at most one live connection for one battle id and fans
// decoded events out to subscribers from a single goroutine, so delivery
// order is arrival order and consumers see no concurrent callbacks.
type Manager struct {
	cfg Config

	mu        sync.Mutex
	status    Status
	battleID  string
	conn      *websocket.Conn
	stop      chan struct{}
	done      chan struct{}
	subs      map[Token]subscriber
	nextToken Token
	lastErr   string
}

func NewManager(cfg Config) *Manager {
	cfg.normalize()
	return &Manager{
		cfg:  cfg,
		subs: map[Token]subscriber{},
	}
}

// Subscribe registers callbacks for decoded events and connectivity
// transitions. Both fire on the delivery goroutine.
func (m *Manager) Subscribe(onEvent func(protocol.Event), onConnectivity func(bool)) Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextToken++
	tok := m.nextToken
	m.subs[tok] = subscriber{onEvent: onEvent, onConnectivity: onConnectivity}
	return tok
}

// SubscribeFrames registers a raw-frame callback (journal sinks). It
// fires on the delivery goroutine, before event decoding.
func (m *Manager) SubscribeFrames(onFrame func(kind string, frame []byte)) Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextToken++
	tok := m.nextToken
	m.subs[tok] = subscriber{onFrame: onFrame}
	return tok
}

func (m *Manager) Unsubscribe(tok Token) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subs, tok)
}

// Connect starts serving battleID. Empty and placeholder ids are a
// no-op. Calling Connect for the id already being served is idempotent;
// a different id tears the old stream down first. After Close, Connect
// is a no-op: a Manager is single-use.
func (m *Manager) Connect(battleID string) {
	if isPlaceholderID(battleID) {
		return
	}

	m.mu.Lock()
	if m.status == Closed {
		m.mu.Unlock()
		return
	}
	if m.battleID == battleID && m.status != Disconnected {
		m.mu.Unlock()
		return
	}
	prevStop, prevDone := m.stop, m.done
	prevConn := m.conn
	m.conn = nil
	m.mu.Unlock()

	// Tear down any stream for a previous id before starting fresh.
	if prevStop != nil {
		close(prevStop)
		if prevConn != nil {
			_ = prevConn.Close()
		}
		<-prevDone
	}

	m.mu.Lock()
	if m.status == Closed {
		m.mu.Unlock()
		return
	}
	m.battleID = battleID
	m.status = Connecting
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	stop, done := m.stop, m.done
	m.mu.Unlock()

	go m.run(battleID, stop, done)
}

// Close moves the manager to Closed, cancels any in-flight dial, read,
// or scheduled reconnect, and waits for the delivery goroutine to exit.
// No callbacks fire afterwards.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.status == Closed {
		m.mu.Unlock()
		return
	}
	m.status = Closed
	stop, done := m.stop, m.done
	conn := m.conn
	m.conn = nil
	m.stop, m.done = nil, nil
	m.subs = map[Token]subscriber{}
	m.mu.Unlock()

	if stop != nil {
		close(stop)
		if conn != nil {
			_ = conn.Close()
		}
		<-done
	}
}

func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// LastError reports the most recent transport failure, empty when none.
func (m *Manager) LastError() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

func (m *Manager) logf(format string, args ...any) {
	if m.cfg.Logger != nil {
		m.cfg.Logger.Printf(format, args...)
	}
}

// run is the delivery goroutine: dial, read until failure, back off,
// repeat. Exactly one run loop exists per served battle id.
func (m *Manager) run(battleID string, stop, done chan struct{}) {
	defer close(done)

	backoff := m.cfg.BackoffBase
	for {
		select {
		case <-stop:
			return
		default:
		}

		err := m.connectAndRead(battleID, stop)
		if err == nil {
			// Stopped deliberately.
			return
		}

		m.mu.Lock()
		if m.status != Closed {
			m.status = Reconnecting
		}
		m.lastErr = err.Error()
		m.mu.Unlock()
		m.notifyConnectivity(false)
		m.logf("stream %s: %v (retrying in ~%v)", battleID, err, backoff)

		delay := backoff
		if quarter := int64(backoff / 4); quarter > 0 {
			delay += time.Duration(rand.Int63n(quarter))
		}
		select {
		case <-stop:
			return
		case <-time.After(delay):
		}
		if backoff < m.cfg.BackoffCap {
			backoff *= 2
			if backoff > m.cfg.BackoffCap {
				backoff = m.cfg.BackoffCap
			}
		}
	}
}

// connectAndRead returns nil only when stopped via the stop channel;
// any transport failure comes back as an error for the retry loop.
func (m *Manager) connectAndRead(battleID string, stop chan struct{}) error {
	d := websocket.Dialer{HandshakeTimeout: m.cfg.HandshakeTimeout}
	conn, resp, err := d.Dial(m.cfg.URL(battleID), http.Header{})
	if err != nil {
		return err
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	m.mu.Lock()
	if m.status == Closed {
		m.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	m.conn = conn
	m.status = Connected
	m.lastErr = ""
	m.mu.Unlock()
	m.notifyConnectivity(true)

	for {
		select {
		case <-stop:
			_ = conn.Close()
			return nil
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(m.cfg.ReadTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			_ = conn.Close()
			select {
			case <-stop:
				return nil
			default:
			}
			return err
		}
		ev, err := protocol.Decode(msg)
		if err != nil {
			m.logf("stream %s: bad frame: %v", battleID, err)
			continue
		}
		m.deliverFrame(ev.EventKind(), msg)
		m.deliver(ev)
	}
}

func (m *Manager) snapshotSubs() []subscriber {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]subscriber, 0, len(m.subs))
	for _, s := range m.subs {
		out = append(out, s)
	}
	return out
}

func (m *Manager) deliverFrame(kind string, frame []byte) {
	for _, s := range m.snapshotSubs() {
		if s.onFrame != nil {
			s.onFrame(kind, frame)
		}
	}
}

func (m *Manager) deliver(ev protocol.Event) {
	for _, s := range m.snapshotSubs() {
		if s.onEvent != nil {
			s.onEvent(ev)
		}
	}
}

func (m *Manager) notifyConnectivity(connected bool) {
	for _, s := range m.snapshotSubs() {
		if s.onConnectivity != nil {
			s.onConnectivity(connected)
		}
	}
}
