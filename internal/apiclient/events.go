package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/park285/cheese-chess/pkg/chessdto"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

type ListenerState int

const (
	StateDisconnected ListenerState = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateFailed
	StateClosed
)

func (s ListenerState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return "disconnected"
	}
}

type MessageCallback func(raw json.RawMessage)

type StateCallback func(state ListenerState)

type callbackEntry struct {
	id       int
	callback MessageCallback
}

type stateCallbackEntry struct {
	id       int
	callback StateCallback
}

// Listener follows a server event stream, reconnecting with backoff when the
// connection drops. A normal closure from the server ends the stream.
type Listener struct {
	wsURL string

	connM sync.Mutex
	conn  *websocket.Conn

	state  ListenerState
	stateM sync.RWMutex

	msgCbs   []callbackEntry
	stateCbs []stateCallbackEntry
	nextID   int
	cbM      sync.RWMutex

	maxReconnectAttempts int
	pingInterval         time.Duration
	headerProvider       HeaderProvider

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc
}

func NewListener(wsURL string, maxReconnectAttempts int) *Listener {
	ctx, cancel := context.WithCancel(context.Background())
	return &Listener{
		wsURL:                wsURL,
		state:                StateDisconnected,
		maxReconnectAttempts: maxReconnectAttempts,
		pingInterval:         30 * time.Second,
		stopCh:               make(chan struct{}),
		rootCtx:              ctx,
		rootCancel:           cancel,
	}
}

// SessionEvents returns a listener for a session's event stream.
func (c *Client) SessionEvents(id string, maxReconnectAttempts int) *Listener {
	l := NewListener(wsBase(c.baseURL)+sessionPath(id, "/events"), maxReconnectAttempts)
	l.headerProvider = c.headers
	return l
}

// RoomEvents returns a listener for a room's relay stream.
func (c *Client) RoomEvents(code string, maxReconnectAttempts int) *Listener {
	l := NewListener(wsBase(c.baseURL)+roomPath(code, "/events"), maxReconnectAttempts)
	l.headerProvider = c.headers
	return l
}

func wsBase(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	default:
		return base
	}
}

// OnSessionEvent decodes each message as a session event.
func (l *Listener) OnSessionEvent(cb func(*chessdto.Event)) int {
	return l.OnMessage(func(raw json.RawMessage) {
		var ev chessdto.Event
		if err := json.Unmarshal(raw, &ev); err == nil {
			cb(&ev)
		}
	})
}

// OnRelay decodes each message as a room relay.
func (l *Listener) OnRelay(cb func(*chessdto.RoomRelay)) int {
	return l.OnMessage(func(raw json.RawMessage) {
		var r chessdto.RoomRelay
		if err := json.Unmarshal(raw, &r); err == nil {
			cb(&r)
		}
	})
}

func (l *Listener) OnMessage(cb MessageCallback) int {
	l.cbM.Lock()
	defer l.cbM.Unlock()
	l.nextID++
	l.msgCbs = append(l.msgCbs, callbackEntry{id: l.nextID, callback: cb})
	return l.nextID
}

func (l *Listener) RemoveMessageCallback(id int) {
	l.cbM.Lock()
	defer l.cbM.Unlock()
	for i, cb := range l.msgCbs {
		if cb.id == id {
			l.msgCbs = append(l.msgCbs[:i], l.msgCbs[i+1:]...)
			break
		}
	}
}

func (l *Listener) OnStateChange(cb StateCallback) int {
	l.cbM.Lock()
	defer l.cbM.Unlock()
	l.nextID++
	l.stateCbs = append(l.stateCbs, stateCallbackEntry{id: l.nextID, callback: cb})
	return l.nextID
}

func (l *Listener) State() ListenerState {
	l.stateM.RLock()
	defer l.stateM.RUnlock()
	return l.state
}

// Connect dials the stream. On failure a reconnect is scheduled and the dial error returned.
func (l *Listener) Connect(ctx context.Context) error {
	switch l.State() {
	case StateConnected, StateConnecting:
		return nil
	}
	l.setState(StateConnecting)
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, err := l.dial(dialCtx)
	if err != nil {
		l.setState(StateFailed)
		l.scheduleReconnect()
		return err
	}
	l.attach(conn)
	return nil
}

func (l *Listener) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := websocket.Dial(ctx, l.wsURL, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      l.buildHeaders(),
	})
	return conn, err
}

func (l *Listener) attach(conn *websocket.Conn) {
	l.connM.Lock()
	l.conn = conn
	l.connM.Unlock()
	l.setState(StateConnected)

	connCtx, cancel := context.WithCancel(l.rootCtx)
	l.wg.Add(2)
	go l.listen(conn, cancel)
	go l.pingLoop(connCtx, conn)
}

func (l *Listener) listen(conn *websocket.Conn, stopPing context.CancelFunc) {
	defer l.wg.Done()
	defer stopPing()
	for {
		var raw json.RawMessage
		if err := wsjson.Read(l.rootCtx, conn, &raw); err != nil {
			if l.isStopping() {
				return
			}
			l.detach(conn)
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				l.setState(StateClosed)
				return
			}
			l.setState(StateDisconnected)
			l.scheduleReconnect()
			return
		}

		l.cbM.RLock()
		callbacks := append([]callbackEntry(nil), l.msgCbs...)
		l.cbM.RUnlock()
		for _, entry := range callbacks {
			if entry.callback != nil {
				entry.callback(raw)
			}
		}
	}
}

func (l *Listener) pingLoop(ctx context.Context, conn *websocket.Conn) {
	defer l.wg.Done()
	t := time.NewTicker(l.pingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := conn.Ping(pctx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			if failures >= 2 {
				// listen notices the dead connection and reconnects
				_ = conn.Close(websocket.StatusGoingAway, "ping failure")
				return
			}
		}
	}
}

func (l *Listener) scheduleReconnect() {
	if l.maxReconnectAttempts <= 0 || l.isStopping() {
		return
	}
	l.setState(StateReconnecting)
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		for attempt := 1; attempt <= l.maxReconnectAttempts; attempt++ {
			select {
			case <-l.stopCh:
				return
			case <-time.After(backoffDuration(attempt)):
			}
			dialCtx, cancel := context.WithTimeout(l.rootCtx, 10*time.Second)
			conn, err := l.dial(dialCtx)
			cancel()
			if err != nil {
				continue
			}
			l.attach(conn)
			return
		}
		l.setState(StateFailed)
	}()
}

func (l *Listener) detach(conn *websocket.Conn) {
	l.connM.Lock()
	if l.conn == conn {
		l.conn = nil
	}
	l.connM.Unlock()
	_ = conn.CloseNow()
}

func (l *Listener) setState(state ListenerState) {
	l.stateM.Lock()
	l.state = state
	l.stateM.Unlock()

	l.cbM.RLock()
	callbacks := append([]stateCallbackEntry(nil), l.stateCbs...)
	l.cbM.RUnlock()
	for _, entry := range callbacks {
		if entry.callback != nil {
			entry.callback(state)
		}
	}
}

// Close stops reconnecting, closes the connection and waits for the goroutines.
func (l *Listener) Close(ctx context.Context) error {
	l.stopOnce.Do(func() { close(l.stopCh) })
	l.connM.Lock()
	conn := l.conn
	l.conn = nil
	l.connM.Unlock()
	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "close")
	}
	l.rootCancel()

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		l.setState(StateClosed)
		return nil
	}
}

func (l *Listener) isStopping() bool {
	select {
	case <-l.stopCh:
		return true
	default:
		return false
	}
}

func (l *Listener) buildHeaders() http.Header {
	hdr := http.Header{}
	if l.headerProvider == nil {
		return hdr
	}
	for k, v := range l.headerProvider() {
		if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
			continue
		}
		hdr.Set(k, v)
	}
	return hdr
}
