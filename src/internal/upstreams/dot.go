package upstreams

import (
	"context"
	"crypto/tls"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/dnsprotect/dnsprotect/src/internal/errors"
	"github.com/dnsprotect/dnsprotect/src/internal/log"
	"github.com/dnsprotect/dnsprotect/src/internal/packet"
)

const (
	dotDefaultPort    = 853
	dotDialTimeout    = 5 * time.Second
	dotLengthPrefix   = 2
	dotMaxMessageSize = 65535
)

// State is the connection state of a DoT transport.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// DoTOptions configures a DoT transport.
type DoTOptions struct {
	// Port defaults to 853.
	Port int
	// TLSConfig defaults to TLS 1.2+ with ServerName set to the server host.
	TLSConfig *tls.Config
	// DialTimeout defaults to 5 seconds.
	DialTimeout time.Duration
}

type dotResult struct {
	msg []byte
	err error
}

// DoTTransport implements Transport over one persistent DNS-over-TLS
// connection. In-flight queries are matched to responses by transaction id.
// Two concurrent queries with the same id are not told apart.
type DoTTransport struct {
	server string
	addr   string
	dialer *tls.Dialer
	logger *log.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// mu guards everything below
	mu      sync.Mutex
	state   State
	conn    net.Conn
	pending map[uint16]chan dotResult
	queue   [][]byte // frames waiting for the connection, in arrival order
	lastErr error
	changed chan struct{} // closed on every state change

	// writeMu serializes frame writes on conn
	writeMu sync.Mutex
}

// NewDoTTransport creates a DNS-over-TLS transport. The connection is
// established by Connect or by the first query.
func NewDoTTransport(server string, opts DoTOptions) *DoTTransport {
	port := opts.Port
	if port == 0 {
		port = dotDefaultPort
	}
	dialTimeout := opts.DialTimeout
	if dialTimeout == 0 {
		dialTimeout = dotDialTimeout
	}

	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
	if opts.TLSConfig != nil {
		tlsConfig = opts.TLSConfig.Clone()
	}
	if tlsConfig.ServerName == "" {
		tlsConfig.ServerName = server
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &DoTTransport{
		server: server,
		addr:   net.JoinHostPort(server, strconv.Itoa(port)),
		dialer: &tls.Dialer{
			NetDialer: &net.Dialer{Timeout: dialTimeout},
			Config:    tlsConfig,
		},
		logger:  log.New("DOT"),
		ctx:     ctx,
		cancel:  cancel,
		pending: make(map[uint16]chan dotResult),
		changed: make(chan struct{}),
	}
}

// String returns a human-readable representation of the transport.
func (t *DoTTransport) String() string {
	return "dot://" + t.addr
}

// State returns the current connection state.
func (t *DoTTransport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Ready reports whether the connection is established.
func (t *DoTTransport) Ready() bool {
	return t.State() == StateConnected
}

// Connect establishes the connection and waits until it is ready or the
// attempt failed. It returns immediately if already connected.
func (t *DoTTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	if t.state == StateClosed {
		t.mu.Unlock()
		return errors.ErrTransportClosed
	}
	t.startConnectLocked()
	t.mu.Unlock()

	for {
		t.mu.Lock()
		state, changed, lastErr := t.state, t.changed, t.lastErr
		t.mu.Unlock()

		switch state {
		case StateConnected:
			return nil
		case StateClosed:
			return errors.ErrTransportClosed
		case StateDisconnected:
			return lastErr
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Query sends msg and waits for the response carrying the same transaction id.
// Queries issued before the connection is ready are queued and flushed in order.
func (t *DoTTransport) Query(ctx context.Context, msg []byte) ([]byte, error) {
	id, ok := packet.ID(msg)
	if !ok || len(msg) > dotMaxMessageSize {
		return nil, errors.NewPacketError(fmt.Sprintf("cannot frame message of %d bytes", len(msg)), nil)
	}
	frame := make([]byte, dotLengthPrefix+len(msg))
	binary.BigEndian.PutUint16(frame, uint16(len(msg)))
	copy(frame[dotLengthPrefix:], msg)

	ch := make(chan dotResult, 1)

	t.mu.Lock()
	if t.state == StateClosed {
		t.mu.Unlock()
		return nil, errors.ErrTransportClosed
	}
	t.pending[id] = ch
	if t.state != StateConnected {
		t.queue = append(t.queue, frame)
		t.startConnectLocked()
		t.mu.Unlock()
	} else {
		conn := t.conn
		t.mu.Unlock()
		if err := t.write(conn, frame); err != nil {
			t.removePending(id, ch)
			// The read loop notices the closed connection and reconnects.
			conn.Close()
			return nil, errors.NewUpstreamError(fmt.Sprintf("failed to write query to %s", t), err)
		}
	}

	select {
	case res := <-ch:
		return res.msg, res.err
	case <-ctx.Done():
		t.removePending(id, ch)
		return nil, ctx.Err()
	}
}

// Close tears down the connection and stops reconnecting. Pending queries
// fail with errors.ErrConnectionClosed.
func (t *DoTTransport) Close() error {
	t.mu.Lock()
	if t.state == StateClosed {
		t.mu.Unlock()
		return nil
	}
	conn := t.conn
	t.conn = nil
	t.failPendingLocked(errors.ErrConnectionClosed)
	t.setStateLocked(StateClosed)
	t.mu.Unlock()

	t.cancel()
	if conn != nil {
		conn.Close()
	}
	t.wg.Wait()
	return nil
}

// startConnectLocked starts a connection attempt unless one is running.
func (t *DoTTransport) startConnectLocked() {
	if t.state != StateDisconnected {
		return
	}
	t.setStateLocked(StateConnecting)
	t.wg.Add(1)
	go t.connect()
}

func (t *DoTTransport) setStateLocked(s State) {
	if t.state == s {
		return
	}
	t.state = s
	close(t.changed)
	t.changed = make(chan struct{})
}

func (t *DoTTransport) connect() {
	defer t.wg.Done()

	t.logger.Debugf("Connecting to %s", t)
	conn, err := t.dialer.DialContext(t.ctx, "tcp", t.addr)

	t.mu.Lock()
	if t.state == StateClosed {
		t.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}
	if err != nil {
		t.lastErr = errors.NewUpstreamError(fmt.Sprintf("failed to connect to %s", t), err)
		t.failPendingLocked(t.lastErr)
		t.setStateLocked(StateDisconnected)
		t.mu.Unlock()
		t.logger.Warnf("Failed to connect to %s: %v", t, err)
		return
	}

	t.conn = conn
	t.lastErr = nil
	queue := t.queue
	t.queue = nil
	t.setStateLocked(StateConnected)
	t.wg.Add(1)
	go t.readLoop(conn)

	// Hold the write lock before releasing mu so new queries cannot overtake the queue.
	t.writeMu.Lock()
	t.mu.Unlock()
	defer t.writeMu.Unlock()

	t.logger.Debugf("Connected to %s, flushing %d queued queries", t, len(queue))
	for _, frame := range queue {
		if _, err := conn.Write(frame); err != nil {
			t.logger.Warnf("Failed to flush queued query to %s: %v", t, err)
			conn.Close()
			return
		}
	}
}

func (t *DoTTransport) write(conn net.Conn, frame []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	_, err := conn.Write(frame)
	return err
}

func (t *DoTTransport) readLoop(conn net.Conn) {
	defer t.wg.Done()

	header := make([]byte, dotLengthPrefix)
	for {
		if _, err := io.ReadFull(conn, header); err != nil {
			t.handleClose(conn, err)
			return
		}
		msg := make([]byte, binary.BigEndian.Uint16(header))
		if _, err := io.ReadFull(conn, msg); err != nil {
			t.handleClose(conn, err)
			return
		}

		id, ok := packet.ID(msg)
		if !ok {
			t.logger.Warnf("Dropping %d byte frame from %s", len(msg), t)
			continue
		}

		t.mu.Lock()
		ch, found := t.pending[id]
		if found {
			delete(t.pending, id)
		}
		t.mu.Unlock()

		if !found {
			t.logger.Warnf("[%04x] No pending query for response from %s", id, t)
			continue
		}
		ch <- dotResult{msg: msg}
	}
}

// handleClose fails everything in flight on conn and reconnects unless the
// transport was closed by its owner.
func (t *DoTTransport) handleClose(conn net.Conn, cause error) {
	conn.Close()

	t.mu.Lock()
	if t.conn != conn {
		t.mu.Unlock()
		return
	}
	t.conn = nil
	t.failPendingLocked(errors.ErrConnectionClosed)
	if t.state == StateClosed {
		t.mu.Unlock()
		return
	}
	t.setStateLocked(StateDisconnected)
	t.startConnectLocked()
	t.mu.Unlock()

	t.logger.Infof("Connection to %s closed (%v), reconnecting", t, cause)
}

func (t *DoTTransport) failPendingLocked(err error) {
	for id, ch := range t.pending {
		ch <- dotResult{err: err}
		delete(t.pending, id)
	}
	t.queue = nil
}

func (t *DoTTransport) removePending(id uint16, ch chan dotResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending[id] == ch {
		delete(t.pending, id)
	}
}
