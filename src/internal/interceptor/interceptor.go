package interceptor

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dnsprotect/dnsprotect/src/internal/config"
	"github.com/dnsprotect/dnsprotect/src/internal/errors"
	"github.com/dnsprotect/dnsprotect/src/internal/injections"
	"github.com/dnsprotect/dnsprotect/src/internal/log"
	"github.com/dnsprotect/dnsprotect/src/internal/retry"
)

const (
	// udpReadTimeout bounds a single read so the accept loop notices Stop.
	udpReadTimeout = 1 * time.Second

	defaultUpstreamTimeout = 5 * time.Second

	// maxUDPMessageSize is the largest payload a UDP datagram can carry.
	maxUDPMessageSize = 65535
)

// Querier forwards a raw DNS query and returns the raw response.
type Querier interface {
	Query(ctx context.Context, msg []byte) ([]byte, error)
}

// Options configures the UDP interceptor.
type Options struct {
	// ListenAddr is the host:port to bind.
	ListenAddr string
	// ReusePort sets SO_REUSEPORT on the socket.
	ReusePort bool
	// Retries is the number of forward attempts per query (default: 1).
	Retries int
	// UpstreamTimeout bounds the forward including retries (default: 5s).
	UpstreamTimeout time.Duration
}

// OptionsFromConfig creates interceptor options from the application config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ListenAddr:      cfg.General.GetListenAddress(),
		ReusePort:       cfg.General.ReusePort,
		Retries:         cfg.Forward.Retries,
		UpstreamTimeout: cfg.General.GetUpstreamTimeout(),
	}
}

// Stats is a snapshot of the per-process query counters.
type Stats struct {
	Received  uint64 `json:"received"`
	Forwarded uint64 `json:"forwarded"`
	Blocked   uint64 `json:"blocked"`
	Failed    uint64 `json:"failed"`
	CacheHits uint64 `json:"cache_hits"`
}

type counters struct {
	received  atomic.Uint64
	forwarded atomic.Uint64
	blocked   atomic.Uint64
	failed    atomic.Uint64
}

type hitCounter interface {
	Hits() uint64
}

// Server is a DNS-over-UDP interceptor.
type Server struct {
	opts     Options
	cluster  Querier
	pipeline *injections.Pipeline
	logger   *log.Logger

	stats counters

	ctx      context.Context
	conn     net.PacketConn
	stopping atomic.Bool
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates an interceptor forwarding through cluster.
func New(opts Options, cluster Querier, pipeline *injections.Pipeline) *Server {
	if opts.Retries < 1 {
		opts.Retries = 1
	}
	if opts.UpstreamTimeout <= 0 {
		opts.UpstreamTimeout = defaultUpstreamTimeout
	}
	if pipeline == nil {
		pipeline = injections.NewPipeline()
	}

	return &Server{
		opts:     opts,
		cluster:  cluster,
		pipeline: pipeline,
		logger:   log.New("UDP INTERCEPTOR"),
	}
}

// Start binds the UDP socket and starts serving. Queries are processed under
// ctx; cancelling it aborts in-flight forwards but does not stop the server.
func (s *Server) Start(ctx context.Context) error {
	lc := listenConfig(s.opts.ReusePort)
	conn, err := lc.ListenPacket(ctx, "udp", s.opts.ListenAddr)
	if err != nil {
		return errors.NewNetworkError(fmt.Sprintf("failed to listen on %s", s.opts.ListenAddr), err)
	}

	s.ctx = ctx
	s.conn = conn

	s.wg.Add(1)
	go s.serve(conn)

	s.logger.Infof("UDP Server is now listening on %s", conn.LocalAddr())
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

// Stop stops accepting datagrams, waits for in-flight queries and pending
// AfterResponse work, then closes the socket.
func (s *Server) Stop() error {
	if s.conn == nil {
		return nil
	}

	var err error
	s.stopOnce.Do(func() {
		s.logger.Infof("Stopping UDP interceptor...")
		s.stopping.Store(true)
		_ = s.conn.SetReadDeadline(time.Now())

		s.wg.Wait()
		s.pipeline.Wait()

		err = s.conn.Close()
		s.logger.Infof("UDP interceptor stopped")
	})
	return err
}

// Stats returns the current counters.
func (s *Server) Stats() Stats {
	stats := Stats{
		Received:  s.stats.received.Load(),
		Forwarded: s.stats.forwarded.Load(),
		Blocked:   s.stats.blocked.Load(),
		Failed:    s.stats.failed.Load(),
	}
	for _, inj := range s.pipeline.Injections() {
		if hc, ok := inj.(hitCounter); ok {
			stats.CacheHits += hc.Hits()
		}
	}
	return stats
}

// serve reads datagrams until Stop.
func (s *Server) serve(conn net.PacketConn) {
	defer s.wg.Done()

	buf := make([]byte, maxUDPMessageSize)

	for {
		if s.stopping.Load() {
			return
		}

		_ = conn.SetReadDeadline(time.Now().Add(udpReadTimeout))
		n, clientAddr, err := conn.ReadFrom(buf)
		if err != nil {
			if s.stopping.Load() {
				return
			}
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			s.logger.Errorf("There was a new UDP error: %v", err)
			continue
		}

		req := make([]byte, n)
		copy(req, buf[:n])

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(conn, clientAddr, req)
		}()
	}
}

// handle runs one query through the pipeline and replies to addr.
func (s *Server) handle(conn net.PacketConn, addr net.Addr, msg []byte) {
	startTime := time.Now()
	s.stats.received.Add(1)

	pre, err := s.pipeline.BeforeQuery(s.ctx, msg)
	if err != nil {
		s.stats.failed.Add(1)
		s.logger.Debugf("Dropping malformed query from %s: %v", addr, err)
		return
	}

	if pre.Halt {
		s.stats.blocked.Add(1)
		if pre.Response == nil {
			s.logger.Infof("DNS Query Time(BLOCK): %dms (Proxy: %dms)", since(startTime), since(startTime))
			return
		}

		s.logger.Debugf("Sending custom response to %s", addr)
		if !s.send(conn, addr, pre.Response) {
			return
		}
		s.logger.Infof("DNS Query(BLOCK): %dms (Proxy: %dms)", since(startTime), since(startTime))
		s.pipeline.AfterResponse(context.WithoutCancel(s.ctx), msg, pre.Response)
		return
	}

	startForwardTime := time.Now()
	response := pre.Response
	if response == nil {
		query := msg
		if pre.Query != nil {
			query = pre.Query
		}

		response, err = s.forward(query)
		if err != nil {
			s.stats.failed.Add(1)
			s.logger.Errorf("Error with DNS Query: %v", err)
			return
		}
		s.stats.forwarded.Add(1)
	}
	forwardTime := since(startForwardTime)

	post, err := s.pipeline.BeforeResponse(s.ctx, msg, response)
	if err != nil {
		s.stats.failed.Add(1)
		s.logger.Errorf("Error with DNS Query: %v", err)
		return
	}
	if post.Halt {
		s.stats.blocked.Add(1)
		s.logger.Infof("DNS Query Time(BLOCK): %dms (Proxy: %dms / Forward Server: %dms)", since(startTime), since(startTime), forwardTime)
		return
	}
	if post.Response != nil {
		response = post.Response
	}

	if !s.send(conn, addr, response) {
		return
	}
	totalTime := since(startTime)
	s.logger.Infof("DNS Query(OK): %dms (Proxy: %dms / Forward Server: %dms)", totalTime, totalTime-forwardTime, forwardTime)

	s.pipeline.AfterResponse(context.WithoutCancel(s.ctx), msg, response)
}

// forward sends query upstream with retries under the upstream timeout.
func (s *Server) forward(query []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(s.ctx, s.opts.UpstreamTimeout)
	defer cancel()

	return retry.Do(ctx, s.opts.Retries, func(ctx context.Context) ([]byte, error) {
		return s.cluster.Query(ctx, query)
	}, func(attempt int, err error) {
		s.logger.Warnf("DNS Query returned error, retrying... (attempt %d: %v)", attempt, err)
	})
}

func (s *Server) send(conn net.PacketConn, addr net.Addr, response []byte) bool {
	if _, err := conn.WriteTo(response, addr); err != nil {
		s.stats.failed.Add(1)
		s.logger.Errorf("Failed to send response to %s: %v", addr, err)
		return false
	}
	return true
}

func since(t time.Time) int64 {
	return time.Since(t).Milliseconds()
}
