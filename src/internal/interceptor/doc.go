// Package interceptor serves DNS over UDP and threads every datagram through
// the injection pipeline and the upstream cluster.
//
// Each datagram is handled in its own goroutine:
//
//	BeforeQuery -> forward (with retries) -> BeforeResponse -> send -> AfterResponse
//
// A BeforeQuery halt with a response sends that response and skips the
// upstream; a halt without one drops the query and the client times out.
// A BeforeQuery response override (for example a cache hit) replaces the
// forward but still passes through BeforeResponse.
//
// The listener can set SO_REUSEPORT so that several processes share one
// port, which is how the proxy scales across cores.
package interceptor
