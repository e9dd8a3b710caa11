// Package injections implements the policy pipeline a DNS query passes
// through on its way to the upstream and back.
//
// Every injection declares one Phase:
//
//   - BeforeQuery injections all look at the client query and run
//     concurrently. Any halt stops the query; the first query and response
//     overrides in registration order win.
//   - BeforeResponse injections form a chain. Each one sees the response
//     produced by the previous one and a halt drops the reply.
//   - AfterResponse injections run in the background once the reply was
//     sent. Pipeline.Wait blocks until they are done.
//
// An injection that fails is logged and skipped; the rest of its phase
// still runs. Halting is a normal Result, not an error.
package injections
