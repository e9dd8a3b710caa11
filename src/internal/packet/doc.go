// Package packet decodes and encodes DNS wire-format messages.
//
// Parse copies its input and returns a structured view of the header and the
// four record sections. Bytes re-encodes a packet with section counts taken
// from the actual slice lengths. Compression pointers are followed while
// parsing and never emitted, so a round trip may grow the message but keeps
// every decoded field intact.
//
// Only A, AAAA, CNAME, MX, NS and PTR rdata is decoded into typed fields. All
// other record types keep their raw rdata.
//
// Packets are values: helpers such as WithAuthenticatedData and WithID return
// an independent deep copy and never touch the receiver.
package packet
