// Package lists loads domain list files into membership sets.
//
// A list file is plain text with domain names separated by any whitespace.
// Text after "#" on a line is ignored and bare IP addresses are skipped, so
// hosts-style files such as "0.0.0.0 ads.example" load as expected.
//
// Names are compared case-insensitively and without the trailing dot.
// A DomainSet is read-only after loading and safe for concurrent use.
package lists
