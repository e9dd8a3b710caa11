// Package log provides simple leveled logging for dnsprotect.
//
// This package implements a lightweight logging system with colored output
// and support for different log levels: DEBUG, INFO, WARN, and ERROR.
// It provides global logging functions plus prefixed component loggers.
//
// # Log Levels
//
//   - DEBUG: Detailed diagnostic information (only shown in verbose mode)
//   - INFO: General informational messages
//   - WARN: Warning messages for potentially problematic situations
//   - ERROR: Error messages for failures and exceptions
//
// # Example Usage
//
// Package-level logging:
//
//	log.Infof("Starting dnsprotect")
//	log.Warnf("List file %s is empty", path)
//
// Component loggers prefix every line with the component name:
//
//	logger := log.New("BLOCKLIST")
//	logger.Infof("Total of %d blocked domains loaded", n)
//	// [INF] [BLOCKLIST] Total of 42 blocked domains loaded
//
// Enabling verbose mode for debug output:
//
//	log.SetVerbose(true)
//	log.Debugf("[%04x] Forwarding query", id)
//
// All functions are safe for concurrent use across goroutines.
package log
