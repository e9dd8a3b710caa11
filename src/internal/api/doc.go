// Package api provides the read-only status API of dnsprotect.
//
// The API exposes:
//   - GET /api/v1/health: readiness of every forward server and the cache store
//   - GET /api/v1/stats: query counters of this process and the cache size
//   - GET /api/v1/config: the effective forward and injection settings
//
// Access is restricted to private subnets.
//
// # Response Format
//
// All successful responses wrap data in a "data" field:
//
//	{
//	  "data": { /* response payload */ }
//	}
//
// Error responses use the following format:
//
//	{
//	  "error": {
//	    "code": "ERROR_CODE",
//	    "message": "Human-readable error message"
//	  }
//	}
package api
