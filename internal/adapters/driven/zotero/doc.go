// Package zotero implements driven.LibraryClient against the Zotero Web API v3.
//
// Requests authenticate with the library API key as a bearer token and are
// throttled by a token bucket that also honours the server's Backoff and
// Retry-After hints. HTTP failures are mapped onto the domain error
// taxonomy so the orchestrator can tell a version conflict from an outage.
package zotero
