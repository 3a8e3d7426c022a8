// Package domain defines the core business entities for the bridge.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - LibraryItem: A bibliographic record whose tags encode sync state
//   - Attachment: A file record (usually a PDF) linked to a library item
//   - AttachmentRef: The result of storing an attachment remotely
//   - SyncState: The state derived from an item's tag set
//   - Action: The transition chosen by NextTransition
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
