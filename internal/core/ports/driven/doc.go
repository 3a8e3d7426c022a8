// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - LibraryClient: Bibliographic library items, tags and attachments
//   - TabletClient: Upload and download of tablet documents
//   - Renderer: Flattens tablet notebooks into PDFs
//   - AttachmentBackend: Stores and fetches attachment bytes
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - FileStore: Generic remote file store. Only needed by the emulated backend.
//   - HistoryStore: Pass history. Without it, passes are not recorded.
//   - SchedulerStore: Daemon task state.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
