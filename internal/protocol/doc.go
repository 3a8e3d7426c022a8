// Package protocol implements the attachment storage protocol the library
// speaks to a WebDAV file store.
//
// Each attachment is stored as two sibling files named by its storage key:
//
//   - <key>.zip: an archive holding exactly one entry, the attachment file
//     under its original name
//   - <key>.prop: a properties document carrying the modification time
//     and content hash, byte-compatible with the library's own client:
//     <properties version="1"><mtime>…</mtime><hash>…</hash></properties>
//
// The package is pure: it reads local files but performs no network I/O.
package protocol
