// Package backend provides the attachment storage backends.
//
// Native stores attachments through the library's own file storage.
// Emulated speaks the library's WebDAV storage protocol against any
// driven.FileStore: each attachment becomes a "<key>.zip" container
// holding the single file plus a "<key>.prop" properties document.
package backend
