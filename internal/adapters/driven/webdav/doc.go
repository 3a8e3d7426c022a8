// Package webdav provides a driven.FileStore backed by a WebDAV server.
//
// It is the remote half of the emulated attachment backend: the library
// expects "<key>.zip" and "<key>.prop" pairs in a flat directory, usually
// the "zotero/" folder of the user's WebDAV share.
package webdav
