// Package cache owns the blob index and its disk representation. Every entry
// is persisted as StoragePath/<uuid>.data (brotli payload) plus
// StoragePath/<uuid>.meta (JSON descriptor). The descriptor is written only
// after the payload has been renamed into place, so a .meta file on disk
// certifies a complete entry; startup recovery rebuilds the in-memory index
// from .meta files alone. HTTP handlers depend on this package to register
// uploads, read them back and list the index without touching the filesystem.
package cache
