// Package codec wraps brotli so the cache can turn an uploaded blob into the
// bytes stored in {id}.data and back. The quality level is fixed for the whole
// process; callers never pick one per request.
package codec
