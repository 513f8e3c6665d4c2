// Package server hosts the Fiber HTTP service: the middleware chain (panic
// recovery, request IDs, access logging, optional CORS), the JSON error
// handler, and static front-end serving. Blob routes live in the routes
// subpackage and are attached by the caller after NewApp returns, so this
// package stays independent of the cache implementation. Keep exports narrow
// and accept explicit dependencies.
package server
