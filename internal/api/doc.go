// Package api handles incoming HTTP and WebSocket requests: routing,
// request validation, and response formatting. It adapts external
// clients to the internal job service, translating HTTP concerns into
// job lifecycle operations.
package api
