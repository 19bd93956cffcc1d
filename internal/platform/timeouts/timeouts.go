// Package timeouts defines shared timeout constants used across the tour
// service and its stores.
package timeouts

import "time"

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long an HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// StoreDial caps the wait when connecting to a remote completion store.
const StoreDial = 5 * time.Second
