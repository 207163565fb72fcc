// Package providers contains dependency injection providers for the Talkboard gateway.
package providers

import "time"

const (
	// shutdownTimeout is the maximum time to wait for graceful shutdown of services.
	shutdownTimeout = 30 * time.Second

	// janitorInterval is how often expired sessions are deleted.
	janitorInterval = 10 * time.Minute
)
