// Package chi provides a Chi-based HTTP server with graceful shutdown,
// standard middleware (RequestID, RealIP, Recoverer), and configurable timeouts.
package chi
