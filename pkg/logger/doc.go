// Package logger provides structured logging built on zerolog.
//
// It supports console and Logstash-compatible JSON output formats,
// configurable log levels, and optional caller/timestamp annotations.
// Use SetupLogger to configure the global logger or New to create
// independent logger instances.
package logger
