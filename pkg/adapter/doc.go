// Package adapter is the External Interface Adapter (C7): a single Check
// entry point that classifies a raw value (IP, URL, or domain text) and
// dispatches it to the right Coordinator query, including the one
// documented cross-kind fallback (a missed URL whose host is itself a
// blacklisted domain).
package adapter
