// Package indexcore holds the in-memory index structures (C3) underneath
// a single tier: exact-match sets for domains, URLs and IPs, plus a
// longest-prefix-match radix table for CIDR ranges. The Tiering layer
// stacks two Stores (hot, cold); the Coordinator owns both and the
// durable store that backs them.
package indexcore
