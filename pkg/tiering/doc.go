// Package tiering is the hot/cold short-circuit layer (C4) stacked over
// two indexcore.Stores. Entries from a small set of dominant sources are
// stored in the hot shard and all others in the cold shard (each entry in
// exactly one), so a lookup that hits the hot shard never walks the (much
// larger) cold shard.
package tiering
