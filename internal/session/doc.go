// Package session implements the two-tier conversation history store.
//
// A session's history lives in two places: a Redis cache entry with a
// sliding expiry, and a durable Postgres row. Reads prefer the cache and
// fall back to Postgres, repopulating the cache on the way out. Writes go
// to the cache during a turn; the durable row is updated once per turn via
// Memory.Sync, which is the only durability guarantee.
//
// Memory is the orchestrator over both tiers. KeyedMutex serializes turns
// for the same session so the read-modify-write cycle never interleaves.
package session
