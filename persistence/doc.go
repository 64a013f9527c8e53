// Package persistence defines the gateway contract the topic cache persists
// through, plus the built-in gateway implementations and the asynchronous
// writer that decouples gateway latency from cache traffic.
//
// The in-memory store is authoritative for the life of the process; gateways
// provide eventual durability. Save and Delete are idempotent upserts and
// removals, Load is a full snapshot that is safe to call repeatedly.
package persistence
