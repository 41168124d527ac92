// Package insight provides an analytics caching and orchestration engine:
// a generic tagged, versioned, TTL-based LRU cache paired with a per-entity
// orchestration service that maintains analysis lifecycle state, computes
// derived confidence and health metrics, and produces ranked human-readable
// insight strings by coordinating pluggable analysis algorithms.
//
// # Architecture
//
// Three components, in dependency order (leaves first):
//
//	┌─────────────────────────────────────┐
//	│         Orchestrator                │  analytics lifecycle,
//	│  (analytics.Orchestrator)           │  confidence, health, insights
//	└──────────┬──────────────┬───────────┘
//	           │              │
//	┌──────────▼────┐  ┌──────▼───────────┐
//	│  Tagged Cache │  │  Profile Store   │
//	│  (pkg/cache)  │  │  (profile)       │
//	└───────────────┘  └──────┬───────────┘
//	                          │
//	                   ┌──────▼───────────┐
//	                   │  KV Persistence  │  storage/memstore,
//	                   │  (storage)       │  storage/natskv
//	                   └──────────────────┘
//
// External collaborators (datastore, pattern/correlation/predictive analyzers,
// anomaly detector) are consumed through interfaces declared in the analytics
// package; their outputs are treated as opaque records.
//
// # Framework Packages
//
// Core:
//   - pkg/cache: tagged, versioned, TTL-based LRU cache with statistics
//   - profile: per-entity analytics profiles with durable persistence
//   - analytics: orchestration, confidence/health scoring, insight generation
//
// Infrastructure:
//   - storage: pluggable key/value persistence contracts (+ memstore, natskv)
//   - metric: Prometheus metrics registry and HTTP exposition
//   - errors: structured, classified error handling
//   - pkg/retry: exponential backoff retry policies
//   - pkg/worker: generic worker pools for background refresh
//
// # Error Handling
//
// The engine is fail-soft by design: a failing analyzer contributes an empty
// result, a failing persistence write leaves in-memory state authoritative,
// and an invalid persisted record is skipped on load. The only error that
// propagates to callers is errors.ErrEntityNotFound, raised when an entity id
// is unknown to the datastore. Lacking data is never an error condition.
//
// # Binary
//
// cmd/insight wires the engine together with explicit dependency injection:
// configuration, logging, metrics, a persistence backend, and an optional
// seed-data collaborator for bootstrapping an empty datastore.
package insight
