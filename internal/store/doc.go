// Package store provides persistence for conversation threads and messages.
//
// # Data Model
//
// Two record types:
//
//   - Thread: one per conversation. Holds the ownership state (Bot, Queued,
//     Live Agent), the end user's display name, the owning brand, and a
//     denormalized last-message summary for listing.
//   - Message: append-only, one per inbound or outbound message, ordered
//     by CreatedDate.
//
// # Implementations
//
// SQLiteStore is the production implementation (modernc.org/sqlite, WAL
// mode, schema created on open). MockStore is an in-memory implementation
// for tests.
//
// # Upsert Semantics
//
// UpsertThread creates the record when the conversation is new; on conflict
// it merges only the mutable fields (state, display name, last message
// summary). BrandID is fixed at creation.
package store
