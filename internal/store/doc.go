// Package store persists completed audit records.
//
// Records are kept under the key Namespace + id and expire after a TTL
// (DefaultTTL unless the caller passes a positive one). Saving the same id
// again replaces the value and restarts the TTL. Recall reports absence
// through its found result, never through a zero record. Only records whose
// status is complete are accepted, so an aborted or cancelled run can never
// leave a partial audit behind.
//
// Backends: MemoryStore for tests and single-process use, RedisStore for
// shared deployments. The SQLite backend lives in internal/database.
package store
