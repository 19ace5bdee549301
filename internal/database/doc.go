// Package database provides the SQLite backend of the result store.
//
// AuditDB keeps one row per audit key with the record as JSON and the
// expiry time in Unix nanoseconds. Expired rows are invisible to reads and
// are removed by PurgeExpired. The database is a single file opened through
// modernc.org/sqlite, so no CGO or external server is needed.
package database
