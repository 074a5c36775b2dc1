// Package queue persists conversion jobs and exposes the only operations that
// may change a job's lifecycle state.
//
// Every state change is a conditional UPDATE: a claim succeeds only while the
// row is still pending, terminal writes succeed only from an allowed source
// state (and, when a worker id is supplied, only for the owning worker), and
// progress writes only ever raise the stored value. Callers never perform
// read-modify-write across process boundaries, which makes it safe to run
// several dispatcher processes against one database.
//
// SQLite (modernc.org/sqlite) is the default backend; PostgreSQL (lib/pq) is
// available for workers spread over several hosts. Queries are written with
// "?" placeholders and rebound per dialect. Timestamps are stored as fixed
// width UTC text so string comparison matches chronological order on both.
//
// Schema changes bump schemaVersion in schema.go; an older database must be
// cleared before the new schema is adopted.
package queue
