// Package storeio implements the write-router core of a consensus-replicated
// storage layer: per-peer routing of write batches to a pool of I/O worker
// threads, with load balancing, ordering preservation across worker
// migration, and a process-wide cap on concurrent migrations.
//
// The router itself lives in the core subpackage; this package holds the
// capabilities (Config, Metrics) a RouterContext hands to it.
package storeio
