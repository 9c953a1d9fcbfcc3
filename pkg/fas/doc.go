// Package fas ("futures and streams") is the small concurrency runtime the
// rest of this module is built on: executors that run submitted work,
// cancellable futures for single-value asynchronous results, and streams
// for multi-value asynchronous sequences, both with chainable continuations
// bound to an explicit executor.
//
// Nothing in this package talks to a database or a socket. It exists so
// that persistence.Backend implementations (the SQLite-backed local
// backend, and the network client) can expose the same asynchronous
// contract regardless of where the work actually happens.
package fas
