// Package postgres provides PostgreSQL implementations of the store
// interfaces. All implementations accept a store.DBTX so they work both
// on a connection pool and inside a transaction.
package postgres
