// Package postgres provides the PostgreSQL implementations of the store
// interfaces defined in internal/store, together with the embedded schema
// migrations. Stores accept a store.DBTX so the same code runs against the
// connection pool or inside a transaction opened by Store.WithinTx.
package postgres
