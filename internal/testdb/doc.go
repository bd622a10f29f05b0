//go:build integration

// Package testdb provides helpers for tests that run against a real
// PostgreSQL database.
//
// Each test runs inside a transaction that is rolled back when the test
// finishes, so tests can share one database and run in parallel:
//
//	func TestSomething(t *testing.T) {
//	    db := testdb.GetTestDBWithT(t)
//	    testdb.WithTx(t, db, func(t *testing.T, tx *sqlx.Tx) {
//	        items := postgres.NewPostgresItemStore(tx, nil)
//	        // ...
//	    })
//	}
//
// DATABASE_URL (or LEXIS_TEST_DB_URL) selects the database; tests are skipped
// when neither is set. The schema is migrated once per process from the
// migrations embedded in the postgres package.
package testdb
