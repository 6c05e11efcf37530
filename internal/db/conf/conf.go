// Package conf provisions throwaway Postgres databases for tests.
package conf

import (
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"testing"

	_ "github.com/lib/pq"
)

// EnvAdminConn overrides the admin connection used to create test databases.
const EnvAdminConn = "BACKTEST_TEST_PG"

const defaultAdminConn = "host=localhost port=5432 user=postgres password=postgres dbname=postgres sslmode=disable"

// Config holds test database connection and metadata
type Config struct {
	Name    string
	DB      *sql.DB
	ConnStr string
	AdminDB *sql.DB
}

// NewTestConfig creates a database with a random name and applies schema
// statement by statement. The test is skipped when Postgres is not
// reachable. TimescaleDB statements are dropped when the extension is
// unavailable.
func NewTestConfig(t *testing.T, schema string) (*Config, func()) {
	t.Helper()

	adminConnStr := defaultAdminConn
	if v := os.Getenv(EnvAdminConn); v != "" {
		adminConnStr = v
	}
	adminDB, err := sql.Open("postgres", adminConnStr)
	if err != nil {
		t.Fatalf("Failed to connect to postgres: %v", err)
	}
	if err := adminDB.Ping(); err != nil {
		adminDB.Close()
		t.Skipf("Skipping test: PostgreSQL is not running or not accessible: %v", err)
		return nil, func() {}
	}

	dbName := fmt.Sprintf("backtest_test_%d", rand.Int31())
	if _, err := adminDB.Exec("CREATE DATABASE " + dbName); err != nil {
		adminDB.Close()
		t.Fatalf("Failed to create test database: %v", err)
	}

	dbConnStr := replaceDBName(adminConnStr, dbName)
	db, err := sql.Open("postgres", dbConnStr)
	if err != nil {
		adminDB.Close()
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	var hasTimescaleDB bool
	if err := db.QueryRow("SELECT EXISTS (SELECT 1 FROM pg_available_extensions WHERE name = 'timescaledb')").Scan(&hasTimescaleDB); err != nil {
		t.Logf("Warning: Failed to check for TimescaleDB extension: %v", err)
	}
	if hasTimescaleDB {
		if _, err := db.Exec("CREATE EXTENSION IF NOT EXISTS timescaledb CASCADE"); err != nil {
			t.Logf("Warning: Failed to create TimescaleDB extension: %v", err)
			hasTimescaleDB = false
		}
	}

	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if !hasTimescaleDB && strings.Contains(strings.ToLower(stmt), "create_hypertable") {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			adminDB.Close()
			t.Fatalf("Failed to apply schema statement: %s\nError: %v", stmt, err)
		}
	}

	cleanup := func() {
		db.Close()
		if _, err := adminDB.Exec(fmt.Sprintf("DROP DATABASE %s WITH (FORCE)", dbName)); err != nil {
			t.Logf("Warning: Failed to drop test database %s: %v", dbName, err)
		}
		adminDB.Close()
	}
	return &Config{Name: dbName, DB: db, ConnStr: dbConnStr, AdminDB: adminDB}, cleanup
}

// replaceDBName swaps the dbname key of a key=value connection string.
func replaceDBName(connStr, name string) string {
	fields := strings.Fields(connStr)
	for i, f := range fields {
		if strings.HasPrefix(f, "dbname=") {
			fields[i] = "dbname=" + name
			return strings.Join(fields, " ")
		}
	}
	return connStr + " dbname=" + name
}
