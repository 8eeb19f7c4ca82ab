package db

import (
	"testing"
)

func TestMigrateCreatesRewardsTables(t *testing.T) {
	conn, errOpen := Open(":memory:")
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	for _, table := range []string{
		"users", "settings", "loyalty_profiles", "points_transactions", "reward_offers",
		"redemptions", "orders", "order_status_events", "processed_events",
	} {
		if !conn.Migrator().HasTable(table) {
			t.Fatalf("missing table %s", table)
		}
	}
	for _, column := range []string{"total_expired", "version", "last_spin_at"} {
		if !conn.Migrator().HasColumn("loyalty_profiles", column) {
			t.Fatalf("loyalty_profiles missing column %s", column)
		}
	}
	if DialectName(conn) != DialectSQLite {
		t.Fatalf("expected sqlite dialect, got %q", DialectName(conn))
	}
}

func TestDetectDialectFromDSN(t *testing.T) {
	cases := map[string]string{
		"postgres://u:p@localhost/rewards":    DialectPostgres,
		"host=localhost user=u dbname=rewards": DialectPostgres,
		"file:data/rewards.db":                 DialectSQLite,
		"rewards.db":                           DialectSQLite,
		"sqlite://data/rewards.db":             DialectSQLite,
	}
	for dsn, want := range cases {
		got, err := detectDialectFromDSN(dsn)
		if err != nil {
			t.Fatalf("detect %q: %v", dsn, err)
		}
		if got != want {
			t.Fatalf("detect %q: expected %s, got %s", dsn, want, got)
		}
	}
	if _, err := detectDialectFromDSN("mysql://localhost"); err == nil {
		t.Fatalf("expected error for mysql dsn")
	}
}

func TestSQLitePathFromDSN(t *testing.T) {
	if got := sqlitePathFromDSN("file:data/rewards.db?_busy_timeout=5000"); got != "data/rewards.db" {
		t.Fatalf("unexpected path %q", got)
	}
	if got := sqlitePathFromDSN(":memory:"); got != "" {
		t.Fatalf("expected empty path for memory db, got %q", got)
	}
}
