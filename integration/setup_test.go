package integration

import (
	"fmt"
	"os"
	"testing"
	"time"

	"shapeup/internal/attendance"
	"shapeup/internal/calendar"
	"shapeup/internal/db"
	"shapeup/internal/lock"
	"shapeup/internal/membership"
	"shapeup/internal/plan"
	"shapeup/internal/renewal"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("Skipping integration test: DATABASE_URL not set")
	}

	database, err := db.Connect(dsn)
	if err != nil {
		t.Skipf("Skipping integration tests: cannot connect to test database: %v", err)
	}
	require.NoError(t, db.RunMigrations(database, "../migrations"))

	cleanDatabase(t, database)
	t.Cleanup(func() { database.Close() })
	return database
}

func cleanDatabase(t *testing.T, database *sqlx.DB) {
	tables := []string{
		"notifications",
		"renewal_requests",
		"attendance_entries",
		"membership_events",
		"members",
	}
	for _, table := range tables {
		_, err := database.Exec(fmt.Sprintf("DELETE FROM %s", table))
		require.NoError(t, err, "Failed to clean table "+table)
	}
}

// stack is one process worth of services. Separate stacks share nothing but the
// database, so only row locks and constraints keep them consistent.
type stack struct {
	members    membership.Service
	attendance attendance.Service
	renewals   renewal.Service
}

func newStack(database *sqlx.DB, clock calendar.Clock) *stack {
	locks := lock.NewKeyedMutex()
	tx := db.NewTransactor(database)
	plans := plan.NewService(plan.NewRepository(database))
	ledger := attendance.NewRepository()

	engine := membership.NewService(membership.Deps{
		Repo:       membership.NewRepository(),
		DB:         database,
		Tx:         tx,
		Plans:      plans,
		Attendance: ledger,
		Clock:      clock,
		Locks:      locks,
	})
	return &stack{
		members:    engine,
		attendance: attendance.NewService(ledger, database, tx, engine, clock, locks),
		renewals: renewal.NewService(renewal.Deps{
			Repo:    renewal.NewRepository(),
			DB:      database,
			Tx:      tx,
			Members: engine,
			Plans:   plans,
			Clock:   clock,
			Locks:   locks,
		}),
	}
}

func losAngeles(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)
	return loc
}
