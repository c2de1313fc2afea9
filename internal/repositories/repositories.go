package repositories

import (
	"database/sql"
	"fmt"
	"time"
)

// Count returns the number of rows in table.
func Count(db *sql.DB, table string) (int, error) {
	var n int
	if err := db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}

func now() time.Time { return time.Now().UTC() }
