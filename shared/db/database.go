package db

import (
	"database/sql"
)

// Database abstracts the lifecycle of a SQL backend so cmd/server can wire
// one without caring about the driver.
type Database interface {
	Connect() error
	Close() error
	DB() *sql.DB
}
