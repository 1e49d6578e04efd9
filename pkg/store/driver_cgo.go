//go:build cgo

package store

import (
	_ "github.com/mattn/go-sqlite3" // cgo SQLite driver
)

// DriverCGO is the database/sql name of the cgo SQLite driver, available in
// cgo builds as an alternative to DriverPure.
const DriverCGO = "sqlite3"
