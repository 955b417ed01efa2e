//go:build !cgo_sqlite

package config

import (
	_ "modernc.org/sqlite" // pure Go SQLite driver
)

const (
	driverName = "sqlite"
	driverType = "purego"
)
