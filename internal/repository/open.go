package repository

import (
	"fmt"

	"go.uber.org/zap"

	"Mansoor88-6/timekeeper/internal/database"
)

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverBolt   = "bolt"
)

// Open opens the storage selected by driver.
func Open(driver, path string, logger *zap.Logger) (Storage, error) {
	switch driver {
	case DriverSQLite:
		db, err := database.New(path, logger)
		if err != nil {
			return nil, err
		}
		return NewSQLite(db, logger), nil
	case DriverBolt:
		b, err := OpenBolt(path, logger)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
