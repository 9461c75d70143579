// Package jobs runs the site's periodic maintenance work.
package jobs

import (
	"time"

	"gorm.io/gorm"
)

// Job is one unit of periodic work.
type Job interface {
	Name() string
	Run() error
}

// ConnectionProvider hands out the database connection. Satisfied by
// database.DBManager and the test managers.
type ConnectionProvider interface {
	GetConnection() *gorm.DB
}

type scheduledJob struct {
	job      Job
	interval time.Duration
	ticker   *time.Ticker
}
