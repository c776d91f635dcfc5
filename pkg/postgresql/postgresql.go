package postgresql

import (
	"database/sql"
	"sync"

	_ "github.com/lib/pq"
	"github.com/membertown/mt-allocation/config"
	"github.com/membertown/mt-allocation/pkg/applogger"
)

var (
	once sync.Once
	db   *sql.DB
)

// GetDatabase returns the process-wide postgres connection pool.
func GetDatabase() *sql.DB {
	once.Do(func() {
		c := config.Get()
		logger := applogger.GetLogrus()

		conn, err := sql.Open("postgres", c.PostgreSQL.ConnectionURI)
		if err != nil {
			logger.WithError(err).Fatal("unable to open postgresql connection")
		}

		conn.SetMaxOpenConns(c.PostgreSQL.MaxOpenConns)
		conn.SetMaxIdleConns(c.PostgreSQL.MaxIdleConns)
		conn.SetConnMaxLifetime(c.PostgreSQL.ConnMaxLifetime)

		db = conn
	})

	return db
}
