package archive

import (
	"fmt"

	"github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/Tresorkaseka/Flashnotify/internal/conf"
	"github.com/Tresorkaseka/Flashnotify/internal/errors"
)

// mysqlTimeout bounds connection, read, and write waits on the DSN.
const mysqlTimeout = "10s"

// MySQLStore implements the archive on a shared MySQL server.
type MySQLStore struct {
	DataStore
	Settings *conf.Settings
}

// Open connects to the configured MySQL server and migrates the archive
// tables. The DSN is built with mysql.Config so credentials with special
// characters survive escaping.
func (store *MySQLStore) Open() error {
	out := &store.Settings.Output.MySQL

	cfg := mysql.Config{
		User:   out.Username,
		Passwd: out.Password,
		Net:    "tcp",
		Addr:   fmt.Sprintf("%s:%s", out.Host, out.Port),
		DBName: out.Database,
		Params: map[string]string{
			"charset":      "utf8mb4",
			"parseTime":    "True",
			"loc":          "Local",
			"timeout":      mysqlTimeout,
			"readTimeout":  mysqlTimeout,
			"writeTimeout": mysqlTimeout,
		},
	}
	dsn := cfg.FormatDSN()

	db, err := gorm.Open(gormmysql.Open(dsn), &gorm.Config{Logger: newGormLogger()})
	if err != nil {
		return errors.New(err).
			Component("archive").
			Category(errors.CategoryStore).
			Context("host", out.Host).
			Context("port", out.Port).
			Context("database", out.Database).
			Context("operation", "open-mysql").
			Build()
	}

	store.DB = db
	getLogger().Info("mysql archive opened",
		"host", out.Host,
		"port", out.Port,
		"database", out.Database)
	return performAutoMigration(db, "mysql")
}
