package archive

import (
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Tresorkaseka/Flashnotify/internal/conf"
	"github.com/Tresorkaseka/Flashnotify/internal/errors"
)

// SQLiteStore implements the archive on a local SQLite file.
type SQLiteStore struct {
	DataStore
	Settings *conf.Settings
}

// Open opens or creates the SQLite database and migrates the archive tables.
func (store *SQLiteStore) Open() error {
	dir, fileName := filepath.Split(store.Settings.Output.SQLite.Path)
	basePath := conf.GetBasePath(dir)
	absoluteFilePath := filepath.Join(basePath, fileName)

	db, err := gorm.Open(sqlite.Open(absoluteFilePath), &gorm.Config{Logger: newGormLogger()})
	if err != nil {
		return errors.New(err).
			Component("archive").
			Category(errors.CategoryStore).
			Context("path", absoluteFilePath).
			Context("operation", "open-sqlite").
			Build()
	}

	store.DB = db
	getLogger().Info("sqlite archive opened", "path", absoluteFilePath)
	return performAutoMigration(db, "sqlite")
}
