package database

import (
	"testing"

	"github.com/novabank/onboard/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testModel struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:64"`
}

func TestProvideDatabase_Sqlite(t *testing.T) {
	cfg := config.Config{
		Database: config.DatabaseConfig{
			Driver:      "sqlite",
			DSN:         ":memory:",
			AutoMigrate: true,
		},
	}

	db, err := ProvideDatabase(cfg, WithModels(&testModel{}))

	require.NoError(t, err)
	assert.True(t, db.Migrator().HasTable(&testModel{}))
}

func TestProvideDatabase_UnsupportedDriver(t *testing.T) {
	cfg := config.Config{
		Database: config.DatabaseConfig{Driver: "oracle"},
	}

	_, err := ProvideDatabase(cfg, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestProvideDatabase_NoAutoMigrate(t *testing.T) {
	cfg := config.Config{
		Database: config.DatabaseConfig{
			Driver: "sqlite",
			DSN:    ":memory:",
		},
	}

	db, err := ProvideDatabase(cfg, WithModels(&testModel{}))

	require.NoError(t, err)
	assert.False(t, db.Migrator().HasTable(&testModel{}))
}
