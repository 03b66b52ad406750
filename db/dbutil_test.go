package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestInitDatabase_InMemory(t *testing.T) {
	gdb, err := InitDatabase(DBConfig{Path: ":memory:", LogLevel: logger.Silent})
	require.NoError(t, err)

	var foreignKeysEnabled int
	require.NoError(t, gdb.Raw("PRAGMA foreign_keys").Scan(&foreignKeysEnabled).Error)
	assert.Equal(t, 1, foreignKeysEnabled)

	// A second statement must see the same in-memory database
	require.NoError(t, gdb.Exec("CREATE TABLE scratch (id INTEGER PRIMARY KEY)").Error)
	assert.True(t, gdb.Migrator().HasTable("scratch"))
}

func TestInitDatabase_FileBased(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "skiff.db")

	gdb, err := InitDatabase(DBConfig{Path: dbPath, LogLevel: logger.Silent})
	require.NoError(t, err)
	assert.FileExists(t, dbPath)

	var journalMode string
	require.NoError(t, gdb.Raw("PRAGMA journal_mode").Scan(&journalMode).Error)
	assert.Equal(t, "wal", journalMode)
}

func TestInitDatabase_SharedFile(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "shared.db")
	config := DBConfig{Path: dbPath, LogLevel: logger.Silent}

	first, err := InitDatabase(config)
	require.NoError(t, err)
	require.NoError(t, AutoMigrateAll(first))
	require.NoError(t, first.Exec(
		"INSERT INTO projects (id, identity, path, status) VALUES (?, ?, ?, ?)",
		"00000000-0000-0000-0000-000000000001", "demo", "/srv/demo", "running").Error)

	second, err := InitDatabase(config)
	require.NoError(t, err)

	var count int64
	require.NoError(t, second.Model(&ProjectModel{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
