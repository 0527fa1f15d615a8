// Package testutil holds helpers shared by package tests.
package testutil

import (
	"bitwise74/account-api/db"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewDB returns a migrated in-memory sqlite database private to t.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	gdb, err := db.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)

	// one connection keeps the shared in-memory database alive and avoids
	// sqlite table locks between pooled connections
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() { _ = sqlDB.Close() })

	return gdb
}

// NewFileDB returns a migrated sqlite database in a temporary file. Unlike
// NewDB it allows a pool of connections, so concurrent transactions really
// race each other. Writers queue on the database lock instead of failing.
func NewFileDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "accounts.db")
	gdb, err := db.Open("sqlite", path+"?_busy_timeout=5000&_txlock=immediate")
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)

	t.Cleanup(func() { _ = sqlDB.Close() })

	return gdb
}
