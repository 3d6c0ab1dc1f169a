// Package database 数据库模块单元测试
package database

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/dumeirei/agency-portal/internal/common/config"
	"github.com/dumeirei/agency-portal/internal/common/metrics"
)

type sample struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func setupTestDB(t *testing.T) *gorm.DB {
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&sample{}))
	return gdb
}

func TestGetLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Info, getLogLevel(true))
	assert.Equal(t, gormlogger.Silent, getLogLevel(false))
}

func TestDialectorFor(t *testing.T) {
	d, err := dialectorFor(&config.DatabaseConfig{Driver: "sqlite", SQLitePath: ":memory:"})
	require.NoError(t, err)
	assert.Equal(t, "sqlite", d.Name())

	d, err = dialectorFor(&config.DatabaseConfig{Driver: "postgres", Host: "localhost", Port: 5432})
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())

	_, err = dialectorFor(&config.DatabaseConfig{Driver: "mysql"})
	assert.Error(t, err)
}

func TestInit_SQLite(t *testing.T) {
	gdb, err := Init(&config.DatabaseConfig{
		Driver:       "sqlite",
		SQLitePath:   ":memory:",
		MaxIdleConns: 1,
		MaxOpenConns: 1,
	})
	require.NoError(t, err)
	assert.Same(t, gdb, GetDB())
	assert.NoError(t, Ping(context.Background(), gdb))
	assert.NoError(t, Close())
}

func TestRegisterMetrics(t *testing.T) {
	gdb := setupTestDB(t)
	m := metrics.Init("dbtest")
	require.NoError(t, RegisterMetrics(gdb, m))

	require.NoError(t, gdb.Create(&sample{Name: "a"}).Error)
	var rows []sample
	require.NoError(t, gdb.Find(&rows).Error)

	out, err := testutil.GatherAndCount(m.Registry(), "dbtest_db_queries_total")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, out, 2)
}
