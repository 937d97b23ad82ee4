package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeremiapane/fnb-kiosk/models"
)

func TestPostgresSchemaStatements(t *testing.T) {
	stmts := Statements(postgresSchema)
	require.Len(t, stmts, 3)
	assert.Contains(t, stmts[0], "CREATE TABLE IF NOT EXISTS orders")
	assert.Contains(t, stmts[0], "order_id        VARCHAR(50)   NOT NULL UNIQUE")
	for _, s := range stmts {
		assert.Contains(t, s, "IF NOT EXISTS")
	}
}

func TestAutoMigrateSQLite(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:migrate_test?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, AutoMigrate(db))
	require.NoError(t, AutoMigrate(db))

	assert.True(t, db.Migrator().HasTable(&models.Order{}))
	assert.True(t, db.Migrator().HasColumn(&models.Order{}, "payment_status"))
	assert.True(t, db.Migrator().HasIndex(&models.Order{}, "OrderID"))
}
