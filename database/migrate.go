package database

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/gorm"

	"github.com/yeremiapane/fnb-kiosk/models"
	"github.com/yeremiapane/fnb-kiosk/utils"
)

//go:embed migrations/postgres.sql
var postgresSchema string

// AutoMigrate creates or updates the orders table for the gorm backend.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Order{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	utils.InfoLogger.Info("AutoMigrate completed.")
	return nil
}

// Statements splits a schema file into single statements.
func Statements(schema string) []string {
	var out []string
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		out = append(out, stmt)
	}
	return out
}

// MigratePostgres applies the orders schema. Every statement is idempotent.
func MigratePostgres(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range Statements(postgresSchema) {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate postgres: %w\nstatement: %s", err, stmt)
		}
	}
	utils.InfoLogger.Info("Postgres schema ready.")
	return nil
}
