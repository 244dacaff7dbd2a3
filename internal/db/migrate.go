package db

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	migrate "github.com/golang-migrate/migrate/v4"
	// The following blank imports register the postgres driver and file source for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/models"
)

func ConnectAndMigrate(rawDSN string) (*gorm.DB, error) {
	dsn := NormalizeDSN(rawDSN)
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_DSN is empty, check the environment configuration")
	}
	var db *gorm.DB
	var err error
	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "1" {
		logLevel = logger.Info
	}
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}
	if IsSQLiteDSN(dsn) {
		db, err = gorm.Open(sqlite.Open(dsn), cfg)
	} else {
		for i := 0; i < 10; i++ {
			db, err = gorm.Open(postgres.Open(dsn), cfg)
			if err == nil {
				break
			}
			fmt.Println("Retrying DB connection...", err)
			time.Sleep(2 * time.Second)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	// Basic connectivity test
	if pingErr := db.Exec("SELECT 1").Error; pingErr != nil {
		return nil, fmt.Errorf("db ping failed: %w", pingErr)
	}

	// Print masked DSN once for diagnostics (before migrations for visibility)
	masked := dsn
	if strings.Contains(masked, "password=") {
		re := regexp.MustCompile(`(password=)([^\s]+)`)
		masked = re.ReplaceAllString(masked, `${1}***`)
	}
	fmt.Println("[DB] Using DSN:", masked)
	// MIGRATIONS=1 runs sql migrations via golang-migrate; otherwise AutoMigrate (dev convenience)
	if v := strings.ToLower(os.Getenv("MIGRATIONS")); v == "1" || v == "true" || v == "yes" {
		if err := runSQLMigrations(dsn); err != nil {
			return nil, fmt.Errorf("sql migrations failed: %w", err)
		}
	} else {
		if err := AutoMigrateAll(db); err != nil {
			return nil, err
		}
	}

	// sanity check: ensure required core tables exist
	for _, table := range []string{"users", "profiles", "health_logs", "health_scores"} {
		if !db.Migrator().HasTable(table) {
			return nil, errors.New("missing table after migration: " + table)
		}
	}
	// Seeding only when explicitly requested (e.g. development) via DB_SEED=1|true
	if v := strings.ToLower(os.Getenv("DB_SEED")); v == "1" || v == "true" || v == "yes" {
		seed(db)
	}
	return db, nil
}

// AutoMigrateAll migrates every model this service owns. Shared with tests.
func AutoMigrateAll(db *gorm.DB) error {
	modelsToMigrate := []interface{}{
		&models.User{}, &models.Profile{}, &models.HealthLog{}, &models.Schedule{},
		&models.HealthScore{}, &models.CycleLog{},
		&models.DrugMaster{}, &models.UserMedication{}, &models.DniRule{}, &models.SearchLog{},
		&models.UserGroup{}, &models.GroupMember{},
	}
	for _, m := range modelsToMigrate {
		if migErr := db.AutoMigrate(m); migErr != nil {
			return fmt.Errorf("automigrate %T: %w", m, migErr)
		}
	}
	return nil
}

// seed loads the baseline drug-nutrient caution rules so DNI inference works
// out of the box in development. Idempotent on (ingredient, nutrient).
func seed(db *gorm.DB) {
	baseRules := []models.DniRule{
		{IngredientName: "와파린", TargetNutrient: "비타민K", WarningLevel: "high", Message: "비타민K가 풍부한 음식은 와파린의 항응고 효과에 영향을 줄 수 있어 섭취량을 일정하게 유지하는 것이 권장됩니다."},
		{IngredientName: "리시노프릴", TargetNutrient: "칼륨", WarningLevel: "medium", Message: "칼륨 함량이 높은 음식과 함께 복용 시 혈중 칼륨 수치 변화에 주의가 권장됩니다."},
		{IngredientName: "레보티록신", TargetNutrient: "칼슘", WarningLevel: "medium", Message: ""},
		{IngredientName: "테트라사이클린", TargetNutrient: "칼슘", WarningLevel: "medium", Message: ""},
		{IngredientName: "메트포르민", TargetNutrient: "당", WarningLevel: "low", Message: ""},
	}
	for _, r := range baseRules {
		var existing models.DniRule
		if err := db.Where("ingredient_name = ? AND target_nutrient = ?", r.IngredientName, r.TargetNutrient).First(&existing).Error; err == gorm.ErrRecordNotFound {
			db.Create(&r)
		}
	}
}

// runSQLMigrations executes migrations in ./migrations using golang-migrate file source.
func runSQLMigrations(dsn string) error {
	m, err := migrate.New("file://migrations", dsn)
	if err != nil {
		return err
	}
	if err = m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}
