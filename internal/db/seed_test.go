package db

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/models"
)

func TestSeedIdempotent(t *testing.T) {
	d, err := gorm.Open(sqlite.Open("file:seedtest?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := d.AutoMigrate(&models.DniRule{}); err != nil {
		t.Fatal(err)
	}
	seed(d)
	seed(d)
	var total int64
	d.Model(&models.DniRule{}).Count(&total)
	if total < 5 {
		t.Fatalf("expected at least 5 baseline rules got %d", total)
	}
	// Baseline pairs exist exactly once
	var c1, c2 int64
	d.Model(&models.DniRule{}).Where("ingredient_name = ? AND target_nutrient = ?", "와파린", "비타민K").Count(&c1)
	d.Model(&models.DniRule{}).Where("ingredient_name = ? AND target_nutrient = ?", "리시노프릴", "칼륨").Count(&c2)
	if c1 != 1 || c2 != 1 {
		t.Fatalf("baseline rules duplicated or missing: warfarin=%d lisinopril=%d", c1, c2)
	}
}

func TestNormalizeDSN(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"postgres://u:p@localhost:5432/health", "postgres://u:p@localhost:5432/health"},
		{`"postgres://u:p@localhost/health"`, "postgres://u:p@localhost/health"},
		{"file:dev.db", "file:dev.db"},
		{"health.sqlite", "health.sqlite"},
		{"host=localhost  user=app dbname=health", "host=localhost user=app dbname=health sslmode=disable"},
		{"host=localhost sslmode=require", "host=localhost sslmode=require"},
		{"  ", ""},
	}
	for _, c := range cases {
		if got := NormalizeDSN(c.in); got != c.want {
			t.Errorf("NormalizeDSN(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestIsSQLiteDSN(t *testing.T) {
	for dsn, want := range map[string]bool{
		"file:dev.db":              true,
		":memory:":                 true,
		"app.sqlite":               true,
		"postgres://u@host/health": false,
		"host=localhost":           false,
	} {
		if got := IsSQLiteDSN(dsn); got != want {
			t.Errorf("IsSQLiteDSN(%q) = %v, want %v", dsn, got, want)
		}
	}
}
