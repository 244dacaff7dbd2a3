package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/auth"
	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/db"
	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// unique in-memory DB per test name to avoid leakage via shared cache
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrateAll(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	auth.SetUserVerifier(nil)
	return gdb
}

func createTestUser(t *testing.T, gdb *gorm.DB, email, chart string) (models.User, *http.Cookie) {
	t.Helper()
	user := models.User{Email: email, Password: "hash"}
	if err := gdb.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	profile := models.Profile{UserID: user.ID, ChartNumber: chart, Nickname: "테스터"}
	if err := gdb.Create(&profile).Error; err != nil {
		t.Fatalf("create profile: %v", err)
	}
	sessW := httptest.NewRecorder()
	auth.CreateSession(sessW, user.ID)
	return user, sessW.Result().Cookies()[0]
}

func protect(h http.HandlerFunc) http.Handler {
	return auth.Middleware(auth.RequireAuth(h))
}
