package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/auth"
	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/config"
	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/handlers"
	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/httpx"
	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/mfds"
	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/middleware"
	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/models"
	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/services"
	"github.com/onetwo1999-bit/Dr-Docent-sub000/internal/usda"
)

// New constructs the root http.Handler with all routes and middlewares applied.
func New(db *gorm.DB, cfg config.Config) http.Handler {
	mux := http.NewServeMux()

	// RequireAuth double-checks that the session's user still exists.
	auth.SetUserVerifier(func(_ context.Context, uid uint) bool {
		var count int64
		if err := db.Model(&models.User{}).Where("id = ?", uid).Limit(1).Count(&count).Error; err != nil {
			return false
		}
		return count > 0
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	authHandler := handlers.NewAuthHandler(db)
	authHandler.Register(mux)

	requireAuth := func(h http.HandlerFunc) http.Handler {
		return auth.Middleware(auth.RequireAuth(h))
	}

	ph := handlers.NewProfileHandler(db)
	mux.Handle("/profile", requireAuth(ph.Handle))

	lh := handlers.NewHealthLogHandler(db, cfg.Location)
	mux.Handle("/health-logs", requireAuth(lh.Handle))

	rankingSvc := services.NewRankingService(db, cfg.Location)
	rh := handlers.NewRankingHandler(db, rankingSvc)
	mux.Handle("/ranking", requireAuth(rh.Handle))

	calendarSvc := services.NewGroupCalendarService(db, cfg.Location)
	gh := handlers.NewGroupCalendarHandler(calendarSvc)
	mux.Handle("/group-calendar", requireAuth(gh.Handle))

	cycleSvc := services.NewCycleService(db, cfg.Location)
	ch := handlers.NewCycleLogHandler(cycleSvc)
	mux.Handle("/cycle-logs", requireAuth(ch.Handle))

	var registry services.DrugSearcher
	if cfg.MfdsAPIKey != "" {
		registry = mfds.NewClient(cfg.MfdsAPIKey)
	}
	ragSvc := services.NewDrugRAGService(db, registry)
	dh := handlers.NewDrugHandler(ragSvc)
	mux.Handle("/drugs/search", requireAuth(dh.Search))

	dniSvc := services.NewDniService(db)
	var foods handlers.FoodResolver
	if cfg.UsdaAPIKey != "" {
		foods = usda.NewClient(cfg.UsdaAPIKey)
	}
	nh := handlers.NewDniHandler(dniSvc, foods)
	mux.Handle("/dni/check", requireAuth(nh.Check))

	ctxSvc := services.NewHealthContextService(db, cfg.Location)
	hch := handlers.NewHealthContextHandler(ctxSvc)
	mux.Handle("/health-context", requireAuth(hch.Handle))

	return middleware.RequestID(withRecover(withLogging(mux)))
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

func withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("panic recovered: %v", rec)
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
