// @title LMS Progress API
// @version 1.0
// @description Learner progress and quiz grading engine.

// @host localhost:8080
// @BasePath /api
// @securityDefinitions.apikey UserID
// @in header
// @name X-User-ID

package main

import (
	"flag"
	"lms_progress_backend/internal/app"
	"lms_progress_backend/internal/config"
	"lms_progress_backend/pkg/logger"
	"log"
)

func main() {
	migrateOnly := flag.Bool("migrate-only", false, "run database migration and exit")
	flag.Parse()

	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	application := app.NewApp(cfg)
	defer logger.Log.Sync()

	if *migrateOnly {
		log.Println("Database migration completed, exiting")
		return
	}

	application.Run()
}
