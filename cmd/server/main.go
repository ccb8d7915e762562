package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/lecturer-claims/internal/config"
	"github.com/iliyamo/lecturer-claims/internal/database"
	"github.com/iliyamo/lecturer-claims/internal/handler"
	"github.com/iliyamo/lecturer-claims/internal/queue"
	"github.com/iliyamo/lecturer-claims/internal/repository"
	"github.com/iliyamo/lecturer-claims/internal/router"
	"github.com/iliyamo/lecturer-claims/internal/service"
	"github.com/iliyamo/lecturer-claims/internal/storage"
	"github.com/iliyamo/lecturer-claims/internal/upload"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using process environment")
	}
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if err := database.Migrate(context.Background(), db); err != nil {
		log.Fatalf("database: %v", err)
	}

	rdb := config.NewRedisClient()
	cacheCfg := config.LoadCacheConfig()
	rateCfg := config.LoadRateLimitConfig()

	blobs, err := storage.NewLocalStore(cfg.UploadDir)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	policy := upload.NewPolicy(cfg.UploadMax, cfg.UploadExt)

	users := repository.NewUserRepo(db)
	claims := repository.NewClaimRepo(db)
	activity := repository.NewActivityRepo(db)

	dir := service.NewDirectory(users, cfg.BcryptCost)
	engine := service.NewEngine(claims, activity)

	if err := dir.SeedDefaults(context.Background(), cfg.SeedPassword); err != nil {
		log.Fatalf("seed: %v", err)
	}

	go func() {
		if err := queue.StartDecisionConsumer(); err != nil {
			log.Printf("decision consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	router.Register(e, router.Deps{
		Health:      handler.NewHealthHandler(db),
		Auth:        handler.NewAuthHandler(dir, cfg),
		Claims:      handler.NewClaimHandler(engine, dir, policy, blobs),
		Coordinator: handler.NewCoordinatorHandler(engine, rdb, cacheCfg),
		Manager:     handler.NewManagerHandler(engine, rdb, cacheCfg),
		HR:          handler.NewHRHandler(dir, engine),
		JWTSecret:   cfg.JWTSecret,
		Redis:       rdb,
		CacheCfg:    cacheCfg,
		RateCfg:     rateCfg,
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
