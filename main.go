package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/yeremiapane/restaurant-access/config"
	"github.com/yeremiapane/restaurant-access/realtime"
	"github.com/yeremiapane/restaurant-access/router"
	"github.com/yeremiapane/restaurant-access/services"
	"github.com/yeremiapane/restaurant-access/telemetry"
	"github.com/yeremiapane/restaurant-access/utils"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const serviceName = "restaurant-access"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or error loading: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	utils.InitLogger(cfg.LogLevel)
	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	shutdownTracing := telemetry.Setup(serviceName, cfg.OTLPEndpoint, cfg.OTLPInsecure)

	db, err := config.InitDB(cfg)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}

	hub := realtime.NewHub()

	accessCodes := services.NewAccessCodeService(db)
	accessCodes.SingleUse = cfg.AccessCodeSingleUse
	accessCodes.Events = hub

	waiters := services.NewWaiterAuthService(db)

	ctx := context.Background()
	if err := accessCodes.EnsureSchema(ctx); err != nil {
		utils.ErrorLogger.Fatalf("Failed to migrate access codes: %v", err)
	}
	if err := waiters.EnsureSchema(ctx); err != nil {
		utils.ErrorLogger.Fatalf("Failed to migrate waiters: %v", err)
	}

	r := router.SetupRouter(cfg, router.Deps{
		AccessCodes: accessCodes,
		Waiters:     waiters,
		Hub:         hub,
	})
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		utils.ErrorLogger.Printf("Error setting trusted proxies: %v", err)
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelhttp.NewHandler(r, serviceName),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		utils.InfoLogger.Printf("Listening on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.ErrorLogger.Fatalf("Server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		utils.ErrorLogger.Printf("Shutdown error: %v", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		utils.ErrorLogger.Printf("Tracing shutdown error: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	utils.InfoLogger.Println("Server stopped")
}
