package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cartly/config"
	"cartly/internal/database"
	"cartly/internal/router"
	"cartly/internal/worker"
	"cartly/pkg/gateway"
	"cartly/pkg/orders"
)

func main() {
	cfg := config.Load()
	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	var orderProvider orders.Provider
	if cfg.Orders.BaseURL != "" {
		orderProvider = orders.NewClient(cfg.Orders.BaseURL, cfg.Orders.Timeout)
	} else {
		log.Printf("ORDERS_BASE_URL not set, using static order provider")
		orderProvider = orders.NewStaticProvider()
	}

	engine, services := router.Setup(cfg, db, &gateway.StubProvider{}, orderProvider)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	go worker.NewExpirySweeper(services.Payments, cfg.Payment.SweepInterval).Run(workerCtx)
	go worker.NewWebhookRetrier(services.Webhooks, cfg.Webhook.RetryInterval).Run(workerCtx)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		log.Printf("server listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")
	stopWorkers()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("server shutdown:", err)
	}
	fmt.Println("server stopped")
}
