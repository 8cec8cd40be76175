package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	cg "mc.forecast/api/coingecko"
	"mc.forecast/config"
	r "mc.forecast/repos"
	s "mc.forecast/service"
)

func main() {
	// initialize context and signal handler, listen for interrupt and term signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// .env, optional yaml file, then environment
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	client := cg.GetClient(cfg.MarketData)

	sc := &s.ServiceContext{
		Context:    ctx,
		MarketData: &client,
		Settings:   cfg,
		Metrics:    s.NewMetrics(),
	}

	// postgres is optional, without it forecasts fetch history on every request
	if cfg.Database.URL != "" {
		pg, err := r.GetPostgresConnection(ctx, cfg.Database)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer pg.Close()

		if err := pg.Migrate(ctx); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
		sc.Store = pg
	} else {
		log.Println("No database configured, runs will not be recorded")
	}

	// the scheduler only makes sense with somewhere to put the history
	var scheduler *s.Scheduler
	if sc.Store != nil && len(cfg.Sync.Coins) > 0 {
		scheduler = s.NewScheduler(sc, cfg.Sync.Coins)
		if err := scheduler.Register(cfg.Sync.Cron); err != nil {
			log.Fatalf("Failed to register sync: %v", err)
		}
		scheduler.Start()
	}

	// get http server, makes all of the endpoints and routes
	server := s.GetHttpServer(sc)

	go func() {
		log.Printf("Starting forecast server on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// will wait here until the context is closed (ie, ctrl+C)
	<-ctx.Done()
	log.Println("Received shutdown signal, shutting down gracefully...")

	if scheduler != nil {
		scheduler.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped successfully")
}
