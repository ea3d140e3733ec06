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

	"github.com/peerchat/peerchat/internal/chat"
	"github.com/peerchat/peerchat/internal/config"
	"github.com/peerchat/peerchat/internal/db"
	"github.com/peerchat/peerchat/internal/httpapi"
	"github.com/peerchat/peerchat/internal/store/rabbitmq"
	"github.com/peerchat/peerchat/internal/store/redisstore"
)

func main() {
	cfg := config.Load()

	gdb := db.Connect(cfg.DBDSN)
	db.Migrate(gdb)

	presence := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB,
		time.Duration(cfg.PresenceTTLSeconds)*time.Second)
	defer presence.Close()

	// a missing broker only disables delivery receipts, not the API itself
	var events chat.EventPublisher
	if pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue); err != nil {
		log.Printf("rabbit publisher unavailable, delivery events disabled: %v", err)
	} else {
		defer pub.Close()
		events = pub
	}

	r := httpapi.NewRouter(gdb, cfg, presence, events)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("api listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("api shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
