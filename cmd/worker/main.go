package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/peerchat/peerchat/internal/chat"
	"github.com/peerchat/peerchat/internal/config"
	"github.com/peerchat/peerchat/internal/db"
	"github.com/peerchat/peerchat/internal/store/redisstore"
	amqp "github.com/rabbitmq/amqp091-go"
)

// transient receipt failures cycle through the retry queue this many
// times before dead-lettering
const maxAttempts = 3

func workerConcurrency() int {
	v := os.Getenv("WORKER_CONCURRENCY")
	if v == "" {
		return 2
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 2
	}
	if n > 50 {
		return 50
	}
	return n
}

// The delivery worker consumes message-sent events and marks messages
// delivered when the receiver is currently online. Offline receivers keep
// their flags untouched until they acknowledge over the API.
func main() {
	cfg := config.Load()

	gdb := db.Connect(cfg.DBDSN)

	repo := chat.NewRepo(gdb)

	presence := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB,
		time.Duration(cfg.PresenceTTLSeconds)*time.Second)
	defer presence.Close()

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("rabbit dial: %v", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("rabbit channel: %v", err)
	}
	defer ch.Close()

	// args must match the publisher's declarations
	retryQ := cfg.RabbitQueue + ".retry"
	_, err = ch.QueueDeclare(cfg.RabbitQueue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": cfg.RabbitQueue + ".dlq",
	})
	if err != nil {
		log.Fatalf("queue declare: %v", err)
	}
	_, err = ch.QueueDeclare(retryQ, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": cfg.RabbitQueue,
		"x-message-ttl":             int32(30000),
	})
	if err != nil {
		log.Fatalf("retry queue declare: %v", err)
	}

	concurrency := workerConcurrency()

	if err := ch.Qos(concurrency, 0, false); err != nil {
		log.Fatalf("qos: %v", err)
	}

	msgs, err := ch.Consume(cfg.RabbitQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("delivery worker started, queue=%s concurrency=%d", cfg.RabbitQueue, concurrency)

	// worker pool
	events := make(chan amqp.Delivery, concurrency*2)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range events {
				var ev chat.MessageSentEvent
				if err := json.Unmarshal(d.Body, &ev); err != nil || ev.MessageID == 0 {
					log.Printf("worker=%d bad event: %v", workerID, err)
					_ = d.Nack(false, false)
					continue
				}

				if err := handleMessageSent(ctx, repo, presence, ev); err != nil {
					attempt := retryCount(d) + 1
					if attempt >= maxAttempts {
						log.Printf("worker=%d message %d receipt failed attempt=%d, dead-lettering err=%v", workerID, ev.MessageID, attempt, err)
						_ = d.Nack(false, false)
						continue
					}
					log.Printf("worker=%d message %d receipt failed attempt=%d, retrying err=%v", workerID, ev.MessageID, attempt, err)
					if pubErr := publishRetry(ctx, ch, retryQ, d, attempt); pubErr != nil {
						log.Printf("worker=%d retry publish failed message=%d err=%v", workerID, ev.MessageID, pubErr)
						_ = d.Nack(false, false)
						continue
					}
					_ = d.Ack(false)
					continue
				}

				if err := d.Ack(false); err != nil {
					log.Printf("worker=%d ack failed message=%d err=%v", workerID, ev.MessageID, err)
				}
			}
		}(i)
	}

	// dispatcher
	for {
		select {
		case <-ctx.Done():
			log.Printf("delivery worker shutting down")
			close(events)
			wg.Wait()
			return

		case d, ok := <-msgs:
			if !ok {
				// broker went away; exit so the orchestrator restarts us
				log.Printf("delivery channel closed, exiting")
				close(events)
				wg.Wait()
				os.Exit(1)
			}
			events <- d
		}
	}
}

// retryCount reads how many times this delivery has already been through
// the retry queue.
func retryCount(d amqp.Delivery) int {
	if d.Headers == nil {
		return 0
	}
	switch v := d.Headers["x-retry-count"].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return 0
}

func publishRetry(ctx context.Context, ch *amqp.Channel, queue string, d amqp.Delivery, attempt int) error {
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return ch.PublishWithContext(cctx,
		"",
		queue,
		false,
		false,
		amqp.Publishing{
			ContentType:  d.ContentType,
			DeliveryMode: amqp.Persistent,
			Body:         d.Body,
			Timestamp:    time.Now(),
			Headers:      amqp.Table{"x-retry-count": int32(attempt)},
		},
	)
}

func handleMessageSent(ctx context.Context, repo *chat.Repo, presence *redisstore.Store, ev chat.MessageSentEvent) error {
	online, err := presence.IsOnline(ctx, ev.ReceiverID)
	if err != nil {
		return err
	}
	if !online {
		// receiver acknowledges over the API later
		return nil
	}
	return repo.MarkMessageDelivered(ctx, ev.MessageID)
}
