package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	app "github.com/cassiomorais/purchases/internal/application/purchase"
	"github.com/cassiomorais/purchases/internal/bootstrap"
	"github.com/cassiomorais/purchases/internal/infrastructure/config"
	infraRedis "github.com/cassiomorais/purchases/internal/infrastructure/redis"
	"github.com/cassiomorais/purchases/internal/repository/postgres"
	"github.com/cassiomorais/purchases/pkg/retry"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	boot, err := bootstrap.New(ctx, "purchases-worker", "purchases_worker")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer boot.Close()

	cfg := boot.Config

	postbackRepo := postgres.NewPostbackRepository(boot.Pool)
	producer := infraRedis.NewOutcomeProducer(boot.Redis)

	consumer := infraRedis.NewStreamConsumer(
		boot.Redis,
		infraRedis.OutcomeStream,
		cfg.Postback.ConsumerGroup,
		cfg.InstanceID,
		cfg.Postback.BatchSize,
		cfg.Postback.BlockDuration,
	)
	if err := consumer.CreateGroup(ctx); err != nil {
		boot.Logger.Error().Err(err).Msg("Failed to create consumer group (may already exist)")
	}

	delivery := &postbackDelivery{
		cfg:      cfg.Postback,
		client:   &http.Client{Timeout: cfg.Postback.HTTPTimeout},
		repo:     postbackRepo,
		producer: producer,
		logger:   boot.Logger,
		boot:     boot,
	}

	boot.Logger.Info().
		Str("stream", infraRedis.OutcomeStream).
		Str("group", cfg.Postback.ConsumerGroup).
		Str("consumer", cfg.InstanceID).
		Msg("Worker started, listening for outcomes...")

	// Signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return runOutcomeConsumer(gCtx, boot.Logger, consumer, delivery)
	})

	g.Go(func() error {
		select {
		case <-gCtx.Done():
			return gCtx.Err()
		case <-quit:
			boot.Logger.Info().Msg("Shutting down worker...")
			cancel()
			return nil
		}
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		boot.Logger.Error().Err(err).Msg("Worker error")
	}
	boot.Logger.Info().Msg("Worker exited")
}

func runOutcomeConsumer(
	ctx context.Context,
	logger zerolog.Logger,
	consumer *infraRedis.StreamConsumer,
	delivery *postbackDelivery,
) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		streams, err := consumer.Read(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to read from stream")
			time.Sleep(1 * time.Second)
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				payload, _ := msg.Values["payload"].(string)

				var event app.OutcomeEvent
				if err := json.Unmarshal([]byte(payload), &event); err != nil {
					logger.Error().Str("message_id", msg.ID).Msg("Invalid outcome payload in stream message")
					consumer.Ack(ctx, msg.ID)
					continue
				}

				if event.PostbackURL == "" {
					// Merchant did not register a postback target.
					consumer.Ack(ctx, msg.ID)
					continue
				}

				lock := infraRedis.NewDistributedLock(delivery.boot.Redis, "postback:"+event.SessionID, time.Minute)
				acquired, err := lock.Acquire(ctx)
				if err != nil || !acquired {
					logger.Warn().Str("session_id", event.SessionID).Msg("Could not acquire lock, skipping")
					continue
				}

				delivery.deliver(ctx, event)

				lock.Release(ctx)
				consumer.Ack(ctx, msg.ID)
			}
		}
	}
}

type postbackDelivery struct {
	cfg      config.PostbackConfig
	client   *http.Client
	repo     *postgres.PostbackRepository
	producer *infraRedis.OutcomeProducer
	logger   zerolog.Logger
	boot     *bootstrap.App
}

// deliver POSTs the outcome to the merchant's postback url with evenly
// spaced redelivery. Every attempt lands in the attempts log; an exhausted
// delivery goes to the DLQ.
func (d *postbackDelivery) deliver(ctx context.Context, event app.OutcomeEvent) {
	body, err := json.Marshal(map[string]string{
		"sessionId":  event.SessionID,
		"state":      event.State,
		"resolution": event.Resolution,
		"reason":     event.Reason,
		"occurredAt": event.OccurredAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		d.logger.Error().Err(err).Str("session_id", event.SessionID).Msg("Failed to marshal postback body")
		return
	}

	attempt := 0
	start := time.Now()
	err = retry.DoFixed(ctx, uint(d.cfg.MaxAttempts), d.cfg.RetryDelay, func() error {
		attempt++
		statusCode, attemptErr := d.post(ctx, event.PostbackURL, body)

		record := &postgres.PostbackAttempt{
			SessionID:   event.SessionID,
			PostbackURL: event.PostbackURL,
			Attempt:     attempt,
			StatusCode:  statusCode,
			Success:     attemptErr == nil,
		}
		if attemptErr != nil {
			record.LastError = attemptErr.Error()
		}
		if logErr := d.repo.RecordAttempt(ctx, record); logErr != nil {
			d.logger.Error().Err(logErr).Str("session_id", event.SessionID).Msg("Failed to record postback attempt")
		}

		return attemptErr
	})

	duration := time.Since(start).Seconds()
	if err != nil {
		d.logger.Error().Err(err).
			Str("session_id", event.SessionID).
			Int("attempts", attempt).
			Msg("Postback delivery exhausted, sending to DLQ")
		d.boot.Metrics.PostbackDeliveries.WithLabelValues("failed").Inc()
		d.boot.Metrics.PostbackDuration.WithLabelValues("failed").Observe(duration)

		raw, _ := json.Marshal(event)
		if dlqErr := d.producer.PublishToDLQ(ctx, event.SessionID, err.Error(), string(raw)); dlqErr != nil {
			d.logger.Error().Err(dlqErr).Str("session_id", event.SessionID).Msg("Failed to publish to DLQ")
		}
		return
	}

	d.logger.Info().
		Str("session_id", event.SessionID).
		Int("attempts", attempt).
		Msg("Postback delivered")
	d.boot.Metrics.PostbackDeliveries.WithLabelValues("delivered").Inc()
	d.boot.Metrics.PostbackDuration.WithLabelValues("delivered").Observe(duration)
}

func (d *postbackDelivery) post(ctx context.Context, url string, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build postback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("postback request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("postback rejected with status %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}
