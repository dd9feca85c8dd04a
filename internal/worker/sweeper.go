// Package worker contains the background maintenance loops.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/nopfarsi/sizpay-gateway/internal/application"
	"github.com/nopfarsi/sizpay-gateway/internal/domain"
)

// Sweeper clears authorization tokens from pending orders whose gateway
// session has aged out. A pending order may only carry a token while a
// session is plausibly live; once the session is stale the token is removed
// so a late or replayed callback for it fails closed, and the buyer can
// start a fresh payment attempt.
type Sweeper struct {
	orders    application.OrderStore
	tokenTTL  time.Duration
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

func NewSweeper(
	orders application.OrderStore,
	tokenTTL time.Duration,
	interval time.Duration,
	batchSize int,
	logger *slog.Logger,
) *Sweeper {
	return &Sweeper{
		orders:    orders,
		tokenTTL:  tokenTTL,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger,
	}
}

func (w *Sweeper) Start(ctx context.Context) {
	w.logger.Info("session sweeper started",
		"interval", w.interval,
		"token_ttl", w.tokenTTL)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	if err := w.sweep(ctx); err != nil {
		w.logger.Error("session sweep failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("session sweeper stopping")
			return
		case <-ticker.C:
			if err := w.sweep(ctx); err != nil {
				w.logger.Error("session sweep failed", "error", err)
			}
		}
	}
}

func (w *Sweeper) sweep(ctx context.Context) error {
	stale, err := w.orders.FindStalePending(ctx, w.tokenTTL, w.batchSize)
	if err != nil {
		return err
	}

	if len(stale) == 0 {
		return nil
	}

	var cleared int
	for _, order := range stale {
		if err := w.expireSession(ctx, order.ID); err != nil {
			w.logger.Error("failed to expire payment session",
				"order_id", order.ID,
				"error", err)
			continue
		}
		cleared++
	}

	w.logger.Info("swept stale payment sessions",
		"candidates", len(stale),
		"cleared", cleared)

	return nil
}

func (w *Sweeper) expireSession(ctx context.Context, orderID int64) error {
	return w.orders.WithTx(ctx, func(tx application.OrderStore) error {
		order, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		// Re-check under lock: a callback may have resolved the order
		// between the scan and now.
		if order.IsTerminal() || order.AuthorizationToken == "" {
			return nil
		}
		if time.Since(order.UpdatedAt) < w.tokenTTL {
			return nil
		}

		if err := tx.AppendNote(ctx, domain.NewOrderNote(order.ID, "payment session expired, token cleared")); err != nil {
			return err
		}
		return tx.ClearToken(ctx, order.ID)
	})
}
