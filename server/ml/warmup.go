package ml

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// warmUp polls a cold backend until it looks ready or the wall-clock
// budget runs out. Three gates are checked in order on every pass:
// basic reachability, a healthy /health, and a synthetic predict call
// that tells us whether the model is actually loaded. The backend
// answers the deliberately invalid poke with 400/422 once the model is
// up, and 502 while it is still waking.
//
// Warm-up is never fatal: expiry logs and returns, and the upload loop
// takes its chances.
func (c *Client) warmUp(ctx context.Context) bool {
	c.logger.Info("Inference service looks cold, starting warm-up",
		zap.Duration("budget", c.cfg.WarmupBudget))

	deadline := time.Now().Add(c.cfg.WarmupBudget)
	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return false
		}

		if !c.isReachable(ctx) {
			if err := c.sleep(ctx, c.cfg.WarmupPollInterval); err != nil {
				return false
			}
			continue
		}

		if _, err := c.Health(ctx); err != nil {
			if err := c.sleep(ctx, c.cfg.WarmupPollInterval); err != nil {
				return false
			}
			continue
		}

		status, err := c.pokeModel(ctx)
		if err != nil {
			// Reachability and health both passed; proceed
			// optimistically even though the poke could not confirm.
			c.logger.Info("Warm-up poke inconclusive, proceeding", zap.Error(err))
			return true
		}

		switch status {
		case http.StatusOK, http.StatusBadRequest, http.StatusUnprocessableEntity:
			c.logger.Info("Inference model is loaded", zap.Int("status", status))
			return true
		case http.StatusBadGateway:
			// Still cold, keep polling.
			if err := c.sleep(ctx, c.cfg.WarmupPollInterval); err != nil {
				return false
			}
		default:
			c.logger.Info("Unexpected warm-up status, proceeding",
				zap.Int("status", status))
			return true
		}
	}

	c.logger.Warn("Warm-up budget expired, proceeding anyway",
		zap.Duration("budget", c.cfg.WarmupBudget))
	return false
}

// pokeModel sends a minimal, knowingly invalid predict request. Only
// the status code matters; the body is discarded.
func (c *Client) pokeModel(ctx context.Context) (int, error) {
	body, contentType, err := encodeMultipart([]byte{0xFF}, "warmup.jpg")
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.TestTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, classifyTransportError("warm-up poke", err)
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}
