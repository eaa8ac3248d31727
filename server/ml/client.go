package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/MateoRommel12/pineapple-cv/server/config"
	"github.com/MateoRommel12/pineapple-cv/server/models"
	"github.com/MateoRommel12/pineapple-cv/server/sweetness"
	"go.uber.org/zap"
)

// uploadFieldName is the multipart field the inference service expects.
const uploadFieldName = "file"

// Client talks to the remote detection/classification service. The
// service auto-sleeps when idle and can take tens of seconds to wake,
// so every analysis call runs a connectivity probe, an optional warm-up
// poll, and a bounded retry loop with progressively longer timeouts.
type Client struct {
	cfg        config.InferenceConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// attemptState tracks one retry loop. Discarded when Analyze returns.
type attemptState struct {
	attempt    int
	timeout    time.Duration
	lastStatus int
	lastErr    error
}

func NewClient(cfg config.InferenceConfig, logger *zap.Logger) *Client {
	return &Client{
		cfg: cfg,
		// No client-wide timeout: each attempt carries its own
		// deadline through the request context.
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:       10,
				IdleConnTimeout:    30 * time.Second,
				DisableCompression: true,
			},
		},
		logger: logger,
	}
}

// Name identifies this analysis strategy.
func (c *Client) Name() string { return "backend" }

// Analyze runs one image through the full pipeline: connectivity check,
// quick probe, warm-up if the backend looks cold, then the upload retry
// loop and the sweetness transform. It never returns an error; every
// failure is folded into an outcome with StatusError.
func (c *Client) Analyze(ctx context.Context, req *models.AnalysisRequest) *models.AnalysisOutcome {
	start := time.Now()

	if _, err := c.Health(ctx); err != nil {
		c.logger.Warn("Inference service unreachable, aborting analysis", zap.Error(err))
		return errorOutcome(fmt.Sprintf("Cannot reach the analysis server: %v", err), start)
	}

	if !c.isReachable(ctx) {
		c.warmUp(ctx)
	}

	raw, err := c.upload(ctx, req)
	if err != nil {
		return errorOutcome(err.Error(), start)
	}

	return sweetness.Transform(raw, time.Since(start))
}

// upload posts the image to /predict with up to MaxAttempts tries.
// Attempt k uses timeout min(base + (k-1)*step, ceiling); retryable
// failures sleep min(delay*k, ceiling) before the next try.
func (c *Client) upload(ctx context.Context, req *models.AnalysisRequest) (*models.PredictionResponse, error) {
	body, contentType, err := encodeMultipart(req.ImageData, req.Filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload body: %w", err)
	}

	state := &attemptState{}
	for state.attempt = 1; state.attempt <= c.cfg.MaxAttempts; state.attempt++ {
		state.timeout = attemptTimeout(c.cfg, state.attempt)

		c.logger.Debug("Uploading image for analysis",
			zap.Int("attempt", state.attempt),
			zap.Duration("timeout", state.timeout))

		pred, err := c.predict(ctx, body, contentType, state.timeout)
		if err == nil {
			if state.attempt > 1 {
				c.logger.Info("Analysis upload succeeded after retries",
					zap.Int("attempt", state.attempt))
			}
			return pred, nil
		}

		state.lastErr = err
		var se *ServerError
		if errors.As(err, &se) {
			state.lastStatus = se.Status
		}

		if !retryable(err) {
			return nil, fmt.Errorf("analysis request failed: %w", err)
		}

		if state.attempt < c.cfg.MaxAttempts {
			delay := retryDelay(c.cfg, state.attempt)
			c.logger.Warn("Retryable analysis failure, backing off",
				zap.Int("attempt", state.attempt),
				zap.Duration("delay", delay),
				zap.Error(err))
			if err := c.sleep(ctx, delay); err != nil {
				return nil, fmt.Errorf("analysis cancelled during backoff: %w", err)
			}
		}
	}

	if state.lastStatus != 0 {
		return nil, fmt.Errorf("analysis failed after %d attempts (last status %d): %w",
			c.cfg.MaxAttempts, state.lastStatus, state.lastErr)
	}
	return nil, fmt.Errorf("analysis failed after %d attempts: %w", c.cfg.MaxAttempts, state.lastErr)
}

// predict performs one upload attempt bound to its own deadline.
func (c *Client) predict(ctx context.Context, body []byte, contentType string, timeout time.Duration) (*models.PredictionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create predict request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError("predict", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError("predict", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ServerError{Status: resp.StatusCode, Body: truncateBody(respBody)}
	}

	var pred models.PredictionResponse
	if err := json.Unmarshal(respBody, &pred); err != nil {
		return nil, &ParseError{Err: err}
	}
	return &pred, nil
}

// Health fetches the inference service health payload.
func (c *Client) Health(ctx context.Context) (*models.HealthResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.HealthTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create health request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError("health check", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError("health check", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ServerError{Status: resp.StatusCode, Body: truncateBody(respBody)}
	}

	var health models.HealthResponse
	if err := json.Unmarshal(respBody, &health); err != nil {
		return nil, &ParseError{Err: err}
	}
	return &health, nil
}

// isReachable is the quick probe: any response at all counts as
// connected, transport errors are swallowed and mean "not yet".
func (c *Client) isReachable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.HealthTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

// sleep waits for d or until ctx is cancelled.
func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// attemptTimeout computes the per-attempt upload deadline. Attempts are
// numbered from 1; the result never exceeds the configured ceiling.
func attemptTimeout(cfg config.InferenceConfig, attempt int) time.Duration {
	timeout := cfg.UploadTimeout + time.Duration(attempt-1)*cfg.UploadTimeoutStep
	if timeout > cfg.UploadTimeoutCeiling {
		timeout = cfg.UploadTimeoutCeiling
	}
	return timeout
}

// retryDelay computes the backoff before the attempt after attempt k.
func retryDelay(cfg config.InferenceConfig, attempt int) time.Duration {
	delay := cfg.RetryDelay * time.Duration(attempt)
	if delay > cfg.RetryDelayCeiling {
		delay = cfg.RetryDelayCeiling
	}
	return delay
}

// encodeMultipart builds the upload body with the image under the
// field name the backend expects.
func encodeMultipart(imageData []byte, filename string) ([]byte, string, error) {
	if filename == "" {
		filename = "pineapple.jpg"
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	fileWriter, err := writer.CreateFormFile(uploadFieldName, filename)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := fileWriter.Write(imageData); err != nil {
		return nil, "", fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	return body.Bytes(), writer.FormDataContentType(), nil
}

func truncateBody(body []byte) string {
	const limit = 512
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}

func errorOutcome(message string, start time.Time) *models.AnalysisOutcome {
	return &models.AnalysisOutcome{
		Status:         models.StatusError,
		Message:        message,
		ProcessingTime: time.Since(start).Seconds(),
	}
}
