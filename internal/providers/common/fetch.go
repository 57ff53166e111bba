package common

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"moviestream/searchservice/internal/metrics"
	"moviestream/searchservice/internal/retry"
)

const maxPayloadBytes = 8 * 1024 * 1024

// GetJSON fetches the URL and decodes the body into out, retrying transient
// failures. A 404 maps to retry.ErrNotFound and is never retried. Malformed
// payloads are logged with a truncated sample so upstream format drift shows
// up in the logs instead of a bare unmarshal error.
func GetJSON(ctx context.Context, client *http.Client, log *slog.Logger, provider, userAgent, url string, out any) error {
	start := time.Now()
	err := retry.Do(ctx, retry.DefaultConfig(), func() error {
		return getOnce(ctx, client, log, provider, userAgent, url, out)
	})

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.ProviderRequestsTotal.WithLabelValues(provider, status).Inc()
	metrics.ProviderRequestDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
	return err
}

func getOnce(ctx context.Context, client *http.Client, log *slog.Logger, provider, userAgent, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return retry.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("%s: %w", provider, &retry.StatusError{
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(body)),
		})
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, out); err != nil {
		log.Warn("malformed provider payload",
			"provider", provider,
			"url", url,
			"sample", truncate(payload, 512),
			"error", err)
		return fmt.Errorf("%s: unexpected payload: %w", provider, err)
	}
	return nil
}

func truncate(raw []byte, max int) string {
	if len(raw) <= max {
		return string(raw)
	}
	return string(raw[:max]) + "..."
}
