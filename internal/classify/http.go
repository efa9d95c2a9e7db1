package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/nhartman/ecosort/internal/model"
	"github.com/sethvargo/go-retry"
)

const (
	requestTimeout = 30 * time.Second
	maxRetries     = 3
	retryBase      = 250 * time.Millisecond
)

// HTTPClassifier invokes a model-serving endpoint that accepts raw image
// bytes and responds with a score per class, index-aligned with labels.
// Transient failures (transport errors, 5xx) are retried with fibonacci
// backoff; anything else fails immediately.
type HTTPClassifier struct {
	client *http.Client
	url    string
	labels []string
}

func NewHTTPClassifier(url string, labels []string) *HTTPClassifier {
	return &HTTPClassifier{
		client: &http.Client{Timeout: requestTimeout},
		url:    url,
		labels: labels,
	}
}

type scoreResponse struct {
	Scores []float64 `json:"scores"`
}

func (c *HTTPClassifier) Classify(ctx context.Context, image []byte) (model.Prediction, error) {
	var scores []float64

	backoff := retry.WithMaxRetries(maxRetries, retry.NewFibonacci(retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(image))
		if err != nil {
			return fmt.Errorf("build inference request: %w", err)
		}
		req.Header.Set("Content-Type", "application/octet-stream")

		resp, err := c.client.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("inference request: %w", err))
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return retry.RetryableError(fmt.Errorf("inference service returned status %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("inference service returned status %d", resp.StatusCode)
		}

		var sr scoreResponse
		if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
			return fmt.Errorf("decode inference response: %w", err)
		}
		scores = sr.Scores
		return nil
	})
	if err != nil {
		return model.Prediction{}, err
	}

	if len(scores) != len(c.labels) {
		return model.Prediction{}, fmt.Errorf("inference service returned %d scores, want %d", len(scores), len(c.labels))
	}

	best := 0
	for i, s := range scores {
		if s > scores[best] {
			best = i
		}
	}

	conf := scores[best]
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}

	return model.Prediction{Label: c.labels[best], Confidence: conf}, nil
}
