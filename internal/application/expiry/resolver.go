package expiry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultTimeout bounds a single estimation call.
const DefaultTimeout = 20 * time.Second

// ErrEstimationUnavailable never leaves this package through Resolve; it is only returned by
// Estimate so callers that want the reason can have it.
var ErrEstimationUnavailable = errors.New("expiry estimation unavailable")

// Resolver turns an image reference into an expiry date using an optional external estimator.
type Resolver struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
	Client   *http.Client
	Now      func() time.Time
}

type estimateRequest struct {
	ImageURL string `json:"image_url"`
}

type estimateResponse struct {
	EstimatedDays json.RawMessage `json:"estimated_days"`
}

// Configured reports whether an estimation endpoint is set.
func (r *Resolver) Configured() bool {
	return r != nil && r.Endpoint != ""
}

// Resolve returns explicit unchanged when given. Otherwise it asks the estimator, and any
// failure (timeout included) degrades to nil.
func (r *Resolver) Resolve(ctx context.Context, imageURL string, explicit *time.Time) *time.Time {
	if explicit != nil {
		return explicit
	}
	if !r.Configured() {
		return nil
	}
	d, err := r.Estimate(ctx, imageURL)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("image_url", imageURL).Msg("expiry: estimation failed, listing will have no expiry date")
		return nil
	}
	return d
}

// Estimate performs one bounded call to the estimation endpoint. No retries.
func (r *Resolver) Estimate(ctx context.Context, imageURL string) (*time.Time, error) {
	if !r.Configured() {
		return nil, fmt.Errorf("%w: no endpoint configured", ErrEstimationUnavailable)
	}
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, _ := json.Marshal(estimateRequest{ImageURL: imageURL})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEstimationUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.APIKey)
	}

	resp, err := r.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request: %v", ErrEstimationUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrEstimationUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d body: %s", ErrEstimationUnavailable, resp.StatusCode, string(respBody))
	}

	var payload estimateResponse
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrEstimationUnavailable, err)
	}
	days, ok := positiveInt(payload.EstimatedDays)
	if !ok {
		return nil, fmt.Errorf("%w: no estimate in response", ErrEstimationUnavailable)
	}

	start := today(r.now())
	d := start.AddDate(0, 0, days)
	if !d.After(start) {
		return nil, fmt.Errorf("%w: estimate of %d days is out of range", ErrEstimationUnavailable, days)
	}
	return &d, nil
}

func (r *Resolver) client() *http.Client {
	if r.Client != nil {
		return r.Client
	}
	return http.DefaultClient
}

func (r *Resolver) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// MaxEstimatedDays caps estimated_days; anything above is treated as a bad answer.
const MaxEstimatedDays = 36500

// positiveInt accepts only JSON integers in 1..MaxEstimatedDays; 2.5, "5", null and absent are rejected.
func positiveInt(raw json.RawMessage) (int, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] == '"' {
		return 0, false
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return 0, false
	}
	i, err := n.Int64()
	if err != nil || i <= 0 || i > MaxEstimatedDays {
		return 0, false
	}
	return int(i), true
}

func today(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
