package provider

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// HealthCheckPrompt asks for a single digit, so a check costs next to
// nothing against an account's quota.
const HealthCheckPrompt = "1+1? One digit answer only"

const (
	healthCheckTimeout = 30 * time.Second
	healthAnswerMax    = 120
)

// HealthCheckWithExecute sends HealthCheckPrompt through exec and reports
// whether the account answered it. Generators implement HealthCheck by
// passing their own Execute.
func HealthCheckWithExecute(ctx context.Context, model string, exec func(context.Context, *Request) (*Response, error)) HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	start := time.Now()
	resp, err := exec(ctx, &Request{
		Prompt:      HealthCheckPrompt,
		Model:       model,
		Temperature: Float32(0),
	})
	status := HealthStatus{
		ResponseTime: time.Since(start),
		CheckedAt:    time.Now(),
	}

	switch {
	case err != nil:
		status.Error = err.Error()
	case resp == nil:
		status.Error = ErrEmptyResponse.Error()
	default:
		if err := checkHealthAnswer(resp.Content); err != nil {
			status.Error = err.Error()
		} else {
			status.Available = true
		}
	}
	return status
}

// checkHealthAnswer accepts "2" as models tend to phrase it: padded, with a
// trailing period, or wrapped in markdown emphasis.
func checkHealthAnswer(content string) error {
	answer := strings.Trim(strings.TrimSpace(content), "*_`.")
	switch {
	case answer == "2":
		return nil
	case answer == "":
		return fmt.Errorf("unexpected answer: %w", ErrEmptyResponse)
	}
	if len(answer) > healthAnswerMax {
		answer = answer[:healthAnswerMax] + "..."
	}
	return fmt.Errorf("unexpected answer: %q", answer)
}
