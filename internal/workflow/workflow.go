// Package workflow provides the durable step primitive the ingestion
// pipeline runs on: at-least-once invocation with persisted checkpoints,
// so a completed step is never re-executed and an interrupted run resumes
// where it left off. Step bodies must be idempotent; the runner may invoke
// a step again if the process dies between executing it and recording it.
package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// StepFunc is an idempotent unit of work returning a serialized result.
type StepFunc func(ctx context.Context) ([]byte, error)

// Runner executes named steps within one logical run. If the step has
// already completed, Run returns the stored result without invoking fn.
type Runner interface {
	Run(ctx context.Context, name string, fn StepFunc) ([]byte, error)
}

// RetryPolicy bounds how transient step failures are retried.
type RetryPolicy struct {
	// MaxAttempts is the total number of invocations per step, including
	// the first.
	MaxAttempts int
	// BaseDelay is the backoff before the first retry; it doubles per
	// attempt.
	BaseDelay time.Duration
}

// DefaultRetryPolicy retries transient failures a few times with short
// exponential backoff.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 4,
	BaseDelay:   500 * time.Millisecond,
}

func (p RetryPolicy) sanitized() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultRetryPolicy.MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultRetryPolicy.BaseDelay
	}
	return p
}

// Step runs a typed step through r, JSON-encoding the result into the
// checkpoint. On resume the stored result is decoded and returned without
// re-executing fn.
func Step[T any](ctx context.Context, r Runner, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	raw, err := r.Run(ctx, name, func(ctx context.Context) ([]byte, error) {
		v, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal result of step %s: %w", name, err)
		}
		return data, nil
	})
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode checkpoint of step %s: %w", name, err)
	}
	return out, nil
}

// Do runs a step whose only result is its side effect.
func Do(ctx context.Context, r Runner, name string, fn func(ctx context.Context) error) error {
	_, err := Step(ctx, r, name, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
