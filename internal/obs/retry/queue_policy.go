package retry

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// QueueDeliveryPolicy governs writes to the job registry and the probe-request
// topic: 3 attempts with exponential backoff from 2s, then the error surfaces
// to the caller as fatal for that operation.
func QueueDeliveryPolicy(name string, log *zap.Logger) Policy {
	return Policy{
		Name:     name,
		Attempts: 3,
		Backoff:  ExpoJitter{Base: 2 * time.Second, Max: 30 * time.Second, Jitter: 0.2},
		Retryable: func(err error) bool {
			return err != nil && !errors.Is(err, context.Canceled)
		},
		OnAttempt: func(i int, err error) {
			if log != nil {
				log.Warn("queue delivery retry", zap.String("op", name), zap.Int("attempt", i+1), zap.Error(err))
			}
		},
		OnExhaust: func(err error) {
			if log != nil && !errors.Is(err, context.Canceled) {
				log.Error("queue delivery retries exhausted", zap.String("op", name), zap.Error(err))
			}
		},
	}
}
