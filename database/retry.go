package database

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

const (
	retryInterval = 1 * time.Second
	maxRetries    = 2
)

// WithRetry runs a document-store operation with up to 2 retries at 1-second
// intervals, labeled by project name. Non-idempotent operations go through
// here too: the expected failure mode is the transport, not a partial write.
func WithRetry(ctx context.Context, projectName, operation string, op func(ctx context.Context) error) error {
	attempt := 0

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(retryInterval), maxRetries),
		ctx,
	)

	err := backoff.Retry(func() error {
		attempt++
		if err := op(ctx); err != nil {
			logrus.WithFields(logrus.Fields{
				"project":   projectName,
				"operation": operation,
				"attempt":   attempt,
			}).Warnf("Store operation failed: %v", err)
			return err
		}
		return nil
	}, policy)

	if err != nil {
		logrus.WithFields(logrus.Fields{
			"project":   projectName,
			"operation": operation,
		}).Errorf("Store operation exhausted retries: %v", err)
	}
	return err
}
