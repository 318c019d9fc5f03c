package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
)

// callStore runs one store operation under its own deadline and folds
// unexpected failures into ErrorTimeout or ErrorUnavailable. Store sentinels
// pass through unchanged.
func callStore[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	v, err := fn(ctx)
	return v, storeError(err)
}

func storeError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, common.ErrorNotFound),
		errors.Is(err, common.ErrorConflict),
		errors.Is(err, common.ErrorValidation),
		errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", common.ErrorTimeout, err)
	default:
		return fmt.Errorf("%w: %v", common.ErrorUnavailable, err)
	}
}

// hashError keeps validation and context errors and hides anything else
// behind ErrorInternal.
func hashError(err error) error {
	switch {
	case errors.Is(err, common.ErrorValidation),
		errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: waiting for hash worker", common.ErrorTimeout)
	default:
		return fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
}
