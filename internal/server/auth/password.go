package auth

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// maxPasswordBytes is the bcrypt input limit. Longer inputs are rejected
// rather than silently truncated.
const maxPasswordBytes = 72

// PasswordHasher hashes and verifies passwords. Implementations are safe for
// concurrent use.
type PasswordHasher interface {
	Hash(ctx context.Context, plain string) (string, error)
	Verify(ctx context.Context, plain, hash string) (bool, error)
}

// BcryptHasher is a PasswordHasher backed by bcrypt. At most `concurrency`
// hash or verify computations run at a time; callers beyond that wait for a
// slot or for their context to end.
type BcryptHasher struct {
	cost int
	sem  *semaphore.Weighted
}

func NewBcryptHasher(cost, concurrency int) (*BcryptHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("%w: bcrypt cost %d out of range [%d, %d]",
			common.ErrorValidation, cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	if concurrency <= 0 {
		return nil, fmt.Errorf("%w: hash concurrency must be positive", common.ErrorValidation)
	}
	return &BcryptHasher{cost: cost, sem: semaphore.NewWeighted(int64(concurrency))}, nil
}

// Cost returns the configured work factor.
func (h *BcryptHasher) Cost() int {
	return h.cost
}

func (h *BcryptHasher) Hash(ctx context.Context, plain string) (string, error) {
	if err := checkPassword(plain); err != nil {
		return "", err
	}

	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(b), nil
}

// Verify reports whether plain matches hash. A malformed hash is a mismatch.
// The error is non-nil only when ctx ends before a worker slot is free.
func (h *BcryptHasher) Verify(ctx context.Context, plain, hash string) (bool, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer h.sem.Release(1)

	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil, nil
}

func checkPassword(plain string) error {
	switch {
	case plain == "":
		return fmt.Errorf("%w: password must not be empty", common.ErrorValidation)
	case len(plain) > maxPasswordBytes:
		return fmt.Errorf("%w: password must be at most %d bytes", common.ErrorValidation, maxPasswordBytes)
	}
	return nil
}
