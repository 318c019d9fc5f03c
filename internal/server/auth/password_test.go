package auth

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestHasher(t *testing.T, concurrency int) *BcryptHasher {
	t.Helper()
	h, err := NewBcryptHasher(bcrypt.MinCost, concurrency)
	require.NoError(t, err)
	return h
}

func TestNewBcryptHasher_Validation(t *testing.T) {
	tests := []struct {
		name        string
		cost        int
		concurrency int
		wantErr     bool
	}{
		{"min cost", bcrypt.MinCost, 1, false},
		{"max cost", bcrypt.MaxCost, 1, false},
		{"below min", bcrypt.MinCost - 1, 1, true},
		{"above max", bcrypt.MaxCost + 1, 1, true},
		{"zero concurrency", bcrypt.DefaultCost, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBcryptHasher(tt.cost, tt.concurrency)
			if tt.wantErr {
				require.ErrorIs(t, err, common.ErrorValidation)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestHashVerify_RoundTrip(t *testing.T) {
	ctx := context.Background()
	h := newTestHasher(t, 2)

	hash, err := h.Hash(ctx, "s3cret!")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret!", hash)

	ok, err := h.Verify(ctx, "s3cret!", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify(ctx, "wrong", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHash_SaltedPerCall(t *testing.T) {
	ctx := context.Background()
	h := newTestHasher(t, 1)

	a, err := h.Hash(ctx, "same")
	require.NoError(t, err)
	b, err := h.Hash(ctx, "same")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestHash_UsesConfiguredCost(t *testing.T) {
	h, err := NewBcryptHasher(bcrypt.MinCost+1, 1)
	require.NoError(t, err)

	hash, err := h.Hash(context.Background(), "pw")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, h.Cost(), cost)
}

func TestHash_RejectsBadPasswords(t *testing.T) {
	h := newTestHasher(t, 1)

	_, err := h.Hash(context.Background(), "")
	require.ErrorIs(t, err, common.ErrorValidation)

	_, err = h.Hash(context.Background(), strings.Repeat("a", 73))
	require.ErrorIs(t, err, common.ErrorValidation)

	_, err = h.Hash(context.Background(), strings.Repeat("a", 72))
	require.NoError(t, err)
}

func TestVerify_MalformedHashIsMismatch(t *testing.T) {
	h := newTestHasher(t, 1)

	ok, err := h.Verify(context.Background(), "pw", "not-a-bcrypt-hash")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerify_WaitsForSlotUntilContextEnds(t *testing.T) {
	h := newTestHasher(t, 1)

	// hold the only slot
	require.NoError(t, h.sem.Acquire(context.Background(), 1))
	defer h.sem.Release(1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	ok, err := h.Verify(ctx, "pw", "$2a$04$abc")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, ok)

	_, err = h.Hash(ctx, "pw")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHash_Concurrent(t *testing.T) {
	ctx := context.Background()
	h := newTestHasher(t, 2)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hash, err := h.Hash(ctx, "pw")
			if err != nil {
				errs <- err
				return
			}
			if ok, _ := h.Verify(ctx, "pw", hash); !ok {
				errs <- assert.AnError
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent hash failed: %v", err)
	}
}
