package locks

import (
	"context"
	"testing"
	"time"
)

func TestLocalManagerMutualExclusion(t *testing.T) {
	m := NewLocalManager()
	ctx := context.Background()

	release, err := m.Acquire(ctx, "settle:abc", time.Minute)
	if err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}

	if _, err := m.Acquire(ctx, "settle:abc", time.Minute); err != ErrHeld {
		t.Errorf("got %v, want ErrHeld", err)
	}

	// A different key is independent.
	otherRelease, err := m.Acquire(ctx, "settle:def", time.Minute)
	if err != nil {
		t.Fatalf("independent key acquire failed: %v", err)
	}
	otherRelease()

	release()
	release2, err := m.Acquire(ctx, "settle:abc", time.Minute)
	if err != nil {
		t.Errorf("acquire after release failed: %v", err)
	}
	release2()
}

func TestLocalManagerReleaseIdempotent(t *testing.T) {
	m := NewLocalManager()
	ctx := context.Background()

	release, err := m.Acquire(ctx, "k", time.Minute)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	holder2, err := func() (func(), error) {
		release()
		return m.Acquire(ctx, "k", time.Minute)
	}()
	if err != nil {
		t.Fatalf("reacquire failed: %v", err)
	}

	// Calling the first release again must not free the second holder's lock.
	release()
	if _, err := m.Acquire(ctx, "k", time.Minute); err != ErrHeld {
		t.Errorf("got %v, want ErrHeld", err)
	}
	holder2()
}
