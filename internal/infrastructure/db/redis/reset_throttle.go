package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultResetWindow is the minimum gap between two reset emails to one account.
const DefaultResetWindow = time.Minute

// ResetThrottle allows one password-reset email per account per window.
// Key format: reset:throttle:<user_id>
type ResetThrottle struct {
	client redis.Cmdable
	window time.Duration
}

func NewResetThrottle(client redis.Cmdable, window time.Duration) *ResetThrottle {
	if window <= 0 {
		window = DefaultResetWindow
	}
	return &ResetThrottle{client: client, window: window}
}

// Allow claims the window for userID. It returns false when a reset email
// already went out inside the current window.
func (t *ResetThrottle) Allow(ctx context.Context, userID int64) (bool, error) {
	ok, err := t.client.SetNX(ctx, t.key(userID), time.Now().Unix(), t.window).Result()
	if err != nil {
		return false, fmt.Errorf("reset throttle: %w", err)
	}
	return ok, nil
}

// Release drops the window for userID so the next request can send again.
func (t *ResetThrottle) Release(ctx context.Context, userID int64) error {
	if err := t.client.Del(ctx, t.key(userID)).Err(); err != nil {
		return fmt.Errorf("reset throttle release: %w", err)
	}
	return nil
}

func (t *ResetThrottle) key(userID int64) string {
	return fmt.Sprintf("reset:throttle:%d", userID)
}
