package utils

import (
	"context"
	"time"
)

// StartBlacklistSweeper periodically drops expired entries from the in-memory
// token blacklist. Entries are otherwise only purged when looked up.
func StartBlacklistSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if n := sweepBlacklist(now); n > 0 {
					Sugar.Debugf("blacklist sweeper removed %d expired tokens", n)
				}
			}
		}
	}()
}

func sweepBlacklist(now time.Time) int {
	blacklistMu.Lock()
	defer blacklistMu.Unlock()
	removed := 0
	for id, exp := range blacklist {
		if now.After(exp) {
			delete(blacklist, id)
			removed++
		}
	}
	return removed
}
