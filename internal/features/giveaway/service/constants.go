package service

import (
	"fmt"
	"time"
)

const (
	DefaultLockTTL           = 30 * time.Second
	DefaultLockWaitTimeout   = 5 * time.Second
	DefaultLockRetryInterval = 100 * time.Millisecond
	DefaultVerifyCacheTTL    = 10 * time.Minute
)

func lockKey(giveawayID string) string {
	return fmt.Sprintf("lock:giveaway:%s", giveawayID)
}

func verifyCacheKey(giveawayID string, version int64) string {
	return fmt.Sprintf("giveaway_verify:%s:%d", giveawayID, version)
}
