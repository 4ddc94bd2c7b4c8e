package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/arielnardon86/bonito-amor-frontend-sub000/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// rateEntry tracks request counts per key within a fixed window.
type rateEntry struct {
	count     int
	windowEnd time.Time
}

type rateLimiter struct {
	mu        sync.Mutex
	entries   map[string]*rateEntry
	limit     int
	window    time.Duration
	nextPurge time.Time
	now       func() time.Time
}

const purgeInterval = 5 * time.Minute

// RateLimiter limits requests per operator (per IP before authentication).
// Expired entries are purged inline every few minutes.
func RateLimiter(limit int, window time.Duration) gin.HandlerFunc {
	rl := &rateLimiter{
		entries: make(map[string]*rateEntry),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
	return rl.handle
}

func (rl *rateLimiter) handle(c *gin.Context) {
	key := "ip:" + c.ClientIP()
	if claims := GetClaims(c); claims != nil {
		key = "usr:" + claims.Usuario()
	}

	ok, retry := rl.allow(key)
	if !ok {
		c.Header("Retry-After", strconv.Itoa(int(retry.Seconds())+1))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("Demasiadas solicitudes. Intente nuevamente en un momento."))
		return
	}
	c.Next()
}

func (rl *rateLimiter) allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.After(rl.nextPurge) {
		rl.purge(now)
		rl.nextPurge = now.Add(purgeInterval)
	}

	entry, exists := rl.entries[key]
	if !exists || now.After(entry.windowEnd) {
		entry = &rateEntry{windowEnd: now.Add(rl.window)}
		rl.entries[key] = entry
	}
	entry.count++
	if entry.count > rl.limit {
		return false, entry.windowEnd.Sub(now)
	}
	return true, 0
}

func (rl *rateLimiter) purge(now time.Time) {
	purged := 0
	for key, entry := range rl.entries {
		if now.After(entry.windowEnd) {
			delete(rl.entries, key)
			purged++
		}
	}
	if purged > 0 {
		log.Debug().
			Int("entries_purged", purged).
			Int("entries_remaining", len(rl.entries)).
			Msg("rate limiter purged")
	}
}
