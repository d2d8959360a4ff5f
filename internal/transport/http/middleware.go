package http

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"quizify-service/internal/app"
	"quizify-service/internal/domain"
	"quizify-service/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const principalKey = "principal"

// TokenVerifier turns a bearer token into the caller's principal.
type TokenVerifier interface {
	Verify(raw string) (app.Principal, error)
}

// Authenticate requires a valid bearer token and stores the resulting principal on the context.
// Websocket handshakes may pass the token as a query parameter since browsers cannot set headers.
func Authenticate(tokens TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" && websocket.IsWebSocketUpgrade(c.Request) {
			raw = c.Query("token")
		}
		if raw == "" {
			writeError(c, domain.ErrUnauthenticated, false)
			return
		}
		principal, err := tokens.Verify(raw)
		if err != nil {
			writeError(c, domain.ErrInvalidToken, false)
			return
		}
		c.Set(principalKey, principal)
		c.Next()
	}
}

// RequireRole lets the request through only when the principal holds one of roles.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := principalFrom(c)
		if !ok {
			writeError(c, domain.ErrUnauthenticated, false)
			return
		}
		if !principal.HasRole(roles...) {
			writeError(c, domain.ErrRoleRequired, false)
			return
		}
		c.Next()
	}
}

func principalFrom(c *gin.Context) (app.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return app.Principal{}, false
	}
	p, ok := v.(app.Principal)
	return p, ok
}

func bearerToken(header string) string {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// MetricsMiddleware collects HTTP request metrics
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method

		metrics.RequestInProgress.WithLabelValues(method, path).Inc()
		defer metrics.RequestInProgress.WithLabelValues(method, path).Dec()
		startTime := time.Now()

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		metrics.RequestCounter.WithLabelValues(status, method, path).Inc()
		metrics.RequestDuration.WithLabelValues(status, method, path).Observe(time.Since(startTime).Seconds())
	}
}

// RateLimiter is a per-client token bucket refilled once per interval.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int // tokens added per interval
	burst    int // bucket capacity
	interval time.Duration
	now      func() time.Time
	swept    time.Time
}

type visitor struct {
	tokens      int
	lastUpdated time.Time
}

func NewRateLimiter(rate, burst int) *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		burst:    burst,
		interval: time.Minute,
		now:      time.Now,
	}
}

// Allow takes one token from key's bucket.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.swept) >= rl.interval {
		rl.sweep(now)
	}
	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{tokens: rl.burst, lastUpdated: now}
		rl.visitors[key] = v
	}

	if refill := int(now.Sub(v.lastUpdated) / rl.interval); refill > 0 {
		v.tokens = min(rl.burst, v.tokens+refill*rl.rate)
		v.lastUpdated = v.lastUpdated.Add(time.Duration(refill) * rl.interval)
	}

	if v.tokens > 0 {
		v.tokens--
		return true
	}
	return false
}

// sweep drops buckets that have refilled to capacity and sat idle for over an interval.
// A dropped client starts again from a full bucket, which is the state it was in.
func (rl *RateLimiter) sweep(now time.Time) {
	rl.swept = now
	for key, v := range rl.visitors {
		idle := now.Sub(v.lastUpdated)
		if idle <= rl.interval {
			continue
		}
		if v.tokens+int(idle/rl.interval)*rl.rate >= rl.burst {
			delete(rl.visitors, key)
		}
	}
}

func RateLimiterMiddleware(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			metrics.RateLimiterRejections.Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorBody{
				Message: "Too many requests. Please try again later.",
				Kind:    domain.KindValidation,
			})
			return
		}
		c.Next()
	}
}
