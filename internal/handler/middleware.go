package handler

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"tablero/internal/model"
	"tablero/internal/session"
)

const (
	requestIDKey    = "request_id"
	requestIDHeader = "X-Request-ID"
	sessionKey      = "session"
	cookieName      = "tablero_session"
)

// RequestLogger tags every request with an id and logs its outcome.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := uuid.NewString()
		c.Set(requestIDKey, requestID)
		c.Header(requestIDHeader, requestID)

		c.Next()

		logger.Info("request",
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

func requestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// Sessions loads the visitor's session, creating an anonymous one when the
// cookie is missing, malformed or stale.
func (h *Handler) Sessions() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var sess *model.Session
		if id, err := c.Cookie(cookieName); err == nil && session.ValidID(id) {
			s, err := h.sessions.Get(ctx, id)
			switch {
			case err == nil:
				sess = s
			case !errors.Is(err, session.ErrNotFound):
				h.logger.Error("Failed to load session", zap.Error(err), zap.String("request_id", requestID(c)))
			}
		}

		if sess == nil {
			sess = session.New()
			if err := h.sessions.Save(ctx, sess); err != nil {
				h.logger.Error("Failed to create session", zap.Error(err), zap.String("request_id", requestID(c)))
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Session store unavailable"})
				return
			}
			h.setSessionCookie(c, sess.ID)
		}

		c.Set(sessionKey, sess)
		c.Next()
	}
}

func (h *Handler) setSessionCookie(c *gin.Context, id string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cookieName, id, int(h.opts.SessionTTL.Seconds()), "/", "", h.opts.CookieSecure, true)
}

func currentSession(c *gin.Context) *model.Session {
	if v, ok := c.Get(sessionKey); ok {
		if s, ok := v.(*model.Session); ok {
			return s
		}
	}
	return session.New()
}

// RateLimiter throttles each client IP with its own token bucket. Idle
// buckets are forgotten after ttl.
type RateLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters *expirable.LRU[string, *rate.Limiter]
}

func NewRateLimiter(perSecond float64, burst int, ttl time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		limiters: expirable.NewLRU[string, *rate.Limiter](10000, nil, ttl),
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if l, ok := rl.limiters.Get(key); ok {
		return l
	}
	l := rate.NewLimiter(rl.limit, rl.burst)
	rl.limiters.Add(key, l)
	return l
}

func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}
		c.Next()
	}
}
