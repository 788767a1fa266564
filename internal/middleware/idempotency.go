package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"legaldocs/pkg/contenthash"
	"legaldocs/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	// used when no lock TTL is configured
	defaultLockTTL = 60 * time.Second
	maxKeyLength   = 128
)

type idempEntry struct {
	InProgress  bool      `json:"in_progress"`
	Code        int       `json:"code"`
	ContentType string    `json:"content_type,omitempty"`
	Body        []byte    `json:"body"`
	BodySHA256  string    `json:"body_sha256"`
	CreatedAt   time.Time `json:"created_at"`
}

// bodyRecorder tees the response so it can be replayed.
type bodyRecorder struct {
	gin.ResponseWriter
	buf *bytes.Buffer
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
	r.buf.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *bodyRecorder) WriteString(s string) (int, error) {
	r.buf.WriteString(s)
	return r.ResponseWriter.WriteString(s)
}

// Idempotency replays the stored response of a mutating request repeated with
// the same Idempotency-Key. Requests without the header pass through, and so
// does everything when rdb is nil. Keys are scoped by route and actor.
// lockTTL is how long an unfinished request holds its key and must outlast
// the slowest handler; ttl is how long a finished response is replayed.
func Idempotency(rdb *redis.Client, ttl, lockTTL time.Duration, logger *zap.Logger) gin.HandlerFunc {
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}
	return func(c *gin.Context) {
		if rdb == nil {
			c.Next()
			return
		}
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		idemKey := strings.TrimSpace(c.GetHeader(IdempotencyHeader))
		if idemKey == "" {
			c.Next()
			return
		}
		if len(idemKey) > maxKeyLength {
			c.AbortWithStatusJSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Idempotency-Key is too long"))
			return
		}

		var body []byte
		if c.Request.Body != nil {
			var err error
			if body, err = io.ReadAll(c.Request.Body); err != nil {
				logger.Warn("failed to read request body", zap.Error(err))
				c.AbortWithStatusJSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "failed to read request body"))
				return
			}
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		bhash := contenthash.Sum(body)

		key := buildKey(c.Request.Method, c.FullPath(), c.Request.URL.Path, ActorID(c), idemKey)
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		ok, err := provisionalSet(ctx, rdb, key, idempEntry{InProgress: true, BodySHA256: bhash, CreatedAt: nowUTC()}, lockTTL)
		if err != nil {
			logger.Warn("idempotency store unavailable", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, response.Error(http.StatusServiceUnavailable, "idempotency store unavailable"))
			return
		}
		if !ok {
			cur, err := loadEntry(ctx, rdb, key)
			if err != nil {
				logger.Warn("failed to load idempotency entry", zap.String("key", key), zap.Error(err))
			}
			if cur.BodySHA256 != "" && cur.BodySHA256 != bhash {
				c.AbortWithStatusJSON(http.StatusConflict, response.Error(http.StatusConflict, "Idempotency-Key reused with a different body"))
				return
			}
			if !cur.InProgress && cur.Code != 0 {
				c.Header("Idempotent-Replayed", "true")
				contentType := cur.ContentType
				if contentType == "" {
					contentType = "application/json; charset=utf-8"
				}
				c.Data(cur.Code, contentType, cur.Body)
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusConflict, response.Error(http.StatusConflict, "request is already in progress"))
			return
		}

		rec := &bodyRecorder{ResponseWriter: c.Writer, buf: &bytes.Buffer{}}
		c.Writer = rec
		c.Next()

		// server errors are not cached so the client may retry
		if rec.Status() >= http.StatusInternalServerError {
			if err := rdb.Del(context.Background(), key).Err(); err != nil {
				logger.Warn("failed to release idempotency key", zap.String("key", key), zap.Error(err))
			}
			return
		}
		final := idempEntry{
			Code:        rec.Status(),
			ContentType: rec.Header().Get("Content-Type"),
			Body:        rec.buf.Bytes(),
			BodySHA256:  bhash,
			CreatedAt:   nowUTC(),
		}
		if err := saveFinal(context.Background(), rdb, key, final, ttl); err != nil {
			logger.Warn("failed to store idempotent response", zap.String("key", key), zap.Error(err))
		}
	}
}

func nowUTC() time.Time { return time.Now().UTC() }

// buildKey uses the concrete path so the same key on two versions never collides.
func buildKey(method, route, path, actorID, idemKey string) string {
	return "idemp:" + strings.ToLower(method) + ":" + route + ":" + path + ":" + actorID + ":" + idemKey
}

func provisionalSet(ctx context.Context, rdb *redis.Client, key string, entry idempEntry, ttl time.Duration) (bool, error) {
	payload, _ := json.Marshal(entry)
	return rdb.SetNX(ctx, key, payload, ttl).Result()
}

func loadEntry(ctx context.Context, rdb *redis.Client, key string) (idempEntry, error) {
	var e idempEntry
	v, err := rdb.Get(ctx, key).Bytes()
	if err != nil {
		return e, err
	}
	_ = json.Unmarshal(v, &e)
	return e, nil
}

func saveFinal(ctx context.Context, rdb *redis.Client, key string, entry idempEntry, ttl time.Duration) error {
	payload, _ := json.Marshal(entry)
	return rdb.Set(ctx, key, payload, ttl).Err()
}
