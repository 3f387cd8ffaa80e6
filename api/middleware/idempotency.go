package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/pos-backend/api/responses"
	pkgerrors "github.com/angelmondragon/pos-backend/pkg/errors"
	"github.com/angelmondragon/pos-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/pos-backend/pkg/redis"
)

const (
	idempotencyHeader      = "Idempotency-Key"
	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour
)

type idempotencyRule struct {
	method  string
	pattern string
	ttl     time.Duration
}

// Routes that move money or stock. A {param} segment matches any single
// path segment.
var idempotencyRules = []idempotencyRule{
	{method: http.MethodPost, pattern: "/api/v1/sales", ttl: criticalIdempotencyTTL},
	{method: http.MethodPost, pattern: "/api/v1/quotes/{orderId}/confirm", ttl: criticalIdempotencyTTL},
	{method: http.MethodPost, pattern: "/api/v1/orders/{orderId}/cancel", ttl: criticalIdempotencyTTL},
	{method: http.MethodPost, pattern: "/api/v1/orders/{orderId}/returns", ttl: criticalIdempotencyTTL},
	{method: http.MethodPost, pattern: "/api/v1/purchases/{purchaseId}/receive", ttl: defaultIdempotencyTTL},
	{method: http.MethodPost, pattern: "/api/v1/inventory/adjustments", ttl: defaultIdempotencyTTL},
	{method: http.MethodPost, pattern: "/api/v1/inventory/transfers", ttl: defaultIdempotencyTTL},
}

type idempotencyRecord struct {
	Status      int               `json:"status"`
	Body        string            `json:"body"`
	Headers     map[string]string `json:"headers,omitempty"`
	RequestHash string            `json:"request_hash"`
}

// Idempotency replays the stored response when a matching route is retried
// with the same Idempotency-Key. A nil store disables it.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, ok := routeTTL(r.Method, r.URL.Path)
			if !ok || store == nil {
				next.ServeHTTP(w, r)
				return
			}

			idempotencyKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			if idempotencyKey == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			requestHash := hashBody(body)
			key := store.IdempotencyKey(buildScope(r), idempotencyKey)

			stored, getErr := store.Get(r.Context(), key)
			if getErr != nil && !errors.Is(getErr, pkgredis.Nil) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, getErr, "check idempotency"))
				return
			}
			if stored != "" {
				var record idempotencyRecord
				if err := json.Unmarshal([]byte(stored), &record); err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
					return
				}
				if record.RequestHash != requestHash {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeConflict, "idempotency key reused with different request body"))
					return
				}
				w.Header().Set("Idempotent-Replay", "true")
				writeStoredResponse(w, &record)
				return
			}

			rec := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			// Server failures are not remembered so the client may retry them.
			if rec.status >= http.StatusInternalServerError {
				return
			}
			record := idempotencyRecord{
				Status:      defaultStatus(rec.status),
				Body:        base64.StdEncoding.EncodeToString(rec.body.Bytes()),
				RequestHash: requestHash,
			}
			if ct := rec.Header().Get("Content-Type"); ct != "" {
				record.Headers = map[string]string{"Content-Type": ct}
			}
			payload, err := json.Marshal(record)
			if err != nil {
				logError(r.Context(), logg, "marshal idempotency record", err)
				return
			}
			if _, err := store.SetNX(r.Context(), key, string(payload), ttl); err != nil {
				logError(r.Context(), logg, "persist idempotency record", err)
			}
		})
	}
}

func buildScope(r *http.Request) string {
	return strings.Join([]string{
		BusinessIDFromContext(r.Context()).String(),
		ActorIDFromContext(r.Context()).String(),
		r.Method,
		r.URL.Path,
	}, "|")
}

func writeStoredResponse(w http.ResponseWriter, record *idempotencyRecord) {
	if ct, ok := record.Headers["Content-Type"]; ok && ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(record.Status)
	if decoded, err := base64.StdEncoding.DecodeString(record.Body); err == nil {
		_, _ = w.Write(decoded)
	}
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return base64.StdEncoding.EncodeToString(sum[:])
}

func defaultStatus(value int) int {
	if value == 0 {
		return http.StatusOK
	}
	return value
}

func routeTTL(method, path string) (time.Duration, bool) {
	segments := splitPath(path)
	for _, rule := range idempotencyRules {
		if rule.method == method && matchSegments(splitPath(rule.pattern), segments) {
			return rule.ttl, true
		}
	}
	return 0, false
}

func splitPath(path string) []string {
	return strings.Split(strings.Trim(path, "/"), "/")
}

func matchSegments(pattern, path []string) bool {
	if len(pattern) != len(path) {
		return false
	}
	for i, segment := range pattern {
		if strings.HasPrefix(segment, "{") && strings.HasSuffix(segment, "}") {
			if path[i] == "" {
				return false
			}
			continue
		}
		if segment != path[i] {
			return false
		}
	}
	return true
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (r *responseCapture) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseCapture) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func logError(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if logg == nil || err == nil {
		return
	}
	logg.Error(ctx, msg, err)
}
