package pay

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"storefront/middleware"
	"storefront/models"
	"storefront/utils"
)

const (
	HeaderKey = "Idempotency-Key"
	recordTTL = 24 * time.Hour
)

// ErrKeyExists is returned by Store.Reserve when the key is already taken.
var ErrKeyExists = errors.New("idempotency key exists")

// Store persists idempotency records.
type Store interface {
	Reserve(ctx context.Context, rec models.IdempotencyRecord) error
	Find(ctx context.Context, key string) (*models.IdempotencyRecord, error)
	SaveResponse(ctx context.Context, key string, resp models.SavedResponse) error
	Release(ctx context.Context, key string) error
}

func computeRequestHash(r *http.Request, bodyBytes []byte, userID string) string {
	h := sha256.New()
	h.Write([]byte(r.Method + ":" + r.URL.Path + ":" + userID + ":"))
	h.Write(bodyBytes)
	return hex.EncodeToString(h.Sum(nil))
}

// CaptureResponseWriter wraps http.ResponseWriter to capture status and body.
type CaptureResponseWriter struct {
	w           http.ResponseWriter
	statusCode  int
	buf         bytes.Buffer
	wroteHeader bool
}

func NewCaptureResponseWriter(w http.ResponseWriter) *CaptureResponseWriter {
	return &CaptureResponseWriter{w: w, statusCode: http.StatusOK}
}

func (c *CaptureResponseWriter) Header() http.Header {
	return c.w.Header()
}

func (c *CaptureResponseWriter) WriteHeader(statusCode int) {
	if !c.wroteHeader {
		c.statusCode = statusCode
		c.w.WriteHeader(statusCode)
		c.wroteHeader = true
	}
}

func (c *CaptureResponseWriter) Write(b []byte) (int, error) {
	c.wroteHeader = true
	c.buf.Write(b)
	return c.w.Write(b)
}

func (c *CaptureResponseWriter) Status() int {
	return c.statusCode
}

func (c *CaptureResponseWriter) BodyBytes() []byte {
	return c.buf.Bytes()
}

// Idempotency replays the first response recorded for an Idempotency-Key.
// Requests without the header pass through. Reusing a key with a different
// body, path or user is a 409, as is reusing a key whose first request is
// still running. A server error releases the key so the next attempt runs
// and is recorded afresh.
func Idempotency(store Store) func(httprouter.Handle) httprouter.Handle {
	return func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			key := r.Header.Get(HeaderKey)
			if key == "" {
				next(w, r, ps)
				return
			}

			var userID string
			if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
				userID = claims.UserID
			}

			// Limit body size to 1 MB to prevent memory issues
			bodyBytes, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
			if err != nil {
				utils.RespondWithError(w, http.StatusBadRequest, "Failed to read request body")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))

			reqHash := computeRequestHash(r, bodyBytes, userID)
			now := time.Now()
			rec := models.IdempotencyRecord{
				Key:         key,
				Method:      r.Method,
				Path:        r.URL.Path,
				UserID:      userID,
				RequestHash: reqHash,
				CreatedAt:   now,
				ExpiresAt:   now.Add(recordTTL),
			}

			ctx := r.Context()
			err = store.Reserve(ctx, rec)
			if err == nil {
				crw := NewCaptureResponseWriter(w)
				next(crw, r, ps)
				if crw.Status() >= http.StatusInternalServerError {
					if err := store.Release(context.WithoutCancel(ctx), key); err != nil {
						slog.Warn("idempotency key not released", "key", key, "err", err)
					}
					return
				}
				saved := models.SavedResponse{Status: crw.Status(), Body: bytes.Clone(crw.BodyBytes())}
				if err := store.SaveResponse(context.WithoutCancel(ctx), key, saved); err != nil {
					slog.Warn("idempotency response not saved", "key", key, "err", err)
				}
				return
			}
			if !errors.Is(err, ErrKeyExists) {
				slog.Error("idempotency reserve failed", "key", key, "err", err)
				utils.RespondWithError(w, http.StatusInternalServerError, "Idempotency lookup error")
				return
			}

			existing, err := store.Find(ctx, key)
			if err != nil {
				slog.Error("idempotency lookup failed", "key", key, "err", err)
				utils.RespondWithError(w, http.StatusInternalServerError, "Idempotency lookup error")
				return
			}
			if existing.RequestHash != reqHash {
				utils.RespondWithError(w, http.StatusConflict, "Idempotency-Key reused with a different request")
				return
			}
			if existing.Response != nil {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Idempotent-Replayed", "true")
				w.WriteHeader(existing.Response.Status)
				_, _ = w.Write(existing.Response.Body)
				return
			}

			utils.RespondWithError(w, http.StatusConflict, "A request with this Idempotency-Key is still in progress")
		}
	}
}
