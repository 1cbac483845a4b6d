package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/luhive/luhive-backend/api/responses"
	pkgerrors "github.com/luhive/luhive-backend/pkg/errors"
	"github.com/luhive/luhive-backend/pkg/logger"
	pkgredis "github.com/luhive/luhive-backend/pkg/redis"
)

const (
	IdempotencyHeader       = "Idempotency-Key"
	IdempotentReplayHeader  = "Idempotent-Replayed"
	DefaultIdempotencyTTL   = 24 * time.Hour
	RegistrationIdempotency = 7 * 24 * time.Hour

	maxIdempotencyKeyLen = 255
	// Held while the first request runs so a concurrent duplicate sees it.
	pendingTTL = time.Minute
)

// idempotencyEntry is what sits under an idempotency key. Pending entries
// have no status yet.
type idempotencyEntry struct {
	Fingerprint string `json:"fp"`
	Pending     bool   `json:"pending,omitempty"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"ct,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// Idempotency replays the first response for a repeated Idempotency-Key on
// the same caller, method and path. Requests without the header pass through.
// 5xx responses are not kept so the client can retry them.
func Idempotency(store pkgredis.IdempotencyStore, ttl time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			id := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			if id == "" || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			if len(id) > maxIdempotencyKeyLen {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "idempotency key too long"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			key := store.IdempotencyKey(idempotencyScope(r), id)
			fp := fingerprint(body)

			pending, _ := json.Marshal(idempotencyEntry{Fingerprint: fp, Pending: true})
			claimed, err := store.SetNX(ctx, key, string(pending), pendingTTL)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key"))
				return
			}
			if !claimed {
				replay(w, r, store, key, fp, logg)
				return
			}

			var captured bytes.Buffer
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(&captured)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			if status >= http.StatusInternalServerError {
				if err := store.Del(ctx, key); err != nil && logg != nil {
					logg.WarnErr(ctx, "idempotency.release_failed", err)
				}
				return
			}

			done, _ := json.Marshal(idempotencyEntry{
				Fingerprint: fp,
				Status:      status,
				ContentType: ww.Header().Get("Content-Type"),
				Body:        captured.Bytes(),
			})
			if err := store.Set(ctx, key, string(done), ttl); err != nil && logg != nil {
				logg.WarnErr(ctx, "idempotency.store_failed", err)
			}
		})
	}
}

func replay(w http.ResponseWriter, r *http.Request, store pkgredis.IdempotencyStore, key, fp string, logg *logger.Logger) {
	ctx := r.Context()
	raw, err := store.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		// Expired between the claim attempt and the read.
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "request with this idempotency key is in progress"))
		return
	}
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load idempotency entry"))
		return
	}

	var entry idempotencyEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency entry"))
		return
	}
	switch {
	case entry.Fingerprint != fp:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with a different request body"))
	case entry.Pending:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "request with this idempotency key is in progress"))
	default:
		if entry.ContentType != "" {
			w.Header().Set("Content-Type", entry.ContentType)
		}
		w.Header().Set(IdempotentReplayHeader, "true")
		w.WriteHeader(entry.Status)
		_, _ = w.Write(entry.Body)
	}
}

// Keys are scoped to the caller and the concrete path, so the same key on
// two events never collides.
func idempotencyScope(r *http.Request) string {
	caller := UserIDFromContext(r.Context())
	if caller == "" {
		caller = "anon"
	}
	return caller + "|" + r.Method + "|" + r.URL.Path
}

func fingerprint(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
