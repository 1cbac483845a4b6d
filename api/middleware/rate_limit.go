package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/luhive/luhive-backend/api/responses"
	pkgerrors "github.com/luhive/luhive-backend/pkg/errors"
	"github.com/luhive/luhive-backend/pkg/logger"
)

// Bodies larger than this are not inspected for an email; the IP counter
// still applies.
const maxEmailPeek = 64 << 10

type rateLimitStore interface {
	RateLimitKey(scope string) string
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// RateLimitPolicy is a fixed-window budget for one endpoint. PerIP counts
// requests by client address and PerEmail by the "email" field of a JSON
// body. Zero disables a dimension.
type RateLimitPolicy struct {
	Name     string
	Window   time.Duration
	PerIP    int
	PerEmail int
}

func (p RateLimitPolicy) enabled() bool {
	return p.Window > 0 && (p.PerIP > 0 || p.PerEmail > 0)
}

// RateLimit rejects requests over the policy budget with 429 and a
// Retry-After header. It expects chi's RealIP to have normalized RemoteAddr.
func RateLimit(policy RateLimitPolicy, store rateLimitStore, logg *logger.Logger) func(http.Handler) http.Handler {
	name := strings.ToLower(strings.TrimSpace(policy.Name))
	if name == "" {
		name = "default"
	}
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if policy.PerIP > 0 {
				if ip := remoteIP(r); ip != "" {
					if !checkBudget(ctx, w, store, logg, policy, store.RateLimitKey(name+":ip:"+ip), policy.PerIP, "ip") {
						return
					}
				}
			}

			if policy.PerEmail > 0 {
				peek, err := io.ReadAll(io.LimitReader(r.Body, maxEmailPeek))
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "could not read request body"))
					return
				}
				r.Body = readCloser{Reader: io.MultiReader(bytes.NewReader(peek), r.Body), Closer: r.Body}

				if email := emailFromJSON(peek); email != "" {
					if !checkBudget(ctx, w, store, logg, policy, store.RateLimitKey(name+":email:"+digest(email)), policy.PerEmail, "email") {
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// checkBudget counts one hit against key and writes the rejection when the
// budget is spent. It reports whether the request may continue.
func checkBudget(ctx context.Context, w http.ResponseWriter, store rateLimitStore, logg *logger.Logger, policy RateLimitPolicy, key string, limit int, dimension string) bool {
	count, err := store.IncrWithTTL(ctx, key, policy.Window)
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limit unavailable"))
		return false
	}
	if count <= int64(limit) {
		return true
	}

	if logg != nil {
		ctx = logg.WithFields(ctx, map[string]any{
			"policy":    policy.Name,
			"dimension": dimension,
			"attempts":  count,
			"limit":     limit,
		})
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(policy.Window.Seconds())))
	responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many requests, try again later"))
	return false
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}

func emailFromJSON(payload []byte) string {
	var body struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(payload, &body) != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(body.Email))
}

// Emails never reach Redis in clear text.
func digest(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:16])
}

type readCloser struct {
	io.Reader
	io.Closer
}
