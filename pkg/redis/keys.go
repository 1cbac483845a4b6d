package redis

import "strings"

const keyNamespace = "luhive"

// Key families. Every key the services write lives under luhive:<family>:...
const (
	familyIdempotency = "idempotency"
	familyRateLimit   = "rate_limit"
	familyCounter     = "counter"
	familySession     = "session"
	familyVerify      = "verify"
	familyLock        = "lock"
)

func (c *Client) IdempotencyKey(scope, id string) string {
	return buildKey(familyIdempotency, scope, id)
}

func (c *Client) RateLimitKey(scope string) string {
	return buildKey(familyRateLimit, scope)
}

func (c *Client) CounterKey(name string) string {
	return buildKey(familyCounter, name)
}

func (c *Client) AccessSessionKey(accessID string) string {
	return buildKey(familySession, "access", accessID)
}

// VerificationConsumedKey marks a registration verification token as redeemed.
func (c *Client) VerificationConsumedKey(token string) string {
	return buildKey(familyVerify, "consumed", token)
}

// LockKey names the mutual-exclusion key for a cron job in one environment.
func (c *Client) LockKey(env, job string) string {
	return buildKey(familyLock, env, job)
}

func buildKey(parts ...string) string {
	var b strings.Builder
	b.WriteString(keyNamespace)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}
