// Package crypto provides request signing and encrypted secret storage for
// the broker APIs.
package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// HMACAuth holds the credentials for HMAC-signed requests against the
// CoinSwitch trading API.
type HMACAuth struct {
	Key    string // API key
	Secret string // API secret, raw bytes
}

// Headers returns the HTTP headers for a signed request. The params map must
// already contain the timestamp field; use Stamp to add it.
//
// Returned header keys:
//   - X-AUTH-APIKEY
//   - X-AUTH-SIGNATURE
func (h *HMACAuth) Headers(path string, params map[string]string) map[string]string {
	return map[string]string{
		"X-AUTH-APIKEY":    h.Key,
		"X-AUTH-SIGNATURE": h.Sign(path, params),
	}
}

// Sign computes the request signature: HMAC-SHA256 of the canonical payload
// keyed by the secret, encoded as lowercase hex.
func (h *HMACAuth) Sign(path string, params map[string]string) string {
	return hmacSHA256Hex([]byte(h.Secret), Canonical(path, params))
}

// Canonical builds the signing payload: the request path, a question mark,
// and the params encoded as k=v pairs joined by ampersands with keys sorted.
func Canonical(path string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(path)
	b.WriteByte('?')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
	}
	return b.String()
}

// Stamp returns a copy of params with the current Unix-millisecond timestamp
// added under the "timestamp" key.
func Stamp(params map[string]string) map[string]string {
	return StampAt(params, time.Now().UnixMilli())
}

// StampAt is like Stamp but lets the caller supply the millisecond timestamp
// (useful for deterministic testing).
func StampAt(params map[string]string, unixMilli int64) map[string]string {
	out := make(map[string]string, len(params)+1)
	for k, v := range params {
		out[k] = v
	}
	out["timestamp"] = strconv.FormatInt(unixMilli, 10)
	return out
}

// hmacSHA256Hex computes HMAC-SHA256 of message using key and returns the
// result as a lowercase hex string.
func hmacSHA256Hex(key []byte, message string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// String returns a redacted representation suitable for logging.
func (h *HMACAuth) String() string {
	redact := func(s string) string {
		if len(s) <= 4 {
			return "****"
		}
		return s[:4] + "****"
	}
	return fmt.Sprintf("HMACAuth{key=%s, secret=%s}", redact(h.Key), redact(h.Secret))
}
