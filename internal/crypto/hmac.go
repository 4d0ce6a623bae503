// Package crypto provides request signing and credential handling for the
// CoinEx REST API.
package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// Signer holds the credentials for HMAC-authenticated CoinEx v2 requests.
type Signer struct {
	AccessID  string // API access ID
	SecretKey string // API secret key
}

// Headers returns the authentication headers for a request. The signature is
// lowercase hex HMAC-SHA256(secret, method+path+query+body+timestamp), where
// query carries its leading "?" when present.
//
// Returned header keys:
//   - X-COINEX-KEY
//   - X-COINEX-SIGN
//   - X-COINEX-TIMESTAMP
func (s *Signer) Headers(method, path, query, body string) map[string]string {
	return s.HeadersAt(method, path, query, body, time.Now().UnixMilli())
}

// HeadersAt is like Headers but lets the caller supply the millisecond
// timestamp (useful for deterministic testing).
func (s *Signer) HeadersAt(method, path, query, body string, unixMilli int64) map[string]string {
	ts := strconv.FormatInt(unixMilli, 10)

	message := method + path + query + body + ts
	mac := hmac.New(sha256.New, []byte(s.SecretKey))
	mac.Write([]byte(message))
	sig := hex.EncodeToString(mac.Sum(nil))

	return map[string]string{
		"X-COINEX-KEY":       s.AccessID,
		"X-COINEX-SIGN":      sig,
		"X-COINEX-TIMESTAMP": ts,
	}
}
