package notification

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// Signature headers set on signed deliveries.
const (
	HeaderSignature = "X-Policykeeper-Signature"
	HeaderTimestamp = "X-Policykeeper-Timestamp"
)

// Sign returns "sha256=<hex>" for the HMAC-SHA256 of body under secret.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// signedHeaders signs "<unix>.<body>" so a captured delivery cannot be
// replayed with a fresh timestamp.
func signedHeaders(body []byte, secret string, at time.Time) map[string]string {
	ts := strconv.FormatInt(at.Unix(), 10)
	return map[string]string{
		HeaderTimestamp: ts,
		HeaderSignature: Sign(append([]byte(ts+"."), body...), secret),
	}
}

// Verify checks a delivery's signature headers against body. Timestamps
// further than tolerance from now are refused.
func Verify(body []byte, secret, signature, timestamp string, tolerance time.Duration) bool {
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}
	age := time.Since(time.Unix(ts, 0))
	if age > tolerance || age < -tolerance {
		return false
	}
	expected := Sign(append([]byte(timestamp+"."), body...), secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
