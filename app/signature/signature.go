// Package signature implements the t=<unix>,v1=<hex> HMAC-SHA256 webhook
// signature scheme shared by outbound partner deliveries and the mock
// provider's inbound callbacks.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// DefaultTolerance is the replay window applied when none is configured.
const DefaultTolerance = 300 * time.Second

type Codec struct {
	tolerance time.Duration
	now       func() time.Time
}

func NewCodec(tolerance time.Duration) *Codec {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Codec{
		tolerance: tolerance,
		now:       time.Now,
	}
}

// Sign produces a signature header over "{timestamp}.{payload}".
func (c *Codec) Sign(secret string, payload []byte) string {
	ts := c.now().Unix()
	return "t=" + strconv.FormatInt(ts, 10) + ",v1=" + hex.EncodeToString(digest(secret, ts, payload))
}

// Verify checks a signature header against the payload. It returns false for
// malformed headers, digest mismatches and timestamps outside the replay
// window; it never reports which check failed.
func (c *Codec) Verify(secret string, payload []byte, header string) bool {
	header = strings.TrimSpace(header)
	if header == "" || strings.TrimSpace(secret) == "" {
		return false
	}

	var ts string
	v1 := make([]string, 0, 1)
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, "t=") {
			ts = strings.TrimSpace(strings.TrimPrefix(part, "t="))
		}
		if strings.HasPrefix(part, "v1=") {
			v1 = append(v1, strings.TrimSpace(strings.TrimPrefix(part, "v1=")))
		}
	}
	if ts == "" || len(v1) == 0 {
		return false
	}

	tsUnix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return false
	}
	now := c.now().Unix()
	toleranceSeconds := int64(c.tolerance / time.Second)
	if now-tsUnix > toleranceSeconds || tsUnix-now > toleranceSeconds {
		return false
	}

	expected := digest(secret, tsUnix, payload)
	for _, sig := range v1 {
		candidate, err := hex.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(candidate, expected) {
			return true
		}
	}

	return false
}

func digest(secret string, ts int64, payload []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(strconv.FormatInt(ts, 10)))
	_, _ = mac.Write([]byte("."))
	_, _ = mac.Write(payload)
	return mac.Sum(nil)
}
