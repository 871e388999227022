package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Header names carried by every signed delivery.
const (
	HeaderSignature  = "X-Beautydesk-Signature"
	HeaderTimestamp  = "X-Beautydesk-Timestamp"
	HeaderDeliveryID = "X-Beautydesk-Delivery"
)

// Signature authenticates one delivery: HMAC-SHA256(secret, "<timestamp>.<payload>").
type Signature struct {
	Value      string
	Timestamp  int64
	DeliveryID string
}

// Sign computes the signature of payload at now with a fresh delivery id.
func Sign(secret string, payload []byte, now time.Time) (Signature, error) {
	if secret == "" {
		return Signature{}, ErrMissingSecret
	}
	if len(payload) == 0 {
		return Signature{}, fmt.Errorf("%w: empty payload", ErrInvalidPayload)
	}
	ts := now.Unix()
	return Signature{
		Value:      mac(secret, ts, payload),
		Timestamp:  ts,
		DeliveryID: uuid.NewString(),
	}, nil
}

// Apply sets the signature headers on h.
func (s Signature) Apply(h http.Header) {
	h.Set(HeaderSignature, s.Value)
	h.Set(HeaderTimestamp, strconv.FormatInt(s.Timestamp, 10))
	h.Set(HeaderDeliveryID, s.DeliveryID)
}

// ParseSignature reads the signature headers from h.
func ParseSignature(h http.Header) (Signature, error) {
	sig := Signature{
		Value:      h.Get(HeaderSignature),
		DeliveryID: h.Get(HeaderDeliveryID),
	}
	if sig.Value == "" {
		return Signature{}, fmt.Errorf("%w: missing %s", ErrInvalidSignature, HeaderSignature)
	}
	ts, err := strconv.ParseInt(h.Get(HeaderTimestamp), 10, 64)
	if err != nil {
		return Signature{}, fmt.Errorf("%w: bad timestamp", ErrInvalidSignature)
	}
	sig.Timestamp = ts
	return sig, nil
}

// Verify checks sig against payload. A positive maxAge rejects signatures
// older than maxAge or more than a minute in the future.
func Verify(secret string, payload []byte, sig Signature, now time.Time, maxAge time.Duration) error {
	if secret == "" {
		return ErrMissingSecret
	}
	if maxAge > 0 {
		age := now.Sub(time.Unix(sig.Timestamp, 0))
		if age > maxAge || age < -time.Minute {
			return fmt.Errorf("%w: timestamp outside tolerance", ErrInvalidSignature)
		}
	}
	want := mac(secret, sig.Timestamp, payload)
	if !hmac.Equal([]byte(want), []byte(sig.Value)) {
		return fmt.Errorf("%w: mismatch", ErrInvalidSignature)
	}
	return nil
}

func mac(secret string, ts int64, payload []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(strconv.FormatInt(ts, 10)))
	h.Write([]byte{'.'})
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
