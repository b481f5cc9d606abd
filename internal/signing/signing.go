// Package signing authenticates messages exchanged with the training worker.
//
// A message is signed by computing HMAC-SHA256 over the JSON tuple
// {"payload":<payload>,"timestamp":<epoch millis>} with a shared secret. The
// hex digest travels in the X-Signature header and the timestamp in
// X-Timestamp; the body is the payload bytes themselves.
package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/apperr"
)

const (
	// HeaderSignature carries the hex HMAC.
	HeaderSignature = "X-Signature"
	// HeaderTimestamp carries the epoch millis the signature was made at.
	HeaderTimestamp = "X-Timestamp"

	// DefaultWindow is the maximum accepted clock distance between signer
	// and verifier.
	DefaultWindow = 5 * time.Minute
)

// Envelope is a signed payload. It is never persisted.
type Envelope struct {
	Signature string          `json:"signature"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Apply sets the signature headers on h.
func (e *Envelope) Apply(h http.Header) {
	h.Set(HeaderSignature, e.Signature)
	h.Set(HeaderTimestamp, strconv.FormatInt(e.Timestamp, 10))
}

// Signer signs and verifies payloads with a process-wide secret.
type Signer struct {
	secret []byte
	window time.Duration
	now    func() time.Time
}

// Option configures a Signer.
type Option func(*Signer)

// WithWindow overrides the staleness window.
func WithWindow(d time.Duration) Option {
	return func(s *Signer) {
		if d > 0 {
			s.window = d
		}
	}
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Signer) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a Signer. The secret must not be empty.
func New(secret string, opts ...Option) (*Signer, error) {
	if secret == "" {
		return nil, errors.New("signing secret is required")
	}
	s := &Signer{
		secret: []byte(secret),
		window: DefaultWindow,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Sign marshals payload to JSON and signs it. Byte slices and
// json.RawMessage values are signed as-is.
func (s *Signer) Sign(payload any) (*Envelope, error) {
	var raw []byte
	switch p := payload.(type) {
	case json.RawMessage:
		raw = p
	case []byte:
		raw = p
	default:
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload: %w", err)
		}
		raw = b
	}

	ts := s.now().UnixMilli()
	return &Envelope{
		Signature: hex.EncodeToString(s.mac(raw, ts)),
		Timestamp: ts,
		Payload:   raw,
	}, nil
}

// Verify checks signature and timestamp against the raw payload bytes.
// The returned error wraps apperr.ErrSignatureInvalid.
func (s *Signer) Verify(signature string, timestamp int64, payload []byte) error {
	skew := s.now().Sub(time.UnixMilli(timestamp))
	if skew < 0 {
		skew = -skew
	}
	if skew > s.window {
		return fmt.Errorf("stale timestamp (skew %s): %w", skew.Round(time.Second), apperr.ErrSignatureInvalid)
	}

	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return fmt.Errorf("malformed signature: %w", apperr.ErrSignatureInvalid)
	}

	want := s.mac(payload, timestamp)
	// hmac.Equal only runs in constant time for equal-length inputs.
	if len(got) != len(want) {
		return fmt.Errorf("signature length mismatch: %w", apperr.ErrSignatureInvalid)
	}
	if !hmac.Equal(got, want) {
		return fmt.Errorf("signature mismatch: %w", apperr.ErrSignatureInvalid)
	}
	return nil
}

// FromHeaders reads the signature and timestamp headers.
func FromHeaders(h http.Header) (signature string, timestamp int64, err error) {
	signature = h.Get(HeaderSignature)
	tsRaw := h.Get(HeaderTimestamp)
	if signature == "" || tsRaw == "" {
		return "", 0, fmt.Errorf("missing signature headers: %w", apperr.ErrSignatureInvalid)
	}
	timestamp, err = strconv.ParseInt(strings.TrimSpace(tsRaw), 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("malformed timestamp: %w", apperr.ErrSignatureInvalid)
	}
	return signature, timestamp, nil
}

// VerifyHeaders reads the signature headers from h and verifies body.
// It returns the canonical signature so callers can feed a ReplayGuard.
func (s *Signer) VerifyHeaders(h http.Header, body []byte) (string, error) {
	sig, ts, err := FromHeaders(h)
	if err != nil {
		return "", err
	}
	if err := s.Verify(sig, ts, body); err != nil {
		return "", err
	}
	return Canonical(sig), nil
}

// Canonical returns the form of a verified signature used as a replay key.
// Verify accepts surrounding space and either hex case, so all spellings of
// one MAC map to the same key.
func Canonical(signature string) string {
	return strings.ToLower(strings.TrimSpace(signature))
}

// ReplayTTL is how long a signature made at timestamp must be remembered:
// it keeps verifying until timestamp plus the window, which lies up to a
// window past now for a future-dated signature.
func (s *Signer) ReplayTTL(timestamp int64) time.Duration {
	skew := s.now().Sub(time.UnixMilli(timestamp))
	if skew < 0 {
		skew = -skew
	}
	return s.window + skew
}

func (s *Signer) mac(payload []byte, timestamp int64) []byte {
	m := hmac.New(sha256.New, s.secret)
	m.Write(message(payload, timestamp))
	return m.Sum(nil)
}

// message builds the signed tuple byte for byte. encoding/json would
// re-encode a RawMessage, so the payload is spliced in unchanged.
func message(payload []byte, timestamp int64) []byte {
	buf := make([]byte, 0, len(payload)+40)
	buf = append(buf, `{"payload":`...)
	buf = append(buf, payload...)
	buf = append(buf, `,"timestamp":`...)
	buf = strconv.AppendInt(buf, timestamp, 10)
	buf = append(buf, '}')
	return buf
}
