package google

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// ErrInvalidState rejects tampered, truncated, or expired state tokens.
var ErrInvalidState = goerrors.New("invalid or expired sign-in state", goerrors.CategoryAuth).
	WithTextCode("INVALID_STATE")

// State is the CSRF payload round-tripped through the consent screen.
// It carries no secrets, only integrity matters, so an HMAC signature
// over the JSON body is enough.
type State struct {
	Nonce     string `json:"n"`
	ReturnURL string `json:"r,omitempty"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// StateCodec signs and verifies state tokens.
type StateCodec struct {
	key []byte
	ttl time.Duration
}

// NewStateCodec creates a codec with the given HMAC key.
func NewStateCodec(key []byte, ttl time.Duration) *StateCodec {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &StateCodec{key: key, ttl: ttl}
}

// Encode signs the state and packs it for the state query parameter.
func (c *StateCodec) Encode(state *State) (string, error) {
	if state == nil {
		return "", ErrInvalidState
	}

	now := time.Now()
	if state.IssuedAt == 0 {
		state.IssuedAt = now.Unix()
	}
	if state.ExpiresAt == 0 {
		state.ExpiresAt = now.Add(c.ttl).Unix()
	}
	if state.Nonce == "" {
		state.Nonce = generateNonce()
	}

	payload, err := json.Marshal(state)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "could not marshal state")
	}

	mac := hmac.New(sha256.New, c.key)
	mac.Write(payload)
	signed := append(mac.Sum(nil), payload...)

	return base64.URLEncoding.EncodeToString(signed), nil
}

// Decode verifies the signature and expiry, returning the state.
func (c *StateCodec) Decode(token string) (*State, error) {
	data, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidState
	}

	if len(data) < sha256.Size {
		return nil, ErrInvalidState
	}

	signature, payload := data[:sha256.Size], data[sha256.Size:]

	mac := hmac.New(sha256.New, c.key)
	mac.Write(payload)
	if !hmac.Equal(signature, mac.Sum(nil)) {
		return nil, ErrInvalidState
	}

	state := &State{}
	if err := json.Unmarshal(payload, state); err != nil {
		return nil, ErrInvalidState
	}

	if time.Now().Unix() > state.ExpiresAt {
		return nil, ErrInvalidState
	}

	return state, nil
}

func generateNonce() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}
