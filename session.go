package authware

import (
	"fmt"
	"time"
)

// SessionObject is a transport friendly view of a verified token, the
// shape handed to templates and downstream handlers that do not care
// about JWT mechanics.
type SessionObject struct {
	UserID         string         `json:"user_id,omitempty"`
	Email          string         `json:"email,omitempty"`
	Name           string         `json:"name,omitempty"`
	Audience       []string       `json:"audience,omitempty"`
	Issuer         string         `json:"issuer,omitempty"`
	IssuedAt       *time.Time     `json:"issued_at,omitempty"`
	ExpirationDate *time.Time     `json:"expiration_date,omitempty"`
	Data           map[string]any `json:"data,omitempty"`
}

func (s SessionObject) String() string {
	issuedAt := "<nil>"
	if s.IssuedAt != nil {
		issuedAt = s.IssuedAt.Format(time.RFC1123)
	}
	return fmt.Sprintf(
		"user=%s email=%s aud=%v iss=%s iat=%s",
		s.UserID,
		s.Email,
		s.Audience,
		s.Issuer,
		issuedAt,
	)
}

// NewSession builds a SessionObject from verified claims.
func NewSession(claims *UserClaims) (*SessionObject, error) {
	if claims == nil {
		return nil, ErrUnableToParseData
	}

	data := map[string]any{
		"status":   string(claims.Status),
		"identity": claims.Identity,
	}

	if claims.Avatar != "" {
		data["avatar"] = claims.Avatar
	}

	if claims.Scope != "" {
		data["scope"] = claims.Scope
	}

	var audience []string
	for _, aud := range claims.RegisteredClaims.Audience {
		audience = append(audience, aud)
	}

	issuedAt := claims.IssuedAt()
	expiresAt := claims.Expires()

	return &SessionObject{
		UserID:         claims.UserID(),
		Email:          claims.Email,
		Name:           claims.Name,
		Audience:       audience,
		Issuer:         claims.RegisteredClaims.Issuer,
		Data:           data,
		IssuedAt:       &issuedAt,
		ExpirationDate: &expiresAt,
	}, nil
}
