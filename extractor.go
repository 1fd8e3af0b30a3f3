package authware

import (
	"errors"
	"strings"

	"github.com/goliatone/go-router"
)

// DefaultTokenLookup is checked in order: header first so API clients are
// never forced into cookie semantics, then query, then cookie.
const DefaultTokenLookup = "header:" + router.HeaderAuthorization + ",query:access_token,cookie:access_token"

// ErrTokenNotFound is returned when no extractor produced a credential.
var ErrTokenNotFound = errors.New("missing or malformed JWT")

// ExtractToken runs the extractor chain and returns the first non-empty hit.
func ExtractToken(c router.Context, extractors []TokenExtractor) (string, error) {
	var raw string
	var err error

	for _, extractor := range extractors {
		raw, err = extractor(c)
		if raw != "" && err == nil {
			break
		}
	}

	if raw == "" {
		return "", ErrTokenNotFound
	}

	return raw, nil
}

// GetExtractors builds the extractor chain from a lookup string in the
// form "header:Authorization,query:access_token,cookie:access_token".
func GetExtractors(tokenLookup string, authSchemes ...string) []TokenExtractor {
	extractors := make([]TokenExtractor, 0)

	authScheme := "Bearer"
	if len(authSchemes) > 0 {
		authScheme = authSchemes[0]
	}

	rootParts := strings.Split(tokenLookup, ",")
	for _, rootPart := range rootParts {
		parts := strings.Split(strings.TrimSpace(rootPart), ":")
		if len(parts) != 2 {
			continue
		}

		for i, el := range parts {
			parts[i] = strings.TrimSpace(el)
		}

		switch parts[0] {
		case "header":
			extractors = append(extractors, tokenFromHeader(parts[1], authScheme))
		case "query":
			extractors = append(extractors, tokenFromQuery(parts[1]))
		case "cookie":
			extractors = append(extractors, tokenFromCookie(parts[1]))
		}
	}

	return extractors
}

// tokenFromHeader strips a leading, case-insensitive scheme prefix if one is
// present; a header without the scheme is treated as the raw token.
func tokenFromHeader(header string, authScheme string) TokenExtractor {
	return func(c router.Context) (string, error) {
		a := c.GetString(header, "")
		if a == "" {
			return "", ErrTokenNotFound
		}

		scheme := strings.TrimSpace(authScheme)
		l := len(scheme)
		if l > 0 && len(a) > l+1 && strings.EqualFold(a[:l], scheme) {
			return strings.TrimSpace(a[l:]), nil
		}

		return strings.TrimSpace(a), nil
	}
}

func tokenFromQuery(param string) TokenExtractor {
	return func(c router.Context) (string, error) {
		token := c.Query(param, "")
		if token == "" {
			return "", ErrTokenNotFound
		}
		return token, nil
	}
}

func tokenFromCookie(name string) TokenExtractor {
	return func(c router.Context) (string, error) {
		token := c.Cookies(name)
		if token == "" {
			return "", ErrTokenNotFound
		}
		return token, nil
	}
}
