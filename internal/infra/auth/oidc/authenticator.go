package oidc

import (
	"context"
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"barista/internal/config"
	"barista/internal/domain"
)

const (
	defaultHTTPTimeout = 5 * time.Second
	discoveryPath      = "/.well-known/openid-configuration"
)

// Authenticator verifies RS256 bearer tokens against a cached JWKS and the
// configured issuer/audience. Every failure is a *domain.AuthError carrying
// the code and status the caller sees.
type Authenticator struct {
	issuer    string
	audience  string
	jwksURL   string
	clockSkew time.Duration
	jwks      *jwksCache
}

type Option func(*Authenticator)

func WithHTTPClient(client *http.Client) Option {
	return func(a *Authenticator) {
		if client != nil {
			a.jwks.httpClient = client
		}
	}
}

func NewAuthenticator(cfg config.Config, opts ...Option) (*Authenticator, error) {
	issuer := strings.TrimSpace(cfg.OIDCIssuerURL)
	if issuer == "" {
		return nil, errors.New("OIDC_ISSUER_URL is required")
	}
	jwksURL := strings.TrimSpace(cfg.OIDCJWKSURL)
	client := &http.Client{Timeout: defaultHTTPTimeout}
	if jwksURL == "" {
		discovered, err := discoverJWKSURL(context.Background(), client, issuer)
		if err != nil {
			return nil, err
		}
		jwksURL = discovered
	}
	auth := &Authenticator{
		issuer:    issuer,
		audience:  strings.TrimSpace(cfg.OIDCAudience),
		jwksURL:   jwksURL,
		clockSkew: time.Duration(cfg.OIDCClockSkewSecs) * time.Second,
		jwks:      newJWKSCache(jwksURL, client),
	}
	for _, opt := range opts {
		opt(auth)
	}
	return auth, nil
}

func (a *Authenticator) Authenticate(ctx context.Context, authorizationHeader string) (domain.Claims, error) {
	tokenString, err := extractBearerToken(authorizationHeader)
	if err != nil {
		return domain.Claims{}, err
	}

	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 {
		return domain.Claims{}, domain.Unauthenticated(domain.AuthCodeInvalidHeaderFormat, "unable to parse token header")
	}
	header, err := decodeTokenHeader(parts[0])
	if err != nil {
		return domain.Claims{}, domain.Unauthenticated(domain.AuthCodeInvalidHeaderFormat, "unable to parse token header")
	}
	if alg, _ := header["alg"].(string); alg != "RS256" {
		return domain.Claims{}, domain.Unauthenticated(domain.AuthCodeInvalidHeaderFormat, "token must be signed with RS256")
	}
	kid, _ := header["kid"].(string)
	if kid == "" {
		return domain.Claims{}, domain.Unauthenticated(domain.AuthCodeInvalidHeaderFormat, "token header missing key id")
	}

	claims, signature, err := decodeTokenBody(parts[1], parts[2])
	if err != nil {
		return domain.Claims{}, domain.Unauthenticated(domain.AuthCodeInvalidHeader, "unable to parse token")
	}

	pubKey, err := a.jwks.getKey(ctx, kid)
	if err != nil {
		return domain.Claims{}, domain.Unauthenticated(domain.AuthCodeKeyNotFound, "no verification key matches the token key id")
	}
	signingInput := parts[0] + "." + parts[1]
	if err := verifyRS256(pubKey, signingInput, signature); err != nil {
		return domain.Claims{}, domain.Unauthenticated(domain.AuthCodeInvalidHeader, "token signature verification failed")
	}
	if authErr := a.validateClaims(claims); authErr != nil {
		return domain.Claims{}, authErr
	}
	return domain.Claims{Raw: claims}, nil
}

// extractBearerToken pulls the token out of an Authorization header value.
func extractBearerToken(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", domain.Unauthenticated(domain.AuthCodeMissingHeader, "authorization header is expected")
	}
	fields := strings.Fields(value)
	if len(fields) != 2 || !strings.EqualFold(fields[0], "bearer") {
		return "", domain.Unauthenticated(domain.AuthCodeMalformedHeader, "authorization header must be a bearer token")
	}
	return fields[1], nil
}

func decodeTokenHeader(segment string) (map[string]any, error) {
	headerBytes, err := base64.RawURLEncoding.DecodeString(segment)
	if err != nil {
		return nil, err
	}
	var header map[string]any
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return nil, err
	}
	return header, nil
}

func decodeTokenBody(claimsSegment, signatureSegment string) (map[string]any, []byte, error) {
	claimsBytes, err := base64.RawURLEncoding.DecodeString(claimsSegment)
	if err != nil {
		return nil, nil, err
	}
	var claims map[string]any
	if err := json.Unmarshal(claimsBytes, &claims); err != nil {
		return nil, nil, err
	}
	signature, err := base64.RawURLEncoding.DecodeString(signatureSegment)
	if err != nil {
		return nil, nil, err
	}
	return claims, signature, nil
}

func verifyRS256(pubKey *rsa.PublicKey, signingInput string, signature []byte) error {
	hash := sha256.Sum256([]byte(signingInput))
	return rsa.VerifyPKCS1v15(pubKey, crypto.SHA256, hash[:], signature)
}

func (a *Authenticator) validateClaims(claims map[string]any) *domain.AuthError {
	now := time.Now()
	exp, ok := parseNumericDate(claims["exp"])
	if !ok {
		return domain.Unauthenticated(domain.AuthCodeInvalidHeader, "token expiry claim is required")
	}
	if now.After(exp.Add(a.clockSkew)) {
		return domain.Unauthenticated(domain.AuthCodeTokenExpired, "token is expired")
	}
	if iss, _ := claims["iss"].(string); iss != a.issuer {
		return domain.Unauthenticated(domain.AuthCodeInvalidClaims, "incorrect issuer or audience")
	}
	if a.audience != "" && !audienceMatches(claims["aud"], a.audience) {
		return domain.Unauthenticated(domain.AuthCodeInvalidClaims, "incorrect issuer or audience")
	}
	return nil
}

func discoverJWKSURL(ctx context.Context, client *http.Client, issuer string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(issuer, "/")+discoveryPath, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errors.New("oidc discovery failed")
	}
	var payload struct {
		JWKSURI string `json:"jwks_uri"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	if payload.JWKSURI == "" {
		return "", errors.New("oidc discovery missing jwks_uri")
	}
	return payload.JWKSURI, nil
}

func parseNumericDate(value any) (time.Time, bool) {
	switch v := value.(type) {
	case float64:
		return time.Unix(int64(v), 0), true
	case int64:
		return time.Unix(v, 0), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return time.Time{}, false
		}
		return time.Unix(n, 0), true
	default:
		return time.Time{}, false
	}
}

func audienceMatches(raw any, expected string) bool {
	switch v := raw.(type) {
	case string:
		return v == expected
	case []any:
		for _, entry := range v {
			if s, ok := entry.(string); ok && s == expected {
				return true
			}
		}
	}
	return false
}
