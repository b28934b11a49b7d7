package oidc

import (
	"bytes"
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"barista/internal/config"
	"barista/internal/domain"
)

func newTestAuthenticator(t *testing.T, privKey *rsa.PrivateKey) *Authenticator {
	t.Helper()
	jwksURL := "https://jwks.test/keys"
	jwks := buildJWKS(t, &privKey.PublicKey, "kid-1")
	client := &http.Client{
		Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if req.URL.String() == jwksURL {
				return jsonResponse(http.StatusOK, jwks), nil
			}
			return jsonResponse(http.StatusNotFound, `{}`), nil
		}),
	}
	cfg := config.Config{
		OIDCIssuerURL:     "https://issuer.test",
		OIDCAudience:      "drinks-api",
		OIDCJWKSURL:       jwksURL,
		OIDCClockSkewSecs: 0,
	}
	auth, err := NewAuthenticator(cfg, WithHTTPClient(client))
	if err != nil {
		t.Fatalf("new authenticator: %v", err)
	}
	return auth
}

func validClaims(now time.Time) map[string]any {
	return map[string]any{
		"iss":         "https://issuer.test",
		"aud":         "drinks-api",
		"sub":         "user-1",
		"permissions": []string{"get:drinks-detail"},
		"exp":         now.Add(5 * time.Minute).Unix(),
	}
}

func TestAuthenticate_ValidToken(t *testing.T) {
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	auth := newTestAuthenticator(t, privKey)

	token := signToken(t, privKey, "kid-1", validClaims(time.Now().UTC()))
	claims, err := auth.Authenticate(context.Background(), "Bearer "+token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if claims.Subject() != "user-1" {
		t.Fatalf("unexpected subject: %s", claims.Subject())
	}
	perms, ok := claims.Permissions()
	if !ok || len(perms) != 1 || perms[0] != "get:drinks-detail" {
		t.Fatalf("unexpected permissions: %v (ok=%v)", perms, ok)
	}
}

func TestAuthenticate_FailureCodes(t *testing.T) {
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	auth := newTestAuthenticator(t, privKey)
	now := time.Now().UTC()

	cases := []struct {
		name     string
		header   string
		wantCode string
	}{
		{
			name:     "no header",
			header:   "",
			wantCode: domain.AuthCodeMissingHeader,
		},
		{
			name:     "not bearer scheme",
			header:   "Basic abc123",
			wantCode: domain.AuthCodeMalformedHeader,
		},
		{
			name:     "bearer with no token",
			header:   "Bearer",
			wantCode: domain.AuthCodeMalformedHeader,
		},
		{
			name:     "bearer with extra parts",
			header:   "Bearer one two",
			wantCode: domain.AuthCodeMalformedHeader,
		},
		{
			name:     "not a jwt",
			header:   "Bearer not-a-jwt",
			wantCode: domain.AuthCodeInvalidHeaderFormat,
		},
		{
			name:     "garbage header segment",
			header:   "Bearer !!!.payload.sig",
			wantCode: domain.AuthCodeInvalidHeaderFormat,
		},
		{
			name:     "missing kid",
			header:   "Bearer " + signTokenNoKid(t, privKey, validClaims(now)),
			wantCode: domain.AuthCodeInvalidHeaderFormat,
		},
		{
			name:     "unknown kid",
			header:   "Bearer " + signToken(t, privKey, "kid-unknown", validClaims(now)),
			wantCode: domain.AuthCodeKeyNotFound,
		},
		{
			name:     "wrong signing key",
			header:   "Bearer " + signToken(t, otherKey, "kid-1", validClaims(now)),
			wantCode: domain.AuthCodeInvalidHeader,
		},
		{
			name: "expired",
			header: "Bearer " + signToken(t, privKey, "kid-1", map[string]any{
				"iss": "https://issuer.test",
				"aud": "drinks-api",
				"exp": now.Add(-5 * time.Minute).Unix(),
			}),
			wantCode: domain.AuthCodeTokenExpired,
		},
		{
			name: "missing exp",
			header: "Bearer " + signToken(t, privKey, "kid-1", map[string]any{
				"iss": "https://issuer.test",
				"aud": "drinks-api",
			}),
			wantCode: domain.AuthCodeInvalidHeader,
		},
		{
			name: "wrong issuer",
			header: "Bearer " + signToken(t, privKey, "kid-1", map[string]any{
				"iss": "https://wrong",
				"aud": "drinks-api",
				"exp": now.Add(5 * time.Minute).Unix(),
			}),
			wantCode: domain.AuthCodeInvalidClaims,
		},
		{
			name: "wrong audience",
			header: "Bearer " + signToken(t, privKey, "kid-1", map[string]any{
				"iss": "https://issuer.test",
				"aud": "wrong",
				"exp": now.Add(5 * time.Minute).Unix(),
			}),
			wantCode: domain.AuthCodeInvalidClaims,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := auth.Authenticate(context.Background(), tc.header)
			authErr, ok := domain.IsAuthError(err)
			if !ok {
				t.Fatalf("expected auth error, got %v", err)
			}
			if authErr.Code != tc.wantCode {
				t.Fatalf("expected code %s, got %s", tc.wantCode, authErr.Code)
			}
			if authErr.Status != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", authErr.Status)
			}
		})
	}
}

func TestAuthenticate_ClaimsReturnedUnchanged(t *testing.T) {
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	auth := newTestAuthenticator(t, privKey)

	raw := validClaims(time.Now().UTC())
	raw["custom"] = "kept"
	token := signToken(t, privKey, "kid-1", raw)
	claims, err := auth.Authenticate(context.Background(), "Bearer "+token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if claims.Raw["custom"] != "kept" {
		t.Fatalf("expected custom claim to survive, got %v", claims.Raw["custom"])
	}
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func buildJWKS(t *testing.T, key *rsa.PublicKey, kid string) string {
	t.Helper()
	n := base64.RawURLEncoding.EncodeToString(key.N.Bytes())
	e := base64.RawURLEncoding.EncodeToString(bigIntToBytes(key.E))
	payload := map[string]any{
		"keys": []map[string]any{
			{
				"kty": "RSA",
				"kid": kid,
				"alg": "RS256",
				"use": "sig",
				"n":   n,
				"e":   e,
			},
		},
	}
	out, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal jwks: %v", err)
	}
	return string(out)
}

func signToken(t *testing.T, key *rsa.PrivateKey, kid string, claims map[string]any) string {
	t.Helper()
	header := map[string]any{"alg": "RS256", "typ": "JWT"}
	if kid != "" {
		header["kid"] = kid
	}
	return signTokenWithHeader(t, key, header, claims)
}

func signTokenNoKid(t *testing.T, key *rsa.PrivateKey, claims map[string]any) string {
	t.Helper()
	return signTokenWithHeader(t, key, map[string]any{"alg": "RS256", "typ": "JWT"}, claims)
}

func signTokenWithHeader(t *testing.T, key *rsa.PrivateKey, header, claims map[string]any) string {
	t.Helper()
	headerBytes, err := json.Marshal(header)
	if err != nil {
		t.Fatalf("marshal header: %v", err)
	}
	claimsBytes, err := json.Marshal(claims)
	if err != nil {
		t.Fatalf("marshal claims: %v", err)
	}
	signingInput := base64.RawURLEncoding.EncodeToString(headerBytes) + "." + base64.RawURLEncoding.EncodeToString(claimsBytes)
	hash := sha256.Sum256([]byte(signingInput))
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, hash[:])
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signingInput + "." + base64.RawURLEncoding.EncodeToString(sig)
}

func bigIntToBytes(value int) []byte {
	out := []byte{}
	for v := value; v > 0; v >>= 8 {
		out = append([]byte{byte(v & 0xff)}, out...)
	}
	if len(out) == 0 {
		return []byte{0}
	}
	return out
}
