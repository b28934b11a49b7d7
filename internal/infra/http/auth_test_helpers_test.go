package http

import (
	"bytes"
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
	"barista/internal/infra/auth/oidc"
)

const (
	testIssuer   = "https://issuer.test"
	testAudience = "drinks-api"
	testJWKSURL  = "https://jwks.test/keys"
	testKid      = "kid-1"
)

type testSigner struct {
	key           *rsa.PrivateKey
	authenticator *oidc.Authenticator
}

func newTestSigner(t *testing.T) *testSigner {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	jwks := buildJWKS(t, &key.PublicKey)
	client := &http.Client{
		Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if req.URL.String() == testJWKSURL {
				return jsonResponse(http.StatusOK, jwks), nil
			}
			return jsonResponse(http.StatusNotFound, `{}`), nil
		}),
	}
	cfg := config.Config{
		OIDCIssuerURL: testIssuer,
		OIDCAudience:  testAudience,
		OIDCJWKSURL:   testJWKSURL,
	}
	authenticator, err := oidc.NewAuthenticator(cfg, oidc.WithHTTPClient(client))
	if err != nil {
		t.Fatalf("new authenticator: %v", err)
	}
	return &testSigner{key: key, authenticator: authenticator}
}

// token signs a valid bearer token carrying the given permissions.
func (s *testSigner) token(t *testing.T, permissions ...string) string {
	t.Helper()
	return s.tokenWithClaims(t, map[string]any{
		"iss":         testIssuer,
		"aud":         testAudience,
		"sub":         "user-1",
		"permissions": permissions,
		"exp":         time.Now().UTC().Add(5 * time.Minute).Unix(),
	})
}

func (s *testSigner) expiredToken(t *testing.T, permissions ...string) string {
	t.Helper()
	return s.tokenWithClaims(t, map[string]any{
		"iss":         testIssuer,
		"aud":         testAudience,
		"sub":         "user-1",
		"permissions": permissions,
		"exp":         time.Now().UTC().Add(-5 * time.Minute).Unix(),
	})
}

func (s *testSigner) tokenWithClaims(t *testing.T, claims map[string]any) string {
	t.Helper()
	header := map[string]any{"alg": "RS256", "typ": "JWT", "kid": testKid}
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
	sig, err := rsa.SignPKCS1v15(rand.Reader, s.key, crypto.SHA256, hash[:])
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signingInput + "." + base64.RawURLEncoding.EncodeToString(sig)
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

func buildJWKS(t *testing.T, key *rsa.PublicKey) string {
	t.Helper()
	eBytes := []byte{}
	for v := key.E; v > 0; v >>= 8 {
		eBytes = append([]byte{byte(v & 0xff)}, eBytes...)
	}
	payload := map[string]any{
		"keys": []map[string]any{
			{
				"kty": "RSA",
				"kid": testKid,
				"alg": "RS256",
				"use": "sig",
				"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(eBytes),
			},
		},
	}
	out, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal jwks: %v", err)
	}
	return string(out)
}
