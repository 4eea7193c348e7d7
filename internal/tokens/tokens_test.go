package tokens

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"github.com/ucouncil/portal/backend/go-services/internal/config"
	"github.com/ucouncil/portal/backend/go-services/internal/models"
)

func cfgWithSecret(secret string) *config.Config {
	cfg := &config.Config{}
	cfg.JWT.Secret = secret
	return cfg
}

func seg(b []byte) string { return base64.RawURLEncoding.EncodeToString(b) }

func TestGenerateAndParse(t *testing.T) {
	cfg := cfgWithSecret("test-secret-32-bytes-should-be-long-enough")
	u := &models.User{Sub: "user-123", Name: "Test User", Email: "test@example.edu", Position: "Treasurer"}

	tokenStr, err := GenerateAccessToken(cfg, u, 2*time.Minute)
	require.NoError(t, err)

	claims, err := ParseAccessToken(cfg.JWT.Secret, tokenStr)
	require.NoError(t, err)
	require.Equal(t, "user-123", claims["sub"])
	require.Equal(t, "Treasurer", claims["position"])
	require.Equal(t, Issuer, claims["iss"])
}

func TestGenerateRequiresSecret(t *testing.T) {
	_, err := GenerateAccessToken(&config.Config{}, &models.User{Sub: "x"}, time.Minute)
	require.ErrorIs(t, err, ErrNoSecret)
	_, err = ParseAccessToken("", "a.b.c")
	require.ErrorIs(t, err, ErrNoSecret)
}

func TestParse_Expired(t *testing.T) {
	cfg := cfgWithSecret("another-secret-32-bytes-longgggg")
	tokenStr, err := GenerateAccessToken(cfg, &models.User{Sub: "u2"}, -time.Minute)
	require.NoError(t, err)
	_, err = ParseAccessToken(cfg.JWT.Secret, tokenStr)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestParse_WrongSecretFails(t *testing.T) {
	cfg := cfgWithSecret("secret-one-32-bytes-xxxxxxxxxxxxxxxx")
	tokenStr, err := GenerateAccessToken(cfg, &models.User{Sub: "u3"}, 2*time.Minute)
	require.NoError(t, err)
	_, err = ParseAccessToken("different-secret-xxxxxxxxxxxxxxxx", tokenStr)
	require.Error(t, err)
}

func TestParse_Malformed(t *testing.T) {
	_, err := ParseAccessToken("x", "not.a.jwt")
	require.Error(t, err)
}

func TestParse_AlgNoneRejected(t *testing.T) {
	headerEnc := seg([]byte(`{"alg":"none"}`))
	payloadEnc := seg([]byte(`{"sub":"u-none","iss":"council-portal","exp":9999999999}`))
	_, err := ParseAccessToken("x", headerEnc+"."+payloadEnc+".")
	require.Error(t, err)
}

func TestParse_ForeignIssuerRejected(t *testing.T) {
	secret := "issuer-secret-32-bytes-xxxxxxxxxxxx"
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": "someone-else", "sub": "u", "exp": time.Now().Add(time.Minute).Unix(),
	})
	raw, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)
	_, err = ParseAccessToken(secret, raw)
	require.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)
}

func TestParse_TamperedPayload(t *testing.T) {
	cfg := cfgWithSecret("tamper-test-secret-32-bytes-xxxxxxx")
	tokenStr, err := GenerateAccessToken(cfg, &models.User{Sub: "user-t"}, 5*time.Minute)
	require.NoError(t, err)
	parts := strings.Split(tokenStr, ".")
	require.Len(t, parts, 3)
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	parts[1] = seg([]byte(strings.Replace(string(payload), "user-t", "attacker", 1)))
	_, err = ParseAccessToken(cfg.JWT.Secret, strings.Join(parts, "."))
	require.Error(t, err)
}
