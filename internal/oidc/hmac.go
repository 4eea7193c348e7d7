package oidc

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/ucouncil/portal/backend/go-services/internal/tokens"
	"github.com/ucouncil/portal/backend/go-services/pkg/middleware"
)

// claimsToken exposes already-verified claims through the middleware.Token interface.
type claimsToken struct {
	claims map[string]interface{}
}

func (t *claimsToken) Claims(v interface{}) error {
	b, err := json.Marshal(t.claims)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// HMACVerifier accepts HS256 tokens minted by the portal (see portalctl token).
type HMACVerifier struct {
	secret string
}

func NewHMACVerifier(secret string) *HMACVerifier { return &HMACVerifier{secret: secret} }

func (v *HMACVerifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	claims, err := tokens.ParseAccessToken(v.secret, raw)
	if err != nil {
		return nil, err
	}
	return &claimsToken{claims: claims}, nil
}

// ChainVerifier tries each verifier in order and returns the first success.
type ChainVerifier []middleware.Verifier

func (c ChainVerifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	if len(c) == 0 {
		return nil, errors.New("no token verifier configured")
	}
	var errs []error
	for _, v := range c {
		tok, err := v.Verify(ctx, raw)
		if err == nil {
			return tok, nil
		}
		errs = append(errs, err)
	}
	return nil, errors.Join(errs...)
}
