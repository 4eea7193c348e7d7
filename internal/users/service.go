package users

import (
	"context"

	"github.com/ucouncil/portal/backend/go-services/internal/models"
)

// Service encapsulates member lookups and claim-driven upserts.
type Service struct {
	repo UserRepository
}

func NewService(r UserRepository) *Service {
	return &Service{repo: r}
}

// UpsertFromClaims creates or updates a member using OIDC claims map
func (s *Service) UpsertFromClaims(ctx context.Context, claims map[string]interface{}) (*models.User, error) {
	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	position, _ := claims["position"].(string)
	if sub == "" {
		return nil, nil
	}
	if name == "" {
		name, _ = claims["preferred_username"].(string)
	}
	u := &models.User{
		Sub:      sub,
		Email:    email,
		Name:     name,
		Position: position,
	}
	return s.repo.UpsertBySub(ctx, u)
}

func (s *Service) GetBySub(ctx context.Context, sub string) (*models.User, error) {
	return s.repo.GetBySub(ctx, sub)
}

// DisplayName resolves a lease holder id to the name shown to other editors.
// Unknown members resolve to their id.
func (s *Service) DisplayName(ctx context.Context, sub string) (string, error) {
	u, err := s.repo.GetBySub(ctx, sub)
	if err != nil {
		return "", err
	}
	if u == nil {
		return sub, nil
	}
	return u.DisplayName(), nil
}
