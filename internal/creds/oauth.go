package creds

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
)

// OAuthRefresher refreshes credentials through an OAuth2 token endpoint.
type OAuthRefresher struct {
	Config *oauth2.Config
}

// Refresh exchanges the refresh token for a new access token. The refresh
// token itself is preserved when the endpoint does not rotate it.
func (r *OAuthRefresher) Refresh(ctx context.Context, accountID string, cred Credential) (Credential, error) {
	src := r.Config.TokenSource(ctx, &oauth2.Token{RefreshToken: cred.RefreshToken})
	token, err := src.Token()
	if err != nil {
		return Credential{}, fmt.Errorf("token endpoint rejected refresh: %w", err)
	}

	fresh := Credential{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
	}
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = cred.RefreshToken
	}
	return fresh, nil
}

// TokenSource adapts the coordinator to oauth2.TokenSource for one account,
// so provider clients pick up refreshed credentials transparently.
func (c *Coordinator) TokenSource(ctx context.Context, accountID string) oauth2.TokenSource {
	return &coordinatorSource{ctx: ctx, coord: c, accountID: accountID}
}

type coordinatorSource struct {
	ctx       context.Context
	coord     *Coordinator
	accountID string
}

func (s *coordinatorSource) Token() (*oauth2.Token, error) {
	cred, err := s.coord.Credential(s.ctx, s.accountID)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		Expiry:       cred.Expiry,
	}, nil
}
