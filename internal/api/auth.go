package api

import (
	"context"
	"fmt"
	"net/http"
)

// ObtainToken exchanges credentials for an access/refresh token pair.
func (c *Client) ObtainToken(ctx context.Context, username, password string) (TokenPair, error) {
	var pair TokenPair
	body := map[string]string{"username": username, "password": password}
	if _, err := c.send(ctx, request{method: http.MethodPost, path: "/api/token/", body: body}, &pair); err != nil {
		return TokenPair{}, err
	}
	if pair.Access == "" {
		return TokenPair{}, fmt.Errorf("token response missing access token")
	}
	return pair, nil
}

// RefreshToken trades a refresh token for a new access token.
func (c *Client) RefreshToken(ctx context.Context, refresh string) (TokenPair, error) {
	var pair TokenPair
	body := map[string]string{"refresh": refresh}
	if _, err := c.send(ctx, request{method: http.MethodPost, path: "/api/token/refresh/", body: body}, &pair); err != nil {
		return TokenPair{}, err
	}
	if pair.Access == "" {
		return TokenPair{}, fmt.Errorf("refresh response missing access token")
	}
	return pair, nil
}

// Register creates a new account.
func (c *Client) Register(ctx context.Context, reg Registration) error {
	_, err := c.send(ctx, request{method: http.MethodPost, path: "/api/user/register/", body: reg}, nil)
	return err
}
