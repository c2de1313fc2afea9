package services

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// NewHTTPClient builds the client used for every server call.
//
// When token is set, requests carry it as a bearer credential through an [oauth2.StaticTokenSource].
// A positive timeout bounds each request end to end.
func NewHTTPClient(ctx context.Context, token string, timeout time.Duration) *http.Client {
	var client *http.Client
	if token != "" {
		client = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}))
	} else {
		client = &http.Client{}
	}
	client.Timeout = timeout
	return client
}

// Health reports whether the server answers its project listing, used by `auth status`.
func (a *APIService) Health(ctx context.Context) error {
	_, err := a.ListProjects(ctx)
	return err
}
