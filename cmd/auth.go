package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/desertthunder/framelabel/internal/services"
	"github.com/desertthunder/framelabel/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthStatus checks that the server answers with the configured credentials.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("checking auth status", "server", r.api.BaseURL())

	r.writePlain("Server: %s\n", r.api.BaseURL())
	if r.config.Server.Token != "" {
		r.writePlain("Token: configured\n")
	} else {
		r.writePlain("Token: none\n")
	}

	if err := r.api.Health(ctx); err != nil {
		switch services.StatusCode(err) {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %v", shared.ErrNotAuthenticated, err)
		default:
			return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
		}
	}

	return r.writePlain("✓ Service is healthy\n")
}
