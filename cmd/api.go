package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/desertthunder/framelabel/internal/services"
	"github.com/desertthunder/framelabel/internal/shared"
	"github.com/urfave/cli/v3"
)

// apiPath turns the path argument into a server-relative path.
//
// "api/projects", "/api/projects" and "{base_url}/api/projects" all resolve to "/api/projects".
func (r *Runner) apiPath(cmd *cli.Command) (string, error) {
	path := strings.TrimSpace(cmd.StringArg("path"))
	path = strings.TrimPrefix(path, r.api.BaseURL())
	if path == "" {
		return "", fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path, nil
}

// printAPIResponse writes a 2xx reply, JSON when the body parses as JSON.
func (r *Runner) printAPIResponse(resp *services.APIResponse, err error, pretty bool) error {
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d, body: %s", shared.ErrAPIRequest, resp.StatusCode, strings.TrimSpace(string(resp.Body)))
	}

	if resp.IsJSON {
		return r.writeJSON(resp.JSONData, pretty)
	}
	return r.writePlain("%s\n", resp.Body)
}

// APIGet makes a direct GET request to the server
func (r *Runner) APIGet(ctx context.Context, cmd *cli.Command) error {
	path, err := r.apiPath(cmd)
	if err != nil {
		return err
	}

	r.logger.Info("GET request", "path", path)
	resp, err := r.api.Get(ctx, path)
	return r.printAPIResponse(resp, err, !cmd.Bool("json"))
}

// APIPost sends --data as a JSON body, e.g. to overwrite the annotations of a frame.
func (r *Runner) APIPost(ctx context.Context, cmd *cli.Command) error {
	path, err := r.apiPath(cmd)
	if err != nil {
		return err
	}

	data := []byte(cmd.String("data"))
	if len(data) == 0 {
		return fmt.Errorf("%w: --data flag is required", shared.ErrMissingArgument)
	}
	if !json.Valid(data) {
		return fmt.Errorf("%w: data is not valid JSON", shared.ErrInvalidInput)
	}

	r.logger.Info("POST request", "path", path, "bytes", len(data))
	resp, err := r.api.Post(ctx, path, data)
	return r.printAPIResponse(resp, err, true)
}
