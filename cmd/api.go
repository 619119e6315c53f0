package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/desertthunder/todox/internal/services"
	"github.com/desertthunder/todox/internal/shared"
	"github.com/urfave/cli/v3"
)

func (r *Runner) writeResponse(resp *services.APIResponse, pretty bool) error {
	r.logger.Debug("response", "status", resp.StatusCode, "request_id", resp.RequestID,
		"content_type", resp.Headers.Get("Content-Type"))

	if resp.IsJSON {
		return r.writeJSON(resp.JSONData, pretty)
	}
	if len(resp.Body) == 0 {
		return r.writePlain("%d (no content)\n", resp.StatusCode)
	}
	if _, err := r.output.Write(resp.Body); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	_, err := r.output.Write([]byte("\n"))
	return err
}

func apiPath(cmd *cli.Command) (string, error) {
	path := cmd.StringArg("path")
	if path == "" {
		return "", fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}
	return path, nil
}

func apiBody(cmd *cli.Command) ([]byte, error) {
	data := cmd.String("data")
	if data == "" {
		return nil, fmt.Errorf("%w: --data flag is required", shared.ErrMissingArgument)
	}

	var jsonTest any
	if err := json.Unmarshal([]byte(data), &jsonTest); err != nil {
		return nil, fmt.Errorf("%w: data is not valid JSON: %v", shared.ErrInvalidInput, err)
	}
	return []byte(data), nil
}

// callAPI opens the session stack, performs one raw call and prints the response.
//
// Failures are classified like any other call, so a 401 here ends the session.
func (r *Runner) callAPI(ctx context.Context, method, path string, pretty bool,
	call func(ctx context.Context) (*services.APIResponse, error)) error {
	if err := r.open(ctx); err != nil {
		return err
	}

	r.logger.Info(method+" request", "path", path)

	resp, err := call(ctx)
	if err != nil {
		if resp != nil {
			r.writeResponse(resp, true)
		}
		return reported(r.dispatcher.Handle(err, r.fieldPrinter()))
	}
	return r.writeResponse(resp, pretty)
}

// APIGet makes a direct GET request with the session token attached.
func (r *Runner) APIGet(ctx context.Context, cmd *cli.Command) error {
	path, err := apiPath(cmd)
	if err != nil {
		return err
	}
	return r.callAPI(ctx, "GET", path, !cmd.Bool("json"), func(ctx context.Context) (*services.APIResponse, error) {
		return r.api.Get(ctx, path)
	})
}

// APIPost makes a direct POST request with a JSON body.
func (r *Runner) APIPost(ctx context.Context, cmd *cli.Command) error {
	path, err := apiPath(cmd)
	if err != nil {
		return err
	}
	data, err := apiBody(cmd)
	if err != nil {
		return err
	}
	return r.callAPI(ctx, "POST", path, true, func(ctx context.Context) (*services.APIResponse, error) {
		return r.api.Post(ctx, path, data)
	})
}

// APIPut makes a direct PUT request with a JSON body.
func (r *Runner) APIPut(ctx context.Context, cmd *cli.Command) error {
	path, err := apiPath(cmd)
	if err != nil {
		return err
	}
	data, err := apiBody(cmd)
	if err != nil {
		return err
	}
	return r.callAPI(ctx, "PUT", path, true, func(ctx context.Context) (*services.APIResponse, error) {
		return r.api.Put(ctx, path, data)
	})
}

// APIPatch makes a direct PATCH request with a JSON body.
func (r *Runner) APIPatch(ctx context.Context, cmd *cli.Command) error {
	path, err := apiPath(cmd)
	if err != nil {
		return err
	}
	data, err := apiBody(cmd)
	if err != nil {
		return err
	}
	return r.callAPI(ctx, "PATCH", path, true, func(ctx context.Context) (*services.APIResponse, error) {
		return r.api.Patch(ctx, path, data)
	})
}

// APIDelete makes a direct DELETE request.
func (r *Runner) APIDelete(ctx context.Context, cmd *cli.Command) error {
	path, err := apiPath(cmd)
	if err != nil {
		return err
	}
	return r.callAPI(ctx, "DELETE", path, true, func(ctx context.Context) (*services.APIResponse, error) {
		return r.api.Delete(ctx, path)
	})
}
