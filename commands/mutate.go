package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"sbadm/state"
)

// recordBody builds request body from JSON document (--json) with --set
// name=value pairs laid over it. Values are YAML scalars, so numbers and
// booleans keep their types.
func recordBody(cmd *cli.Command) (map[string]any, error) {
	body := make(map[string]any)
	if path := cmd.String("json"); len(path) > 0 {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("unable to read record: %w", err)
		}
		if err := json.Unmarshal(data, &body); err != nil {
			return nil, fmt.Errorf("unable to decode record %s: %w", path, err)
		}
	}
	for _, kv := range cmd.StringSlice("set") {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || len(name) == 0 {
			return nil, fmt.Errorf("malformed field %q, expected name=value", kv)
		}
		var v any
		if err := yaml.Unmarshal([]byte(value), &v); err != nil {
			v = value
		}
		switch v.(type) {
		case map[string]any, []any:
			// structures only come from --json
			v = value
		}
		body[name] = v
	}
	if len(body) == 0 {
		return nil, errors.New("nothing to save, use --json or --set")
	}
	return body, nil
}

// Save creates new record of resource or, when id is given, updates
// existing one. Server answer is printed.
func Save(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("save")

	resource, err := parseResource(cmd.Args().Get(0))
	if err != nil {
		return err
	}
	id := cmd.Args().Get(1)
	body, err := recordBody(cmd)
	if err != nil {
		return err
	}

	client, err := newClient(env)
	if err != nil {
		return err
	}
	view, err := newView(env, resource, client, log)
	if err != nil {
		return err
	}
	defer view.Controller().Stop()

	rec, err := view.Save(ctx, id, body)
	if err != nil {
		return err
	}
	if len(id) == 0 {
		log.Info("Record created", zap.Stringer("resource", resource), zap.String("id", rec.ID()))
	} else {
		log.Info("Record updated", zap.Stringer("resource", resource), zap.String("id", id))
	}
	renderRecord(output(cmd), resource, rec)
	return nil
}

// Delete removes records of resource by id. All ids are tried, failures
// are reported together.
func Delete(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("delete")

	resource, err := parseResource(cmd.Args().Get(0))
	if err != nil {
		return err
	}
	ids := cmd.Args().Tail()
	if len(ids) == 0 {
		return errors.New("no record id has been specified")
	}

	client, err := newClient(env)
	if err != nil {
		return err
	}
	view, err := newView(env, resource, client, log)
	if err != nil {
		return err
	}
	defer view.Controller().Stop()

	var errs error
	for _, id := range ids {
		if err := view.Delete(ctx, id); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		log.Info("Record deleted", zap.Stringer("resource", resource), zap.String("id", id))
	}
	return errs
}
