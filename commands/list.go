package commands

import (
	"context"
	"fmt"
	"strings"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"sbadm/listview"
	"sbadm/state"
)

// applyFilters moves command line filters into controller. Search goes
// through the same debounce interactive input does, so we wait for it to
// settle before first fetch.
func applyFilters(ctx context.Context, cmd *cli.Command, ctrl *listview.Controller, log *zap.Logger) error {
	if limit := cmd.Int("limit"); limit > 0 {
		if err := ctrl.SetLimit(limit); err != nil {
			return err
		}
	}
	ctrl.SetStatus(cmd.String("status"))
	for _, f := range cmd.StringSlice("facet") {
		name, value, ok := strings.Cut(f, "=")
		if !ok || len(name) == 0 {
			log.Warn("Malformed facet, expected name=value", zap.String("facet", f))
			continue
		}
		ctrl.SetFacet(name, value)
	}

	if term := cmd.String("search"); len(term) > 0 {
		settled := make(chan struct{}, 1)
		ctrl.OnChange(func() {
			select {
			case settled <- struct{}{}:
			default:
			}
		})
		ctrl.SetSearch(term)
		select {
		case <-settled:
		case <-ctx.Done():
			return ctx.Err()
		}
		ctrl.OnChange(nil)
	}

	if page := cmd.Int("page"); page > 1 {
		ctrl.SetPage(page)
	}
	return nil
}

// List prints single page of resource collection.
func List(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("list")

	resource, err := parseResource(cmd.Args().Get(0))
	if err != nil {
		return err
	}
	if cmd.Args().Len() > 1 {
		log.Warn("Malformed command line, too many arguments", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	client, err := newClient(env)
	if err != nil {
		return err
	}
	view, err := newView(env, resource, client, log)
	if err != nil {
		return err
	}
	ctrl := view.Controller()
	defer ctrl.Stop()

	if err := applyFilters(ctx, cmd, ctrl, log); err != nil {
		return err
	}

	log.Debug("Fetching list", zap.Stringer("resource", resource), zap.String("params", ctrl.RequestParams().Encode()))
	if _, err := view.Refresh(ctx); err != nil {
		return err
	}
	renderList(output(cmd), resource, view, env.Cfg.API.MaxAttempts)

	if env.Rpt != nil {
		env.Rpt.StoreData(fmt.Sprintf("lists/%s.txt", resource), []byte(ctrl.RequestParams().Encode()))
	}
	return nil
}
