package commands

import (
	"context"
	"net/url"
	"sync"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"sbadm/common"
	"sbadm/entity"
	"sbadm/state"
	"sbadm/stream"
)

// Watch keeps a page of resource collection up to date with live updates
// and redraws it on every change until interrupted.
func Watch(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("watch")

	resource, err := parseResource(cmd.Args().Get(0))
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
	ctrl := view.Controller()
	defer ctrl.Stop()

	if err := applyFilters(ctx, cmd, ctrl, log); err != nil {
		return err
	}

	var mu sync.Mutex
	out := output(cmd)
	redraw := func() {
		mu.Lock()
		defer mu.Unlock()
		renderList(out, resource, view, env.Cfg.API.MaxAttempts)
	}
	refresh := func() {
		applied, err := view.Refresh(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Warn("Unable to refresh list, keeping previous", zap.Error(err))
			}
			return
		}
		if applied {
			redraw()
		}
	}

	if _, err := view.Refresh(ctx); err != nil {
		return err
	}
	redraw()
	// server may move us to another page, follow it
	ctrl.OnChange(func() { go refresh() })

	params := url.Values{}
	params.Set("resource", resource.String())
	if id := cmd.String("storybook"); len(id) > 0 {
		params.Set("storybookId", id)
	}

	sub := stream.New(client, stream.Options{
		URL:             client.StreamURL(env.Cfg.Stream.Path, params),
		ReconnectDelay:  env.Cfg.Stream.ReconnectDelay,
		RefreshDebounce: env.Cfg.Stream.RefreshDebounce,
		Handler: func(rec entity.Record) {
			view.Apply(rec)
			redraw()
		},
		Refresh: refresh,
		OnState: func(st common.ConnState) {
			switch st {
			case common.ConnStateError:
				log.Warn("Live updates interrupted")
			case common.ConnStateConnected:
				log.Info("Live updates connected")
			}
		},
	}, env.Log)

	if err := sub.Start(ctx); err != nil {
		return err
	}
	log.Info("Watching for updates, interrupt to stop", zap.Stringer("resource", resource))
	<-ctx.Done()
	sub.Stop()
	log.Info("Stopped watching")
	return nil
}
