// Package commands implements program subcommands on top of the processing
// packages.
package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"sbadm/api"
	"sbadm/archive"
	"sbadm/asset"
	"sbadm/common"
	"sbadm/entity"
	"sbadm/layout"
	"sbadm/listview"
	"sbadm/reconcile"
	"sbadm/state"
)

// session keeps collaborators shared by commands rendering a storybook.
type session struct {
	env    *state.LocalEnv
	log    *zap.Logger
	client *api.Client
	bundle *archive.Bundle
	book   *entity.Storybook
	fonts  *layout.Fonts
	loader *asset.Loader
}

func parseResource(name string) (common.Resource, error) {
	if len(name) == 0 {
		return 0, errors.New("no resource has been specified")
	}
	r, err := common.ParseResource(name)
	if err != nil {
		return 0, fmt.Errorf("unknown resource %q: %w", name, err)
	}
	return r, nil
}

func newClient(env *state.LocalEnv) (*api.Client, error) {
	client, err := api.New(&env.Cfg.API, nil, env.Log)
	if err != nil {
		return nil, fmt.Errorf("unable to create API client: %w", err)
	}
	return client, nil
}

// newView prepares list of resource with configured paging and merge rules.
func newView(env *state.LocalEnv, resource common.Resource, client listview.Client, log *zap.Logger) (*listview.View, error) {
	lc := &env.Cfg.Lists
	ctrl, err := listview.NewController(listview.Settings{
		AllowedLimits:  lc.AllowedLimits,
		DefaultLimit:   lc.DefaultLimit,
		SearchDebounce: lc.SearchDebounce,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to prepare list controller: %w", err)
	}
	opts := reconcile.Options{ArrayFields: lc.ArrayFields}
	if resource == common.ResourceGenerations {
		opts.Retain = lc.GenerationsRetain
	}
	return listview.NewView(resource, ctrl, client, opts, log), nil
}

// openSession loads storybook either from offline bundle (--bundle) or
// from API by id given as first argument.
func openSession(ctx context.Context, cmd *cli.Command, name string) (*session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	env := state.EnvFromContext(ctx)
	s := &session{env: env, log: env.Log.Named(name)}

	var err error
	if s.client, err = newClient(env); err != nil {
		return nil, err
	}

	if path := cmd.String("bundle"); len(path) > 0 {
		if s.bundle, err = archive.OpenBundle(path); err != nil {
			return nil, err
		}
		s.book = s.bundle.Book
		s.log.Debug("Using offline bundle", zap.String("file", path), zap.Int("entries", len(s.bundle.Names())))
	} else {
		id := cmd.Args().Get(0)
		if len(id) == 0 {
			return nil, errors.New("no storybook id or bundle has been specified")
		}
		rec, err := s.client.Detail(ctx, common.ResourceStorybooks, id)
		if err != nil {
			return nil, fmt.Errorf("unable to get storybook %s: %w", id, err)
		}
		if s.book, err = entity.Decode[entity.Storybook](rec); err != nil {
			return nil, err
		}
	}

	if err := env.LoadDecorations(); err != nil {
		return nil, err
	}
	if s.fonts, err = layout.LoadFonts(env.Cfg.Render.Font.Path); err != nil {
		return nil, err
	}
	var bundle asset.Bundle
	if s.bundle != nil {
		bundle = s.bundle
	}
	s.loader = asset.NewLoader(s.client, bundle, env.Placeholder, env.Log)
	return s, nil
}

// layoutContext returns model inputs for the book, reader name may be
// overridden from command line.
func (s *session) layoutContext(reader string) *layout.Context {
	if len(reader) == 0 {
		reader = s.book.ReaderName
	}
	return &layout.Context{
		ReaderName: reader,
		Gender:     s.book.Gender(),
		Render:     &s.env.Cfg.Render,
		Measurer:   s.fonts,
	}
}

// destination resolves output file name, refusing to replace existing file
// unless overwrite was requested.
func destination(dir, name string, env *state.LocalEnv, log *zap.Logger) (string, error) {
	out, err := filepath.Abs(filepath.Join(dir, name))
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(out); err == nil {
		if !env.Overwrite {
			return "", fmt.Errorf("output file already exists: %s", out)
		}
		log.Warn("Overwriting existing file", zap.String("file", out))
	} else if !os.IsNotExist(err) {
		return "", err
	} else if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return "", fmt.Errorf("unable to create output directory: %w", err)
	}
	return out, nil
}
