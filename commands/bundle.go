package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"sbadm/archive"
	"sbadm/asset"
	"sbadm/common"
	"sbadm/entity"
	"sbadm/export"
	"sbadm/state"
)

// Bundle downloads storybook with all of its images into single archive
// usable by preview and export without API access.
func Bundle(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("bundle")
	env.Overwrite = cmd.Bool("overwrite")

	id := cmd.Args().Get(0)
	if len(id) == 0 {
		return errors.New("no storybook id has been specified")
	}
	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		var err error
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}

	client, err := newClient(env)
	if err != nil {
		return err
	}
	rec, err := client.Detail(ctx, common.ResourceStorybooks, id)
	if err != nil {
		return fmt.Errorf("unable to get storybook %s: %w", id, err)
	}
	book, err := entity.Decode[entity.Storybook](rec)
	if err != nil {
		return err
	}

	name := strings.TrimSuffix(export.FileName(book, &env.Cfg.Export, log), ".pdf") + ".zip"
	out, err := destination(dst, name, env, log)
	if err != nil {
		return err
	}

	loader := asset.NewLoader(client, nil, nil, env.Log)
	packed, assets, perr := archive.Pack(ctx, book, loader, log)
	if packed == nil {
		return fmt.Errorf("unable to pack storybook: %w", perr)
	}
	if perr != nil {
		// bundle is still usable, missing images are fetched on render
		log.Warn("Some assets were not packed", zap.Error(perr))
	}

	var buf bytes.Buffer
	if err := archive.WriteBundle(&buf, packed, assets); err != nil {
		return err
	}
	if err := os.WriteFile(out, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("unable to write bundle: %w", err)
	}
	log.Info("Bundle written", zap.String("file", out), zap.Int("assets", len(assets)))
	return nil
}
