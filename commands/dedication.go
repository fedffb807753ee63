package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"sbadm/common"
	"sbadm/entity"
	"sbadm/layout"
	"sbadm/state"
)

// CheckDedication verifies image could be accepted as dedication page
// background. With --upload image is then sent as background of dedication
// page of the storybook, rejected image never leaves the machine.
func CheckDedication(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("dedication")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no image has been specified")
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("unable to read image: %w", err)
	}

	want := env.Cfg.Render.Dedication
	img, err := layout.ValidateDedicationBackground(data, want.Width, want.Height)
	if err != nil {
		var verr *layout.ValidationError
		if errors.As(err, &verr) {
			log.Error("Image rejected", zap.String("file", src), zap.String("reason", verr.Message))
		}
		return err
	}
	b := img.Bounds()
	log.Info("Image accepted", zap.String("file", src), zap.Int("width", b.Dx()), zap.Int("height", b.Dy()))

	id := cmd.String("upload")
	if len(id) == 0 {
		return nil
	}
	return uploadDedication(ctx, cmd, env, id, src, data, log)
}

func uploadDedication(ctx context.Context, cmd *cli.Command, env *state.LocalEnv, id, src string, data []byte, log *zap.Logger) error {
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

	index, err := dedicationPage(book, cmd.Int("page"))
	if err != nil {
		return err
	}
	// local model takes the image first, upload happens only if it did
	want := env.Cfg.Render.Dedication
	if err := layout.AcceptDedicationBackground(&book.Pages[index], data, want.Width, want.Height); err != nil {
		return err
	}

	saved, err := client.Upload(ctx, common.ResourceStorybooks, id, "background", filepath.Base(src), data, map[string]string{
		"pageIndex": strconv.Itoa(index),
	})
	if err != nil {
		return fmt.Errorf("unable to upload dedication background: %w", err)
	}
	log.Info("Dedication background uploaded", zap.String("storybook", id), zap.Int("page", index+1))
	if saved.ID() != "" {
		renderRecord(output(cmd), common.ResourceStorybooks, saved)
	}
	return nil
}

// dedicationPage returns index of requested page (1 based) or, when number
// is 0, of the first dedication page. Page must be of dedication kind.
func dedicationPage(book *entity.Storybook, number int) (int, error) {
	if number == 0 {
		for i := range book.Pages {
			if book.Pages[i].Kind() == common.PageKindDedication {
				return i, nil
			}
		}
		return 0, fmt.Errorf("storybook %s has no dedication page", book.ID)
	}
	if number < 1 || number > len(book.Pages) {
		return 0, fmt.Errorf("page %d is out of range, storybook has %d pages", number, len(book.Pages))
	}
	if k := book.Pages[number-1].Kind(); k != common.PageKindDedication {
		return 0, fmt.Errorf("page %d is %s page, not dedication", number, k)
	}
	return number - 1, nil
}
