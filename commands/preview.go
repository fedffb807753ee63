package commands

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"sbadm/export"
	"sbadm/layout"
	"sbadm/render"
)

// destArg returns output argument, its position depends on whether book
// came from bundle or was named by id.
func destArg(cmd *cli.Command) string {
	if len(cmd.String("bundle")) > 0 {
		return cmd.Args().Get(0)
	}
	return cmd.Args().Get(1)
}

// Preview renders single page either as SVG document or PNG image.
func Preview(ctx context.Context, cmd *cli.Command) error {
	s, err := openSession(ctx, cmd, "preview")
	if err != nil {
		return err
	}
	s.env.Overwrite = cmd.Bool("overwrite")

	format := strings.ToLower(cmd.String("format"))
	if format != "svg" && format != "png" {
		return fmt.Errorf("unsupported preview format %q, use svg or png", format)
	}
	number := cmd.Int("page")
	if number < 1 || number > len(s.book.Pages) {
		return fmt.Errorf("page %d is out of range, storybook has %d pages", number, len(s.book.Pages))
	}
	index := number - 1

	m, _ := layout.NewCache(1).Get(&s.book.Pages[index], index, s.layoutContext(cmd.String("reader")))
	if m == nil {
		return fmt.Errorf("page %d has nothing to render", number)
	}

	var data []byte
	switch format {
	case "svg":
		r := render.NewSVG(s.loader, s.fonts.Family, s.env.Cfg.Render.Blur, s.env.QuoteOrnament, s.env.Log)
		if data, err = r.Render(ctx, m); err != nil {
			return fmt.Errorf("unable to render page %d: %w", number, err)
		}
	case "png":
		c := render.NewCanvas(s.loader, s.fonts, render.CanvasOptions{Blur: s.env.Cfg.Render.Blur, Ornament: s.env.QuoteOrnament}, s.env.Log)
		img, err := c.Draw(ctx, m)
		if err != nil {
			return fmt.Errorf("unable to render page %d: %w", number, err)
		}
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
			return fmt.Errorf("unable to encode page %d: %w", number, err)
		}
		data = buf.Bytes()
	}

	dst := destArg(cmd)
	name := fmt.Sprintf("%s-%03d.%s", strings.TrimSuffix(export.FileName(s.book, &s.env.Cfg.Export, s.log), ".pdf"), number, format)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	} else if fi, err := os.Stat(dst); err != nil || !fi.IsDir() {
		// destination is file name
		dst, name = filepath.Dir(dst), filepath.Base(dst)
	}
	out, err := destination(dst, name, s.env, s.log)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, data, 0644); err != nil {
		return fmt.Errorf("unable to write preview: %w", err)
	}

	if s.env.Rpt != nil {
		s.env.Rpt.StoreData(fmt.Sprintf("models/page-%03d.txt", number), []byte(m.Dump()))
	}
	s.log.Info("Page preview written", zap.Int("page", number), zap.Stringer("kind", m.Kind), zap.String("file", out))
	return nil
}
