package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"sbadm/export"
	"sbadm/layout"
	"sbadm/render"
)

// Export captures every page of the storybook and writes multi-page PDF.
func Export(ctx context.Context, cmd *cli.Command) error {
	s, err := openSession(ctx, cmd, "export")
	if err != nil {
		return err
	}
	s.env.Overwrite = cmd.Bool("overwrite")

	dst := destArg(cmd)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	// refuse early, capture may take a while
	out, err := destination(dst, export.FileName(s.book, &s.env.Cfg.Export, s.log), s.env, s.log)
	if err != nil {
		return err
	}

	// every image failure must become page failure, never a silent
	// placeholder in the document
	canvas := render.NewCanvas(s.loader, s.fonts, render.CanvasOptions{
		Blur:     s.env.Cfg.Render.Blur,
		Ornament: s.env.QuoteOrnament,
		Strict:   true,
	}, s.env.Log)
	cache := layout.NewCache(len(s.book.Pages))
	pager := export.NewBookPager(s.book, s.layoutContext(cmd.String("reader")), cache, canvas, s.loader)

	progress := func(st export.PageStatus) {
		if st.Err != nil {
			s.log.Warn("Page was not captured", zap.Int("page", st.Index+1), zap.Int("total", st.Total), zap.Error(st.Err))
			return
		}
		s.log.Debug("Page captured", zap.Int("page", st.Index+1), zap.Int("total", st.Total))
	}

	s.log.Info("Export starting", zap.String("storybook", s.book.ID), zap.Int("pages", len(s.book.Pages)), zap.String("destination", out))
	defer func(start time.Time) {
		s.log.Info("Export completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	res, err := export.New(&s.env.Cfg.Export, pager, progress, s.env.Rpt, s.env.Log).Export(ctx, s.book)
	if err != nil {
		return fmt.Errorf("unable to export storybook: %w", err)
	}

	if err := os.WriteFile(out, res.PDF, 0644); err != nil {
		return fmt.Errorf("unable to write document: %w", err)
	}
	hits, misses := cache.Stats()
	s.log.Info("Document written", zap.String("file", out), zap.Int("pages", res.Captured), zap.Int("failed", len(res.Failures)),
		zap.Int("layout hits", hits), zap.Int("layout misses", misses))

	if err := res.Err(); err != nil {
		return fmt.Errorf("some pages are missing from %s: %w", out, err)
	}
	return nil
}
