// Package state defines shared program state.
package state

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/h2non/filetype"
	"go.uber.org/zap"

	"sbadm/config"
	imgutil "sbadm/utils/images"
)

type envKey struct{}

// LocalEnv keeps everything program needs in a single place.
type LocalEnv struct {
	Cfg *config.Config
	Rpt *config.Report
	Log *zap.Logger

	// used by preview and export subcommands
	Overwrite bool
	// drawn in place of assets which could not be loaded
	Placeholder []byte
	// decoration drawn around story page quotes
	QuoteOrnament []byte

	start         time.Time
	restoreStdLog func()
}

func EnvFromContext(ctx context.Context) *LocalEnv {
	if env, ok := ctx.Value(envKey{}).(*LocalEnv); ok {
		return env
	}
	// this should never happen
	panic("localenv not found in context")
}

func ContextWithEnv(ctx context.Context) context.Context {
	return context.WithValue(ctx, envKey{}, newLocalEnv())
}

// LoadDecorations replaces built-in placeholder and quote ornament with
// images from configured paths.
func (e *LocalEnv) LoadDecorations() error {
	if e.Cfg == nil {
		return nil
	}
	for _, d := range []struct {
		path string
		dst  *[]byte
	}{
		{e.Cfg.Render.PlaceholderPath, &e.Placeholder},
		{e.Cfg.Render.OrnamentPath, &e.QuoteOrnament},
	} {
		if len(d.path) == 0 {
			continue
		}
		data, err := os.ReadFile(d.path)
		if err != nil {
			return fmt.Errorf("unable to read decoration image: %w", err)
		}
		if !imgutil.IsSVG(data) && !filetype.IsImage(data) {
			return fmt.Errorf("decoration %q is not an image", d.path)
		}
		*d.dst = data
	}
	return nil
}

func (e *LocalEnv) Uptime() time.Duration {
	return time.Since(e.start)
}

func (e *LocalEnv) RedirectStdLog() {
	if e.Log == nil {
		return
	}
	e.restoreStdLog = zap.RedirectStdLog(e.Log)
}

func (e *LocalEnv) RestoreStdLog() {
	if e.Log != nil {
		_ = e.Log.Sync()
	}
	if e.restoreStdLog != nil {
		e.restoreStdLog()
	}
}
