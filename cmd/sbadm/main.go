package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"sbadm/commands"
	"sbadm/common"
	"sbadm/config"
	"sbadm/misc"
	"sbadm/state"
)

// initializeAppContext prepares application context before command execution but
// after command line has been parsed
func initializeAppContext(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	var err error

	if cmd.NArg() == 0 {
		// nothing to do, just return
		return ctx, nil
	}

	env := state.EnvFromContext(ctx)

	configFile := cmd.String("config")
	if env.Cfg, err = config.LoadConfiguration(configFile); err != nil {
		return ctx, fmt.Errorf("unable to prepare configuration: %w", err)
	}
	if cmd.Bool("debug") {
		if env.Rpt, err = env.Cfg.Reporting.Prepare(); err != nil {
			return ctx, fmt.Errorf("unable to prepare debug reporter: %w", err)
		}
		// save complete processed configuration if external configuration was provided
		if len(configFile) > 0 {
			// token is masked by SecretString
			if data, err := config.Dump(env.Cfg); err == nil {
				env.Rpt.StoreData(fmt.Sprintf("config/%s", filepath.Base(configFile)), data)
			}
		}
	}
	if env.Log, err = env.Cfg.Logging.Prepare(env.Rpt); err != nil {
		return ctx, fmt.Errorf("unable to prepare logs: %w", err)
	}
	env.RedirectStdLog()

	env.Log.Debug("Program started", zap.Strings("args", os.Args), zap.String("ver", misc.GetVersion()), zap.String("runtime", runtime.Version()), zap.String("hash", misc.GetGitHash()))

	if env.Rpt != nil {
		env.Log.Info("Creating debug report", zap.String("location", env.Rpt.Name()))
	}
	if len(configFile) == 0 && env.Log != nil {
		env.Log.Info("Using defaults (no configuration file)")
	}
	return ctx, nil
}

func destroyAppContext(ctx context.Context, cmd *cli.Command) (err error) {
	env := state.EnvFromContext(ctx)

	if env.Log != nil {
		env.Log.Debug("Program ended", zap.Duration("elapsed", env.Uptime()), zap.Strings("parsed args", cmd.Args().Slice()))
	}

	// close logging
	env.RestoreStdLog()

	// log is synced now and result can be used in report if necessary, errors
	// must be reported directly to stderr from now on
	if env.Rpt != nil {
		if er := env.Rpt.Close(); er != nil {
			err = multierr.Append(err, fmt.Errorf("unable to close debug report: %w", er))
		}
	}
	// reporting is closed now - remove empty panic file if any
	if env.Cfg != nil && len(env.Cfg.Logging.FileLogger.Destination) > 0 {
		debug.SetCrashOutput(nil, debug.CrashOptions{})
		fname := filepath.Join(filepath.Dir(env.Cfg.Logging.FileLogger.Destination), misc.GetAppName()+"-panic.log")
		if fi, er := os.Stat(fname); er == nil && fi.Size() == 0 {
			if er := os.Remove(fname); er != nil {
				err = multierr.Append(err, fmt.Errorf("unable to remove empty panic log file '%s': %w", fname, er))
			}
		}
	}
	return
}

// Errors from subcommands are regular errors, we do not use cli.Exit().
var errWasHandled bool

// this is called before appContext is destroyed, so we have a chance to
// properly log any error from subcommand
func exitErrHandler(ctx context.Context, _ *cli.Command, err error) {

	env := state.EnvFromContext(ctx)

	if env.Log != nil {
		env.Log.Error("Program ended with error", zap.Error(err))
		errWasHandled = true
	}
}

func usageErrorHandler(_ context.Context, _ *cli.Command, err error, _ bool) error {
	// do nothing special, error is reported either by exitErrHandler or on
	// exit directly to stderr.
	return err
}

func subcommandNotFoundHandler(ctx context.Context, _ *cli.Command, name string) {
	state.EnvFromContext(ctx).Log.Warn("Unknown command, nothing to do", zap.String("command", name))
}

// listFlags are shared by list and watch.
func listFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "page", Aliases: []string{"p"}, Value: 1, Usage: "page `NUMBER` to show"},
		&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "page `SIZE`, must be one of configured allowed limits"},
		&cli.StringFlag{Name: "search", Aliases: []string{"s"}, Usage: "free text search `TERM`"},
		&cli.StringFlag{Name: "status", Usage: "show only records with `STATUS`"},
		&cli.StringSliceFlag{Name: "facet", Usage: "additional filter as `NAME=VALUE`, may be repeated"},
	}
}

// bookFlags are shared by commands rendering storybook pages.
func bookFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "bundle", Aliases: []string{"b"}, Usage: "render storybook from offline bundle `FILE` instead of API"},
		&cli.StringFlag{Name: "reader", Usage: "substitute reader `NAME` instead of one stored with storybook"},
		&cli.BoolFlag{Name: "overwrite", Aliases: []string{"ow"}, Usage: "continue even if destination exits, overwrite files"},
	}
}

func main() {

	// allow graceful shutdown on interrupt, watch depends on it
	ctx, stop := signal.NotifyContext(state.ContextWithEnv(context.Background()), os.Interrupt, syscall.SIGTERM)

	resources := strings.Join(common.ResourceNames(), ", ")

	app := &cli.Command{
		Name:            misc.GetAppName(),
		Usage:           "storybook admin client: lists, live updates, edits, page previews and PDF export",
		Version:         misc.GetVersion() + " (" + runtime.Version() + ") : " + misc.GetGitHash(),
		HideHelpCommand: true,
		Before:          initializeAppContext,
		After:           destroyAppContext,
		OnUsageError:    usageErrorHandler,
		ExitErrHandler:  exitErrHandler,
		CommandNotFound: subcommandNotFoundHandler,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, DefaultText: "", Usage: "load configuration from `FILE` (YAML)"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "changes program behavior to help troubleshooting, produces report archive"},
		},
		Commands: []*cli.Command{
			{
				Name:         "list",
				Usage:        "Lists single page of resource records",
				OnUsageError: usageErrorHandler,
				Action:       commands.List,
				Flags:        listFlags(),
				ArgsUsage:    "RESOURCE",
				CustomHelpTemplate: fmt.Sprintf(`%s
RESOURCE:
    one of: %s
`, cli.CommandHelpTemplate, resources),
			},
			{
				Name:         "watch",
				Usage:        "Shows page of resource records and keeps it current with live updates",
				OnUsageError: usageErrorHandler,
				Action:       commands.Watch,
				Flags: append(listFlags(),
					&cli.StringFlag{Name: "storybook", Usage: "only receive updates related to storybook `ID`"},
				),
				ArgsUsage: "RESOURCE",
				CustomHelpTemplate: fmt.Sprintf(`%s
RESOURCE:
    one of: %s

Table is redrawn on every change until program is interrupted. Connection
problems are reported in the log and retried after configured delay.
`, cli.CommandHelpTemplate, resources),
			},
			{
				Name:         "preview",
				Usage:        "Renders single storybook page as SVG or PNG",
				OnUsageError: usageErrorHandler,
				Action:       commands.Preview,
				Flags: append(bookFlags(),
					&cli.IntFlag{Name: "page", Aliases: []string{"p"}, Value: 1, Usage: "page `NUMBER` to render"},
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "svg", Usage: "output `TYPE` (svg, png)"},
				),
				ArgsUsage: "[STORYBOOK_ID] [DESTINATION]",
				CustomHelpTemplate: fmt.Sprintf(`%s
STORYBOOK_ID:
    storybook to render, must be absent when --bundle is used

DESTINATION:
    file name or existing directory, if absent - current working directory
`, cli.CommandHelpTemplate),
			},
			{
				Name:         "export",
				Usage:        "Captures every storybook page and assembles PDF document",
				OnUsageError: usageErrorHandler,
				Action:       commands.Export,
				Flags:        bookFlags(),
				ArgsUsage:    "[STORYBOOK_ID] [DESTINATION]",
				CustomHelpTemplate: fmt.Sprintf(`%s
STORYBOOK_ID:
    storybook to export, must be absent when --bundle is used

DESTINATION:
    directory to put document to, if absent - current working directory
    file name is produced from configured output_name_template

Pages which could not be captured are reported and left out, document is
still written if at least one page was captured.
`, cli.CommandHelpTemplate),
			},
			{
				Name:         "bundle",
				Usage:        "Downloads storybook with its images into offline bundle",
				OnUsageError: usageErrorHandler,
				Action:       commands.Bundle,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "overwrite", Aliases: []string{"ow"}, Usage: "continue even if destination exits, overwrite files"},
				},
				ArgsUsage: "STORYBOOK_ID [DESTINATION]",
			},
			{
				Name:         "save",
				Usage:        "Creates new resource record or updates existing one",
				OnUsageError: usageErrorHandler,
				Action:       commands.Save,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "json", Aliases: []string{"j"}, Usage: "read record fields from JSON `FILE`"},
					&cli.StringSliceFlag{Name: "set", Usage: "set field as `NAME=VALUE`, may be repeated, wins over --json"},
				},
				ArgsUsage: "RESOURCE [ID]",
				CustomHelpTemplate: fmt.Sprintf(`%s
RESOURCE:
    one of: %s

ID:
    record to update, if absent - new record is created
`, cli.CommandHelpTemplate, resources),
			},
			{
				Name:         "delete",
				Usage:        "Deletes resource records",
				OnUsageError: usageErrorHandler,
				Action:       commands.Delete,
				ArgsUsage:    "RESOURCE ID [ID...]",
				CustomHelpTemplate: fmt.Sprintf(`%s
RESOURCE:
    one of: %s
`, cli.CommandHelpTemplate, resources),
			},
			{
				Name:         "check-dedication",
				Usage:        "Checks whether image could be used as dedication page background",
				OnUsageError: usageErrorHandler,
				Action:       commands.CheckDedication,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "upload", Aliases: []string{"u"}, Usage: "upload accepted image as dedication background of storybook `ID`"},
					&cli.IntFlag{Name: "page", Aliases: []string{"p"}, Usage: "dedication page `NUMBER`, if absent - first dedication page"},
				},
				ArgsUsage: "IMAGE",
			},
			{
				Name:  "dumpconfig",
				Usage: "Dumps either default or actual configuration (YAML)",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "default", Usage: "output default embedded configuration"},
				},
				OnUsageError: usageErrorHandler,
				Action:       outputConfiguration,
				ArgsUsage:    "DESTINATION",
				CustomHelpTemplate: fmt.Sprintf(`%s

DESTINATION:
    file name to write configuration to, if absent - STDOUT

Produces file with actual "active" configuration values which is composition of
default values and values specified in configuration file. To see default
configuration embedded into the program use --default flag.
`, cli.CommandHelpTemplate),
			},
		},
	}

	var err error
	// NOTE: os.Exit is called at the end of main to set exit code, make sure
	// there are no other deffered functions after that
	defer func() {
		stop()
		if err != nil {
			// It may happen that log is either not set yet (argument parsing) or already closed,
			// report errors to stderr directly
			if !errWasHandled {
				fmt.Fprintf(os.Stderr, "Program ended with error: %v\n", err)
			}
			os.Exit(1)
		}
	}()
	err = app.Run(ctx, os.Args)
}

func outputConfiguration(ctx context.Context, cmd *cli.Command) error {

	env := state.EnvFromContext(ctx)
	if cmd.Args().Len() > 1 {
		env.Log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	fname := cmd.Args().Get(0)

	var (
		err   error
		data  []byte
		state string
	)

	out := os.Stdout
	if len(fname) > 0 {
		out, err = os.Create(fname)
		if err != nil {
			return fmt.Errorf("unable to create destination file '%s': %w", fname, err)
		}
		defer out.Close()
	}

	if cmd.Bool("default") {
		state = "default"
		data, err = config.Prepare()
	} else {
		state = "actual"
		data, err = config.Dump(env.Cfg)
	}
	if err != nil {
		return fmt.Errorf("unable to get configuration: %w", err)
	}

	if len(fname) == 0 {
		fname = "STDOUT"
	}
	env.Log.Info("Outputing configuration", zap.String("state", state), zap.String("file", fname))

	if _, err = out.Write(data); err != nil {
		return fmt.Errorf("unable to write configuration: %w", err)
	}
	return nil
}
