// Command orbitsim runs the space station orbit simulation server and its
// offline tools.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/douglassimoes/space-station-orbit-simulation/internal/config"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	v       *viper.Viper
	cfgPath string
	cfg     *config.Config
	logger  *slog.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New()}

	root := &cobra.Command{
		Use:           "orbitsim",
		Short:         "Space station orbit simulation",
		Long:          "Propagates a two-line element set, places the body in a 3D scene around the Earth and serves it over HTTP.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Tools print results on stdout, so their logs go to stderr.
			logOut := cmd.ErrOrStderr()
			if cmd.Name() == "serve" {
				logOut = cmd.OutOrStdout()
			}
			return a.load(logOut)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgPath, "config", "", "config file (yaml, toml or json)")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("log-format", "json", "log format: json or text")
	pf.String("elements-file", "", "read element sets from this catalog file")
	pf.Bool("fetch", false, "fetch element sets from the configured source")
	pf.Int("norad-id", 25544, "catalog number of the simulated body")
	pf.String("model", "mean-elements", "propagation model: mean-elements or sgp4")
	for key, flag := range map[string]string{
		"log.level":            "log-level",
		"log.format":           "log-format",
		"elements.file":        "elements-file",
		"elements.fetch":       "fetch",
		"propagation.norad_id": "norad-id",
		"propagation.model":    "model",
	} {
		a.v.BindPFlag(key, pf.Lookup(flag))
	}

	root.AddCommand(
		newServeCmd(a),
		newPropagateCmd(a),
		newElementsCmd(a),
		newPassesCmd(a),
	)
	return root
}

// load resolves configuration and builds the process logger.
func (a *app) load(logOut io.Writer) error {
	bootstrap := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	cfg, err := config.Load(a.v, a.cfgPath, bootstrap)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = cfg.Log.Logger(logOut)
	slog.SetDefault(a.logger)
	return nil
}
