package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kikiluvv/replaycoach/internal/config"
	"github.com/kikiluvv/replaycoach/internal/logging"
	"github.com/kikiluvv/replaycoach/internal/metrics"
	"github.com/kikiluvv/replaycoach/internal/pipeline"
	"github.com/kikiluvv/replaycoach/internal/profile"
	"github.com/kikiluvv/replaycoach/internal/server"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const defaultOutput = "analysis_output.json"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd()
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var (
		cfgFile string
		verbose bool
	)

	rootCmd := &cobra.Command{
		Use:          "replaycoach",
		Short:        "replaycoach - gameplay video statistics and coaching feedback",
		Long:         "Extracts frame statistics from esports match recordings and turns them into coaching feedback.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.Init(verbose)

			cfg, err := config.Load(cmd.Context(), cfgFile)
			if err != nil {
				return err
			}

			// --verbose wins over the configured level
			if !verbose {
				if err := logging.SetLevel(cfg.LogLevel); err != nil {
					return err
				}
			}

			cliLog := logging.WithComponent("cli")
			cliLog.Debug().
				Str("config", cfgFile).
				Str("log_level", cfg.LogLevel).
				Str("model", cfg.LLM.Model).
				Msg("configuration loaded")

			cmd.SetContext(config.WithConfig(cmd.Context(), cfg))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(newAnalyzeCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func newAnalyzeCmd() *cobra.Command {
	var (
		profilePath string
		output      string
		progress    bool
	)

	cmd := &cobra.Command{
		Use:   "analyze [video]",
		Short: "Analyze a match video and write stats plus feedback",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromContext(cmd.Context())

			prof, err := profile.Load(profilePath)
			if err != nil {
				return err
			}

			var opts []pipeline.Option
			if progress {
				bar := newFrameProgress(cmd.ErrOrStderr())
				defer bar.finish()
				opts = append(opts, pipeline.WithProgress(bar.update))
			}

			pipe, err := pipeline.NewFromConfig(log.Logger, cfg, opts...)
			if err != nil {
				return err
			}
			if !pipe.CanGenerateFeedback() {
				return fmt.Errorf("%w: set llm.api_key or %s", pipeline.ErrNoGenerator, config.EnvAPIKey)
			}

			result, err := pipe.Run(cmd.Context(), args[0], prof)
			if err != nil {
				return err
			}

			if err := pipeline.WriteResult(output, result); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Analysis written to %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVar(&profilePath, "player-profile", "", "JSON file with player info")
	cmd.Flags().StringVar(&output, "output", defaultOutput, "where to write the results")
	cmd.Flags().BoolVar(&progress, "progress", false, "show frame decoding progress")
	_ = cmd.MarkFlagRequired("player-profile")

	return cmd
}

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP analysis API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromContext(cmd.Context())
			if addr != "" {
				cfg.Server.Addr = addr
			}

			m := metrics.NewManager(metrics.WithRuntimeCollectors())

			pipe, err := pipeline.NewFromConfig(log.Logger, cfg, pipeline.WithMetrics(m))
			if err != nil {
				return err
			}

			return server.New(log.Logger, pipe, m, cfg.TempDir, cfg.Server).Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")

	return cmd
}

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Config management commands",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := config.FromContext(cmd.Context()).Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "save [path]",
		Short: "Write the effective configuration to a YAML file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "config.yaml"
			if len(args) == 1 {
				path = args[0]
			}

			if err := config.FromContext(cmd.Context()).Save(path); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
			return nil
		},
	})

	return configCmd
}
