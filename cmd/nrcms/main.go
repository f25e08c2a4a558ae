// cmd/nrcms/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"nrcms"
	"nrcms/internal/assets"
	"nrcms/internal/builder"
	"nrcms/internal/config"
	"nrcms/internal/gendirs"
	"nrcms/internal/logging"
	"nrcms/internal/markup"
	"nrcms/internal/scaffold"
	"nrcms/internal/server"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	addFlags := func(cmd *cobra.Command) error {
		cmd.PersistentFlags().String("max-log-level", "info", "most verbose level logged: debug, info, warn or error")
		cmd.PersistentFlags().Bool("debug", false, "log with caller information")
		cmd.PersistentFlags().Bool("unsafe", false, "disable HTML sanitization of paragraphs")
		return nil
	}
	var cmdRoot = &cobra.Command{
		Use:           "nrcms",
		Short:         "NR-CMS static site generator",
		Long:          `Generate a single page website from brace-delimited markup.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmdRoot.AddCommand(cmdGen())
	cmdRoot.AddCommand(cmdServe())
	cmdRoot.AddCommand(cmdNew())
	cmdRoot.AddCommand(cmdVersion())
	if err := addFlags(cmdRoot); err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := cmdRoot.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "nrcms: %v\n", err)
		os.Exit(1)
	}
}

func cmdGen() *cobra.Command {
	watch, clean := false, false
	var cmd = &cobra.Command{
		Use:   "gen <source_dir> [generation_dir]",
		Short: "generate the website once, or on every change with --watch",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadSettings(cmd, args)
			if err != nil {
				return err
			}
			defer logger.Sync()

			build, err := newGenerator(cfg, logger, clean)
			if err != nil {
				return err
			}
			if !watch {
				return build(cmd.Context())
			}

			if err := build(cmd.Context()); err != nil {
				logger.Error("could not generate website", zap.Error(err))
			}
			w := server.NewWatcher(cfg.SourceDir, build, logger, server.WithIgnore(watchIgnores(cfg)...))
			return w.Run(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", watch, "regenerate whenever the source directory changes")
	cmd.Flags().BoolVar(&clean, "clean", clean, "empty the generation directory before generating")
	return cmd
}

func cmdServe() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "serve <source_dir> [generation_dir]",
		Short: "serve the website with live reload while watching for changes",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadSettings(cmd, args)
			if err != nil {
				return err
			}
			defer logger.Sync()

			build, err := newGenerator(cfg, logger, false)
			if err != nil {
				return err
			}
			dirs := gendirs.NewOS(cfg.SourceDir, cfg.GenerationDir)
			srv := server.New(dirs, build, logger, server.Options{
				Port:   cfg.Port,
				Ignore: watchIgnores(cfg),
			})
			return srv.Run(cmd.Context())
		},
	}
	cmd.Flags().Int("port", 1313, "port for the development server")
	return cmd
}

func cmdNew() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "new",
		Short: "scaffold a site or a blog post",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "site <dir>",
		Short: "create a sample site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return scaffold.CreateNewSite(afero.NewOsFs(), args[0], cmd.OutOrStdout())
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "post <source_dir> <title>",
		Short: "create a dated blog post",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := scaffold.CreateNewPost(afero.NewOsFs(), args[0], args[1], time.Now(), cmd.OutOrStdout())
			return err
		},
	})
	return cmd
}

func cmdVersion() *cobra.Command {
	showBuildInfo := false
	var cmd = &cobra.Command{
		Use:   "version",
		Short: "display the application's version number",
		RunE: func(cmd *cobra.Command, args []string) error {
			if showBuildInfo {
				fmt.Fprintln(cmd.OutOrStdout(), nrcms.Version().String())
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), nrcms.Version().Core())
			return nil
		},
	}
	cmd.Flags().BoolVar(&showBuildInfo, "build-info", showBuildInfo, "show build information")
	return cmd
}

// loadSettings layers the positional arguments and changed flags over the
// site configuration and builds the logger.
func loadSettings(cmd *cobra.Command, args []string) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(afero.NewOsFs(), args[0])
	if err != nil {
		return config.Config{}, nil, err
	}
	cfg.SourceDir = args[0]
	if len(args) > 1 {
		cfg.GenerationDir = args[1]
	}
	flags := cmd.Flags()
	if flags.Changed("max-log-level") {
		cfg.LogLevel, _ = flags.GetString("max-log-level")
	}
	if flags.Changed("unsafe") {
		cfg.Unsafe, _ = flags.GetBool("unsafe")
	}
	if flags.Lookup("port") != nil && flags.Changed("port") {
		cfg.Port, _ = flags.GetInt("port")
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, nil, err
	}

	debug, _ := flags.GetBool("debug")
	logger, err := logging.New(logging.Config{Level: cfg.LogLevel, Development: debug})
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

// newGenerator wires the parser and builder for cfg into a build function.
func newGenerator(cfg config.Config, logger *zap.Logger, clean bool) (server.BuildFunc, error) {
	loc := time.Local
	if cfg.Timezone != "" {
		var err error
		if loc, err = time.LoadLocation(cfg.Timezone); err != nil {
			return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
		}
	}

	dirs := gendirs.NewOS(cfg.SourceDir, cfg.GenerationDir)
	svc := assets.New(dirs.Fs(), cfg.ImageSize)
	parser := markup.New(dirs, svc, logger,
		markup.WithInlineLimit(cfg.InlineLimit),
		markup.WithMaxDepth(cfg.MaxDepth),
		markup.WithBlogPattern(cfg.BlogPattern),
		markup.WithLocation(loc),
	)
	b, err := builder.New(dirs, svc, logger, builder.Options{
		CleanDestination: clean,
		Unsafe:           cfg.Unsafe,
		Markdown:         cfg.Markdown,
		Title:            cfg.Title,
	})
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) error {
		_, err := b.Generate(ctx, parser)
		return err
	}, nil
}

// watchIgnores adds the generation directory to the configured ignore
// patterns when it lives inside the source directory.
func watchIgnores(cfg config.Config) []string {
	ignore := append([]string(nil), cfg.Ignore...)
	src, err1 := filepath.Abs(cfg.SourceDir)
	gen, err2 := filepath.Abs(cfg.GenerationDir)
	if err1 != nil || err2 != nil {
		return ignore
	}
	rel, err := filepath.Rel(src, gen)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return ignore
	}
	return append(ignore, filepath.ToSlash(rel))
}
