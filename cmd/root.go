package cmd

import (
	"bufio"
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"syncrepo/pkg/cache"
	"syncrepo/pkg/clipboard"
	"syncrepo/pkg/config"
	"syncrepo/pkg/debounce"
	"syncrepo/pkg/document"
	"syncrepo/pkg/filter"
	"syncrepo/pkg/tokenizer"
	"syncrepo/pkg/watch"
)

const rootPathPrompt = "Please drag the directory into the terminal and press enter: "

// Execute builds the root command and runs it.
func Execute(logger *zap.Logger) error {
	return newRootCommand(logger).Execute()
}

// newRootCommand wires the root cobra command and its flags.
func newRootCommand(logger *zap.Logger) *cobra.Command {
	var configPath string

	rootCommand := &cobra.Command{
		Use:   "syncrepo",
		Short: "syncrepo mirrors a source tree into one Markdown document",
		Long: `syncrepo watches a directory tree and keeps a single consolidated
Markdown document (directory tree plus file contents) in sync with it,
coalescing bursts of filesystem changes into one rebuild.`,
		SilenceUsage: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			cfg, err := resolveConfig(command, configPath)
			if err != nil {
				return err
			}
			return run(cfg, logger)
		},
	}

	flags := rootCommand.Flags()
	rootCommand.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to configuration file")
	flags.String("root", "", "directory tree to watch")
	flags.String("output", "", "path of the generated Markdown document")
	flags.StringSlice("extensions", nil, "file suffixes to include (required)")
	flags.StringSlice("exclude-suffix", nil, "file suffixes to exclude")
	flags.StringSlice("exclude-dir", nil, "directory names to exclude")
	flags.StringSlice("sensitive", nil, "exact filenames that are never included")
	flags.StringSlice("exclude-regex", nil, "filename patterns to exclude")
	flags.Int("debounce", 0, "seconds of quiet before a rebuild")
	flags.Int("max-file-size", 0, "maximum file size in KB")
	flags.String("model", "", "tokenizer model or encoding for the token report")
	flags.Bool("clipboard", false, "copy the document to the clipboard after each rebuild")

	addVersionCommand(rootCommand)
	return rootCommand
}

// resolveConfig layers flag values over the configuration file and fills the
// root path interactively when possible.
func resolveConfig(command *cobra.Command, configPath string) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}

	flags := command.Flags()
	if flags.Changed("root") {
		cfg.RootPath, _ = flags.GetString("root")
	}
	if flags.Changed("output") {
		cfg.OutputPath, _ = flags.GetString("output")
	}
	if flags.Changed("extensions") {
		cfg.Extensions, _ = flags.GetStringSlice("extensions")
	}
	if flags.Changed("exclude-suffix") {
		cfg.ExcludeSuffixes, _ = flags.GetStringSlice("exclude-suffix")
	}
	if flags.Changed("exclude-dir") {
		cfg.ExcludeDirs, _ = flags.GetStringSlice("exclude-dir")
	}
	if flags.Changed("sensitive") {
		cfg.SensitiveFiles, _ = flags.GetStringSlice("sensitive")
	}
	if flags.Changed("exclude-regex") {
		cfg.ExcludeRegexes, _ = flags.GetStringSlice("exclude-regex")
	}
	if flags.Changed("debounce") {
		cfg.DebounceDelaySeconds, _ = flags.GetInt("debounce")
	}
	if flags.Changed("max-file-size") {
		cfg.MaxFileSizeKB, _ = flags.GetInt("max-file-size")
	}
	if flags.Changed("model") {
		cfg.TokenModel, _ = flags.GetString("model")
	}
	if flags.Changed("clipboard") {
		cfg.Clipboard, _ = flags.GetBool("clipboard")
	}

	if cfg.RootPath == "" && term.IsTerminal(int(os.Stdin.Fd())) {
		promptedPath, promptErr := promptForRootPath(os.Stdin)
		if promptErr != nil {
			return config.Config{}, promptErr
		}
		cfg.RootPath = promptedPath
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}

	absoluteRoot, err := filepath.Abs(cfg.RootPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("resolve root path %s: %w", cfg.RootPath, err)
	}
	info, err := os.Stat(absoluteRoot)
	if err != nil {
		return config.Config{}, fmt.Errorf("root path %s: %w", cfg.RootPath, err)
	}
	if !info.IsDir() {
		return config.Config{}, fmt.Errorf("root path %s is not a directory", cfg.RootPath)
	}
	cfg.RootPath = absoluteRoot
	return cfg, nil
}

// promptForRootPath asks for a directory and cleans the common artifacts of
// dragging a folder into a terminal: surrounding quotes, a file: prefix,
// and percent escapes.
func promptForRootPath(input *os.File) (string, error) {
	fmt.Print(rootPathPrompt)
	reader := bufio.NewReader(input)
	response, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read root path: %w", err)
	}
	return CleanDraggedPath(response), nil
}

// CleanDraggedPath normalizes a path pasted or dragged into the terminal.
func CleanDraggedPath(raw string) string {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.Trim(cleaned, `'"`)
	cleaned = strings.TrimPrefix(cleaned, "file://")
	cleaned = strings.TrimPrefix(cleaned, "file:")
	if unescaped, err := url.PathUnescape(cleaned); err == nil {
		cleaned = unescaped
	}
	return cleaned
}

// run assembles the pipeline and blocks until an interrupt arrives.
func run(cfg config.Config, logger *zap.Logger) error {
	pathFilter, err := filter.New(cfg.FilterConfig())
	if err != nil {
		return err
	}

	repoCache := cache.New(cfg.MaxFileSizeKB, logger)
	if err := repoCache.LoadInitial(cfg.RootPath, pathFilter); err != nil {
		return err
	}

	counter, counterErr := tokenizer.NewCounter(cfg.TokenModel)
	if counterErr != nil {
		logger.Warn("Token counting disabled", zap.Error(counterErr))
		counter = nil
	} else {
		logger.Info("Token counting enabled", zap.String("encoding", counter.Name()))
	}

	var copier clipboard.Copier
	if cfg.Clipboard {
		copier = clipboard.NewService()
	}

	generator := document.NewGenerator(document.Params{
		Root:       cfg.RootPath,
		OutputPath: cfg.OutputPath,
		Cache:      repoCache,
		Tree:       document.NewCommandTree(logger),
		Counter:    counter,
		Copier:     copier,
		Logger:     logger,
	})

	// Write the initial document before live monitoring starts.
	generator.Rebuild()

	debouncer := debounce.New(cfg.DebounceDelay(), generator.Rebuild)
	monitor := watch.NewMonitor(cfg.RootPath, repoCache, pathFilter, debouncer, logger)

	source, err := watch.NewSource(cfg.RootPath, pathFilter, monitor.Handle, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := source.Run(ctx)
	debouncer.Cancel()
	logger.Info("Shutting down")
	return runErr
}
