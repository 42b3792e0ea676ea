// Package cli implements the eduauth command: sign in, register and inspect
// the persisted session from a terminal.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	eduAuth "github.com/MrEthical07/eduAuth"
	"github.com/MrEthical07/eduAuth/internal/logging"
	"github.com/spf13/cobra"
)

type options struct {
	configPath string
	apiURL     string
	storage    string
	path       string
	locale     string
	logLevel   string
	logFormat  string
}

// app carries the streams and flag values shared by every subcommand.
type app struct {
	opts options
	in   *bufio.Reader
	out  io.Writer
	errw io.Writer
}

// NewRootCommand returns the eduauth command tree reading prompts from in.
func NewRootCommand(in io.Reader, out, errOut io.Writer) *cobra.Command {
	a := &app{in: bufio.NewReader(in), out: out, errw: errOut}

	root := &cobra.Command{
		Use:   "eduauth",
		Short: "Sign in to the learning platform from the terminal",
		Long: `Sign in to the learning platform from the terminal.

eduauth keeps the session in local storage between invocations, so a login
survives until logout or until the server rejects the token.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	f := root.PersistentFlags()
	f.StringVarP(&a.opts.configPath, "config", "c", "", "Path to a YAML, JSON or TOML config file")
	f.StringVar(&a.opts.apiURL, "api-url", "", "API base URL (overrides config)")
	f.StringVar(&a.opts.storage, "storage", "", "Session storage backend: memory, file, redis or sqlite")
	f.StringVar(&a.opts.path, "path", "", "Storage directory (file) or database file (sqlite)")
	f.StringVar(&a.opts.locale, "locale", "", "Message locale: en, fr or ar")
	f.StringVar(&a.opts.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	f.StringVar(&a.opts.logFormat, "log-format", "", "Log format: text or json")

	_ = root.MarkPersistentFlagFilename("config", "yaml", "yml", "json", "toml")
	_ = root.RegisterFlagCompletionFunc("storage", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{"memory", "file", "redis", "sqlite"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = root.RegisterFlagCompletionFunc("locale", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{"en\tEnglish", "fr\tFrench", "ar\tArabic"}, cobra.ShellCompDirectiveNoFileComp
	})

	root.AddCommand(
		a.loginCmd(),
		a.registerCmd(),
		a.whoamiCmd(),
		a.logoutCmd(),
		a.statusCmd(),
	)
	return root
}

// Execute runs the command tree against the process streams.
func Execute(ctx context.Context) error {
	return NewRootCommand(os.Stdin, os.Stdout, os.Stderr).ExecuteContext(ctx)
}

// loadConfig layers flags over the config file and environment. Without an
// explicit backend the session lives in a file under the user config dir.
func (a *app) loadConfig(cmd *cobra.Command) (eduAuth.Config, error) {
	cfg, err := eduAuth.LoadConfig(a.opts.configPath)
	if err != nil {
		return eduAuth.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("api-url") {
		cfg.API.BaseURL = a.opts.apiURL
	}
	if flags.Changed("storage") {
		cfg.Storage.Backend = eduAuth.StorageBackend(strings.ToLower(a.opts.storage))
	}
	if flags.Changed("path") {
		cfg.Storage.Path = a.opts.path
	}
	if flags.Changed("locale") {
		cfg.Validation.Locale = a.opts.locale
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = a.opts.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = a.opts.logFormat
	}

	if !flags.Changed("storage") && cfg.Storage.Backend == eduAuth.StorageMemory {
		cfg.Storage.Backend = eduAuth.StorageFile
	}
	if cfg.Storage.Backend == eduAuth.StorageFile && cfg.Storage.Path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return eduAuth.Config{}, fmt.Errorf("locate config dir: %w", err)
		}
		cfg.Storage.Path = filepath.Join(dir, "eduauth")
	}

	if err := cfg.Validate(); err != nil {
		return eduAuth.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (a *app) client(ctx context.Context, cmd *cobra.Command) (*eduAuth.Client, error) {
	cfg, err := a.loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := logging.Setup(a.errw, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	logger.Debug("building client",
		slog.String("api", cfg.API.BaseURL),
		slog.String("storage", string(cfg.Storage.Backend)),
	)
	return eduAuth.New().WithConfig(cfg).WithLogger(logger).Build(ctx)
}

// withClient builds a client for one command and closes it afterwards.
func (a *app) withClient(cmd *cobra.Command, fn func(context.Context, *eduAuth.Client) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	c, err := a.client(ctx, cmd)
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(ctx, c)
}

// prompt reads one line from stdin when value is empty.
func (a *app) prompt(label, value string) (string, error) {
	if value != "" {
		return value, nil
	}
	fmt.Fprintf(a.errw, "%s: ", label)
	line, err := a.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// report prints a form result and turns a failure into the command error.
func (a *app) report(res eduAuth.FormResult) error {
	if res.Succeeded {
		fmt.Fprintln(a.out, res.Notice)
		return nil
	}
	if len(res.FieldErrors) > 0 {
		for _, field := range res.FieldErrors.Fields() {
			fmt.Fprintf(a.errw, "  %s: %s\n", field, res.FieldErrors[field])
		}
		return errors.New("the form has errors")
	}
	return errors.New(res.Message)
}
