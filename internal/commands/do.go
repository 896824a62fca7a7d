package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gaborage/go-bricks-sdk/config"
	"github.com/gaborage/go-bricks-sdk/httpclient"
	"github.com/gaborage/go-bricks-sdk/jsondom"
	"github.com/gaborage/go-bricks-sdk/logger"
	"github.com/gaborage/go-bricks-sdk/observability"
)

// DoOptions holds options for the do command
type DoOptions struct {
	Data       string
	Headers    []string
	Retries    int
	Strategy   string
	Delay      time.Duration
	MaxDelay   time.Duration
	ConfigFile string
	EnvFile    string
	JSON       bool
	Parallel   int
	Verbose    bool
}

// NewDoCommand creates the do command
func NewDoCommand() *cobra.Command {
	opts := &DoOptions{}

	cmd := &cobra.Command{
		Use:   "do METHOD URL",
		Short: "Send a request through the retry pipeline",
		Long: `Sends one HTTP request through the configured pipeline and writes the response body
to stdout. Non-2xx responses still print their body and exit with an error.`,
		Example: `  # Simple GET
  bricks-http do GET https://httpbin.org/get

  # POST a file with a custom header, retrying up to 5 times with a fixed delay
  bricks-http do POST https://api.example.com/items --data @item.json -H "X-Team: core" \
    --retries 5 --strategy fixed --delay 500ms

  # Pretty-print a JSON response
  bricks-http do GET https://httpbin.org/json --json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDo(cmd, opts, args[0], args[1])
		},
	}

	// Flags
	cmd.Flags().StringVarP(&opts.Data, "data", "d", "", "Request body, or @file to read it from a file (@- for stdin)")
	cmd.Flags().StringArrayVarP(&opts.Headers, "header", "H", nil, "Request header as 'Name: value' (repeatable)")
	cmd.Flags().IntVar(&opts.Retries, "retries", 0, "Maximum number of retries")
	cmd.Flags().StringVar(&opts.Strategy, "strategy", "", "Retry strategy (fixed|exponential)")
	cmd.Flags().DurationVar(&opts.Delay, "delay", 0, "Fixed delay, or exponential base delay")
	cmd.Flags().DurationVar(&opts.MaxDelay, "max-delay", 0, "Exponential backoff delay cap")
	cmd.Flags().StringVarP(&opts.ConfigFile, "config", "c", "", "Configuration file (default bricks-http.yaml if present)")
	cmd.Flags().StringVar(&opts.EnvFile, "env-file", ".env", "Dotenv file loaded before configuration")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Pretty-print the response body as JSON")
	cmd.Flags().IntVarP(&opts.Parallel, "parallel", "p", 1, "Number of identical requests to send concurrently")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Prefix each response with its status and attempt statistics")

	return cmd
}

func runDo(cmd *cobra.Command, opts *DoOptions, method, url string) error {
	if opts.Parallel < 1 {
		return fmt.Errorf("--parallel must be at least 1, got %d", opts.Parallel)
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if err := applyRetryFlags(cmd, opts, cfg); err != nil {
		return err
	}

	headers, err := parseHeaders(opts.Headers)
	if err != nil {
		return err
	}
	body, err := readData(opts.Data, cmd.InOrStdin())
	if err != nil {
		return err
	}

	log := logger.NewWithWriter(cmd.ErrOrStderr(), cfg.Log.Level, nil)

	provider, err := observability.NewProvider(cfg.Observability,
		observability.WithLogger(log),
		observability.WithWriter(cmd.ErrOrStderr()),
	)
	if err != nil {
		return err
	}
	defer func() {
		if err := observability.Shutdown(provider, observability.DefaultShutdownTimeout); err != nil {
			log.Warn().Err(err).Msg("Observability shutdown failed")
		}
	}()

	client := httpclient.NewBuilderFromConfig(cfg, log).Build()

	// A failed request must not cancel its siblings: every body is printed.
	outputs := make([][]byte, opts.Parallel)
	ctx := cmd.Context()
	var g errgroup.Group
	for i := range opts.Parallel {
		g.Go(func() error {
			out, err := send(ctx, client, method, url, headers, body, opts)
			outputs[i] = out
			return err
		})
	}
	runErr := g.Wait()

	for _, out := range outputs {
		if out == nil {
			continue
		}
		if _, err := cmd.OutOrStdout().Write(out); err != nil {
			return err
		}
	}
	return runErr
}

func send(ctx context.Context, client httpclient.Client, method, url string, headers map[string]string, body []byte, opts *DoOptions) ([]byte, error) {
	resp, err := client.Do(ctx, strings.ToUpper(method), &httpclient.Call{
		URL:     url,
		Headers: headers,
		Body:    body,
	})
	if resp == nil {
		return nil, err
	}

	data, readErr := resp.Bytes()
	if readErr != nil {
		return nil, readErr
	}
	if opts.JSON && len(data) > 0 {
		if pretty, perr := prettyJSON(data); perr == nil {
			data = pretty
		}
	}
	if len(data) > 0 && data[len(data)-1] != '\n' {
		data = append(data, '\n')
	}
	if opts.Verbose {
		status := fmt.Sprintf("HTTP %d attempts=%d elapsed=%s\n", resp.StatusCode, resp.Stats.Attempts, resp.Stats.ElapsedTime)
		data = append([]byte(status), data...)
	}
	return data, err
}

func prettyJSON(data []byte) ([]byte, error) {
	n, err := jsondom.Parse(data)
	if err != nil {
		return nil, err
	}
	return jsondom.MarshalIndent(n, "", "  ")
}

// loadConfig reads the dotenv file, then layers config file and environment over defaults.
func loadConfig(opts *DoOptions) (*config.Config, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", opts.EnvFile, err)
		}
	}

	var loadOpts []config.LoadOption
	if opts.ConfigFile != "" {
		loadOpts = append(loadOpts, config.WithFile(opts.ConfigFile))
	}
	return config.Load(loadOpts...)
}

// applyRetryFlags overrides the retry section with explicitly set flags.
func applyRetryFlags(cmd *cobra.Command, opts *DoOptions, cfg *config.Config) error {
	flags := cmd.Flags()

	if flags.Changed("strategy") {
		switch opts.Strategy {
		case config.RetryModeFixed, config.RetryModeExponential:
			cfg.Retry.Mode = opts.Strategy
		default:
			return fmt.Errorf("--strategy must be %s or %s, got %q", config.RetryModeFixed, config.RetryModeExponential, opts.Strategy)
		}
	}
	if flags.Changed("retries") {
		if opts.Retries < 0 {
			return fmt.Errorf("--retries cannot be negative")
		}
		cfg.Retry.MaxRetries = opts.Retries
	}
	if flags.Changed("delay") {
		cfg.Retry.Delay = opts.Delay
		cfg.Retry.BaseDelay = opts.Delay
	}
	if flags.Changed("max-delay") {
		cfg.Retry.MaxDelay = opts.MaxDelay
	}
	return nil
}

func parseHeaders(raw []string) (map[string]string, error) {
	headers := make(map[string]string, len(raw))
	for _, h := range raw {
		name, value, ok := strings.Cut(h, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q, expected 'Name: value'", h)
		}
		headers[name] = strings.TrimSpace(value)
	}
	return headers, nil
}

func readData(data string, stdin io.Reader) ([]byte, error) {
	path, isRef := strings.CutPrefix(data, "@")
	if !isRef {
		if data == "" {
			return nil, nil
		}
		return []byte(data), nil
	}
	if path == "-" {
		return io.ReadAll(stdin)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	return b, nil
}
