package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nxneeraj/hx-warden/pkg/api"
	"github.com/nxneeraj/hx-warden/pkg/config"
	"github.com/nxneeraj/hx-warden/pkg/logging"
	"github.com/nxneeraj/hx-warden/pkg/output"
	"github.com/nxneeraj/hx-warden/pkg/proxy"
	"github.com/nxneeraj/hx-warden/pkg/rules"
	"github.com/nxneeraj/hx-warden/pkg/scanner"
	"github.com/nxneeraj/hx-warden/pkg/signatures"
	"github.com/nxneeraj/hx-warden/pkg/store"
)

const shutdownTimeout = 10 * time.Second

var cfg = config.Default()

var proxyCmd = &cobra.Command{
	Use:   "proxy",
	Short: "Run the intercepting proxy and scan responses passively",
	Example: `  hx-warden proxy --listen 127.0.0.1:8080
  hx-warden proxy --target https://app.example.com --api -o findings.txt --o-json findings.json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rawLogger, err := logging.New(cfg.Verbose)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		defer rawLogger.Sync() //nolint:errcheck
		logger := rawLogger.Sugar()

		if cfg.NoColor {
			output.DisableColor()
		}
		if err := cfg.Validate(logger); err != nil {
			return err
		}
		return runProxy(cmd.Context(), cfg, rawLogger, cmd.OutOrStdout())
	},
}

func init() {
	f := proxyCmd.Flags()
	f.StringVar(&cfg.Listen, "listen", config.DefaultListen, "Address the proxy listens on")
	f.StringVar(&cfg.Target, "target", "", "Upstream base URL (reverse proxy mode); empty runs a forward proxy")
	f.BoolVar(&cfg.API, "api", false, "Serve the findings API")
	f.IntVar(&cfg.APIPort, "port", config.DefaultAPIPort, "Port for the findings API")
	f.IntVarP(&cfg.Workers, "workers", "t", config.DefaultWorkers, "Bound concurrent scans to this many workers; 0 scans every response in its own goroutine")
	f.IntVar(&cfg.QueueSize, "queue", config.DefaultQueueSize, "Responses that may wait for a free worker when --workers > 0; extra responses are not scanned")
	f.DurationVar(&cfg.Timeout, "timeout", config.DefaultTimeout, "Upstream request timeout")
	f.Int64Var(&cfg.MaxBodyBytes, "max-body", config.DefaultMaxBodyBytes, "Largest response body buffered for scanning, in bytes")
	f.StringVarP(&cfg.ScopeFile, "scope", "s", "", "File of in-scope hosts (one per line, *.example.com allowed)")
	f.StringVarP(&cfg.OutputFile, "output", "o", "", "Write findings as plain text on exit")
	f.StringVar(&cfg.OutputJSON, "o-json", "", "Write findings as JSON on exit")
	f.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Enable debug logging")
	f.BoolVar(&cfg.NoColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(proxyCmd)
}

// runProxy serves until ctx is cancelled or SIGINT/SIGTERM arrives, then
// drains pending scans and writes the reports.
func runProxy(ctx context.Context, cfg *config.Config, log *zap.Logger, stdout io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	sugar := log.Sugar()

	table := signatures.Default()
	findings := store.New()
	findings.AddListener(output.TerminalListener(stdout))

	dispatcher := scanner.NewDispatcher(
		rules.NewHeaderRules(),
		rules.NewLibraryRules(table),
		findings,
		log.Named("scanner"),
		scanner.Options{Workers: cfg.Workers, QueueSize: cfg.QueueSize},
	)

	px, err := proxy.New(proxy.Options{
		Target:       cfg.Target,
		Scope:        cfg.Scope,
		MaxBodyBytes: cfg.MaxBodyBytes,
		Timeout:      cfg.Timeout,
		Inspect:      scanner.Scannable,
	}, dispatcher, log.Named("proxy"))
	if err != nil {
		return err
	}

	printBanner(stdout, cfg, table)

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           px,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	proxyErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			proxyErr <- err
		}
	}()
	sugar.Infof("[+] Proxy listening on %s", cfg.Listen)

	var apiSrv *api.Server
	var apiErr <-chan error
	if cfg.API {
		apiSrv = api.NewServer(cfg.APIPort, findings, sugar.Named("api"))
		apiErr = apiSrv.Start()
	}

	var runErr error
	select {
	case <-ctx.Done():
		sugar.Info("[+] Shutting down...")
	case runErr = <-proxyErr:
		sugar.Errorf("[-] Proxy stopped: %v", runErr)
	case err, ok := <-apiErr:
		if ok {
			runErr = err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Warnf("Proxy forced to shutdown: %v", err)
	}
	if apiSrv != nil {
		if err := apiSrv.Shutdown(shutdownCtx); err != nil {
			sugar.Warnf("%v", err)
		}
	}
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		sugar.Warnf("Pending scans abandoned: %v", err)
	}
	if dropped := dispatcher.Dropped(); dropped > 0 {
		sugar.Warnf("%d responses were not scanned because the queue was full", dropped)
	}

	fmt.Fprintln(stdout, output.Summary(findings.Count(), findings.CountsBySeverity()))
	if err := output.WriteFindingsToFile(cfg, findings.All(), sugar); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func printBanner(w io.Writer, cfg *config.Config, table *signatures.Table) {
	fmt.Fprintf(w, `
    Hx-Warden %s - Passive HTTP Security Scanner
    ---------------------------------------------
`, Version)
	mode := "forward proxy"
	if cfg.Target != "" {
		mode = "reverse proxy -> " + cfg.Target
	}
	fmt.Fprintf(w, "[+] Mode: %s\n", mode)
	fmt.Fprintln(w, "[+] Scanning for:")
	for _, line := range []string{
		"Insecure HTTP headers",
		"Missing security headers",
		fmt.Sprintf("Outdated JavaScript libraries (%d signatures)", table.Len()),
		"Insecure cookie configurations",
		"CORS misconfigurations",
		"Dangerous JavaScript patterns",
		"Exposed credentials",
	} {
		fmt.Fprintf(w, "    - %s\n", line)
	}
	fmt.Fprintln(w)
}
