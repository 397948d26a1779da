package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/alienxp03/courtroom/internal/config"
	"github.com/alienxp03/courtroom/internal/core"
	"github.com/alienxp03/courtroom/internal/engine"
	"github.com/alienxp03/courtroom/internal/export"
	"github.com/alienxp03/courtroom/internal/output"
	"github.com/alienxp03/courtroom/internal/persona"
	"github.com/alienxp03/courtroom/internal/storage"
	"github.com/alienxp03/courtroom/provider"
	"github.com/alienxp03/courtroom/web/handlers"
)

var (
	cfgPath   string
	debug     bool
	mockMode  bool
	appConfig *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "courtroom",
	Short: "AI courtroom debate simulator",
	Long: `courtroom stages a trial between AI agents.

Present a case and a clerk summarizes it, then a prosecution and a defense
team argue it in rounds, each side with a strategist and an advocate. The
judge decides when enough has been heard and renders the verdict.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := cfgPath
		if path == "" {
			path = config.DefaultConfigPath()
		}
		var err error
		appConfig, err = config.LoadFrom(path)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if mockMode {
			appConfig.Mock = true
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Config file path (default: ~/.courtroom/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&mockMode, "mock", false, "Use simulated providers and no search")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(rolesCmd)
	rootCmd.AddCommand(configCmd)
}

func newLogger(w io.Writer, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if debug {
		opts.Level = slog.LevelDebug
	}
	var logger *slog.Logger
	if json {
		logger = slog.New(slog.NewJSONHandler(w, opts))
	} else {
		if !debug {
			opts.Level = slog.LevelWarn
		}
		logger = slog.New(slog.NewTextHandler(w, opts))
	}
	slog.SetDefault(logger)
	return logger
}

func getStorage() (storage.Storage, error) {
	store, err := storage.NewSQLiteStorage()
	if err != nil {
		return nil, err
	}
	if err := store.Initialize(); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

// buildCourt assembles the cast, printing which credentials are missing
// when validation fails.
func buildCourt(ctx context.Context, logger *slog.Logger) (*config.Court, error) {
	court, err := appConfig.BuildCourt(ctx, config.Environment(".env"), logger)
	if err != nil {
		var cerr *core.ConfigurationError
		if errors.As(err, &cerr) && len(cerr.Missing) > 0 {
			p := output.NewPrinter(os.Stderr, 0)
			for _, key := range cerr.Missing {
				p.Check(key, false, "missing")
			}
		}
		return nil, err
	}
	return court, nil
}

// ============================================================================
// SERVE COMMAND
// ============================================================================

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web interface",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger(os.Stdout, true)
		if !cmd.Flags().Changed("port") && appConfig.Server.Port != 0 {
			servePort = appConfig.Server.Port
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		court, err := buildCourt(ctx, logger)
		if err != nil {
			return err
		}

		store, err := getStorage()
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		defer store.Close()

		eng, err := engine.New(court.Cast, store)
		if err != nil {
			return err
		}
		eng.SetLogger(logger)

		h := handlers.New(eng, engine.NewManager(), court.Registry, handlers.Options{
			HealthCachePath: handlers.DefaultHealthCachePath(),
			Logger:          logger,
		})

		server := &http.Server{
			Addr:              fmt.Sprintf(":%d", servePort),
			Handler:           h.Routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			logger.Info("Shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			server.Shutdown(shutdownCtx)
		}()

		logger.Info("Starting server", "addr", server.Addr, "mock", appConfig.Mock)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8182, "Server port")
}

// ============================================================================
// RUN COMMAND
// ============================================================================

var (
	runRounds  int
	runVerdict bool
	runExport  string
	runFormat  string
)

var runCmd = &cobra.Command{
	Use:   "run [case]",
	Short: "Run a trial in the terminal",
	Long: `Run a full trial without the web interface.

The case is read from the arguments, or from stdin when none are given.
Rounds continue until the judge is ready or --rounds is reached.

Examples:
  courtroom run "A is accused of stealing a bicycle from a locked shed."
  courtroom run --rounds 3 --export trial.md < case.txt
  courtroom run --mock "The defendant sold counterfeit watches."`,
	RunE: runTrial,
}

func init() {
	runCmd.Flags().IntVarP(&runRounds, "rounds", "r", 3, "Maximum number of rounds")
	runCmd.Flags().BoolVar(&runVerdict, "verdict", true, "Render a verdict after the last round even if the judge is not ready")
	runCmd.Flags().StringVarP(&runExport, "export", "o", "", "Write the trial record to this file")
	runCmd.Flags().StringVarP(&runFormat, "format", "f", "markdown", "Export format (markdown, json, pdf)")
}

func runTrial(cmd *cobra.Command, args []string) error {
	logger := newLogger(os.Stderr, false)

	caseText := strings.Join(args, " ")
	if strings.TrimSpace(caseText) == "" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read case from stdin: %w", err)
		}
		caseText = string(data)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	court, err := buildCourt(ctx, logger)
	if err != nil {
		return err
	}

	store, err := getStorage()
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	eng, err := engine.New(court.Cast, store)
	if err != nil {
		return err
	}
	eng.SetLogger(logger)

	out := cmd.OutOrStdout()
	printer := output.NewPrinter(out, 0)
	eng.OnStatus(printer.Status)

	s := engine.NewSession()
	verdict, err := eng.RunTrial(ctx, s, caseText, engine.TrialOptions{
		MaxRounds:    runRounds,
		ForceVerdict: runVerdict,
		OnStart: func(snap core.Snapshot) {
			printer.Banner(snap)
			printer.Summary(snap.Summary)
		},
		OnRound: func(round core.Round, snap core.Snapshot) {
			printer.Round(round)
			if snap.State == core.StateVerdictPending {
				printer.Ready()
			}
		},
	})
	if err != nil {
		return err
	}

	if verdict == nil {
		fmt.Fprintf(out, "\nThe court adjourns after %d round(s) without a verdict.\n", s.RoundCount())
	} else {
		printer.Verdict(*verdict)
	}

	return exportRecord(s.Snapshot())
}

func exportRecord(snap core.Snapshot) error {
	if runExport == "" {
		return nil
	}
	exporter, err := export.GetExporter(export.Format(runFormat))
	if err != nil {
		return err
	}

	f, err := os.Create(runExport)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	if err := exporter.Export(&snap, f); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	fmt.Printf("\nExported to: %s\n", runExport)
	return nil
}

// ============================================================================
// CHECK COMMAND
// ============================================================================

var checkPing bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check credentials and provider health",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger(os.Stderr, false)
		printer := output.NewPrinter(cmd.OutOrStdout(), 0)
		env := config.Environment(".env")

		if appConfig.Mock {
			printer.Check("mock mode", true, "no credentials needed")
		} else {
			for _, key := range requiredKeys(appConfig) {
				detail := "set"
				ok := strings.TrimSpace(env[key]) != ""
				if !ok {
					detail = "missing"
				}
				printer.Check(key, ok, detail)
			}
		}
		if err := appConfig.Validate(env); err != nil {
			return err
		}
		if !checkPing {
			return nil
		}

		court, err := appConfig.BuildCourt(cmd.Context(), env, logger)
		if err != nil {
			return err
		}
		failed := 0
		unconfigured := map[string]bool{}
		for _, name := range court.Registry.Unconfigured() {
			unconfigured[name] = true
			printer.Check(name, false, "no credentials")
			failed++
		}
		for _, p := range court.Registry.List() {
			checker, ok := p.(provider.HealthChecker)
			if !ok || unconfigured[p.Name()] {
				continue
			}
			status := checker.HealthCheck(cmd.Context())
			detail := fmt.Sprintf("%.2fs %s", status.ResponseTime.Seconds(), roleList(court.Registry.Roles(p.Name())))
			if !status.Available {
				detail = status.Error
				failed++
			}
			printer.Check(p.Name(), status.Available, detail)
		}
		if failed > 0 {
			return fmt.Errorf("%d provider(s) failed the health check", failed)
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().BoolVar(&checkPing, "ping", false, "Send a test prompt to every bound provider")
}

func roleList(roles []core.Role) string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return "(" + strings.Join(names, ", ") + ")"
}

func requiredKeys(cfg *config.Config) []string {
	seen := map[string]bool{}
	for _, rc := range cfg.Roles {
		if rc.Provider != config.ProviderMock && rc.KeyEnv != "" {
			seen[rc.KeyEnv] = true
		}
	}
	if cfg.Search.KeyEnv != "" {
		seen[cfg.Search.KeyEnv] = true
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ============================================================================
// ROLES COMMAND
// ============================================================================

var rolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "List the courtroom roles and their providers",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		output.NewPrinter(out, 0).Roles(persona.DefaultPersonas())

		fmt.Fprintln(out)
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ROLE\tPROVIDER\tMODEL\tKEY")
		for _, role := range core.Roles {
			rc := appConfig.Roles[role]
			prov, key := rc.Provider, rc.KeyEnv
			if appConfig.Mock {
				prov, key = config.ProviderMock, "-"
			}
			model := rc.Model
			if model == "" {
				model = appConfig.Providers[rc.Provider].DefaultModel
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", role, prov, model, key)
		}
		return w.Flush()
	},
}

// ============================================================================
// CONFIG COMMAND
// ============================================================================

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgPath
		if path == "" {
			path = config.DefaultConfigPath()
		}
		fmt.Fprintf(cmd.OutOrStdout(), "# Config file: %s\n", path)

		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(appConfig)
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create example config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgPath
		if path == "" {
			path = config.DefaultConfigPath()
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists at %s", path)
		}

		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(config.GenerateExample()), 0644); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Created config at: %s\n", path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}
