package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/updeck/updeck/internal/config"
	"github.com/updeck/updeck/internal/elevation"
	"github.com/updeck/updeck/internal/engine"
	"github.com/updeck/updeck/internal/executor"
	"github.com/updeck/updeck/internal/hostinfo"
	"github.com/updeck/updeck/internal/logging"
	"github.com/updeck/updeck/internal/providers"
	"github.com/updeck/updeck/internal/state"
)

var (
	version = "0.1.0"
	cfgFile string

	jsonOutput  bool
	forceFlag   bool
	interactive bool
)

var rootCmd = &cobra.Command{
	Use:   "updeck",
	Short: "Unified update checker for package managers",
	Long:  `updeck checks and applies pending updates across winget, mise, npm, pnpm, and PowerShell modules from one place`,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check all enabled providers for pending updates",
	Run: func(cmd *cobra.Command, args []string) {
		runCheck()
	},
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Check and apply pending updates",
	Run: func(cmd *cobra.Command, args []string) {
		runUpdate()
	},
}

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List providers and their status",
	Run: func(cmd *cobra.Command, args []string) {
		runProviders()
	},
}

var enableCmd = &cobra.Command{
	Use:   "enable [provider-id]",
	Short: "Enable a provider",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setProviderEnabled(args[0], true)
	},
}

var disableCmd = &cobra.Command{
	Use:   "disable [provider-id]",
	Short: "Disable a provider",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setProviderEnabled(args[0], false)
	},
}

var ignoreCmd = &cobra.Command{
	Use:   "ignore [package-id]",
	Short: "Exclude a package from update checks",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runIgnore(args[0], true)
	},
}

var unignoreCmd = &cobra.Command{
	Use:   "unignore [package-id]",
	Short: "Stop excluding a package from update checks",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runIgnore(args[0], false)
	},
}

var forgetCmd = &cobra.Command{
	Use:   "forget [package-id]",
	Short: "Clear the recorded installed version for a package",
	Long:  `Successful updates record the applied version to suppress managers that mis-report current versions; forget clears that record so the manager's own report is trusted again`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runForget(args[0])
	},
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose the host environment",
	Run: func(cmd *cobra.Command, args []string) {
		runDoctor()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("updeck v%s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is the per-OS config dir)")

	checkCmd.Flags().BoolVar(&jsonOutput, "json", false, "emit JSON instead of a table")
	updateCmd.Flags().BoolVar(&jsonOutput, "json", false, "emit JSON instead of a table")
	updateCmd.Flags().BoolVar(&forceFlag, "force", false, "retry pinned/unknown packages with elevation where supported")
	updateCmd.Flags().BoolVar(&interactive, "interactive", false, "allow installers to show their own UI")

	providersCmd.AddCommand(enableCmd)
	providersCmd.AddCommand(disableCmd)

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(providersCmd)
	rootCmd.AddCommand(ignoreCmd)
	rootCmd.AddCommand(unignoreCmd)
	rootCmd.AddCommand(forgetCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app wires the shared dependencies every subcommand needs.
type app struct {
	cfg      *config.Config
	store    *state.Store
	registry *providers.Registry
	engine   *engine.Engine
	helper   *elevation.Helper
}

func setup() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logging.Init(cfg.LogFormat, cfg.LogLevel, os.Stderr)

	helper := elevation.NewHelper(executor.ResolveOnPath)
	registry := providers.NewRegistry(helper, providers.Timeouts{
		List:    time.Duration(cfg.ListTimeoutSeconds) * time.Second,
		Network: time.Duration(cfg.NetworkTimeoutSeconds) * time.Second,
	})
	store := state.Open(cfg.StateFile(), registry.IDs())

	return &app{
		cfg:      cfg,
		store:    store,
		registry: registry,
		engine:   engine.New(registry, store, cfg.CheckConcurrency),
		helper:   helper,
	}, nil
}

func mustSetup() *app {
	a, err := setup()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return a
}

// signalContext cancels on interrupt so in-flight provider processes get
// killed instead of orphaned.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runCheck() {
	a := mustSetup()
	ctx, cancel := signalContext()
	defer cancel()

	result, err := a.engine.CheckAll(ctx, a.store.EnabledProviders(a.registry.IDs()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "check aborted: %v\n", err)
		os.Exit(1)
	}

	if jsonOutput {
		printJSON(result)
		return
	}

	if len(result.Records) == 0 {
		fmt.Printf("Everything up to date (%d providers checked)\n", len(result.CheckedProviderIDs))
		return
	}
	printRecords(result.Records)
	fmt.Printf("\n%d update(s) across %d provider(s)\n", len(result.Records), len(result.CheckedProviderIDs))
}

func runUpdate() {
	a := mustSetup()
	ctx, cancel := signalContext()
	defer cancel()

	result, err := a.engine.CheckAll(ctx, a.store.EnabledProviders(a.registry.IDs()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "check aborted: %v\n", err)
		os.Exit(1)
	}
	if len(result.Records) == 0 {
		fmt.Println("Everything up to date")
		return
	}

	summary := a.engine.Apply(ctx, result.Records, engine.ApplyOptions{
		ForceSkipped: forceFlag,
		Interactive:  interactive,
	})

	if jsonOutput {
		printJSON(summary)
	} else {
		printSummary(summary)
	}
	if len(summary.Failed) > 0 {
		os.Exit(1)
	}
}

func runProviders() {
	a := mustSetup()

	enabled := map[string]bool{}
	for _, id := range a.store.EnabledProviders(a.registry.IDs()) {
		enabled[id] = true
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tENABLED\tAVAILABLE")
	for _, p := range a.registry.All() {
		fmt.Fprintf(w, "%s\t%s\t%v\t%v\n", p.ID(), p.DisplayName(), enabled[p.ID()], p.IsAvailable())
	}
	w.Flush()
}

func setProviderEnabled(id string, enabled bool) {
	a := mustSetup()
	if !a.registry.Has(id) {
		fmt.Fprintf(os.Stderr, "unknown provider %q (known: %v)\n", id, a.registry.IDs())
		os.Exit(1)
	}

	a.store.SetProviderEnabled(id, enabled)
	if err := a.store.Save(); err != nil {
		fmt.Fprintf(os.Stderr, "could not save state: %v\n", err)
		os.Exit(1)
	}
	verb := "disabled"
	if enabled {
		verb = "enabled"
	}
	fmt.Printf("Provider %s %s\n", id, verb)
}

func runIgnore(packageID string, ignore bool) {
	a := mustSetup()

	if ignore {
		a.store.AddIgnored(packageID)
	} else {
		a.store.RemoveIgnored(packageID)
	}
	if err := a.store.Save(); err != nil {
		fmt.Fprintf(os.Stderr, "could not save state: %v\n", err)
		os.Exit(1)
	}
	if ignore {
		fmt.Printf("Ignoring %s\n", packageID)
	} else {
		fmt.Printf("No longer ignoring %s\n", packageID)
	}
}

func runForget(packageID string) {
	a := mustSetup()

	a.store.RemoveInstalledVersion(packageID)
	if err := a.store.Save(); err != nil {
		fmt.Fprintf(os.Stderr, "could not save state: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Cleared recorded version for %s\n", packageID)
}

func runDoctor() {
	a := mustSetup()
	ctx, cancel := signalContext()
	defer cancel()

	info := hostinfo.Collect()
	fmt.Printf("Host:      %s (%s, %s)\n", info.Hostname, info.OSVersion, info.Architecture)
	fmt.Printf("Elevated:  %v\n", elevation.IsElevated())
	fmt.Printf("Helper:    %s (available: %v)\n", a.helper.Name(), a.helper.Available())

	if !a.helper.Available() {
		timeout := 10 * time.Second
		if a.cfg.NetworkTimeoutSeconds > 0 {
			timeout = time.Duration(a.cfg.NetworkTimeoutSeconds) * time.Second
		}
		fetchCtx, fetchCancel := context.WithTimeout(ctx, timeout)
		defer fetchCancel()

		release, err := elevation.LatestRelease(fetchCtx, http.DefaultClient, elevation.DefaultReleaseURL)
		if err == nil {
			fmt.Printf("           latest %s release: %s\n", a.helper.Name(), release.Version())
		}
	}

	fmt.Printf("State:     %s\n", a.cfg.StateFile())
	if last := a.store.LastCheck(); last != "" {
		fmt.Printf("Last check: %s\n", last)
	}

	fmt.Println("\nProviders:")
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, p := range a.registry.All() {
		status := "not found"
		if p.IsAvailable() {
			status = "ok"
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\n", p.ID(), p.DisplayName(), status)
	}
	w.Flush()
}

func printRecords(records []providers.UpdateRecord) {
	// Group by provider for stable presentation; concurrent checks give
	// no cross-provider ordering.
	var order []string
	groups := make(map[string][]providers.UpdateRecord)
	for _, r := range records {
		if _, seen := groups[r.ProviderID]; !seen {
			order = append(order, r.ProviderID)
		}
		groups[r.ProviderID] = append(groups[r.ProviderID], r)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PROVIDER\tPACKAGE\tCURRENT\tNEW\tSTATUS\tNOTES")
	for _, providerID := range order {
		for _, r := range groups[providerID] {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				r.ProviderID, r.ID, r.CurrentVersion, r.NewVersion, r.Status, r.Notes)
		}
	}
	w.Flush()
}

func printSummary(summary engine.ApplySummary) {
	for _, r := range summary.Updated {
		fmt.Printf("updated  %s %s -> %s\n", r.ID, r.CurrentVersion, r.NewVersion)
	}
	for _, f := range summary.Failed {
		if f.Unsupported {
			fmt.Printf("skipped  %s: not updatable through %s, use its own updater\n", f.Record.ID, f.Record.ProviderID)
			continue
		}
		fmt.Printf("failed   %s: %v\n", f.Record.ID, f.Err)
	}
	for _, r := range summary.Skipped {
		note := string(r.Status)
		if r.Notes != "" {
			note = r.Notes
		}
		fmt.Printf("skipped  %s (%s)\n", r.ID, note)
	}
	fmt.Printf("\n%d updated, %d failed, %d skipped\n",
		len(summary.Updated), len(summary.Failed), len(summary.Skipped))
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil && !errors.Is(err, syscall.EPIPE) {
		fmt.Fprintln(os.Stderr, err)
	}
}
