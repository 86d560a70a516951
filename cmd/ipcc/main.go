// Package main is the entrypoint for the ipcc CLI.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/eugeniofciuvasile/ipcc/internal/cli"
	"github.com/eugeniofciuvasile/ipcc/internal/config"
	"github.com/eugeniofciuvasile/ipcc/internal/device"
	"github.com/eugeniofciuvasile/ipcc/internal/logging"
	"github.com/eugeniofciuvasile/ipcc/internal/registry"
	"github.com/eugeniofciuvasile/ipcc/internal/session"
	"github.com/eugeniofciuvasile/ipcc/internal/transport"
	"github.com/eugeniofciuvasile/ipcc/internal/ui"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(newApp()).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// app carries the flag values and the hooks tests replace.
type app struct {
	opts    cli.Options
	jsonOut bool

	getenv func(string) string
	prompt cli.PasswordPrompt
	pick   func(title string, files []device.File) (device.File, error)
	// dial overrides the transport picked from the flags.
	dial transport.Dialer
}

func newApp() *app {
	return &app{
		getenv: os.Getenv,
		prompt: cli.TerminalPrompt,
		pick:   cli.SelectFile,
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "ipcc",
		Short: "Edit OpenIPC camera and Radxa board configuration over SSH",
		Long: `ipcc fetches the configuration files of an OpenIPC camera or a Radxa
companion board over SSH, lets you edit them in tabs and writes them back.

Run without a command to open the editor. The subcommands work without a UI.

Examples:
  ipcc --host 192.168.1.10 --user root
  ipcc pull --out ./camera
  ipcc push /etc/majestic.yaml ./camera/etc/majestic.yaml
  ipcc --demo`,
		Version:      fmt.Sprintf("%s (commit: %s)", version, commit),
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if a.opts.Verbose {
				log.SetOutput(cmd.ErrOrStderr())
			} else {
				log.SetOutput(io.Discard)
			}
		},
		RunE: a.runTUI,
	}
	a.opts.Bind(root)
	root.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "output results as JSON")

	root.AddCommand(a.newPullCmd())
	root.AddCommand(a.newPushCmd())
	root.AddCommand(a.newGetCmd())
	root.AddCommand(a.newFilesCmd())
	root.AddCommand(a.newProbeCmd())

	return root
}

func (a *app) runTUI(cmd *cobra.Command, args []string) error {
	settings, err := a.opts.Settings(cmd)
	if err != nil {
		return err
	}

	logfilePath, err := settings.ResolveLogFile()
	if err != nil {
		return err
	}
	logCloser, err := tea.LogToFile(logfilePath, "")
	if err != nil {
		return fmt.Errorf("unable to set log file: %w", err)
	}
	defer logCloser.Close()

	opts := ui.Options{Verify: a.opts.Verify, Port: settings.Port}
	record := config.NewAppConfig()
	if a.opts.Demo {
		// Nothing typed in demo mode goes to disk.
		opts.Record = record
	} else {
		store, err := a.opts.Store()
		if err != nil {
			return err
		}
		record = store.Config
		opts.Store = store
	}
	a.opts.Apply(cmd, record)

	logs := logging.NewChannel(256)
	svc := logging.New(logging.Std(), logs)
	opts.Logs = logs
	opts.Orchestrator = session.New(a.opts.Dialer(settings, record.DeviceType), registry.New(), svc, settings)

	log.Printf("[Main] Starting ipcc %s", version)
	model := ui.NewModel(cmd.Context(), opts)
	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(cmd.Context()),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running program: %w", err)
	}
	if n := logs.Dropped(); n > 0 {
		log.Printf("[Main] %d log lines did not reach the log pane", n)
	}
	return nil
}

// connect opens an orchestrator for the target named by the flags and the
// stored record.
func (a *app) connect(cmd *cobra.Command) (*session.Orchestrator, cli.Target, error) {
	settings, err := a.opts.Settings(cmd)
	if err != nil {
		return nil, cli.Target{}, err
	}
	store, err := a.opts.Store()
	if err != nil {
		return nil, cli.Target{}, err
	}
	target, err := a.opts.Resolve(cmd, store, a.password)
	if err != nil {
		return nil, cli.Target{}, err
	}
	if target.Creds.Port == 0 {
		target.Creds.Port = settings.Port
	}

	var logger logging.Logger = logging.Discard
	if a.opts.Verbose {
		logger = logging.New(logging.Writer(cmd.ErrOrStderr()))
	}
	dial := a.dial
	if dial == nil {
		dial = a.opts.Dialer(settings, target.Class)
	}
	return session.New(dial, registry.New(), logger, settings), target, nil
}

// password prefers IPCC_PASSWORD over an interactive prompt.
func (a *app) password(creds config.Credentials) (string, error) {
	if p := a.getenv("IPCC_PASSWORD"); p != "" {
		return p, nil
	}
	if a.prompt == nil {
		return "", fmt.Errorf("no password for %s; set IPCC_PASSWORD", creds)
	}
	return a.prompt(creds)
}
