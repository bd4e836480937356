package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/psantana5/supervise/pkg/api"
	"github.com/psantana5/supervise/pkg/config"
	"github.com/psantana5/supervise/pkg/metrics"
	"github.com/psantana5/supervise/pkg/shutdown"
	"github.com/psantana5/supervise/pkg/supervise"
)

var (
	specFile      string
	processName   string
	alwaysRestart bool
	listenAddr    string
	showReport    bool
)

var runCmd = &cobra.Command{
	Use:   "run [flags] -- command [args...]",
	Short: "Launch a command under supervision",
	Long: `Launch a command and supervise it until it settles: the child runs in its
own process group, exits are observed in the background, and SIGINT/SIGTERM
on supervise itself are translated into a graceful Terminate of the child.`,
	RunE: runSupervised,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&specFile, "file", "", "YAML process spec (alternative to command arguments)")
	runCmd.Flags().StringVar(&processName, "name", "", "process name used in logs and metrics (default: program basename)")
	runCmd.Flags().BoolVar(&alwaysRestart, "always-restart", false, "relaunch the command whenever it exits, regardless of exit code")
	runCmd.Flags().StringVar(&listenAddr, "listen", "", "address for the status/metrics HTTP server (disabled when empty)")
	runCmd.Flags().BoolVar(&showReport, "report", false, "print a lifecycle report table on exit")
}

func runSupervised(cmd *cobra.Command, args []string) error {
	log := newLogger()

	spec, err := resolveSpec(args)
	if err != nil {
		return err
	}

	collector := metrics.NewCollector()

	opts := []supervise.Option{
		supervise.WithLogger(log),
		supervise.WithMetrics(collector),
		supervise.WithOutput(os.Stdout, os.Stderr),
	}
	if spec.AlwaysRestart {
		opts = append(opts, supervise.WithAlwaysRestart())
	}
	proc := supervise.New(spec.Name, spec.Argv(), opts...)

	if err := proc.Start(); err != nil {
		return err
	}

	if listenAddr != "" {
		server := api.NewStatusServer(proc, collector, log)
		go func() {
			if err := server.ListenAndServe(listenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("status server stopped", map[string]interface{}{"error": err.Error()})
			}
		}()
	}

	// SIGINT/SIGTERM on supervise itself become a graceful Terminate.
	manager := shutdown.New(30*time.Second, log)
	manager.Register(func(ctx context.Context) error {
		return proc.Terminate()
	})
	go func() {
		manager.Wait()
		manager.Shutdown()
	}()

	waitUntilSettled(proc)

	if showReport {
		printReport(proc)
	}

	if rc := proc.Returncode(); rc != 0 {
		return fmt.Errorf("process %q exited with status %d", spec.Name, rc)
	}
	return nil
}

// resolveSpec builds the process spec from --file or the command arguments.
func resolveSpec(args []string) (*config.ProcessSpec, error) {
	if specFile != "" {
		if len(args) > 0 {
			return nil, fmt.Errorf("--file and command arguments are mutually exclusive")
		}
		spec, err := config.Load(specFile)
		if err != nil {
			return nil, err
		}
		if alwaysRestart {
			spec.AlwaysRestart = true
		}
		return spec, nil
	}

	if len(args) == 0 {
		return nil, fmt.Errorf("no command given: pass one after -- or use --file")
	}

	spec := &config.ProcessSpec{
		Name:          processName,
		Command:       args[0],
		Args:          args[1:],
		AlwaysRestart: alwaysRestart,
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

// waitUntilSettled polls until the machine reaches Exited or Killed. An
// always-restart process only settles once a shutdown signal arrives.
func waitUntilSettled(proc *supervise.SupervisedProcess) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		if supervise.IsSettled(proc.State()) {
			return
		}
	}
}

// printReport renders the recorded lifecycle transitions as a table.
func printReport(proc *supervise.SupervisedProcess) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Time", "PID", "State", "Returncode", "Message")

	for _, ev := range proc.Events() {
		table.Append(
			ev.Time.Format("15:04:05.000"),
			strconv.Itoa(ev.PID),
			string(ev.State),
			strconv.Itoa(ev.Returncode),
			ev.Message,
		)
	}

	table.Render()
}
