// resmon is a terminal-resident system resource monitor.
//
// It samples CPU, memory, and disk utilization on a fixed interval,
// evaluates user-defined threshold alarms, and records everything to an
// append-only event log. The live dashboard, one-shot snapshot, alarm
// management, and log queries are all driven from flags.
//
// Usage:
//
//	resmon [flags]
//
// Flags:
//
//	-tui               Launch the interactive dashboard
//	-snapshot          Print a one-shot utilization snapshot
//	-alarms            List configured alarms
//	-alarm-add string  Add an alarm: resource:threshold[:period[:name]]
//	-alarm-rm int      Remove an alarm by id
//	-logs int          Print the n most recent events
//	-search string     Print events whose message contains the text
//	-logs-from/-logs-to  Print events in a date range (YYYY-MM-DD)
//	-config string     Path to configuration file
//	-verbose           Enable debug logging
//	-version           Print version and exit
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/term"

	"gitlab.com/tinyland/lab/resmon/alarm"
	"gitlab.com/tinyland/lab/resmon/config"
	"gitlab.com/tinyland/lab/resmon/display/tui"
	"gitlab.com/tinyland/lab/resmon/display/widgets"
	"gitlab.com/tinyland/lab/resmon/eventlog"
	"gitlab.com/tinyland/lab/resmon/internal/format"
	"gitlab.com/tinyland/lab/resmon/metrics"
	"gitlab.com/tinyland/lab/resmon/monitor"
	"gitlab.com/tinyland/lab/resmon/notify"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to configuration file")
		runTUI      = flag.Bool("tui", false, "Launch the interactive dashboard")
		runSnapshot = flag.Bool("snapshot", false, "Print a one-shot utilization snapshot")
		listAlarms  = flag.Bool("alarms", false, "List configured alarms")
		alarmAdd    = flag.String("alarm-add", "", "Add an alarm: resource:threshold[:period[:name]]")
		alarmRm     = flag.Int("alarm-rm", 0, "Remove an alarm by id")
		logsN       = flag.Int("logs", 0, "Print the n most recent events")
		searchText  = flag.String("search", "", "Print events whose message contains the text")
		logsFrom    = flag.String("logs-from", "", "Range query start date (YYYY-MM-DD)")
		logsTo      = flag.String("logs-to", "", "Range query end date (YYYY-MM-DD)")
		verbose     = flag.Bool("verbose", false, "Enable debug logging")
		showVersion = flag.Bool("version", false, "Print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("resmon %s (%s) built %s\n", version, commit, date)
		os.Exit(0)
	}

	// ---------------------------------------------------------------
	// Configuration and logging
	// ---------------------------------------------------------------

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	events := eventlog.New(cfg.LogDir(), logger)
	store := alarm.NewStore(cfg.AlarmsFile(), events, logger)

	// ---------------------------------------------------------------
	// One-shot query modes
	// ---------------------------------------------------------------

	if *listAlarms {
		printAlarms(store)
		os.Exit(0)
	}

	if *alarmAdd != "" {
		spec, err := alarm.ParseSpec(*alarmAdd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid alarm: %v\n", err)
			os.Exit(1)
		}
		a, err := store.Create(spec.Resource, spec.Threshold, spec.Name, spec.Period)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to add alarm: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("added alarm %d: %s %d%% (%s, %s)\n", a.ID, a.Resource, a.Threshold, a.Name, a.Period)
		os.Exit(0)
	}

	if *alarmRm != 0 {
		if err := store.Remove(*alarmRm); err != nil {
			fmt.Fprintf(os.Stderr, "failed to remove alarm: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("removed alarm %d\n", *alarmRm)
		os.Exit(0)
	}

	if *logsN != 0 {
		printEntries(events.Recent(*logsN))
		os.Exit(0)
	}

	if *searchText != "" {
		printEntries(events.Search(*searchText))
		os.Exit(0)
	}

	if *logsFrom != "" || *logsTo != "" {
		start, end, err := parseRange(*logsFrom, *logsTo)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid date range: %v\n", err)
			os.Exit(1)
		}
		printEntries(events.InRange(start, end))
		os.Exit(0)
	}

	if *runSnapshot {
		if err := printSnapshot(cfg, store); err != nil {
			fmt.Fprintf(os.Stderr, "snapshot failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	// ---------------------------------------------------------------
	// Dashboard mode
	// ---------------------------------------------------------------

	if *runTUI {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigChan
			cancel()
		}()

		source := metrics.NewSystemSource(cfg.Monitor.DiskPath)
		mailer := notify.NewMailer(cfg.SMTPSettings(), logger)
		mon := monitor.New(source, store, events, mailer, cfg.Interval(), logger)

		mon.Start(ctx)
		defer mon.Stop()

		model := tui.NewModel(mon, store, events)
		p := tea.NewProgram(model, tea.WithAltScreen())

		go func() {
			<-ctx.Done()
			p.Quit()
		}()

		if _, err := p.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "dashboard error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	// ---------------------------------------------------------------
	// Default: print usage
	// ---------------------------------------------------------------

	fmt.Printf("resmon v%s (%s) built %s\n", version, commit, date)
	fmt.Println()
	fmt.Println("Usage: resmon [flags]")
	fmt.Println()
	flag.PrintDefaults()
}

// printSnapshot takes one sample directly and renders plain gauges
// sized to the terminal.
func printSnapshot(cfg *config.Config, store *alarm.Store) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	source := metrics.NewSystemSource(cfg.Monitor.DiskPath)
	sample, err := source.Sample(ctx)
	if err != nil {
		return err
	}

	width := 40
	if w, _, err := term.GetSize(os.Stdout.Fd()); err == nil && w > 0 {
		width = w / 2
		if width > 60 {
			width = 60
		}
		if width < 20 {
			width = 20
		}
	}

	for _, r := range metrics.Resources {
		threshold := 0
		for _, a := range store.ListFor(r) {
			threshold = a.Threshold
			break
		}
		fmt.Println(widgets.RenderGauge(widgets.GaugeConfig{
			Width:       width,
			Percent:     sample.Value(r),
			Label:       fmt.Sprintf("%-6s", r),
			ShowPercent: true,
			Threshold:   threshold,
		}))
	}
	fmt.Printf("\nMemory total: %s    Disk total: %s\n",
		format.Gigabytes(sample.MemoryTotalGB), format.Gigabytes(sample.DiskTotalGB))
	return nil
}

// printAlarms lists the alarm set in creation-independent display order.
func printAlarms(store *alarm.Store) {
	alarms := store.List()
	if len(alarms) == 0 {
		fmt.Println("no alarms configured")
		return
	}
	for _, a := range alarms {
		fmt.Printf("%3d  %-6s  %3d%%  %-10s  %s\n", a.ID, a.Resource, a.Threshold, a.Period, a.Name)
	}
}

// printEntries writes event lines oldest first.
func printEntries(entries []eventlog.Entry) {
	for _, e := range entries {
		fmt.Println(e.Line())
	}
}

// parseRange turns from/to date strings into an inclusive range.
// Either side may be empty.
func parseRange(from, to string) (time.Time, time.Time, error) {
	const layout = "2006-01-02"
	start := time.Time{}
	end := time.Now()

	if from != "" {
		t, err := time.ParseInLocation(layout, from, time.Local)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		start = t
	}
	if to != "" {
		t, err := time.ParseInLocation(layout, to, time.Local)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		// Inclusive end of day.
		end = t.Add(24*time.Hour - time.Second)
	}
	return start, end, nil
}
