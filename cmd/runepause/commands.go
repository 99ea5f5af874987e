package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"runepause/internal/core/timekeeper"
	"runepause/internal/history"
	"runepause/internal/platform"
	"runepause/internal/server"
)

type timerControl struct {
	use   string
	short string
}

var timerControls = []timerControl{
	{"start", "Start a run with the saved settings"},
	{"stop", "Stop the current run"},
	{"pause", "Pause the countdown"},
	{"resume", "Resume the countdown"},
	{"skip", "Skip the current phase (not allowed during hard breaks)"},
	{"snooze", "Snooze the current break"},
	{"interrupt", "End the current phase now"},
}

func printStatus(status server.StatusBody) error {
	if viper.GetBool("json") {
		return printJSON(status)
	}
	fmt.Println(renderStatus(status, colorOutput()))
	return nil
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the timer state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var status server.StatusBody
			if err := newClient(apiAddress()).get(cmd.Context(), "/status", &status); err != nil {
				return err
			}
			return printStatus(status)
		},
	}
}

func controlCmd(control timerControl) *cobra.Command {
	return &cobra.Command{
		Use:   control.use,
		Short: control.short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var status server.StatusBody
			if err := newClient(apiAddress()).post(cmd.Context(), "/"+control.use, &status); err != nil {
				return err
			}
			return printStatus(status)
		},
	}
}

func settingsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "settings", Short: "Show or change settings"}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var settings server.SettingsBody
			if err := newClient(apiAddress()).get(cmd.Context(), "/settings", &settings); err != nil {
				return err
			}
			return printSettings(settings)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set key=value...",
		Short: "Change settings; durations accept 90s, 25m or plain seconds",
		Long: `Change settings on the running instance. Keys:
  focus, break, micro-break, snooze, idle-threshold   durations
  micro-break-every                                   focus phases per micro-break (0 disables)
  hard-break, idle, fullscreen                        true/false
  overlay-opacity                                     0.7 to 0.95
  theme                                               system, light or dark
  obsidian-vault, webhook-url                         text (empty disables)
  force-blocks                                        comma separated list
  hotkey.<action>                                     accelerator, e.g. hotkey.start=F9`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := parseSettingAssignments(args)
			if err != nil {
				return err
			}
			var settings server.SettingsBody
			if err := newClient(apiAddress()).put(cmd.Context(), "/settings", patch, &settings); err != nil {
				return err
			}
			return printSettings(settings)
		},
	})
	return cmd
}

func printSettings(settings server.SettingsBody) error {
	if viper.GetBool("json") {
		return printJSON(settings)
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Setting", "Value"})
	seconds := func(value int64) string { return (time.Duration(value) * time.Second).String() }
	tw.AppendRows([]table.Row{
		{"focus", seconds(settings.FocusSeconds)},
		{"break", seconds(settings.BreakSeconds)},
		{"micro-break", seconds(settings.MicroBreakSeconds)},
		{"micro-break-every", settings.MicroBreakEvery},
		{"hard-break", settings.HardBreak},
		{"snooze", seconds(settings.SnoozeSeconds)},
		{"idle", settings.IdleEnabled},
		{"idle-threshold", seconds(settings.IdleThresholdSeconds)},
		{"theme", settings.Theme},
		{"overlay-opacity", settings.OverlayOpacity},
		{"fullscreen", settings.Fullscreen},
		{"obsidian-vault", settings.ObsidianVault},
		{"webhook-url", settings.WebhookURL},
		{"force-blocks", fmt.Sprint(settings.ForceBlocks)},
	})
	actions := make([]string, 0, len(settings.Hotkeys))
	for action := range settings.Hotkeys {
		actions = append(actions, action)
	}
	sort.Strings(actions)
	for _, action := range actions {
		tw.AppendRow(table.Row{"hotkey." + action, settings.Hotkeys[action]})
	}
	tw.Render()
	return nil
}

func historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently finished phases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var records []history.Record
			path := "/history?limit=" + strconv.Itoa(limit)
			if err := newClient(apiAddress()).get(cmd.Context(), path, &records); err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(records)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Ended", "Phase", "Outcome", "Cycle", "Elapsed", "Planned"})
			for _, record := range records {
				tw.AppendRow(table.Row{
					record.EndedAt.Local().Format("2006-01-02 15:04:05"),
					record.Phase,
					record.Outcome,
					record.Cycle,
					countdown(record.ElapsedSeconds),
					countdown(record.PlannedSeconds),
				})
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", history.DefaultLimit, "number of phases to list")
	return cmd
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream timer events until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			asJSON := viper.GetBool("json")
			color := colorOutput()
			return newClient(apiAddress()).events(ctx, func(name string, data []byte) error {
				if asJSON {
					fmt.Printf("{\"event\":%q,\"data\":%s}\n", name, data)
					return nil
				}
				if name == "status" {
					var status server.StatusBody
					if err := json.Unmarshal(data, &status); err != nil {
						return fmt.Errorf("decode status: %w", err)
					}
					fmt.Println(renderStatus(status, color))
					return nil
				}
				var event timekeeper.Event
				if err := json.Unmarshal(data, &event); err != nil {
					return fmt.Errorf("decode %s event: %w", name, err)
				}
				fmt.Println(renderEvent(event, color))
				return nil
			})
		},
	}
}

func stopwatchCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "stopwatch", Short: "Control the standalone stopwatch"}
	start := &cobra.Command{
		Use:   "start [duration]",
		Short: "Start the stopwatch, optionally counting down from duration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var target time.Duration
			if len(args) == 1 {
				value, err := parseDuration(args[0])
				if err != nil {
					return err
				}
				target = value
			}
			query := url.Values{"duration_seconds": {strconv.FormatInt(int64(target/time.Second), 10)}}
			return stopwatchRequest(cmd.Context(), "/stopwatch/start?"+query.Encode(), true)
		},
	}
	cmd.AddCommand(start)
	for _, action := range []string{"pause", "resume", "stop"} {
		cmd.AddCommand(&cobra.Command{
			Use:   action,
			Short: "Stopwatch " + action,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return stopwatchRequest(cmd.Context(), "/stopwatch/"+action, true)
			},
		})
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the stopwatch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return stopwatchRequest(cmd.Context(), "/stopwatch", false)
		},
	})
	return cmd
}

func stopwatchRequest(ctx context.Context, path string, post bool) error {
	var body server.StopwatchBody
	c := newClient(apiAddress())
	var err error
	if post {
		err = c.post(ctx, path, &body)
	} else {
		err = c.get(ctx, path, &body)
	}
	if err != nil {
		return err
	}
	if viper.GetBool("json") {
		return printJSON(body)
	}
	fmt.Println(renderStopwatch(body))
	return nil
}

func renderStopwatch(body server.StopwatchBody) string {
	state := "stopped"
	switch {
	case body.Done:
		state = "done"
	case body.Paused:
		state = "paused"
	case body.Running:
		state = "running"
	}
	elapsed := countdown(int(body.ElapsedSeconds))
	if body.DurationSeconds > 0 {
		return fmt.Sprintf("%s %s of %s (%s left)", state, elapsed,
			countdown(int(body.DurationSeconds)), countdown(int(body.RemainingSeconds+0.999)))
	}
	return fmt.Sprintf("%s %s", state, elapsed)
}

func autostartCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "autostart", Short: "Start RunePause at login"}
	cmd.AddCommand(&cobra.Command{
		Use:   "enable",
		Short: "Register 'runepause run' as a login item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolve executable: %w", err)
			}
			command := []string{exe, "run"}
			if dir := viper.GetString("config-dir"); dir != "" {
				command = append(command, "--config-dir", dir)
			}
			if err := platform.NewService().EnableAutostart(appName, command); err != nil {
				return err
			}
			fmt.Println("autostart enabled")
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "disable",
		Short: "Remove the login item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := platform.NewService().DisableAutostart(appName); err != nil {
				return err
			}
			fmt.Println("autostart disabled")
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Report whether the login item exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			enabled, err := platform.NewService().AutostartEnabled(appName)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(map[string]bool{"enabled": enabled})
			}
			if enabled {
				fmt.Println("autostart enabled")
			} else {
				fmt.Println("autostart disabled")
			}
			return nil
		},
	})
	return cmd
}
