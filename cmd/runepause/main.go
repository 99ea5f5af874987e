package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"runepause/internal/platform"
	"runepause/internal/storage"
)

const (
	appName = "RunePause"
	appID   = "io.runepause.app"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "runepause",
	Short: "Break reminder with a phase-cycling focus timer",
	Long: `RunePause alternates focus phases with breaks and micro-breaks.
'runepause run' starts the tray application (or a headless timer) and serves a
localhost control API; every other command talks to that running instance.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("RUNEPAUSE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().String("addr", "", "control API address (default derived from the app name)")
	rootCmd.PersistentFlags().String("config-dir", "", "directory for settings and history (default OS config dir)")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("addr", rootCmd.PersistentFlags().Lookup("addr"))
	_ = viper.BindPFlag("config-dir", rootCmd.PersistentFlags().Lookup("config-dir"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(statusCmd())
	for _, control := range timerControls {
		rootCmd.AddCommand(controlCmd(control))
	}
	rootCmd.AddCommand(settingsCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(stopwatchCmd())
	rootCmd.AddCommand(autostartCmd())
}

func apiAddress() string {
	if addr := viper.GetString("addr"); addr != "" {
		return addr
	}
	return platform.InstanceAddress(appName)
}

// dataDir returns the directory holding settings.yaml and history.db.
func dataDir() (string, error) {
	if dir := viper.GetString("config-dir"); dir != "" {
		return dir, nil
	}
	store, err := storage.NewStore(appName)
	if err != nil {
		return "", err
	}
	return filepath.Dir(store.Path()), nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
