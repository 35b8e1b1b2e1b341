package main

import (
	"github.com/spf13/cobra"
)

// cfg is the effective configuration, resolved before any command runs.
var cfg Config

var rootCmd = &cobra.Command{
	Use:   "convograph",
	Short: "Lay out and inspect NPC conversation graphs",
	Long: `convograph turns NPC conversation definitions into positioned graphs for the
conversation editor. It fetches conversations from the backend, stores them
with their layouts, and serves them over HTTP, MCP or the command line.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		settings, _ := cmd.Flags().GetString("settings")
		cfg = loadConfig(settings)
		applyFlags(cmd, &cfg)
		return nil
	},
}

func init() {
	f := rootCmd.PersistentFlags()
	f.String("settings", settingsPath(), "path to settings.json")
	f.String("db", "", "libSQL database path")
	f.String("backend-url", "", "base URL of the conversation backend")
	f.String("log-level", "", "log level: debug, info, warn or error")
	f.String("tenant", "", "tenant id sent as TENANT_ID")
	f.String("region", "", "region sent as REGION")
	f.Uint16("major-version", 0, "game major version sent as MAJOR_VERSION")
	f.Uint16("minor-version", 0, "game minor version sent as MINOR_VERSION")
	f.String("label-expr", "", "expr-lang expression for node labels, e.g. upper(id)")
}

// applyFlags is the last configuration layer: only flags set explicitly
// override what the settings file and environment produced.
func applyFlags(cmd *cobra.Command, c *Config) {
	flags := cmd.Flags()
	if flags.Changed("db") {
		c.DBPath, _ = flags.GetString("db")
	}
	if flags.Changed("backend-url") {
		c.BackendURL, _ = flags.GetString("backend-url")
	}
	if flags.Changed("log-level") {
		c.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("tenant") {
		c.Tenant.ID, _ = flags.GetString("tenant")
	}
	if flags.Changed("region") {
		c.Tenant.Region, _ = flags.GetString("region")
	}
	if flags.Changed("major-version") {
		c.Tenant.MajorVersion, _ = flags.GetUint16("major-version")
	}
	if flags.Changed("minor-version") {
		c.Tenant.MinorVersion, _ = flags.GetUint16("minor-version")
	}
	if flags.Changed("label-expr") {
		c.LabelExpr, _ = flags.GetString("label-expr")
	}
	if flags.Changed("listen") {
		c.ListenAddr, _ = flags.GetString("listen")
	}
	if flags.Changed("metrics") {
		c.Metrics, _ = flags.GetBool("metrics")
	}
	if flags.Changed("scheduler-interval") {
		c.SchedulerInterval, _ = flags.GetDuration("scheduler-interval")
	}
}
