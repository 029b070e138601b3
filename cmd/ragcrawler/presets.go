package main

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/nao1215/ragcrawler/internal/config"
)

// Preset origins shown in the listing.
const (
	presetOriginConfig  = "config"
	presetOriginBuiltin = "builtin"
)

// NewPresetsCmd creates the presets command.
func NewPresetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presets [start-url]",
		Short: "List crawl presets",
		Long: `Presets lists the presets from the configuration file followed by the
built-in presets, in the order they are matched against a start URL.

Given a start URL, presets also reports which preset a crawl of that URL
would use.

Examples:
  # List every preset
  ragcrawler presets

  # Show which preset applies to a URL
  ragcrawler presets https://github.com/owner/repo/wiki`,
		Args: cobra.MaximumNArgs(1),
		RunE: runPresetsCmd,
	}

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .ragcrawler in current or home directory)")

	return cmd
}

// runPresetsCmd executes the presets command.
func runPresetsCmd(cmd *cobra.Command, args []string) error {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}

	file, err := loadConfigFile(configPath)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if err := writePresetTable(out, file); err != nil {
		return err
	}

	if len(args) == 0 {
		return nil
	}

	preset, err := config.MatchPreset(file.AllPresets(), args[0])
	if err != nil {
		return err
	}
	if preset == nil {
		fmt.Fprintf(out, "\nNo preset matches %s; defaults apply.\n", args[0])
		return nil
	}
	fmt.Fprintf(out, "\n%s uses preset %q.\n", args[0], preset.Name)
	return nil
}

// writePresetTable renders every preset as a Markdown table.
func writePresetTable(w io.Writer, file *config.File) error {
	userCount := 0
	if file != nil {
		userCount = len(file.Presets)
	}

	rows := make([][]string, 0)
	for i, p := range file.AllPresets() {
		origin := presetOriginBuiltin
		if i < userCount {
			origin = presetOriginConfig
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			p.Name,
			origin,
			"`" + p.Test + "`",
			describeOverrides(p.Options),
		})
	}

	return markdown.NewMarkdown(w).
		Table(markdown.TableSet{
			Header: []string{"#", "Name", "Origin", "Test", "Options"},
			Rows:   rows,
		}).
		Build()
}

// describeOverrides summarizes the options a preset sets.
func describeOverrides(o config.Overrides) string {
	parts := make([]string, 0)
	if o.MaxConnections != nil {
		parts = append(parts, fmt.Sprintf("maxConnections=%d", *o.MaxConnections))
	}
	if o.Exclude != nil {
		parts = append(parts, "exclude="+strings.Join(o.Exclude, ","))
	}
	if o.Extract != nil {
		parts = append(parts, fmt.Sprintf("extract=%q", *o.Extract))
	}
	if o.ToMarkdown != nil {
		parts = append(parts, fmt.Sprintf("toMarkdown=%t", *o.ToMarkdown))
	}
	if o.BreakOnError != nil {
		parts = append(parts, fmt.Sprintf("breakOnError=%t", *o.BreakOnError))
	}
	if o.LogEnabled != nil {
		parts = append(parts, fmt.Sprintf("logEnabled=%t", *o.LogEnabled))
	}
	if len(o.Headers) > 0 {
		keys := make([]string, 0, len(o.Headers))
		for k := range o.Headers {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		parts = append(parts, "headers="+strings.Join(keys, ","))
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " ")
}
