package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/yourusername/misc-installer-go/internal/app"
	"github.com/yourusername/misc-installer-go/internal/domain"
	"github.com/yourusername/misc-installer-go/pkg/logger"
)

var (
	serverURL   string
	noAutoStart bool
	rootCmd     = &cobra.Command{
		Use:           "misc-installer",
		Short:         "Misc Installer CLI - installs Popcorn-Time, DrJava and Processing",
		Long:          `A command-line interface for queueing framework installs on the misc-installer server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pollInterval = time.Second
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8484", "Server URL")
	rootCmd.PersistentFlags().BoolVar(&noAutoStart, "no-auto-start", false, "Don't auto-start server if not running")

	rootCmd.AddCommand(frameworksCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(retryCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(eventsCmd)
}

// ensureServer checks if server is running and starts it if needed (unless --no-auto-start)
func ensureServer(cmd *cobra.Command, args []string) {
	if noAutoStart {
		return
	}
	if err := ensureServerRunning(cmd.ErrOrStderr()); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
	}
}

var frameworksCmd = &cobra.Command{
	Use:    "frameworks",
	Short:  "List installable frameworks",
	PreRun: ensureServer,
	RunE: func(cmd *cobra.Command, args []string) error {
		var frameworks []app.FrameworkInfo
		if err := call(http.MethodGet, "/api/v1/frameworks", nil, &frameworks); err != nil {
			return err
		}

		table := uitable.New()
		table.MaxColWidth = 50
		table.AddRow("NAME", "INSTALLED", "VERSION", "ARCHS", "PATH")
		for _, f := range frameworks {
			archs := strings.Join(f.Descriptor.OnlyOnArchs, ",")
			if archs == "" {
				archs = "all"
			}
			table.AddRow(f.Name, yesNo(f.Installed), f.Version, archs, f.InstallPath)
		}
		fmt.Fprintln(cmd.OutOrStdout(), table)
		return nil
	},
}

var installCmd = &cobra.Command{
	Use:    "install [framework...]",
	Short:  "Queue framework installs",
	Args:   cobra.MinimumNArgs(1),
	PreRun: ensureServer,
	RunE: func(cmd *cobra.Command, args []string) error {
		priority, _ := cmd.Flags().GetInt("priority")
		wait, _ := cmd.Flags().GetBool("wait")
		out := cmd.OutOrStdout()

		var queued []domain.Install
		for _, framework := range args {
			var install domain.Install
			body := map[string]interface{}{"framework": framework, "priority": priority}
			if err := call(http.MethodPost, "/api/v1/installs", body, &install); err != nil {
				return fmt.Errorf("%s: %w", framework, err)
			}
			fmt.Fprintf(out, "Queued %s (ID: %s, status: %s)\n", install.Framework, install.ID, install.Status)
			queued = append(queued, install)
		}

		if !wait {
			return nil
		}
		failed := 0
		for _, install := range queued {
			final, err := waitForInstall(out, install.ID)
			if err != nil {
				return err
			}
			if final.Status != domain.StatusInstalled {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d installs did not complete", failed, len(queued))
		}
		return nil
	},
}

// waitForInstall polls an install until it reaches a final state, printing status changes
func waitForInstall(out io.Writer, id string) (*domain.Install, error) {
	var last domain.InstallStatus
	for {
		var install domain.Install
		if err := call(http.MethodGet, "/api/v1/installs/"+id, nil, &install); err != nil {
			return nil, err
		}
		if install.Status != last {
			fmt.Fprintf(out, "%s: %s\n", install.Framework, install.Status)
			last = install.Status
		}
		switch install.Status {
		case domain.StatusInstalled:
			fmt.Fprintf(out, "%s installed in %s\n", install.Framework, install.InstallPath)
			return &install, nil
		case domain.StatusFailed:
			fmt.Fprintf(out, "%s failed: %s\n", install.Framework, install.ErrorMessage)
			return &install, nil
		case domain.StatusCancelled:
			return &install, nil
		}
		time.Sleep(pollInterval)
	}
}

var listCmd = &cobra.Command{
	Use:    "list",
	Short:  "List install jobs",
	PreRun: ensureServer,
	RunE: func(cmd *cobra.Command, args []string) error {
		query := url.Values{}
		if status, _ := cmd.Flags().GetString("status"); status != "" {
			query.Set("status", status)
		}
		if framework, _ := cmd.Flags().GetString("framework"); framework != "" {
			query.Set("framework", framework)
		}

		path := "/api/v1/installs"
		if len(query) > 0 {
			path += "?" + query.Encode()
		}

		var installs []domain.Install
		if err := call(http.MethodGet, path, nil, &installs); err != nil {
			return err
		}

		table := uitable.New()
		table.MaxColWidth = 40
		table.AddRow("ID", "FRAMEWORK", "STATUS", "VERSION", "CREATED")
		for _, i := range installs {
			table.AddRow(truncate(i.ID, 8), i.Framework, i.Status, i.Version, i.CreatedAt.Format(time.RFC3339))
		}
		fmt.Fprintln(cmd.OutOrStdout(), table)
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:    "get [id]",
	Short:  "Get install job details",
	Args:   cobra.ExactArgs(1),
	PreRun: ensureServer,
	RunE: func(cmd *cobra.Command, args []string) error {
		var install domain.Install
		if err := call(http.MethodGet, "/api/v1/installs/"+args[0], nil, &install); err != nil {
			return err
		}

		table := uitable.New()
		table.MaxColWidth = 80
		table.AddRow("ID:", install.ID)
		table.AddRow("Framework:", install.Framework)
		table.AddRow("Status:", install.Status)
		table.AddRow("Priority:", install.Priority)
		table.AddRow("Created:", install.CreatedAt.Format(time.RFC3339))
		if install.URL != "" {
			table.AddRow("URL:", install.URL)
		}
		if install.Version != "" {
			table.AddRow("Version:", install.Version)
		}
		if install.InstallPath != "" {
			table.AddRow("Path:", install.InstallPath)
		}
		if install.RetryCount > 0 {
			table.AddRow("Retries:", install.RetryCount)
		}
		if install.ErrorMessage != "" {
			table.AddRow("Error:", install.ErrorMessage)
		}
		fmt.Fprintln(cmd.OutOrStdout(), table)
		return nil
	},
}

var cancelCmd = &cobra.Command{
	Use:    "cancel [id]",
	Short:  "Cancel a queued or running install",
	Args:   cobra.ExactArgs(1),
	PreRun: ensureServer,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := call(http.MethodPost, "/api/v1/installs/"+args[0]+"/cancel", nil, nil); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Install cancelled")
		return nil
	},
}

var retryCmd = &cobra.Command{
	Use:    "retry [id]",
	Short:  "Retry a failed install",
	Args:   cobra.ExactArgs(1),
	PreRun: ensureServer,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := call(http.MethodPost, "/api/v1/installs/"+args[0]+"/retry", nil, nil); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Install queued for retry")
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:    "delete [id]",
	Short:  "Delete a finished install job",
	Args:   cobra.ExactArgs(1),
	PreRun: ensureServer,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := call(http.MethodDelete, "/api/v1/installs/"+args[0], nil, nil); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Install deleted")
		return nil
	},
}

var removeCmd = &cobra.Command{
	Use:    "remove [framework]",
	Short:  "Remove an installed framework and its launcher",
	Args:   cobra.ExactArgs(1),
	PreRun: ensureServer,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := call(http.MethodDelete, "/api/v1/frameworks/"+args[0], nil, nil); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s removed\n", args[0])
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:    "version [framework]",
	Short:  "Compare the installed version with the latest published one",
	Args:   cobra.ExactArgs(1),
	PreRun: ensureServer,
	RunE: func(cmd *cobra.Command, args []string) error {
		var info app.VersionInfo
		if err := call(http.MethodGet, "/api/v1/frameworks/"+args[0]+"/version", nil, &info); err != nil {
			return err
		}

		installed := info.Installed
		if installed == "" {
			installed = "-"
		}
		table := uitable.New()
		table.AddRow("Latest:", info.Latest)
		table.AddRow("Installed:", installed)
		table.AddRow("Update available:", yesNo(info.UpdateAvailable))
		fmt.Fprintln(cmd.OutOrStdout(), table)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:    "stats",
	Short:  "Show install statistics",
	PreRun: ensureServer,
	RunE: func(cmd *cobra.Command, args []string) error {
		var stats domain.InstallStats
		if err := call(http.MethodGet, "/api/v1/installs/stats", nil, &stats); err != nil {
			return err
		}

		table := uitable.New()
		table.AddRow("Total:", stats.Total)
		table.AddRow("Queued:", stats.Queued)
		table.AddRow("Downloading:", stats.Downloading)
		table.AddRow("Installing:", stats.Installing)
		table.AddRow("Installed:", stats.Installed)
		table.AddRow("Failed:", stats.Failed)
		table.AddRow("Cancelled:", stats.Cancelled)
		fmt.Fprintln(cmd.OutOrStdout(), "Install Statistics:")
		fmt.Fprintln(cmd.OutOrStdout(), table)
		return nil
	},
}

var logsCmd = &cobra.Command{
	Use:    "logs [id]",
	Short:  "View the process log of an install",
	Args:   cobra.ExactArgs(1),
	PreRun: ensureServer,
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := fetchText("/api/v1/installs/" + args[0] + "/log")
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), text)
		return nil
	},
}

var eventsCmd = &cobra.Command{
	Use:    "events [category]",
	Short:  "View today's queue or error events",
	Args:   cobra.MaximumNArgs(1),
	PreRun: ensureServer,
	RunE: func(cmd *cobra.Command, args []string) error {
		category := string(logger.CategoryQueue)
		if len(args) == 1 {
			category = args[0]
		}
		if _, err := logger.ParseCategory(category); err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")
		jsonOutput, _ := cmd.Flags().GetBool("json")

		var result struct {
			Entries []logger.LogEntry `json:"entries"`
		}
		path := fmt.Sprintf("/api/v1/logs/%s?limit=%d", category, limit)
		if err := call(http.MethodGet, path, nil, &result); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(result.Entries)
		}
		for _, e := range result.Entries {
			fmt.Fprintf(out, "%s %-5s %s%s\n", e.Timestamp, strings.ToUpper(e.Level), e.Message, formatFields(e.Fields))
		}
		return nil
	},
}

func init() {
	installCmd.Flags().IntP("priority", "p", 0, "Queue priority, higher runs first")
	installCmd.Flags().BoolP("wait", "w", false, "Wait until the installs finish")
	listCmd.Flags().StringP("status", "s", "", "Filter by status")
	listCmd.Flags().StringP("framework", "f", "", "Filter by framework")
	eventsCmd.Flags().IntP("limit", "n", 50, "Number of entries")
	eventsCmd.Flags().BoolP("json", "j", false, "Output in JSON format")
}

func formatFields(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, fields[k])
	}
	return b.String()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
