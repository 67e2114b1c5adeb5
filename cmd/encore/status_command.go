package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"encore/internal/api"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			bind := strings.TrimSpace(cfg.Paths.APIBind)
			if bind == "" {
				return fmt.Errorf("no api_bind configured; daemon status unavailable")
			}

			status, err := fetchDaemonStatus(bind)
			if err != nil {
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.DaemonStatus{Running: false})
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				fmt.Fprintln(out, renderStatusLine("Daemon", statusError, "not reachable: "+err.Error(), colorize))
				return nil
			}

			if ctx.jsonOutput() {
				return writeJSON(cmd, status)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintln(out, renderStatusLine("Daemon", statusOK, fmt.Sprintf("running (pid %d)", status.PID), colorize))

			schedKind := statusOK
			schedMsg := fmt.Sprintf("%d cycles", status.Scheduler.Cycles)
			if !status.Scheduler.Running {
				schedKind = statusError
				schedMsg = "stopped"
			} else if status.Scheduler.LastError != "" {
				schedKind = statusWarn
				schedMsg = fmt.Sprintf("%s, last error: %s", schedMsg, status.Scheduler.LastError)
			}
			fmt.Fprintln(out, renderStatusLine("Scheduler", schedKind, schedMsg, colorize))
			if status.Scheduler.LastCycle != "" {
				fmt.Fprintln(out, renderStatusLine("Last cycle", statusInfo, status.Scheduler.LastCycle, colorize))
			}
			fmt.Fprintln(out, renderStatusLine("Database", statusInfo, status.DatabasePath, colorize))
			fmt.Fprintln(out, renderStatusLine("Lock file", statusInfo, status.LockFilePath, colorize))
			return nil
		},
	}
}

func fetchDaemonStatus(bind string) (*api.DaemonStatus, error) {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(statusURL(bind))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("daemon returned %d", resp.StatusCode)
	}
	var status api.DaemonStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, err
	}
	return &status, nil
}

func statusURL(bind string) string {
	host := bind
	if strings.HasPrefix(host, ":") {
		host = "127.0.0.1" + host
	}
	return "http://" + host + "/api/status"
}
