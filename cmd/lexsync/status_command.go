package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"lexsync/internal/ipc"
)

func newStatusCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and queue counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			err := cmdCtx.withClient(func(client *ipc.Client) error {
				resp, err := client.Status()
				if err != nil {
					return err
				}
				fmt.Fprintln(out, renderStatusLine("Daemon", statusOK, "running (pid "+strconv.Itoa(resp.PID)+")", colorize))
				fmt.Fprintln(out, renderStatusLine("Queue DB", statusInfo, resp.QueueDBPath, colorize))
				fmt.Fprintln(out, renderStatusLine("Socket", statusInfo, resp.SocketPath, colorize))
				fmt.Fprintln(out, renderStatusLine("Lock", statusInfo, resp.LockPath, colorize))
				pending := resp.Stats.Queries.Pending + resp.Stats.Documents.Pending
				failed := resp.Stats.Queries.Failed + resp.Stats.Documents.Failed
				pendingKind := statusOK
				if pending > 0 {
					pendingKind = statusWarn
				}
				fmt.Fprintln(out, renderStatusLine("Pending", pendingKind, strconv.Itoa(pending), colorize))
				fmt.Fprintln(out, renderStatusLine("Failed", statusInfo, strconv.Itoa(failed), colorize))
				return nil
			})
			if err != nil {
				fmt.Fprintln(out, renderStatusLine("Daemon", statusWarn, "not running", colorize))
				return nil
			}
			return nil
		},
	}
}

func newStopCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdCtx.withClient(func(client *ipc.Client) error {
				resp, err := client.Stop()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Daemon stopped: %s\n", yesNo(resp.Stopped))
				return nil
			})
		},
	}
}
