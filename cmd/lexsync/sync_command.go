package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"lexsync/internal/manager"
	"lexsync/internal/queue"
)

func newSyncCommand(cmdCtx *commandContext) *cobra.Command {
	var kindFlag string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Drain pending items against the remote processor now",
		RunE: func(cmd *cobra.Command, args []string) error {
			if kindFlag != "" {
				if _, ok := queue.ParseKind(kindFlag); !ok {
					return fmt.Errorf("unknown kind %q (expected query or document)", kindFlag)
				}
			}

			var summaries []manager.DrainSummary
			var offline bool
			client, dialErr := cmdCtx.dialClient()
			if dialErr == nil {
				// A daemon drain error is final: falling back would run a
				// second drain against the same database.
				defer client.Close()
				if kindFlag != "" {
					resp, err := client.Drain(kindFlag)
					if err != nil {
						return err
					}
					summaries = []manager.DrainSummary{resp.Summary}
				} else {
					resp, err := client.Sync()
					if err != nil {
						return err
					}
					offline = resp.Offline
					summaries = resp.Summaries
				}
			} else {
				// No daemon reachable; drain with an ephemeral stack.
				err := cmdCtx.withLocalManager(true, func(ctx context.Context, mgr *manager.Manager) error {
					if kindFlag != "" {
						kind, _ := queue.ParseKind(kindFlag)
						summary, drainErr := mgr.Drain(ctx, kind)
						if drainErr != nil {
							return drainErr
						}
						summaries = []manager.DrainSummary{summary}
						return nil
					}
					all, drainErr := mgr.DrainAll(ctx)
					if drainErr != nil {
						return drainErr
					}
					summaries = all
					return nil
				})
				if err != nil {
					return err
				}
			}

			if offline {
				fmt.Fprintln(cmd.OutOrStdout(), "Host is offline; nothing synced.")
				return nil
			}
			for _, summary := range summaries {
				if summary.Skipped {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: drain already in progress, skipped\n", summary.Kind)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: processed %d (completed %d, failed %d, requeued %d)\n",
					summary.Kind, summary.Processed, summary.Completed, summary.Failed, summary.Requeued)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&kindFlag, "kind", "", "Limit the drain to one kind (query or document)")
	return cmd
}
