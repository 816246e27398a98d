package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"lexsync/internal/ipc"
	"lexsync/internal/manager"
	"lexsync/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and maintain the offline queue",
	}
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueStatsCommand(ctx))
	queueCmd.AddCommand(newQueueClearCompletedCommand(ctx))
	return queueCmd
}

func newQueueListCommand(cmdCtx *commandContext) *cobra.Command {
	var kindFlag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pending items, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if kindFlag != "" {
				if _, ok := queue.ParseKind(kindFlag); !ok {
					return fmt.Errorf("unknown kind %q (expected query or document)", kindFlag)
				}
			}

			var items []queue.PendingItem
			err := cmdCtx.withClient(func(client *ipc.Client) error {
				resp, err := client.List(kindFlag)
				if err != nil {
					return err
				}
				items = resp.Items
				return nil
			})
			if err != nil {
				// No daemon; read the store directly.
				err = cmdCtx.withLocalManager(false, func(ctx context.Context, mgr *manager.Manager) error {
					kind, _ := queue.ParseKind(kindFlag)
					pending, listErr := mgr.ListPending(ctx, kind)
					if listErr != nil {
						return listErr
					}
					items = pending
					return nil
				})
			}
			if err != nil {
				return err
			}

			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No pending items.")
				return nil
			}

			rows := make([][]string, 0, len(items))
			for _, item := range items {
				retries := "-"
				if item.Kind == queue.KindQuery {
					retries = fmt.Sprintf("%d/%d", item.RetryCount, item.MaxRetries)
				}
				rows = append(rows, []string{
					item.ID,
					string(item.Kind),
					item.Summary,
					retries,
					item.EnqueuedAt.Local().Format("2006-01-02 15:04:05"),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Kind", "Summary", "Retries", "Enqueued"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&kindFlag, "kind", "", "Limit to one kind (query or document)")
	return cmd
}

func newQueueStatsCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show per-status counts for both collections",
		RunE: func(cmd *cobra.Command, args []string) error {
			var stats queue.Stats
			err := cmdCtx.withClient(func(client *ipc.Client) error {
				resp, err := client.Stats()
				if err != nil {
					return err
				}
				stats = resp.Stats
				return nil
			})
			if err != nil {
				err = cmdCtx.withLocalManager(false, func(ctx context.Context, mgr *manager.Manager) error {
					s, statsErr := mgr.Stats(ctx)
					if statsErr != nil {
						return statsErr
					}
					stats = s
					return nil
				})
			}
			if err != nil {
				return err
			}

			rows := [][]string{
				statsRow("queries", stats.Queries),
				statsRow("documents", stats.Documents),
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Collection", "Pending", "Syncing", "Completed", "Failed", "Total"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}
}

func statsRow(name string, stats queue.CollectionStats) []string {
	return []string{
		name,
		strconv.Itoa(stats.Pending),
		strconv.Itoa(stats.Syncing),
		strconv.Itoa(stats.Completed),
		strconv.Itoa(stats.Failed),
		strconv.Itoa(stats.Total()),
	}
}

func newQueueClearCompletedCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-completed",
		Short: "Remove completed items from both collections",
		RunE: func(cmd *cobra.Command, args []string) error {
			var removed int64
			err := cmdCtx.withClient(func(client *ipc.Client) error {
				resp, err := client.ClearCompleted()
				if err != nil {
					return err
				}
				removed = resp.Removed
				return nil
			})
			if err != nil {
				err = cmdCtx.withLocalManager(false, func(ctx context.Context, mgr *manager.Manager) error {
					n, clearErr := mgr.ClearCompleted(ctx)
					if clearErr != nil {
						return clearErr
					}
					removed = n
					return nil
				})
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d completed item(s).\n", removed)
			return nil
		},
	}
}
