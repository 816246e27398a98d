package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"lexsync/internal/ipc"
	"lexsync/internal/manager"
	"lexsync/internal/queue"
)

func newAddQueryCommand(cmdCtx *commandContext) *cobra.Command {
	var (
		domainFlag     string
		caseFlag       string
		priorityFlag   string
		shapeFlag      string
		maxRetriesFlag int
	)

	cmd := &cobra.Command{
		Use:   "add-query <payload>",
		Short: "Queue a legal query for processing when online",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := args[0]
			var qctx *queue.QueryContext
			if domainFlag != "" || caseFlag != "" || priorityFlag != "" || shapeFlag != "" {
				qctx = &queue.QueryContext{
					Domain:        domainFlag,
					CaseID:        caseFlag,
					Priority:      priorityFlag,
					ResponseShape: shapeFlag,
				}
			}

			var id string
			err := cmdCtx.withClient(func(client *ipc.Client) error {
				resp, err := client.EnqueueQuery(ipc.EnqueueQueryRequest{
					Payload:    payload,
					Context:    qctx,
					MaxRetries: maxRetriesFlag,
				})
				if err != nil {
					return err
				}
				id = resp.ID
				return nil
			})
			if err != nil {
				err = cmdCtx.withLocalManager(false, func(ctx context.Context, mgr *manager.Manager) error {
					item, enqErr := mgr.EnqueueQuery(ctx, payload, qctx, maxRetriesFlag)
					if enqErr != nil {
						return enqErr
					}
					id = item.ID
					return nil
				})
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queued query %s\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&domainFlag, "domain", "", "Legal domain hint for the processor")
	cmd.Flags().StringVar(&caseFlag, "case", "", "Case identifier to associate with the query")
	cmd.Flags().StringVar(&priorityFlag, "priority", "", "Priority hint for the processor")
	cmd.Flags().StringVar(&shapeFlag, "shape", "", "Desired response shape")
	cmd.Flags().IntVar(&maxRetriesFlag, "max-retries", 0, "Retry budget (0 uses the configured default)")
	return cmd
}

func newAddDocumentCommand(cmdCtx *commandContext) *cobra.Command {
	var (
		extractFlag   bool
		summarizeFlag bool
		analysisFlag  bool
	)

	cmd := &cobra.Command{
		Use:   "add-document <path>",
		Short: "Queue a document for upload when online",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sourcePath := strings.TrimSpace(args[0])
			absPath, err := filepath.Abs(sourcePath)
			if err != nil {
				return fmt.Errorf("resolve source path: %w", err)
			}
			info, err := os.Stat(absPath)
			if err != nil {
				return fmt.Errorf("stat source file: %w", err)
			}
			if info.IsDir() {
				return fmt.Errorf("source path %q is a directory", absPath)
			}

			var options *queue.DocumentOptions
			if extractFlag || summarizeFlag || analysisFlag {
				options = &queue.DocumentOptions{
					ExtractText:   extractFlag,
					Summarize:     summarizeFlag,
					LegalAnalysis: analysisFlag,
				}
			}

			var id string
			err = cmdCtx.withClient(func(client *ipc.Client) error {
				resp, err := client.EnqueueDocument(ipc.EnqueueDocumentRequest{
					SourcePath: absPath,
					Options:    options,
				})
				if err != nil {
					return err
				}
				id = resp.ID
				return nil
			})
			if err != nil {
				err = cmdCtx.withLocalManager(false, func(ctx context.Context, mgr *manager.Manager) error {
					file, openErr := os.Open(absPath)
					if openErr != nil {
						return fmt.Errorf("open source file: %w", openErr)
					}
					defer file.Close()
					item, enqErr := mgr.EnqueueDocument(ctx, filepath.Base(absPath), file, options)
					if enqErr != nil {
						return enqErr
					}
					id = item.ID
					return nil
				})
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queued document %s\n", id)
			return nil
		},
	}

	cmd.Flags().BoolVar(&extractFlag, "extract-text", false, "Ask the processor to extract text")
	cmd.Flags().BoolVar(&summarizeFlag, "summarize", false, "Ask the processor to summarize")
	cmd.Flags().BoolVar(&analysisFlag, "legal-analysis", false, "Ask the processor to run legal analysis")
	return cmd
}
