package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"strongholdcore/internal/archive"
	"strongholdcore/internal/blob"
	"strongholdcore/internal/config"
	"strongholdcore/pkg/domain"
)

func newSessionsCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect archived sessions",
	}
	cmd.AddCommand(newSessionsListCommand(root), newSessionsExportCommand(root))
	return cmd
}

func withStore(ctx context.Context, root *rootOptions, fn func(config.Config, domain.SessionStore) error) error {
	cfg, _, err := root.loadConfig()
	if err != nil {
		return err
	}
	store, err := archive.OpenStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	return fn(cfg, store)
}

func newSessionsListCommand(root *rootOptions) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archived sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd.Context(), root, func(_ config.Config, store domain.SessionStore) error {
				sessions, err := store.ListSessions(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if asJSON {
					return json.NewEncoder(root.stdout).Encode(sessions)
				}
				tw := tabwriter.NewWriter(root.stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tENDED\tREASON\tTHROWS\tCERTAINTY")
				for _, s := range sessions {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%.1f%%\n",
						s.ID, s.EndedAt.Format("2006-01-02 15:04:05"), s.Reason, len(s.Throws), s.Estimate.Certainty*100)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum sessions to show; 0 shows all")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print sessions as JSON")
	return cmd
}

func newSessionsExportCommand(root *rootOptions) *cobra.Command {
	var toBlob bool
	cmd := &cobra.Command{
		Use:   "export <session-id>",
		Short: "Print an archived session as JSON, or push it to the export store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withStore(ctx, root, func(cfg config.Config, store domain.SessionStore) error {
				session, ok, err := store.GetSession(ctx, args[0])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("session %s not found", args[0])
				}
				if !toBlob {
					enc := json.NewEncoder(root.stdout)
					enc.SetIndent("", "  ")
					return enc.Encode(session)
				}
				exports, err := blob.Open(ctx, cfg.Blob)
				if err != nil {
					return err
				}
				if exports == nil {
					return errors.New("blob exports are disabled; set blob.driver")
				}
				info, err := archive.Export(ctx, exports, cfg.Blob.Prefix, session)
				if err != nil {
					return err
				}
				fmt.Fprintf(root.stdout, "exported %s (%d bytes)\n", info.Key, info.Size)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&toBlob, "to-blob", false, "write to the configured blob store instead of stdout")
	return cmd
}
