package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"strongholdcore/internal/config"
	"strongholdcore/internal/core"
	"strongholdcore/internal/input"
	"strongholdcore/pkg/domain"
)

type solveResult struct {
	Throws     []core.Throw    `json:"throws"`
	Estimate   core.Estimate   `json:"estimate"`
	Advisories []core.Advisory `json:"advisories"`
}

func newSolveCommand(root *rootOptions) *cobra.Command {
	var placement string
	cmd := &cobra.Command{
		Use:   "solve [file]",
		Short: "Estimate the stronghold from a list of observations",
		Long: `Replays F3+C observation lines and command names (altstd, boat, undo,
increment, ...) from a file or stdin, then prints the throws, estimate and
advisories as JSON. The config file is only read when --config is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if root.configPath != "" {
				loaded, _, err := root.loadConfig()
				if err != nil {
					return err
				}
				cfg = loaded
			} else {
				root.applyLogFlags(&cfg)
			}
			if placement != "" {
				cfg.Parameters.Placement = domain.Placement(placement)
			}
			logger, err := newLogger(root.stderr, cfg.Logging)
			if err != nil {
				return err
			}
			r := root.stdin
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				r = f
			}
			res, err := solve(cmd, cfg, r, logger)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(root.stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
	cmd.Flags().StringVar(&placement, "placement", "", "override placement (rings, none)")
	return cmd
}

func solve(cmd *cobra.Command, cfg config.Config, r io.Reader, logger *slog.Logger) (solveResult, error) {
	handler, err := core.NewStateHandler(cfg.Settings(), core.WithLogger(logger))
	if err != nil {
		return solveResult{}, err
	}
	defer handler.Close()
	dispatcher, err := input.NewDispatcher(handler, noopForcer{}, cfg.Input.Hotkeys, logger)
	if err != nil {
		return solveResult{}, err
	}
	if err := input.ScanLines(cmd.Context(), r, dispatcher.Route); err != nil {
		return solveResult{}, fmt.Errorf("read observations: %w", err)
	}
	snap := handler.Snapshot()
	return solveResult{Throws: snap.Throws, Estimate: snap.Estimate, Advisories: snap.Advisories}, nil
}
