package main

import (
	"fmt"
	"io"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nixlim/ids-top/internal/annotations"
	"github.com/nixlim/ids-top/internal/backend"
	"github.com/nixlim/ids-top/internal/filters"
	"github.com/nixlim/ids-top/internal/storage"
)

func newAnnotationsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "annotations",
		Short: "Inspect or clear stored triage statuses",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored annotations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, closeLog, err := setup(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeLog()

			kv, _ := storage.NewKV(cmd.Context(), cfg.Storage, logger)
			defer kv.Close()

			store := annotations.NewStore(cmd.Context(), kv,
				annotations.KeyFuncFor(cfg.Annotations.KeyPolicy), logger)
			return printAnnotations(cmd.OutOrStdout(), store.All())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete every stored annotation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, closeLog, err := setup(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeLog()

			kv, persistent := storage.NewKV(cmd.Context(), cfg.Storage, logger)
			defer kv.Close()
			if !persistent {
				fmt.Fprintln(cmd.OutOrStdout(), "No persistent storage configured; nothing to clear.")
				return nil
			}

			store := annotations.NewStore(cmd.Context(), kv,
				annotations.KeyFuncFor(cfg.Annotations.KeyPolicy), logger)
			n := store.Len()
			if err := store.ClearAll(cmd.Context()); err != nil {
				return fmt.Errorf("clearing annotations: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d annotations.\n", n)
			return nil
		},
	})

	return cmd
}

func printAnnotations(w io.Writer, all map[string]annotations.Annotation) error {
	if len(all) == 0 {
		_, err := fmt.Fprintln(w, "No annotations.")
		return err
	}

	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tSTATUS\tSINCE\tNOTES")
	for _, k := range keys {
		a := all[k]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", k, a.Status.Label(),
			a.AcknowledgedAt.Local().Format("2006-01-02 15:04"), a.Notes)
	}
	return tw.Flush()
}

func newFiltersCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filters",
		Short: "Manage saved filters",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List built-in and saved filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, closeLog, err := setup(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeLog()

			kv, _ := storage.NewKV(cmd.Context(), cfg.Storage, logger)
			defer kv.Close()

			engine := filters.NewEngine(cmd.Context(), kv, nil, filters.WithLogger(logger))
			return printFilters(cmd.OutOrStdout(), engine.Filters())
		},
	})

	return cmd
}

func printFilters(w io.Writer, list []filters.SavedFilter) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSEVERITY\tSTATUS\tSORT\tSEARCH")
	for _, f := range list {
		name := f.Name
		if f.IsDefault {
			name += " (built-in)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			f.ID, name, f.SeverityFilter, f.StatusFilter, f.SortOrder, f.SearchQuery)
	}
	return tw.Flush()
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the backend's monitoring session and counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, closeLog, err := setup(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeLog()

			client := backend.New(cfg.Backend.BaseURL, cfg.Backend.RequestTimeout())
			st, err := client.Status(cmd.Context())
			if err != nil {
				return fmt.Errorf("fetching status: %w", err)
			}

			out := cmd.OutOrStdout()
			state := "stopped"
			if st.Running {
				state = "running"
			}
			fmt.Fprintf(out, "Backend:  %s\n", cfg.Backend.BaseURL)
			fmt.Fprintf(out, "Session:  %s\n", state)
			fmt.Fprintf(out, "Version:  %s\n", st.Version)
			fmt.Fprintf(out, "Uptime:   %s\n", st.Uptime().Round(time.Second))

			snap, err := client.Stats(cmd.Context())
			if err != nil {
				fmt.Fprintf(out, "Stats:    unavailable (%v)\n", err)
				return nil
			}
			fmt.Fprintf(out, "Packets:  %d\n", snap.PacketsProcessed)
			fmt.Fprintf(out, "Threats:  %d\n", snap.ThreatsDetected)
			return nil
		},
	}
}
