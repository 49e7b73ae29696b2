package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func (a *app) filesCmd() *cobra.Command {
	files := &cobra.Command{
		Use:   "files",
		Short: "Find and delete unused files",
	}
	files.AddCommand(a.unusedCmd(), a.statsCmd(), a.deleteCmd(), a.methodologyCmd())
	return files
}

func (a *app) unusedCmd() *cobra.Command {
	var idsOnly bool
	cmd := &cobra.Command{
		Use:   "unused",
		Short: "List files no content document references",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			result, err := a.client.UnusedFiles(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if idsOnly {
				for _, f := range result.UnusedAssets {
					fmt.Fprintln(out, f.ID)
				}
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tSECTION\tSIZE\tUPLOADED")
			var total uint64
			for _, f := range result.UnusedAssets {
				total += uint64(f.Size)
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					f.ID, f.OriginalName, f.SectionOrDefault(), humanize.Bytes(uint64(f.Size)), uploadedAt(f.CreatedAt))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "\n%d of %d files unused (%s), %d documents scanned in %s\n",
				len(result.UnusedAssets), result.TotalAssetCount, humanize.Bytes(total),
				result.DocumentsScanned, time.Duration(result.DurationMs)*time.Millisecond)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&idsOnly, "quiet", "q", false, "print only file IDs")
	return cmd
}

func (a *app) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the total number of stored files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			total := notAvailableText
			if n, err := a.client.TotalCount(ctx); err == nil {
				total = humanize.Comma(n)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "total files: %s\n", total)
			return nil
		},
	}
}

func (a *app) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete the given files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			result, err := a.client.DeleteFiles(ctx, args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "deleted %d of %d files\n", result.DeletedCount, len(args))
			if len(result.Failed) > 0 {
				fmt.Fprintf(out, "failed: %s\n", strings.Join(result.Failed, ", "))
			}
			return nil
		},
	}
}

func (a *app) methodologyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "methodology",
		Short: "Explain how unused files are found",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			m, err := a.client.Methodology(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, m.Summary)
			fmt.Fprintln(out, "\nStrategies:")
			for i, s := range m.Strategies {
				fmt.Fprintf(out, "  %d. %s: %s\n", i+1, s.Name, s.Description)
			}
			fmt.Fprintln(out, "\nLimitations:")
			for _, l := range m.Limitations {
				fmt.Fprintf(out, "  - %s\n", l)
			}
			if m.Bounds.MaxDocuments > 0 || m.Bounds.MaxDurationMs > 0 {
				fmt.Fprintf(out, "\nBounds: %s documents, %s\n",
					boundText(int64(m.Bounds.MaxDocuments), humanize.Comma(int64(m.Bounds.MaxDocuments))),
					boundText(m.Bounds.MaxDurationMs, (time.Duration(m.Bounds.MaxDurationMs)*time.Millisecond).String()))
			}
			return nil
		},
	}
}

func boundText(v int64, s string) string {
	if v <= 0 {
		return "unbounded"
	}
	return s
}

func uploadedAt(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}
