package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"lofi/internal/history"
)

const defaultHistoryLimit = 20

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history [job-id]",
		Short: "List recent conversion jobs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.prepare(nil)
			if err != nil {
				return err
			}
			store, err := history.Open(cfg)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			if len(args) == 1 {
				rec, err := store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if rec == nil {
					return fmt.Errorf("job %s not found", args[0])
				}
				if asJSON {
					return writeJSON(cmd, rec)
				}
				fmt.Fprint(cmd.OutOrStdout(), renderJobDetail(rec, time.Now()))
				return nil
			}

			statuses, err := parseStatusFilter(statusFilter)
			if err != nil {
				return err
			}
			records, err := store.List(cmd.Context(), limit, statuses...)
			if err != nil {
				return err
			}
			if asJSON {
				if records == nil {
					records = []*history.Record{}
				}
				return writeJSON(cmd, records)
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No jobs recorded")
				return nil
			}
			fmt.Fprintln(out, renderHistoryTable(records, time.Now()))
			return nil
		},
	}

	cmd.Flags().StringVar(&statusFilter, "status", "", "Comma separated statuses to include (running, completed, failed, interrupted)")
	cmd.Flags().IntVarP(&limit, "limit", "n", defaultHistoryLimit, "Maximum number of jobs to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func parseStatusFilter(value string) ([]history.Status, error) {
	var statuses []history.Status
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		status, ok := history.ParseStatus(part)
		if !ok {
			return nil, fmt.Errorf("unknown status %q", part)
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

var titleCaser = cases.Title(language.English)

func titleLabel(value string) string {
	if value == "" {
		return ""
	}
	return titleCaser.String(strings.ReplaceAll(value, "_", " "))
}

func renderHistoryTable(records []*history.Record, now time.Time) string {
	columns := []column{
		leftColumn("ID"),
		leftColumn("Created"),
		leftColumn("Status"),
		leftColumn("Mode"),
		leftColumn("Output"),
		rightColumn("Size"),
		rightColumn("Took"),
		leftColumn("Source"),
	}
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		status := titleLabel(string(rec.Status))
		if rec.FailureStage != "" {
			status = fmt.Sprintf("%s (%s)", status, titleLabel(rec.FailureStage))
		}
		var size, took string
		if rec.OutputBytes > 0 {
			size = humanize.IBytes(uint64(rec.OutputBytes))
		}
		if rec.Status.IsTerminal() {
			took = rec.Duration().Round(time.Second).String()
		}
		rows = append(rows, []string{
			rec.ID,
			humanize.RelTime(rec.CreatedAt, now, "ago", "from now"),
			status,
			rec.Mode,
			rec.MediaKind,
			size,
			took,
			truncate(rec.Source, 48),
		})
	}
	return renderTable(columns, rows, fmt.Sprintf("%d jobs", len(records)))
}

func renderJobDetail(rec *history.Record, now time.Time) string {
	var b strings.Builder
	line := func(label, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(&b, "%-14s %s\n", label+":", value)
	}
	line("Job", rec.ID)
	line("Status", titleLabel(string(rec.Status)))
	line("Failed at", titleLabel(rec.FailureStage))
	line("Source", fmt.Sprintf("%s %s", rec.SourceKind, rec.Source))
	line("Mode", rec.Mode)
	line("Output", rec.MediaKind)
	line("Acceleration", rec.Acceleration)
	line("Options", jobOptions(rec))
	line("Created", fmt.Sprintf("%s (%s)", rec.CreatedAt.Local().Format(time.DateTime), humanize.RelTime(rec.CreatedAt, now, "ago", "from now")))
	if rec.FinishedAt != nil {
		line("Finished", rec.FinishedAt.Local().Format(time.DateTime))
		line("Took", rec.Duration().String())
	}
	if rec.OutputBytes > 0 {
		line("Size", humanize.IBytes(uint64(rec.OutputBytes)))
	}
	line("Error", rec.ErrorMessage)
	return b.String()
}

func jobOptions(rec *history.Record) string {
	var opts []string
	if rec.Downscale {
		opts = append(opts, "downscale")
	}
	if rec.FastPreset {
		opts = append(opts, "faster")
	}
	if rec.AudioOnly {
		opts = append(opts, "audio")
	}
	if rec.CompactAudio {
		opts = append(opts, "mp3")
	}
	return strings.Join(opts, ", ")
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}
