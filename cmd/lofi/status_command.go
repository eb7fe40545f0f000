package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"lofi/internal/config"
	"lofi/internal/history"
	"lofi/internal/preflight"
)

type statusReport struct {
	preflight.Snapshot
	ConfigPath   string           `json:"config_path"`
	UploadDir    string           `json:"upload_dir"`
	ConvertedDir string           `json:"converted_dir"`
	History      *history.Summary `json:"history,omitempty"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var flags runtimeFlags
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show acceleration, dependency and directory status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.prepare(&flags)
			if err != nil {
				return err
			}
			report := collectStatus(cmd, cfg, ctx.configPath)
			if asJSON {
				return writeJSON(cmd, report)
			}
			printStatus(newStatusPrinter(cmd.OutOrStdout()), report)
			if !report.Ready {
				return errors.New("lofi is not ready")
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func collectStatus(cmd *cobra.Command, cfg *config.Config, configPath string) statusReport {
	report := statusReport{
		Snapshot:     preflight.Collect(cmd.Context(), cfg),
		ConfigPath:   configPath,
		UploadDir:    cfg.Paths.UploadDir,
		ConvertedDir: cfg.Paths.ConvertedDir,
	}
	store, err := history.Open(cfg)
	if err != nil {
		return report
	}
	defer store.Close()
	if summary, err := store.Summary(cmd.Context()); err == nil {
		report.History = &summary
	}
	return report
}

func printStatus(p *statusPrinter, report statusReport) {
	p.section("Transcoding")
	p.line("Config", statusInfo, report.ConfigPath)
	p.line("Acceleration", statusInfo, fmt.Sprintf("%s (hwaccel %s)", report.Acceleration, report.HWAccel))
	p.line("Encoder args", statusInfo, strings.Join(report.ExtraArgs, " "))

	p.section("Dependencies")
	for _, dep := range report.Dependencies {
		switch {
		case dep.Available:
			p.line(dep.Name, statusOK, dep.Version)
		case dep.Optional:
			p.line(dep.Name, statusWarn, dep.Detail)
		default:
			p.line(dep.Name, statusError, dep.Detail)
		}
	}

	p.section("Directories")
	for _, dir := range report.Directories {
		kind := statusOK
		if !dir.Passed {
			kind = statusError
		}
		p.line(dir.Name, kind, dir.Detail)
	}

	if report.History != nil {
		h := report.History
		p.section("History")
		p.line("Jobs", statusInfo, fmt.Sprintf("%d total", h.Total))
		p.line("Running", statusInfo, fmt.Sprint(h.Running))
		p.line("Completed", statusOK, fmt.Sprint(h.Completed))
		failedKind := statusOK
		if h.Failed > 0 {
			failedKind = statusWarn
		}
		p.line("Failed", failedKind, fmt.Sprint(h.Failed))
		p.line("Interrupted", statusInfo, fmt.Sprint(h.Interrupted))
	}

	p.section("Summary")
	if report.Ready {
		p.line("Ready", statusOK, yesNo(true))
	} else {
		p.line("Ready", statusError, yesNo(false))
	}
}
