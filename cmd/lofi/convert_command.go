package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"lofi/internal/config"
	"lofi/internal/fileutil"
	"lofi/internal/history"
	"lofi/internal/job"
	"lofi/internal/logging"
	"lofi/internal/services"
)

type convertFlags struct {
	runtime     runtimeFlags
	url         string
	output      string
	downscale   bool
	faster      bool
	audio       bool
	mp3         bool
	skipHistory bool
}

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var flags convertFlags

	cmd := &cobra.Command{
		Use:   "convert [file]",
		Short: "Convert a local file or remote URL in the foreground",
		Long:  "Convert runs one job without the HTTP server and copies the result to --output (a file or directory, default the current directory).",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.prepare(&flags.runtime)
			if err != nil {
				return err
			}
			return runConvert(cmd, cfg, flags, args)
		},
	}

	flags.runtime.register(cmd)
	cmd.Flags().StringVar(&flags.url, "url", "", "Fetch the source from this URL instead of a file")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Destination file or directory")
	cmd.Flags().BoolVar(&flags.downscale, "downscale", false, "Scale video down to 144 lines")
	cmd.Flags().BoolVar(&flags.faster, "faster", false, "Use the ultrafast encoder preset")
	cmd.Flags().BoolVar(&flags.audio, "audio", false, "Produce audio only")
	cmd.Flags().BoolVar(&flags.mp3, "mp3", false, "Produce compact mono MP3 audio")
	cmd.Flags().BoolVar(&flags.skipHistory, "no-history", false, "Do not record the job in history")
	return cmd
}

func runConvert(cmd *cobra.Command, cfg *config.Config, flags convertFlags, args []string) error {
	req := job.Request{
		Downscale:    flags.downscale,
		FastPreset:   flags.faster,
		AudioOnly:    flags.audio,
		CompactAudio: flags.mp3,
	}

	remote := strings.TrimSpace(flags.url)
	switch {
	case remote != "" && len(args) > 0:
		return errors.New("pass either a file or --url, not both")
	case remote != "":
		req.UseRemote = true
		req.RemoteURL = remote
	case len(args) == 1:
		file, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open source: %w", err)
		}
		defer file.Close()
		req.Upload = &job.Upload{Body: file, Filename: filepath.Base(args[0])}
	default:
		return errors.New("a source file or --url is required")
	}

	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stderr", cfg.LogPath()},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	var opts []job.Option
	if !flags.skipHistory {
		store, err := history.Open(cfg)
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer store.Close()
		opts = append(opts, job.WithRecorder(store))
	}

	driver, err := job.NewFromConfig(cfg, logger, opts...)
	if err != nil {
		return err
	}

	jobCtx := cmd.Context()
	if timeout := cfg.JobTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(jobCtx, timeout)
		defer cancel()
	}

	result, err := driver.Run(jobCtx, req)
	if err != nil {
		return convertError(cmd, err)
	}
	defer result.Release()

	dest, err := destinationPath(flags.output, result.DownloadName)
	if err != nil {
		return err
	}
	if err := fileutil.CopyFileVerified(result.OutputPath, dest); err != nil {
		return fmt.Errorf("copy output: %w", err)
	}

	logger.Info("conversion delivered",
		logging.String(logging.FieldJobID, result.JobID),
		logging.String("destination", dest),
		logging.Int64("bytes", result.Size),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s, %s, %s)\n",
		dest,
		humanize.IBytes(uint64(max(result.Size, 0))),
		result.Mode,
		result.Elapsed.Round(10*time.Millisecond),
	)
	return nil
}

// destinationPath resolves --output. A directory, or an empty value meaning
// the working directory, receives the job's download name.
func destinationPath(output, downloadName string) (string, error) {
	target := strings.TrimSpace(output)
	if target == "" {
		target = "."
	}
	expanded, err := config.ExpandPath(target)
	if err != nil {
		return "", fmt.Errorf("resolve output path: %w", err)
	}
	info, err := os.Stat(expanded)
	switch {
	case err == nil && info.IsDir():
		return filepath.Join(expanded, downloadName), nil
	case err == nil:
		return "", fmt.Errorf("output %s already exists", expanded)
	case errors.Is(err, os.ErrNotExist):
		if strings.HasSuffix(target, string(os.PathSeparator)) {
			return filepath.Join(expanded, downloadName), nil
		}
		return expanded, nil
	default:
		return "", fmt.Errorf("stat output: %w", err)
	}
}

func convertError(cmd *cobra.Command, err error) error {
	var failure *services.Failure
	if !errors.As(err, &failure) {
		return err
	}
	if failure.Diagnostics != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), failure.Diagnostics)
	}
	return fmt.Errorf("%s failed: %s", failure.Stage, failure.Message)
}
