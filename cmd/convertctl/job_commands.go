package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/renameio/v2"
	"github.com/spf13/cobra"

	"media-converter/internal/client"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var (
		iosVersion string
		wait       bool
		output     string
		interval   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a photo or video for conversion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := ctx.client()
			id, err := c.Upload(cmd.Context(), args[0], iosVersion)
			if err != nil {
				return err
			}
			if !wait {
				if ctx.jsonMode {
					return writeJSON(cmd, map[string]string{"job_id": id})
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "Job %s submitted\n", id)
			st, err := waitForJob(cmd, c, id, interval)
			if err != nil {
				return err
			}
			if output != "" {
				path, n, err := downloadTo(cmd.Context(), c, id, output)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Saved %s (%s)\n", path, humanize.IBytes(uint64(n)))
			}
			if ctx.jsonMode {
				return writeJSON(cmd, st)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderStatuses([]string{id}, []client.JobStatus{st}), "\n")
			return nil
		},
	}

	cmd.Flags().StringVar(&iosVersion, "ios-version", "", "Capability hint of the requesting device, e.g. 17.4")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Wait for the conversion to finish")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Download the result to this file or directory (requires --wait)")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "Polling interval while waiting")
	return cmd
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <job-id>...",
		Short: "Show the status of one or more jobs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := ctx.client()
			statuses := make([]client.JobStatus, 0, len(args))
			for _, id := range args {
				st, err := c.Status(cmd.Context(), id)
				if err != nil {
					if client.IsNotFound(err) {
						return fmt.Errorf("job %s not found", id)
					}
					return err
				}
				statuses = append(statuses, st)
			}

			if ctx.jsonMode {
				out := make(map[string]client.JobStatus, len(args))
				for i, id := range args {
					out[id] = statuses[i]
				}
				return writeJSON(cmd, out)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderStatuses(args, statuses), "\n")
			return nil
		},
	}
}

func newWaitCommand(ctx *commandContext) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "wait <job-id>",
		Short: "Wait until a job completes or fails",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := waitForJob(cmd, ctx.client(), args[0], interval)
			if err != nil {
				return err
			}
			if ctx.jsonMode {
				return writeJSON(cmd, st)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderStatuses(args, []client.JobStatus{st}), "\n")
			return nil
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "Polling interval")
	return cmd
}

func newDownloadCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "download <job-id>",
		Short: "Download the converted file of a completed job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, n, err := downloadTo(cmd.Context(), ctx.client(), args[0], output)
			if err != nil {
				return err
			}
			if ctx.jsonMode {
				return writeJSON(cmd, map[string]any{"path": path, "size_bytes": n})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", path, humanize.IBytes(uint64(n)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination file or directory (default: current directory)")
	return cmd
}

func waitForJob(cmd *cobra.Command, c *client.Client, id string, interval time.Duration) (client.JobStatus, error) {
	stderr := cmd.ErrOrStderr()
	return c.Wait(cmd.Context(), id, interval, func(st client.JobStatus) {
		fmt.Fprintf(stderr, "%s  %s\n", time.Now().Format("15:04:05"), st.Status)
	})
}

// downloadTo saves the job's result under output. An empty output or an
// existing directory uses the file name suggested by the server.
func downloadTo(ctx context.Context, c *client.Client, id, output string) (string, int64, error) {
	dir, target := output, ""
	if output == "" {
		dir = "."
	} else if info, err := os.Stat(output); err != nil || !info.IsDir() {
		dir, target = filepath.Dir(output), output
	}

	// the server names the file, so commit under a staging name first
	staging := filepath.Join(dir, "."+id+".part")
	pending, err := renameio.NewPendingFile(staging, renameio.WithPermissions(0o644))
	if err != nil {
		return "", 0, fmt.Errorf("create download file: %w", err)
	}
	defer func() { _ = pending.Cleanup() }()

	name, n, err := c.Download(ctx, id, pending)
	if err != nil {
		return "", n, err
	}
	if target == "" {
		if name == "" {
			name = id
		}
		target = filepath.Join(dir, filepath.Base(name))
	}

	if err := pending.CloseAtomicallyReplace(); err != nil {
		return "", n, fmt.Errorf("commit download: %w", err)
	}
	if err := os.Rename(staging, target); err != nil {
		return "", n, fmt.Errorf("rename download: %w", err)
	}
	return target, n, nil
}
