package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"qs-rls-manager/internal/api"
	"qs-rls-manager/internal/domain"
	"qs-rls-manager/internal/service/rls"
)

// pipelineError is returned when a publish, rollback or delete fails, so the
// exit code is non-zero after the outcome has been printed.
type pipelineError struct {
	out *domain.Outcome
}

func (e *pipelineError) Error() string {
	if e.out.FailedAt != "" {
		return fmt.Sprintf("failed at %s (%d): %s", e.out.FailedAt, e.out.Status, e.out.Message)
	}
	return fmt.Sprintf("failed (%d): %s", e.out.Status, e.out.Message)
}

// progressSink streams step transitions and log lines as they happen.
type progressSink struct {
	w io.Writer
}

func (s progressSink) ReportStep(step string, status domain.StepStatus) {
	_, _ = fmt.Fprintf(s.w, "[%-7s] %s\n", status, step)
}

func (s progressSink) Log(severity domain.Severity, message string) {
	_, _ = fmt.Fprintf(s.w, "%s %-7s %s\n", time.Now().Format("15:04:05"), severity, message)
}

// sink returns nil in JSON mode: the log is part of the printed outcome.
func (rt *runtime) sink() domain.PipelineSink {
	if rt.opts.output == outputJSON {
		return nil
	}
	return progressSink{w: rt.errOut}
}

func (rt *runtime) finishPipeline(out *domain.Outcome) error {
	if rt.opts.output == outputJSON {
		if err := rt.printJSON(api.OutcomeToAPI(out)); err != nil {
			return err
		}
	} else if out.OK() {
		_, _ = fmt.Fprintln(rt.out, out.Message)
	}
	if !out.OK() {
		return &pipelineError{out: out}
	}
	return nil
}

func newPublishCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "publish <dataset-arn>",
		Short: "Publish the dataset's permissions as its rules dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rt.App()
			if err != nil {
				return err
			}
			return rt.finishPipeline(a.Services.RLS.Publish(cmd.Context(), args[0], rt.sink()))
		},
	}
}

func newRollbackCmd(rt *runtime) *cobra.Command {
	var (
		version int
		opts    rls.RollbackOptions
	)

	cmd := &cobra.Command{
		Use:   "rollback <dataset-arn>",
		Short: "Republish the CSV of an earlier successful version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if version <= 0 {
				return domain.ErrValidation("--version must be a positive integer")
			}
			a, err := rt.App()
			if err != nil {
				return err
			}
			return rt.finishPipeline(a.Services.RLS.Rollback(cmd.Context(), args[0], version, opts, rt.sink()))
		},
	}

	cmd.Flags().IntVar(&version, "version", 0, "Version to restore (required)")
	cmd.Flags().BoolVar(&opts.RestorePermissions, "restore-permissions", false,
		"Also replace the stored permissions with the restored version's rows")
	_ = cmd.MarkFlagRequired("version")
	return cmd
}

func newHistoryCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "history <dataset-arn>",
		Short: "List the publish attempts of a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rt.App()
			if err != nil {
				return err
			}
			entries, err := a.Services.RLS.History(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := make([]api.HistoryEntry, len(entries))
			for i, e := range entries {
				out[i] = api.HistoryToAPI(e)
			}
			return rt.print(out, []string{"version", "status", "published", "permissions", "message"}, func() [][]string {
				rows := make([][]string, len(out))
				for i, e := range out {
					rows[i] = []string{strconv.Itoa(e.Version), e.Status, formatTime(&e.PublishedAt),
						strconv.Itoa(e.PermissionCount), e.Message}
				}
				return rows
			})
		},
	}
}

func newDeleteCmd(rt *runtime) *cobra.Command {
	var (
		opts rls.DeleteOptions
		yes  bool
	)

	cmd := &cobra.Command{
		Use:   "delete <rules-dataset-arn>",
		Short: "Detach and delete a rules dataset with its table and objects",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				ok, err := rt.confirm(fmt.Sprintf("Delete rules dataset %s?", args[0]))
				if err != nil {
					return err
				}
				if !ok {
					_, _ = fmt.Fprintln(rt.errOut, "Aborted")
					return nil
				}
			}
			a, err := rt.App()
			if err != nil {
				return err
			}
			return rt.finishPipeline(a.Services.RLS.DeleteRulesDataSet(cmd.Context(), args[0], opts, rt.sink()))
		},
	}

	cmd.Flags().BoolVar(&opts.KeepPermissions, "keep-permissions", false, "Keep the permissions of the datasets that used it")
	cmd.Flags().BoolVar(&opts.KeepObjects, "keep-objects", false, "Keep the CSV objects in S3")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

// confirm asks a yes/no question on an interactive terminal. Without a
// terminal it refuses, so scripts must pass --yes.
func (rt *runtime) confirm(question string) (bool, error) {
	if !rt.isTerminal() {
		return false, domain.ErrValidation("refusing to delete without confirmation: stdin is not a terminal, pass --yes")
	}
	_, _ = fmt.Fprintf(rt.errOut, "%s [y/N]: ", question)
	line, err := bufio.NewReader(rt.in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
