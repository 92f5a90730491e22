package cmd

import (
	"github.com/spf13/cobra"

	apperrors "github.com/aot-inspect/pkg/errors"
)

func newHistoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history <class>",
		Short: "Show the size of a class across exported snapshots",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.footprintRepo()
			if err != nil {
				return err
			}
			points, err := repo.ClassHistory(cmd.Context(), args[0])
			if err != nil {
				return apperrors.Wrap(apperrors.CodeDatabaseError, "failed to load history", err)
			}
			return a.formatter.History(cmd.OutOrStdout(), args[0], points)
		},
	}
}

func newSnapshotsCmd(a *app) *cobra.Command {
	var (
		source string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "List exported snapshots, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.footprintRepo()
			if err != nil {
				return err
			}
			snaps, err := repo.ListSnapshots(cmd.Context(), source, limit)
			if err != nil {
				return apperrors.Wrap(apperrors.CodeDatabaseError, "failed to list snapshots", err)
			}
			return a.formatter.Snapshots(cmd.OutOrStdout(), snaps)
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "Only list snapshots of this cache argument")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of snapshots (0 for all)")
	return cmd
}
