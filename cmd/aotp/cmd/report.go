package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/aot-inspect/internal/aot"
	"github.com/aot-inspect/internal/repository"
	apperrors "github.com/aot-inspect/pkg/errors"
	"github.com/aot-inspect/pkg/model"
	"github.com/aot-inspect/pkg/writer"
)

// buildReport runs a header pass and a class pass over the cache named by arg.
// Each pass opens its own reader, so the two run side by side.
func (a *app) buildReport(ctx context.Context, arg string) (*model.CacheReport, error) {
	path, err := a.input(ctx, arg)
	if err != nil {
		return nil, err
	}

	var (
		hdr        *aot.Header
		entries    []aot.ClassEntry
		violations error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		hdr, err = a.inspector.Header(gctx, path)
		return err
	})
	g.Go(func() error {
		var err error
		entries, violations, err = a.classes(gctx, path)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return a.reportBuilder().Build(arg, hdr, entries, violations), nil
}

func newReportCmd(a *app) *cobra.Command {
	var (
		outPath   string
		uploadKey string
	)

	cmd := &cobra.Command{
		Use:   "report <cache>",
		Short: "Summarize the class footprint of a cache",
		Long: `Summarize region usage and class sizes by kind and category.

With --out the report is written as JSON to a file instead of stdout; a .gz
or .zst suffix compresses it. With --upload the written file is also stored
in the configured object storage under the given key.`,
		Example: `  aotp report app.aot
  aotp report app.aot --out report.json.zst --upload reports/app.json.zst`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if uploadKey != "" && outPath == "" {
				return apperrors.New(apperrors.CodeInvalidInput, "--upload requires --out")
			}

			rep, err := a.buildReport(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if outPath == "" {
				return a.formatter.Report(cmd.OutOrStdout(), rep)
			}

			res, err := writer.NewCompressedWriter[*model.CacheReport]().WriteToFile(rep, outPath)
			if err != nil {
				return apperrors.Wrap(apperrors.CodeIOError, "failed to write report", err)
			}
			a.logger.Info("report written to %s (%d classes, %d bytes json, %d bytes %s)",
				res.Path, rep.ClassCount(), res.JSONSize, res.CompressedSize, res.Compression)

			if uploadKey == "" {
				return nil
			}
			st, err := a.backend()
			if err != nil {
				return err
			}
			if err := st.PutFile(cmd.Context(), uploadKey, outPath); err != nil {
				return apperrors.Wrap(apperrors.CodeStorageError, "failed to upload report", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), st.URL(uploadKey))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the report to this file (.json, .json.gz, .json.zst)")
	cmd.Flags().StringVar(&uploadKey, "upload", "", "Upload the written report to storage under this key")
	return cmd
}

// footprintRepo connects to the configured database on first use.
func (a *app) footprintRepo() (repository.FootprintRepository, error) {
	if a.footprints != nil {
		return a.footprints, nil
	}
	repos, err := repository.Open(&a.cfg.Database)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDatabaseError, "failed to open database", err)
	}
	a.closers = append(a.closers, repos)
	a.footprints = repos.Footprints
	return a.footprints, nil
}

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export <cache>",
		Short: "Store the class footprint of a cache in the database",
		Long: `Decode the cache and save one snapshot row plus one row per class to the
configured database. Use history to compare a class across snapshots.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := a.buildReport(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			repo, err := a.footprintRepo()
			if err != nil {
				return err
			}

			id, err := repo.Save(cmd.Context(), rep)
			if err != nil {
				return apperrors.Wrap(apperrors.CodeDatabaseError, "failed to save snapshot", err)
			}
			a.logger.Info("saved snapshot %d for %s", id, rep.Source)
			fmt.Fprintf(cmd.OutOrStdout(), "snapshot %d: %d classes, %d bytes\n", id, rep.ClassCount(), rep.TotalBytes)
			return nil
		},
	}
}
