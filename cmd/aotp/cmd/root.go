// Package cmd implements the aotp command tree.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/aot-inspect/internal/aot"
	"github.com/aot-inspect/internal/formatter"
	"github.com/aot-inspect/internal/report"
	"github.com/aot-inspect/internal/repository"
	"github.com/aot-inspect/internal/storage"
	"github.com/aot-inspect/pkg/config"
	apperrors "github.com/aot-inspect/pkg/errors"
	"github.com/aot-inspect/pkg/filter"
	"github.com/aot-inspect/pkg/telemetry"
	"github.com/aot-inspect/pkg/utils"
)

// app carries the state shared by every subcommand of one invocation.
type app struct {
	// Global flags
	configPath       string
	verbose          bool
	format           string
	businessPrefixes []string

	cfg        *config.Config
	logger     utils.Logger
	inspector  *aot.Inspector
	formatter  formatter.Formatter
	filter     *filter.ClassFilter
	store      storage.Storage
	footprints repository.FootprintRepository

	closers  []io.Closer
	shutdown telemetry.ShutdownFunc
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	root, _ := newRootCmd()
	return root
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{}

	root := &cobra.Command{
		Use:   "aotp",
		Short: "Inspect JVM AOT cache files",
		Long: `aotp decodes JVM ahead-of-time class-data-sharing cache files.

It prints the file header, lists the classes archived in the read-write
region, reports how many bytes each class record occupies and dumps the
decoded fields of a single class. Reports can be written to disk, uploaded
to object storage and exported to a database to follow class sizes across
builds.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	bin := BinName()
	root.Example = `  # Print the header of a cache
  ` + bin + ` header app.aot

  # List application classes larger than 1 KiB, biggest first
  ` + bin + ` list app.aot --category application --min-size 1024 --sort size

  # Size of a few classes, in either name form
  ` + bin + ` size app.aot java.lang.String java/util/HashMap

  # Read a cache from configured object storage
  ` + bin + ` list storage://builds/42/app.aot

  # Record the footprint and follow one class over time
  ` + bin + ` export app.aot && ` + bin + ` history java.lang.String`

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "Path to configuration file")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose output")
	pf.StringVarP(&a.format, "format", "f", "", "Output format: text or json (overrides output.format)")
	pf.StringSliceVar(&a.businessPrefixes, "business-prefix", nil, "Package prefixes classified as business code")

	root.AddCommand(
		newHeaderCmd(a),
		newListCmd(a),
		newSizeCmd(a),
		newPrintCmd(a),
		newReportCmd(a),
		newExportCmd(a),
		newHistoryCmd(a),
		newSnapshotsCmd(a),
		newVersionCmd(),
	)
	return root, a
}

// Execute runs the command tree and returns the process exit status.
func Execute() int {
	root, a := newRootCmd()
	ctx := context.Background()

	err := root.ExecuteContext(ctx)
	if terr := a.teardown(ctx); terr != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", BinName(), terr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", BinName(), err)
		return apperrors.ExitCode(err)
	}
	return 0
}

// BinName returns the base name of the current executable
func BinName() string {
	return filepath.Base(os.Args[0])
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeConfigError, "failed to load configuration", err)
	}
	if a.format != "" {
		cfg.Output.Format = a.format
	}
	a.cfg = cfg

	level := utils.ParseLogLevel(cfg.Log.Level)
	if a.verbose {
		level = utils.LevelDebug
	}
	if cfg.Log.OutputPath != "" {
		logger, closer, err := utils.NewFileLogger(level, cfg.Log.OutputPath)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeConfigError, "failed to open log file", err)
		}
		a.logger = logger
		a.closers = append(a.closers, closer)
	} else {
		// stdout stays reserved for results
		a.logger = utils.NewDefaultLogger(level, cmd.ErrOrStderr())
	}

	f, err := formatter.NewRegistry(cfg.Output.Pretty).Get(cfg.Output.Format)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInvalidInput, "invalid output format", err)
	}
	a.formatter = f

	a.filter = filter.NewClassFilter()
	a.filter.AddBusinessPrefixes(a.businessPrefixes)

	shutdown, err := telemetry.Init(cmd.Context())
	if err != nil {
		a.logger.Warn("tracing disabled: %v", err)
	}
	a.shutdown = shutdown

	a.inspector = aot.NewInspector(
		aot.WithLogger(a.logger),
		aot.WithTracer(telemetry.Tracer()),
	)
	return nil
}

func (a *app) teardown(ctx context.Context) error {
	var errs []error
	if a.shutdown != nil {
		if err := a.shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to flush traces: %w", err))
		}
	}
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// backend returns the configured storage, creating it on first use.
func (a *app) backend() (storage.Storage, error) {
	if a.store != nil {
		return a.store, nil
	}
	st, err := storage.New(&a.cfg.Storage)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageError, "failed to create storage", err)
	}
	a.store = st
	return st, nil
}

// input resolves a cache argument to a local path, fetching storage:// references.
func (a *app) input(ctx context.Context, arg string) (string, error) {
	if _, ok := storage.ParseRef(arg); !ok {
		return arg, nil
	}
	st, err := a.backend()
	if err != nil {
		return "", err
	}
	local, err := storage.Materialize(ctx, st, arg, a.cfg.Storage.CacheDir)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeStorageError, "failed to fetch "+arg, err)
	}
	a.logger.Debug("fetched %s to %s", arg, local)
	return local, nil
}

// classes lists entries, tolerating per-record layout violations. Violations
// are logged and returned separately so partial results still render.
func (a *app) classes(ctx context.Context, path string) (entries []aot.ClassEntry, violations, err error) {
	entries, err = a.inspector.ListClasses(ctx, path)
	violations, err = a.partial(err)
	if err != nil {
		return nil, nil, err
	}
	return entries, violations, nil
}

// partial separates layout violations, which leave the decoded results
// usable, from fatal errors.
func (a *app) partial(err error) (violations, fatal error) {
	var merr *multierror.Error
	if errors.As(err, &merr) {
		a.logger.Warn("%d records were skipped", merr.Len())
		return merr, nil
	}
	return nil, err
}

func (a *app) reportBuilder() *report.Builder {
	return report.NewBuilder(report.WithFilter(a.filter))
}
