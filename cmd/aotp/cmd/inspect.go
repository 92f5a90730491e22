package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aot-inspect/internal/aot"
	"github.com/aot-inspect/internal/formatter"
	"github.com/aot-inspect/internal/report"
	apperrors "github.com/aot-inspect/pkg/errors"
	"github.com/aot-inspect/pkg/filter"
	"github.com/aot-inspect/pkg/model"
)

func newHeaderCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "header <cache>",
		Short: "Print the cache file header",
		Long: `Print the generic header, the five region descriptors and the file map
header of a cache, field by field in file order.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.input(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			hdr, err := a.inspector.Header(cmd.Context(), path)
			if err != nil {
				return err
			}
			return a.formatter.Header(cmd.OutOrStdout(), hdr.Sections())
		},
	}
}

type listOptions struct {
	category string
	sort     string
	minSize  int64
}

func (o *listOptions) selector() (report.Select, error) {
	sel := report.Select{MinSize: o.minSize}
	if o.category != "" {
		c, err := filter.ParseCategory(o.category)
		if err != nil {
			return sel, apperrors.Wrap(apperrors.CodeInvalidInput, "invalid --category", err)
		}
		sel.Category = &c
	}
	return sel, nil
}

func newListCmd(a *app) *cobra.Command {
	opts := &listOptions{}

	cmd := &cobra.Command{
		Use:   "list <cache>",
		Short: "List archived classes",
		Long: `List every class record found in the read-write region with its kind,
category and on-disk size. Records that fail layout checks are skipped and
reported as warnings.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := opts.selector()
			if err != nil {
				return err
			}
			order := model.SortOrder(a.cfg.Output.Sort)
			if opts.sort != "" {
				order = model.SortOrder(opts.sort)
			}
			if order != model.SortByName && order != model.SortBySize {
				return apperrors.New(apperrors.CodeInvalidInput, fmt.Sprintf("invalid --sort %q (valid: name, size)", order))
			}

			path, err := a.input(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			entries, _, err := a.classes(cmd.Context(), path)
			if err != nil {
				return err
			}

			footprints := sel.Apply(a.reportBuilder().Footprints(entries))
			model.SortFootprints(footprints, order)
			return a.formatter.Classes(cmd.OutOrStdout(), footprints)
		},
	}

	cmd.Flags().StringVar(&opts.category, "category", "", "Only list classes of this category (jdk, framework, application, business, generated, primitive)")
	cmd.Flags().StringVar(&opts.sort, "sort", "", "Sort order: name or size (overrides output.sort)")
	cmd.Flags().Int64Var(&opts.minSize, "min-size", 0, "Only list classes of at least this many bytes")
	return cmd
}

func newSizeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "size <cache> <class>...",
		Short: "Print the on-disk size of classes",
		Long: `Print how many bytes each named class record occupies in the cache.
Names may be given as java/lang/String or java.lang.String. The command
exits with status 2 when any class is missing.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.input(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			names := args[1:]

			sizes, err := a.inspector.ClassSizes(cmd.Context(), path, names)
			if _, err := a.partial(err); err != nil {
				return err
			}

			rows := make([]formatter.SizeRow, len(names))
			var missing []string
			for i, name := range names {
				size, ok := sizes[name]
				rows[i] = formatter.SizeRow{Name: name, Size: size, Found: ok}
				if !ok {
					missing = append(missing, name)
				}
			}
			if err := a.formatter.Sizes(cmd.OutOrStdout(), rows); err != nil {
				return err
			}

			if len(missing) > 0 {
				return apperrors.Wrap(apperrors.CodeNotFound,
					fmt.Sprintf("classes not found: %s", strings.Join(missing, ", ")), aot.ErrClassNotFound)
			}
			return nil
		},
	}
}

func newPrintCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "print <cache> <class>",
		Short: "Dump the decoded fields of one class",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.input(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			entry, err := a.inspector.FindClass(cmd.Context(), path, args[1])
			if err != nil {
				return err
			}
			return a.formatter.Class(cmd.OutOrStdout(), formatter.NewClassDump(entry))
		},
	}
}
