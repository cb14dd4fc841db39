package cli

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/exotransit/internal/analysis"
	"github.com/JonMunkholm/exotransit/internal/core"
)

// ErrRowsFailed is returned by validate, and by import with --strict, when
// at least one row was rejected.
var ErrRowsFailed = errors.New("some rows failed")

func (a *app) importCommand() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import observations from a CSV file",
		Long: `Import observations from a CSV file into the store.

Valid rows are added even when other rows fail; every failure is listed with
its row number.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := core.ContextWithSource(cmd.Context(), SourceCLI)

			svc, err := a.openService(ctx)
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			res, err := svc.Import(ctx, args[0], f)
			if err != nil {
				return err
			}

			a.printReport(res)
			if strict && len(res.Failed) > 0 {
				return ErrRowsFailed
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit with an error if any row fails")
	return cmd
}

func (a *app) exportCommand() *cobra.Command {
	var (
		withResult bool
		output     string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export observations as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}

			text := svc.Export(withResult)
			if output == "" || output == "-" {
				a.printf("%s\n", text)
				return nil
			}
			if err := os.WriteFile(output, []byte(text+"\n"), 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			a.printf("exported %d observations to %s\n", len(svc.List()), output)
			return nil
		},
	}
	cmd.Flags().BoolVar(&withResult, "result", false, "Include the Result column")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")
	return cmd
}

func (a *app) validateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Check a CSV file without importing it",
		Long: `Parse a CSV file exactly as import would and report accepted and failed
rows, names repeated within the file and names already in the store.
Nothing is stored.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			p, err := svc.Preview(cmd.Context(), f)
			if err != nil {
				return err
			}

			a.printPreview(p)
			if p.Summary.ErrorRows > 0 {
				return ErrRowsFailed
			}
			return nil
		},
	}
}

func (a *app) analyzeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Classify stored observations",
		Long: `Classify every stored observation and save the labels.

Without --endpoint the built-in threshold rules are used, optionally loaded
from --artifact.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			svc, err := a.openService(ctx)
			if err != nil {
				return err
			}
			analyzer, err := a.analyzer()
			if err != nil {
				return err
			}

			records := svc.List()
			labels, err := analysis.Classify(ctx, analyzer, records, a.opts.Analysis.ModelName)
			if err != nil {
				return err
			}
			updated := svc.ApplyResults(ctx, labels)

			a.printf("analyzed %d observations, %d updated\n", len(records), updated)
			for _, line := range labelCounts(labels) {
				a.printf("  %s\n", line)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&a.opts.Analysis.Endpoint, "endpoint", a.opts.Analysis.Endpoint, "Remote analysis service URL")
	cmd.Flags().StringVar(&a.opts.Analysis.ArtifactPath, "artifact", a.opts.Analysis.ArtifactPath, "Threshold artifact for the local engine")
	cmd.Flags().StringVar(&a.opts.Analysis.ModelName, "model", a.opts.Analysis.ModelName, "Model name sent with the request")
	return cmd
}

func (a *app) resetCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every stored observation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to delete observations without --yes")
			}
			svc, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			a.printf("removed %d observations\n", svc.Reset(cmd.Context()))
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the reset")
	return cmd
}

// printReport writes the import summary and one line per failed row.
func (a *app) printReport(res core.ImportResult) {
	a.printf("%s\n", res.Summary())
	for _, f := range res.Failed {
		a.printf("  row %d: %s [%s]", f.Row, f.Error, f.Kind)
		if len(f.RawData) > 0 {
			a.printf(": %s", strings.Join(f.RawData, " | "))
		}
		a.printf("\n")
	}
}

// printPreview writes the preview counts followed by sampled problems.
func (a *app) printPreview(p core.ImportPreview) {
	a.printf("%d rows: %d valid, %d failed\n", p.Summary.TotalRows, p.Summary.NewRows, p.Summary.ErrorRows)
	for _, f := range p.ErrorSamples {
		a.printf("  row %d: %s [%s]\n", f.Row, f.Error, f.Kind)
	}
	if p.Summary.ErrorRows > len(p.ErrorSamples) {
		a.printf("  ... %d more\n", p.Summary.ErrorRows-len(p.ErrorSamples))
	}
	for _, d := range p.DuplicateSamples {
		a.printf("  duplicate name %q appears %d times\n", d.Name, d.Count)
	}
	if len(p.StoredNames) > 0 {
		a.printf("  already stored: %s\n", strings.Join(p.StoredNames, ", "))
	}
}

// labelCounts returns "label: n" lines sorted by label.
func labelCounts(labels map[string]string) []string {
	counts := make(map[string]int)
	for _, l := range labels {
		counts[l]++
	}

	out := make([]string, 0, len(counts))
	for l, n := range counts {
		out = append(out, fmt.Sprintf("%s: %d", l, n))
	}
	sort.Strings(out)
	return out
}
