package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"slices"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-pgx/internal/annotate"
	"github.com/inodb/vibe-pgx/internal/config"
	"github.com/inodb/vibe-pgx/internal/genotype"
	"github.com/inodb/vibe-pgx/internal/input"
	"github.com/inodb/vibe-pgx/internal/output"
	"github.com/inodb/vibe-pgx/internal/query"
	"github.com/inodb/vibe-pgx/internal/vcf"
)

// annotateFlags maps annotate flags to config keys.
var annotateFlags = map[string]string{
	"panel":         config.KeyPanel,
	"output":        config.KeyOutput,
	"format":        config.KeyFormat,
	"backend":       config.KeyBackend,
	"bcftools":      config.KeyBcftools,
	"sample":        config.KeySample,
	"depth-field":   config.KeyDepthField,
	"workers":       config.KeyWorkers,
	"timeout":       config.KeyTimeout,
	"chrom-aliases": config.KeyChromAliases,
	"fail-fast":     config.KeyFailFast,
}

func newAnnotateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "annotate [flags] <vcf>",
		Short: "Annotate a marker panel with a sample's genotypes",
		Long: `Annotate every marker of a panel with the genotype and read depth found in
the VCF at the marker's position. Markers without a record, without a called
genotype or whose lookup failed are reported as "--".

The panel is an xlsx/xls workbook (one category per sheet), a tsv/csv file,
or a directory of tsv/csv files. By default the result is written next to the
VCF as <vcf stem>_pharmacogenomics.xlsx.`,
		Example: `  vibe-pgx annotate --panel pgx_panel.xlsx sample.vcf.gz
  vibe-pgx annotate --panel panels/ --format tsv --output out/ sample.vcf.gz
  vibe-pgx annotate --backend bcftools --timeout 30s sample.vcf.gz
  vibe-pgx annotate --backend duckdb --sample NA12878 calls.duckdb`,
		Args: exactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(viper.GetViper(), cmd.Flags(), annotateFlags)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(viper.GetViper())
			if err != nil {
				return usageError{err}
			}
			return runAnnotate(cmd.Context(), cfg, args[0], opts.logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	f := cmd.Flags()
	f.String("panel", "", "Marker panel: xlsx, xls, tsv, csv or a directory of tsv/csv files")
	f.StringP("output", "o", "", "Output file (xlsx) or directory (tsv) (default: next to the VCF)")
	f.StringP("format", "f", config.FormatXLSX, "Output format: xlsx, tsv")
	f.String("backend", query.BackendAuto, "Variant lookup: auto, tabix, bcftools, memory, duckdb")
	f.String("bcftools", query.DefaultBcftools, "bcftools executable for the bcftools backend")
	f.String("sample", "", "Sample to report (default: first sample in the VCF)")
	f.String("depth-field", genotype.DefaultDepthField, "FORMAT field reported as depth")
	f.IntP("workers", "w", 1, "Concurrent lookups per category (0 = all CPUs)")
	f.Duration("timeout", 0, "Timeout per lookup (0 = none)")
	f.Bool("chrom-aliases", true, "Retry lookups with the other chromosome naming (chr1 <-> 1)")
	f.Bool("fail-fast", false, "Stop at the first category that cannot be annotated")

	return cmd
}

// bindFlags binds each flag to its config key, so flags override the
// environment and the config file.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) error {
	for name, key := range keys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("binding flag --%s: %w", name, err)
		}
	}
	return nil
}

// runAnnotate annotates the configured panel against vcfPath and writes the
// result. Categories that fail are skipped unless cfg.FailFast is set; the
// run still reports an error for them after the output is written.
func runAnnotate(ctx context.Context, cfg *config.Config, vcfPath string, logger *zap.Logger, stdout, stderr io.Writer) error {
	if cfg.Panel == "" {
		return usageError{errors.New("no marker panel: use --panel or set panel in the config")}
	}

	start := time.Now()

	tables, err := input.ReadTables(cfg.Panel)
	if err != nil {
		return fmt.Errorf("reading panel: %w", err)
	}
	logger.Info("loaded panel", zap.String("path", cfg.Panel), zap.Int("categories", len(tables)))

	backend := cfg.Backend
	if backend == query.BackendAuto {
		backend = query.DetectBackend(vcfPath)
	}
	if cfg.Sample != "" && backend != query.BackendDuckDB {
		if err := checkSample(vcfPath, cfg.Sample); err != nil {
			return err
		}
	}

	src, err := query.Open(vcfPath, query.Options{Backend: backend, Bcftools: cfg.Bcftools})
	if err != nil {
		return err
	}
	defer src.Close()
	logger.Debug("opened variant dataset", zap.String("path", vcfPath), zap.String("backend", backend))

	adapter := query.NewAdapter(src)
	adapter.SetTimeout(cfg.Timeout)
	adapter.SetChromAliases(cfg.ChromAliases)

	workers := cfg.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}
	ann := annotate.NewAnnotator(adapter, genotype.NewDecoder(cfg.Sample, cfg.DepthField))
	ann.SetWorkers(workers)
	ann.SetLogger(logger)

	pipeline := annotate.NewPipeline(ann)
	pipeline.SetContinueOnError(!cfg.FailFast)
	pipeline.SetLogger(logger)

	res, runErr := pipeline.Run(ctx, tables)
	if runErr != nil && (cfg.FailFast || ctx.Err() != nil) {
		return runErr
	}
	if len(res.Tables) == 0 {
		if runErr == nil {
			return fmt.Errorf("panel %s has no categories", cfg.Panel)
		}
		return fmt.Errorf("no category could be annotated: %w", runErr)
	}

	dest, err := writeOutput(cfg, vcfPath, res.Tables, logger)
	if err != nil {
		return err
	}

	if err := output.WriteSummary(stderr, res); err != nil {
		return err
	}
	logger.Info("annotation complete",
		zap.Int("categories", len(res.Tables)),
		zap.Duration("elapsed", time.Since(start)))
	fmt.Fprintf(stdout, "Pharmacogenomic annotations written to %s\n", dest)

	if runErr != nil {
		return fmt.Errorf("skipped %d categories: %w", len(res.Failed), runErr)
	}
	return nil
}

func writeOutput(cfg *config.Config, vcfPath string, tables []*annotate.Table, logger *zap.Logger) (string, error) {
	switch cfg.Format {
	case config.FormatTSV:
		dir := cfg.Output
		if dir == "" {
			dir = output.DerivePath(vcfPath, cfg.Suffix, "")
		}
		if _, err := output.WriteTablesTSV(dir, tables); err != nil {
			return "", err
		}
		return dir, nil
	default:
		path := cfg.Output
		if path == "" {
			path = output.DerivePath(vcfPath, cfg.Suffix, ".xlsx")
		}
		w := output.NewXLSXWriter(output.Font{Family: cfg.Font.Family, Size: cfg.Font.Size})
		w.SetLogger(logger)
		if err := w.WriteFile(path, tables); err != nil {
			return "", err
		}
		return path, nil
	}
}

// checkSample fails when the VCF header does not list sample.
func checkSample(vcfPath, sample string) error {
	p, err := vcf.NewParser(vcfPath)
	if err != nil {
		return err
	}
	defer p.Close()

	names := p.SampleNames()
	if !slices.Contains(names, sample) {
		return fmt.Errorf("sample %q not found in %s (have %v)", sample, vcfPath, names)
	}
	return nil
}
