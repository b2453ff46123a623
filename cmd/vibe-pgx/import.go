package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/vibe-pgx/internal/duckdb"
	"github.com/inodb/vibe-pgx/internal/vcf"
)

func newImportCmd(opts *rootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "import [flags] <vcf> <db>",
		Short: "Load a VCF into a DuckDB call store",
		Long: `Load every call of a VCF into a DuckDB database so later annotate runs can
query it with --backend duckdb. The import is skipped when the database
already holds the same file (same path, size and modification time).`,
		Example: `  vibe-pgx import sample.vcf.gz sample.duckdb
  vibe-pgx annotate --panel pgx_panel.xlsx sample.duckdb`,
		Args: exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(args[0], args[1], force, opts.logger, cmd)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Re-import even if the VCF is unchanged")

	return cmd
}

func runImport(vcfPath, dbPath string, force bool, logger *zap.Logger, cmd *cobra.Command) error {
	fp, err := duckdb.StatFile(vcfPath)
	if err != nil {
		return err
	}

	store, err := duckdb.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if !force {
		current, err := store.IsCurrent(fp)
		if err != nil {
			return err
		}
		if current {
			logger.Info("call store is up to date", zap.String("vcf", vcfPath), zap.String("db", dbPath))
			fmt.Fprintf(cmd.OutOrStdout(), "%s already imported into %s\n", vcfPath, dbPath)
			return nil
		}
	}

	parser, err := vcf.NewParser(vcfPath)
	if err != nil {
		return err
	}
	defer parser.Close()

	n, err := store.ImportVCF(parser, fp)
	if err != nil {
		return fmt.Errorf("importing %s: %w", vcfPath, err)
	}

	logger.Info("imported calls", zap.String("vcf", vcfPath), zap.String("db", dbPath), zap.Int("records", n))
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d records from %s into %s\n", n, vcfPath, dbPath)
	return nil
}
