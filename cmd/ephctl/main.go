package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/cheggaaa/pb.v1"

	"eph-processor/internal/config"
	"eph-processor/internal/export"
	"eph-processor/internal/logging"
	"eph-processor/internal/models"
	"eph-processor/internal/reports"
	"eph-processor/internal/services"
)

type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	datasets *services.DatasetService
	env      reports.Env
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ephctl:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string
	a := &app{}
	root := &cobra.Command{
		Use:           "ephctl",
		Short:         "Merge, classify and report on EPH survey microdata",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(configPath)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML config")
	root.AddCommand(a.updateCommand(), a.reportCommand(), a.exportCommand(), a.coverageCommand(), a.listCommand())
	return root
}

func (a *app) init(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	catalog, err := services.LoadCatalog(cfg.CoordinatesPath())
	if err != nil {
		logger.Debug("Coordinates unavailable, using built-in catalog", zap.Error(err))
		catalog = models.NewCatalog(nil)
	}
	income, err := services.NewIncomeService(cfg.IncomePath())
	if err != nil {
		logger.Debug("Income reference unavailable", zap.Error(err))
		income = nil
	}
	a.cfg, a.logger = cfg, logger
	a.datasets = services.NewDatasetService(cfg, logger)
	a.env = reports.Env{Source: a.datasets, Aggregator: services.NewAggregator(catalog), Income: income}
	return nil
}

func (a *app) updateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Merge the per-period files and write the classified datasets",
		RunE: func(cmd *cobra.Command, args []string) error {
			total := 0
			for _, prefix := range []string{a.cfg.Files.HouseholdPrefix, a.cfg.Files.IndividualPrefix} {
				files, err := services.PeriodFiles(prefix, a.cfg.RawDir())
				if err != nil {
					return err
				}
				total += len(files)
			}

			bar := pb.StartNew(total)
			res, err := a.datasets.Update(cmd.Context(), func(path string, rows int) {
				bar.Increment()
			})
			bar.Finish()
			if err != nil {
				var missing *services.MissingFilesError
				if errors.As(err, &missing) {
					for _, msg := range missing.Messages {
						fmt.Fprintln(cmd.ErrOrStderr(), msg)
					}
				}
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run %s finished in %s\n", res.RunID, res.Duration)
			fmt.Fprintf(out, "households: %d files, %d rows\n", res.Households.Files, res.Households.Rows)
			fmt.Fprintf(out, "individuals: %d files, %d rows\n", res.Individuals.Files, res.Individuals.Rows)
			fmt.Fprintf(out, "coverage: %s to %s\n", res.Coverage.From, res.Coverage.To)
			return nil
		},
	}
}

type reportFlags struct {
	year, quarter, aglomerado int
	aglomerados, ranges       string
}

func (f *reportFlags) bind(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.year, "year", 0, "survey year")
	cmd.Flags().IntVar(&f.quarter, "quarter", 0, "survey quarter (1-4)")
	cmd.Flags().IntVar(&f.aglomerado, "aglomerado", 0, "aglomerado code")
	cmd.Flags().StringVar(&f.aglomerados, "aglomerados", "", "comma separated aglomerado codes")
	cmd.Flags().StringVar(&f.ranges, "range", "", "comma separated age range names")
}

// params goes through ParseParams so flags and query strings validate alike.
func (f *reportFlags) params() (reports.Params, error) {
	values := map[string]string{
		"aglomerados": f.aglomerados,
		"range":       f.ranges,
	}
	for name, v := range map[string]int{"year": f.year, "quarter": f.quarter, "aglomerado": f.aglomerado} {
		if v != 0 {
			values[name] = strconv.Itoa(v)
		}
	}
	return reports.ParseParams(func(name string) string { return values[name] })
}

func (a *app) run(name string, f *reportFlags) (interface{}, error) {
	report, err := reports.Lookup(name)
	if err != nil {
		return nil, err
	}
	p, err := f.params()
	if err != nil {
		return nil, err
	}
	return report.Run(a.env, p)
}

func (a *app) reportCommand() *cobra.Command {
	f := &reportFlags{}
	cmd := &cobra.Command{
		Use:   "report <name>",
		Short: "Print a report as a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := a.run(args[0], f)
			if errors.Is(err, services.ErrNoData) {
				fmt.Fprintln(cmd.OutOrStdout(), "No data available:", err)
				return nil
			}
			if err != nil {
				return err
			}
			return export.Table(cmd.OutOrStdout(), rows)
		},
	}
	f.bind(cmd)
	return cmd
}

func (a *app) exportCommand() *cobra.Command {
	f := &reportFlags{}
	cmd := &cobra.Command{
		Use:   "export <name> <file>",
		Short: "Write a report to a .csv or .xlsx file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			format := strings.TrimPrefix(strings.ToLower(filepath.Ext(args[1])), ".")
			if format != export.FormatCSV && format != export.FormatXLSX {
				return errors.Wrapf(export.ErrUnknownFormat, "%q", args[1])
			}
			rows, err := a.run(args[0], f)
			if err != nil {
				return err
			}
			out, err := os.Create(args[1])
			if err != nil {
				return errors.Wrapf(err, "creating %s", args[1])
			}
			if err := export.Write(out, format, rows); err != nil {
				out.Close()
				return err
			}
			return errors.Wrapf(out.Close(), "closing %s", args[1])
		},
	}
	f.bind(cmd)
	return cmd
}

func (a *app) coverageCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "coverage",
		Short: "Show the periods covered by the classified datasets",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := a.datasets.Status()
			if err != nil {
				return err
			}
			if !status.Ready {
				fmt.Fprintln(cmd.OutOrStdout(), "No classified datasets; run ephctl update")
				return nil
			}
			var rows []models.Coverage
			if status.Households != nil {
				rows = append(rows, *status.Households)
			}
			if status.Individuals != nil {
				rows = append(rows, *status.Individuals)
			}
			return export.Table(cmd.OutOrStdout(), rows)
		},
	}
}

func (a *app) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reports",
		Short: "List the available reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, r := range reports.All() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-32s %s\n", r.Name, r.Description)
			}
			return nil
		},
	}
}
