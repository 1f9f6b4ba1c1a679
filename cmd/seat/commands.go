package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iamshnoo/soc-bias/adapters/dataset"
	"github.com/iamshnoo/soc-bias/app"
	"github.com/iamshnoo/soc-bias/internal/api"
	"github.com/iamshnoo/soc-bias/internal/container"
	"github.com/iamshnoo/soc-bias/internal/migration"
	"github.com/iamshnoo/soc-bias/internal/output"
)

func newRunCmd(g *globalFlags) *cobra.Command {
	var (
		tests          []string
		nSamples       int
		parametric     bool
		seed           int64
		models         []string
		experimentName string
		biasType       string
		seedInID       bool
		formats        []string
		concurrency    int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run association tests against one or more embedding models",
		Long: `Run WEAT/SEAT tests from <persistent-dir>/data/<suite>/<lang>/<mode> and write
results to <persistent-dir>/results/<suite>/<lang>/<mode>/<experiment-id>.json.

Without --tests every test file in the data directory runs, in natural order.
Exact permutation tests are used when a test has at most --n-samples splits.

Example: seat run --embedding-model glove,fasttext --tests weat1,weat2 --seed 0`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, printer, err := g.load(cmd)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("tests") {
				cfg.Run.Tests = tests
			}
			if flags.Changed("n-samples") {
				cfg.Run.NSamples = nSamples
			}
			if flags.Changed("parametric") {
				cfg.Run.Parametric = parametric
			}
			if flags.Changed("seed") {
				cfg.Run.Seed = seed
			}
			if flags.Changed("embedding-model") {
				cfg.Run.EmbeddingModels = models
			}
			if flags.Changed("experiment-name") {
				cfg.Run.ExperimentName = experimentName
			}
			if flags.Changed("bias-type") {
				cfg.Run.BiasType = biasType
			}
			if flags.Changed("seed-in-id") {
				cfg.Run.SeedInID = seedInID
			}
			if flags.Changed("format") {
				cfg.Output.Formats = formats
			}
			if flags.Changed("concurrency") {
				cfg.Run.Concurrency = concurrency
			}
			if err := validateAfterFlags(cfg); err != nil {
				return fail(printer, err)
			}

			c, err := container.New(cfg, logger)
			if err != nil {
				return fail(printer, err)
			}
			defer c.Close()
			if err := c.InitWithDatabase(cmd.Context()); err != nil {
				return fail(printer, err)
			}

			printer.Header("Running SEAT benchmark")
			printer.Info(" - persistent_dir: %s", cfg.PersistentDir)
			printer.Info(" - data_dir: %s", cfg.DataDir())
			printer.Info(" - tests: %v", cfg.Run.Tests)
			printer.Info(" - n_samples: %d", cfg.Run.NSamples)
			printer.Info(" - parametric: %t", cfg.Run.Parametric)
			printer.Info(" - seed: %d", cfg.Run.Seed)
			printer.Info(" - mode: %s", cfg.Run.Mode)
			printer.Info(" - embedding_models: %v", cfg.Run.EmbeddingModels)

			reports, runErr := c.Sweep().Run(cmd.Context(), app.SweepRequest{
				Models:     cfg.Run.EmbeddingModels,
				Tests:      cfg.Run.Tests,
				NSamples:   cfg.Run.NSamples,
				Parametric: cfg.Run.Parametric,
				Seed:       cfg.Run.Seed,
				Naming:     c.Naming(),
			})
			for _, report := range reports {
				printer.Header(report.Manifest.ExperimentID.String())
				if err := printer.PrintEntries(report.Entries); err != nil {
					return fail(printer, err)
				}
				if n := len(report.Failures()); n > 0 {
					printer.Warning("%d of %d tests failed", n, len(report.Entries))
				}
			}
			if runErr != nil {
				return fail(printer, runErr)
			}
			printer.Success("results written to %s", cfg.ResultsDir())
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&tests, "tests", nil, "Tests to run (default: all in the data directory)")
	cmd.Flags().IntVar(&nSamples, "n-samples", 1000, "Permutation samples used when estimating p-values")
	cmd.Flags().BoolVar(&parametric, "parametric", false, "Use the parametric (normal) test for p-values")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed for reproducibility")
	cmd.Flags().StringSliceVar(&models, "embedding-model", []string{"glove"}, "Embedding models: glove|fasttext|elmo")
	cmd.Flags().StringVar(&experimentName, "experiment-name", "", "Experiment name (default: <suite>_all_<mode>_<model>)")
	cmd.Flags().StringVar(&biasType, "bias-type", "", "Bias type appended to the experiment id")
	cmd.Flags().BoolVar(&seedInID, "seed-in-id", false, "Append the seed to the experiment id")
	cmd.Flags().StringSliceVar(&formats, "format", []string{"json"}, "Output formats: json|xlsx|markdown|html")
	cmd.Flags().IntVar(&concurrency, "concurrency", 1, "Models run at once")

	return cmd
}

func newListCmd(g *globalFlags) *cobra.Command {
	var experiments bool
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available tests, or stored experiments with --experiments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, printer, err := g.load(cmd)
			if err != nil {
				return err
			}
			c, err := container.New(cfg, logger)
			if err != nil {
				return fail(printer, err)
			}
			defer c.Close()

			if !experiments {
				ids, err := c.Loader.Discover(cmd.Context())
				if err != nil {
					return fail(printer, err)
				}
				printer.Header(fmt.Sprintf("%d tests in %s", len(ids), c.Loader.Dir()))
				for _, id := range ids {
					fmt.Fprintln(printer.Out(), id)
				}
				return nil
			}

			if err := c.InitWithDatabase(cmd.Context()); err != nil {
				return fail(printer, err)
			}
			if c.ResultRepo == nil {
				return fail(printer, fmt.Errorf("listing experiments needs a database (set DATABASE_URL)"))
			}
			summaries, err := c.ResultRepo.ListExperiments(cmd.Context(), limit)
			if err != nil {
				return fail(printer, err)
			}
			table := output.NewTable(printer.Out(), []string{"Experiment", "Model", "Seed", "Results", "Failures", "Last Run"})
			for _, s := range summaries {
				table.AddRow(s.ExperimentID.String(), s.EmbeddingModel, fmt.Sprint(s.Seed),
					fmt.Sprint(s.Tests), fmt.Sprint(s.Failures), s.LastRunAt.String())
			}
			return table.Render()
		},
	}

	cmd.Flags().BoolVar(&experiments, "experiments", false, "List experiments stored in the database")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum experiments to list")
	return cmd
}

func newGenerateCmd(g *globalFlags) *cobra.Command {
	var templatesPath, srcDir, dstDir string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate sentence-level (SEAT) tests from word-level (WEAT) tests",
		Long: `Expand every WEAT test into a SEAT test by substituting each example into
every template of its set's type. Templates use "_" as the placeholder.

Example: seat generate --mode trans`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, printer, err := g.load(cmd)
			if err != nil {
				return err
			}
			if templatesPath == "" {
				templatesPath = cfg.TemplatesPath()
			}
			if srcDir == "" {
				srcDir = cfg.WordDataDir()
			}
			if dstDir == "" {
				cfg.Run.Suite = "seat"
				dstDir = cfg.DataDir()
			}

			templates, err := dataset.LoadTemplates(templatesPath)
			if err != nil {
				return fail(printer, err)
			}
			report, err := dataset.Generate(cmd.Context(), srcDir, dstDir, templates, logger)
			if err != nil {
				return fail(printer, err)
			}
			printer.Success("generated %d tests in %s", len(report.Written), dstDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&templatesPath, "templates", "", "Templates file (default: <persistent-dir>/data/seat/<lang>/templates.jsonl)")
	cmd.Flags().StringVar(&srcDir, "src", "", "WEAT test directory (default: <persistent-dir>/data/weat/<lang>/<mode>)")
	cmd.Flags().StringVar(&dstDir, "dst", "", "SEAT output directory (default: <persistent-dir>/data/seat/<lang>/<mode>)")
	return cmd
}

func newServeCmd(g *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, printer, err := g.load(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}

			c, err := container.New(cfg, logger)
			if err != nil {
				return fail(printer, err)
			}
			defer c.Close()
			if err := c.InitWithDatabase(cmd.Context()); err != nil {
				return fail(printer, err)
			}

			printer.Info("serving on %s (data: %s)", cfg.Server.Addr, cfg.DataDir())
			if err := api.NewServer(c).ListenAndServe(cmd.Context(), cfg.Server.Addr); err != nil {
				return fail(printer, err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	return cmd
}

func newMigrateCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the result database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, printer, err := g.load(cmd)
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return fail(printer, fmt.Errorf("DATABASE_URL is not set"))
			}
			c, err := container.New(cfg, logger)
			if err != nil {
				return fail(printer, err)
			}
			defer c.Close()
			if err := c.InitWithDatabase(cmd.Context()); err != nil {
				return fail(printer, err)
			}
			printer.Success("database schema is at version %s", migration.NewRunner().Version())
			return nil
		},
	}
}
