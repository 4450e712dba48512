package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/kalasahayak/kala-sahayak/internal/agent"
	"github.com/kalasahayak/kala-sahayak/internal/clipdrop"
	"github.com/kalasahayak/kala-sahayak/internal/config"
	"github.com/kalasahayak/kala-sahayak/internal/listing"
	"github.com/kalasahayak/kala-sahayak/internal/llm"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	root := &cobra.Command{
		Use:          "kala",
		Short:        "Turn an artisan's photo and note into a marketplace listing",
		SilenceUsage: true,
	}

	var verbose bool
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		if verbose {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		}
	}

	root.AddCommand(newGenerateCmd())
	root.AddCommand(newWorkflowCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	config.LoadEnvFile()
	return config.Load()
}

func newGenerateCmd() *cobra.Command {
	var imagePath, note string
	var price float64

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Run the three-stage listing pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if missing := cfg.MissingKeys(); len(missing) > 0 {
				return fmt.Errorf("missing required API keys: %s", strings.Join(missing, ", "))
			}

			ctx := cmd.Context()
			generator, err := llm.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
			if err != nil {
				return fmt.Errorf("failed to initialize gemini generator: %w", err)
			}
			remover := clipdrop.NewClient(clipdrop.ClientOpts{APIKey: cfg.ClipdropAPIKey})
			pipeline := listing.NewPipeline(remover, generator, cfg.UploadDir)

			result := pipeline.Run(ctx, listing.NewRequest(imagePath, note, price))
			printResult(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&imagePath, "image", "", "path to the product photo")
	cmd.Flags().StringVar(&note, "note", "", "the artisan's note describing the product")
	cmd.Flags().Float64Var(&price, "price", 0, "your selling price in USD (optional)")
	cmd.MarkFlagRequired("image")
	cmd.MarkFlagRequired("note")

	return cmd
}

func newWorkflowCmd() *cobra.Command {
	var artisanID, imagePath, note string

	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Run the agentic five-step workflow variant",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			// Only the planner talks to a remote model; the workflow's
			// operations are local heuristics.
			if cfg.GeminiAPIKey == "" {
				return fmt.Errorf("missing required API key: GEMINI_API_KEY")
			}

			ctx := cmd.Context()
			planner, err := llm.NewGeminiPlanner(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
			if err != nil {
				return fmt.Errorf("failed to initialize planner: %w", err)
			}

			receipt, err := agent.NewWorkflow(planner).Run(ctx, artisanID, imagePath, note)
			if err != nil {
				return err
			}

			fmt.Println(receipt.Message)
			return nil
		},
	}

	cmd.Flags().StringVar(&artisanID, "artisan", "", "the artisan identifier for the gallery URL")
	cmd.Flags().StringVar(&imagePath, "image", "", "path to the product photo")
	cmd.Flags().StringVar(&note, "note", "", "the artisan's note describing the product")
	cmd.MarkFlagRequired("artisan")
	cmd.MarkFlagRequired("image")
	cmd.MarkFlagRequired("note")

	return cmd
}

func printResult(result listing.Result) {
	primary, secondary := listing.DisplayPrice(result)
	priceLine := primary
	if secondary != "" {
		priceLine += " (" + secondary + ")"
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	if isatty.IsTerminal(os.Stdout.Fd()) {
		t.SetStyle(table.StyleRounded)
	} else {
		t.SetStyle(table.StyleDefault)
	}

	t.AppendRow(table.Row{"Image", result.ImagePath})
	if result.PhotoErr != "" {
		t.AppendRow(table.Row{"Photo error", result.PhotoErr})
	}
	t.AppendRow(table.Row{"Price", priceLine})
	t.AppendRow(table.Row{"Description", result.Description})
	if result.ContentErr != "" {
		t.AppendRow(table.Row{"Content error", result.ContentErr})
	}
	t.AppendRow(table.Row{"Hashtags", strings.Join(result.Hashtags, " ")})
	t.AppendRow(table.Row{"Publish URL", result.PublishURL})
	t.Render()
}
