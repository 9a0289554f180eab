// Package main is the bike-predict command line client.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"bike-predict/internal/config"
	"bike-predict/internal/form"
	"bike-predict/internal/prompt"
	"bike-predict/internal/services/predictor"
	"bike-predict/internal/utils"
)

var (
	predictorURL string
	timeout      time.Duration
	verbose      bool

	cfg     *config.Config
	service predictor.Service
)

var rootCmd = &cobra.Command{
	Use:   "bikepredict",
	Short: "Estimate the resale price of a used bike",
	Long: `bikepredict talks to the bike price prediction service.

It lists the brands, models and locations the service knows about and asks it
for a price estimate, either from flags or through an interactive form.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

var mappingsCmd = &cobra.Command{
	Use:   "mappings",
	Short: "List the brands and locations known to the service",
	RunE:  listMappings,
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models of a brand",
	Example: `  bikepredict models --brand "royal enfield"
  bikepredict models --brand 3`,
	RunE: listModels,
}

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Estimate a bike's price",
	Long: `Estimates a bike's price from flags, or interactively with -i.

Brand, model and location accept either the name or the numeric code.
Use "other" as location when the city is not listed.`,
	Example: `  bikepredict predict -i
  bikepredict predict --brand honda --model "honda cb" --location pune \
    --year 2020 --kilometers 25000 --power 150 --owner "Second Owner"`,
	RunE: predict,
}

var predictFlags struct {
	interactive bool
	brand       string
	model       string
	location    string
	year        string
	kilometers  string
	power       string
	owner       string
}

func init() {
	rootCmd.PersistentFlags().StringVar(&predictorURL, "predictor-url", "", "Prediction service URL (or set PREDICTOR_URL env)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	modelsCmd.Flags().StringVar(&predictFlags.brand, "brand", "", "Brand name or code")
	_ = modelsCmd.MarkFlagRequired("brand")

	f := predictCmd.Flags()
	f.BoolVarP(&predictFlags.interactive, "interactive", "i", false, "Fill in the form interactively")
	f.StringVar(&predictFlags.brand, "brand", "", "Brand name or code")
	f.StringVar(&predictFlags.model, "model", "", "Model name or code")
	f.StringVar(&predictFlags.location, "location", "", "Location name, code or \"other\"")
	f.StringVar(&predictFlags.year, "year", "", "Year of manufacture")
	f.StringVar(&predictFlags.kilometers, "kilometers", "", "Kilometers driven")
	f.StringVar(&predictFlags.power, "power", "", "Engine power in CC")
	f.StringVar(&predictFlags.owner, "owner", "First Owner", "Owner type")

	rootCmd.AddCommand(mappingsCmd, modelsCmd, predictCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return err
	}
	if predictorURL != "" {
		cfg.PredictorURL = predictorURL
	}
	cfg.PredictorTimeout = timeout

	level := "warn"
	if verbose {
		level = "debug"
	}
	if err := utils.InitLogger(level); err != nil {
		return err
	}

	service = predictor.NewClientFromConfig(cfg)
	return nil
}

func newController(ctx context.Context) (*form.Controller, error) {
	c := form.New(service)
	if err := c.LoadMappings(ctx); err != nil {
		return nil, errors.New(c.State().Error)
	}
	return c, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	defer utils.Sync()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, prompt.ErrAborted) {
			os.Exit(130)
		}
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		os.Exit(1)
	}
}
