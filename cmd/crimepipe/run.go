package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/opencitydata/crimepipe/internal/cli"
	"github.com/opencitydata/crimepipe/internal/export"
	"github.com/opencitydata/crimepipe/internal/geocode"
	"github.com/opencitydata/crimepipe/internal/ingest"
	"github.com/opencitydata/crimepipe/internal/pipeline"
	"github.com/opencitydata/crimepipe/internal/schema"
	"github.com/opencitydata/crimepipe/internal/spatial"
	"github.com/opencitydata/crimepipe/internal/storage"
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full cleaning pipeline",
		Long: `Validate, repair, assemble, geocode, and spatially join every
configured year, writing cleaned per-year tables and the region count file
to the output directory.`,
		RunE: runPipeline,
	}

	cmd.Flags().IntSlice("years", nil, "Years to process (default: from config)")
	cmd.Flags().String("geocoder-url", "", "Geocoding service base URL")
	cmd.Flags().Bool("no-cache", false, "Bypass the geocode result cache")

	_ = viper.BindPFlag("run.years", cmd.Flags().Lookup("years"))
	_ = viper.BindPFlag("geocoder.url", cmd.Flags().Lookup("geocoder-url"))
	_ = viper.BindPFlag("run.no_cache", cmd.Flags().Lookup("no-cache"))

	return cmd
}

func runPipeline(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	years := viper.GetIntSlice("run.years")
	if len(years) == 0 {
		years = viper.GetIntSlice("years")
	}

	slog.Info(cli.FormatTitle("Cleaning crime-incident extracts..."))

	reader := ingest.NewReader(viper.GetString("data.dir"))

	client, err := geocode.NewClient(geocode.Config{
		BaseURL:   viper.GetString("geocoder.url"),
		Threshold: viper.GetFloat64("geocoder.threshold"),
		BatchSize: viper.GetInt("geocoder.batch_size"),
		Timeout:   viper.GetDuration("geocoder.timeout"),
	})
	if err != nil {
		return err
	}

	var cache geocode.Cache
	if !viper.GetBool("run.no_cache") {
		sqliteCache, err := storage.NewGeocodeCache(viper.GetString("cache.path"))
		if err != nil {
			return fmt.Errorf("open geocode cache: %w", err)
		}
		defer func() { _ = sqliteCache.Close() }()
		cache = sqliteCache
	}

	// Polygon layers load once and are shared read-only across all years.
	neighborhoods, err := spatial.LoadLayer("neighborhood", viper.GetString("layers.neighborhoods.path"))
	if err != nil {
		return err
	}
	regions, err := spatial.LoadLayer("region", viper.GetString("layers.regions.path"))
	if err != nil {
		return err
	}
	joiner := spatial.NewJoiner(neighborhoods, regions,
		viper.GetString("layers.neighborhoods.field"),
		viper.GetString("layers.regions.field"))

	writer, err := export.NewWriter(viper.GetString("output.dir"))
	if err != nil {
		return err
	}

	p := pipeline.New(reader, geocode.NewCompleter(client, cache), joiner, writer, schema.DefaultRules)

	start := time.Now()
	collector, runErr := p.Run(ctx, years)

	if len(collector.Years()) > 0 {
		fmt.Println(cli.RenderMetrics(collector))
	}

	if runErr != nil {
		return runErr
	}

	slog.Info(cli.FormatSuccess(fmt.Sprintf("Pipeline finished in %v", time.Since(start).Truncate(time.Millisecond))))
	return nil
}
