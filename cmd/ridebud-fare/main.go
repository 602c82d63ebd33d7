// README: Offline fare tool: estimates fares and parses route text without the API.
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/sirupsen/logrus"

	"ridebud/internal/infra"
	"ridebud/internal/maps"
	"ridebud/internal/modules/pricing"
)

type cli struct {
	LogLevel string `name:"log-level" env:"RIDEBUD_LOG_LEVEL" default:"warn" help:"Log level for degraded-input warnings."`

	Estimate estimateCmd `cmd:"" help:"Estimate the fare of a trip."`
	Parse    parseCmd    `cmd:"" help:"Parse Google Maps distance or duration text."`
}

type runEnv struct {
	out io.Writer
	log logrus.FieldLogger
}

type estimateCmd struct {
	Distance string `arg:"" help:"Distance in km or as route text, e.g. 12.5 or \"3,200 m\"."`
	Mode     string `short:"m" default:"taxi" help:"taxi, carpool or bus/train."`
	Hour     int    `default:"-1" help:"Hour of departure (0-23). Defaults to the hour of --at."`
	At       string `help:"Departure time, RFC3339. Defaults to now."`
	Airport  bool   `help:"Add the airport surcharge."`
	Timezone string `env:"RIDEBUD_TIMEZONE" default:"UTC" help:"Zone whose wall clock decides day or night."`
}

func (c *estimateCmd) Run(env *runEnv) error {
	km, err := maps.ParseDistance(c.Distance)
	if err != nil {
		return err
	}
	opts, err := c.options(time.Now())
	if err != nil {
		return err
	}
	res := pricing.NewService(env.log).EstimateDetailed(pricing.FareRequest{
		Mode:       pricing.Mode(c.Mode),
		DistanceKm: km,
		Options:    opts,
	})
	period := "day"
	if res.Night {
		period = "night"
	}
	fmt.Fprintf(env.out, "%s %.2f km (%s, %02d:00): %.2f\n", c.Mode, km, period, opts.Hour, res.Total)
	return nil
}

func (c *estimateCmd) options(now time.Time) (pricing.Options, error) {
	if c.Hour >= 0 {
		return pricing.Options{Hour: c.Hour, IsAirport: c.Airport}, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return pricing.Options{}, fmt.Errorf("timezone: %w", err)
	}
	at := now
	if c.At != "" {
		if at, err = time.Parse(time.RFC3339, c.At); err != nil {
			return pricing.Options{}, fmt.Errorf("--at: %w", err)
		}
	}
	return pricing.OptionsAt(at, loc, c.Airport), nil
}

type parseCmd struct {
	Text     string `arg:"" help:"Text such as \"1.5 km\" or \"1 hour 5 mins\"."`
	Duration bool   `short:"d" help:"Parse as a duration instead of a distance."`
}

func (c *parseCmd) Run(env *runEnv) error {
	if c.Duration {
		mins, err := maps.ParseDurationMinutes(c.Text)
		if err != nil {
			return err
		}
		fmt.Fprintf(env.out, "%d min\n", mins)
		return nil
	}
	km, err := maps.ParseDistance(c.Text)
	if err != nil {
		return err
	}
	fmt.Fprintf(env.out, "%.3f km\n", km)
	return nil
}

func main() {
	var args cli
	ctx := kong.Parse(&args,
		kong.Name("ridebud-fare"),
		kong.Description("Estimate RideBud fares offline."),
		kong.UsageOnError(),
	)
	logger, err := infra.NewLogger(args.LogLevel, "text")
	if err != nil {
		log.Fatal(err)
	}
	logger.SetOutput(os.Stderr)
	ctx.FatalIfErrorf(ctx.Run(&runEnv{out: os.Stdout, log: logger}))
}
