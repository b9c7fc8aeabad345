package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/vango-dev/stan/pkg/metrics"
	"github.com/vango-dev/stan/pkg/stan"
	"github.com/vango-dev/stan/pkg/tracing"
)

func demoCmd(c *cli) *cobra.Command {
	var (
		key   string
		times int
		step  int
	)

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a demo store against the configured backend",
		Long: `Build a store with a synchronized counter kept in the configured
backend, a computed field and an effect, then increment the counter in a
batch. Running it twice continues from the stored value.

Examples:
  stan demo
  stan demo --times 5 --step 2
  stan demo --key visits`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withBackend(cmd, func(ctx context.Context, b backend) error {
				return runDemo(cmd, c, b, key, times, step)
			})
		},
	}

	cmd.Flags().StringVar(&key, "key", "count", "Key of the synchronized counter")
	cmd.Flags().IntVarP(&times, "times", "n", 3, "Increments applied in the batch")
	cmd.Flags().IntVar(&step, "step", 1, "Increment size")

	return cmd
}

func runDemo(cmd *cobra.Command, c *cli, b backend, key string, times, step int) error {
	out := cmd.OutOrStdout()
	reg := prometheus.NewRegistry()
	collector := metrics.New(metrics.WithRegistry(reg), metrics.WithNamespace(c.cfg.Metrics.Namespace))

	store, err := stan.New(stan.Fields{
		stan.Synchronized(key, b.Field(0)),
		stan.Literal("step", step),
		stan.Computed("double", func(s stan.State) any {
			return stan.Value[int](s, key) * 2
		}),
	},
		stan.WithLogger(c.logger),
		stan.WithObserver(collector, tracing.New()),
		stan.WithContext(cmd.Context()),
	)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	if err := store.Settle(ctx); err != nil {
		return fmt.Errorf("loading %s: %w", key, err)
	}

	fmt.Fprintf(out, "loaded %s = %d\n", key, stan.Get[int](store, key))

	store.Subscribe(func(v any) {
		fmt.Fprintf(out, "double -> %v\n", v)
	}, "double")
	dispose := store.Effect(func(s stan.State) {
		fmt.Fprintf(out, "effect: %s=%d double=%d\n", key, stan.Value[int](s, key), stan.Value[int](s, "double"))
	})
	defer dispose()

	inc := stan.Update(func(n int) int { return n + stan.Get[int](store, "step") })
	store.BatchUpdates(func() {
		for i := 0; i < times; i++ {
			if err := store.Set(key, inc); err != nil {
				c.logger.Error("increment failed", "error", err)
			}
		}
	})

	success(out, "%s = %d, double = %d", key, stan.Get[int](store, key), stan.Get[int](store, "double"))

	if c.cfg.Metrics.Enabled {
		families, err := reg.Gather()
		if err != nil {
			return err
		}
		fmt.Fprintln(out)
		for _, f := range families {
			if _, err := expfmt.MetricFamilyToText(out, f); err != nil {
				return err
			}
		}
	}
	return nil
}
