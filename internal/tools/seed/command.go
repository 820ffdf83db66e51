package seed

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/product-catalog-demo/internal/observability"
	"github.com/sandeepkv93/product-catalog-demo/internal/tools/common"
	"github.com/sandeepkv93/product-catalog-demo/internal/tools/ui"
)

type options struct {
	envFile string
	baseURL string
	ci      bool
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the demo catalog into a running product API",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := common.LoadEnvFile(opts.envFile); err != nil {
				return err
			}
			if opts.baseURL == "" {
				opts.baseURL = common.DefaultBaseURL()
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "path to env file")
	cmd.PersistentFlags().StringVar(&opts.baseURL, "base-url", "", "API base URL (default http://localhost:$HTTP_PORT$API_BASE_PATH)")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	cmd.AddCommand(
		newCommand(opts, "apply", "Create demo products that are missing by name", func(ctx context.Context, s *Seeder) ([]string, error) {
			return s.Apply(ctx)
		}),
		newCommand(opts, "dry-run", "Show which demo products apply would create", func(ctx context.Context, s *Seeder) ([]string, error) {
			return s.DryRun(ctx)
		}),
		newCommand(opts, "reset", "Delete every product, then load the demo catalog", func(ctx context.Context, s *Seeder) ([]string, error) {
			return s.Reset(ctx)
		}),
	)
	return cmd
}

func newCommand(opts *options, name, short string, action func(context.Context, *Seeder) ([]string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			title := "seed " + name
			start := time.Now()
			seeder := NewSeeder(common.NewProductClient(opts.baseURL, nil))
			details, err := run(opts, title, func(ctx context.Context) ([]string, error) {
				return action(ctx, seeder)
			})
			outcome := "success"
			if err != nil {
				outcome = "failure"
			}
			observability.RecordToolCommandRun(cmd.Context(), "seed", name, outcome)
			observability.RecordToolCommandDuration(cmd.Context(), "seed", name, outcome, time.Since(start))
			if opts.ci {
				common.PrintCIResult(err == nil, title, details, err)
			}
			if err != nil {
				if !opts.ci {
					fmt.Fprintln(os.Stderr, err)
				}
				os.Exit(3)
			}
			return nil
		},
	}
}

func run(opts *options, title string, fn func(context.Context) ([]string, error)) ([]string, error) {
	if opts.ci {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		return fn(ctx)
	}
	return ui.Run(title, fn)
}
