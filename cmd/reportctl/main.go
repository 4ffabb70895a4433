// Command reportctl runs operational tasks against the recruitment timeline store.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/recruit-timeline-api/internal/app"
	"github.com/noah-isme/recruit-timeline-api/pkg/config"
	"github.com/noah-isme/recruit-timeline-api/pkg/logger"
)

// runtime carries lazily built dependencies for subcommands.
type runtime struct {
	cfg    *config.Config
	logger *zap.Logger
	app    *app.App
}

func (r *runtime) open(ctx context.Context) (*app.App, error) {
	if r.app != nil {
		return r.app, nil
	}
	a, err := app.New(ctx, r.cfg, r.logger)
	if err != nil {
		return nil, err
	}
	r.app = a
	return a, nil
}

func (r *runtime) close() {
	if r.app != nil {
		r.app.Close()
	}
	if r.logger != nil {
		_ = r.logger.Sync()
	}
}

func newRootCmd(rt *runtime) *cobra.Command {
	root := &cobra.Command{
		Use:           "reportctl",
		Short:         "Operate the recruitment timeline service",
		Long:          "reportctl promotes pending step reports, prints timelines and lead times, records official dates and mints admin tokens.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if rt.cfg != nil {
				return nil
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			l, err := logger.New(cfg, "reportctl")
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			rt.cfg, rt.logger = cfg, l
			return nil
		},
	}
	root.AddCommand(
		newProcessPendingCmd(rt),
		newTimelineCmd(rt),
		newLeadTimeCmd(rt),
		newRecordOfficialCmd(rt),
		newTokenCmd(rt),
	)
	return root
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	_ = godotenv.Load()

	rt := &runtime{}
	err := newRootCmd(rt).Execute()
	rt.close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
