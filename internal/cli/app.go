// Package cli implements canteenctl, an operator tool that answers the same
// queries as the API straight from the published documents and announces
// new document sets to running servers.
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/cibounipi/mensabot/internal/adapters/source"
	"github.com/cibounipi/mensabot/internal/application/services"
	"github.com/cibounipi/mensabot/internal/domain/providers"
	"github.com/cibounipi/mensabot/internal/infrastructure/observability"
	"github.com/cibounipi/mensabot/internal/store"
	"github.com/cibounipi/mensabot/pkg/config"
)

// App carries what the commands share. Config and Source are resolved on
// first use unless set beforehand.
type App struct {
	ConfigPath string
	Config     *config.Config
	Source     providers.DocumentSource
	Now        func() time.Time

	engine    *services.QueryEngine
	navigator *services.Navigator
}

// NewRootCmd builds the canteenctl command tree
func NewRootCmd(app *App) *cobra.Command {
	if app.Now == nil {
		app.Now = time.Now
	}

	cmd := &cobra.Command{
		Use:           "canteenctl",
		Short:         "Query canteen menus, hours and rates from the published documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.loadConfig()
		},
	}
	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", "", "YAML config file")

	cmd.AddCommand(
		newMenuCmd(app),
		newDishCmd(app),
		newSearchCmd(app),
		newRateCmd(app),
		newHoursCmd(app),
		newActionCmd(app),
		newNotifyRefreshCmd(app),
	)

	return cmd
}

// Execute runs canteenctl with the process arguments
func Execute() error {
	return NewRootCmd(&App{}).Execute()
}

func (a *App) loadConfig() error {
	if a.Config != nil {
		return nil
	}
	cfg, err := config.Load(a.ConfigPath)
	if err != nil {
		return err
	}
	observability.InitLogger(cfg.OTEL.ServiceName, cfg.App.Env, cfg.App.LogLevel)
	// stdout carries the rendered views
	log.Logger = log.Logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	a.Config = cfg
	return nil
}

// load fetches the documents and builds the engine once per invocation
func (a *App) load(ctx context.Context) (*services.QueryEngine, error) {
	if a.engine != nil {
		return a.engine, nil
	}

	loc, err := a.Config.Location()
	if err != nil {
		return nil, err
	}
	cutover, err := a.Config.Pricing.Cutover()
	if err != nil {
		return nil, err
	}

	if a.Source == nil {
		if a.Config.Data.Source == "s3" {
			a.Source, err = source.NewS3Source(ctx, &a.Config.Data)
			if err != nil {
				return nil, err
			}
		} else {
			a.Source = source.NewFileSource(a.Config.Data.Dir)
		}
	}

	holder := store.NewHolder(nil)
	svc := services.NewSnapshotService(a.Source, holder, services.SnapshotServiceConfig{Location: loc})
	if _, err := svc.Reload(ctx, services.TriggerManual); err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}

	a.engine = services.NewQueryEngine(holder, cutover)
	a.navigator = services.NewNavigator(a.engine)
	return a.engine, nil
}
