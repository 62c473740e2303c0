package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cibounipi/mensabot/internal/adapters/events"
	"github.com/cibounipi/mensabot/internal/domain/entities"
	"github.com/cibounipi/mensabot/internal/infrastructure/clients/redis"
	"github.com/cibounipi/mensabot/internal/store"
)

func newNotifyRefreshCmd(app *App) *cobra.Command {
	var origin string
	var check bool

	cmd := &cobra.Command{
		Use:   "notify-refresh [DOCUMENT...]",
		Short: "Tell running servers that new documents were published",
		Long: "Publishes a refresh event on the Redis refresh channel. Every server " +
			"subscribed to it reloads its snapshot. With --check the documents are " +
			"fetched and validated first, and nothing is published if they do not build.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if check {
				if _, err := app.load(ctx); err != nil {
					return err
				}
			}
			if len(args) == 0 {
				args = []string{store.DocMenu, store.DocFacilities, store.DocRates, store.DocCombinations}
			}

			client, err := redis.NewClient(ctx, &app.Config.Redis)
			if err != nil {
				return err
			}
			defer client.Close()

			bus := events.NewRedisEventBus(client)
			defer bus.Close()

			event := entities.NewDataRefreshEvent(origin, args...)
			if err := bus.Publish(ctx, app.Config.Redis.RefreshChannel, event); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Published refresh %s on %s\n", event.ID, app.Config.Redis.RefreshChannel)
			return nil
		},
	}
	cmd.Flags().StringVar(&origin, "origin", "canteenctl", "origin recorded on the event")
	cmd.Flags().BoolVar(&check, "check", true, "validate the documents before publishing")

	return cmd
}
