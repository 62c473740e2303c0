package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cibounipi/mensabot/internal/application/services"
	"github.com/cibounipi/mensabot/internal/domain/entities"
	"github.com/cibounipi/mensabot/internal/navigation"
)

func newMenuCmd(app *App) *cobra.Command {
	var date, meal, facility string
	var tokens bool

	cmd := &cobra.Command{
		Use:   "menu",
		Short: "Show the menu for a date and meal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := app.load(cmd.Context())
			if err != nil {
				return err
			}
			now := app.Now()
			view := engine.MenuView(engine.ParseDate(date, now), services.ParseMeal(meal), engine.FacilityFilter(facility), now)
			printPayload(cmd.OutOrStdout(), view, tokens)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "date as YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&meal, "meal", "", "Pranzo or Cena (default Pranzo)")
	cmd.Flags().StringVar(&facility, "facility", "", "facility id or name, or \"all\"")
	cmd.Flags().BoolVar(&tokens, "tokens", false, "print the navigation token of every action")
	_ = cmd.RegisterFlagCompletionFunc("meal", completeMeals)

	return cmd
}

func newDishCmd(app *App) *cobra.Command {
	var tokens bool

	cmd := &cobra.Command{
		Use:   "dish NAME",
		Short: "Show when and where a dish is served",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := app.load(cmd.Context())
			if err != nil {
				return err
			}
			printPayload(cmd.OutOrStdout(), engine.OccurrenceView(strings.Join(args, " "), app.Now()), tokens)
			return nil
		},
	}
	cmd.Flags().BoolVar(&tokens, "tokens", false, "print the navigation token of every action")

	return cmd
}

func newSearchCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "search TERM",
		Short: "Search upcoming dishes by name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := app.load(cmd.Context())
			if err != nil {
				return err
			}

			results := engine.SearchDishes(strings.Join(args, " "), app.Now())
			if len(results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No dishes found.")
				return nil
			}

			rows := make([][]string, 0, len(results))
			for _, r := range results {
				rows = append(rows, []string{
					r.Name,
					r.DateLabel,
					string(r.Meal),
					strconv.Itoa(r.DaysAhead),
					strings.Join(r.Facilities, ", "),
				})
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"DISH", "DATE", "MEAL", "DAYS", "FACILITIES"}, rows))
			return nil
		},
	}
}

func newRateCmd(app *App) *cobra.Command {
	var scholarship bool

	cmd := &cobra.Command{
		Use:   "rate [INCOME]",
		Short: "Look up the meal prices for an income, or list the bands",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := app.load(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			switch {
			case scholarship:
				printPayload(out, engine.ScholarshipView(app.Now()), false)
			case len(args) == 1:
				printPayload(out, engine.RateView(args[0], app.Now()), false)
			default:
				bands := engine.Snapshot().Rates.Bands()
				rows := make([][]string, 0, len(bands))
				for _, b := range bands {
					to := "-"
					if b.MaxIncome != nil {
						to = fmt.Sprintf("%.2f", *b.MaxIncome)
					}
					rows = append(rows, []string{b.Label, fmt.Sprintf("%.2f", b.MinIncome), to, strconv.FormatBool(b.IsScholarship)})
				}
				fmt.Fprint(out, renderTable([]string{"BAND", "FROM", "TO", "SCHOLARSHIP"}, rows))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&scholarship, "scholarship", false, "show the scholarship holder prices")

	return cmd
}

func newHoursCmd(app *App) *cobra.Command {
	var date, meal string
	var week bool

	cmd := &cobra.Command{
		Use:   "hours [FACILITY]",
		Short: "Show opening hours and current status",
		Long:  "Without arguments lists the facilities. With --week prints the schedule view; FACILITY may be \"all\".",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := app.load(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			now := app.Now()

			if len(args) == 0 {
				printPayload(out, engine.FacilityPicker(), false)
				return nil
			}

			target := engine.FacilityFilter(args[0])
			if target != services.FilterAll {
				if _, ok := engine.Facility(target); !ok {
					return fmt.Errorf("unknown facility %q", args[0])
				}
			}
			if week || target == services.FilterAll {
				printPayload(out, engine.ScheduleView(engine.ParseDate(date, now), services.ParseMeal(meal), target, now), false)
				return nil
			}
			printPayload(out, engine.FacilityInfo(target, now), false)
			return nil
		},
	}
	cmd.Flags().BoolVar(&week, "week", false, "print the schedule view instead of the info card")
	cmd.Flags().StringVar(&date, "date", "", "menu date the schedule view links back to")
	cmd.Flags().StringVar(&meal, "meal", "", "menu meal the schedule view links back to")
	_ = cmd.RegisterFlagCompletionFunc("meal", completeMeals)

	return cmd
}

func newActionCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "action TOKEN",
		Short: "Replay a navigation token as if its button were pressed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args[0]) > navigation.MaxTokenBytes {
				return fmt.Errorf("token longer than %d bytes", navigation.MaxTokenBytes)
			}
			if _, err := app.load(cmd.Context()); err != nil {
				return err
			}

			payload, ok := app.navigator.Handle(args[0], app.Now())
			if !ok {
				return fmt.Errorf("token %q does not decode", args[0])
			}
			printPayload(cmd.OutOrStdout(), payload, true)
			return nil
		},
	}
}

func completeMeals(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	names := make([]string, 0, len(entities.Meals))
	for _, m := range entities.Meals {
		names = append(names, string(m))
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}
