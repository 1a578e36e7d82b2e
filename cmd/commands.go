package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"ticket-tracker/internal/handlers"
	"ticket-tracker/internal/services"
	"ticket-tracker/internal/services/lifecycle"
	"ticket-tracker/internal/services/ticketsource"
	"ticket-tracker/models"
	"ticket-tracker/security"
	"ticket-tracker/utils"

	"github.com/spf13/cobra"
)

// ManualDateLayout is the date format accepted by update-event-manual.
const ManualDateLayout = ticketsource.StubHubDateLayout

func registerCommands(root *cobra.Command, rt *runtime) {
	root.AddCommand(
		newEventCmd(rt),
		newEventSearchCmd(rt),
		newListingsCmd(rt),
		newTrackEventCmd(rt),
		newUpdateEventCmd(rt),
		newUpdateEventManualCmd(rt),
		newScrapeCmd(rt),
		newDumpEventsCmd(rt),
		newDumpPriceHistoryCmd(rt),
		newPublishCmd(rt),
		newHandleCmd(rt),
		newRunsCmd(rt),
		newGenTriggerTokenCmd(),
	)
}

// withRuntime initialises the runtime before running fn.
func withRuntime(rt *runtime, fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := rt.init(); err != nil {
			return err
		}
		return fn(cmd, args)
	}
}

func parseEventID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid event id %q", raw)
	}
	return id, nil
}

func parseEventIDs(raw []string) ([]int64, error) {
	ids := make([]int64, 0, len(raw))
	for _, r := range raw {
		id, err := parseEventID(r)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func newEventCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "event <id>",
		Short: "Retrieve event information from the ticket source",
		Args:  cobra.ExactArgs(1),
		RunE: withRuntime(rt, func(cmd *cobra.Command, args []string) error {
			id, err := parseEventID(args[0])
			if err != nil {
				return err
			}
			source := rt.tracker.Source()
			fmt.Fprintf(cmd.OutOrStdout(), "Getting event info for event %d from %s\n", id, source.Provider())
			event, err := source.FetchEvent(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), event.String())
			return nil
		}),
	}
}

func newEventSearchCmd(rt *runtime) *cobra.Command {
	var name, city, country string
	cmd := &cobra.Command{
		Use:   "event-search",
		Short: "Search for an event on the ticket source",
		Long: `Search for an event on the ticket source.

StubHub search tips:
  AND terms:       --name 'San Francisco Giants'
  Specific phrase: --name '"San Francisco" Giants'
  Exclude terms:   --name '"San Francisco" -Giants'
  Union terms:     --city '"San Francisco"|"New York"|Seattle'`,
		Args: cobra.NoArgs,
		RunE: withRuntime(rt, func(cmd *cobra.Command, args []string) error {
			report, err := rt.tracker.Source().SearchEvents(cmd.Context(), name, city, country)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), report)
			return nil
		}),
	}
	cmd.Flags().StringVar(&name, "name", "", "name of the event")
	cmd.Flags().StringVar(&city, "city", "Boston", "city of the event")
	cmd.Flags().StringVar(&country, "country", "US", "country of the event")
	return cmd
}

func newListingsCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "listings <id>",
		Short: "Retrieve listing information for an event, by zone",
		Args:  cobra.ExactArgs(1),
		RunE: withRuntime(rt, func(cmd *cobra.Command, args []string) error {
			id, err := parseEventID(args[0])
			if err != nil {
				return err
			}
			zones, err := rt.tracker.ListingsByZone(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printListings(cmd.OutOrStdout(), zones)
		}),
	}
}

func printListings(w io.Writer, zones []*models.ZoneListings) error {
	sorted := make([]*models.ZoneListings, len(zones))
	copy(sorted, zones)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ZoneName < sorted[j].ZoneName })

	for _, zl := range sorted {
		listings, err := json.Marshal(zl.Listings)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Zone: %s, zone ID: %d, total listings: %d, total tickets: %d. Listings: \n%s\n",
			zl.ZoneName, zl.ZoneID, zl.TotalListings, zl.TotalTickets, listings)
	}
	return nil
}

func newTrackEventCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "track-event <id>",
		Short: "Start tracking an event and load its metadata",
		Args:  cobra.ExactArgs(1),
		RunE: withRuntime(rt, func(cmd *cobra.Command, args []string) error {
			id, err := parseEventID(args[0])
			if err != nil {
				return err
			}
			event, err := rt.tracker.Track(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), event.String())
			return nil
		}),
	}
}

func newUpdateEventCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "update-event <id>",
		Short: "Refresh a tracked event's metadata from the ticket source",
		Args:  cobra.ExactArgs(1),
		RunE: withRuntime(rt, func(cmd *cobra.Command, args []string) error {
			id, err := parseEventID(args[0])
			if err != nil {
				return err
			}
			event, err := rt.tracker.UpdateEvent(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), event.String())
			return nil
		}),
	}
}

// manualFlags are the update-event-manual flags. Unset flags keep the
// stored value.
type manualFlags struct {
	performer    string
	name         string
	venueCity    string
	venueName    string
	date         string
	eventStatus  string
	scrapeStatus string
}

// buildManualUpdate merges the changed flags over the current event. A new
// performer without a new name renames the event "<performer> Tickets".
func buildManualUpdate(current *models.Event, f manualFlags, changed func(string) bool) (lifecycle.ManualUpdate, error) {
	u := lifecycle.ManualUpdate{
		EventID:          current.ID,
		PrimaryPerformer: current.PrimaryPerformer,
		Name:             current.Name,
		VenueCity:        current.VenueCity,
		VenueName:        current.VenueName,
		DateTime:         current.DateTime,
		EventStatus:      current.EventStatus,
		ScrapeStatus:     current.ScrapeStatus,
	}

	if changed("performer") {
		u.PrimaryPerformer = f.performer
		if !changed("name") && f.performer != "" {
			u.Name = f.performer + " Tickets"
		}
	}
	if changed("name") {
		u.Name = f.name
	}
	if changed("venue-city") {
		u.VenueCity = f.venueCity
	}
	if changed("venue-name") {
		u.VenueName = f.venueName
	}
	if changed("date") {
		dt, err := time.Parse(ManualDateLayout, f.date)
		if err != nil {
			return u, fmt.Errorf("date %q must look like %q: %w", f.date, ManualDateLayout, err)
		}
		dt = dt.UTC()
		u.DateTime = &dt
	}
	if changed("event-status") {
		if f.eventStatus != "Active" && f.eventStatus != "Inactive" {
			return u, fmt.Errorf("event status must be Active or Inactive, got %q", f.eventStatus)
		}
		u.EventStatus = f.eventStatus
	}
	if changed("scrape-status") {
		u.ScrapeStatus = models.ScrapeStatus(f.scrapeStatus)
	}

	if !u.ScrapeStatus.Valid() {
		return u, fmt.Errorf("scrape status must be Active or Inactive, got %q", u.ScrapeStatus)
	}
	return u, nil
}

func newUpdateEventManualCmd(rt *runtime) *cobra.Command {
	var f manualFlags
	cmd := &cobra.Command{
		Use:   "update-event-manual <id>",
		Short: "Overwrite a tracked event's metadata",
		Args:  cobra.ExactArgs(1),
		RunE: withRuntime(rt, func(cmd *cobra.Command, args []string) error {
			id, err := parseEventID(args[0])
			if err != nil {
				return err
			}
			current, err := rt.tracker.GetEvent(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("event %d is not tracked: %w", id, err)
			}

			update, err := buildManualUpdate(current, f, cmd.Flags().Changed)
			if err != nil {
				return err
			}
			event, err := rt.tracker.UpdateEventManual(cmd.Context(), update)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Event updated\n%s\n", event.String())
			return nil
		}),
	}
	cmd.Flags().StringVar(&f.performer, "performer", "", "primary performer")
	cmd.Flags().StringVar(&f.name, "name", "", "event name")
	cmd.Flags().StringVar(&f.venueCity, "venue-city", "", "venue city")
	cmd.Flags().StringVar(&f.venueName, "venue-name", "", "venue name")
	cmd.Flags().StringVar(&f.date, "date", "", "date time, e.g. 2019-07-21T19:00:00-0400 (stored as UTC)")
	cmd.Flags().StringVar(&f.eventStatus, "event-status", "", "Active or Inactive")
	cmd.Flags().StringVar(&f.scrapeStatus, "scrape-status", "", "Active or Inactive")
	return cmd
}

func newScrapeCmd(rt *runtime) *cobra.Command {
	var notifyNew bool
	cmd := &cobra.Command{
		Use:   "scrape [id]",
		Short: "Scrape zone prices of one or all tracked events",
		Args:  cobra.MaximumNArgs(1),
		RunE: withRuntime(rt, func(cmd *cobra.Command, args []string) error {
			target := services.AllEvents()
			if len(args) == 1 {
				id, err := parseEventID(args[0])
				if err != nil {
					return err
				}
				target = services.SingleEvent(id)
			}

			result, err := rt.tracker.Scrape(cmd.Context(), target)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Scraped events: %v\n", result.Scraped)

			if !notifyNew {
				return nil
			}
			if !rt.cfg.NotificationsEnabled() {
				return errors.New("--notify needs PUBNUB_PUBLISH_KEY and NOTIFY_TOPIC")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Publishing scraped events to topic %s\n", rt.cfg.NotifyTopic)
			return rt.tracker.NotifyNewPriceHistory(cmd.Context(), rt.cfg.NotifyTopic, result.Scraped)
		}),
	}
	cmd.Flags().BoolVar(&notifyNew, "notify", false, "publish the scraped event ids to the notification topic")
	return cmd
}

func newDumpEventsCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "dump-events",
		Short: "Print every tracked event ordered by date",
		Args:  cobra.NoArgs,
		RunE: withRuntime(rt, func(cmd *cobra.Command, args []string) error {
			events, err := rt.tracker.Events(cmd.Context())
			if err != nil {
				return err
			}
			handlers.SortByDate(events)
			for _, event := range events {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n", event.String())
			}
			return nil
		}),
	}
}

func newDumpPriceHistoryCmd(rt *runtime) *cobra.Command {
	var format string
	var storeChart bool
	cmd := &cobra.Command{
		Use:   "dump-price-history <id>...",
		Short: "Print the price history of events",
		Args:  cobra.MinimumNArgs(1),
		RunE: withRuntime(rt, func(cmd *cobra.Command, args []string) error {
			if storeChart && format != services.FormatJSON {
				return errors.New("--store can only be used with --format json")
			}
			ids, err := parseEventIDs(args)
			if err != nil {
				return err
			}
			for _, id := range ids {
				out, err := rt.tracker.PriceHistoryFormatted(cmd.Context(), id, format, storeChart)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), out)
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&format, "format", services.FormatText, "text or json")
	cmd.Flags().BoolVar(&storeChart, "store", false, "save the chart to the artifact store (json only)")
	return cmd
}

func newPublishCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "publish <id>...",
		Short: "Publish event ids to trigger chart generation",
		Args:  cobra.MinimumNArgs(1),
		RunE: withRuntime(rt, func(cmd *cobra.Command, args []string) error {
			ids, err := parseEventIDs(args)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Publishing to topic %s\n", rt.cfg.NotifyTopic)
			return rt.tracker.NotifyNewPriceHistory(cmd.Context(), rt.cfg.NotifyTopic, ids)
		}),
	}
}

func newHandleCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "handle <json>",
		Short: "Run a trigger payload, e.g. '{\"action\":\"scrape\"}'",
		Args:  cobra.ExactArgs(1),
		RunE: withRuntime(rt, func(cmd *cobra.Command, args []string) error {
			return rt.trigger.HandlePayload(cmd.Context(), []byte(args[0]))
		}),
	}
}

func newRunsCmd(rt *runtime) *cobra.Command {
	var limit int64
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent scrape runs",
		Args:  cobra.NoArgs,
		RunE: withRuntime(rt, func(cmd *cobra.Command, args []string) error {
			if rt.runLog == nil {
				return errors.New("scrape run log is unavailable")
			}
			runs, err := rt.runLog.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			for _, run := range runs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s mode=%s event=%d started=%s finished=%s scraped=%d skipped=%d retired=%d failed=%d not_found=%d %s\n",
					run.ID, run.Mode, run.EventID, run.StartedAt.String(), run.FinishedAt.String(),
					run.Scraped, run.Skipped, run.Retired, run.Failed, run.NotFound, run.Error)
			}
			return nil
		}),
	}
	cmd.Flags().Int64Var(&limit, "limit", 20, "number of runs to show")
	return cmd
}

func newGenTriggerTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gen-trigger-token",
		Short: "Generate a trigger endpoint token and its TRIGGER_TOKEN_HASH",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := utils.GenerateToken(32)
			if err != nil {
				return err
			}
			hash, err := security.HashToken(token)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "token: %s\nTRIGGER_TOKEN_HASH=%s\n", token, strings.TrimSpace(hash))
			return nil
		},
	}
}
