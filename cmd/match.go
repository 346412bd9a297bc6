package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/tindralencia/barrio-match/internal/api"
	"github.com/tindralencia/barrio-match/internal/demand"
	"github.com/tindralencia/barrio-match/internal/matcher"
)

var matchFlags struct {
	minSecurity int
	price       string
	transit     bool
	showTransit bool
	schools     []string
	playArea    bool
	intent      string
	email       string
	firstName   string
	lastName    string
	format      string
}

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Run one neighborhood match",
	Long:  "Filters neighborhoods by the given criteria, prints the matches with their nearby points of interest and records the demand.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		req, err := buildMatchRequest()
		if err != nil {
			return err
		}
		if err := req.Validate(); err != nil {
			return err
		}

		env, err := initMatchEnv(ctx, "match")
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Service.Match(ctx, req)
		if err != nil {
			return eris.Wrap(err, "match")
		}

		return writeMatch(os.Stdout, res, req.Intent, matchFlags.format)
	},
}

func init() {
	f := matchCmd.Flags()
	f.IntVar(&matchFlags.minSecurity, "min-security", 0, "minimum security score (0-3)")
	f.StringVar(&matchFlags.price, "price", "any", "price tier (any, 1, 2, 3)")
	f.BoolVar(&matchFlags.transit, "require-transit", false, "keep only neighborhoods with a metro stop")
	f.BoolVar(&matchFlags.showTransit, "show-transit", false, "list metro stops in the matched neighborhoods")
	f.StringSliceVar(&matchFlags.schools, "school", nil, "required school regime (public, subsidized, private); repeatable")
	f.BoolVar(&matchFlags.playArea, "play-area", false, "list play areas in the matched neighborhoods")
	f.StringVar(&matchFlags.intent, "intent", "rent", "buy or rent")
	f.StringVar(&matchFlags.email, "email", "", "requester email (required unless recorder.driver is none)")
	f.StringVar(&matchFlags.firstName, "first-name", "", "requester first name")
	f.StringVar(&matchFlags.lastName, "last-name", "", "requester last name")
	f.StringVar(&matchFlags.format, "format", "table", "output format (table, json, geojson)")
	rootCmd.AddCommand(matchCmd)
}

// buildMatchRequest turns the command flags into a FilterRequest.
func buildMatchRequest() (matcher.FilterRequest, error) {
	price, err := matcher.ParsePriceCategory(matchFlags.price)
	if err != nil {
		return matcher.FilterRequest{}, err
	}
	intent, err := demand.ParseIntent(matchFlags.intent)
	if err != nil {
		return matcher.FilterRequest{}, err
	}
	return matcher.FilterRequest{
		MinSecurity:     matchFlags.minSecurity,
		Price:           price,
		RequireTransit:  matchFlags.transit,
		ShowTransit:     matchFlags.showTransit,
		SchoolRegimes:   matchFlags.schools,
		RequirePlayArea: matchFlags.playArea,
		Intent:          intent,
		Requester: demand.Requester{
			Email:     matchFlags.email,
			FirstName: matchFlags.firstName,
			LastName:  matchFlags.lastName,
		},
	}, nil
}

func writeMatch(out io.Writer, res *matcher.MatchResult, intent demand.Intent, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(api.NewMatchResponse(res, intent))
	case "geojson":
		return json.NewEncoder(out).Encode(api.FeatureCollection(res, intent))
	case "table", "":
		formatMatchTable(out, res, intent)
		return nil
	}
	return eris.Errorf("unknown format %q", format)
}

// formatMatchTable writes a human-readable summary of res to out.
func formatMatchTable(out io.Writer, res *matcher.MatchResult, intent demand.Intent) {
	if len(res.Neighborhoods) == 0 {
		_, _ = fmt.Fprintln(out, "No neighborhood matches these criteria.")
	} else {
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "NEIGHBORHOOD\tSECURITY\tPRICE")
		_, _ = fmt.Fprintln(w, "------------\t--------\t-----")
		for _, n := range res.Neighborhoods {
			price := "-"
			if n.PriceCategory > 0 {
				price = matcher.PriceCategory(n.PriceCategory).Label(intent)
			}
			_, _ = fmt.Fprintf(w, "%s\t%d\t%s\n", n.Name, n.Security, price)
		}
		_ = w.Flush()
	}

	view := api.NewMatchResponse(res, intent)
	printPoints(out, "Metro stops", view.TransitStops, false)
	printPoints(out, "Schools", view.Schools, true)
	printPoints(out, "Play areas", view.PlayAreas, false)

	for _, warn := range res.Warnings {
		_, _ = fmt.Fprintf(out, "warning: %s %s %s\n", warn.Kind, warn.Dataset, warn.Message)
	}
}

func printPoints(out io.Writer, title string, points []api.PointView, withRegime bool) {
	if len(points) == 0 {
		return
	}
	_, _ = fmt.Fprintf(out, "\n%s:\n", title)
	for _, p := range points {
		line := "  " + p.Name
		if withRegime && p.Regime != "" {
			line += " (" + p.Regime + ")"
		}
		if p.Phone != "" {
			line += " " + p.Phone
		}
		_, _ = fmt.Fprintln(out, strings.TrimRight(line, " "))
	}
}
