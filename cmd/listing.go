package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tindralencia/barrio-match/internal/db"
	"github.com/tindralencia/barrio-match/internal/listing"
)

var (
	listingJSON bool

	listingNew          listing.Listing
	listingNewOperation string
	listingOperation    string
	listingNeighborhood string
	listingFilter       listing.Filter
)

var listingCmd = &cobra.Command{
	Use:   "listing",
	Short: "Manage properties offered for sale or rent",
	Long:  "Stores owner-submitted listings and estimates the gross rental yield per neighborhood from them. Run migrate first to create the listings table.",
}

var listingAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a property",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withListingStore(cmd.Context(), func(ctx context.Context, s listing.Store) error {
			l := listingNew
			l.Operation = listing.Operation(listingNewOperation)
			saved, err := s.Add(ctx, l)
			if err != nil {
				return eris.Wrap(err, "listing add")
			}
			zap.L().Info("listing stored",
				zap.Int64("id", saved.ID),
				zap.String("operation", string(saved.Operation)),
				zap.String("neighborhood", saved.Neighborhood),
			)
			return nil
		})
	},
}

var listingListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered properties, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		op, err := listing.ParseOperation(listingOperation)
		if err != nil {
			return err
		}
		return withListingStore(cmd.Context(), func(ctx context.Context, s listing.Store) error {
			items, err := s.List(ctx, op, listingNeighborhood)
			if err != nil {
				return eris.Wrap(err, "listing list")
			}
			if listingJSON {
				if items == nil {
					items = []listing.Listing{}
				}
				return writeIndentedJSON(os.Stdout, items)
			}
			formatListings(os.Stdout, items)
			return nil
		})
	},
}

var listingYieldCmd = &cobra.Command{
	Use:   "yield",
	Short: "Rank neighborhoods by gross rental yield for comparable properties",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withListingStore(cmd.Context(), func(ctx context.Context, s listing.Store) error {
			rows, err := listing.ComputeYield(ctx, s, listingFilter)
			if err != nil {
				return eris.Wrap(err, "listing yield")
			}
			if listingJSON {
				if rows == nil {
					rows = []listing.YieldRow{}
				}
				return writeIndentedJSON(os.Stdout, rows)
			}
			if len(rows) == 0 {
				zap.L().Info("no neighborhood has both rent and sale listings for this filter")
				return nil
			}
			formatYield(os.Stdout, rows)
			return nil
		})
	},
}

func init() {
	af := listingAddCmd.Flags()
	af.StringVar(&listingNewOperation, "operation", "", "sale or rent (venta/alquiler accepted)")
	af.StringVar(&listingNew.Neighborhood, "neighborhood", "", "neighborhood name")
	af.StringVar(&listingNew.Address, "address", "", "street address")
	af.StringVar(&listingNew.StreetNumber, "number", "", "street number")
	af.Float64Var(&listingNew.AreaM2, "area", 0, "floor area in square meters")
	af.IntVar(&listingNew.Rooms, "rooms", 0, "number of rooms")
	af.IntVar(&listingNew.Bathrooms, "bathrooms", 0, "number of bathrooms")
	af.StringVar(&listingNew.Extras, "extras", "", "other rooms and features")
	af.BoolVar(&listingNew.Elevator, "elevator", false, "the building has an elevator")
	af.BoolVar(&listingNew.Parking, "parking", false, "the building has parking")
	af.Float64Var(&listingNew.Price, "price", 0, "sale price or monthly rent in euros")
	_ = listingAddCmd.MarkFlagRequired("operation")
	_ = listingAddCmd.MarkFlagRequired("neighborhood")
	_ = listingAddCmd.MarkFlagRequired("price")

	lf := listingListCmd.Flags()
	lf.StringVar(&listingOperation, "operation", "rent", "sale or rent")
	lf.StringVar(&listingNeighborhood, "neighborhood", "", "only this neighborhood")
	lf.BoolVar(&listingJSON, "json", false, "print JSON instead of a table")

	yf := listingYieldCmd.Flags()
	yf.IntVar(&listingFilter.Rooms, "rooms", 3, "number of rooms")
	yf.IntVar(&listingFilter.Bathrooms, "bathrooms", 1, "number of bathrooms")
	yf.BoolVar(&listingFilter.Elevator, "elevator", true, "with elevator")
	yf.BoolVar(&listingFilter.Parking, "parking", true, "with parking")
	yf.BoolVar(&listingJSON, "json", false, "print JSON instead of a table")

	listingCmd.AddCommand(listingAddCmd, listingListCmd, listingYieldCmd)
	rootCmd.AddCommand(listingCmd)
}

// withListingStore opens the store pool for one listing command.
func withListingStore(ctx context.Context, fn func(context.Context, listing.Store) error) error {
	if err := cfg.Validate("listing"); err != nil {
		return err
	}
	pool, err := db.NewPool(ctx, cfg.Store.DatabaseURL, cfg.Store.Pool)
	if err != nil {
		return eris.Wrap(err, "connect store")
	}
	defer pool.Close()
	return fn(ctx, listing.NewPostgresStore(pool))
}

func writeIndentedJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatListings writes a tabular representation of listings to out.
func formatListings(out io.Writer, items []listing.Listing) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNEIGHBORHOOD\tADDRESS\tM2\tROOMS\tBATHS\tELEVATOR\tPARKING\tPRICE")
	_, _ = fmt.Fprintln(w, "--\t------------\t-------\t--\t-----\t-----\t--------\t-------\t-----")
	for _, l := range items {
		addr := l.Address
		if l.StreetNumber != "" {
			addr += " " + l.StreetNumber
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%.0f\t%d\t%d\t%s\t%s\t%.0f\n",
			l.ID, l.Neighborhood, addr, l.AreaM2, l.Rooms, l.Bathrooms,
			yesNo(l.Elevator), yesNo(l.Parking), l.Price,
		)
	}
	_ = w.Flush()
}

// formatYield writes the yield ranking to out.
func formatYield(out io.Writer, rows []listing.YieldRow) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NEIGHBORHOOD\tMONTHLY RENT\tSALE PRICE\tANNUAL RENT\tYIELD")
	_, _ = fmt.Fprintln(w, "------------\t------------\t----------\t-----------\t-----")
	for _, r := range rows {
		_, _ = fmt.Fprintf(w, "%s\t%.0f\t%.0f\t%.0f\t%.1f%%\n",
			r.Neighborhood, r.MonthlyRent, r.SalePrice, r.AnnualRent, r.YieldPct)
	}
	_ = w.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
