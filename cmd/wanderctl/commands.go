package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jengzang/wander-backend-go/internal/middleware"
	"github.com/jengzang/wander-backend-go/internal/models"
	"github.com/jengzang/wander-backend-go/internal/region"
	"github.com/jengzang/wander-backend-go/internal/spatial"
)

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func statsCmd() *cobra.Command {
	var (
		user  string
		query models.StatsQuery
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print a user's stats snapshot as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			snap, err := a.StatsSvc.GetSnapshot(cmd.Context(), user, query)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), snap)
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user id")
	cmd.Flags().IntVar(&query.Month, "month", 0, "month 1-12 (default: latest with data)")
	cmd.Flags().IntVar(&query.Year, "year", 0, "year (required with --month)")
	cmd.Flags().StringVar(&query.Region, "region", "", "region name from the catalog")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func ingestCmd() *cobra.Command {
	var user, file string
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Replay a JSON array of fixes through the ingestion pipeline",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var in io.Reader = cmd.InOrStdin()
			if file != "" && file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return fmt.Errorf("failed to open %s: %w", file, err)
				}
				defer f.Close()
				in = f
			}

			var reqs []models.FixRequest
			if err := json.NewDecoder(in).Decode(&reqs); err != nil {
				return fmt.Errorf("failed to decode fixes: %w", err)
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			var added, duplicate, dropped, skipped int
			now := time.Now().UTC()
			for _, req := range reqs {
				if req.Latitude == nil || req.Longitude == nil || !spatial.ValidCoordinate(*req.Latitude, *req.Longitude) {
					skipped++
					continue
				}
				res := a.Ingest.HandleFix(cmd.Context(), user, req.Fix(now))
				switch {
				case res.Dropped:
					dropped++
				case res.Added:
					added++
				default:
					duplicate++
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added=%d duplicate=%d dropped=%d skipped=%d\n", added, duplicate, dropped, skipped)
			if dropped > 0 {
				return fmt.Errorf("%d fixes dropped", dropped)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user id")
	cmd.Flags().StringVar(&file, "file", "-", "JSON file of fixes, - for stdin")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func rederiveCmd() *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "rederive",
		Short: "Collapse cells within the dedup radius of an earlier cell",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.CellSvc.Rederive(cmd.Context(), user)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "before=%d after=%d\n", res.Before, res.After)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user id")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func regionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "regions",
		Short: "List the region catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			catalog, err := region.LoadCatalog(cfg.RegionCatalogPath)
			if err != nil {
				return err
			}
			for _, r := range catalog.All() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-24s %12.0f\n", r.Name, r.AreaSquareMiles)
			}
			return nil
		},
	}
}

func tokenCmd() *cobra.Command {
	var (
		user string
		ttl  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token signed with the configured secret",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			token, err := middleware.IssueToken(cfg.JWTSecret, user, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user id")
	cmd.Flags().DurationVar(&ttl, "ttl", 30*24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
