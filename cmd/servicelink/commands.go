package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/MohanGuptaKoduru/ServiceLink/booking"
	"github.com/MohanGuptaKoduru/ServiceLink/core"
	"github.com/MohanGuptaKoduru/ServiceLink/geo"
	"github.com/MohanGuptaKoduru/ServiceLink/highlight"
	"github.com/MohanGuptaKoduru/ServiceLink/ingestion"
	"github.com/MohanGuptaKoduru/ServiceLink/reembed"
	"github.com/MohanGuptaKoduru/ServiceLink/search"
	"github.com/MohanGuptaKoduru/ServiceLink/seed"
)

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Rank technicians against a problem description",
		ArgsUsage: "<query...>",
		Action:    searchAction,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Show at most this many technicians (0 for all)",
				Value: 5,
			},
			&cli.BoolFlag{
				Name:  "available",
				Usage: "Only show technicians accepting bookings",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Give up after this long",
				Value: 30 * time.Second,
			},
		},
	}
}

func searchAction(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c, c.Duration("timeout"))
	defer cancel()

	m, err := openMarketplace(ctx, cfg)
	if err != nil {
		return err
	}
	defer m.Close()

	searcher, err := m.NewSearcher()
	if err != nil {
		return fmt.Errorf("failed to create searcher: %w", err)
	}
	defer searcher.Close()

	resp, err := searcher.Search(ctx, query)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	results := resp.Results
	if c.Bool("available") {
		results = search.FilterAvailable(results)
	}
	results = search.Limit(results, c.Int("limit"))

	out := c.App.Writer
	if resp.QueryFallback {
		fmt.Fprintln(c.App.ErrWriter, "warning: embedding provider unavailable, ranking is arbitrary")
	}
	fmt.Fprintf(out, "Found %d technicians\n", len(results))
	for i, r := range results {
		t := r.Technician
		fields := highlight.Terminal.Fields(t, query)
		fmt.Fprintf(out, "%d: %s (%s) [%0.3f] rating %.1f (%d)\n", i+1, t.Name, fields.Service, r.Score, t.Rating, t.ReviewCount)
		if len(fields.Matches) > 0 {
			fmt.Fprintf(out, "   matches: %s\n", strings.Join(fields.Matches, ", "))
		}
	}
	return nil
}

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:   "seed",
		Usage:  "Add technicians and embed their profiles",
		Action: seedAction,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "YAML file of technicians (defaults to the built-in sample set)",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent embedding workers",
			},
		},
	}
}

func seedAction(c *cli.Context) error {
	technicians := seed.SampleTechnicians()
	if path := c.String("file"); path != "" {
		var err error
		technicians, err = seed.LoadFile(path)
		if err != nil {
			return fmt.Errorf("failed to load technicians: %w", err)
		}
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	m, err := openMarketplace(c.Context, cfg)
	if err != nil {
		return err
	}
	defer m.Close()

	var opts []ingestion.Option
	if n := c.Int("workers"); n > 0 {
		opts = append(opts, ingestion.WithPoolSize(n))
	}
	added, err := m.Seed(c.Context, technicians, opts...)
	if err != nil {
		return fmt.Errorf("seeding failed: %w", err)
	}

	fmt.Fprintf(c.App.Writer, "Added %d of %d technicians\n", len(added), len(technicians))
	for _, t := range added {
		fmt.Fprintf(c.App.Writer, "  %s %s (%s)\n", t.ID, t.Name, t.Service)
	}
	return nil
}

func reembedCommand() *cli.Command {
	return &cli.Command{
		Name:   "reembed",
		Usage:  "Recompute technician embeddings that are missing or stale",
		Action: reembedAction,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Re-embed every technician, even those up to date",
			},
			&cli.IntFlag{
				Name:  "batch-size",
				Usage: "Number of technicians to embed per request",
				Value: reembed.DefaultBatchSize,
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Number of batches embedded concurrently",
				Value: 1,
			},
			&cli.IntFlag{
				Name:  "report-interval",
				Usage: "Report progress every N technicians",
				Value: 25,
			},
			&cli.IntFlag{
				Name:  "max-retries",
				Usage: "Maximum retry attempts for failed operations",
				Value: 3,
			},
			&cli.DurationFlag{
				Name:  "retry-delay",
				Usage: "Base delay for exponential backoff",
				Value: 1 * time.Second,
			},
		},
	}
}

func reembedAction(c *cli.Context) error {
	reembedConfig := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
		Workers:        c.Int("workers"),
		Force:          c.Bool("force"),
	}

	if reembedConfig.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if reembedConfig.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if reembedConfig.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}
	if reembedConfig.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	m, err := openMarketplace(c.Context, cfg)
	if err != nil {
		return err
	}
	defer m.Close()

	fmt.Fprintf(c.App.ErrWriter, "Database: %s\n", cfg.Storage.Path)
	fmt.Fprintf(c.App.ErrWriter, "Embedding model: %s\n", m.ModelID())
	fmt.Fprintln(c.App.ErrWriter)

	report, err := m.NewReembedder(reembedConfig, c.App.ErrWriter).Run(c.Context)
	if err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "embedded=%d skipped=%d failed=%d total=%d\n",
		report.Embedded, report.Skipped, report.Failed, report.Total)
	return nil
}

func bookingsCommand() *cli.Command {
	idArg := func(c *cli.Context) (string, error) {
		if c.NArg() != 1 {
			return "", errors.New("expected exactly one booking ID")
		}
		return c.Args().First(), nil
	}

	return &cli.Command{
		Name:  "bookings",
		Usage: "Create and manage bookings",
		Subcommands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Book an available technician",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "technician", Usage: "Technician ID", Required: true},
					&cli.StringFlag{Name: "customer", Usage: "Customer ID", Required: true},
					&cli.StringFlag{Name: "name", Usage: "Customer name"},
					&cli.StringFlag{Name: "phone", Usage: "Customer phone"},
					&cli.StringFlag{Name: "address", Usage: "Service address"},
				},
				Action: withBookings(func(c *cli.Context, svc *booking.Service) error {
					b, err := svc.Book(c.Context, booking.Request{
						TechnicianID:    c.String("technician"),
						CustomerID:      c.String("customer"),
						CustomerName:    c.String("name"),
						CustomerPhone:   c.String("phone"),
						CustomerAddress: c.String("address"),
					})
					if err != nil {
						return err
					}
					printBooking(c, b)
					return nil
				}),
			},
			{
				Name:      "complete",
				Usage:     "Mark a pending booking as done",
				ArgsUsage: "<booking-id>",
				Action: withBookings(func(c *cli.Context, svc *booking.Service) error {
					id, err := idArg(c)
					if err != nil {
						return err
					}
					b, err := svc.Complete(c.Context, id)
					if err != nil {
						return err
					}
					printBooking(c, b)
					return nil
				}),
			},
			{
				Name:      "cancel",
				Usage:     "Cancel a pending booking",
				ArgsUsage: "<booking-id>",
				Action: withBookings(func(c *cli.Context, svc *booking.Service) error {
					id, err := idArg(c)
					if err != nil {
						return err
					}
					b, err := svc.Cancel(c.Context, id)
					if err != nil {
						return err
					}
					printBooking(c, b)
					return nil
				}),
			},
			{
				Name:      "rate",
				Usage:     "Rate a completed booking from 1 to 5 stars",
				ArgsUsage: "<booking-id>",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "stars", Usage: "Stars from 1 to 5", Required: true},
				},
				Action: withBookings(func(c *cli.Context, svc *booking.Service) error {
					id, err := idArg(c)
					if err != nil {
						return err
					}
					b, err := svc.Rate(c.Context, id, c.Int("stars"))
					if err != nil {
						return err
					}
					printBooking(c, b)
					return nil
				}),
			},
			{
				Name:  "list",
				Usage: "List a customer's or technician's bookings",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "customer", Usage: "Customer ID"},
					&cli.StringFlag{Name: "technician", Usage: "Technician ID"},
				},
				Action: withBookings(func(c *cli.Context, svc *booking.Service) error {
					var (
						list []*core.Booking
						err  error
					)
					switch {
					case c.String("customer") != "":
						list, err = svc.Customer(c.Context, c.String("customer"))
					case c.String("technician") != "":
						list, err = svc.Technician(c.Context, c.String("technician"))
					default:
						return errors.New("one of --customer or --technician is required")
					}
					if err != nil {
						return err
					}
					for _, b := range list {
						printBooking(c, b)
					}
					return nil
				}),
			},
		},
	}
}

func withBookings(fn func(*cli.Context, *booking.Service) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		m, err := openMarketplace(c.Context, cfg)
		if err != nil {
			return err
		}
		defer m.Close()

		svc, err := m.NewBookingService()
		if err != nil {
			return err
		}
		return fn(c, svc)
	}
}

func printBooking(c *cli.Context, b *core.Booking) {
	fmt.Fprintf(c.App.Writer, "%s %s technician=%s customer=%s service=%q", b.ID, b.Status, b.TechnicianID, b.CustomerID, b.Service)
	if b.Rating > 0 {
		fmt.Fprintf(c.App.Writer, " rating=%d", b.Rating)
	}
	fmt.Fprintln(c.App.Writer)
}

func routeCommand() *cli.Command {
	return &cli.Command{
		Name:  "route",
		Usage: "Look up the driving route between two addresses",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "from", Usage: "Start address", Required: true},
			&cli.StringFlag{Name: "to", Usage: "Destination address", Required: true},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			opts := []geo.Option{}
			if cfg.Maps.BaseURL != "" {
				opts = append(opts, geo.WithBaseURL(cfg.Maps.BaseURL))
			}
			client, err := geo.NewClient(cfg.MapsKey(), opts...)
			if err != nil {
				return fmt.Errorf("maps client: %w (set %s)", err, cfg.Maps.KeyEnv)
			}

			route, err := client.Route(c.Context, c.String("from"), c.String("to"))
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "%s -> %s: %.1f km, %s\n",
				route.From, route.To, float64(route.LengthMeters)/1000, route.TravelTime)
			return nil
		},
	}
}
