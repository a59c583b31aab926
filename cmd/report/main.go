package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/Armpjsf/wms-360-pro-sub001/internal/api/handlers"
	"github.com/Armpjsf/wms-360-pro-sub001/internal/app"
	"github.com/Armpjsf/wms-360-pro-sub001/internal/config"
	"github.com/Armpjsf/wms-360-pro-sub001/internal/service"
	"github.com/Armpjsf/wms-360-pro-sub001/internal/storage"
	"github.com/Armpjsf/wms-360-pro-sub001/pkg/logger"
)

type runner struct {
	cfg   *config.Config
	svc   *service.IntelligenceService
	store storage.ObjectStorage
}

func main() {
	_ = godotenv.Load()

	if err := newApp().Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("report failed")
	}
}

func newApp() *cli.App {
	r := &runner{}

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:  "workbook",
			Usage: "Read a local XLSX workbook instead of the configured source",
		},
		&cli.StringFlag{
			Name:    "source",
			Usage:   "Snapshot source: sheets, drive, object or file",
			EnvVars: []string{"SOURCE_KIND"},
		},
		&cli.StringFlag{
			Name:  "upload",
			Usage: "Also upload the JSON report to object storage under this key (\"auto\" picks one)",
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "warn",
			EnvVars: []string{"LOG_LEVEL"},
		},
	}
	for _, name := range handlers.OverrideKeys {
		flags = append(flags, &cli.StringFlag{
			Name:  flagName(name),
			Usage: "Override " + name,
		})
	}

	return &cli.App{
		Name:   "report",
		Usage:  "Render inventory intelligence reports as JSON",
		Flags:  flags,
		Before: r.setup,
		Commands: []*cli.Command{
			{
				Name:  "reorder",
				Usage: "Reorder suggestions ranked by confidence",
				Action: r.render("reorder", func(ctx context.Context, req service.Request) (interface{}, error) {
					return r.svc.Reorder(ctx, req)
				}),
			},
			{
				Name:  "allocate",
				Usage: "Preview which batches would ship for a quantity",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "sku", Required: true},
					&cli.IntFlag{Name: "qty", Required: true},
				},
				Action: func(c *cli.Context) error {
					return r.render("allocate", func(ctx context.Context, req service.Request) (interface{}, error) {
						return r.svc.Allocation(ctx, req, c.String("sku"), c.Int("qty"))
					})(c)
				},
			},
			{
				Name:  "aging",
				Usage: "Remaining batch layers and sales recency per product",
				Action: r.render("aging", func(ctx context.Context, req service.Request) (interface{}, error) {
					return r.svc.Aging(ctx, req)
				}),
			},
			{
				Name:  "slotting",
				Usage: "ABC/D velocity classes and placement advice",
				Action: r.render("slotting", func(ctx context.Context, req service.Request) (interface{}, error) {
					return r.svc.Slotting(ctx, req)
				}),
			},
			{
				Name:  "anomalies",
				Usage: "Data-quality findings ordered by severity",
				Action: r.render("anomalies", func(ctx context.Context, req service.Request) (interface{}, error) {
					return r.svc.Anomalies(ctx, req)
				}),
			},
			{
				Name:  "dashboard",
				Usage: "Every report in one document",
				Action: r.render("dashboard", func(ctx context.Context, req service.Request) (interface{}, error) {
					return r.svc.Dashboard(ctx, req)
				}),
			},
		},
	}
}

func (r *runner) setup(c *cli.Context) error {
	logger.SetLevel(c.String("log-level"))

	r.cfg = config.Load()
	if kind := strings.TrimSpace(c.String("source")); kind != "" {
		r.cfg.Source.Kind = strings.ToLower(kind)
	}
	if path := strings.TrimSpace(c.String("workbook")); path != "" {
		r.cfg.Source.Kind = app.SourceFile
		r.cfg.Source.WorkbookPath = path
	}
	// One-shot runs gain nothing from holding the snapshot.
	r.cfg.Source.SnapshotTTL = 0

	components, err := app.New(c.Context, r.cfg)
	if err != nil {
		return err
	}
	r.svc, r.store = components.Service, components.Store
	return nil
}

func (r *runner) render(name string, build func(ctx context.Context, req service.Request) (interface{}, error)) cli.ActionFunc {
	return func(c *cli.Context) error {
		req, err := handlers.ParseOverrides(func(key string) string {
			return c.String(flagName(key))
		})
		if err != nil {
			return err
		}

		report, err := build(c.Context, req)
		if err != nil {
			return err
		}

		payload, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("encode %s report: %w", name, err)
		}
		if _, err := fmt.Fprintln(c.App.Writer, string(payload)); err != nil {
			return err
		}

		if key := strings.TrimSpace(c.String("upload")); key != "" {
			return r.upload(c.Context, name, key, report, payload)
		}
		return nil
	}
}

func (r *runner) upload(ctx context.Context, name, key string, report interface{}, payload []byte) error {
	if r.store == nil {
		return fmt.Errorf("--upload needs STORAGE_ENDPOINT and STORAGE_BUCKET")
	}
	if key == "auto" {
		key = autoKey(r.cfg.Storage.ReportPrefix, name, report)
	}
	if err := r.store.UploadObject(ctx, key, payload, "application/json"); err != nil {
		return err
	}
	logger.Log.Info().Str("key", key).Msg("report uploaded")
	return nil
}

// autoKey names an uploaded report after the report and the snapshot it was built from.
func autoKey(prefix, name string, report interface{}) string {
	snapshot := "unknown"
	if m, ok := report.(interface{ Meta() service.ReportMeta }); ok && m.Meta().SnapshotID != "" {
		snapshot = m.Meta().SnapshotID
	}
	return fmt.Sprintf("%s%s-%s.json", prefix, name, snapshot)
}

func flagName(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}
