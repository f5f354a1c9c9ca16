package main

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dvalenciar/reorden-py/backend-go/internal/config"
	"github.com/dvalenciar/reorden-py/backend-go/internal/service"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func newInventoryFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "inventario",
		Usage:    "Path to the inventory file (csv or xlsx)",
		Required: true,
		EnvVars:  []string{"REORDEN_INVENTARIO"},
	}
}

func newForecastFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "pronostico",
		Usage:    "Path to the sales forecast file (csv or xlsx)",
		Required: true,
		EnvVars:  []string{"REORDEN_PRONOSTICO"},
	}
}

func newPurchaseFlag() *cli.StringSliceFlag {
	return &cli.StringSliceFlag{
		Name:  "compra",
		Usage: "Simulated purchase as bodega,producto,fecha,cantidad (repeatable)",
	}
}

func newFilterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "bodega",
			Usage: "Restrict output to these warehouses (repeatable)",
		},
		&cli.StringSliceFlag{
			Name:  "producto",
			Usage: "Restrict output to these products (repeatable)",
		},
	}
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	app := &cli.App{
		Name:  "reorden",
		Usage: "Run the inventory reorder projection offline",
		Commands: []*cli.Command{
			{
				Name:  "export",
				Usage: "Project inventory and write the multi-sheet xlsx artifact",
				Flags: []cli.Flag{
					newInventoryFlag(),
					newForecastFlag(),
					newPurchaseFlag(),
					&cli.StringFlag{
						Name:  "out",
						Usage: "Output path for the xlsx artifact",
						Value: service.ExportFilename,
					},
				},
				Action: runExport,
			},
			{
				Name:  "summary",
				Usage: "Project inventory and print the reorder summary as CSV",
				Flags: append([]cli.Flag{
					newInventoryFlag(),
					newForecastFlag(),
					newPurchaseFlag(),
				}, newFilterFlags()...),
				Action: runSummary,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// loadPlanner builds a session planner from the command's input files
// and replays any --compra purchases against it.
func loadPlanner(c *cli.Context) (*service.Planner, error) {
	cfg := config.Load()
	planner := service.NewPlanner(cfg.Policy, nil, nil)

	if _, err := planner.LoadDataset(c.Context, c.String("inventario"), c.String("pronostico")); err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}

	for _, raw := range c.StringSlice("compra") {
		req, err := parsePurchase(raw)
		if err != nil {
			return nil, err
		}
		if _, err := planner.RegisterPurchase(c.Context, req); err != nil {
			return nil, fmt.Errorf("failed to register purchase %q: %w", raw, err)
		}
	}
	return planner, nil
}

// parsePurchase parses "bodega,producto,fecha,cantidad".
func parsePurchase(raw string) (service.PurchaseRequest, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return service.PurchaseRequest{}, fmt.Errorf("invalid purchase %q: want bodega,producto,fecha,cantidad", raw)
	}
	orderDate, err := time.Parse("2006-01-02", strings.TrimSpace(parts[2]))
	if err != nil {
		return service.PurchaseRequest{}, fmt.Errorf("invalid purchase date in %q: %w", raw, err)
	}
	qty, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
	if err != nil {
		return service.PurchaseRequest{}, fmt.Errorf("invalid purchase quantity in %q: %w", raw, err)
	}
	return service.PurchaseRequest{
		Warehouse: strings.TrimSpace(parts[0]),
		Product:   strings.TrimSpace(parts[1]),
		OrderDate: orderDate,
		Quantity:  qty,
	}, nil
}

func runExport(c *cli.Context) error {
	planner, err := loadPlanner(c)
	if err != nil {
		return err
	}

	payload, err := planner.ExportWorkbook(c.Context)
	if err != nil {
		return fmt.Errorf("failed to build workbook: %w", err)
	}

	out := c.String("out")
	if err := os.WriteFile(out, payload, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}
	log.Printf("wrote %s (%d bytes)", out, len(payload))
	return nil
}

func runSummary(c *cli.Context) error {
	planner, err := loadPlanner(c)
	if err != nil {
		return err
	}

	filter := service.Filter{
		Warehouses: c.StringSlice("bodega"),
		Products:   c.StringSlice("producto"),
	}
	rows, err := planner.Summary(c.Context, filter)
	if err != nil {
		return err
	}

	w := csv.NewWriter(os.Stdout)
	if err := w.Write([]string{"bodega", "producto", "fecha_siguiente_compra", "cantidad_sugerida", "dias_hasta_reorden", "estado"}); err != nil {
		return err
	}
	for _, row := range rows {
		date := ""
		if row.NextReorderDate != nil {
			date = row.NextReorderDate.Format("2006-01-02")
		}
		days := ""
		if row.DaysUntilReorder != nil {
			days = strconv.Itoa(*row.DaysUntilReorder)
		}
		record := []string{
			row.Warehouse,
			row.Product,
			date,
			strconv.FormatFloat(row.SuggestedQty, 'f', -1, 64),
			days,
			row.Status,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
