// Command optipick plans and deconflicts multi-agent picking tours
// for a warehouse catalog directory.
//
// Exit codes: 0 success, 1 infeasible, 2 invalid inputs.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/elektrokombinacija/optipick/internal/catalog"
	"github.com/elektrokombinacija/optipick/internal/config"
	"github.com/elektrokombinacija/optipick/internal/history"
	"github.com/elektrokombinacija/optipick/internal/planner"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		dataDir   = flag.String("data", "data", "catalog directory (warehouse/products/agents/orders/zones_access JSON)")
		numOrders = flag.Int("orders", -1, "number of orders to plan (-1 = all)")
		outPath   = flag.String("out", "", "write the result JSON to this file instead of stdout")
		histPath  = flag.String("history", "optipick.db", "run-ledger SQLite file")
		noHistory = flag.Bool("no-history", false, "skip recording the run in the ledger")
		verbose   = flag.Bool("v", false, "debug logging")

		seed       = flag.Int64("seed", 12345, "solver random seed")
		workers    = flag.Int("workers", 9, "solver search workers")
		maxTime    = flag.Int("max-time", 0, "solver wall-clock ceiling in seconds (0 = adaptive)")
		maxIters   = flag.Int("max-iterations", 250, "collision-resolver iteration cap")
		depotTime  = flag.Int("depot-time", 2, "depot drop-off dwell in minutes")
		picking    = flag.Int("picking-time", 60, "inter-pick picking time in seconds")
		startHour  = flag.Int("start-hour", 9, "nominal clock start hour")
		rateRobot  = flag.Float64("rate-robot", 5.0, "robot hourly cost rate")
		rateHuman  = flag.Float64("rate-human", 25.0, "human hourly cost rate")
		rateCart   = flag.Float64("rate-cart", 3.0, "cart hourly cost rate")
		gridWidth  = flag.Int("width", 0, "warehouse width override (0 = catalog value)")
		gridHeight = flag.Int("height", 0, "warehouse height override (0 = catalog value)")
	)
	flag.Parse()

	log, err := newLogger(*verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		return 2
	}
	defer log.Sync()

	params := config.Params{
		RandomSeed:         *seed,
		SearchWorkers:      *workers,
		MaxTimeSeconds:     *maxTime,
		MaxIterations:      *maxIters,
		DepotTimeMinutes:   *depotTime,
		PickingTimeSeconds: *picking,
		StartHour:          *startHour,
		Rates:              config.CostRates{Robot: *rateRobot, Human: *rateHuman, Cart: *rateCart},
		WarehouseWidth:     *gridWidth,
		WarehouseHeight:    *gridHeight,
	}

	inst, err := catalog.LoadInstance(*dataDir, params.StartHour)
	if err != nil {
		log.Error("invalid catalog", zap.Error(err))
		return 2
	}
	log.Info("catalog loaded",
		zap.Int("products", len(inst.Products)),
		zap.Int("agents", len(inst.Agents)),
		zap.Int("orders", len(inst.Orders)))

	n := *numOrders
	if n < 0 {
		n = len(inst.Orders)
	}

	result := planner.Plan(inst, n, params, log)

	if !*noHistory {
		recordRun(result, *histPath, log)
	}
	if err := writeResult(result, *outPath); err != nil {
		log.Error("write result", zap.Error(err))
		return 2
	}

	switch result.Status {
	case planner.StatusSuccess:
		log.Info("plan complete",
			zap.String("plan", result.PlanID),
			zap.Int("makespan", summaryMakespan(result)),
			zap.Int("residual_collisions", len(result.Collisions)))
		return 0
	case planner.StatusInfeasible:
		log.Warn("no feasible plan", zap.String("plan", result.PlanID))
		return 1
	default:
		log.Error("planning failed", zap.String("error", result.Error))
		return 2
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

func writeResult(result *planner.Result, path string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func recordRun(result *planner.Result, path string, log *zap.Logger) {
	store, err := history.Open(path)
	if err != nil {
		log.Warn("run ledger unavailable", zap.Error(err))
		return
	}
	defer store.Close()

	run := history.Run{
		PlanID:             result.PlanID,
		CreatedAt:          time.Now(),
		Status:             string(result.Status),
		Orders:             result.Orders,
		ResidualCollisions: len(result.Collisions),
	}
	if result.Summary != nil {
		run.Units = result.Summary.TotalUnits
		run.Makespan = result.Summary.Makespan
		run.TotalCost = result.Summary.TotalCost
	}
	if err := store.Record(run); err != nil {
		log.Warn("run not recorded", zap.Error(err))
	}
}

func summaryMakespan(result *planner.Result) int {
	if result.Summary == nil {
		return 0
	}
	return result.Summary.Makespan
}
