// mdpdemo is a small command-line driver that loads a SolverConfig,
// builds one of the domain problems, runs the selected solver against it,
// and optionally serves a live telemetry page of its progress -- the
// generalized analogue of the original reinforcement-learning demo's
// root main.go (flag parsing, config load, run, serve).
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/mejrpete/mdp-lib/config"
	"github.com/mejrpete/mdp-lib/domains/ctp"
	"github.com/mejrpete/mdp-lib/domains/gridworld"
	"github.com/mejrpete/mdp-lib/domains/racetrack"
	"github.com/mejrpete/mdp-lib/domains/sailing"
	"github.com/mejrpete/mdp-lib/mdp"
	"github.com/mejrpete/mdp-lib/registry"
	"github.com/mejrpete/mdp-lib/solvers/dp"
	"github.com/mejrpete/mdp-lib/solvers/shortsighted"
	"github.com/mejrpete/mdp-lib/solvers/trial"
	"github.com/mejrpete/mdp-lib/telemetry"
)

var configPath = flag.String("config", "", "path to a solver config yaml file; if empty, built-in defaults are used")

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel, err := cfg.WithDeadline(context.Background())
	if err != nil {
		return err
	}
	defer cancel()

	problem, err := buildDomain(cfg)
	if err != nil {
		return err
	}

	reg := registry.New(problem)
	root := reg.Intern(problem.InitialState())

	reporter := telemetry.NewReporter()
	defer reporter.Close()

	if addr, ok := cfg.TelemetryAddr(); ok {
		srv := telemetry.NewServer(addr, reporter)
		go func() {
			fmt.Printf("telemetry listening on %s\n", addr)
			_ = srv.Serve()
		}()
	}

	return runSolver(ctx, cfg, problem, reg, root, reporter)
}

func loadConfig() (*config.SolverConfig, error) {
	if *configPath == "" {
		return &config.SolverConfig{
			Algorithm: map[string]string{"solver": "valueiteration", "domain": "gridworld"},
		}, nil
	}
	return config.FromYaml(*configPath)
}

func buildDomain(cfg *config.SolverConfig) (mdp.Problem, error) {
	switch cfg.Algorithm["domain"] {
	case "", "gridworld":
		goals := map[[2]int]float64{{7, 7}: 0}
		walls := map[[2]int]bool{{3, 3}: true, {3, 4}: true, {3, 5}: true}
		return gridworld.New(8, 8, 0, 0, goals, walls, 1.0), nil
	case "racetrack":
		track := []string{
			"WWWWWWWWWW",
			"W--------W",
			"Wooooooo+W",
			"Wooooooo+W",
			"WooWWooooW",
			"WooWWooooW",
			"WooooooooW",
			"WWWWWWWWWW",
		}
		pSlip := cfg.GetHyperParamOrDefault("pSlip", 0.1)
		pError := cfg.GetHyperParamOrDefault("pError", 0.05)
		maxVelocity := int(cfg.GetHyperParamOrDefault("maxVelocity", 4))
		return racetrack.New(track, pSlip, pError, maxVelocity), nil
	case "sailing":
		shift := cfg.GetHyperParamOrDefault("windShiftProb", 0.25)
		return sailing.New(5, 5, 0, 0, sailing.S, 4, 4, shift), nil
	case "ctp":
		roads := ctp.NewGraph(3)
		roads.AddEdge(0, 1, 1.0, cfg.GetHyperParamOrDefault("blockProb", 0.5))
		roads.AddEdge(0, 2, 1.0, cfg.GetHyperParamOrDefault("blockProb", 0.5))
		roads.AddEdge(1, 2, 1.0, 0)
		return ctp.New(roads, 0, 2, cfg.GetHyperParamOrDefault("probeCost", 0.1)), nil
	default:
		return nil, fmt.Errorf("unknown domain %q", cfg.Algorithm["domain"])
	}
}

func runSolver(
	ctx context.Context,
	cfg *config.SolverConfig,
	problem mdp.Problem,
	reg *registry.StateRegistry,
	root *registry.Node,
	reporter *telemetry.Reporter,
) error {
	domainName := cfg.Algorithm["domain"]
	if domainName == "" {
		domainName = "gridworld"
	}

	switch cfg.Algorithm["solver"] {
	case "", "valueiteration":
		viCfg := dp.DefaultValueIterationConfig()
		viCfg.Root = root
		viCfg.OnSweep = func(sweep int, maxResidual float64, node *registry.Node) {
			reporter.Report(telemetry.Update{
				Algorithm: "valueiteration", Domain: domainName,
				Iteration: sweep, MaxResidual: maxResidual,
				RootValue: node.Value, Solved: maxResidual < viCfg.Epsilon,
			})
		}
		result, err := dp.ValueIteration(problem, reg, viCfg)
		if err != nil {
			return err
		}
		fmt.Printf("value iteration: sweeps=%d converged=%v residual=%.6f root=%.4f\n",
			result.Sweeps, result.Converged, result.MaxResidual, root.Value)

	case "laostar":
		result := dp.LAOStar(problem, reg, root, dp.DefaultLAOStarConfig())
		fmt.Printf("lao*: envelope=%d sweeps=%d converged=%v root=%.4f\n",
			result.EnvelopeSize, result.Sweeps, result.Converged, root.Value)

	case "lrtdp":
		rng := rand.New(rand.NewSource(1))
		result := trial.LRTDP(problem, reg, root, trial.DefaultLRTDPConfig(rng))
		fmt.Printf("lrtdp: trials=%d solved=%v root=%.4f\n", result.Trials, result.Solved, root.Value)

	case "flares":
		rng := rand.New(rand.NewSource(1))
		fCfg := trial.DefaultFLARESConfig(rng)
		fCfg.Depth = int(cfg.GetHyperParamOrDefault("depth", float64(fCfg.Depth)))
		result := trial.FLARES(problem, reg, root, fCfg)
		fmt.Printf("flares: trials=%d solved=%v root=%.4f\n", result.Trials, result.Solved, root.Value)

	case "softflares":
		rng := rand.New(rand.NewSource(1))
		sfCfg := trial.DefaultSoftFLARESConfig(rng)
		sfCfg.Depth = int(cfg.GetHyperParamOrDefault("depth", float64(sfCfg.Depth)))
		sfCfg.MinProbability = cfg.GetHyperParamOrDefault("minProbability", sfCfg.MinProbability)
		result := trial.SoftFLARES(problem, reg, root, sfCfg)
		fmt.Printf("soft-flares: trials=%d solved=%v root=%.4f\n", result.Trials, result.Solved, root.Value)

	case "ssipp":
		rng := rand.New(rand.NewSource(1))
		sCfg := shortsighted.DefaultSSiPPConfig(rng)
		sCfg.Horizon = int(cfg.GetHyperParamOrDefault("horizon", float64(sCfg.Horizon)))
		sCfg.UseTrajProbabilities = cfg.GetHyperParamOrDefault("useTrajProbabilities", 0) != 0
		sCfg.Rho = cfg.GetHyperParamOrDefault("rho", 0.1)
		action, traceStates, err := shortsighted.SSiPP(problem, reg, problem.InitialState(), sCfg)
		if err != nil {
			return err
		}
		fmt.Printf("ssipp: steps=%d first-action=%v root=%.4f\n", len(traceStates), action, root.Value)

	default:
		return fmt.Errorf("unknown solver %q", cfg.Algorithm["solver"])
	}

	select {
	case <-ctx.Done():
	case <-time.After(50 * time.Millisecond):
		// Give the telemetry publish loop a moment to flush the final update.
	}
	return nil
}
