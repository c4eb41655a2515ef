/*
icademo is a minimal driver for the ICA optimizer library: it loads
hyperparameters, picks a benchmark objective, runs one of the three
engine drivers, and prints the result. It is not the project's
command-line interface — only a thin wiring example for the sequential,
shared-memory, and distributed drivers, the way main.go wires
reinforcement.Train to a server in the teacher.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"runtime"

	"ica"
	"ica/config"
	"ica/distributed"
	"ica/objective"
	"ica/parallel"
)

var (
	configPath *string
	nworkers   *int
	mode       *string
	benchmark  *string
	peers      *int
)

func init() {
	configPath = flag.String("config", "", "path to a YAML hyperparameters file; built-in sphere defaults if empty")
	nworkers = flag.Int("nworkers", runtime.NumCPU(), "shared-memory worker goroutines (mode=shared only)")
	mode = flag.String("mode", "sequential", "one of sequential, shared, distributed")
	benchmark = flag.String("benchmark", "sphere", "one of sphere, rastrigin, rosenbrock")
	peers = flag.Int("peers", 4, "distributed ring peers (mode=distributed only)")
	flag.Parse()
}

func defaultParams() config.Hyperparameters {
	return config.Hyperparameters{
		PopSize: 40, Dim: 2, MaxIter: 100,
		Beta: 2.0, Gamma: 0.1, Eta: 0.1,
		Lb: -5, Ub: 5,
	}
}

func loadParams() (config.Hyperparameters, error) {
	if *configPath == "" {
		return defaultParams(), nil
	}
	hp, err := config.FromYAML(*configPath)
	if err != nil {
		return config.Hyperparameters{}, err
	}
	return *hp, nil
}

func selectObjective() objective.Func {
	switch *benchmark {
	case "rastrigin":
		return objective.FromPure(objective.Rastrigin)
	case "rosenbrock":
		return objective.FromPure(objective.Rosenbrock)
	default:
		return objective.FromPure(objective.Sphere)
	}
}

func runSequential(params config.Hyperparameters, obj objective.Func) error {
	e, err := ica.New(params, obj, 1)
	if err != nil {
		return err
	}
	if err := e.Setup(); err != nil {
		return err
	}
	if err := e.Run(); err != nil {
		return err
	}
	fmt.Printf("best_fitness=%v best_solution=%v\n", e.BestFitness(), e.BestSolution())
	return nil
}

func runShared(params config.Hyperparameters, obj objective.Func) error {
	e, err := ica.New(params, obj, 1)
	if err != nil {
		return err
	}
	if err := e.Setup(); err != nil {
		return err
	}
	driver, err := parallel.NewDriver(e, *nworkers)
	if err != nil {
		return err
	}
	if err := driver.Run(context.Background()); err != nil {
		return err
	}
	fmt.Printf("best_fitness=%v best_solution=%v\n", e.BestFitness(), e.BestSolution())
	return nil
}

func runDistributed(params config.Hyperparameters, obj objective.Func) error {
	ring, err := distributed.NewRing(params, obj, *peers, 1, false)
	if err != nil {
		return err
	}
	cyclesLen := params.MaxIter/5 + 1
	result, err := ring.Run(context.Background(), 5, cyclesLen)
	if err != nil {
		return err
	}
	fmt.Printf("best_fitness=%v best_solution=%v\n", result.BestFitness, result.BestSolution)
	return nil
}

func runApp() error {
	params, err := loadParams()
	if err != nil {
		return err
	}
	obj := selectObjective()

	switch *mode {
	case "shared":
		return runShared(params, obj)
	case "distributed":
		return runDistributed(params, obj)
	default:
		return runSequential(params, obj)
	}
}

func main() {
	if err := runApp(); err != nil {
		fmt.Println(err)
	}
}
