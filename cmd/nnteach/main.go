// Package main provides the nn-teaching CLI.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/pkg/errors"

	"github.com/dasaro/nn-teaching/internal/config"
	"github.com/dasaro/nn-teaching/internal/metrics"
	"github.com/dasaro/nn-teaching/internal/monitor"
	"github.com/dasaro/nn-teaching/internal/nn"
	"github.com/dasaro/nn-teaching/internal/search"
	"github.com/dasaro/nn-teaching/internal/train"
)

const version = "v0.1.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "version":
		fmt.Printf("nn-teaching %s\n", version)
	case "train":
		err = runTrain(ctx, os.Args[2:])
	case "search":
		err = runSearch(ctx, os.Args[2:])
	case "help", "-h", "-help", "--help":
		usage()
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s failed: %v", os.Args[1], err)
	}
}

func usage() {
	fmt.Println("nn-teaching - feedforward networks trained by gradient descent")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Commands:")
	fmt.Println("  train      Train one network")
	fmt.Println("  search     Run a hyperparameter grid")
	fmt.Println("  version    Show version")
	fmt.Println("")
	fmt.Println("Run 'nnteach <command> -h' for flags.")
}

// commonFlags holds the flags shared by train and search.
type commonFlags struct {
	cfgPath  *string
	epochs   *int
	lr       *float64
	momentum *float64
	seed     *int64
	data     *string
	verbose  *bool
}

func registerCommon(fs *flag.FlagSet) *commonFlags {
	return &commonFlags{
		cfgPath:  fs.String("config", "", "Path to YAML config (defaults when empty)"),
		epochs:   fs.Int("epochs", 0, "Override max epochs"),
		lr:       fs.Float64("lr", 0, "Override learning rate"),
		momentum: fs.Float64("momentum", -1, "Override momentum coefficient (0 disables, negative keeps config)"),
		seed:     fs.Int64("seed", 0, "Override every seed"),
		data:     fs.String("dataset", "", "Override bundled dataset name"),
		verbose:  fs.Bool("v", false, "Debug logging"),
	}
}

func (c *commonFlags) load(workers int) (*config.Config, error) {
	cfg := config.Default()
	if *c.cfgPath != "" {
		var err error
		if cfg, err = config.Load(*c.cfgPath); err != nil {
			return nil, err
		}
	}
	var momentum *float64
	if *c.momentum >= 0 {
		momentum = c.momentum
	}
	cfg.ApplyOverrides(config.Overrides{
		Epochs:       *c.epochs,
		LearningRate: *c.lr,
		Momentum:     momentum,
		Seed:         *c.seed,
		Workers:      workers,
		Dataset:      *c.data,
	})
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return cfg, nil
}

func (c *commonFlags) logger() *slog.Logger {
	level := slog.LevelInfo
	if *c.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func runTrain(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	common := registerCommon(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := common.load(0)
	if err != nil {
		return err
	}
	logger := common.logger()

	ds, err := cfg.LoadDataset()
	if err != nil {
		return err
	}
	netCfg, err := cfg.Network.NN()
	if err != nil {
		return err
	}
	net, err := nn.New(netCfg)
	if err != nil {
		return err
	}
	mon, err := monitor.New(cfg.MonitorConfig())
	if err != nil {
		return err
	}

	logger.Info("training",
		"architecture", net.Architecture(),
		"samples", len(ds),
		"lr", cfg.Training.LearningRate,
		"momentum", cfg.Training.Momentum(),
		"max_epochs", cfg.Training.MaxEpochs)

	tr, err := train.New(cfg.Training,
		train.WithLogger(logger),
		train.WithMonitor(mon),
		train.WithObserver(func(ep metrics.Epoch, a monitor.Action) {
			if cfg.LogEvery > 0 && ep.Index%cfg.LogEvery == 0 {
				fmt.Printf("epoch %5d  loss %.6f  acc %6.2f%%  lr %.4f  grad %.4f  action %s\n",
					ep.Index, ep.Loss, ep.Accuracy*100, ep.LearningRate, ep.GradNorm, a.Kind)
			}
		}),
	)
	if err != nil {
		return err
	}

	res, err := tr.Train(ctx, net, ds)
	var de *train.DivergedError
	if err != nil && !errors.As(err, &de) {
		return err
	}

	fmt.Printf("\nstatus        %s\n", res.Status)
	fmt.Printf("epochs        %d\n", res.Epochs)
	fmt.Printf("accuracy      %.2f%%\n", res.Accuracy*100)
	fmt.Printf("loss          %.6f\n", res.Loss)
	fmt.Printf("final lr      %.4f\n", res.FinalLearningRate)
	fmt.Printf("perturbations %d\n", res.Perturbations)
	fmt.Printf("symmetry      %.4f\n", res.Diagnostics.Symmetry)
	if de != nil {
		fmt.Printf("restored      epoch %d\n", de.LastStableEpoch)
	}

	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SAMPLE\tTARGET\tOUTPUT\tOK")
	for i, s := range ds {
		out, err := nn.Predict(net, s.Input)
		if err != nil {
			return err
		}
		label := s.Label
		if label == "" {
			label = fmt.Sprintf("#%d", i)
		}
		ok := metrics.Correct(net.OutputActivation(), out, s.Target)
		fmt.Fprintf(w, "%s\t%v\t%.3f\t%v\n", label, s.Target, out, ok)
	}
	return w.Flush()
}

func runSearch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	common := registerCommon(fs)
	workers := fs.Int("workers", 0, "Override number of parallel trials")
	top := fs.Int("top", 10, "Trials to print (0 = all)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := common.load(*workers)
	if err != nil {
		return err
	}
	logger := common.logger()

	ds, err := cfg.LoadDataset()
	if err != nil {
		return err
	}
	base, err := cfg.SearchBase()
	if err != nil {
		return err
	}

	logger.Info("search", "trials", cfg.Search.Grid.Size(), "workers", cfg.Search.Workers)
	results, err := search.Search(ctx, base, ds, cfg.Search.Grid, search.Options{
		Workers:     cfg.Search.Workers,
		EpochBudget: cfg.Search.EpochBudget,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	shown := results
	if *top > 0 && len(shown) > *top {
		shown = shown[:*top]
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tSETTING\tSEED\tSTATUS\tACC\tEPOCHS\tLOSS\tPERTURB")
	for i, r := range shown {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%.2f%%\t%d\t%.5f\t%d\n",
			i+1, r.Trial.Setting(), r.Trial.Seed, r.Status, r.Accuracy*100, r.Epochs, r.Loss, r.Perturbations)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println()
	w = tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SETTING\tPERFECT\tMEAN ACC\tMEAN EPOCHS\tBEST\tWORST\tCONSISTENCY")
	for _, s := range search.Summarize(results) {
		fmt.Fprintf(w, "%s\t%d/%d\t%.2f%%\t%.1f\t%d\t%d\t%.2f\n",
			s.Setting, s.Perfect, s.Trials, s.MeanAccuracy*100, s.MeanEpochs, s.BestEpochs, s.WorstEpochs, s.Consistency)
	}
	return w.Flush()
}
