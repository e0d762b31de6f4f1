package trainer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/neurlang/fwlearn/cache"
	"github.com/neurlang/fwlearn/feature"
	"github.com/neurlang/fwlearn/model"
	"github.com/neurlang/fwlearn/regressor"
	"github.com/neurlang/fwlearn/vwmap"
)

// DefaultProgressInterval is how often progress is logged when Config leaves it unset
const DefaultProgressInterval = 5 * time.Second

// Config describes one training or prediction run
type Config struct {
	Data             string // vowpal wabbit text input, "" or "-" reads Stdin
	Cache            string // record cache, written by the first pass when missing
	Passes           int    // passes over the input, more than one requires Cache
	TestOnly         bool   // predict without learning
	InitialRegressor string // regressor to start from
	FinalRegressor   string // where to save the regressor after the last pass
	Predictions      string // predictions of the last pass, "-" writes to Stdout

	Model        *model.Instance
	NamespaceMap *vwmap.NamespaceMap

	Logger           *log.Logger
	ProgressInterval time.Duration

	Stdin  io.Reader // default os.Stdin
	Stdout io.Writer // default os.Stdout
}

type run struct {
	cfg      Config
	logger   *log.Logger
	combiner *feature.Combiner
	rr       *regressor.Regressor
	stats    Stats
	progress rate.Sometimes

	cacheReady  bool
	predictions *bufio.Writer
}

// Run executes cfg and returns the statistics of the examples it saw
func Run(ctx context.Context, cfg Config) (Stats, error) {
	if err := check(&cfg); err != nil {
		return Stats{}, err
	}
	var t = &run{
		cfg:      cfg,
		logger:   cfg.Logger,
		combiner: feature.New(cfg.Model.FeatureComboDescs, cfg.Model.AddConstantFeature, cfg.Model.Variant),
		progress: rate.Sometimes{Interval: cfg.ProgressInterval},
	}
	t.logger.Info("starting",
		"passes", cfg.Passes,
		"hash_bits", cfg.Model.HashBits,
		"learning_rate", cfg.Model.LearningRate,
		"power_t", cfg.Model.PowerT,
		"combos", len(cfg.Model.FeatureComboDescs),
		"variant", cfg.Model.Variant,
		"testonly", cfg.TestOnly)

	rr, err := Resume(cfg.InitialRegressor, cfg.Model, t.logger)
	if err != nil {
		return Stats{}, err
	}
	t.rr = rr

	if cfg.Cache != "" {
		if _, err := os.Stat(cfg.Cache); err == nil {
			t.cacheReady = true
			t.logger.Info("reading record cache", "path", cfg.Cache)
		}
	}

	if cfg.Predictions != "" {
		var w = cfg.Stdout
		if cfg.Predictions != "-" {
			f, err := os.Create(cfg.Predictions)
			if err != nil {
				return Stats{}, err
			}
			defer f.Close()
			w = f
		}
		t.predictions = bufio.NewWriter(w)
	}

	for pass := 0; pass < cfg.Passes; pass++ {
		if err := t.pass(ctx, pass == cfg.Passes-1); err != nil {
			return t.stats, fmt.Errorf("pass %d: %w", pass+1, err)
		}
		t.stats.Passes++
		t.logger.Debug("pass finished", "pass", pass+1, "examples", t.stats.Examples, "average_loss", t.stats.AverageLoss())
	}

	if t.predictions != nil {
		if err := t.predictions.Flush(); err != nil {
			return t.stats, err
		}
	}
	if err := Save(cfg.FinalRegressor, t.rr, cfg.Model, t.logger); err != nil {
		return t.stats, err
	}
	t.logger.Info("finished",
		"examples", t.stats.Examples,
		"positive", t.stats.Positive,
		"average_loss", t.stats.AverageLoss())
	return t.stats, nil
}

func check(cfg *Config) error {
	if cfg.Model == nil {
		return fmt.Errorf("%w: missing model configuration", model.ErrConfig)
	}
	if cfg.NamespaceMap == nil {
		return fmt.Errorf("%w: missing namespace map", model.ErrConfig)
	}
	if cfg.Passes <= 0 {
		cfg.Passes = 1
	}
	if cfg.Passes > 1 && cfg.Cache == "" {
		return fmt.Errorf("%w: %d passes require a cache file", model.ErrConfig, cfg.Passes)
	}
	if cfg.Passes > 1 && cfg.TestOnly {
		cfg.Passes = 1
	}
	for _, desc := range cfg.Model.FeatureComboDescs {
		for _, ns := range desc.FeatureIndices {
			if ns >= cfg.NamespaceMap.Len() {
				return fmt.Errorf("%w: combo uses namespace %d, the map has %d", model.ErrConfig, ns, cfg.NamespaceMap.Len())
			}
		}
	}
	if err := cfg.Model.Validate(); err != nil {
		return err
	}
	if cfg.Logger == nil {
		cfg.Logger = discardLogger()
	}
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = DefaultProgressInterval
	}
	if cfg.Stdin == nil {
		cfg.Stdin = os.Stdin
	}
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	return nil
}

// open returns the source of the next pass and a function finishing it
func (t *run) open() (src source, finish func(ok bool) error, err error) {
	var namespaces = t.cfg.NamespaceMap.Len()
	if t.cacheReady {
		f, err := os.Open(t.cfg.Cache)
		if err != nil {
			return nil, nil, err
		}
		return cacheSource(bufio.NewReader(f), namespaces), func(bool) error { return f.Close() }, nil
	}

	var in = t.cfg.Stdin
	var closeIn = func() error { return nil }
	if t.cfg.Data != "" && t.cfg.Data != "-" {
		f, err := os.Open(t.cfg.Data)
		if err != nil {
			return nil, nil, err
		}
		in, closeIn = f, f.Close
	}
	if t.cfg.Cache == "" {
		return textSource(in, t.cfg.NamespaceMap, nil), func(bool) error { return closeIn() }, nil
	}

	var tmp = t.cfg.Cache + ".writing"
	f, err := os.Create(tmp)
	if err != nil {
		closeIn()
		return nil, nil, err
	}
	var bw = bufio.NewWriter(f)
	cw, err := cache.NewWriter(bw, namespaces)
	if err != nil {
		closeIn()
		f.Close()
		os.Remove(tmp)
		return nil, nil, err
	}
	finish = func(ok bool) error {
		closeIn()
		err := errors.Join(bw.Flush(), f.Close())
		if !ok || err != nil {
			os.Remove(tmp)
			return err
		}
		if err := os.Rename(tmp, t.cfg.Cache); err != nil {
			return err
		}
		t.cacheReady = true
		t.logger.Info("wrote record cache", "path", t.cfg.Cache)
		return nil
	}
	return textSource(in, t.cfg.NamespaceMap, cw), finish, nil
}

// pass streams one pass of examples through the combiner and the regressor
func (t *run) pass(ctx context.Context, last bool) error {
	src, finish, err := t.open()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	var records = make(chan feature.Record, 256)
	g.Go(func() error {
		defer close(records)
		return src(gctx, records)
	})

	var consumeErr error
	var line []byte
	for rec := range records {
		if consumeErr == nil && ctx.Err() != nil {
			consumeErr = ctx.Err()
		}
		if consumeErr != nil {
			// drain so the producer can exit
			continue
		}
		var fb = t.combiner.Translate(rec)
		var y = fb.Label()
		var p = t.rr.Learn(fb, !t.cfg.TestOnly)
		t.stats.add(y, p)
		if last && t.predictions != nil {
			line = strconv.AppendFloat(line[:0], float64(p), 'g', -1, 32)
			line = append(line, '\n')
			if _, err := t.predictions.Write(line); err != nil {
				consumeErr = err
				cancel()
			}
		}
		t.progress.Do(func() {
			t.logger.Info("progress", "examples", t.stats.Examples, "average_loss", t.stats.AverageLoss())
		})
	}

	var produceErr = g.Wait()
	if consumeErr != nil {
		produceErr = consumeErr
	}
	if err := finish(produceErr == nil); err != nil && produceErr == nil {
		produceErr = err
	}
	return produceErr
}
