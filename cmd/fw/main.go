package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/klauspost/cpuid/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/neurlang/fwlearn/hash"
	"github.com/neurlang/fwlearn/model"
	"github.com/neurlang/fwlearn/trainer"
	"github.com/neurlang/fwlearn/vwmap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error("fw failed", "err", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var v = viper.New()
	var cmd = &cobra.Command{
		Use:           "fw",
		Short:         "Online logistic regression over hashed vowpal wabbit features",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cmd, v)
		},
	}

	var f = cmd.Flags()
	f.StringP("data", "d", "", "vowpal wabbit input file, stdin when empty")
	f.String("vw_map", vwmap.DefaultFile, "namespace map")
	f.String("model_json", "", "JSON or YAML model description, instead of --keep/--interactions")
	f.StringArray("keep", nil, "namespace letter to use as a feature (repeatable)")
	f.StringArray("interactions", nil, "namespace letters to cross (repeatable)")
	f.Uint8P("bit_precision", "b", 18, "log2 of the weight table size")
	f.Float32P("learning_rate", "l", 0.5, "learning rate")
	f.Float32("power_t", 0.5, "power on the accumulated squared gradient")
	f.String("link", "", "link function, only logistic")
	f.String("loss_function", "", "loss function, only logistic")
	f.Float32("l2", 0, "l2 regularization, only 0")
	f.Bool("adaptive", false, "adaptive learning rates (required)")
	f.Bool("sgd", false, "plain stochastic gradient descent (required)")
	f.Bool("noconstant", false, "no implicit bias feature")
	f.Bool("constant", false, "add the implicit bias feature")
	f.Bool("fwumnious", false, "cross namespaces with addition instead of the vowpal hash")
	f.Bool("fix_feature_weight_square", false, "apply the feature weight once in the update")
	f.String("cache_file", "", "record cache, written on the first pass")
	f.Int("passes", 1, "passes over the data, more than one requires --cache_file")
	f.BoolP("testonly", "t", false, "predict without learning")
	f.StringP("initial_regressor", "i", "", "regressor to start from")
	f.StringP("final_regressor", "f", "", "where to save the regressor")
	f.StringP("predictions", "p", "", "where to write predictions, - for stdout")
	f.String("log_level", "info", "debug, info, warn or error")
	f.Duration("progress", trainer.DefaultProgressInterval, "interval between progress log lines")

	v.SetEnvPrefix("FW")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(f); err != nil {
		panic(err)
	}
	return cmd
}

func run(ctx context.Context, cmd *cobra.Command, v *viper.Viper) error {
	var logOpts = trainer.DefaultLoggerOptions()
	logOpts.Level = v.GetString("log_level")
	logOpts.Output = cmd.ErrOrStderr()
	var logger = trainer.NewLogger(logOpts)

	logger.Debug("cpu",
		"brand", cpuid.CPU.BrandName,
		"cores", cpuid.CPU.PhysicalCores,
		"threads", cpuid.CPU.LogicalCores,
		"avx2", cpuid.CPU.Supports(cpuid.AVX2),
		"cross_lanes", hash.CrossLanes())

	vw, err := vwmap.NewFromFile(v.GetString("vw_map"))
	if err != nil {
		return err
	}
	logger.Debug("namespace map", "path", v.GetString("vw_map"), "namespaces", vw.Len())

	mi, err := instance(v, vw, logger)
	if err != nil {
		return err
	}

	_, err = trainer.Run(ctx, trainer.Config{
		Data:             v.GetString("data"),
		Cache:            v.GetString("cache_file"),
		Passes:           v.GetInt("passes"),
		TestOnly:         v.GetBool("testonly"),
		InitialRegressor: v.GetString("initial_regressor"),
		FinalRegressor:   v.GetString("final_regressor"),
		Predictions:      v.GetString("predictions"),
		Model:            mi,
		NamespaceMap:     vw,
		Logger:           logger,
		ProgressInterval: v.GetDuration("progress"),
		Stdin:            cmd.InOrStdin(),
		Stdout:           cmd.OutOrStdout(),
	})
	return err
}

// instance builds the model from --model_json or from the combo flags
func instance(v *viper.Viper, vw *vwmap.NamespaceMap, logger *log.Logger) (*model.Instance, error) {
	if path := v.GetString("model_json"); path != "" {
		if v.IsSet("keep") || v.IsSet("interactions") {
			logger.Warn("--keep and --interactions are ignored with --model_json")
		}
		mi, err := model.NewFromFile(path, vw)
		if err != nil {
			return nil, err
		}
		mi.FixFeatureWeightSquare = v.GetBool("fix_feature_weight_square")
		return mi, nil
	}

	var opts = model.Options{
		Keep:                   v.GetStringSlice("keep"),
		Interactions:           v.GetStringSlice("interactions"),
		Link:                   v.GetString("link"),
		LossFunction:           v.GetString("loss_function"),
		Adaptive:               v.GetBool("adaptive"),
		Sgd:                    v.GetBool("sgd"),
		NoConstant:             v.GetBool("noconstant"),
		Constant:               v.GetBool("constant"),
		Fwumnious:              v.GetBool("fwumnious"),
		FixFeatureWeightSquare: v.GetBool("fix_feature_weight_square"),
	}
	if v.IsSet("bit_precision") {
		var bits = uint8(v.GetUint("bit_precision"))
		opts.HashBits = &bits
	}
	if v.IsSet("learning_rate") {
		var lr = float32(v.GetFloat64("learning_rate"))
		opts.LearningRate = &lr
	}
	if v.IsSet("power_t") {
		var powerT = float32(v.GetFloat64("power_t"))
		opts.PowerT = &powerT
	}
	if v.IsSet("l2") {
		var l2 = float32(v.GetFloat64("l2"))
		opts.L2 = &l2
	}
	return model.NewFromOptions(opts, vw)
}
