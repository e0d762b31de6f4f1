// Package main provides fw, a command line online logistic learner that
// reads vowpal wabbit text input.
//
// A namespace map (vw_namespace_map.csv) assigns every namespace letter
// used in the input an index and a name. Feature combos are given either
// as --keep/--interactions letters or as a JSON or YAML model description:
//
//	fw -d train.vw --keep A --interactions AB -b 20 -l 0.1 \
//	    --adaptive --sgd --noconstant --link logistic --loss_function logistic \
//	    --cache_file train.cache --passes 3 -f model.fw
//	fw -d test.vw --model_json model.json -i model.fw -t -p predictions.txt
//
// Every flag can also be set through an FW_ prefixed environment variable,
// for example FW_LEARNING_RATE=0.1.
package main
