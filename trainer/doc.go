// Package trainer drives the combiner and the regressor over an input
// stream. It reads vowpal wabbit text or a record cache, runs one or more
// passes, writes predictions and saves the final regressor.
//
// Parsing happens on a separate goroutine, translation and learning happen
// one example at a time on the goroutine calling Run.
package trainer
