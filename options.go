package asynclist

import (
	"strconv"
	"strings"

	"github.com/npillmayer/asynclist/layout"
	"github.com/npillmayer/asynclist/rangectl"
	"github.com/npillmayer/asynclist/worker"
	"github.com/npillmayer/schuko"
	"github.com/npillmayer/tyse/core/dimen"
)

// Options configures a Controller.
type Options struct {
	Lookahead          float64                  // screenfuls to preload in scroll direction
	Trailing           float64                  // screenfuls to preload against scroll direction
	BatchScreens       float64                  // screenfuls before the end of data which trigger a batch fetch
	Hysteresis         dimen.DU                 // scroll distance ignored between range evaluations
	Workers            int                      // size of the worker pool
	Synchronous        bool                     // force Display items to be measured before they are reported
	DeferOutOfRange    bool                     // do not measure new items outside of the range sets
	SupplementaryKinds []string                 // kinds of supplementary elements per section
	Viewport           layout.Size              // initial viewport size, used by the default inspector
	Directions         rangectl.ScrollDirection // scrollable directions of the default inspector
}

// DefaultOptions returns the options used if nothing is configured.
func DefaultOptions() Options {
	return Options{
		Lookahead:    2,
		Trailing:     1,
		BatchScreens: 2,
		Workers:      worker.DefaultWorkerCount(),
		Synchronous:  true,
		Directions:   rangectl.Vertical,
	}
}

func (o Options) tuning() rangectl.Tuning {
	return rangectl.Tuning{
		Lookahead:  o.Lookahead,
		Trailing:   o.Trailing,
		Hysteresis: o.Hysteresis,
	}
}

// Configuration keys read by OptionsFromConfig.
const (
	ConfLookahead       = "asynclist.lookahead"
	ConfTrailing        = "asynclist.trailing"
	ConfBatchScreens    = "asynclist.batchscreens"
	ConfHysteresis      = "asynclist.hysteresis"
	ConfWorkers         = "asynclist.workers"
	ConfSynchronous     = "asynclist.synchronous"
	ConfDeferOutOfRange = "asynclist.deferoutofrange"
	ConfSupplementary   = "asynclist.supplementary"
	ConfDirection       = "asynclist.direction"
)

// OptionsFromConfig reads options from a configuration, starting from the
// defaults. Malformed values are traced and ignored.
func OptionsFromConfig(conf schuko.Configuration) Options {
	opts := DefaultOptions()
	if conf == nil {
		return opts
	}
	readFloat(conf, ConfLookahead, &opts.Lookahead)
	readFloat(conf, ConfTrailing, &opts.Trailing)
	readFloat(conf, ConfBatchScreens, &opts.BatchScreens)
	var h float64
	if readFloat(conf, ConfHysteresis, &h) {
		opts.Hysteresis = dimen.DU(h)
	}
	if conf.IsSet(ConfWorkers) {
		if n := conf.GetInt(ConfWorkers); n > 0 {
			opts.Workers = n
		} else {
			tracer().Errorf("configuration %s: not a positive number: %q", ConfWorkers, conf.GetString(ConfWorkers))
		}
	}
	if conf.IsSet(ConfSynchronous) {
		opts.Synchronous = conf.GetBool(ConfSynchronous)
	}
	if conf.IsSet(ConfDeferOutOfRange) {
		opts.DeferOutOfRange = conf.GetBool(ConfDeferOutOfRange)
	}
	if conf.IsSet(ConfSupplementary) {
		for _, kind := range strings.Split(conf.GetString(ConfSupplementary), ",") {
			if kind = strings.TrimSpace(kind); kind != "" {
				opts.SupplementaryKinds = append(opts.SupplementaryKinds, kind)
			}
		}
	}
	if conf.IsSet(ConfDirection) {
		switch d := strings.ToLower(strings.TrimSpace(conf.GetString(ConfDirection))); d {
		case "vertical":
			opts.Directions = rangectl.Vertical
		case "horizontal":
			opts.Directions = rangectl.Horizontal
		case "both":
			opts.Directions = rangectl.Vertical | rangectl.Horizontal
		default:
			tracer().Errorf("configuration %s: unknown direction %q", ConfDirection, d)
		}
	}
	return opts
}

// readFloat parses a float key. schuko.Configuration has no float getter.
func readFloat(conf schuko.Configuration, key string, f *float64) bool {
	if !conf.IsSet(key) {
		return false
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(conf.GetString(key)), 64)
	if err != nil || x < 0 {
		tracer().Errorf("configuration %s: not a non-negative number: %q", key, conf.GetString(key))
		return false
	}
	*f = x
	return true
}
