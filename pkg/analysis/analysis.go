package analysis

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/ChrisMcGann/isostat/pkg/bivariate"
	"github.com/ChrisMcGann/isostat/pkg/comparison"
	"github.com/ChrisMcGann/isostat/pkg/config"
	"github.com/ChrisMcGann/isostat/pkg/core"
	"github.com/ChrisMcGann/isostat/pkg/distfit"
	"github.com/ChrisMcGann/isostat/pkg/metrics"
	"github.com/ChrisMcGann/isostat/pkg/prep"
	"github.com/ChrisMcGann/isostat/pkg/univariate"
	"github.com/ChrisMcGann/isostat/pkg/writer/sqlite"
	tsvwriter "github.com/ChrisMcGann/isostat/pkg/writer/tsv"
)

// Analysis labels used in metrics and logs
const (
	Differential = "differential"
	Bivariate    = "bivariate"
)

// Analyzer runs the analyses of one configuration. Every unit writes a TSV
// file and, when configured, rows into the SQLite result store.
type Analyzer struct {
	cfg     *config.Config
	log     logrus.FieldLogger
	out     *tsvwriter.Writer
	store   *sqlite.Writer
	metrics *metrics.Recorder
	exclude *core.ExclusionList
	fitter  *distfit.Fitter
	rng     *rand.Rand
}

// New prepares the output directory, the optional result store and the
// exclusion list of a configuration.
func New(cfg *config.Config, log logrus.FieldLogger) (*Analyzer, error) {
	fitter, err := cfg.Fitter()
	if err != nil {
		return nil, err
	}

	exclude, err := LoadExclusions(cfg.Exclude)
	if err != nil {
		return nil, err
	}

	out, err := tsvwriter.NewWriter(cfg.OutputDir)
	if err != nil {
		return nil, err
	}

	a := &Analyzer{
		cfg:     cfg,
		log:     log,
		out:     out,
		metrics: metrics.NewRecorder(),
		exclude: exclude,
		fitter:  fitter,
		rng:     distfit.NewRand(cfg.Seed),
	}

	if cfg.SQLite != "" {
		a.store, err = sqlite.NewWriter(cfg.SQLite, cfg.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to create result store: %w", err)
		}
		log.WithField("run_id", a.store.RunID()).Info("result store opened")
	}
	return a, nil
}

// LoadExclusions reads a metabolite,compartment CSV. An empty path gives an
// empty list.
func LoadExclusions(path string) (*core.ExclusionList, error) {
	list := core.NewExclusionList()
	if path == "" {
		return list, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open exclusion list: %w", err)
	}
	defer f.Close()

	if err := list.LoadFromCSV(f); err != nil {
		return nil, fmt.Errorf("failed to load exclusion list: %w", err)
	}
	return list, nil
}

// Metrics returns the run counters.
func (a *Analyzer) Metrics() *metrics.Recorder {
	return a.metrics
}

// Written lists the result files written so far.
func (a *Analyzer) Written() []string {
	return a.out.Written()
}

// Run runs every configured differential and bivariate analysis.
func (a *Analyzer) Run(ds *Dataset) error {
	if err := a.RunDifferential(ds); err != nil {
		return err
	}
	return a.RunBivariate(ds)
}

// Close finalizes the result store and writes the metrics file. runErr is
// the outcome of the run, recorded in the metrics.
func (a *Analyzer) Close(runErr error) error {
	a.metrics.SetFailed(runErr != nil)

	var firstErr error
	if a.store != nil {
		if err := a.store.Finalize(); err != nil {
			firstErr = err
		}
	}
	if a.cfg.MetricsFile != "" {
		if err := a.metrics.WriteFile(a.cfg.MetricsFile); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// prepared returns the compartment slice of a kind's table with exclusions
// dropped and values prepared.
func (a *Analyzer) prepared(ds *Dataset, kind core.FileKind, compartment string) (*core.Table, *core.Metadata, bool, error) {
	t, meta, ok, err := ds.Compartment(kind, compartment)
	if err != nil || !ok {
		return nil, nil, ok, err
	}

	before := len(t.Rows)
	t = a.exclude.Apply(compartment, t)
	if dropped := before - len(t.Rows); dropped > 0 {
		a.log.WithFields(logrus.Fields{
			"kind":        kind,
			"compartment": compartment,
			"rows":        dropped,
		}).Debug("excluded rows")
	}

	pc := prep.Config{Kind: kind, Impute: a.cfg.ImputePolicy(kind)}
	t, err = pc.Apply(t)
	if err != nil {
		return nil, nil, false, err
	}
	return t, meta, true, nil
}

// RunDifferential runs the univariate analyses.
func (a *Analyzer) RunDifferential(ds *Dataset) error {
	for i, d := range a.cfg.Differential {
		cmps, err := differentialComparisons(d, ds.Metadata)
		if err != nil {
			return fmt.Errorf("differential[%d]: %w", i, err)
		}

		for _, kind := range a.kinds(ds) {
			for _, compartment := range ds.Metadata.Compartments() {
				t, meta, ok, err := a.prepared(ds, kind, compartment)
				if err != nil {
					return err
				}
				if !ok {
					continue
				}
				for _, cmp := range cmps {
					if err := a.differentialUnit(d.Test, kind, compartment, cmp, t, meta); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// differentialComparisons lists the comparisons of one analysis: the time
// course, or each declared pair at each declared timepoint.
func differentialComparisons(d config.DifferentialConfig, meta *core.Metadata) ([]core.Comparison, error) {
	if d.TimeCourse {
		return comparison.TimeCourse(meta)
	}
	if len(d.Timepoints) == 0 {
		return comparison.FromPairs(d.Comparisons, "", meta)
	}

	var out []core.Comparison
	for _, tp := range d.Timepoints {
		cmps, err := comparison.FromPairs(d.Comparisons, tp, meta)
		if err != nil {
			return nil, err
		}
		out = append(out, cmps...)
	}
	return out, nil
}

func (a *Analyzer) differentialUnit(test univariate.Test, kind core.FileKind, compartment string, cmp core.Comparison, t *core.Table, meta *core.Metadata) error {
	log := a.log.WithFields(logrus.Fields{
		"kind":        kind,
		"compartment": compartment,
		"comparison":  cmp,
		"test":        test,
	})

	interest := cmp.Interest.Samples(meta).Names()
	baseline := cmp.Baseline.Samples(meta).Names()
	if len(interest) == 0 || len(baseline) == 0 {
		log.Debug("no samples for comparison, skipping")
		return nil
	}

	runner := univariate.NewRunner(test, a.cfg.Correction)
	runner.Alpha = a.cfg.Alpha
	runner.Fitter = a.fitter
	runner.Tail = a.cfg.DistFit.Tail
	runner.Rand = a.rng

	outcome, err := runner.Run(t, interest, baseline, compartment)
	if err != nil {
		return fmt.Errorf("%s %s %s: %w", kind, compartment, cmp, err)
	}

	name := tsvwriter.DifferentialName(kind, compartment, cmp.String(), test.String())
	path, err := a.out.Differential(name, outcome.Results)
	if err != nil {
		return err
	}
	if a.store != nil {
		unit := sqlite.UnitInfo{Kind: kind, Compartment: compartment, Comparison: cmp.String(), Test: test.String()}
		if err := a.store.WriteDifferential(unit, outcome.Results); err != nil {
			return err
		}
	}

	nan := 0
	for _, r := range outcome.Results {
		if math.IsNaN(r.PValue) {
			nan++
		}
	}
	tested := outcome.Tested
	if test == univariate.NoTest {
		tested = 0
	}
	a.metrics.RecordUnit(Differential, kind.String())
	a.metrics.RecordRows(Differential, test.String(), tested, nan)

	if test == univariate.DistFit {
		if outcome.Fit == nil {
			a.metrics.RecordFitFailure()
			log.Warn("no distribution could be fitted, p-values left empty")
		} else {
			a.metrics.RecordFit(outcome.Fit.Distribution.Name, outcome.Tail.String())
			log = log.WithFields(logrus.Fields{
				"distribution": outcome.Fit.Distribution.Name,
				"params":       outcome.Fit.Params,
				"tail":         outcome.Tail,
			})
		}
	}

	log.WithFields(logrus.Fields{
		"rows":   len(outcome.Results),
		"tested": tested,
		"output": path,
	}).Info("differential unit done")
	return nil
}

// RunBivariate runs the configured bivariate behaviors. MDV behaviors use the
// isotopologue proportions; time profiles use every loaded metabolite-level
// kind. Samples of undeclared conditions are dropped before any preparation.
func (a *Analyzer) RunBivariate(ds *Dataset) error {
	b := a.cfg.Bivariate
	if b == nil {
		return nil
	}
	sel, err := b.Selection(ds.Metadata)
	if err != nil {
		return fmt.Errorf("bivariate: %w", err)
	}
	narrowed, err := ds.WithConditions(sel.Conditions)
	if err != nil {
		return fmt.Errorf("bivariate: %w", err)
	}

	for _, behavior := range b.Behaviors {
		for _, kind := range bivariateKinds(behavior, a.kinds(narrowed)) {
			for _, compartment := range narrowed.Metadata.Compartments() {
				if err := a.bivariateCompartment(behavior, kind, compartment, narrowed, sel); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// bivariateKinds selects the loaded kinds a behavior applies to.
func bivariateKinds(behavior comparison.Behavior, loaded []core.FileKind) []core.FileKind {
	var out []core.FileKind
	for _, k := range loaded {
		switch behavior {
		case comparison.ConditionsMDV, comparison.TimepointsMDV:
			if k == core.IsotopologueProportions {
				out = append(out, k)
			}
		default:
			if !k.IsIsotopologueLevel() {
				out = append(out, k)
			}
		}
	}
	return out
}

func (a *Analyzer) bivariateCompartment(behavior comparison.Behavior, kind core.FileKind, compartment string, ds *Dataset, sel *comparison.Selection) error {
	b := a.cfg.Bivariate
	log := a.log.WithFields(logrus.Fields{
		"kind":        kind,
		"compartment": compartment,
		"behavior":    behavior,
		"test":        b.Method,
	})

	t, meta, ok, err := a.prepared(ds, kind, compartment)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if err := meta.CheckConditions(sel.Conditions); err != nil {
		log.WithError(err).Debug("condition not measured in compartment, skipping")
		return nil
	}

	var idx *core.IsotopologueIndex
	if kind.IsIsotopologueLevel() {
		idx, err = core.BuildIsotopologueIndex(t.Rows)
		if err != nil {
			return fmt.Errorf("%s %s: %w", kind, compartment, err)
		}
	}

	units, err := bivariate.Units(behavior, t, idx, meta, sel)
	if behavior == comparison.ConditionsTimeProfiles && errors.Is(err, core.ErrLengthMismatch) {
		log.WithError(err).Warn("conditions not measured at the same timepoints, skipping compartment")
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", kind, compartment, err)
	}

	runner := bivariate.NewRunner(b.Method, a.cfg.Correction)
	runner.Alpha = a.cfg.Alpha
	for _, unit := range units {
		rows, err := runner.Run(unit.Pairs, compartment)
		if err != nil {
			return fmt.Errorf("%s %s %s: %w", kind, compartment, unit.Comparison, err)
		}

		name := tsvwriter.BivariateName(kind, compartment, unit, b.Method.String())
		path, err := a.out.Bivariate(name, rows)
		if err != nil {
			return err
		}
		if a.store != nil {
			info := sqlite.UnitInfo{
				Kind:        kind,
				Compartment: compartment,
				Comparison:  unit.Comparison,
				Test:        b.Method.String(),
				Behavior:    behavior.String(),
				Key:         unit.Key,
			}
			if err := a.store.WriteBivariate(info, rows); err != nil {
				return err
			}
		}

		tested, nan := 0, 0
		for _, r := range rows {
			if math.IsNaN(r.PValue) {
				nan++
			} else {
				tested++
			}
		}
		a.metrics.RecordUnit(Bivariate, kind.String())
		a.metrics.RecordRows(Bivariate, b.Method.String(), tested, nan)

		log.WithFields(logrus.Fields{
			"comparison": unit.Comparison,
			"key":        unit.Key,
			"rows":       len(rows),
			"output":     path,
		}).Info("bivariate unit done")
	}
	return nil
}

// kinds returns the configured kinds that the dataset holds.
func (a *Analyzer) kinds(ds *Dataset) []core.FileKind {
	wanted := make(map[core.FileKind]bool, len(a.cfg.FileKinds))
	for _, k := range a.cfg.FileKinds {
		wanted[k] = true
	}
	var out []core.FileKind
	for _, k := range ds.Kinds() {
		if wanted[k] {
			out = append(out, k)
		}
	}
	return out
}
