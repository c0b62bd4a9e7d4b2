package validate

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/born-ml/prim/internal/engine"
	"github.com/born-ml/prim/internal/logger"
	"github.com/born-ml/prim/internal/status"
)

// Suite is a named list of cases, usually loaded from YAML.
type Suite struct {
	Name  string `yaml:"name"`
	Cases []Case `yaml:"cases"`
}

// Case holds exactly one of Gemm, Sum or Conv. A case with ExpectFail
// passes only if the primitive fails with ExpectedStatus.
type Case struct {
	Name           string      `yaml:"name"`
	Gemm           *GemmParams `yaml:"gemm,omitempty"`
	Sum            *SumParams  `yaml:"sum,omitempty"`
	Conv           *ConvParams `yaml:"conv,omitempty"`
	ExpectFail     bool        `yaml:"expect_fail,omitempty"`
	ExpectedStatus string      `yaml:"expected_status,omitempty"`
}

// Kind returns the primitive the case exercises.
func (c Case) Kind() string {
	switch {
	case c.Gemm != nil:
		return "gemm"
	case c.Sum != nil:
		return "sum"
	case c.Conv != nil:
		return "convolution"
	default:
		return ""
	}
}

func (c Case) validate() error {
	n := 0
	for _, set := range []bool{c.Gemm != nil, c.Sum != nil, c.Conv != nil} {
		if set {
			n++
		}
	}
	if n != 1 {
		return errors.Errorf("case %q: want exactly one of gemm, sum, conv, got %d", c.Name, n)
	}
	if c.ExpectFail {
		if _, err := status.ParseStatus(c.ExpectedStatus); err != nil {
			return errors.Wrapf(err, "case %q", c.Name)
		}
	}
	return nil
}

// ParseSuite decodes and checks a YAML suite.
func ParseSuite(data []byte) (*Suite, error) {
	var s Suite
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(err, "parse suite")
	}
	for i := range s.Cases {
		if s.Cases[i].Name == "" {
			s.Cases[i].Name = s.Cases[i].Kind()
		}
		if err := s.Cases[i].validate(); err != nil {
			return nil, err
		}
	}
	return &s, nil
}

// LoadSuite reads a YAML suite from path. The suite name defaults to path.
func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read suite")
	}
	s, err := ParseSuite(data)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	if s.Name == "" {
		s.Name = path
	}
	return s, nil
}

// Run executes one case and returns its raw outcome.
func (c Case) Run(ctx context.Context, eng *engine.Engine) (Result, error) {
	switch {
	case c.Gemm != nil:
		return RunGemm(ctx, eng, *c.Gemm)
	case c.Sum != nil:
		return RunSum(ctx, eng, *c.Sum)
	case c.Conv != nil:
		return RunConv(ctx, eng, *c.Conv)
	default:
		return Result{}, status.Invalidf("validate", "case %q has no primitive", c.Name)
	}
}

// RunSuite runs the cases with up to workers in flight (GOMAXPROCS when
// workers <= 0). Primitives keep their own intra-op parallelism. The error
// is non-nil only when ctx is cancelled; case failures go to the report.
func RunSuite(ctx context.Context, eng *engine.Engine, s *Suite, workers int) (*Report, error) {
	log := logger.FromContext(ctx).With("suite", s.Name)
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	rep := &Report{
		Suite:   s.Name,
		Engine:  eng.ID().String(),
		ISA:     eng.ISA().String(),
		Started: time.Now().UTC(),
		Cases:   make([]CaseReport, len(s.Cases)),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, c := range s.Cases {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rep.Cases[i] = runCase(gctx, eng, c, log)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rep.tally()
	log.Info("suite finished", "cases", len(rep.Cases), "passed", rep.Passed,
		"failed", rep.Failed, "skipped", rep.Skipped)
	return rep, nil
}

func runCase(ctx context.Context, eng *engine.Engine, c Case, log logger.Logger) CaseReport {
	start := time.Now()
	res, err := c.Run(ctx, eng)
	cr := CaseReport{
		Name:     c.Name,
		Kind:     c.Kind(),
		Duration: time.Since(start).Milliseconds(),
	}

	if c.ExpectFail {
		want, _ := status.ParseStatus(c.ExpectedStatus)
		if err := CheckExpected(err, true, want); err != nil {
			cr.Status, cr.Error = CaseFailed, err.Error()
		} else {
			cr.Status = CasePassed
		}
		log.Debug("case done", "case", c.Name, "status", cr.Status)
		return cr
	}

	switch {
	case status.Is(err, status.Unimplemented):
		cr.Status, cr.Error = CaseSkipped, err.Error()
	case err != nil:
		cr.Status, cr.Error = CaseFailed, err.Error()
	case !res.Passed():
		cr.Status, cr.Error = CaseFailed, res.Err().Error()
		cr.Result = &res
	default:
		cr.Status = CasePassed
		cr.Result = &res
	}
	if cr.Status == CaseFailed {
		log.Warn("case failed", "case", c.Name, "kind", cr.Kind, "error", cr.Error)
	} else {
		log.Debug("case done", "case", c.Name, "status", cr.Status)
	}
	return cr
}
