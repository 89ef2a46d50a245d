package risk

import (
	"sync"
	"time"

	"goquant/internal/errors"
)

// PricingFuture is a single-assignment future holding either a Result or
// a dispatch error. It is resolved exactly once and cannot be cancelled.
type PricingFuture struct {
	mu       sync.Mutex
	done     chan struct{}
	result   Result
	err      error
	resolved bool

	// guard, when set, is consulted before blocking so that requesting a
	// result from inside the scope that is expected to produce it fails
	// fast instead of deadlocking.
	guard func() error
}

// NewFuture creates an unresolved future.
func NewFuture() *PricingFuture {
	return &PricingFuture{done: make(chan struct{})}
}

// ResolvedFuture creates a future already holding a result.
func ResolvedFuture(r Result) *PricingFuture {
	f := NewFuture()
	_ = f.Resolve(r)
	return f
}

// Bind installs the reentrancy guard. Installed by the pricing context
// when the future is created inside an open scope.
func (f *PricingFuture) Bind(guard func() error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.guard = guard
}

// Resolve fulfils the future with a result. Resolving twice is a
// programming error and returns ErrFutureAlreadySet.
func (f *PricingFuture) Resolve(r Result) error {
	return f.complete(r, nil)
}

// Fail fulfils the future with a dispatch error. Failing twice is a
// programming error and returns ErrFutureAlreadySet.
func (f *PricingFuture) Fail(err error) error {
	return f.complete(nil, err)
}

func (f *PricingFuture) complete(r Result, err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resolved {
		return errors.ErrFutureAlreadySet
	}
	f.result = r
	f.err = err
	f.resolved = true
	close(f.done)
	return nil
}

// Done returns a channel closed when the future is resolved.
func (f *PricingFuture) Done() <-chan struct{} {
	return f.done
}

// Resolved reports whether the future holds a value or an error.
func (f *PricingFuture) Resolved() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resolved
}

// Result blocks until the future is resolved and returns its value. A
// dispatch failure is returned as the error; a per-result computation
// failure is returned as an ErrorResult value. Calling Result from inside
// the open scope that would produce the value fails fast with
// ErrResultPendingInScope.
func (f *PricingFuture) Result() (Result, error) {
	f.mu.Lock()
	guard := f.guard
	resolved := f.resolved
	f.mu.Unlock()

	if !resolved && guard != nil {
		if err := guard(); err != nil {
			return nil, err
		}
	}

	<-f.done
	return f.result, f.err
}

// ResultWithin behaves like Result but gives up after the given duration.
func (f *PricingFuture) ResultWithin(d time.Duration) (Result, error) {
	f.mu.Lock()
	guard := f.guard
	resolved := f.resolved
	f.mu.Unlock()

	if !resolved && guard != nil {
		if err := guard(); err != nil {
			return nil, err
		}
	}

	select {
	case <-f.done:
		return f.result, f.err
	case <-time.After(d):
		return nil, errors.ErrTimeout
	}
}

// MultiFuture composes one PricingFuture per requested measure.
type MultiFuture struct {
	measures []Measure
	futures  map[string]*PricingFuture
}

// NewMultiFuture builds a composite over per-measure futures. The measure
// order is preserved in Result.
func NewMultiFuture(measures []Measure, futures map[string]*PricingFuture) *MultiFuture {
	return &MultiFuture{measures: measures, futures: futures}
}

// Future returns the sub-future for one measure, or nil if the measure
// was not requested.
func (m *MultiFuture) Future(measure Measure) *PricingFuture {
	return m.futures[measure.Name]
}

// Measures returns the requested measures in request order.
func (m *MultiFuture) Measures() []Measure {
	return m.measures
}

// Result blocks until every sub-future is resolved and returns values
// keyed by measure name. The first dispatch error encountered (in measure
// order) is returned.
func (m *MultiFuture) Result() (map[string]Result, error) {
	out := make(map[string]Result, len(m.measures))
	for _, measure := range m.measures {
		f := m.futures[measure.Name]
		r, err := f.Result()
		if err != nil {
			return nil, err
		}
		out[measure.Name] = r
	}
	return out, nil
}

// DatedResult is one entry of a historical series.
type DatedResult struct {
	Date  time.Time
	Value Result
}

// SeriesFuture composes one PricingFuture per date of a historical
// calculation. Result order always matches the input date order, not
// completion order.
type SeriesFuture struct {
	dates   []time.Time
	futures []*PricingFuture
}

// NewSeriesFuture builds a date-ordered composite future. dates and
// futures must be parallel slices.
func NewSeriesFuture(dates []time.Time, futures []*PricingFuture) *SeriesFuture {
	return &SeriesFuture{dates: dates, futures: futures}
}

// Dates returns the input dates in order.
func (s *SeriesFuture) Dates() []time.Time {
	return s.dates
}

// Future returns the sub-future at position i.
func (s *SeriesFuture) Future(i int) *PricingFuture {
	return s.futures[i]
}

// Result blocks until every per-date future is resolved and returns the
// series in input date order. The first dispatch error encountered (in
// date order) is returned.
func (s *SeriesFuture) Result() ([]DatedResult, error) {
	out := make([]DatedResult, 0, len(s.dates))
	for i, d := range s.dates {
		r, err := s.futures[i].Result()
		if err != nil {
			return nil, err
		}
		out = append(out, DatedResult{Date: d, Value: r})
	}
	return out, nil
}
