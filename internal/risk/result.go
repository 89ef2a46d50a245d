package risk

import "fmt"

// Result is a single computed risk value. A per-instrument computation
// failure is a Result too (ErrorResult), surfaced as data rather than an
// error so a batch can mix successes and failures.
type Result interface {
	// IsError reports whether the result is a per-result computation
	// failure. Error results are never cached.
	IsError() bool
	String() string
}

// ScalarResult is a numeric risk value.
type ScalarResult float64

func (r ScalarResult) IsError() bool  { return false }
func (r ScalarResult) String() string { return fmt.Sprintf("%g", float64(r)) }

// Value returns the underlying number.
func (r ScalarResult) Value() float64 { return float64(r) }

// StringResult is a non-numeric risk value, e.g. a currency or a label.
type StringResult string

func (r StringResult) IsError() bool  { return false }
func (r StringResult) String() string { return string(r) }

// ErrorResult marks an individual risk value that could not be computed.
type ErrorResult struct {
	Message string
}

func (r ErrorResult) IsError() bool  { return true }
func (r ErrorResult) String() string { return "error: " + r.Message }
