package project

import "math/rand/v2"

// Operation names a Request Layer operation.
type Operation string

const (
	OpList   Operation = "list"
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Operations lists every operation.
var Operations = []Operation{OpList, OpCreate, OpUpdate, OpDelete}

func (o Operation) verb() string {
	switch o {
	case OpList:
		return "fetch projects"
	case OpCreate:
		return "create project"
	case OpUpdate:
		return "update project"
	case OpDelete:
		return "delete project"
	default:
		return string(o)
	}
}

// FaultPolicy decides whether an otherwise valid operation fails transiently.
type FaultPolicy interface {
	ShouldFail(op Operation) bool
}

// FaultFunc adapts a function to FaultPolicy.
type FaultFunc func(op Operation) bool

func (f FaultFunc) ShouldFail(op Operation) bool { return f(op) }

// NoFaults never fails.
type NoFaults struct{}

func (NoFaults) ShouldFail(Operation) bool { return false }

// FailAlways fails every listed operation, or all operations when none are listed.
func FailAlways(ops ...Operation) FaultPolicy {
	if len(ops) == 0 {
		return FaultFunc(func(Operation) bool { return true })
	}
	set := make(map[Operation]struct{}, len(ops))
	for _, op := range ops {
		set[op] = struct{}{}
	}
	return FaultFunc(func(op Operation) bool {
		_, ok := set[op]
		return ok
	})
}

// DefaultFaultRates are the failure probabilities of the reference backend.
func DefaultFaultRates() map[Operation]float64 {
	return map[Operation]float64{
		OpList:   0.01,
		OpCreate: 0.01,
		OpUpdate: 0.01,
		OpDelete: 0.005,
	}
}

// RandomFaults fails each operation with a fixed probability.
type RandomFaults struct {
	rates  map[Operation]float64
	sample func() float64
}

// NewRandomFaults creates a policy from per-operation rates. A nil source uses math/rand/v2.
func NewRandomFaults(rates map[Operation]float64, source func() float64) *RandomFaults {
	if source == nil {
		source = rand.Float64
	}
	copied := make(map[Operation]float64, len(rates))
	for op, rate := range rates {
		copied[op] = rate
	}
	return &RandomFaults{rates: copied, sample: source}
}

func (r *RandomFaults) ShouldFail(op Operation) bool {
	rate := r.rates[op]
	if rate <= 0 {
		return false
	}
	return r.sample() < rate
}
