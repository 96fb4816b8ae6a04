package pdfexport

import "runtime"

// Concurrency bounds.
const (
	// ConcurrencyAuto derives the limit from GOMAXPROCS.
	ConcurrencyAuto = -1

	MinConcurrency = 1
	MaxConcurrency = 8

	// cpuDivisor leaves headroom for the browser's own processes.
	cpuDivisor = 2
)

// ResolveConcurrency returns how many of targets run at once.
// Priority: explicit n > all targets (n == 0) > GOMAXPROCS-based (auto).
// The result is never above targets nor below 1.
func ResolveConcurrency(n, targets int) int {
	if targets < MinConcurrency {
		return MinConcurrency
	}

	switch {
	case n == 0:
		n = targets
	case n < 0:
		// GOMAXPROCS is adjusted by automaxprocs in containers.
		n = runtime.GOMAXPROCS(0) / cpuDivisor
		n = max(MinConcurrency, min(n, MaxConcurrency))
	}
	return min(n, targets)
}
