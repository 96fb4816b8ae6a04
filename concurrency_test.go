package pdfexport

import (
	"runtime"
	"testing"
)

func TestResolveConcurrency(t *testing.T) {
	t.Parallel()

	auto := max(MinConcurrency, min(runtime.GOMAXPROCS(0)/cpuDivisor, MaxConcurrency))

	tests := []struct {
		name    string
		n       int
		targets int
		want    int
	}{
		{"sequential", 1, 5, 1},
		{"bounded", 3, 5, 3},
		{"bounded above targets", 10, 5, 5},
		{"all parallel", 0, 5, 5},
		{"auto", ConcurrencyAuto, 100, auto},
		{"auto capped by targets", ConcurrencyAuto, 1, 1},
		{"no targets", 0, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ResolveConcurrency(tt.n, tt.targets); got != tt.want {
				t.Errorf("ResolveConcurrency(%d, %d) = %d, want %d", tt.n, tt.targets, got, tt.want)
			}
		})
	}
}

func TestWithConcurrency_PanicsOnInvalid(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Error("WithConcurrency(-2) did not panic")
		}
	}()
	WithConcurrency(-2)
}
