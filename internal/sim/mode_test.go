package sim

import (
	"errors"
	"testing"
)

func TestMode_BatchSize(t *testing.T) {
	tests := []struct {
		name string
		mode Mode
		rats int
		want int
	}{
		{"synchronous", Synchronous{}, 1000, 1000},
		{"rat order", RatOrder{}, 1000, 1},
		{"batched default", Batched{}, 1000, 20},
		{"batched rounds up", Batched{Fraction: 0.02}, 125, 3},
		{"batched rounds down", Batched{Fraction: 0.02}, 120, 2},
		{"batched clamps to one", Batched{Fraction: 0.001}, 10, 1},
		{"batched whole population", Batched{Fraction: 1}, 37, 37},
		{"single rat", Batched{}, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.mode.BatchSize(tt.rats); got != tt.want {
				t.Errorf("BatchSize(%d) = %d, want %d", tt.rats, got, tt.want)
			}
		})
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		token    string
		fraction float64
		want     Mode
		wantErr  bool
	}{
		{"synchronous", 0, Synchronous{}, false},
		{"S", 0, Synchronous{}, false},
		{"rat-order", 0, RatOrder{}, false},
		{"r", 0, RatOrder{}, false},
		{"batched", 0.05, Batched{Fraction: 0.05}, false},
		{" b ", 0, Batched{}, false},
		{"batched", 1.5, nil, true},
		{"random", 0, nil, true},
		{"", 0, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, err := ParseMode(tt.token, tt.fraction)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseMode(%q) = %v, want error", tt.token, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseMode(%q): %v", tt.token, err)
			}
			if got != tt.want {
				t.Errorf("ParseMode(%q) = %#v, want %#v", tt.token, got, tt.want)
			}
		})
	}

	if _, err := ParseMode("x", 0); !errors.Is(err, ErrUnknownMode) {
		t.Errorf("unknown token error = %v, want ErrUnknownMode", err)
	}
}

func TestComputeStats(t *testing.T) {
	st := ComputeStats([]int32{0, 2, 4, 2})
	if st.Nodes != 4 || st.Rats != 8 || st.Empty != 1 {
		t.Errorf("Nodes/Rats/Empty = %d/%d/%d", st.Nodes, st.Rats, st.Empty)
	}
	if st.Min != 0 || st.Max != 4 {
		t.Errorf("Min/Max = %d/%d, want 0/4", st.Min, st.Max)
	}
	if st.Mean != 2 || st.Variance != 2 {
		t.Errorf("Mean/Variance = %v/%v, want 2/2", st.Mean, st.Variance)
	}

	if empty := ComputeStats(nil); empty.Nodes != 0 || empty.Mean != 0 {
		t.Errorf("ComputeStats(nil) = %+v", empty)
	}
}
