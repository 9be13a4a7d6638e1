package grid

import (
	"errors"
	"testing"

	"github.com/psantana5/encbench/pkg/encoder"
)

func testProfile(t *testing.T) *encoder.Profile {
	t.Helper()
	profile, err := encoder.NewRegistry().Resolve("x264")
	if err != nil {
		t.Fatalf("Resolve(x264) failed: %v", err)
	}
	return profile
}

func TestBuildGridSize(t *testing.T) {
	tests := []struct {
		name      string
		inputs    []string
		qualities []int
		want      int
	}{
		{"single cell", []string{"a.mp4"}, []int{20}, 1},
		{"2x2", []string{"a.mp4", "b.mp4"}, []int{20, 30}, 4},
		{"1x4", []string{"a.mp4"}, []int{10, 20, 30, 40}, 4},
		{"3x2", []string{"a.mp4", "b.mp4", "c.mp4"}, []int{20, 30}, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			specs, err := Build(tt.inputs, tt.qualities, testProfile(t), nil, "")
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			if len(specs) != tt.want {
				t.Errorf("Build() produced %d specs, want %d", len(specs), tt.want)
			}
		})
	}
}

func TestBuildGridOrder(t *testing.T) {
	// Outer loop over inputs, inner loop over qualities: the documented
	// ordering contract for the result table.
	specs, err := Build([]string{"a.mp4", "b.mp4"}, []int{20, 30}, testProfile(t), nil, "")
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	want := []struct {
		input   string
		quality int
	}{
		{"a.mp4", 20},
		{"a.mp4", 30},
		{"b.mp4", 20},
		{"b.mp4", 30},
	}

	for i, w := range want {
		if specs[i].Input != w.input || specs[i].Quality != w.quality {
			t.Errorf("specs[%d] = (%s, %d), want (%s, %d)",
				i, specs[i].Input, specs[i].Quality, w.input, w.quality)
		}
		if specs[i].Index != i {
			t.Errorf("specs[%d].Index = %d, want %d", i, specs[i].Index, i)
		}
	}
}

func TestBuildEmptyGrid(t *testing.T) {
	tests := []struct {
		name      string
		inputs    []string
		qualities []int
	}{
		{"no inputs", nil, []int{20}},
		{"no qualities", []string{"a.mp4"}, nil},
		{"both empty", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.inputs, tt.qualities, testProfile(t), nil, "")
			if !errors.Is(err, ErrEmptyGrid) {
				t.Errorf("Build() error = %v, want ErrEmptyGrid", err)
			}
		})
	}
}

func TestBuildUniqueOutputs(t *testing.T) {
	specs, err := Build([]string{"a.mp4", "b.mp4"}, []int{20, 30}, testProfile(t), nil, "/tmp/work")
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	seen := make(map[string]bool)
	for _, spec := range specs {
		if seen[spec.Output] {
			t.Errorf("duplicate output path %q", spec.Output)
		}
		seen[spec.Output] = true
	}
}
