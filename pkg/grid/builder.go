// Package grid expands a (inputs x qualities) benchmark matrix into an
// ordered sequence of job specs.
package grid

import (
	"errors"

	"github.com/psantana5/encbench/pkg/encoder"
	"github.com/psantana5/encbench/pkg/models"
)

// ErrEmptyGrid is returned when either axis of the matrix is empty
var ErrEmptyGrid = errors.New("empty benchmark grid")

// Build produces the full cartesian product of inputs and qualities
// for one encoder, outer loop over inputs, inner loop over qualities.
// The ordering is a contract: result tables correlate positionally
// with the sequence returned here. Build never touches the filesystem.
func Build(inputs []string, qualities []int, profile *encoder.Profile, passthrough []string, outDir string) ([]models.JobSpec, error) {
	if len(inputs) == 0 || len(qualities) == 0 {
		return nil, ErrEmptyGrid
	}

	specs := make([]models.JobSpec, 0, len(inputs)*len(qualities))
	for _, input := range inputs {
		for _, q := range qualities {
			specs = append(specs, models.JobSpec{
				Index:       len(specs),
				Input:       input,
				Quality:     q,
				Encoder:     profile.ID,
				Passthrough: passthrough,
				Output:      profile.OutputPath(input, outDir, q),
			})
		}
	}
	return specs, nil
}
