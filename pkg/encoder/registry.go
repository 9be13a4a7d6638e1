package encoder

import (
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// ErrUnknownEncoder is returned when an encoder id is not in the registry
var ErrUnknownEncoder = errors.New("unknown encoder")

// Argument template placeholders. Templates are static data; building
// an invocation is substitution, not branching in callers.
const (
	phInput   = "{input}"
	phOutput  = "{output}"
	phQuality = "{q}"
	phExtra   = "{extra}" // insertion point for passthrough arguments
)

// Profile describes how to invoke one encoder: the executable, a fixed
// argument template, and where quality and passthrough flags go.
// Profiles are created once at startup and never mutated.
type Profile struct {
	ID          string
	Exe         string
	Args        []string // template with placeholders
	Ext         string   // artifact extension, no dot
	QualityKind string   // "crf", "quantizer" or "bitrate" (informational)

	// DecodeArgs, when set, is the post-encode decode template run
	// against the artifact before quality measurement, for bitstreams
	// the measurement pipeline cannot read directly. Same executable,
	// {input} is the artifact, {output} the decoded intermediate.
	DecodeArgs []string
}

// BuildArgs expands the profile template into a concrete argument list.
// Passthrough arguments are spliced in verbatim at the {extra} marker;
// if they conflict with generated flags, last-specified-wins is the
// encoder's own convention and is not validated here.
func (p *Profile) BuildArgs(input, output string, quality int, passthrough []string) []string {
	q := strconv.Itoa(quality)
	args := make([]string, 0, len(p.Args)+len(passthrough))
	for _, a := range p.Args {
		if a == phExtra {
			args = append(args, passthrough...)
			continue
		}
		a = strings.ReplaceAll(a, phInput, input)
		a = strings.ReplaceAll(a, phOutput, output)
		a = strings.ReplaceAll(a, phQuality, q)
		args = append(args, a)
	}
	return args
}

// OutputPath derives the artifact path for one grid cell. The name is
// a pure function of (input basename, encoder, quality) so concurrent
// jobs never share a file.
func (p *Profile) OutputPath(input, outDir string, quality int) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	name := fmt.Sprintf("%s_%s_q%d.%s", base, p.ID, quality, p.Ext)
	if outDir == "" {
		return name
	}
	return filepath.Join(outDir, name)
}

// NeedsDecode reports whether the artifact must be decoded before it
// can be measured
func (p *Profile) NeedsDecode() bool {
	return len(p.DecodeArgs) > 0
}

// DecodedPath derives the intermediate path the decode step writes for
// an artifact
func (p *Profile) DecodedPath(artifact string) string {
	return strings.TrimSuffix(artifact, filepath.Ext(artifact)) + "_decoded.y4m"
}

// BuildDecodeArgs expands the decode template for one artifact
func (p *Profile) BuildDecodeArgs(artifact, decoded string) []string {
	args := make([]string, 0, len(p.DecodeArgs))
	for _, a := range p.DecodeArgs {
		a = strings.ReplaceAll(a, phInput, artifact)
		a = strings.ReplaceAll(a, phOutput, decoded)
		args = append(args, a)
	}
	return args
}

// Available reports whether the profile's executable is on PATH
func (p *Profile) Available() bool {
	_, err := exec.LookPath(p.Exe)
	return err == nil
}

// Registry maps encoder ids to invocation profiles. Built once at
// startup from static data, read-only thereafter.
type Registry struct {
	profiles map[string]*Profile
}

// NewRegistry returns the registry of supported encoders.
//
// x264 and dsv2 take CRF-style quality; snow uses the ffmpeg quantizer
// scale; dirac (VC-2 via ffmpeg) is bitrate-driven, quality read as
// Mbit/s. Extensions match what each tool actually emits.
func NewRegistry() *Registry {
	profiles := []*Profile{
		{
			ID:  "x264",
			Exe: "x264",
			Args: []string{
				"--crf", phQuality,
				phExtra,
				"-o", phOutput,
				phInput,
			},
			Ext:         "264",
			QualityKind: "crf",
		},
		{
			ID:  "dsv2",
			Exe: "dsv2",
			Args: []string{
				"e",
				"-inp=" + phInput,
				"-out=" + phOutput,
				"-qp=" + phQuality,
				"-y",
				phExtra,
			},
			Ext:         "dsv",
			QualityKind: "crf",
			// DSV2 bitstreams are not always decodable with ffmpeg, so
			// quality is measured against a y4m decoded by the tool itself
			DecodeArgs: []string{
				"d",
				"-inp=" + phInput,
				"-out=" + phOutput,
				"-y4m=1",
				"-y",
			},
		},
		{
			ID:  "snow",
			Exe: "ffmpeg",
			Args: []string{
				"-y", "-hide_banner", "-loglevel", "error",
				"-i", phInput,
				"-pix_fmt", "yuv420p",
				"-c:v", "snow",
				"-q:v", phQuality,
				phExtra,
				phOutput,
			},
			Ext:         "avi",
			QualityKind: "quantizer",
		},
		{
			ID:  "dirac",
			Exe: "ffmpeg",
			Args: []string{
				"-y", "-hide_banner", "-loglevel", "error",
				"-i", phInput,
				"-pix_fmt", "yuv420p",
				"-strict", "-2",
				"-c:v", "vc2",
				"-b:v", phQuality + "M",
				phExtra,
				phOutput,
			},
			Ext:         "mkv",
			QualityKind: "bitrate",
		},
	}

	r := &Registry{profiles: make(map[string]*Profile, len(profiles))}
	for _, p := range profiles {
		r.profiles[p.ID] = p
	}
	return r
}

// Resolve looks up a profile by encoder id
func (r *Registry) Resolve(id string) (*Profile, error) {
	p, ok := r.profiles[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: %s)", ErrUnknownEncoder, id, strings.Join(r.IDs(), ", "))
	}
	return p, nil
}

// IDs returns the supported encoder ids in sorted order
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.profiles))
	for id := range r.profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
