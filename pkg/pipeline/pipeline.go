// Package pipeline runs the decode → caption → encode pipeline for captioner.
//
// The CLI, the batch runner and the HTTP API all caption through a Runner,
// so validation, caching, timeouts and logging behave the same everywhere.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Decode: identify the input format and decode still or animated images
//  2. Caption: run the caption engine, frame by frame for animations
//  3. Encode: write PNG, JPEG or GIF output
//
// Rendered artifacts are cached by input hash and options; a cache hit skips
// stages 2 and 3.
//
// # Usage
//
//	runner := pipeline.NewRunner(engine, cache, nil, logger)
//	result, err := runner.Execute(ctx, input, pipeline.Options{
//	    Title:   "Cute Cat [1920x1080]",
//	    Profile: "boot",
//	    Flags:   []string{"center"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile("out"+codec.Extension(result.Format), result.Artifact, 0o644)
package pipeline

import (
	"strings"
	"time"

	"github.com/matzehuels/captioner/pkg/caption"
	"github.com/matzehuels/captioner/pkg/caption/compose"
	"github.com/matzehuels/captioner/pkg/codec"
	"github.com/matzehuels/captioner/pkg/errors"
)

// DefaultAnimationTimeout bounds the wall-clock time spent on one animation.
const DefaultAnimationTimeout = 2 * time.Minute

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options describes one caption request.
// This struct supports JSON serialization for batch manifests and API use.
type Options struct {
	Title     string   `json:"title"`
	Profile   string   `json:"profile,omitempty"`
	Flags     []string `json:"flags,omitempty"`
	Author    string   `json:"author,omitempty"`
	Format    string   `json:"format,omitempty"`    // png, jpeg, gif or auto
	Placement string   `json:"placement,omitempty"` // overrides the profile's placement
	Refresh   bool     `json:"refresh,omitempty"`   // ignore cached results
}

// Validate checks option syntax. Profile names are resolved by the Runner.
func (o Options) Validate() error {
	if err := errors.ValidateTitle(o.Title); err != nil {
		return err
	}
	if _, err := caption.ParseFlags(o.Flags); err != nil {
		return err
	}
	if _, err := codec.NormalizeFormat(o.Format); err != nil {
		return err
	}
	if o.Placement != "" {
		if _, err := compose.ParsePlacement(o.Placement); err != nil {
			return err
		}
	}
	return nil
}

// SplitFlags parses a comma-separated flag list as accepted by the API.
func SplitFlags(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// =============================================================================
// Result
// =============================================================================

// Result contains the output of a pipeline run.
type Result struct {
	// Artifact is the encoded output image.
	Artifact []byte

	// Format is the artifact's format (png, jpeg or gif).
	Format string

	// InputHash is the SHA-256 of the input bytes.
	InputHash string

	Width    int
	Height   int
	Frames   int
	Upscaled bool

	// Lines are the caption lines as laid out.
	Lines []string

	// Duration is the total animation time; zero for stills.
	Duration time.Duration

	// Stats contains timing and size information.
	Stats Stats

	// CacheHit is true when Artifact came from the cache.
	CacheHit bool
}

// Stats contains pipeline execution statistics.
type Stats struct {
	InputBytes  int
	OutputBytes int
	DecodeTime  time.Duration
	CaptionTime time.Duration
	EncodeTime  time.Duration
}
