package pipeline

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"image"
	"time"

	"github.com/matzehuels/captioner/pkg/caption/animate"
	"github.com/matzehuels/captioner/pkg/codec"
	"github.com/matzehuels/captioner/pkg/errors"
	"github.com/matzehuels/captioner/pkg/observability"
)

// encodeStill writes a captioned still image.
func (r *Runner) encodeStill(ctx context.Context, img image.Image, format string) ([]byte, time.Duration, error) {
	start := time.Now()
	var buf bytes.Buffer
	err := codec.Encode(&buf, img, format)
	elapsed := time.Since(start)
	observability.Caption().OnEncode(ctx, format, buf.Len(), elapsed, err)
	if err != nil {
		return nil, elapsed, err
	}
	return buf.Bytes(), elapsed, nil
}

// encodeAnimation writes a captioned animation as GIF.
func (r *Runner) encodeAnimation(ctx context.Context, seq animate.Sequence) ([]byte, time.Duration, error) {
	start := time.Now()
	var buf bytes.Buffer
	err := seq.EncodeGIF(&buf)
	elapsed := time.Since(start)
	observability.Caption().OnEncode(ctx, codec.FormatGIF, buf.Len(), elapsed, err)
	if err != nil {
		return nil, elapsed, err
	}
	return buf.Bytes(), elapsed, nil
}

// artifactMeta is stored in front of a cached artifact so a cache hit can
// rebuild the Result without decoding the image.
type artifactMeta struct {
	Format   string        `json:"format"`
	Width    int           `json:"width"`
	Height   int           `json:"height"`
	Frames   int           `json:"frames"`
	Upscaled bool          `json:"upscaled"`
	Lines    []string      `json:"lines"`
	Duration time.Duration `json:"duration,omitempty"`
}

// packEntry lays out a cache entry as: uint32 meta length, meta JSON, artifact.
func packEntry(meta artifactMeta, artifact []byte) ([]byte, error) {
	header, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 4+len(header)+len(artifact))
	binary.BigEndian.PutUint32(out, uint32(len(header)))
	copy(out[4:], header)
	copy(out[4+len(header):], artifact)
	return out, nil
}

func unpackEntry(data []byte) (artifactMeta, []byte, error) {
	var meta artifactMeta
	if len(data) < 4 {
		return meta, nil, errors.New(errors.ErrCodeInternal, "cache entry too short")
	}
	n := int(binary.BigEndian.Uint32(data))
	if 4+n > len(data) {
		return meta, nil, errors.New(errors.ErrCodeInternal, "cache entry header truncated")
	}
	if err := json.Unmarshal(data[4:4+n], &meta); err != nil {
		return meta, nil, errors.Wrap(errors.ErrCodeInternal, err, "cache entry header")
	}
	return meta, data[4+n:], nil
}
