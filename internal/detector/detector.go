package detector

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
	"go.uber.org/zap"

	"github.com/alexiguazio/mask-detection/internal/config"
	"github.com/alexiguazio/mask-detection/internal/predictor"
)

// Detector is the four-hook lifecycle contract the serving shim drives. Load
// runs exactly once before traffic; the remaining hooks compose in sequence
// per request: body -> Preprocess -> Predict -> Postprocess -> response.
type Detector interface {
	Load(ctx context.Context) error
	Preprocess(ctx context.Context, req *PredictRequest) (*Batch, error)
	Predict(ctx context.Context, batch *Batch) ([][]float32, error)
	Postprocess(scores [][]float32) (*PredictResponse, error)
}

// MaskDetector implements Detector for the mask-classification model. All
// fields are written during construction and Load, and read-only afterwards,
// so concurrent hook invocations need no locking.
type MaskDetector struct {
	cfg      config.Config
	classes  map[string]int
	logger   *zap.Logger
	pred     predictor.Predictor
	artifact *predictor.Artifact

	loadPredictor func(*predictor.Artifact, int, int) (predictor.Predictor, error)
}

// NewMaskDetector builds an unloaded detector. The class-label mapping is read
// eagerly; a missing or malformed mapping degrades to nil with a warning
// rather than failing construction.
func NewMaskDetector(cfg config.Config, logger *zap.Logger) *MaskDetector {
	classes := config.LoadClassesMap(cfg.ClassesMapPath)
	if cfg.ClassesMapPath != "" && classes == nil {
		logger.Warn("classes map unavailable, responses stay unlabeled",
			zap.String("path", cfg.ClassesMapPath))
	}
	return &MaskDetector{
		cfg:     cfg,
		classes: classes,
		logger:  logger.Named("mask_detector"),
		loadPredictor: func(artifact *predictor.Artifact, width, height int) (predictor.Predictor, error) {
			return predictor.LoadORT(artifact, width, height)
		},
	}
}

// Load resolves the model artifact and deserializes it into the in-memory
// predictor. Failure here is unrecoverable for the request path and must abort
// startup before any traffic is served.
func (d *MaskDetector) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	artifact, err := predictor.ResolveArtifact(d.cfg.ModelDir)
	if err != nil {
		return err
	}
	pred, err := d.loadPredictor(artifact, d.cfg.ImageWidth, d.cfg.ImageHeight)
	if err != nil {
		return err
	}
	d.artifact = artifact
	d.pred = pred
	d.logger.Info("model loaded",
		zap.String("artifact", artifact.Path),
		zap.Int64("size_bytes", artifact.Size),
		zap.Int("image_width", d.cfg.ImageWidth),
		zap.Int("image_height", d.cfg.ImageHeight))
	return nil
}

// Preprocess decodes and resizes every instance in the request and stacks the
// results into one batch with leading dimension N. Any malformed instance
// fails the whole request with a single error echoing the body.
func (d *MaskDetector) Preprocess(ctx context.Context, req *PredictRequest) (*Batch, error) {
	width, height := d.cfg.ImageWidth, d.cfg.ImageHeight
	pixelsPerImage := width * height * channels

	batch := &Batch{
		Data:     make([]float32, 0, len(req.Instances)*pixelsPerImage),
		N:        len(req.Instances),
		Width:    width,
		Height:   height,
		Channels: channels,
	}

	for i, instance := range req.Instances {
		if err := ctx.Err(); err != nil {
			return nil, &PreprocessError{Body: req, Err: err}
		}
		pixels, err := decodeInstance(instance, width, height)
		if err != nil {
			return nil, &PreprocessError{Body: req, Err: fmt.Errorf("instance %d: %w", i, err)}
		}
		batch.Data = append(batch.Data, pixels...)
	}
	return batch, nil
}

// Predict forwards the stacked batch to the loaded predictor and returns its
// raw output unchanged. Output shape is not validated.
func (d *MaskDetector) Predict(ctx context.Context, batch *Batch) ([][]float32, error) {
	if d.pred == nil {
		return nil, fmt.Errorf("model is not loaded")
	}
	if batch.N <= 0 {
		return nil, fmt.Errorf("batch is empty")
	}
	return d.pred.Predict(ctx, batch.Data, batch.N)
}

// Postprocess reduces the raw output to the maximum score of the first row.
// The classes mapping loaded at construction is not consulted: the response
// contract is a bare probability, so the winning class label is not reported.
func (d *MaskDetector) Postprocess(scores [][]float32) (*PredictResponse, error) {
	if len(scores) == 0 || len(scores[0]) == 0 {
		return nil, fmt.Errorf("predictor returned no scores")
	}
	best := scores[0][0]
	for _, score := range scores[0][1:] {
		if score > best {
			best = score
		}
	}
	return &PredictResponse{MaskProbability: best}, nil
}

// Classes exposes the optional label mapping (nil when unavailable).
func (d *MaskDetector) Classes() map[string]int {
	return d.classes
}

// Artifact reports the resolved model artifact after Load.
func (d *MaskDetector) Artifact() *predictor.Artifact {
	return d.artifact
}

// Close releases the loaded predictor.
func (d *MaskDetector) Close() error {
	if d.pred == nil {
		return nil
	}
	return d.pred.Close()
}

const channels = 3

// decodeInstance turns one base64-encoded image into a resized HWC float32
// pixel grid normalized to [0,1].
func decodeInstance(instance string, width, height int) ([]float32, error) {
	raw, err := base64.StdEncoding.DecodeString(instance)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 payload: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid image payload: %w", err)
	}

	resized := resize.Resize(uint(width), uint(height), img, resize.Lanczos3)

	pixels := make([]float32, 0, width*height*channels)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()
			pixels = append(pixels,
				float32(r)/65535.0,
				float32(g)/65535.0,
				float32(b)/65535.0)
		}
	}
	return pixels, nil
}
