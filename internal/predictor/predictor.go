package predictor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Predictor is the in-memory model loaded once before traffic is served.
// Implementations must be safe for concurrent Predict calls.
type Predictor interface {
	// Predict runs inference on a batch laid out as NHWC float32 values and
	// returns one row of class scores per input image.
	Predict(ctx context.Context, input []float32, batchSize int) ([][]float32, error)
	Close() error
}

// Artifact describes a resolved model file.
type Artifact struct {
	Path string
	Size int64
}

// ResolveArtifact locates the model artifact inside modelDir. Keras exports
// carry the .h5 extension; when a converted .onnx export sits next to one it
// wins, since that is the format the in-process runtime deserializes. A
// missing, empty, or unreadable artifact is a fatal startup condition for the
// caller.
func ResolveArtifact(modelDir string) (*Artifact, error) {
	if strings.TrimSpace(modelDir) == "" {
		return nil, fmt.Errorf("model directory is required")
	}
	dir := filepath.Clean(modelDir)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read model directory %q: %w", dir, err)
	}

	var candidates []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".onnx", ".h5":
			candidates = append(candidates, entry.Name())
		}
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no model artifact (.h5 or .onnx) found in %q", dir)
	}

	sort.Slice(candidates, func(i, j int) bool {
		iONNX := strings.EqualFold(filepath.Ext(candidates[i]), ".onnx")
		jONNX := strings.EqualFold(filepath.Ext(candidates[j]), ".onnx")
		if iONNX != jONNX {
			return iONNX
		}
		return candidates[i] < candidates[j]
	})

	path := filepath.Join(dir, candidates[0])
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat model artifact %q: %w", path, err)
	}
	if info.Size() <= 0 {
		return nil, fmt.Errorf("model artifact %q is empty", path)
	}

	return &Artifact{Path: path, Size: info.Size()}, nil
}
