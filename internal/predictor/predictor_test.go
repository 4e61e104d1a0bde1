package predictor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func writeArtifact(t *testing.T, dir, name string, payload []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, payload, 0o600); err != nil {
		t.Fatalf("failed to write artifact: %v", err)
	}
	return path
}

func TestResolveArtifactFindsH5(t *testing.T) {
	dir := t.TempDir()
	path := writeArtifact(t, dir, "mask_model.h5", []byte("weights"))

	artifact, err := ResolveArtifact(dir)
	assert.NoError(t, err)
	assert.Equal(t, path, artifact.Path)
	assert.Equal(t, int64(len("weights")), artifact.Size)
}

func TestResolveArtifactPrefersONNXExport(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "mask_model.h5", []byte("keras"))
	path := writeArtifact(t, dir, "mask_model.onnx", []byte("onnx"))

	artifact, err := ResolveArtifact(dir)
	assert.NoError(t, err)
	assert.Equal(t, path, artifact.Path)
}

func TestResolveArtifactIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "notes.txt", []byte("readme"))
	path := writeArtifact(t, dir, "model.h5", []byte("weights"))

	artifact, err := ResolveArtifact(dir)
	assert.NoError(t, err)
	assert.Equal(t, path, artifact.Path)
}

func TestResolveArtifactMissingDirectory(t *testing.T) {
	_, err := ResolveArtifact(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestResolveArtifactNoCandidates(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "notes.txt", []byte("readme"))

	_, err := ResolveArtifact(dir)
	assert.Error(t, err)
}

func TestResolveArtifactEmptyFile(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "model.h5", nil)

	_, err := ResolveArtifact(dir)
	assert.Error(t, err)
}
