package detector

import (
	"encoding/json"
	"fmt"
)

// PredictRequest is the batch-of-inputs request contract. Each instance is a
// base64-encoded image. A missing instances key decodes to an empty batch.
type PredictRequest struct {
	Instances []string `json:"instances"`
}

// Batch is the stacked input tensor produced by Preprocess: N images laid out
// contiguously as HWC float32 values in [0,1].
type Batch struct {
	Data     []float32
	N        int
	Width    int
	Height   int
	Channels int
}

// PredictResponse is the response contract: the maximum class score of the
// first prediction row.
type PredictResponse struct {
	MaskProbability float32 `json:"Mask probability"`
}

// PreprocessError is the single generic failure produced when any image in the
// batch cannot be decoded. It echoes the offending request body for debugging;
// there is no partial-success path.
type PreprocessError struct {
	Body *PredictRequest
	Err  error
}

// Error renders the failure with the original body inlined.
func (e *PreprocessError) Error() string {
	body, err := json.Marshal(e.Body)
	if err != nil {
		return fmt.Sprintf("failed to preprocess request: %v", e.Err)
	}
	return fmt.Sprintf("failed to preprocess request body %s: %v", body, e.Err)
}

// Unwrap returns the underlying decode failure.
func (e *PreprocessError) Unwrap() error {
	return e.Err
}
