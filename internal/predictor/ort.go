package predictor

import (
	"context"
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
)

// ORTPredictor runs the model in-process through ONNX Runtime. The session is
// created once at load time and is read-only afterwards; batch size varies per
// request, so tensors are built per call against a dynamic session.
type ORTPredictor struct {
	session *ort.DynamicAdvancedSession
	width   int
	height  int
}

// LoadORT initializes the ONNX Runtime environment and deserializes the
// resolved artifact into an in-memory session expecting NHWC input of the
// configured spatial dimensions.
func LoadORT(artifact *Artifact, width, height int) (*ORTPredictor, error) {
	if artifact == nil {
		return nil, fmt.Errorf("model artifact is required")
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
	}

	session, err := ort.NewDynamicAdvancedSession(artifact.Path,
		[]string{"input"}, []string{"output"}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load model %q: %w", artifact.Path, err)
	}

	return &ORTPredictor{
		session: session,
		width:   width,
		height:  height,
	}, nil
}

// Predict forwards the batch to the loaded session and returns one score row
// per image. Output shape is taken from the runtime as-is, without validation.
func (p *ORTPredictor) Predict(ctx context.Context, input []float32, batchSize int) ([][]float32, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch is empty")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	inputShape := ort.NewShape(int64(batchSize), int64(p.height), int64(p.width), 3)
	inputTensor, err := ort.NewTensor(inputShape, input)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputs := []ort.Value{nil}
	if err := p.session.Run([]ort.Value{inputTensor}, outputs); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	defer outputs[0].Destroy()

	outputTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output tensor type %T", outputs[0])
	}

	data := outputTensor.GetData()
	shape := outputTensor.GetShape()
	rows := batchSize
	if len(shape) > 0 && shape[0] > 0 {
		rows = int(shape[0])
	}
	rowLen := len(data) / rows

	scores := make([][]float32, rows)
	for i := 0; i < rows; i++ {
		row := make([]float32, rowLen)
		copy(row, data[i*rowLen:(i+1)*rowLen])
		scores[i] = row
	}
	return scores, nil
}

// Close releases the session and the runtime environment.
func (p *ORTPredictor) Close() error {
	if p.session != nil {
		if err := p.session.Destroy(); err != nil {
			return err
		}
		p.session = nil
	}
	return ort.DestroyEnvironment()
}
