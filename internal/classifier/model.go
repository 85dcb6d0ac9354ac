package classifier

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/straja-ai/arrhythmia/internal/diagnosis"
	"github.com/straja-ai/arrhythmia/internal/redact"
	"github.com/straja-ai/arrhythmia/internal/signal"
)

const (
	// DefaultModelFile is the model file name inside a bundle dir.
	DefaultModelFile = "model.onnx"
	// LabelMapFile optionally pins the class order of the bundle.
	LabelMapFile = "label_map.json"

	OutputProbabilities = "probabilities"
	OutputLogits        = "logits"
)

// RuntimeSettings controls how the ONNX model is loaded and run.
type RuntimeSettings struct {
	ModelFile         string
	SharedLibraryPath string
	// OutputKind is OutputProbabilities (softmax already in the graph) or OutputLogits.
	OutputKind   string
	MaxSessions  int
	IntraThreads int
	InterThreads int
}

// Model runs the arrhythmia classifier through onnxruntime. Each pooled
// session owns its input/output tensors, so concurrent Classify calls never
// share buffers.
type Model struct {
	modelPath    string
	inputName    string
	outputName   string
	inputShape   ort.Shape
	outputWidth  int
	applySoftmax bool

	sessions chan *session
	poolSize int
}

type session struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

// LoadModel initializes onnxruntime and opens a pool of sessions for the
// model in bundleDir.
func LoadModel(bundleDir string, rt RuntimeSettings) (*Model, error) {
	if strings.TrimSpace(bundleDir) == "" {
		return nil, errors.New("bundleDir is empty")
	}
	modelFile := rt.ModelFile
	if modelFile == "" {
		modelFile = DefaultModelFile
	}
	modelPath := filepath.Join(bundleDir, modelFile)
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file missing at %s: %w", modelPath, err)
	}

	labelsPath := filepath.Join(bundleDir, LabelMapFile)
	if _, err := os.Stat(labelsPath); err == nil {
		labels, err := loadLabels(labelsPath)
		if err != nil {
			return nil, fmt.Errorf("load labels: %w", err)
		}
		if err := checkLabels(labels); err != nil {
			return nil, fmt.Errorf("bundle label map: %w", err)
		}
	}

	libPath := ResolveSharedLibraryPath(rt.SharedLibraryPath, bundleDir)
	if libPath == "" {
		return nil, fmt.Errorf("onnxruntime shared library not found; set %s or install the runtime", SharedLibraryEnv)
	}
	ort.SetSharedLibraryPath(libPath)
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("initialize onnxruntime: %w", err)
		}
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("inspect model: %w", err)
	}
	if len(inputs) != 1 {
		return nil, fmt.Errorf("model must have exactly one input, found %d", len(inputs))
	}
	if len(outputs) == 0 {
		return nil, errors.New("model has no outputs")
	}

	inputShape, err := inputShapeFor(inputs[0].Dimensions)
	if err != nil {
		return nil, err
	}
	outputWidth := outputWidthFor(outputs[0].Dimensions)

	kind := strings.ToLower(strings.TrimSpace(rt.OutputKind))
	if kind == "" {
		kind = OutputProbabilities
	}
	if kind != OutputProbabilities && kind != OutputLogits {
		return nil, fmt.Errorf("unknown output kind %q", rt.OutputKind)
	}

	poolSize := rt.MaxSessions
	if poolSize <= 0 {
		poolSize = 1
	}

	m := &Model{
		modelPath:    modelPath,
		inputName:    inputs[0].Name,
		outputName:   outputs[0].Name,
		inputShape:   inputShape,
		outputWidth:  outputWidth,
		applySoftmax: kind == OutputLogits,
		sessions:     make(chan *session, poolSize),
		poolSize:     poolSize,
	}
	for i := 0; i < poolSize; i++ {
		s, err := m.newSession(rt.IntraThreads, rt.InterThreads)
		if err != nil {
			m.poolSize = i
			m.Close()
			return nil, fmt.Errorf("create session %d: %w", i, err)
		}
		m.sessions <- s
	}

	redact.Logf("classifier: loaded %s input=%s%v output=%s[%d] sessions=%d", modelFile, m.inputName, []int64(inputShape), m.outputName, outputWidth, poolSize)
	return m, nil
}

func (m *Model) newSession(intraThreads, interThreads int) (*session, error) {
	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("create session options: %w", err)
	}
	defer opts.Destroy()

	if err := opts.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableAll); err != nil {
		return nil, fmt.Errorf("set graph optimization: %w", err)
	}
	if intraThreads > 0 {
		if err := opts.SetIntraOpNumThreads(intraThreads); err != nil {
			return nil, fmt.Errorf("set intra threads: %w", err)
		}
	}
	if interThreads > 0 {
		if err := opts.SetInterOpNumThreads(interThreads); err != nil {
			return nil, fmt.Errorf("set inter threads: %w", err)
		}
	}

	input, err := ort.NewEmptyTensor[float32](m.inputShape)
	if err != nil {
		return nil, fmt.Errorf("allocate input tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(m.outputWidth)))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("allocate output tensor: %w", err)
	}

	s, err := ort.NewAdvancedSession(
		m.modelPath,
		[]string{m.inputName},
		[]string{m.outputName},
		[]ort.Value{input},
		[]ort.Value{output},
		opts,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("create onnx session: %w", err)
	}
	return &session{session: s, input: input, output: output}, nil
}

// Classify runs one forward pass. It blocks until a pooled session is free or
// ctx is done.
func (m *Model) Classify(ctx context.Context, t signal.Tensor) ([]float32, error) {
	if m == nil || m.sessions == nil {
		return nil, ErrUnavailable
	}
	if t.Len() != signal.TensorLength {
		return nil, fmt.Errorf("tensor has %d timesteps, model expects %d", t.Len(), signal.TensorLength)
	}

	var s *session
	select {
	case s = <-m.sessions:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { m.sessions <- s }()

	copy(s.input.GetData(), t.Float32())
	if err := s.session.Run(); err != nil {
		return nil, fmt.Errorf("onnx run: %w", err)
	}

	out := append([]float32(nil), s.output.GetData()...)
	if m.applySoftmax {
		out = softmax(out)
	}
	return out, nil
}

// ModelFile is the path of the loaded model.
func (m *Model) ModelFile() string {
	if m == nil {
		return ""
	}
	return m.modelPath
}

// Close destroys every pooled session. It waits for in-flight calls to hand
// their session back.
func (m *Model) Close() error {
	if m == nil || m.sessions == nil {
		return nil
	}
	var errs []error
	for i := 0; i < m.poolSize; i++ {
		s := <-m.sessions
		if s == nil {
			continue
		}
		if err := s.session.Destroy(); err != nil {
			errs = append(errs, err)
		}
		s.input.Destroy()
		s.output.Destroy()
	}
	m.sessions = nil
	return errors.Join(errs...)
}

// inputShapeFor fills dynamic dims and checks the model takes one beat.
func inputShapeFor(dims ort.Shape) (ort.Shape, error) {
	if len(dims) == 0 {
		return ort.NewShape(1, signal.TensorLength, 1), nil
	}
	shape := make([]int64, len(dims))
	total := int64(1)
	for i, d := range dims {
		if d <= 0 {
			d = 1
		}
		shape[i] = d
		total *= d
	}
	if total != signal.TensorLength {
		return nil, fmt.Errorf("model input %v does not hold %d timesteps", []int64(dims), signal.TensorLength)
	}
	return ort.NewShape(shape...), nil
}

func outputWidthFor(dims ort.Shape) int {
	if len(dims) == 0 {
		return diagnosis.CategoryCount
	}
	last := dims[len(dims)-1]
	if last <= 0 {
		return diagnosis.CategoryCount
	}
	return int(last)
}

func softmax(logits []float32) []float32 {
	if len(logits) == 0 {
		return nil
	}
	maxVal := logits[0]
	for _, v := range logits[1:] {
		if v > maxVal {
			maxVal = v
		}
	}
	sum := 0.0
	out := make([]float32, len(logits))
	for i, v := range logits {
		exp := math.Exp(float64(v - maxVal))
		out[i] = float32(exp)
		sum += exp
	}
	if sum == 0 {
		return out
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / sum)
	}
	return out
}
