package classify

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Hidden layer activations.
const (
	ActivationReLU = "relu"
	ActivationTanh = "tanh"
)

// MLP is a single-hidden-layer neural network with a softmax output, trained
// by full-batch gradient descent on the cross-entropy loss with L2 penalty
// Alpha. Initialization is seeded, so fitting is deterministic.
type MLP struct {
	HiddenSize   int
	Activation   string
	Alpha        float64
	LearningRate float64
	Epochs       int

	Classes []int
	// The fitted parameters are kept as plain slices so the whole estimator
	// serializes with gob.
	HiddenWeights [][]float64
	HiddenBiases  []float64
	OutputWeights [][]float64
	OutputBiases  []float64
}

const (
	defaultMLPEpochs       = 200
	defaultMLPLearningRate = 0.05
)

func (m *MLP) Fit(X [][]float64, y []int) error {
	if len(X) == 0 || len(X) != len(y) {
		return errors.New("classify: mlp needs a non-empty aligned training set")
	}
	if m.HiddenSize < 1 {
		m.HiddenSize = 100
	}
	if m.Activation == "" {
		m.Activation = ActivationReLU
	}
	if m.Activation != ActivationReLU && m.Activation != ActivationTanh {
		return errors.Errorf("classify: unknown activation %q", m.Activation)
	}
	if m.LearningRate <= 0 {
		m.LearningRate = defaultMLPLearningRate
	}
	if m.Epochs <= 0 {
		m.Epochs = defaultMLPEpochs
	}

	m.Classes = sortedClasses(groupByClass(X, y))
	classIndex := make(map[int]int, len(m.Classes))
	for i, class := range m.Classes {
		classIndex[class] = i
	}

	n := len(X)
	numFeatures := len(X[0])
	numClasses := len(m.Classes)

	input := mat.NewDense(n, numFeatures, nil)
	for i, row := range X {
		input.SetRow(i, row)
	}
	target := mat.NewDense(n, numClasses, nil)
	for i, label := range y {
		target.Set(i, classIndex[label], 1)
	}

	rng := rand.New(rand.NewSource(splitSeed))
	w1 := glorot(rng, numFeatures, m.HiddenSize)
	w2 := glorot(rng, m.HiddenSize, numClasses)
	b1 := mat.NewDense(1, m.HiddenSize, nil)
	b2 := mat.NewDense(1, numClasses, nil)

	var hiddenPre, hidden, logits, probs mat.Dense
	for epoch := 0; epoch < m.Epochs; epoch++ {
		// Forward pass.
		hiddenPre.Mul(input, w1)
		addRowVector(&hiddenPre, b1)
		m.activate(&hidden, &hiddenPre)

		logits.Mul(&hidden, w2)
		addRowVector(&logits, b2)
		softmaxRows(&probs, &logits)

		// Backward pass.
		var dLogits mat.Dense
		dLogits.Sub(&probs, target)
		dLogits.Scale(1/float64(n), &dLogits)

		var dW2 mat.Dense
		dW2.Mul(hidden.T(), &dLogits)
		var dW2Reg mat.Dense
		dW2Reg.Scale(m.Alpha, w2)
		dW2.Add(&dW2, &dW2Reg)

		var dHidden mat.Dense
		dHidden.Mul(&dLogits, w2.T())
		m.activateGrad(&dHidden, &hiddenPre)

		var dW1 mat.Dense
		dW1.Mul(input.T(), &dHidden)
		var dW1Reg mat.Dense
		dW1Reg.Scale(m.Alpha, w1)
		dW1.Add(&dW1, &dW1Reg)

		applyStep(w1, &dW1, m.LearningRate)
		applyStep(w2, &dW2, m.LearningRate)
		applyBiasStep(b1, &dHidden, m.LearningRate)
		applyBiasStep(b2, &dLogits, m.LearningRate)
	}

	m.HiddenWeights = denseToRows(w1)
	m.HiddenBiases = mat.Row(nil, 0, b1)
	m.OutputWeights = denseToRows(w2)
	m.OutputBiases = mat.Row(nil, 0, b2)
	return nil
}

func (m *MLP) Predict(X [][]float64) ([]int, error) {
	if m.HiddenWeights == nil {
		return nil, errors.New("classify: mlp is not fitted")
	}

	out := make([]int, len(X))
	for i, row := range X {
		hidden := make([]float64, len(m.HiddenBiases))
		for h := range hidden {
			sum := m.HiddenBiases[h]
			for f, v := range row {
				sum += v * m.HiddenWeights[f][h]
			}
			hidden[h] = m.activateOne(sum)
		}

		best, bestScore := m.Classes[0], math.Inf(-1)
		for ci := range m.Classes {
			score := m.OutputBiases[ci]
			for h, v := range hidden {
				score += v * m.OutputWeights[h][ci]
			}
			if score > bestScore {
				best, bestScore = m.Classes[ci], score
			}
		}
		out[i] = best
	}
	return out, nil
}

func (m *MLP) activateOne(v float64) float64 {
	if m.Activation == ActivationTanh {
		return math.Tanh(v)
	}
	return math.Max(0, v)
}

func (m *MLP) activate(dst, pre *mat.Dense) {
	dst.Apply(func(_, _ int, v float64) float64 { return m.activateOne(v) }, pre)
}

// activateGrad masks the upstream gradient in place with the activation
// derivative at the pre-activation values.
func (m *MLP) activateGrad(grad, pre *mat.Dense) {
	rows, cols := grad.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := pre.At(i, j)
			if m.Activation == ActivationTanh {
				t := math.Tanh(v)
				grad.Set(i, j, grad.At(i, j)*(1-t*t))
			} else if v <= 0 {
				grad.Set(i, j, 0)
			}
		}
	}
}

func glorot(rng *rand.Rand, in, out int) *mat.Dense {
	limit := math.Sqrt(6 / float64(in+out))
	data := make([]float64, in*out)
	for i := range data {
		data[i] = (rng.Float64()*2 - 1) * limit
	}
	return mat.NewDense(in, out, data)
}

func addRowVector(dst, row *mat.Dense) {
	rows, cols := dst.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			dst.Set(i, j, dst.At(i, j)+row.At(0, j))
		}
	}
}

func softmaxRows(dst, logits *mat.Dense) {
	rows, cols := logits.Dims()
	dst.CloneFrom(logits)
	for i := 0; i < rows; i++ {
		maxVal := math.Inf(-1)
		for j := 0; j < cols; j++ {
			maxVal = math.Max(maxVal, dst.At(i, j))
		}
		sum := 0.0
		for j := 0; j < cols; j++ {
			e := math.Exp(dst.At(i, j) - maxVal)
			dst.Set(i, j, e)
			sum += e
		}
		for j := 0; j < cols; j++ {
			dst.Set(i, j, dst.At(i, j)/sum)
		}
	}
}

func applyStep(w, grad *mat.Dense, lr float64) {
	var scaled mat.Dense
	scaled.Scale(lr, grad)
	w.Sub(w, &scaled)
}

// applyBiasStep subtracts the column sums of grad from the bias row.
func applyBiasStep(bias, grad *mat.Dense, lr float64) {
	rows, cols := grad.Dims()
	for j := 0; j < cols; j++ {
		sum := 0.0
		for i := 0; i < rows; i++ {
			sum += grad.At(i, j)
		}
		bias.Set(0, j, bias.At(0, j)-lr*sum)
	}
}

func denseToRows(m *mat.Dense) [][]float64 {
	rows, _ := m.Dims()
	out := make([][]float64, rows)
	for i := range out {
		out[i] = mat.Row(nil, i, m)
	}
	return out
}
