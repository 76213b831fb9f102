package tensor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatMulIdentity(t *testing.T) {
	x := Matrix{Rows: 1, Cols: 2, Data: []float32{1, 2}}
	w := Matrix{Rows: 2, Cols: 2, Data: []float32{1, 0, 0, 1}}
	out := MatMul(x, w)
	assert.Equal(t, []float32{1, 2}, out.Data)
}

func TestEmbeddingLookup(t *testing.T) {
	table := Matrix{Rows: 3, Cols: 2, Data: []float32{0, 0, 1, 1, 2, 2}}
	out := EmbeddingLookup(table, []int32{2, 0})
	assert.Equal(t, []float32{2, 2, 0, 0}, out.Data)
}

func TestRMSNormUnitWeight(t *testing.T) {
	x := Matrix{Rows: 1, Cols: 4, Data: []float32{1, 1, 1, 1}}
	out := RMSNorm(x, []float32{1, 1, 1, 1}, 1e-6)
	for _, v := range out.Data {
		assert.InDelta(t, 1.0, v, 1e-3)
	}
}

func TestSoftmaxSumsToOne(t *testing.T) {
	row := []float32{1, 2, 3}
	Softmax(row)
	var sum float32
	for _, v := range row {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-5)
}

func TestSoftmaxMonotonic(t *testing.T) {
	row := []float32{1, 2, 3}
	Softmax(row)
	assert.True(t, row[0] < row[1])
	assert.True(t, row[1] < row[2])
}

func TestCausalSelfAttentionSinglePositionMatchesSelf(t *testing.T) {
	headDim := 2
	q := Matrix{Rows: 1, Cols: headDim, Data: []float32{1, 0}}
	k := Matrix{Rows: 1, Cols: headDim, Data: []float32{1, 0}}
	v := Matrix{Rows: 1, Cols: headDim, Data: []float32{5, 7}}
	out := CausalSelfAttention(q, k, v, 1, 1, headDim, 0)
	assert.InDelta(t, 5, out.Data[0], 1e-4)
	assert.InDelta(t, 7, out.Data[1], 1e-4)
}

func TestCausalSelfAttentionMasksFuturePositions(t *testing.T) {
	headDim := 1
	q := Matrix{Rows: 2, Cols: headDim, Data: []float32{1, 1}}
	k := Matrix{Rows: 2, Cols: headDim, Data: []float32{1, 1}}
	v := Matrix{Rows: 2, Cols: headDim, Data: []float32{10, 999}}
	out := CausalSelfAttention(q, k, v, 1, 1, headDim, 0)
	assert.InDelta(t, 10, out.Data[0], 1e-3)
}

func TestSiLUZeroIsZero(t *testing.T) {
	assert.InDelta(t, 0, SiLU(0), 1e-6)
}

func TestGeLUZeroIsZero(t *testing.T) {
	assert.InDelta(t, 0, GeLU(0), 1e-6)
}

func TestRotaryEmbeddingPreservesNorm(t *testing.T) {
	x := Matrix{Rows: 1, Cols: 4, Data: []float32{1, 2, 3, 4}}
	before := norm(x.Data)
	RotaryEmbedding(x, 5, 10000.0)
	after := norm(x.Data)
	assert.InDelta(t, before, after, 1e-3)
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
