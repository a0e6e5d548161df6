package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanBlock(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		format    string
		wantInts  []int
		wantReals []float64
		wantRest  string
		wantErr   bool
	}{
		{
			name:      "BodyHeader",
			input:     " [3 1.000][10 20 30]",
			format:    "id",
			wantInts:  []int{3},
			wantReals: []float64{1},
			wantRest:  "[10 20 30]",
		},
		{
			name:      "Position",
			input:     "[10.5 -20 30e1]",
			format:    "ddd",
			wantReals: []float64{10.5, -20, 300},
			wantRest:  "",
		},
		{
			name:     "ExtraContentIgnored",
			input:    "[1 2 3 4 5] x",
			format:   "ii",
			wantInts: []int{1, 2},
			wantRest: " x",
		},
		{
			name:      "MixedOrder",
			input:     "[0 0.9 2 4]",
			format:    "idii",
			wantInts:  []int{0, 2, 4},
			wantReals: []float64{0.9},
		},
		{name: "MissingOpen", input: "1 2]", format: "ii", wantErr: true},
		{name: "MissingClose", input: "[1 2", format: "ii", wantErr: true},
		{name: "TooFewValues", input: "[1]", format: "ii", wantErr: true},
		{name: "ValuesDoNotCrossBracket", input: "[1][2]", format: "ii", wantErr: true},
		{name: "UnknownFormat", input: "[1]", format: "x", wantErr: true},
		{name: "TypeMismatch", input: "[abc]", format: "d", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b Block
			rest, err := ScanBlock(tt.input, tt.format, &b)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrParse)
				assert.Equal(t, tt.input, rest)
				assert.Empty(t, b.Ints)
				assert.Empty(t, b.Reals)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRest, rest)
			if tt.wantInts == nil {
				assert.Empty(t, b.Ints)
			} else {
				assert.Equal(t, tt.wantInts, b.Ints)
			}
			require.Len(t, b.Reals, len(tt.wantReals))
			for i := range tt.wantReals {
				assert.InDelta(t, tt.wantReals[i], b.Reals[i], 1e-9)
			}
		})
	}
}

func TestScanBlock_FailureKeepsPriorValues(t *testing.T) {
	var b Block
	_, err := ScanBlock("[1 2.0]", "id", &b)
	require.NoError(t, err)

	_, err = ScanBlock("[5 oops]", "id", &b)
	require.Error(t, err)

	assert.Equal(t, []int{1}, b.Ints)
	assert.Equal(t, []float64{2}, b.Reals)

	b.Reset()
	assert.Empty(t, b.Ints)
	assert.Empty(t, b.Reals)
}
