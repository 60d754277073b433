package prng

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKnownSequences(t *testing.T) {
	cases := map[uint32][]float64{
		0:         {0.26642920868471265, 0.0003297457005828619, 0.2232720274478197},
		1:         {0.6270739405881613, 0.002735721180215478, 0.5274470399599522},
		42:        {0.6011037519201636, 0.44829055899754167, 0.8524657934904099},
		123456789: {0.2577907438389957, 0.9707721115555614, 0.7853280142880976},
	}

	for seed, want := range cases {
		gen := Generator(seed)
		for i, w := range want {
			require.Equal(t, w, gen(), "seed %d draw %d", seed, i)
		}
	}
}

func TestSameSeedSameStream(t *testing.T) {
	require := require.New(t)

	a, b := NewMulberry32(0x843fdc6c), NewMulberry32(0x843fdc6c)
	for i := 0; i < 1000; i++ {
		va := a.Float64()
		require.Equal(va, b.Float64())
		require.GreaterOrEqual(va, 0.0)
		require.Less(va, 1.0)
	}
}

func TestFirstDraw(t *testing.T) {
	require := require.New(t)

	require.Equal(0.6971229687333107, FirstDraw(0x843fdc6c))
	require.Equal(0.011704753153026104, FirstDraw(7))
	require.Equal(0.7342509443406016, FirstDraw(2))
	require.Equal(FirstDraw(9), Generator(9)())
}
