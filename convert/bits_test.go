package convert

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToBitsUnorm8FullRange(t *testing.T) {
	buf, err := ToBits(1.0, FormatUnorm8)
	require.NoError(t, err)
	require.Equal(t, []byte{255}, buf)

	buf, err = ToBits(0.0, FormatUnorm8)
	require.NoError(t, err)
	require.Equal(t, []byte{0}, buf)
}

func TestToBitsUnorm8Clamps(t *testing.T) {
	buf, err := ToBits(2.0, FormatUnorm8)
	require.NoError(t, err)
	require.Equal(t, []byte{255}, buf)

	buf, err = ToBits(-1.0, FormatUnorm8)
	require.NoError(t, err)
	require.Equal(t, []byte{0}, buf)
}

func TestToBitsSnorm8Range(t *testing.T) {
	buf, err := ToBits(-1.0, FormatSnorm8)
	require.NoError(t, err)
	require.Equal(t, []byte{0x81}, buf) // -127 as int8, little-endian single byte

	buf, err = ToBits(1.0, FormatSnorm8)
	require.NoError(t, err)
	require.Equal(t, []byte{127}, buf)
}

func TestToBitsUintFitOutOfRangeErrors(t *testing.T) {
	_, err := ToBits(300, FormatUint8)
	require.Error(t, err)

	_, err = ToBits(-1, FormatUint8)
	require.Error(t, err)
}

func TestToBitsSintFitInRange(t *testing.T) {
	buf, err := ToBits(-5, FormatSint8)
	require.NoError(t, err)
	require.Equal(t, []byte{byte(int8(-5))}, buf)
}

func TestToBitsFloat32PassThrough(t *testing.T) {
	buf, err := ToBits(1.5, FormatFloat32)
	require.NoError(t, err)
	require.Len(t, buf, 4)
}

func TestRoundHalfToEven(t *testing.T) {
	require.Equal(t, 2.0, roundHalfToEven(1.5))
	require.Equal(t, 2.0, roundHalfToEven(2.5))
	require.Equal(t, 4.0, roundHalfToEven(3.5))
}
