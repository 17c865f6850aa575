package encoding

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeOneUTF8Valid(t *testing.T) {
	r, n, ok := DecodeOne([]byte("é"), Width1)
	require.True(t, ok)
	require.Equal(t, 'é', r)
	require.Equal(t, 2, n)
}

func TestDecodeOneUTF8Invalid(t *testing.T) {
	r, n, ok := DecodeOne([]byte{0xFF}, Width1)
	require.False(t, ok)
	require.Equal(t, replacementRun, r)
	require.Equal(t, 1, n)
}

func TestDecodeOneUTF16SurrogatePair(t *testing.T) {
	// U+1F600 GRINNING FACE, little-endian surrogate pair D83D DE00
	r, n, ok := DecodeOne([]byte{0x3D, 0xD8, 0x00, 0xDE}, Width2)
	require.True(t, ok)
	require.Equal(t, rune(0x1F600), r)
	require.Equal(t, 4, n)
}

func TestDecodeOneUTF16LoneSurrogate(t *testing.T) {
	_, n, ok := DecodeOne([]byte{0x3D, 0xD8}, Width2)
	require.False(t, ok)
	require.Equal(t, 2, n)
}

func TestDecodeOneUTF32OutOfRange(t *testing.T) {
	_, _, ok := DecodeOne([]byte{0, 0, 0x11, 0}, Width4) // 0x00110000
	require.False(t, ok)
}

func TestEncodeOneRejectsSurrogate(t *testing.T) {
	_, err := EncodeOne(nil, 0xD800, Width1)
	require.Error(t, err)
}

func TestEscapeRuneNamed(t *testing.T) {
	require.Equal(t, `\n`, EscapeRune('\n', Width1, '"'))
	require.Equal(t, `\"`, EscapeRune('"', Width1, '"'))
	require.Equal(t, "a", EscapeRune('a', Width1, '"'))
}

func TestEscapeRuneOctalWidth1(t *testing.T) {
	require.Equal(t, `\303`, EscapeRune(0xC3, Width1, '"'))
}

func TestEscapeRuneBracedWhenOutOfRange(t *testing.T) {
	got := EscapeRune(0x10FFFF+1, Width2, '"')
	require.Contains(t, got, `\x{`)
}

func TestUnescapeNamedAndOctal(t *testing.T) {
	r, n, err := Unescape("n", Width1)
	require.NoError(t, err)
	require.Equal(t, '\n', r)
	require.Equal(t, 1, n)

	r, n, err = Unescape("101", Width1)
	require.NoError(t, err)
	require.Equal(t, rune('A'), r)
	require.Equal(t, 3, n)
}

func TestUnescapeHexBraced(t *testing.T) {
	r, n, err := Unescape(`x{1F600}`, Width4)
	require.NoError(t, err)
	require.Equal(t, rune(0x1F600), r)
	require.Equal(t, len(`x{1F600}`), n)
}

func TestUnescapeSurrogateRejected(t *testing.T) {
	_, _, err := Unescape(`uD800`, Width2)
	require.Error(t, err)
}

func TestUnescapeUnknown(t *testing.T) {
	_, _, err := Unescape("q", Width1)
	require.Error(t, err)
}

func TestRoundTripEscapeUnescape(t *testing.T) {
	for _, r := range []rune{'\n', '"', 'a', 0xC3, 0x1F600} {
		esc := EscapeRune(r, Width4, '"')
		if len(esc) < 2 || esc[0] != '\\' {
			continue // printable passthrough, nothing to unescape
		}
		got, _, err := Unescape(esc[1:], Width4)
		require.NoError(t, err)
		require.Equal(t, r, got)
	}
}
