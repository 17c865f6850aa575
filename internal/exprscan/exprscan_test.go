package exprscan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleSrc = "package sample\n\nfunc run() {\n\tt.Check(Arg(t, a) < Arg(t, b))\n}\n"

func writeSample(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.go")
	require.NoError(t, os.WriteFile(path, []byte(sampleSrc), 0o644))
	return path
}

func TestAnalyzeFindsBothMarkers(t *testing.T) {
	path := writeSample(t)
	info, err := Analyze(path, 4, 2)
	require.NoError(t, err)
	require.Equal(t, "Arg(t, a) < Arg(t, b)", info.Raw)
	require.Len(t, info.Args, 2)
	require.Equal(t, 0, info.Args[0].CounterID)
	require.Equal(t, 1, info.Args[1].CounterID)
	require.Equal(t, "Arg", info.Raw[info.Args[0].IdentOffset:info.Args[0].IdentOffset+info.Args[0].IdentSize])
	require.Equal(t, "Arg", info.Raw[info.Args[1].IdentOffset:info.Args[1].IdentOffset+info.Args[1].IdentSize])
	require.Equal(t, []int{0, 1}, info.DrawOrder)
}

func TestAnalyzeCachesByLocation(t *testing.T) {
	path := writeSample(t)
	first, err := Analyze(path, 4, 2)
	require.NoError(t, err)
	second, err := Analyze(path, 4, 2)
	require.NoError(t, err)
	require.Same(t, first, second)
}

func TestAnalyzeMissingFile(t *testing.T) {
	_, err := Analyze(filepath.Join(t.TempDir(), "nope.go"), 1, 1)
	require.Error(t, err)
}

func TestAnalyzeNoCallAtLocation(t *testing.T) {
	path := writeSample(t)
	_, err := Analyze(path, 1, 1)
	require.Error(t, err)
}

const nestedSrc = "package sample\n\nfunc run() {\n\tt.Check(Arg(t, f(Arg(t, x))) == 10)\n}\n"

func writeNestedSample(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "nested.go")
	require.NoError(t, os.WriteFile(path, []byte(nestedSrc), 0o644))
	return path
}

func TestAnalyzeAssignsNestedMarkerCounterIDsInEvaluationOrder(t *testing.T) {
	path := writeNestedSample(t)
	info, err := Analyze(path, 4, 2)
	require.NoError(t, err)
	require.Len(t, info.Args, 2)

	var outer, inner ArgInfo
	for _, a := range info.Args {
		if a.Depth == 0 {
			outer = a
		} else {
			inner = a
		}
	}
	// Arg(t, f(Arg(t, x))): Go must finish evaluating f's argument —
	// including the nested Arg(t, x) call within it — before the outer
	// Arg call can run, so the inner marker's CounterID must come out
	// lower than the outer one's, matching arg.go's pendingArgs push
	// order exactly (0, then 1), not lexical (preorder) order.
	require.Equal(t, 0, inner.CounterID)
	require.Equal(t, 1, outer.CounterID)
	require.Equal(t, 1, inner.Depth)
	require.Equal(t, 0, outer.Depth)
}

func TestAnalyzeSiblingMarkersDoNotDoubleCount(t *testing.T) {
	path := writeSample(t) // two sibling (non-nested) markers
	info, err := Analyze(path, 4, 2)
	require.NoError(t, err)
	require.Len(t, info.Args, 2)
}

func TestNeedsBracketDistinguishesBareIdent(t *testing.T) {
	path := writeSample(t)
	info, err := Analyze(path, 4, 2)
	require.NoError(t, err)
	// Both markers wrap bare identifiers (`a`, `b`), so neither needs a bracket.
	require.False(t, info.Args[0].NeedBracket)
	require.False(t, info.Args[1].NeedBracket)
}
