package report

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vitaliisemenov/methodtrace/internal/callrecord"
	"github.com/vitaliisemenov/methodtrace/internal/vfs"
)

func itemWithAttr(fullName, col, value string) Item {
	params := callrecord.NewOrderedParams()
	params.Set(col, value)
	attrs := callrecord.NewStringSet()
	attrs.Add(col)
	return Item{FullName: fullName, MethodName: "M", Parameters: params, AttributeParameters: attrs}
}

func TestLoadMissingFileIsEmptyNotError(t *testing.T) {
	fs := vfs.NewMemFS()
	m, err := Load(fs, "/out")
	require.NoError(t, err)
	item := itemWithAttr("A.B.M", "CustomCol", "Original")
	require.Equal(t, item, m.Apply(item))
}

func TestApplyReplacesOnlyStaticParameters(t *testing.T) {
	fs := vfs.NewMemFS()
	require.NoError(t, fs.WriteFile("/out/method_overrides.csv", []byte("FullName,CustomCol\nA.B.M,Override\n")))
	m, err := Load(fs, "/out")
	require.NoError(t, err)

	item := itemWithAttr("A.B.M", "CustomCol", "Original")
	item.Parameters.Set("Dynamic", "untouched")

	got := m.Apply(item)
	v, _ := got.Parameters.Get("CustomCol")
	require.Equal(t, "Override", v)
	d, _ := got.Parameters.Get("Dynamic")
	require.Equal(t, "untouched", d)

	// original item's backing storage must be unaffected.
	orig, _ := item.Parameters.Get("CustomCol")
	require.Equal(t, "Original", orig)
}

func TestApplyIgnoresNonMatchingFullName(t *testing.T) {
	fs := vfs.NewMemFS()
	require.NoError(t, fs.WriteFile("/out/method_overrides.csv", []byte("FullName,CustomCol\nOther.M,Override\n")))
	m, err := Load(fs, "/out")
	require.NoError(t, err)

	item := itemWithAttr("A.B.M", "CustomCol", "Original")
	got := m.Apply(item)
	v, _ := got.Parameters.Get("CustomCol")
	require.Equal(t, "Original", v)
}

func TestSaveTemplateExcludesGapsAndDedupsCaseInsensitive(t *testing.T) {
	fs := vfs.NewMemFS()
	m, err := Load(fs, "/out")
	require.NoError(t, err)

	m.Observe(itemWithAttr("A.B.M", "CustomCol", "X"))
	m.Observe(itemWithAttr("a.b.m", "CustomCol", "Y")) // duplicate, case-insensitive
	gap := itemWithAttr("Gap", "CustomCol", "Z")
	gap.MethodName = callrecord.GapMethodName
	m.Observe(gap)

	require.NoError(t, m.SaveTemplate())
	data, err := fs.ReadFile("/out/method_overrides.template")
	require.NoError(t, err)
	require.Equal(t, "FullName,CustomCol\nA.B.M,X", string(data))
}

func TestSaveTemplateIsIdempotentAcrossTwoRuns(t *testing.T) {
	build := func() []byte {
		fs := vfs.NewMemFS()
		m, err := Load(fs, "/out")
		require.NoError(t, err)
		m.Observe(itemWithAttr("A.B.M", "CustomCol", "X"))
		require.NoError(t, m.SaveTemplate())
		data, err := fs.ReadFile("/out/method_overrides.template")
		require.NoError(t, err)
		return data
	}
	require.Equal(t, build(), build())
}
