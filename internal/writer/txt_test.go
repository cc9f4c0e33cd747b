package writer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vitaliisemenov/methodtrace/internal/reporter"
	"github.com/vitaliisemenov/methodtrace/internal/vfs"
)

func TestTxtWriterEmitsOneLinePerStartInArrivalOrder(t *testing.T) {
	fs := vfs.NewMemFS()
	w := NewTxtWriter(fs, nil)
	require.NoError(t, w.SetParameters(reporter.Params{OutputDirectory: "/out"}))
	require.NoError(t, w.Initialize("demo"))

	start := time.Unix(0, 0)
	require.NoError(t, w.WriteStart(itemWithParam("1", "", "Root", "k", "v", start)))
	require.NoError(t, w.WriteStart(itemWithParam("2", "1", "Child", "k", "v", start.Add(time.Millisecond))))
	require.NoError(t, w.Flush())

	data, err := fs.ReadFile("/out/demo/demo.txt")
	require.NoError(t, err)
	lines := string(data)
	require.Contains(t, lines, "C.Root")
	require.Contains(t, lines, "C.Child")
	require.Less(t, indexOf(lines, "C.Root"), indexOf(lines, "C.Child"))
}

func TestTxtWriterIgnoresWriteItem(t *testing.T) {
	fs := vfs.NewMemFS()
	w := NewTxtWriter(fs, nil)
	require.NoError(t, w.SetParameters(reporter.Params{OutputDirectory: "/out"}))
	require.NoError(t, w.Initialize("demo"))

	require.NoError(t, w.WriteItem(itemWithParam("1", "", "Root", "k", "v", time.Unix(0, 0))))
	require.NoError(t, w.Flush())

	data, err := fs.ReadFile("/out/demo/demo.txt")
	require.NoError(t, err)
	require.Empty(t, string(data))
}

func TestTxtWriterSetLimitOptionsTrimsToMostRecentLines(t *testing.T) {
	fs := vfs.NewMemFS()
	w := NewTxtWriter(fs, nil)
	require.NoError(t, w.SetParameters(reporter.Params{OutputDirectory: "/out"}))
	require.NoError(t, w.Initialize("demo"))

	base := time.Unix(0, 0)
	for i, id := range []string{"1", "2", "3"} {
		require.NoError(t, w.WriteStart(itemWithParam(id, "", "M"+id, "k", "v", base.Add(time.Duration(i)*time.Millisecond))))
	}
	max := 1
	w.SetLimitOptions(reporter.LimitOptions{MaxItems: &max})
	require.NoError(t, w.Flush())

	data, err := fs.ReadFile("/out/demo/demo.txt")
	require.NoError(t, err)
	require.NotContains(t, string(data), "C.M1")
	require.NotContains(t, string(data), "C.M2")
	require.Contains(t, string(data), "C.M3")
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
