package dpfae

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImplementsExporter(t *testing.T) {
	implements := func(Exporter) {}
	implements(new(CSVExporter))
}

func TestCSVExportFail(t *testing.T) {
	_, err := NewCSVExporter("/noNoNoNo/", "temp.csv")
	if err == nil {
		t.Fatal("no issue when trying to create a file in a missing directory")
	}
}

func TestCSVExport(t *testing.T) {
	dir := t.TempDir()
	ce, err := NewCSVExporter(dir, "run.csv")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "run.csv"), ce.Name())

	res := runDefault(t, WithExporter(ce))
	require.NoError(t, ce.Close())

	data, err := os.ReadFile(filepath.Join(dir, "run.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	// Creation comment, header, one line per step, closing comment.
	require.Len(t, lines, len(res.Steps)+3)
	assert.True(t, strings.HasPrefix(lines[0], "# Creation date"))
	assert.Equal(t, strings.Join(CSVHeaders, ","), lines[1])
	assert.True(t, strings.HasPrefix(lines[len(lines)-1], "# Closing date"))

	first := strings.Split(lines[2], ",")
	require.Len(t, first, len(CSVHeaders))
	assert.Equal(t, "0", first[0])
	assert.Equal(t, "false", first[2])
	chaos := strings.Split(lines[2+160], ",")
	assert.Equal(t, "160", chaos[0])
	assert.Equal(t, "0.600000", chaos[1])
	assert.Equal(t, "true", chaos[2])
}

func TestPlotAngularErrors(t *testing.T) {
	sc := DefaultScenario()
	sc.Steps = 200
	h, err := NewHarness(DefaultHardwareProfile(), sc)
	require.NoError(t, err)
	res, err := h.Run()
	require.NoError(t, err)

	for _, name := range []string{"errors.png", "errors.svg"} {
		path := filepath.Join(t.TempDir(), name)
		require.NoError(t, PlotAngularErrors(res.Steps, path))
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}

	assert.Error(t, PlotAngularErrors(res.Steps, filepath.Join(t.TempDir(), "errors.unknown")))
}
