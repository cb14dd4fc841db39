package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/exotransit/internal/core"
)

const sampleCSV = `Name,Orbital Period (days),Transit Depth (ppm),Transit Duration (hours),Signal-to-Noise Ratio,Stellar Radius (Solar Radii),Stellar Temperature (K),Stellar Magnitude,Date Added,Notes
"Kepler-22b","289.86","650","7.4","25","0.98","5518","11.7","2025-03-14T09:30:00Z","first"
"TOI-700d","37.4","250","2.1","12","0.42","3480","-1.5","",""
"Broken","1","abc","1","1","1","1","1","",""
`

type testEnv struct {
	dir   string
	store string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	return testEnv{dir: dir, store: filepath.Join(dir, "observations.json")}
}

func (e testEnv) writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// run executes exoctl with args and returns stdout and the error.
func (e testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	cmd := NewRootCommand(Options{
		StorePath:   e.store,
		LogLevel:    "error",
		MaxFileSize: 1 << 20,
	}, &out, &errOut)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestImport(t *testing.T) {
	env := newTestEnv(t)
	csv := env.writeFile(t, "survey.csv", sampleCSV)

	out, err := env.run(t, "import", csv)
	require.NoError(t, err)

	assert.Contains(t, out, "2 imported, 1 failed")
	assert.Contains(t, out, "row 3:")
	assert.Contains(t, out, string(core.KindInvalidRowFormat))

	_, err = os.Stat(env.store)
	assert.NoError(t, err, "store file should be written")
}

func TestImport_Strict(t *testing.T) {
	env := newTestEnv(t)
	csv := env.writeFile(t, "survey.csv", sampleCSV)

	_, err := env.run(t, "import", "--strict", csv)
	assert.ErrorIs(t, err, ErrRowsFailed)

	// Valid rows are kept even in strict mode
	out, err := env.run(t, "export")
	require.NoError(t, err)
	assert.Contains(t, out, "Kepler-22b")
}

func TestImport_MissingFile(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "import", filepath.Join(env.dir, "nope.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestImport_RequiresArgument(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "import")
	assert.Error(t, err)
}

func TestExport(t *testing.T) {
	env := newTestEnv(t)
	csv := env.writeFile(t, "survey.csv", sampleCSV)
	_, err := env.run(t, "import", csv)
	require.NoError(t, err)

	t.Run("stdout", func(t *testing.T) {
		out, err := env.run(t, "export")
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 3)
		assert.NotContains(t, lines[0], core.HeaderResult)
		assert.Contains(t, lines[1], `"Kepler-22b"`)
		assert.Contains(t, lines[2], `"TOI-700d"`)
	})

	t.Run("with result column", func(t *testing.T) {
		out, err := env.run(t, "export", "--result")
		require.NoError(t, err)
		assert.Contains(t, strings.SplitN(out, "\n", 2)[0], core.HeaderResult)
	})

	t.Run("to file", func(t *testing.T) {
		target := filepath.Join(env.dir, "out.csv")
		out, err := env.run(t, "export", "-o", target)
		require.NoError(t, err)
		assert.Contains(t, out, "exported 2 observations")

		data, err := os.ReadFile(target)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"TOI-700d"`)
	})
}

func TestExport_Empty(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "export")
	require.NoError(t, err)
	assert.Equal(t, strings.Join(core.Headers, ",")+"\n", out)
}

func TestValidate(t *testing.T) {
	env := newTestEnv(t)

	t.Run("with failures", func(t *testing.T) {
		csv := env.writeFile(t, "bad.csv", sampleCSV)
		out, err := env.run(t, "validate", csv)

		assert.ErrorIs(t, err, ErrRowsFailed)
		assert.Contains(t, out, "3 rows: 2 valid, 1 failed")
		assert.Contains(t, out, "row 3:")
	})

	t.Run("clean file", func(t *testing.T) {
		clean := strings.Join(strings.Split(sampleCSV, "\n")[:3], "\n")
		csv := env.writeFile(t, "good.csv", clean)

		out, err := env.run(t, "validate", csv)
		require.NoError(t, err)
		assert.Contains(t, out, "2 rows: 2 valid, 0 failed")
	})

	t.Run("duplicates", func(t *testing.T) {
		lines := strings.Split(sampleCSV, "\n")
		dup := strings.Join([]string{lines[0], lines[1], lines[1]}, "\n")
		csv := env.writeFile(t, "dup.csv", dup)

		out, err := env.run(t, "validate", csv)
		require.NoError(t, err)
		assert.Contains(t, out, `duplicate name "Kepler-22b" appears 2 times`)
	})

	// validate never touches the store
	_, err := os.Stat(env.store)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate_AlreadyStored(t *testing.T) {
	env := newTestEnv(t)
	csv := env.writeFile(t, "survey.csv", sampleCSV)
	_, err := env.run(t, "import", csv)
	require.NoError(t, err)

	out, err := env.run(t, "validate", csv)
	assert.ErrorIs(t, err, ErrRowsFailed)
	assert.Contains(t, out, "already stored: Kepler-22b, TOI-700d")
}

func TestAnalyze(t *testing.T) {
	env := newTestEnv(t)
	csv := env.writeFile(t, "survey.csv", sampleCSV)
	_, err := env.run(t, "import", csv)
	require.NoError(t, err)

	out, err := env.run(t, "analyze")
	require.NoError(t, err)
	assert.Contains(t, out, "analyzed 2 observations, 2 updated")
	assert.Contains(t, out, "candidate: 1")
	assert.Contains(t, out, "exo: 1")

	// Labels are persisted and exported in the Result column
	exported, err := env.run(t, "export", "--result")
	require.NoError(t, err)
	assert.Contains(t, exported, `"exo"`)
	assert.Contains(t, exported, `"candidate"`)

	// A second run changes nothing
	out, err = env.run(t, "analyze")
	require.NoError(t, err)
	assert.Contains(t, out, "analyzed 2 observations, 0 updated")
}

func TestAnalyze_Artifact(t *testing.T) {
	env := newTestEnv(t)
	csv := env.writeFile(t, "survey.csv", sampleCSV)
	_, err := env.run(t, "import", csv)
	require.NoError(t, err)

	artifact := env.writeFile(t, "model_artifact.json",
		`{"thresholds":{"exo_snr":1000,"exo_depth":1000000,"candidate_snr":1000,"candidate_depth":1000000}}`)

	out, err := env.run(t, "analyze", "--artifact", artifact)
	require.NoError(t, err)
	assert.Contains(t, out, "not exo: 2")
}

func TestAnalyze_Empty(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "analyze")
	assert.Error(t, err)
}

func TestReset(t *testing.T) {
	env := newTestEnv(t)
	csv := env.writeFile(t, "survey.csv", sampleCSV)
	_, err := env.run(t, "import", csv)
	require.NoError(t, err)

	_, err = env.run(t, "reset")
	require.Error(t, err, "reset without --yes must refuse")

	out, err := env.run(t, "reset", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "removed 2 observations")

	out, err = env.run(t, "export")
	require.NoError(t, err)
	assert.Equal(t, strings.Join(core.Headers, ",")+"\n", out)
}

func TestLabelCounts(t *testing.T) {
	got := labelCounts(map[string]string{"a": "exo", "b": "not exo", "c": "exo"})
	assert.Equal(t, []string{"exo: 2", "not exo: 1"}, got)
}
