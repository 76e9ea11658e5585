package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"qid": "q1", "question": "1+1?", "choices": ["A. 1", "B. 2"]},
		{"qid": "q2", "question": "thuế?", "choices": ["A. x"]}
	]`), 0o644))

	items, err := Load(path)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "q1", items[0].QID)
	require.Equal(t, []string{"A. 1", "B. 2"}, items[0].Choices)
}

func TestLoadJSONWrapped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"data": [{"qid": "q1", "question": "x", "choices": []}]}`), 0o644))

	items, err := Load(path)
	require.NoError(t, err)
	require.Len(t, items, 1)
}

func TestLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.csv")
	require.NoError(t, os.WriteFile(path, []byte("qid,question,choice1,choice2\nq1,1+1?,A. 1,B. 2\n"), 0o644))

	items, err := Load(path)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "q1", items[0].QID)
	require.Len(t, items[0].Choices, 2)
}

func TestLoadUnsupportedFormat(t *testing.T) {
	_, err := Load("questions.xml")
	require.Error(t, err)
}

func TestTransformAddsEnumeration(t *testing.T) {
	items := []WorkItem{{
		QID:      "q1",
		Question: "x",
		Choices:  []string{"already enumerated? no", "B. keeps prefix", "  third  "},
	}}

	out := Transform(items)
	require.Equal(t, "A. already enumerated? no", out[0].Choices[0])
	require.Equal(t, "B. keeps prefix", out[0].Choices[1])
	require.Equal(t, "C. third", out[0].Choices[2])

	// Input is untouched.
	require.Equal(t, "already enumerated? no", items[0].Choices[0])
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	items := []WorkItem{{QID: "q1", Question: "x", Choices: []string{"A. 1"}}}
	require.NoError(t, Save(path, items))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, items, loaded)
}
