package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"CourseId", "Title", "Percent"},
		Rows: []map[string]string{
			{"CourseId": "1", "Title": "Intro; basics", "Percent": "66"},
			{"CourseId": "2", "Title": "Go", "Percent": "0"},
		},
	}
}

func TestCSVExporterUsesDelimiter(t *testing.T) {
	out, err := NewCSVExporter(";").Render(sampleDataset(), "")
	require.NoError(t, err)
	assert.Equal(t, "CourseId;Title;Percent\n1;\"Intro; basics\";66\n2;Go;0\n", string(out))

	out, err = NewCSVExporter("").Render(sampleDataset(), "")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("CourseId;Title")))
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter(",").Render(Dataset{}, "")
	assert.Error(t, err)
}

func TestPDFExporterRenders(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset(), "Courses")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
