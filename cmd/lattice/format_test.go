package main

import (
	"bytes"
	"testing"

	"github.com/jward/lattice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFormat(t *testing.T) {
	assert.NoError(t, validateFormat("json"))
	assert.NoError(t, validateFormat("text"))
	assert.Error(t, validateFormat("yaml"))
	assert.Error(t, validateFormat(""))
}

func TestFormatStatusText(t *testing.T) {
	var buf bytes.Buffer
	formatStatusText(&buf, &lattice.Status{
		ProjectID:    "abc123",
		Root:         "/tmp/project",
		Nodes:        10,
		Edges:        4,
		IndexedFiles: 3,
		IndexErrors: []*lattice.IndexError{
			{FilePath: "/tmp/project/bad.py", Message: "read failed"},
		},
	})
	out := buf.String()
	assert.Contains(t, out, "Project: abc123")
	assert.Contains(t, out, "Nodes: 10")
	assert.Contains(t, out, "Index errors:")
	assert.Contains(t, out, "bad.py")
}

func TestFormatProjectsText(t *testing.T) {
	var buf bytes.Buffer
	formatProjectsText(&buf, []lattice.ProjectInfo{
		{ID: "abc123", Root: "/tmp/one"},
		{ID: "def456", Root: "/tmp/two"},
	})
	lines := bytes.Count(buf.Bytes(), []byte("\n"))
	require.Equal(t, 3, lines) // header plus two rows
	assert.Contains(t, buf.String(), "/tmp/two")
}
