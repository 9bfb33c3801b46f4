package output

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter_StatusLines(t *testing.T) {
	tests := []struct {
		name  string
		write func(*Writer)
		want  string
	}{
		{"success", func(w *Writer) { w.Success("Index written") }, "✅ Index written\n"},
		{"warning", func(w *Writer) { w.Warningf("%d providers skipped", 1) }, "⚠️  1 providers skipped\n"},
		{"error", func(w *Writer) { w.Error("load failed") }, "❌ load failed\n"},
		{"indented", func(w *Writer) { w.Status("", "detail") }, "   detail\n"},
		{"plain", func(w *Writer) { w.Linef("%s → %s", "你好", "Xin chào") }, "你好 → Xin chào\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			tt.write(New(buf))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestWriter_JSONKeepsUnicode(t *testing.T) {
	buf := &bytes.Buffer{}

	require.NoError(t, New(buf).JSON(map[string]string{"translation": "Cảm ơn <3"}))

	assert.Contains(t, buf.String(), "Cảm ơn <3")
}

func TestWriter_ProgressWithoutTerminal(t *testing.T) {
	// Given: a buffer, which is not a terminal
	buf := &bytes.Buffer{}
	w := New(buf)

	// When: reporting progress
	w.Progress(1, 3, "encoding phobert")
	w.Progress(3, 3, "encoding phobert")

	// Then: only the completion line is printed
	assert.Equal(t, "encoding phobert (3/3)\n", buf.String())
}

func TestRenderProgressBar(t *testing.T) {
	assert.Equal(t, "░░░░░░░░░░", renderProgressBar(0, 10, 10))
	assert.Equal(t, "█████░░░░░", renderProgressBar(5, 10, 10))
	assert.Equal(t, "██████████", renderProgressBar(12, 10, 10))
	assert.Equal(t, "░░░░", renderProgressBar(1, 0, 4))
}

func TestIsTTY_NonFiles(t *testing.T) {
	assert.False(t, IsTTY(&bytes.Buffer{}))
	assert.False(t, IsTTY(nil))

	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	assert.False(t, IsTTY(f))
}
