package lattice

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pySkeletonFixture = `import os


def first():
    pass


class Widget:
    """A widget."""

    def render(self):
        pass

    def destroy(self):
        pass


def last():
    pass
`

func TestSkeleton_FileNotIndexed(t *testing.T) {
	t.Parallel()
	p := newTestProject(t, map[string]string{"a.py": pyHelper})

	_, err := p.Skeleton("a.py")
	assert.ErrorIs(t, err, ErrFileNotIndexed)
}

func TestSkeleton_OrderedBySourcePosition(t *testing.T) {
	t.Parallel()
	p := newTestProject(t, map[string]string{"ui.py": pySkeletonFixture})
	require.NoError(t, p.IndexDirectory(context.Background()))

	sk, err := p.Skeleton("ui.py")
	require.NoError(t, err)
	assert.Equal(t, "ui", sk.ModuleID)

	names := make([]string, 0, len(sk.Entries))
	for _, e := range sk.Entries {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"first", "Widget", "render", "destroy", "last"}, names)

	for i := 1; i < len(sk.Entries); i++ {
		assert.LessOrEqual(t, sk.Entries[i-1].StartLine, sk.Entries[i].StartLine)
	}
}

func TestSkeleton_CarriesSignaturesAndDocstrings(t *testing.T) {
	t.Parallel()
	p := newTestProject(t, map[string]string{"ui.py": pySkeletonFixture})
	require.NoError(t, p.IndexDirectory(context.Background()))

	sk, err := p.Skeleton("ui.py")
	require.NoError(t, err)

	var widget SkeletonEntry
	for _, e := range sk.Entries {
		if e.Name == "Widget" {
			widget = e
		}
	}
	assert.Equal(t, KindClass, widget.Kind)
	assert.Equal(t, "class Widget:", widget.Signature)
	assert.Equal(t, "A widget.", widget.Docstring)
}

func TestSkeleton_EmptyFileYieldsEmptyOutline(t *testing.T) {
	t.Parallel()
	p := newTestProject(t, map[string]string{"empty.py": ""})
	require.NoError(t, p.IndexDirectory(context.Background()))

	sk, err := p.Skeleton("empty.py")
	require.NoError(t, err)
	assert.Empty(t, sk.Entries)
}

func TestSkeletonRender_IndentsMethods(t *testing.T) {
	t.Parallel()
	p := newTestProject(t, map[string]string{"ui.py": pySkeletonFixture})
	require.NoError(t, p.IndexDirectory(context.Background()))

	sk, err := p.Skeleton("ui.py")
	require.NoError(t, err)
	out := sk.Render()
	assert.Contains(t, out, "  class Widget:\n")
	assert.Contains(t, out, "    def render(self):\n")
}
