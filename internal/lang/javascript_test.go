package lang

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jsFixture = `import { connect } from './db.js';
import express from 'express';

export function createApp() {
  const app = express();
  return app;
}

const shutdown = async () => {
  await connect().close();
};

export class Repository {
  find(id) {
    return connect().query(id);
  }
}

class CachedRepository extends Repository {
  find(id) {
    return super.find(id);
  }
}
`

func TestJavaScriptAdapter_Entities(t *testing.T) {
	t.Parallel()
	summary, err := (&JavaScriptAdapter{}).Parse(context.Background(), []byte(jsFixture))
	require.NoError(t, err)
	assert.Equal(t, "javascript", summary.Language)

	app := findEntity(t, summary.Entities, "createApp")
	assert.Equal(t, "function", app.Kind)

	shutdown := findEntity(t, summary.Entities, "shutdown")
	assert.Equal(t, "function", shutdown.Kind)

	repo := findEntity(t, summary.Entities, "Repository")
	assert.Equal(t, "class", repo.Kind)
	assert.Equal(t, "class Repository", repo.Signature)

	find := findEntity(t, summary.Entities, "Repository.find")
	assert.Equal(t, "method", find.Kind)
	assert.Equal(t, "Repository", find.Parent)
}

func TestJavaScriptAdapter_Inheritance(t *testing.T) {
	t.Parallel()
	summary, err := (&JavaScriptAdapter{}).Parse(context.Background(), []byte(jsFixture))
	require.NoError(t, err)

	assert.True(t, hasRef(summary.Refs, "CachedRepository", "Repository", "inherits"))
}

func TestJavaScriptAdapter_CallsAndImports(t *testing.T) {
	t.Parallel()
	summary, err := (&JavaScriptAdapter{}).Parse(context.Background(), []byte(jsFixture))
	require.NoError(t, err)

	assert.True(t, hasRef(summary.Refs, "createApp", "express", "calls"))
	assert.True(t, hasRef(summary.Refs, "shutdown", "connect", "calls"))
	assert.True(t, hasRef(summary.Refs, "Repository.find", "connect", "calls"))

	targets := make([]string, 0, len(summary.Imports))
	for _, imp := range summary.Imports {
		targets = append(targets, imp.Target)
	}
	assert.Equal(t, []string{"./db.js", "express"}, targets)
}

func TestRegistry_ForFile(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "go", ForFile("a/b/main.go").Language())
	assert.Equal(t, "python", ForFile("x.py").Language())
	assert.Equal(t, "javascript", ForFile("x.mjs").Language())
	assert.Nil(t, ForFile("readme.md"))
	assert.Nil(t, ForFile("Makefile"))
}
