package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRules(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadRules_EmptyPathReturnsDefaults(t *testing.T) {
	rules, err := LoadRules("")
	require.NoError(t, err)
	assert.Equal(t, DefaultRules(), rules)
}

func TestLoadRules_OverlaysDefaults(t *testing.T) {
	path := writeRules(t, `
name:
  - h1.title
  - selector: meta[property='og:title']
    attr: content
images:
  max_images: 3
`)

	rules, err := LoadRules(path)
	require.NoError(t, err)

	assert.Equal(t, RuleSet{
		{Selector: "h1.title"},
		{Selector: "meta[property='og:title']", Attr: "content"},
	}, rules.Name)
	assert.Equal(t, 3, rules.Images.MaxImages)
	assert.Equal(t, DefaultRules().Images.Hosts, rules.Images.Hosts)
	assert.Equal(t, DefaultRules().Rating, rules.Rating)
}

func TestLoadRules_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "empty rule list",
			body:    "description: []\n",
			wantErr: "description",
		},
		{
			name:    "bad price pattern",
			body:    "price:\n  class_pattern: \"([\"\n",
			wantErr: "class pattern",
		},
		{
			name:    "zero image limit",
			body:    "images:\n  max_images: 0\n",
			wantErr: "max_images",
		},
		{
			name:    "invalid yaml",
			body:    "name: [unterminated\n",
			wantErr: "failed to parse rules YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadRules(writeRules(t, tt.body))
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.wantErr), err.Error())
		})
	}
}

func TestLoadRules_MissingFile(t *testing.T) {
	_, err := LoadRules(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestExtractorUsesCustomRules(t *testing.T) {
	rules := DefaultRules()
	rules.Name = RuleSet{{Selector: "meta[property='og:title']", Attr: "content"}}

	e, err := NewExtractor(rules, nil)
	require.NoError(t, err)

	p, err := e.ParseHTML(`<head><meta property="og:title" content="Шарф"></head><h1>Другое</h1>`, "")
	require.NoError(t, err)
	assert.Equal(t, "Шарф", p.Name)
}
