package dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMenu_Order(t *testing.T) {
	items := Menu()
	paths := make([]string, 0, len(items))
	for _, item := range items {
		paths = append(paths, item.Path)
	}
	assert.Equal(t, []string{"/", "/agents", "/tasks", "/metrics"}, paths)
	assert.Equal(t, "cloud-server", items[1].Icon)
}

func TestNewShell_SelectsExactMatch(t *testing.T) {
	tests := []struct {
		path     string
		selected string
	}{
		{path: "/agents", selected: "/agents"},
		{path: "/tasks", selected: "/tasks"},
		{path: "/metrics", selected: "/metrics"},
		{path: "/", selected: "/"},
		{path: "/agents/7", selected: ""},
		{path: "/unknown", selected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			shell := NewShell(Route{Path: tt.path}, HeaderTitle)
			assert.Equal(t, "Agent Console", shell.Title)

			var selected []string
			for _, item := range shell.Items {
				if item.Selected {
					selected = append(selected, item.Path)
				}
			}
			if tt.selected == "" {
				assert.Empty(t, selected)
			} else {
				assert.Equal(t, []string{tt.selected}, selected)
			}
		})
	}
}

func TestNewShell_DoesNotMutateMenu(t *testing.T) {
	NewShell(Route{Path: "/agents"}, HeaderTitle)
	for _, item := range Menu() {
		assert.False(t, item.Selected, item.Path)
	}
}
