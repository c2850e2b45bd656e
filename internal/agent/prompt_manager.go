package agent

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// PromptManager resolves step templates, preferring <dir>/<step>.md
// overrides over the built-in templates.
type PromptManager struct {
	Directory string
}

func NewPromptManager(dir string) *PromptManager {
	return &PromptManager{Directory: dir}
}

// Templates returns one template per step in StepOrder.
func (pm *PromptManager) Templates() (map[StepName]string, error) {
	templates := make(map[StepName]string, len(StepOrder))
	for _, name := range StepOrder {
		templates[name] = defaultTemplates[name]
	}
	if pm == nil || pm.Directory == "" {
		return templates, nil
	}

	for _, name := range StepOrder {
		path := filepath.Join(pm.Directory, string(name)+".md")
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read prompt file %s: %w", path, err)
		}
		tmpl := string(data)
		if n := strings.Count(tmpl, InputPlaceholder); n != 1 {
			return nil, fmt.Errorf("prompt file %s must contain %s exactly once, found %d", path, InputPlaceholder, n)
		}
		templates[name] = tmpl
	}
	return templates, nil
}
