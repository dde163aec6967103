package detect

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rkuma140394/vox-veritas-api/api/internal/detect/types"
)

// Engine is an external classification model. Generate returns the raw model
// text; errors must be tagged with a Kind (see E) so retries can be decided
// without inspecting messages.
type Engine interface {
	Name() string
	GetModel() string
	Generate(ctx context.Context, in types.DetectRequest) (string, error)
}

// Engines is the set of configured engines keyed by name.
type Engines struct {
	def  string
	byID map[string]Engine
}

func NewEngines(defaultName string, engs ...Engine) *Engines {
	e := &Engines{def: strings.ToLower(strings.TrimSpace(defaultName)), byID: make(map[string]Engine)}
	for _, eng := range engs {
		if eng == nil {
			continue
		}
		e.byID[strings.ToLower(eng.Name())] = eng
		if e.def == "" {
			e.def = strings.ToLower(eng.Name())
		}
	}
	return e
}

// GetEngine resolves llmName; "" picks the default. "openai" is accepted for "gpt".
func (e *Engines) GetEngine(llmName string) (Engine, error) {
	name := strings.ToLower(strings.TrimSpace(llmName))
	switch name {
	case "":
		name = e.def
	case "openai":
		name = "gpt"
	}
	if eng, ok := e.byID[name]; ok {
		return eng, nil
	}
	return nil, E(KindFatal, "get engine", fmt.Errorf("unknown llm_name %q; use one of %s", llmName, strings.Join(e.Names(), "|")))
}

func (e *Engines) Names() []string {
	out := make([]string, 0, len(e.byID))
	for k := range e.byID {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
