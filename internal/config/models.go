package config

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultModel is the baseline prompt-injection classifier.
const DefaultModel = "deberta-prompt-injection-v2"

// Model identifies a classifier deployment on the batch-inference backend.
type Model struct {
	ID        string
	Version   string
	InputName string // name of the single string input the backend expects
}

var models = map[string]Model{
	DefaultModel: {
		ID:        DefaultModel,
		Version:   "gmv-zve9abhxe9s7fq1zep5dxd807",
		InputName: "text_input",
	},
}

// LookupModel resolves a model identifier. Unknown identifiers are a
// configuration error listing every known identifier.
func LookupModel(id string) (Model, error) {
	if m, ok := models[id]; ok {
		return m, nil
	}
	return Model{}, &Error{
		Field: "security.prompt_model",
		Msg:   fmt.Sprintf("unknown model %q (known: %s)", id, strings.Join(KnownModels(), ", ")),
	}
}

// KnownModels returns the registry's identifiers in sorted order.
func KnownModels() []string {
	ids := make([]string, 0, len(models))
	for id := range models {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Error is a configuration problem: a malformed value, an unknown model, or
// an unreadable config file.
type Error struct {
	Field string
	Msg   string
}

func (e *Error) Error() string {
	return "config: " + e.Field + ": " + e.Msg
}
