package proxy

import (
	"net/http"
	"sort"

	"localhost/claude-bridge/internal/claudeadapter/types"
)

// modelsHandler lists the Claude-facing model names a provider's model map
// accepts. OpenAI-compatible upstreams cannot answer a Claude model listing
// themselves, so the configured mapping is the source of truth for what
// clients may select.
//
// The response uses a merged format compatible with both Anthropic and
// OpenAI clients, combining fields from both API specifications. This
// approach assumes that most clients ignore unknown fields.
func modelsHandler(providerName string, models map[string]string) http.HandlerFunc {
	list := types.ModelList{Data: []types.ModelInfo{}}
	for name := range models {
		// The reserved fallback entry is not a selectable model.
		if name == "default" {
			continue
		}
		list.Data = append(list.Data, types.ModelInfo{
			Type:    "model",
			ID:      name,
			OwnedBy: providerName,
		})
	}
	sort.Slice(list.Data, func(i, j int) bool { return list.Data[i].ID < list.Data[j].ID })

	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(r.Context(), w, list, http.StatusOK)
	}
}
