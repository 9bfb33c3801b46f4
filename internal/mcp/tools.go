package mcp

import "github.com/hanviet/hvsearch/internal/search"

// Tool names.
const (
	ToolTranslate   = "translate"
	ToolIndexStatus = "index_status"
)

// TranslateInput defines the input schema for the translate tool.
type TranslateInput struct {
	Query string `json:"query" jsonschema:"the Han (Classical Chinese) text to translate"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"maximum number of results, default 1"`
}

// TranslateOutput defines the output schema for the translate tool.
type TranslateOutput struct {
	Results []search.Result `json:"results"`
	Message string          `json:"message,omitempty"`
}

// IndexStatusInput defines the input schema for the index_status tool (no parameters).
type IndexStatusInput struct{}

// ToolInfo describes a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

var tools = []ToolInfo{
	{
		Name:        ToolTranslate,
		Description: "Find the closest Han passages in the bilingual corpus and return their Vietnamese translations, best first.",
	},
	{
		Name:        ToolIndexStatus,
		Description: "Report whether the corpus index is loaded, which embedding matrices it carries, and the state of each model.",
	},
}
