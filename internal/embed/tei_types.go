package embed

// Text-embeddings-inference server API types.

// teiInfoResponse is the subset of GET /info the provider needs.
type teiInfoResponse struct {
	ModelID        string `json:"model_id"`
	MaxInputLength int    `json:"max_input_length"`
}

// teiEmbedAllRequest is the POST /embed_all request.
type teiEmbedAllRequest struct {
	Inputs   []string `json:"inputs"`
	Truncate bool     `json:"truncate"`
}

// teiEmbedAllResponse holds one [tokens][dim] matrix per input.
type teiEmbedAllResponse [][][]float32
