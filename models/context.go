package models

type ContextGetResponse struct {
	BusinessContext    string `json:"business_context"`
	CustomInstructions string `json:"custom_instructions"`
	RAGStatus          string `json:"rag_status"`
}

type ContextPostRequest struct {
	BusinessContext    string `json:"business_context"`
	CustomInstructions string `json:"custom_instructions"`
}

type ContextPostResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
