package models

// ProcessingPostResponse is returned by POST /initiate_processing once the
// upload has been accepted and a background job created.
type ProcessingPostResponse struct {
	TaskID string `json:"task_id"`
}
