package models

type IngestPostResponse struct {
	ChunksWritten int      `json:"chunks_written"`
	Status        string   `json:"status"`
	Failures      []string `json:"failures,omitempty"`
}
