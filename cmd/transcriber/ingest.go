package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/jabba197/ai-meeting-transcription/client"
)

type IngestCommand struct {
	ServerURL    string `help:"The URL of the transcription server." env:"SERVER_URL" default:"http://localhost:9020"`
	ServerAPIKey string `help:"The API key for the transcription server." env:"SERVER_API_KEY" default:""`
	Pretty       bool   `help:"Pretty print the JSON output." default:"true"`
	LogLevel     string `help:"The log level to use." env:"LOG_LEVEL" default:"info"`
}

func (c IngestCommand) Run(ctx context.Context) (err error) {
	tc := client.New(c.ServerURL, c.ServerAPIKey)
	resp, err := tc.IngestPost(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	if c.Pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(resp)
}
