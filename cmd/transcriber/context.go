package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/jabba197/ai-meeting-transcription/client"
	"github.com/jabba197/ai-meeting-transcription/models"
)

type ContextCommand struct {
	ServerURL          string `help:"The URL of the transcription server." env:"SERVER_URL" default:"http://localhost:9020"`
	ServerAPIKey       string `help:"The API key for the transcription server." env:"SERVER_API_KEY" default:""`
	BusinessContext    string `help:"Replace the saved business context." default:""`
	CustomInstructions string `help:"Replace the saved custom instructions." default:""`
	Pretty             bool   `help:"Pretty print the JSON output." default:"true"`
	LogLevel           string `help:"The log level to use." env:"LOG_LEVEL" default:"info"`
}

func (c ContextCommand) Run(ctx context.Context) (err error) {
	tc := client.New(c.ServerURL, c.ServerAPIKey)

	enc := json.NewEncoder(os.Stdout)
	if c.Pretty {
		enc.SetIndent("", "  ")
	}

	if c.BusinessContext != "" || c.CustomInstructions != "" {
		resp, err := tc.ContextPost(ctx, models.ContextPostRequest{
			BusinessContext:    c.BusinessContext,
			CustomInstructions: c.CustomInstructions,
		})
		if err != nil {
			return err
		}
		return enc.Encode(resp)
	}

	resp, err := tc.ContextGet(ctx)
	if err != nil {
		return err
	}
	return enc.Encode(resp)
}
