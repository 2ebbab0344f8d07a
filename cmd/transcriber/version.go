package main

import (
	"context"
	"fmt"

	transcription "github.com/jabba197/ai-meeting-transcription"
)

type VersionCommand struct {
}

func (c VersionCommand) Run(ctx context.Context) (err error) {
	fmt.Println(transcription.Version)
	return nil
}
