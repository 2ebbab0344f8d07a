package pipeline

import (
	"fmt"
	"strings"

	"github.com/jabba197/ai-meeting-transcription/retrieve"
)

const defaultSystemPromptTemplate = `You are an AI assistant specialized in summarizing meeting transcripts based on provided business context, relevant notes, and instructions.

**Business Context:**
%s

**Relevant Notes:**
%s

**Custom Instructions for Summarization:**
%s`

const defaultUserMessageTemplate = `Please summarize the following meeting transcript accurately and concisely, following the provided instructions. Use basic markdown (bold key points **like this**, italics *like this*, and section headers ## Like This ## where appropriate).

**Transcript:**
%s

**User's Specific Request for this summary:**
%s`

const noNotes = "No relevant notes found."

const noUserRequest = "(No specific request provided, generate a standard concise summary following the custom instructions.)"

func notesBlock(notes []retrieve.Note) string {
	if len(notes) == 0 {
		return noNotes
	}
	var sb strings.Builder
	for _, note := range notes {
		sb.WriteString("--- Context from ")
		sb.WriteString(note.Source)
		sb.WriteString(" ---\n")
		sb.WriteString(note.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}

func composeSystemPrompt(template, businessContext string, notes []retrieve.Note, customInstructions string) string {
	return fmt.Sprintf(template, businessContext, notesBlock(notes), customInstructions)
}

func composeUserMessage(template, transcript, userPrompt string) string {
	if strings.TrimSpace(userPrompt) == "" {
		userPrompt = noUserRequest
	}
	return fmt.Sprintf(template, transcript, userPrompt)
}
