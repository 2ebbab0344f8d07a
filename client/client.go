package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/a-h/jsonapi"
	"github.com/jabba197/ai-meeting-transcription/models"
)

func New(baseURL, apiKey string) Client {
	return Client{
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

type Client struct {
	baseURL string
	apiKey  string
}

func (c Client) ContextGet(ctx context.Context) (resp models.ContextGetResponse, err error) {
	url, err := jsonapi.URL(c.baseURL).Path("get_context").String()
	if err != nil {
		return resp, err
	}
	resp, _, err = jsonapi.Get[models.ContextGetResponse](ctx, url, jsonapi.WithRequestHeader("Authorization", c.apiKey))
	return resp, err
}

func (c Client) ContextPost(ctx context.Context, req models.ContextPostRequest) (resp models.ContextPostResponse, err error) {
	url, err := jsonapi.URL(c.baseURL).Path("save_context").String()
	if err != nil {
		return resp, err
	}
	return jsonapi.Post[models.ContextPostRequest, models.ContextPostResponse](ctx, url, req, jsonapi.WithRequestHeader("Authorization", c.apiKey))
}

func (c Client) IngestPost(ctx context.Context) (resp models.IngestPostResponse, err error) {
	url, err := jsonapi.URL(c.baseURL).Path("ingest").String()
	if err != nil {
		return resp, err
	}
	return jsonapi.Post[struct{}, models.IngestPostResponse](ctx, url, struct{}{}, jsonapi.WithRequestHeader("Authorization", c.apiKey))
}

// ProcessingPost uploads an audio file with an optional prompt and returns
// the created task ID.
func (c Client) ProcessingPost(ctx context.Context, filename string, audio io.Reader, userPrompt string) (resp models.ProcessingPostResponse, err error) {
	url, err := jsonapi.URL(c.baseURL).Path("initiate_processing").String()
	if err != nil {
		return resp, err
	}

	body := new(bytes.Buffer)
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return resp, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err = io.Copy(part, audio); err != nil {
		return resp, fmt.Errorf("failed to copy audio: %w", err)
	}
	if userPrompt != "" {
		if err = mw.WriteField("user_prompt", userPrompt); err != nil {
			return resp, fmt.Errorf("failed to write prompt field: %w", err)
		}
	}
	if err = mw.Close(); err != nil {
		return resp, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return resp, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	res, err := jsonapi.Raw(httpReq, jsonapi.WithRequestHeader("Authorization", c.apiKey))
	if err != nil {
		return resp, fmt.Errorf("failed to perform HTTP request: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		b, _ := io.ReadAll(res.Body)
		return resp, jsonapi.InvalidStatusError{
			Status: res.StatusCode,
			Body:   string(b),
		}
	}
	err = json.NewDecoder(res.Body).Decode(&resp)
	return resp, err
}

// StreamProgress subscribes to a task's event stream and calls f for every
// event, in order, until the stream ends.
func (c Client) StreamProgress(ctx context.Context, taskID string, f func(ctx context.Context, ev models.ProgressEvent) error) (err error) {
	url, err := jsonapi.URL(c.baseURL).Path("stream_progress", taskID).String()
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	res, err := jsonapi.Raw(httpReq, jsonapi.WithRequestHeader("Authorization", c.apiKey))
	if err != nil {
		return fmt.Errorf("failed to perform HTTP request: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		b, _ := io.ReadAll(res.Body)
		return jsonapi.InvalidStatusError{
			Status: res.StatusCode,
			Body:   string(b),
		}
	}
	return DecodeEventStream(ctx, res.Body, f)
}

// DecodeEventStream reads server-sent events from r, decoding each data
// payload as a progress event. Comment lines (keep-alives) are skipped.
func DecodeEventStream(ctx context.Context, r io.Reader, f func(ctx context.Context, ev models.ProgressEvent) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev models.ProgressEvent
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			return fmt.Errorf("failed to decode event: %w", err)
		}
		if err := f(ctx, ev); err != nil {
			return fmt.Errorf("failed to process event: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read event stream: %w", err)
	}
	return nil
}
