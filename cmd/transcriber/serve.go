package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jabba197/ai-meeting-transcription/auth"
	"github.com/jabba197/ai-meeting-transcription/db"
	contextget "github.com/jabba197/ai-meeting-transcription/handlers/context/get"
	contextpost "github.com/jabba197/ai-meeting-transcription/handlers/context/post"
	ingestpost "github.com/jabba197/ai-meeting-transcription/handlers/ingest/post"
	processingpost "github.com/jabba197/ai-meeting-transcription/handlers/processing/post"
	progressget "github.com/jabba197/ai-meeting-transcription/handlers/progress/get"
	"github.com/jabba197/ai-meeting-transcription/ingest"
	"github.com/jabba197/ai-meeting-transcription/pipeline"
	"github.com/jabba197/ai-meeting-transcription/retrieve"
	"github.com/jabba197/ai-meeting-transcription/summarize"
	"github.com/jabba197/ai-meeting-transcription/transcribe"
	"github.com/rqlite/gorqlite"
	"github.com/rs/cors"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/googleai"
)

type ServeCommand struct {
	RqliteURL          string        `help:"The URL of the rqlite server." env:"RQLITE_URL" default:"http://localhost:4001"`
	GeminiAPIKey       string        `help:"The API key for the hosted Gemini API." env:"GEMINI_API_KEY" default:""`
	TranscriptionModel string        `help:"The model used for transcription." env:"TRANSCRIPTION_MODEL" default:"gemini-1.5-flash"`
	SummaryModel       string        `help:"The model used for summarization." env:"SUMMARY_MODEL" default:"gemini-1.5-pro"`
	EmbeddingModel     string        `help:"The model used for embeddings." env:"EMBEDDING_MODEL" default:"text-embedding-004"`
	CorpusDir          string        `help:"The directory of markdown notes to ingest." env:"CORPUS_DIR" default:""`
	ChunkSize          int           `help:"The maximum chunk size in runes." env:"CHUNK_SIZE" default:"1000"`
	ChunkOverlap       int           `help:"The chunk overlap in runes." env:"CHUNK_OVERLAP" default:"150"`
	RetrievalTopK      int           `help:"The number of corpus chunks retrieved per job." env:"RETRIEVAL_TOP_K" default:"3"`
	MaxUploadBytes     int64         `help:"The maximum upload size in bytes." env:"MAX_UPLOAD_BYTES" default:"524288000"`
	SummaryDir         string        `help:"Directory to save successful summaries to, as markdown." env:"SUMMARY_OUTPUT_PATH" default:""`
	SystemPrompt       string        `help:"File containing the system prompt template." env:"SYSTEM_PROMPT" default:""`
	UserPrompt         string        `help:"File containing the user message template." env:"USER_PROMPT" default:""`
	JobRetention       time.Duration `help:"How long finished jobs are kept." env:"JOB_RETENTION" default:"5m"`
	StreamTimeout      time.Duration `help:"Progress stream inactivity timeout." env:"STREAM_TIMEOUT" default:"10m"`
	ListenAddr         string        `help:"The address to listen on." env:"LISTEN_ADDR" default:"localhost:9020"`
	TLSCertFile        string        `help:"The TLS certificate file." env:"TLS_CERT_FILE" default:""`
	TLSKeyFile         string        `help:"The TLS key file." env:"TLS_KEY_FILE" default:""`
	APIKeysFile        string        `help:"Optional file containing a JSON map of API keys to usernames. Empty disables auth." env:"API_KEYS_FILE" default:""`
	LogLevel           string        `help:"The log level to use." env:"LOG_LEVEL" default:"info"`
}

func readFileOrDefault(filename, defaultContent string) (string, error) {
	if filename == "" {
		return defaultContent, nil
	}
	contents, err := os.ReadFile(filename)
	if err != nil {
		return "", fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	return string(contents), nil
}

func (c ServeCommand) Run(ctx context.Context) (err error) {
	log := getLogger(c.LogLevel)

	systemPromptTemplate, err := readFileOrDefault(c.SystemPrompt, "")
	if err != nil {
		return fmt.Errorf("failed to read system prompt: %w", err)
	}
	userMessageTemplate, err := readFileOrDefault(c.UserPrompt, "")
	if err != nil {
		return fmt.Errorf("failed to read user prompt: %w", err)
	}
	if systemPromptTemplate != "" && strings.Contains(fmt.Sprintf(systemPromptTemplate, "a", "b", "c"), "%!") {
		return fmt.Errorf("invalid system prompt template: expected three %%s verbs")
	}
	if userMessageTemplate != "" && strings.Contains(fmt.Sprintf(userMessageTemplate, "a", "b"), "%!") {
		return fmt.Errorf("invalid user message template: expected two %%s verbs")
	}

	log.Info("connecting to database", slog.String("url", c.RqliteURL))
	databaseURL, err := db.ParseRqliteURL(c.RqliteURL)
	if err != nil {
		return fmt.Errorf("failed to parse rqlite URL: %w", err)
	}
	log.Info("opening database connection", slog.String("url", databaseURL.DataSourceName()))
	conn, err := gorqlite.Open(databaseURL.DataSourceName())
	if err != nil {
		return fmt.Errorf("failed to open connection: %w", err)
	}
	defer conn.Close()
	queries := db.New(conn)

	log.Info("migrating database schema")
	if err = db.Migrate(databaseURL); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Info("creating LLM client")
	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(c.GeminiAPIKey),
		googleai.WithDefaultModel(c.SummaryModel),
		googleai.WithDefaultEmbeddingModel(c.EmbeddingModel))
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	emb, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	transcriber := transcribe.New(log, llm, c.TranscriptionModel, c.MaxUploadBytes)
	retriever := retrieve.New(log, emb, queries)
	summarizer := summarize.New(log, llm, c.SummaryModel)
	ingester := ingest.New(log, emb, queries, c.ChunkSize, c.ChunkOverlap)
	jobs := pipeline.New(log, transcriber, retriever, summarizer, queries, pipeline.Config{
		TopK:                 c.RetrievalTopK,
		SummaryDir:           c.SummaryDir,
		Retention:            c.JobRetention,
		SystemPromptTemplate: systemPromptTemplate,
		UserMessageTemplate:  userMessageTemplate,
	})

	if c.CorpusDir != "" {
		go func() {
			log.Info("ingesting corpus", slog.String("dir", c.CorpusDir))
			result, err := ingester.Ingest(ctx, c.CorpusDir)
			if err != nil {
				log.Error("startup ingestion failed", slog.Any("error", err))
				return
			}
			log.Info("corpus ingested",
				slog.Int("chunks", result.ChunksWritten),
				slog.String("status", string(result.Status)),
				slog.Int("failures", len(result.Failures)))
		}()
	}

	mux := http.NewServeMux()
	mux.Handle("POST /initiate_processing", processingpost.New(log, transcriber, jobs, c.MaxUploadBytes))
	mux.Handle("GET /stream_progress/{task_id}", progressget.New(log, jobs, c.StreamTimeout, 15*time.Second))
	mux.Handle("GET /get_context", contextget.New(log, queries))
	mux.Handle("POST /save_context", contextpost.New(log, queries))
	mux.Handle("POST /ingest", ingestpost.New(log, ingester, c.CorpusDir))

	var handler http.Handler = mux
	if c.APIKeysFile != "" {
		apiKeyToUserName, err := auth.LoadFromFile(c.APIKeysFile)
		if err != nil {
			return fmt.Errorf("failed to load API keys: %w", err)
		}
		handler = auth.New(apiKeyToUserName, handler)
	}
	handler = cors.AllowAll().Handler(handler)

	log.Info("Listening", slog.String("addr", c.ListenAddr))
	s := &http.Server{
		Addr:    c.ListenAddr,
		Handler: handler,
	}
	if c.TLSCertFile != "" && c.TLSKeyFile != "" {
		log.Info("Enabling TLS mode")
		var cert tls.Certificate
		cert, err = tls.LoadX509KeyPair(c.TLSCertFile, c.TLSKeyFile)
		if err != nil {
			return fmt.Errorf("failed to load cert: %w", err)
		}
		s.TLSConfig = &tls.Config{
			MinVersion:   tls.VersionTLS12,
			Certificates: []tls.Certificate{cert},
		}
		return s.ListenAndServeTLS(c.TLSCertFile, c.TLSKeyFile)
	}
	return s.ListenAndServe()
}
