package transcription

// Version is set at build time with -ldflags.
var Version = "dev"
