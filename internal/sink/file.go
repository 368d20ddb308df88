package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/brandtiboy/prototype-test/internal/models"
)

// FileSink materializes the payload as a local pretty-printed JSON artifact,
// one file per session, named pt-session-<sessionId>.json.
type FileSink struct {
	dir string
}

// NewFileSink creates a file sink writing into dir.
func NewFileSink(dir string) *FileSink {
	return &FileSink{dir: dir}
}

// Name implements Sink.
func (f *FileSink) Name() string { return "file" }

// Submit implements Sink.
func (f *FileSink) Submit(_ context.Context, sub *models.SessionSubmission) error {
	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return fmt.Errorf("create results directory: %w", err)
	}

	data, err := json.MarshalIndent(sub, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal submission: %w", err)
	}

	path := filepath.Join(f.dir, sub.ArtifactName())
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	return nil
}
