package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/kirillkom/paper-grader/internal/core/domain"
	"github.com/kirillkom/paper-grader/internal/infrastructure/storage/localfs"
)

const DefaultOutputFile = "./results.json"

// JSONFile writes the records as an indented JSON array. An existing file is
// replaced only once the new document is fully written.
type JSONFile struct {
	path string
}

func NewJSONFile(path string) *JSONFile {
	if path == "" {
		path = DefaultOutputFile
	}
	return &JSONFile{path: path}
}

func (s *JSONFile) Path() string {
	return s.path
}

func (s *JSONFile) Persist(_ context.Context, run domain.RunResult) error {
	raw, err := EncodeRecords(run.Records)
	if err != nil {
		return err
	}
	if err := localfs.WriteFile(s.path, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("write results %s: %w", s.path, err)
	}
	return nil
}

// EncodeRecords renders records with two-space indentation; nil encodes as [].
func EncodeRecords(records []domain.ResultRecord) ([]byte, error) {
	if records == nil {
		records = []domain.ResultRecord{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return nil, fmt.Errorf("encode results: %w", err)
	}
	return buf.Bytes(), nil
}
