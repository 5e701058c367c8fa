package rubric

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/kirillkom/paper-grader/internal/core/domain"
)

// DefaultText scores each question by its stated point value.
const DefaultText = "按题目分数每题给分"

func Default() domain.Rubric {
	return domain.Rubric{Title: "default", Text: DefaultText}
}

// Load reads a rubric file. .yaml/.yml and .toml files carry title, max_score
// and rules; anything else is taken verbatim as the rules text. An empty path
// yields the built-in rubric.
func Load(path string) (domain.Rubric, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.Rubric{}, domain.WrapError(domain.ErrConfig, "load rubric", err)
	}
	if !utf8.Valid(raw) {
		return domain.Rubric{}, domain.WrapError(domain.ErrConfig, "load rubric",
			fmt.Errorf("unsupported binary format: %s", filepath.Base(path)))
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return parseYAML(path, raw)
	case ".toml":
		return parseTOML(path, raw)
	default:
		return parseText(path, raw)
	}
}

func parseYAML(path string, raw []byte) (domain.Rubric, error) {
	var r domain.Rubric
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&r); err != nil {
		return domain.Rubric{}, domain.WrapError(domain.ErrConfig, "load rubric", fmt.Errorf("decode %s: %w", filepath.Base(path), err))
	}
	return normalize(path, r)
}

func parseTOML(path string, raw []byte) (domain.Rubric, error) {
	var r domain.Rubric
	dec := toml.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&r); err != nil {
		return domain.Rubric{}, domain.WrapError(domain.ErrConfig, "load rubric", fmt.Errorf("decode %s: %w", filepath.Base(path), err))
	}
	return normalize(path, r)
}

func normalize(path string, r domain.Rubric) (domain.Rubric, error) {
	r.Title = strings.TrimSpace(r.Title)
	r.Text = strings.TrimSpace(r.Text)
	if r.Text == "" {
		return domain.Rubric{}, domain.WrapError(domain.ErrConfig, "load rubric", fmt.Errorf("%s has no rules", filepath.Base(path)))
	}
	if r.MaxScore < 0 {
		return domain.Rubric{}, domain.WrapError(domain.ErrConfig, "load rubric", fmt.Errorf("max_score must be >= 0, got %d", r.MaxScore))
	}
	if r.Title == "" {
		r.Title = titleFromPath(path)
	}
	return r, nil
}

func parseText(path string, raw []byte) (domain.Rubric, error) {
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return domain.Rubric{}, domain.WrapError(domain.ErrConfig, "load rubric", fmt.Errorf("%s is empty", filepath.Base(path)))
	}
	return domain.Rubric{Title: titleFromPath(path), Text: text}, nil
}

func titleFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
