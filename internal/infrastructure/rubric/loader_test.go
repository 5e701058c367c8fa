package rubric

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kirillkom/paper-grader/internal/core/domain"
)

func writeRubric(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write rubric: %v", err)
	}
	return path
}

func TestLoadEmptyPathUsesDefault(t *testing.T) {
	r, err := Load("  ")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if r.Text != DefaultText || r.MaxScore != 0 {
		t.Fatalf("unexpected default rubric %+v", r)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeRubric(t, "biology.yaml", "title: Photosynthesis quiz\nmax_score: 10\nrules: |\n  5 points for naming chlorophyll.\n  5 points for oxygen as a product.\n")
	r, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if r.Title != "Photosynthesis quiz" || r.MaxScore != 10 {
		t.Fatalf("unexpected rubric %+v", r)
	}
	if r.Text != "5 points for naming chlorophyll.\n5 points for oxygen as a product." {
		t.Fatalf("unexpected rules %q", r.Text)
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeRubric(t, "essay.toml", "title = \"Essay\"\nmax_score = 20\nrules = \"\"\"\nStructure 10 points.\nArgument 10 points.\n\"\"\"\n")
	r, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if r.Title != "Essay" || r.MaxScore != 20 || r.Text != "Structure 10 points.\nArgument 10 points." {
		t.Fatalf("unexpected rubric %+v", r)
	}
	if _, err := Load(writeRubric(t, "bad.toml", "rules = \"x\"\nweight = 2\n")); !domain.IsKind(err, domain.ErrConfig) {
		t.Fatalf("expected unknown TOML keys rejected, got %v", err)
	}
}

func TestLoadYAMLTitleFallsBackToFileName(t *testing.T) {
	r, err := Load(writeRubric(t, "midterm.yml", "rules: one point per correct term\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if r.Title != "midterm" {
		t.Fatalf("unexpected title %q", r.Title)
	}
}

func TestLoadYAMLRejectsUnknownAndEmpty(t *testing.T) {
	cases := map[string]string{
		"unknown.yaml":  "rules: x\npoints: 3\n",
		"empty.yaml":    "title: nothing\n",
		"negative.yaml": "rules: x\nmax_score: -1\n",
	}
	for name, content := range cases {
		if _, err := Load(writeRubric(t, name, content)); !domain.IsKind(err, domain.ErrConfig) {
			t.Fatalf("%s: expected config error, got %v", name, err)
		}
	}
}

func TestLoadPlainText(t *testing.T) {
	r, err := Load(writeRubric(t, "rules.txt", "\n  Full marks for a complete proof.\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if r.Title != "rules" || r.Text != "Full marks for a complete proof." {
		t.Fatalf("unexpected rubric %+v", r)
	}
}

func TestLoadRejectsBinaryAndMissing(t *testing.T) {
	if _, err := Load(writeRubric(t, "blob.txt", string([]byte{0xff, 0xfe, 0x00}))); !domain.IsKind(err, domain.ErrConfig) {
		t.Fatalf("expected config error for binary file, got %v", err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.txt")); !domain.IsKind(err, domain.ErrConfig) {
		t.Fatalf("expected config error for missing file, got %v", err)
	}
}
