package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// Credential is the bearer token issued by the recognition service's token endpoint.
type Credential struct {
	Token     string
	ExpiresAt time.Time
}

func (c Credential) Valid() bool {
	return strings.TrimSpace(c.Token) != ""
}

// InputItem references one answer-sheet image.
type InputItem struct {
	Index int
	Name  string
	Path  string
}

var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".bmp":  {},
}

// IsImageFile matches the accepted answer-sheet extensions case-insensitively.
func IsImageFile(name string) bool {
	_, ok := imageExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

type RecognitionStatus string

const (
	RecognitionRecognized RecognitionStatus = "recognized"
	RecognitionEmpty      RecognitionStatus = "empty"
	RecognitionFailed     RecognitionStatus = "failed"
)

// Recognition is the tagged outcome of a recognition call. Empty means the
// service answered without text fragments; Failed means the call itself failed.
type Recognition struct {
	Status RecognitionStatus
	Text   string
	Cause  error
}

func Recognized(text string) Recognition {
	if strings.TrimSpace(text) == "" {
		return Recognition{Status: RecognitionEmpty}
	}
	return Recognition{Status: RecognitionRecognized, Text: text}
}

func RecognitionFailedWith(cause error) Recognition {
	return Recognition{Status: RecognitionFailed, Cause: cause}
}

func (r Recognition) OK() bool {
	return r.Status == RecognitionRecognized
}

// Grade is the outcome of one scoring call. Score is zero unless Outcome parsed.
type Grade struct {
	Outcome ScoreOutcome
	Raw     string
	Cause   error
}

func (g Grade) Score() int {
	if g.Cause != nil {
		return 0
	}
	return g.Outcome.Value()
}

type Rubric struct {
	Title    string `yaml:"title" toml:"title"`
	MaxScore int    `yaml:"max_score" toml:"max_score"`
	Text     string `yaml:"rules" toml:"rules"`
}

type RecordStatus string

const (
	RecordGraded          RecordStatus = "graded"
	RecordOCRFailed       RecordStatus = "ocr_failed"
	RecordScoreUnparsed   RecordStatus = "score_unparsed"
	RecordScoringFailed   RecordStatus = "scoring_failed"
	RecordProcessingError RecordStatus = "error"
)

const (
	ReasonOCREmpty = "OCR failure"
	ReasonOCRError = "OCR error"
	ReasonUnparsed = "score not found in grader response"
	ReasonScoring  = "scoring error"
	ReasonItem     = "item error"
)

// ResultRecord is the persisted outcome for one input item.
type ResultRecord struct {
	File   string       `json:"file"`
	Score  int          `json:"score"`
	Answer string       `json:"answer"`
	Reason string       `json:"reason,omitempty"`
	Status RecordStatus `json:"-"`
}

func (r ResultRecord) Failed() bool {
	return r.Status != RecordGraded
}
