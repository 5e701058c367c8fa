package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"github.com/kirillkom/paper-grader/internal/core/domain"
)

const previewRunes = 30

// Console prints per-item progress while a run executes and a summary table
// once it is persisted. It is both a RunObserver and a ResultSink.
type Console struct {
	mu         sync.Mutex
	out        io.Writer
	outputPath string
	style      table.Style
}

// NewConsole draws box tables on terminals and plain ASCII when output is
// redirected to a file or pipe.
func NewConsole(out io.Writer, outputPath string) *Console {
	style := table.StyleDefault
	if isTerminal(out) {
		style = table.StyleRounded
	}
	return &Console{out: out, outputPath: outputPath, style: style}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (c *Console) RunStarted(total int) {
	c.printf("found %d image(s), processing...\n", total)
	c.printf("%s\n", strings.Repeat("-", 48))
}

func (c *Console) ItemStarted(item domain.InputItem, total int) {
	c.printf("\n[%d/%d] processing: %s\n", item.Index+1, total, item.Name)
}

func (c *Console) RecognitionFinished(_ domain.InputItem, rec domain.Recognition, _ time.Duration) {
	switch {
	case rec.OK():
		c.printf("   OCR ... done\n")
		c.printf("   preview: %s...\n", Preview(rec.Text))
	case rec.Status == domain.RecognitionEmpty:
		c.printf("   OCR ... no text recognized\n")
	default:
		c.printf("   OCR ... failed: %v\n", rec.Cause)
	}
}

func (c *Console) GradingFinished(_ domain.InputItem, grade domain.Grade, _ time.Duration) {
	switch {
	case grade.Cause != nil:
		c.printf("   grading ... failed: %v\n", grade.Cause)
	case !grade.Outcome.Parsed:
		c.printf("   grading ... no score in response, recorded 0\n")
	default:
		c.printf("   grading ... score: %d\n", grade.Score())
	}
}

func (c *Console) ItemFinished(_ domain.InputItem, record domain.ResultRecord, _ time.Duration) {
	if record.Status == domain.RecordProcessingError {
		c.printf("   %s\n", record.Reason)
	}
}

func (c *Console) RunFinished(domain.RunResult) {}

// Persist prints the final summary table and totals.
func (c *Console) Persist(_ context.Context, run domain.RunResult) error {
	stats := run.Stats()
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", 48))
	b.WriteString("\nrun complete\n")
	if c.outputPath != "" {
		fmt.Fprintf(&b, "results saved to: %s\n", c.outputPath)
	}
	b.WriteString(renderSummary(run.Records, c.style))
	fmt.Fprintf(&b, "\ngraded %d of %d, failed %d, average %.2f, took %s\n",
		stats.Graded, stats.Total, stats.Failed, stats.AverageScore, run.Duration().Round(time.Millisecond))

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := io.WriteString(c.out, b.String()); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.out, format, args...)
}

// SummaryTable renders file, score and answer length in characters.
func SummaryTable(records []domain.ResultRecord) string {
	return renderSummary(records, table.StyleRounded)
}

func renderSummary(records []domain.ResultRecord, style table.Style) string {
	tw := table.NewWriter()
	tw.SetStyle(style)
	tw.AppendHeader(table.Row{"#", "File", "Score", "Chars", "Note"})
	for i, rec := range records {
		tw.AppendRow(table.Row{
			strconv.Itoa(i + 1),
			rec.File,
			strconv.Itoa(rec.Score),
			strconv.Itoa(utf8.RuneCountInString(rec.Answer)),
			rec.Reason,
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 4, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

// Preview returns the first 30 characters of an answer.
func Preview(answer string) string {
	if utf8.RuneCountInString(answer) <= previewRunes {
		return answer
	}
	runes := []rune(answer)
	return string(runes[:previewRunes])
}
