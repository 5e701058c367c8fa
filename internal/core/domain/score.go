package domain

import (
	"regexp"
	"strconv"
)

var digitRun = regexp.MustCompile(`[0-9]+`)

// ScoreOutcome is Parsed(score) or Unparseable.
type ScoreOutcome struct {
	Parsed bool
	Score  int
}

func Unparseable() ScoreOutcome {
	return ScoreOutcome{}
}

func (o ScoreOutcome) Value() int {
	if !o.Parsed {
		return 0
	}
	return o.Score
}

// ParseScore takes the first contiguous run of decimal digits in a free-text
// grader response. "I would give this 7 out of 10" parses as 7.
func ParseScore(response string) ScoreOutcome {
	run := digitRun.FindString(response)
	if run == "" {
		return Unparseable()
	}
	n, err := strconv.Atoi(run)
	if err != nil {
		return Unparseable()
	}
	return ScoreOutcome{Parsed: true, Score: n}
}
