package usecase

import (
	"time"

	"github.com/kirillkom/paper-grader/internal/core/domain"
	"github.com/kirillkom/paper-grader/internal/core/ports"
)

type observerSet []ports.RunObserver

func (s observerSet) RunStarted(total int) {
	for _, o := range s {
		o.RunStarted(total)
	}
}

func (s observerSet) ItemStarted(item domain.InputItem, total int) {
	for _, o := range s {
		o.ItemStarted(item, total)
	}
}

func (s observerSet) RecognitionFinished(item domain.InputItem, rec domain.Recognition, elapsed time.Duration) {
	for _, o := range s {
		o.RecognitionFinished(item, rec, elapsed)
	}
}

func (s observerSet) GradingFinished(item domain.InputItem, grade domain.Grade, elapsed time.Duration) {
	for _, o := range s {
		o.GradingFinished(item, grade, elapsed)
	}
}

func (s observerSet) ItemFinished(item domain.InputItem, record domain.ResultRecord, elapsed time.Duration) {
	for _, o := range s {
		o.ItemFinished(item, record, elapsed)
	}
}

func (s observerSet) RunFinished(run domain.RunResult) {
	for _, o := range s {
		o.RunFinished(run)
	}
}
