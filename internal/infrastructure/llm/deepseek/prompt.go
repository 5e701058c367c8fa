package deepseek

import (
	"fmt"
	"strings"

	"github.com/kirillkom/paper-grader/internal/core/domain"
)

// buildGradingPrompt keeps the instruction in Chinese, the language of the
// built-in rubric and of the answer sheets.
func buildGradingPrompt(answer string, rubric domain.Rubric) string {
	var b strings.Builder
	b.WriteString("你是一名语文阅卷老师。\n")
	if title := strings.TrimSpace(rubric.Title); title != "" {
		fmt.Fprintf(&b, "【试卷】：%s\n", title)
	}
	b.WriteString("【评分规则】：\n")
	b.WriteString(strings.TrimSpace(rubric.Text))
	b.WriteString("\n\n【学生回答】：\n")
	b.WriteString(strings.TrimSpace(answer))
	b.WriteString("\n\n请根据【评分规则】对【学生回答】进行打分。\n")
	b.WriteString("要求：\n")
	b.WriteString("1. 忽略OCR识别产生的明显错别字，关注语义是否符合得分点。\n")
	b.WriteString("2. 只要意思对即可给分。\n")
	if rubric.MaxScore > 0 {
		fmt.Fprintf(&b, "3. 分数必须是 0 到 %d 之间的整数。\n", rubric.MaxScore)
	} else {
		b.WriteString("3. 分数必须是符合评分规则的非负整数。\n")
	}
	b.WriteString("请先给出分数。")
	return b.String()
}
