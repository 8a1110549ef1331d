package compliance

import (
	"math"
	"time"

	"github.com/cresciperdi/intranet-api/internal/domain/entity"
)

// ScorePercent считает процент правильных ответов с округлением до ближайшего целого (2 из 3 = 67)
func ScorePercent(correct, total int) int {
	if total <= 0 {
		return 100
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}

// Grade проверяет ответы точным сравнением строк с correct_answer.
// Ответы должны быть выбраны на все вопросы, это проверяет вызывающий код.
func Grade(questions entity.QuizQuestionList, answers map[int]string, now time.Time) *QuizAttempt {
	attempt := &QuizAttempt{
		Results:  make([]QuestionResult, 0, len(questions)),
		Total:    len(questions),
		GradedAt: now,
	}

	for i := range questions {
		selected := answers[i]
		correct := questions[i].IsCorrect(selected)
		if correct {
			attempt.Correct++
		}
		attempt.Results = append(attempt.Results, QuestionResult{
			Index:       i,
			Selected:    selected,
			Correct:     correct,
			Explanation: questions[i].Explanation,
		})
	}

	attempt.Score = ScorePercent(attempt.Correct, attempt.Total)
	attempt.AllCorrect = attempt.Correct == attempt.Total
	return attempt
}
