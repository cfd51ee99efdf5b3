package scoring

import "fmt"

// Question is the scoring view of a stored question.
type Question struct {
	ID               string
	Title            string
	AnswerType       AnswerType
	Options          map[string]any
	Rules            map[string]any
	DefaultFeedbacks []FeedbackRule
}

// QCA is the scoring view of a question-course association.
type QCA struct {
	ID          string
	QuestionID  string
	CourseID    string
	Association Association
	Feedbacks   []FeedbackRule
}

// AttemptInput is everything needed to score one submitted attempt.
type AttemptInput struct {
	CourseIDs []string
	// QCAs in storage order. Entries for courses outside CourseIDs are ignored.
	QCAs      []QCA
	Questions map[string]Question
	// Answers holds the raw answer value keyed by QCA id. A question is scored
	// once, from the first non-nil value stored under any of its QCAs.
	Answers map[string]any

	CourseFeedbackRules  map[string][]FeedbackRule
	CourseOutcomeRules   map[string][]OutcomeRule
	OverallFeedbackRules []FeedbackRule
	CompletionMessage    string
}

// AnswerScore is the score of the answer stored for one QCA. Value is the
// raw answer the question was scored from.
type AnswerScore struct {
	QCAID      string
	QuestionID string
	Value      any
	Result
}

// AttemptResult holds every computed field of a submitted attempt.
type AttemptResult struct {
	Answers          []AnswerScore
	CourseScores     map[string]float64
	CourseMaxScores  map[string]float64
	CourseFeedback   map[string]string
	DetailedFeedback map[string][]string
	CourseOutcomes   map[string]OutcomeCategory
	OverallScore     float64
	MaxOverallScore  float64
	OverallFeedback  string
}

// ScoreAttempt runs the full scoring pass for one attempt. The only error it
// returns wraps ErrIntegrity, when a QCA of a survey course names a question
// that is not in in.Questions. Malformed rules or answers score 0.
func ScoreAttempt(in AttemptInput) (AttemptResult, error) {
	inSurvey := make(map[string]struct{}, len(in.CourseIDs))
	for _, id := range in.CourseIDs {
		inSurvey[id] = struct{}{}
	}

	qcas := make([]QCA, 0, len(in.QCAs))
	for _, q := range in.QCAs {
		if _, ok := inSurvey[q.CourseID]; !ok {
			continue
		}
		if _, ok := in.Questions[q.QuestionID]; !ok {
			return AttemptResult{}, fmt.Errorf("%w: qca %s references question %s", ErrIntegrity, q.ID, q.QuestionID)
		}
		qcas = append(qcas, q)
	}

	res := AttemptResult{
		Answers:          make([]AnswerScore, 0, len(qcas)),
		CourseScores:     make(map[string]float64, len(in.CourseIDs)),
		CourseMaxScores:  make(map[string]float64, len(in.CourseIDs)),
		CourseFeedback:   make(map[string]string),
		DetailedFeedback: make(map[string][]string, len(in.CourseIDs)),
		CourseOutcomes:   make(map[string]OutcomeCategory, len(in.CourseIDs)),
	}

	raw := questionAnswers(qcas, in.Answers)
	results := make(map[string]Result)
	links := make([]ScoredLink, 0, len(qcas))
	for _, qca := range qcas {
		question := in.Questions[qca.QuestionID]
		result, scored := results[question.ID]
		if !scored {
			spec, _ := ParseSpec(question.AnswerType, question.Options, question.Rules)
			result = evaluateRaw(spec, question.AnswerType, raw[question.ID])
			results[question.ID] = result
		}

		res.Answers = append(res.Answers, AnswerScore{
			QCAID:      qca.ID,
			QuestionID: qca.QuestionID,
			Value:      raw[question.ID],
			Result:     result,
		})
		links = append(links, ScoredLink{
			Link:        Link{QuestionID: qca.QuestionID, CourseID: qca.CourseID},
			Association: qca.Association,
			Score:       result.Score,
		})

		if text, ok := questionFeedback(qca, question, result.Score); ok {
			res.DetailedFeedback[qca.CourseID] = append(res.DetailedFeedback[qca.CourseID],
				fmt.Sprintf("Q: %s: %s", question.Title, text))
		}
	}

	for _, courseID := range in.CourseIDs {
		total, maxScore := AggregateCourse(courseID, links)
		res.CourseScores[courseID] = total
		res.CourseMaxScores[courseID] = maxScore
		if _, ok := res.DetailedFeedback[courseID]; !ok {
			res.DetailedFeedback[courseID] = []string{}
		}
		if text, ok := MatchFeedback(in.CourseFeedbackRules[courseID], total); ok {
			res.CourseFeedback[courseID] = text
		}
		res.CourseOutcomes[courseID] = MatchOutcome(in.CourseOutcomeRules[courseID], total)
	}

	scoreLinks := make([]Link, len(links))
	for i, l := range links {
		scoreLinks[i] = l.Link
	}
	_, res.MaxOverallScore = MaxScores(in.CourseIDs, scoreLinks)
	res.OverallScore = OverallScore(links)

	if text, ok := MatchFeedback(in.OverallFeedbackRules, res.OverallScore); ok {
		res.OverallFeedback = text
	} else {
		res.OverallFeedback = in.CompletionMessage
	}
	return res, nil
}

// questionFeedback resolves the per-question feedback: the QCA's own rules
// first, then the question defaults.
func questionFeedback(qca QCA, q Question, score float64) (string, bool) {
	if text, ok := MatchFeedback(qca.Feedbacks, score); ok {
		return text, true
	}
	return MatchFeedback(q.DefaultFeedbacks, score)
}

// questionAnswers picks one raw answer per question: the first non-nil value
// in QCA order.
func questionAnswers(qcas []QCA, answers map[string]any) map[string]any {
	out := make(map[string]any)
	for _, qca := range qcas {
		if _, ok := out[qca.QuestionID]; ok {
			continue
		}
		if v := answers[qca.ID]; v != nil {
			out[qca.QuestionID] = v
		}
	}
	return out
}

func evaluateRaw(spec Spec, t AnswerType, raw any) Result {
	if raw == nil {
		return Evaluate(spec, NoAnswer())
	}
	if spec == nil {
		return Result{}
	}
	a, err := ParseAnswer(t, raw)
	if err != nil {
		return Result{}
	}
	return Evaluate(spec, a)
}
