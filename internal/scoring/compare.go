package scoring

// Comparison is one of the six threshold operators.
type Comparison string

const (
	LessThan           Comparison = "lt"
	LessThanOrEqual    Comparison = "lte"
	GreaterThan        Comparison = "gt"
	GreaterThanOrEqual Comparison = "gte"
	Equal              Comparison = "eq"
	NotEqual           Comparison = "neq"
)

var comparisons = map[Comparison]struct{}{
	LessThan: {}, LessThanOrEqual: {}, GreaterThan: {},
	GreaterThanOrEqual: {}, Equal: {}, NotEqual: {},
}

// Valid reports whether c is a known operator.
func (c Comparison) Valid() bool {
	_, ok := comparisons[c]
	return ok
}

// Compare evaluates "score <c> threshold". Unknown operators never match.
// Equal and NotEqual use exact float equality, so rules that depend on them
// should target values scores actually land on, such as whole numbers.
func Compare(score, threshold float64, c Comparison) bool {
	switch c {
	case LessThan:
		return score < threshold
	case LessThanOrEqual:
		return score <= threshold
	case GreaterThan:
		return score > threshold
	case GreaterThanOrEqual:
		return score >= threshold
	case Equal:
		return score == threshold
	case NotEqual:
		return score != threshold
	}
	return false
}

// FeedbackRule maps a score threshold to a feedback text.
type FeedbackRule struct {
	ScoreValue float64    `json:"score_value" bson:"score_value"`
	Comparison Comparison `json:"comparison" bson:"comparison"`
	Feedback   string     `json:"feedback" bson:"feedback"`
}

// OutcomeCategory is the course-level verdict for a student.
type OutcomeCategory string

const (
	OutcomeRecommended  OutcomeCategory = "RECOMMENDED_TO_TAKE_COURSE"
	OutcomeEligibleERPL OutcomeCategory = "ELIGIBLE_FOR_ERPL"
	OutcomeNotSuitable  OutcomeCategory = "NOT_SUITABLE_FOR_COURSE"
	OutcomeUndefined    OutcomeCategory = "UNDEFINED"
)

// Valid reports whether o is a known category.
func (o OutcomeCategory) Valid() bool {
	switch o {
	case OutcomeRecommended, OutcomeEligibleERPL, OutcomeNotSuitable, OutcomeUndefined:
		return true
	}
	return false
}

// OutcomeRule maps a course total threshold to an outcome category.
type OutcomeRule struct {
	ScoreValue float64         `json:"score_value" bson:"score_value"`
	Comparison Comparison      `json:"comparison" bson:"comparison"`
	Outcome    OutcomeCategory `json:"outcome" bson:"outcome"`
}

// MatchFeedback returns the feedback of the first rule in list order that
// matches score.
func MatchFeedback(rules []FeedbackRule, score float64) (string, bool) {
	for _, r := range rules {
		if Compare(score, r.ScoreValue, r.Comparison) {
			return r.Feedback, true
		}
	}
	return "", false
}

// MatchOutcome returns the outcome of the first rule in list order that
// matches score, or OutcomeUndefined.
func MatchOutcome(rules []OutcomeRule, score float64) OutcomeCategory {
	for _, r := range rules {
		if Compare(score, r.ScoreValue, r.Comparison) {
			return r.Outcome
		}
	}
	return OutcomeUndefined
}
