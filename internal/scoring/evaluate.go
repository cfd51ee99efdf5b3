package scoring

import (
	"math"
	"strings"
)

// Evaluate scores one answer against its question's spec. It never fails:
// rule references that do not resolve contribute 0, and the returned score
// is always clamped to [0, MaxQuestionScore].
func Evaluate(spec Spec, a Answer) Result {
	if spec == nil {
		return Result{Unanswered: !a.Answered()}
	}
	if !a.Answered() {
		return Result{Score: Clamp(unansweredScore(spec)), Unanswered: true}
	}

	var raw float64
	switch s := spec.(type) {
	case *MultipleChoiceSpec:
		raw = s.score(a)
	case *MultipleSelectSpec:
		raw = s.score(a)
	case *InputSpec:
		raw = s.score(a)
	case *RangeSpec:
		raw = s.score(a)
	}
	return Result{Score: Clamp(raw)}
}

func unansweredScore(spec Spec) float64 {
	switch s := spec.(type) {
	case *MultipleChoiceSpec:
		return s.Unanswered
	case *MultipleSelectSpec:
		return s.Unanswered
	case *InputSpec:
		return s.Unanswered
	case *RangeSpec:
		return s.Unanswered
	}
	return 0
}

func (s *MultipleChoiceSpec) score(a Answer) float64 {
	key, ok := a.Text()
	if !ok {
		return 0
	}
	if len(s.OptionScores) > 0 {
		if len(s.Options) > 0 {
			if _, known := s.Options[key]; !known {
				return 0
			}
		}
		return s.OptionScores[key]
	}
	if s.Correct == nil {
		return 0
	}
	if key == s.Correct.Key {
		return s.Correct.ScoreIfCorrect
	}
	return s.Correct.ScoreIfIncorrect
}

func (s *MultipleSelectSpec) score(a Answer) float64 {
	keys, ok := a.Keys()
	if !ok {
		return 0
	}
	selected := uniqueKeys(keys)

	total := 0.0
	if len(s.OptionScores) > 0 {
		for _, k := range selected {
			if len(s.Options) > 0 {
				if _, known := s.Options[k]; !known {
					continue
				}
			}
			total += s.OptionScores[k]
		}
		return total
	}

	correct := make(map[string]struct{}, len(s.CorrectKeys))
	for _, k := range s.CorrectKeys {
		correct[k] = struct{}{}
	}
	for _, k := range selected {
		if _, ok := correct[k]; ok {
			total += s.PerCorrect
		} else {
			total -= s.Penalty
		}
	}
	return total
}

func (s *InputSpec) score(a Answer) float64 {
	text, ok := a.Text()
	if !ok {
		return 0
	}
	for _, exp := range s.ExpectedAnswers {
		if exp.CaseSensitive {
			if text == exp.Text {
				return exp.Score
			}
			continue
		}
		if strings.EqualFold(text, exp.Text) {
			return exp.Score
		}
	}
	return s.DefaultScore
}

// score applies the signed linear deviation from the target value.
func (s *RangeSpec) score(a Answer) float64 {
	v, ok := a.Number()
	if !ok {
		return 0
	}
	deviation := v - s.TargetValue
	return s.ScoreAtTarget + deviation*s.PerDeviationUnit
}

// Clamp bounds x to [0, MaxQuestionScore] and rounds it to two decimals.
// NaN maps to 0.
func Clamp(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return Round2(math.Max(0, math.Min(MaxQuestionScore, x)))
}

// Round2 rounds x to two decimal places.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}
