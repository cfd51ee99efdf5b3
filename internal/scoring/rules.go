package scoring

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-viper/mapstructure/v2"
)

// MultipleChoiceSpec scores a single selected key, either from a per-option
// score table or by comparing against one correct key.
type MultipleChoiceSpec struct {
	Options      map[string]string
	OptionScores map[string]float64 // takes precedence over Correct when non-empty
	Correct      *CorrectOption
	Unanswered   float64
	badScores    []string
}

// CorrectOption is the right/wrong form of multiple choice scoring.
type CorrectOption struct {
	Key              string
	ScoreIfCorrect   float64
	ScoreIfIncorrect float64
}

// MultipleSelectSpec scores a set of selected keys, either from a per-option
// score table or by reward/penalty against a set of correct keys.
type MultipleSelectSpec struct {
	Options      map[string]string
	OptionScores map[string]float64
	CorrectKeys  []string
	// PerCorrect is added for every selected correct key.
	PerCorrect float64
	// Penalty is subtracted for every selected key that is not correct.
	Penalty    float64
	Unanswered float64
	badScores  []string
}

// ExpectedAnswer is one accepted text for an input question.
type ExpectedAnswer struct {
	Text          string  `mapstructure:"text"`
	Score         float64 `mapstructure:"score"`
	CaseSensitive bool    `mapstructure:"case_sensitive"`
}

// InputSpec scores free text against an ordered list of expected answers.
type InputSpec struct {
	MaxLength       int // 0 means unlimited
	ExpectedAnswers []ExpectedAnswer
	DefaultScore    float64
	Unanswered      float64
	hasExpected     bool
}

// RangeSpec scores a number by its signed distance from a target value.
type RangeSpec struct {
	Min, Max, Step   float64
	TargetValue      float64
	ScoreAtTarget    float64
	PerDeviationUnit float64
	Unanswered       float64
	hasBounds        bool
}

func (*MultipleChoiceSpec) Type() AnswerType { return AnswerTypeMultipleChoice }
func (*MultipleSelectSpec) Type() AnswerType { return AnswerTypeMultipleSelect }
func (*InputSpec) Type() AnswerType          { return AnswerTypeInput }
func (*RangeSpec) Type() AnswerType          { return AnswerTypeRange }

func (*MultipleChoiceSpec) isSpec() {}
func (*MultipleSelectSpec) isSpec() {}
func (*InputSpec) isSpec()          {}
func (*RangeSpec) isSpec()          {}

// raw rule shapes as stored in scoring_rules
type choiceRules struct {
	OptionScores      map[string]any `mapstructure:"option_scores"`
	CorrectOptionKey  *string        `mapstructure:"correct_option_key"`
	ScoreIfCorrect    *float64       `mapstructure:"score_if_correct"`
	ScoreIfIncorrect  *float64       `mapstructure:"score_if_incorrect"`
	CorrectOptionKeys []string       `mapstructure:"correct_option_keys"`
	ScorePerCorrect   *float64       `mapstructure:"score_per_correct"`
	PenaltyIncorrect  *float64       `mapstructure:"penalty_per_incorrect"`
	ScoreIfUnanswered *float64       `mapstructure:"score_if_unanswered"`
}

type inputRules struct {
	ExpectedAnswers       []ExpectedAnswer `mapstructure:"expected_answers"`
	DefaultIncorrectScore *float64         `mapstructure:"default_incorrect_score"`
	ScoreIfUnanswered     *float64         `mapstructure:"score_if_unanswered"`
}

type inputOptions struct {
	MaxLength *int `mapstructure:"max_length"`
}

type rangeRules struct {
	TargetValue       *float64 `mapstructure:"target_value"`
	ScoreAtTarget     *float64 `mapstructure:"score_at_target"`
	PerDeviationUnit  *float64 `mapstructure:"score_per_deviation_unit"`
	ScoreIfUnanswered *float64 `mapstructure:"score_if_unanswered"`
}

type rangeOptions struct {
	Min  *float64 `mapstructure:"min"`
	Max  *float64 `mapstructure:"max"`
	Step *float64 `mapstructure:"step"`
}

// ParseSpec decodes loosely typed answer_options and scoring_rules into the
// variant matching answerType. Missing rule values take their defaults. It
// does not run the authoring checks; call Validate for those.
func ParseSpec(answerType AnswerType, options, rules map[string]any) (Spec, error) {
	switch answerType {
	case AnswerTypeMultipleChoice:
		return parseMultipleChoice(options, rules)
	case AnswerTypeMultipleSelect:
		return parseMultipleSelect(options, rules)
	case AnswerTypeInput:
		return parseInput(options, rules)
	case AnswerTypeRange:
		return parseRange(options, rules)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAnswerType, answerType)
}

func parseMultipleChoice(options, rules map[string]any) (*MultipleChoiceSpec, error) {
	spec := &MultipleChoiceSpec{}
	if err := decode(options, &spec.Options); err != nil {
		return nil, fmt.Errorf("answer_options: %w", err)
	}
	var r choiceRules
	if err := decode(rules, &r); err != nil {
		return nil, fmt.Errorf("scoring_rules: %w", err)
	}
	spec.OptionScores, spec.badScores = decodeOptionScores(r.OptionScores)
	if r.CorrectOptionKey != nil {
		spec.Correct = &CorrectOption{
			Key:              *r.CorrectOptionKey,
			ScoreIfCorrect:   valueOr(r.ScoreIfCorrect, MaxQuestionScore),
			ScoreIfIncorrect: valueOr(r.ScoreIfIncorrect, 0),
		}
	}
	spec.Unanswered = valueOr(r.ScoreIfUnanswered, 0)
	return spec, nil
}

func parseMultipleSelect(options, rules map[string]any) (*MultipleSelectSpec, error) {
	spec := &MultipleSelectSpec{}
	if err := decode(options, &spec.Options); err != nil {
		return nil, fmt.Errorf("answer_options: %w", err)
	}
	var r choiceRules
	if err := decode(rules, &r); err != nil {
		return nil, fmt.Errorf("scoring_rules: %w", err)
	}
	spec.OptionScores, spec.badScores = decodeOptionScores(r.OptionScores)
	spec.CorrectKeys = r.CorrectOptionKeys
	perCorrect := 0.0
	if n := len(uniqueKeys(r.CorrectOptionKeys)); n > 0 {
		perCorrect = MaxQuestionScore / float64(n)
	}
	spec.PerCorrect = valueOr(r.ScorePerCorrect, perCorrect)
	spec.Penalty = math.Abs(valueOr(r.PenaltyIncorrect, 0))
	spec.Unanswered = valueOr(r.ScoreIfUnanswered, 0)
	return spec, nil
}

func parseInput(options, rules map[string]any) (*InputSpec, error) {
	spec := &InputSpec{}
	var o inputOptions
	if err := decode(options, &o); err != nil {
		return nil, fmt.Errorf("answer_options: %w", err)
	}
	if o.MaxLength != nil {
		spec.MaxLength = *o.MaxLength
	}
	var r inputRules
	if err := decode(rules, &r); err != nil {
		return nil, fmt.Errorf("scoring_rules: %w", err)
	}
	_, spec.hasExpected = rules["expected_answers"]
	spec.ExpectedAnswers = r.ExpectedAnswers
	spec.DefaultScore = valueOr(r.DefaultIncorrectScore, 0)
	spec.Unanswered = valueOr(r.ScoreIfUnanswered, 0)
	return spec, nil
}

func parseRange(options, rules map[string]any) (*RangeSpec, error) {
	spec := &RangeSpec{}
	var o rangeOptions
	if err := decode(options, &o); err != nil {
		return nil, fmt.Errorf("answer_options: %w", err)
	}
	spec.hasBounds = o.Min != nil && o.Max != nil
	spec.Min = valueOr(o.Min, 0)
	spec.Max = valueOr(o.Max, MaxQuestionScore)
	spec.Step = valueOr(o.Step, 1)

	var r rangeRules
	if err := decode(rules, &r); err != nil {
		return nil, fmt.Errorf("scoring_rules: %w", err)
	}
	spec.TargetValue = valueOr(r.TargetValue, (spec.Min+spec.Max)/2)
	spec.ScoreAtTarget = valueOr(r.ScoreAtTarget, MaxQuestionScore)
	spec.PerDeviationUnit = valueOr(r.PerDeviationUnit, -1)
	spec.Unanswered = valueOr(r.ScoreIfUnanswered, 0)
	return spec, nil
}

// Validate checks that the options are a non-empty key/label table and that
// the rules name either option scores or a correct key that exists.
func (s *MultipleChoiceSpec) Validate() error {
	if len(s.Options) == 0 {
		return fmt.Errorf("answer_options must be a non-empty map of option key to label for %s", s.Type())
	}
	if err := checkScoresNumeric(s.badScores); err != nil {
		return err
	}
	if len(s.OptionScores) == 0 && s.Correct == nil {
		return fmt.Errorf("scoring_rules for %s must define option_scores or correct_option_key", s.Type())
	}
	if s.Correct != nil {
		if _, ok := s.Options[s.Correct.Key]; !ok {
			return fmt.Errorf("correct_option_key %q not found in answer_options", s.Correct.Key)
		}
	}
	return checkKeysExist("option_scores", mapKeys(s.OptionScores), s.Options)
}

func (s *MultipleSelectSpec) Validate() error {
	if len(s.Options) == 0 {
		return fmt.Errorf("answer_options must be a non-empty map of option key to label for %s", s.Type())
	}
	if err := checkScoresNumeric(s.badScores); err != nil {
		return err
	}
	if len(s.OptionScores) == 0 && len(s.CorrectKeys) == 0 {
		return fmt.Errorf("scoring_rules for %s must define option_scores or correct_option_keys", s.Type())
	}
	if err := checkKeysExist("option_scores", mapKeys(s.OptionScores), s.Options); err != nil {
		return err
	}
	return checkKeysExist("correct_option_keys", s.CorrectKeys, s.Options)
}

func (s *InputSpec) Validate() error {
	if !s.hasExpected {
		return fmt.Errorf("scoring_rules for %s must contain an expected_answers list", s.Type())
	}
	if s.MaxLength < 0 {
		return fmt.Errorf("max_length must not be negative")
	}
	return nil
}

func (s *RangeSpec) Validate() error {
	if !s.hasBounds {
		return fmt.Errorf("answer_options for %s must include numeric min and max", s.Type())
	}
	if s.Min >= s.Max {
		return fmt.Errorf("min must be less than max for %s options", s.Type())
	}
	if s.Step <= 0 {
		return fmt.Errorf("step must be positive")
	}
	return nil
}

func (s *MultipleChoiceSpec) CheckAnswer(a Answer) error {
	if !a.Answered() {
		return nil
	}
	key, ok := a.Text()
	if !ok {
		return fmt.Errorf("answer must be a single option key")
	}
	if len(s.Options) > 0 {
		if _, ok := s.Options[key]; !ok {
			return fmt.Errorf("invalid option %q", key)
		}
	}
	return nil
}

func (s *MultipleSelectSpec) CheckAnswer(a Answer) error {
	if !a.Answered() {
		return nil
	}
	keys, ok := a.Keys()
	if !ok {
		return fmt.Errorf("answer must be a list of option keys")
	}
	if len(s.Options) == 0 {
		return nil
	}
	for _, k := range keys {
		if _, ok := s.Options[k]; !ok {
			return fmt.Errorf("invalid option %q", k)
		}
	}
	return nil
}

func (s *InputSpec) CheckAnswer(a Answer) error {
	if !a.Answered() {
		return nil
	}
	text, ok := a.Text()
	if !ok {
		return fmt.Errorf("answer must be a string")
	}
	if s.MaxLength > 0 && len([]rune(text)) > s.MaxLength {
		return fmt.Errorf("answer exceeds max length %d", s.MaxLength)
	}
	return nil
}

func (s *RangeSpec) CheckAnswer(a Answer) error {
	if !a.Answered() {
		return nil
	}
	v, ok := a.Number()
	if !ok {
		return fmt.Errorf("answer must be a number")
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("answer must be a finite number")
	}
	if s.hasBounds {
		if v < s.Min {
			return fmt.Errorf("value below min %v", s.Min)
		}
		if v > s.Max {
			return fmt.Errorf("value above max %v", s.Max)
		}
	}
	return nil
}

// ParseAnswer converts a stored or submitted answer value into an Answer of
// the shape answerType expects. A nil raw value is an absent answer.
func ParseAnswer(answerType AnswerType, raw any) (Answer, error) {
	if raw == nil {
		return NoAnswer(), nil
	}
	switch answerType {
	case AnswerTypeMultipleChoice, AnswerTypeInput:
		s, ok := raw.(string)
		if !ok {
			return NoAnswer(), fmt.Errorf("answer must be a string, got %T", raw)
		}
		return TextAnswer(s), nil
	case AnswerTypeMultipleSelect:
		var keys []string
		if err := mapstructure.Decode(raw, &keys); err != nil {
			return NoAnswer(), fmt.Errorf("answer must be a list of strings: %w", err)
		}
		return SelectionAnswer(keys), nil
	case AnswerTypeRange:
		var v float64
		if err := mapstructure.Decode(raw, &v); err != nil {
			return NoAnswer(), fmt.Errorf("answer must be a number: %w", err)
		}
		return NumberAnswer(v), nil
	}
	return NoAnswer(), fmt.Errorf("%w: %q", ErrUnknownAnswerType, answerType)
}

func decode(input map[string]any, out any) error {
	if len(input) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  out,
		TagName: "mapstructure",
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

// decodeOptionScores converts each option score on its own. Keys whose value
// is not a number are left out, so they score 0, and are returned as bad.
func decodeOptionScores(raw map[string]any) (map[string]float64, []string) {
	if len(raw) == 0 {
		return nil, nil
	}
	scores := make(map[string]float64, len(raw))
	var bad []string
	for key, v := range raw {
		var score float64
		if err := mapstructure.Decode(v, &score); err != nil || v == nil {
			bad = append(bad, key)
			continue
		}
		scores[key] = score
	}
	sort.Strings(bad)
	return scores, bad
}

func checkScoresNumeric(bad []string) error {
	if len(bad) == 0 {
		return nil
	}
	return fmt.Errorf("option_scores for %q must be numbers", bad)
}

func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func mapKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func checkKeysExist(field string, keys []string, options map[string]string) error {
	for _, k := range keys {
		if _, ok := options[k]; !ok {
			return fmt.Errorf("key %q in %s not found in answer_options", k, field)
		}
	}
	return nil
}

func uniqueKeys(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
