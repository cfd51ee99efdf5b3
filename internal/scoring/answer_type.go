// Package scoring turns a student's raw answers into question scores, course
// totals, feedback, outcome categories and an overall survey score.
//
// The package is pure: it performs no I/O and holds no state. Every
// per-question score it produces lies in [0, MaxQuestionScore].
package scoring

import "errors"

// MaxQuestionScore is the upper bound of every per-question score.
const MaxQuestionScore = 10.0

// AnswerType is the kind of answer a question accepts
type AnswerType string

const (
	AnswerTypeMultipleChoice AnswerType = "multiple_choice" // one key out of answer_options
	AnswerTypeMultipleSelect AnswerType = "multiple_select" // any subset of answer_options keys
	AnswerTypeInput          AnswerType = "input"           // free text
	AnswerTypeRange          AnswerType = "range"           // number within [min, max]
)

// AnswerTypes lists every supported answer type.
var AnswerTypes = []AnswerType{
	AnswerTypeMultipleChoice,
	AnswerTypeMultipleSelect,
	AnswerTypeInput,
	AnswerTypeRange,
}

// Valid reports whether t is one of the supported answer types.
func (t AnswerType) Valid() bool {
	for _, known := range AnswerTypes {
		if t == known {
			return true
		}
	}
	return false
}

var (
	ErrUnknownAnswerType = errors.New("unknown answer type")
	ErrIntegrity         = errors.New("scoring input references a missing question")
)

// Spec is the typed form of a question's answer_options and scoring_rules.
// It is implemented only by the four variants in this package:
// *MultipleChoiceSpec, *MultipleSelectSpec, *InputSpec and *RangeSpec.
type Spec interface {
	Type() AnswerType
	// Validate performs the authoring-time checks on options and rules.
	Validate() error
	// CheckAnswer reports whether a is an acceptable answer to this question.
	CheckAnswer(a Answer) error

	isSpec()
}

type answerKind int

const (
	kindNone answerKind = iota
	kindText
	kindSelection
	kindNumber
)

// Answer is a student's answer value in typed form. The zero value is an
// absent answer.
type Answer struct {
	kind   answerKind
	text   string
	keys   []string
	number float64
}

// NoAnswer returns an absent answer.
func NoAnswer() Answer { return Answer{} }

// TextAnswer returns a single-key or free-text answer.
func TextAnswer(s string) Answer { return Answer{kind: kindText, text: s} }

// SelectionAnswer returns a multiple-select answer.
func SelectionAnswer(keys []string) Answer {
	cp := make([]string, len(keys))
	copy(cp, keys)
	return Answer{kind: kindSelection, keys: cp}
}

// NumberAnswer returns a range answer.
func NumberAnswer(n float64) Answer { return Answer{kind: kindNumber, number: n} }

// Answered reports whether the student gave any value.
func (a Answer) Answered() bool { return a.kind != kindNone }

// Text returns the string value of a text answer.
func (a Answer) Text() (string, bool) { return a.text, a.kind == kindText }

// Keys returns the selected keys of a selection answer.
func (a Answer) Keys() ([]string, bool) { return a.keys, a.kind == kindSelection }

// Number returns the value of a number answer.
func (a Answer) Number() (float64, bool) { return a.number, a.kind == kindNumber }

// Result is the score of one answer.
type Result struct {
	Score float64 `json:"score"`
	// Unanswered distinguishes "no answer given" from "answered and scored 0".
	Unanswered bool `json:"unanswered"`
}
