package scoring

// Association is the correlation sign of a question within a course.
type Association string

const (
	Positive Association = "positive"
	Negative Association = "negative"
)

// Valid reports whether a is positive or negative.
func (a Association) Valid() bool { return a == Positive || a == Negative }

// Contribution is what a question score adds to its course total. A negative
// association inverts the score so every question contributes at most
// MaxQuestionScore.
func Contribution(score float64, a Association) float64 {
	if a == Negative {
		return MaxQuestionScore - score
	}
	return score
}

// Link ties one QCA to its question and course.
type Link struct {
	QuestionID string
	CourseID   string
}

// ScoredLink is a Link with the question's score and the QCA's sign.
type ScoredLink struct {
	Link
	Association Association
	Score       float64
}

// AggregateCourse sums the contributions of the links that belong to
// courseID. When a question is linked to the course more than once only the
// first link counts, for the total and the max alike.
func AggregateCourse(courseID string, links []ScoredLink) (total, maxScore float64) {
	seen := make(map[string]struct{})
	for _, l := range links {
		if l.CourseID != courseID {
			continue
		}
		if _, dup := seen[l.QuestionID]; dup {
			continue
		}
		seen[l.QuestionID] = struct{}{}
		total += Contribution(l.Score, l.Association)
		maxScore += MaxQuestionScore
	}
	return Round2(total), maxScore
}

// MaxScores returns the achievable maximum per course and for the whole
// survey. Only links whose course is in courseIDs are counted, and a question
// counts once toward the overall maximum however many courses it is linked to.
func MaxScores(courseIDs []string, links []Link) (map[string]float64, float64) {
	inSurvey := make(map[string]struct{}, len(courseIDs))
	perCourse := make(map[string]float64, len(courseIDs))
	for _, id := range courseIDs {
		inSurvey[id] = struct{}{}
		perCourse[id] = 0
	}

	type pair struct{ course, question string }
	seenPair := make(map[pair]struct{})
	seenQuestion := make(map[string]struct{})
	overall := 0.0
	for _, l := range links {
		if _, ok := inSurvey[l.CourseID]; !ok {
			continue
		}
		p := pair{l.CourseID, l.QuestionID}
		if _, dup := seenPair[p]; !dup {
			seenPair[p] = struct{}{}
			perCourse[l.CourseID] += MaxQuestionScore
		}
		if _, dup := seenQuestion[l.QuestionID]; !dup {
			seenQuestion[l.QuestionID] = struct{}{}
			overall += MaxQuestionScore
		}
	}
	return perCourse, overall
}

// OverallScore sums each unique question's score once, taking the first link
// in order for a question linked to several courses.
func OverallScore(links []ScoredLink) float64 {
	seen := make(map[string]struct{})
	total := 0.0
	for _, l := range links {
		if _, dup := seen[l.QuestionID]; dup {
			continue
		}
		seen[l.QuestionID] = struct{}{}
		total += l.Score
	}
	return Round2(total)
}
