// Package evaluation turns a supervisor's rubric input into a pass/fail
// verdict. The engine is pure: it never consults persisted state, and the
// total score is always recomputed from the item scores.
package evaluation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"internflow/policy"
)

// InvalidRubricError reports malformed scoring input, naming the offending
// category and item index so the form layer can highlight the exact field.
// Index is -1 when the category as a whole is malformed (wrong item count,
// missing decision).
type InvalidRubricError struct {
	Category Category
	Index    int
	Reason   string
}

func (e *InvalidRubricError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("evaluation: invalid rubric: %s: %s", e.Category, e.Reason)
	}
	return fmt.Sprintf("evaluation: invalid rubric: %s[%d]: %s", e.Category, e.Index, e.Reason)
}

// Engine scores rubrics against a configurable pass mark.
type Engine struct {
	validate *validator.Validate
	passMark int
}

// NewEngine builds a scoring engine with the pass mark from pol.
func NewEngine(pol policy.Policy) *Engine {
	return &Engine{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		passMark: pol.PassMark,
	}
}

// Score validates the rubric, computes category subtotals and the total
// score, and applies the pass rule. The verdict passes only when both the
// total reaches the pass mark and the supervisor decision is positive.
func (e *Engine) Score(r Rubric) (Result, error) {
	if err := e.validate.Struct(r); err != nil {
		return Result{}, asInvalidRubric(err)
	}

	res := Result{
		Subtotals:          make(map[Category]int, len(Categories())),
		SupervisorDecision: *r.SupervisorDecision,
	}
	for _, c := range Categories() {
		sub := 0
		for _, item := range r.Items(c) {
			sub += item
		}
		res.Subtotals[c] = sub
		res.TotalScore += sub
	}
	res.PassByRule = res.TotalScore >= e.passMark
	res.FinalVerdict = res.PassByRule && res.SupervisorDecision
	return res, nil
}

// asInvalidRubric translates the first validator failure into the domain
// error shape, recovering category and item index from the field namespace
// (e.g. "Rubric.Discipline[2]").
func asInvalidRubric(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return &InvalidRubricError{Index: -1, Reason: err.Error()}
	}

	fe := verrs[0]
	field := fe.Field()
	index := -1
	if open := strings.IndexByte(field, '['); open >= 0 {
		if close := strings.IndexByte(field, ']'); close > open {
			if n, convErr := strconv.Atoi(field[open+1 : close]); convErr == nil {
				index = n
			}
		}
		field = field[:open]
	}

	var reason string
	switch fe.Tag() {
	case "len":
		reason = fmt.Sprintf("expected exactly %d items", ItemsPerCategory)
	case "min", "max":
		reason = fmt.Sprintf("score %v out of range [0,%d]", fe.Value(), MaxItemScore)
	case "required":
		field = ""
		reason = "supervisor decision missing"
	default:
		reason = fmt.Sprintf("failed %s constraint", fe.Tag())
	}

	return &InvalidRubricError{
		Category: Category(strings.ToLower(field)),
		Index:    index,
		Reason:   reason,
	}
}
