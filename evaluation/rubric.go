package evaluation

// Category names one of the five fixed rubric sections.
type Category string

const (
	CategoryDiscipline  Category = "discipline"
	CategoryBehavior    Category = "behavior"
	CategoryPerformance Category = "performance"
	CategoryMethod      Category = "method"
	CategoryRelation    Category = "relation"
)

// Categories lists the rubric sections in form order.
func Categories() []Category {
	return []Category{
		CategoryDiscipline,
		CategoryBehavior,
		CategoryPerformance,
		CategoryMethod,
		CategoryRelation,
	}
}

// ItemsPerCategory is the fixed number of scored items in each section.
const ItemsPerCategory = 4

// MaxItemScore is the highest score a single item may receive. Zero means
// the item was left unanswered.
const MaxItemScore = 5

// Rubric is the supervisor's scoring form for one completed internship.
// Each category holds exactly four item scores in [0,5]. The decision is
// independent of the numeric scores.
type Rubric struct {
	Discipline         []int `json:"discipline" validate:"len=4,dive,min=0,max=5"`
	Behavior           []int `json:"behavior" validate:"len=4,dive,min=0,max=5"`
	Performance        []int `json:"performance" validate:"len=4,dive,min=0,max=5"`
	Method             []int `json:"method" validate:"len=4,dive,min=0,max=5"`
	Relation           []int `json:"relation" validate:"len=4,dive,min=0,max=5"`
	SupervisorDecision *bool `json:"supervisor_decision" validate:"required"`
}

// Items returns the item scores for the given category.
func (r Rubric) Items(c Category) []int {
	switch c {
	case CategoryDiscipline:
		return r.Discipline
	case CategoryBehavior:
		return r.Behavior
	case CategoryPerformance:
		return r.Performance
	case CategoryMethod:
		return r.Method
	case CategoryRelation:
		return r.Relation
	default:
		return nil
	}
}

// Result is the computed outcome of scoring a rubric. PassByRule and
// SupervisorDecision are both carried so callers can distinguish a score
// failure from a decision override without re-deriving either.
type Result struct {
	Subtotals          map[Category]int `json:"subtotals"`
	TotalScore         int              `json:"total_score"`
	PassByRule         bool             `json:"pass_by_rule"`
	SupervisorDecision bool             `json:"supervisor_decision"`
	FinalVerdict       bool             `json:"final_verdict"`
}
