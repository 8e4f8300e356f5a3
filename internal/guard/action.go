package guard

import (
	"fmt"
)

// Action is the closed set of persistence actions the guard understands.
type Action int

const (
	ActionCreate Action = iota + 1
	ActionUpdate
	ActionUpdateMany
	ActionDelete
	ActionDeleteMany
	ActionUpsert
	ActionFindUnique
	ActionFindFirst
	ActionFindMany
	ActionCount
	ActionAggregate
)

// Actions lists every declared action, in declaration order.
var Actions = []Action{
	ActionCreate,
	ActionUpdate,
	ActionUpdateMany,
	ActionDelete,
	ActionDeleteMany,
	ActionUpsert,
	ActionFindUnique,
	ActionFindFirst,
	ActionFindMany,
	ActionCount,
	ActionAggregate,
}

var actionNames = map[Action]string{
	ActionCreate:     "Create",
	ActionUpdate:     "Update",
	ActionUpdateMany: "UpdateMany",
	ActionDelete:     "Delete",
	ActionDeleteMany: "DeleteMany",
	ActionUpsert:     "Upsert",
	ActionFindUnique: "FindUnique",
	ActionFindFirst:  "FindFirst",
	ActionFindMany:   "FindMany",
	ActionCount:      "Count",
	ActionAggregate:  "Aggregate",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// ParseAction accepts the canonical names ("UpdateMany") case-sensitively.
func ParseAction(s string) (Action, error) {
	for a, name := range actionNames {
		if name == s {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown action %q", s)
}

func (a Action) MarshalText() ([]byte, error) {
	if _, ok := actionNames[a]; !ok {
		return nil, fmt.Errorf("unknown action %d", int(a))
	}
	return []byte(a.String()), nil
}

func (a *Action) UnmarshalText(b []byte) error {
	parsed, err := ParseAction(string(b))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Category is the guard's view of an action.
type Category int

const (
	CategoryCreate Category = iota + 1
	CategorySingleMutation
	CategoryBulkMutation
	CategoryRead
)

func (c Category) String() string {
	switch c {
	case CategoryCreate:
		return "CREATE"
	case CategorySingleMutation:
		return "SINGLE_MUTATION"
	case CategoryBulkMutation:
		return "BULK_MUTATION"
	case CategoryRead:
		return "READ"
	default:
		return fmt.Sprintf("Category(%d)", int(c))
	}
}

// Classify maps an action to its category. The switch is exhaustive over
// Actions (enforced by the exhaustive linter and TestClassify_Total); an
// undeclared value is a programming error.
func Classify(a Action) Category {
	switch a {
	case ActionCreate:
		return CategoryCreate
	case ActionUpdate, ActionDelete, ActionUpsert:
		return CategorySingleMutation
	case ActionUpdateMany, ActionDeleteMany:
		return CategoryBulkMutation
	case ActionFindUnique, ActionFindFirst, ActionFindMany, ActionCount, ActionAggregate:
		return CategoryRead
	}
	panic(fmt.Sprintf("guard: unclassified action %s", a))
}

// IsMutation reports whether the action writes.
func (a Action) IsMutation() bool {
	switch Classify(a) {
	case CategoryCreate, CategorySingleMutation, CategoryBulkMutation:
		return true
	default:
		return false
	}
}
