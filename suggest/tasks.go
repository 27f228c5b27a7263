package suggest

import (
	"fmt"
	"sort"

	"github.com/hazyhaar/regard/classify"
	"github.com/hazyhaar/regard/diff"
	"github.com/hazyhaar/regard/idgen"
)

// Task aggregates suggestions sharing the same category, severity and
// selector. Regions accumulates every contributing suggestion's region.
type Task struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Selector    string            `json:"selector"`
	Category    classify.Category `json:"category"`
	Severity    classify.Severity `json:"severity"`
	Description string            `json:"description"`
	Priority    int               `json:"priority"`
	Regions     []diff.Region     `json:"regions"`
}

// BuildTasks groups suggestions by (category, severity, selector). The
// first suggestion of a group seeds the task; later ones only append their
// region. Output is sorted ascending by priority, ties keeping
// group-creation order. A nil generator falls back to task_-prefixed
// UUIDv7, so IDs are unique per call under any generator that is.
func BuildTasks(suggestions []Suggestion, newID idgen.Generator) []Task {
	if newID == nil {
		newID = idgen.Prefixed("task_", idgen.Default)
	}

	index := make(map[string]int)
	var tasks []Task
	for _, s := range suggestions {
		key := string(s.Category) + "::" + string(s.Severity) + "::" + s.Selector
		if i, ok := index[key]; ok {
			tasks[i].Regions = append(tasks[i].Regions, s.Region)
			continue
		}
		index[key] = len(tasks)
		tasks = append(tasks, Task{
			ID:          newID(),
			Title:       fmt.Sprintf("Fix %s issue on %q", s.Category, s.Selector),
			Selector:    s.Selector,
			Category:    s.Category,
			Severity:    s.Severity,
			Description: s.Description,
			Priority:    priorityOf(s.Severity),
			Regions:     []diff.Region{s.Region},
		})
	}

	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].Priority < tasks[j].Priority
	})
	return tasks
}

// priorityOf maps severity to priority: high 1, medium 2, low 3. Unknown
// severities sink to 3 rather than erroring.
func priorityOf(s classify.Severity) int {
	switch s {
	case classify.SeverityHigh:
		return 1
	case classify.SeverityMedium:
		return 2
	default:
		return 3
	}
}
