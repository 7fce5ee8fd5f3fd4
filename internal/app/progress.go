package app

import "pathos/api/internal/store"

// ProgressCounts is a completed/total pair.
type ProgressCounts struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// Progress summarizes a milestone one level deep: its direct tasks and its
// direct children. Deeper descendants do not count.
type Progress struct {
	Tasks    ProgressCounts `json:"tasks"`
	Children ProgressCounts `json:"children"`
	Percent  int            `json:"percent"`
}

// ComputeProgress derives progress from a milestone's direct children and
// tasks. A milestone with nothing under it is 0 percent, never NaN.
func ComputeProgress(children []store.MilestoneRef, tasks []store.TaskRef) Progress {
	p := Progress{
		Tasks:    ProgressCounts{Total: len(tasks)},
		Children: ProgressCounts{Total: len(children)},
	}
	for _, t := range tasks {
		if t.Completed {
			p.Tasks.Completed++
		}
	}
	for _, c := range children {
		if c.Status == "completed" {
			p.Children.Completed++
		}
	}

	total := p.Tasks.Total + p.Children.Total
	if total > 0 {
		done := p.Tasks.Completed + p.Children.Completed
		p.Percent = (done*100 + total/2) / total
	}
	return p
}
