package model

// Task is a discrete unit of work inside a project. Its name is unique
// within the owning project only; (Project, Name) is the composite key.
type Task struct {
	Project     string
	Name        string
	Description string
	// Extra holds unknown trailing fields preserved by the codec.
	Extra []string
}

// NewTask validates the inputs and builds a task value. The existence of the
// owning project is the store's concern, not the value type's.
func NewTask(project, name, description string) (*Task, error) {
	if err := ValidateName("project name", project); err != nil {
		return nil, err
	}
	if err := ValidateName("task name", name); err != nil {
		return nil, err
	}
	return &Task{
		Project:     project,
		Name:        name,
		Description: description,
	}, nil
}

// Key returns the composite lookup key for the task. The NUL separator
// cannot occur in validated names.
func (t *Task) Key() string {
	return TaskKey(t.Project, t.Name)
}

// TaskKey builds the composite key used by the store's task index.
func TaskKey(project, name string) string {
	return project + "\x00" + name
}

// Clone returns an independent copy of the task.
func (t *Task) Clone() *Task {
	out := *t
	out.Extra = append([]string(nil), t.Extra...)
	return &out
}
