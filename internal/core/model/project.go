package model

import "strings"

// Project is the unit of organization that groups tasks and frames.
// Its name is the unique key.
type Project struct {
	Name        string
	Description string
	// DefaultTags are merged into the tag set of every new frame recorded
	// against this project.
	DefaultTags []string
	// Extra holds unknown trailing fields found on the encoded record, so a
	// file written by a newer version round-trips losslessly.
	Extra []string
}

// NewProject validates the inputs and builds a project value.
func NewProject(name, description string, defaultTags []string) (*Project, error) {
	if err := ValidateName("project name", name); err != nil {
		return nil, err
	}
	tags, err := NormalizeTags(defaultTags)
	if err != nil {
		return nil, err
	}
	return &Project{
		Name:        name,
		Description: description,
		DefaultTags: tags,
	}, nil
}

// ValidateName checks that a project or task name is non-empty and free of
// the codec's record and field delimiters.
func ValidateName(field, name string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: field, Value: name, Reason: "must not be empty"}
	}
	if strings.ContainsAny(name, "\t\n\r") {
		return &ValidationError{Field: field, Value: name,
			Reason: "must not contain tabs or line breaks"}
	}
	return nil
}

// Clone returns an independent copy of the project.
func (p *Project) Clone() *Project {
	out := *p
	out.DefaultTags = append([]string(nil), p.DefaultTags...)
	out.Extra = append([]string(nil), p.Extra...)
	return &out
}
