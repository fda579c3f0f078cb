// Package store owns the canonical in-memory index over the text-backed
// collections of projects, tasks and frames, and the append/rewrite policy
// that persists them. All mutation goes through this package so invariant
// checking and durability stay in one place.
package store

import (
	"bufio"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kvisser/tempo/internal/core/model"
	"github.com/kvisser/tempo/internal/data/codec"
	"github.com/kvisser/tempo/internal/util"
)

const (
	projectsFile = "projects.tsv"
	tasksFile    = "tasks.tsv"
	framesFile   = "frames.tsv"
	lockFileName = ".tempo.lock"
)

// DefaultLockWait bounds how long a mutating operation waits for the data
// directory lock before giving up with ErrStoreLocked.
const DefaultLockWait = 2 * time.Second

// CorruptError reports a store whose files violate a load invariant, for
// example two open frames or a frame referencing an unknown project. The
// caller must refuse further mutation until the user repairs the file; the
// store never attempts silent auto-repair.
type CorruptError struct {
	Reason string
}

func (e *CorruptError) Error() string {
	return "corrupt store: " + e.Reason
}

// Store is the in-memory index plus its backing text files.
type Store struct {
	dir      string
	lockWait time.Duration

	projects   map[string]*model.Project
	projOrder  []string
	tasks      map[string]*model.Task
	taskOrder  []string
	frames     map[string]*model.Frame
	frameOrder []string
}

// Open loads the data directory into memory, creating it if needed, and
// verifies the load invariants.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	s := &Store{dir: dir, lockWait: DefaultLockWait}
	if err := s.load(); err != nil {
		return nil, err
	}
	util.LogDebugf("store loaded: %d projects, %d tasks, %d frames",
		len(s.projOrder), len(s.taskOrder), len(s.frameOrder))
	return s, nil
}

// Dir returns the data directory backing the store.
func (s *Store) Dir() string {
	return s.dir
}

// SetLockWait overrides the bounded wait for the directory lock.
func (s *Store) SetLockWait(d time.Duration) {
	s.lockWait = d
}

// load reads all three files and rebuilds the indices, replacing the current
// in-memory state. Invariant violations surface as *CorruptError.
func (s *Store) load() error {
	s.projects = make(map[string]*model.Project)
	s.projOrder = nil
	s.tasks = make(map[string]*model.Task)
	s.taskOrder = nil
	s.frames = make(map[string]*model.Frame)
	s.frameOrder = nil

	err := s.readLines(projectsFile, func(line string, n int) error {
		p, err := codec.DecodeProject(line)
		if err != nil {
			return &codec.Error{File: projectsFile, Line: n, Err: err}
		}
		if _, ok := s.projects[p.Name]; ok {
			return &CorruptError{Reason: fmt.Sprintf("duplicate project %q (%s:%d)", p.Name, projectsFile, n)}
		}
		s.projects[p.Name] = p
		s.projOrder = append(s.projOrder, p.Name)
		return nil
	})
	if err != nil {
		return err
	}

	err = s.readLines(tasksFile, func(line string, n int) error {
		t, err := codec.DecodeTask(line)
		if err != nil {
			return &codec.Error{File: tasksFile, Line: n, Err: err}
		}
		if _, ok := s.projects[t.Project]; !ok {
			return &CorruptError{Reason: fmt.Sprintf("task %q references unknown project %q (%s:%d)",
				t.Name, t.Project, tasksFile, n)}
		}
		if _, ok := s.tasks[t.Key()]; ok {
			return &CorruptError{Reason: fmt.Sprintf("duplicate task %q in project %q (%s:%d)",
				t.Name, t.Project, tasksFile, n)}
		}
		s.tasks[t.Key()] = t
		s.taskOrder = append(s.taskOrder, t.Key())
		return nil
	})
	if err != nil {
		return err
	}

	running := ""
	err = s.readLines(framesFile, func(line string, n int) error {
		f, err := codec.DecodeFrame(line)
		if err != nil {
			return &codec.Error{File: framesFile, Line: n, Err: err}
		}
		if _, ok := s.frames[f.ID]; ok {
			return &CorruptError{Reason: fmt.Sprintf("duplicate frame id %s (%s:%d)", f.ID, framesFile, n)}
		}
		if _, ok := s.projects[f.Project]; !ok {
			return &CorruptError{Reason: fmt.Sprintf("frame %s references unknown project %q (%s:%d)",
				util.ShortID(f.ID), f.Project, framesFile, n)}
		}
		if f.Task != "" {
			if _, ok := s.tasks[model.TaskKey(f.Project, f.Task)]; !ok {
				return &CorruptError{Reason: fmt.Sprintf("frame %s references unknown task %q (%s:%d)",
					util.ShortID(f.ID), f.Task, framesFile, n)}
			}
		}
		if !f.End.IsZero() && f.End.Before(f.Start) {
			return &CorruptError{Reason: fmt.Sprintf("frame %s ends before it starts (%s:%d)",
				util.ShortID(f.ID), framesFile, n)}
		}
		if f.Running() {
			if running != "" {
				return &CorruptError{Reason: fmt.Sprintf("more than one running frame: %s and %s",
					util.ShortID(running), util.ShortID(f.ID))}
			}
			running = f.ID
		}
		s.frames[f.ID] = f
		s.frameOrder = append(s.frameOrder, f.ID)
		return nil
	})
	return err
}

// readLines feeds non-blank lines of a data file to fn with 1-based line
// numbers. A missing file is an empty collection. Trailing whitespace and
// blank lines are tolerated.
func (s *Store) readLines(name string, fn func(line string, n int) error) error {
	file, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	n := 0
	for scanner.Scan() {
		n++
		line := strings.TrimRight(scanner.Text(), " \r")
		if line == "" {
			continue
		}
		if err := fn(line, n); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// mutate runs fn with the directory lock held and a freshly loaded index, so
// the validation inside fn sees the state another process may have written a
// moment ago. The lock is released on all exit paths.
func (s *Store) mutate(fn func() error) error {
	unlock, err := acquireLock(filepath.Join(s.dir, lockFileName), s.lockWait)
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.load(); err != nil {
		return err
	}
	return fn()
}

// Project returns a copy of the named project.
func (s *Store) Project(name string) (*model.Project, error) {
	p, ok := s.projects[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownProject, name)
	}
	return p.Clone(), nil
}

// Projects returns copies of all projects in file order.
func (s *Store) Projects() []*model.Project {
	out := make([]*model.Project, 0, len(s.projOrder))
	for _, name := range s.projOrder {
		out = append(out, s.projects[name].Clone())
	}
	return out
}

// Task returns a copy of the named task within the project.
func (s *Store) Task(project, name string) (*model.Task, error) {
	t, ok := s.tasks[model.TaskKey(project, name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q in project %q", model.ErrUnknownTask, name, project)
	}
	return t.Clone(), nil
}

// Tasks returns copies of all tasks, restricted to one project when project
// is non-empty, in file order.
func (s *Store) Tasks(project string) []*model.Task {
	var out []*model.Task
	for _, key := range s.taskOrder {
		t := s.tasks[key]
		if project != "" && t.Project != project {
			continue
		}
		out = append(out, t.Clone())
	}
	return out
}

// Frame returns a copy of the frame with the exact id.
func (s *Store) Frame(id string) (*model.Frame, error) {
	f, ok := s.frames[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrUnknownFrame, id)
	}
	return f.Clone(), nil
}

// ResolveFrameID resolves a full id or an unambiguous id prefix.
func (s *Store) ResolveFrameID(idOrPrefix string) (string, error) {
	if _, ok := s.frames[idOrPrefix]; ok {
		return idOrPrefix, nil
	}
	match := ""
	for id := range s.frames {
		if strings.HasPrefix(id, idOrPrefix) {
			if match != "" {
				return "", fmt.Errorf("%w: ambiguous id prefix %q", model.ErrUnknownFrame, idOrPrefix)
			}
			match = id
		}
	}
	if match == "" {
		return "", fmt.Errorf("%w: %s", model.ErrUnknownFrame, idOrPrefix)
	}
	return match, nil
}

// RunningFrame returns a copy of the unique open frame, if any.
func (s *Store) RunningFrame() (*model.Frame, bool) {
	for _, id := range s.frameOrder {
		if f := s.frames[id]; f.Running() {
			return f.Clone(), true
		}
	}
	return nil, false
}

// Frames returns a restartable sequence over copies of the frames matching
// the predicate (nil matches everything), ordered by start time ascending
// with ties broken by id. Every range re-evaluates against the current
// in-memory snapshot.
func (s *Store) Frames(match func(*model.Frame) bool) iter.Seq[*model.Frame] {
	return func(yield func(*model.Frame) bool) {
		ids := make([]string, len(s.frameOrder))
		copy(ids, s.frameOrder)
		sort.Slice(ids, func(i, j int) bool {
			a, b := s.frames[ids[i]], s.frames[ids[j]]
			if !a.Start.Equal(b.Start) {
				return a.Start.Before(b.Start)
			}
			return a.ID < b.ID
		})
		for _, id := range ids {
			f := s.frames[id]
			if match != nil && !match(f) {
				continue
			}
			if !yield(f.Clone()) {
				return
			}
		}
	}
}

// CreateProject adds a project, failing on a duplicate name.
func (s *Store) CreateProject(name, description string, defaultTags []string) (*model.Project, error) {
	p, err := model.NewProject(name, description, defaultTags)
	if err != nil {
		return nil, err
	}
	err = s.mutate(func() error {
		if _, ok := s.projects[p.Name]; ok {
			return fmt.Errorf("%w: %q", model.ErrDuplicateProject, p.Name)
		}
		s.projects[p.Name] = p
		s.projOrder = append(s.projOrder, p.Name)
		return s.persistProjects()
	})
	if err != nil {
		return nil, err
	}
	util.LogInfof("created project %q", p.Name)
	return p.Clone(), nil
}

// DeleteProject removes a project that no task or frame references.
func (s *Store) DeleteProject(name string) error {
	return s.mutate(func() error {
		if _, ok := s.projects[name]; !ok {
			return fmt.Errorf("%w: %q", model.ErrUnknownProject, name)
		}
		for _, key := range s.taskOrder {
			if s.tasks[key].Project == name {
				return fmt.Errorf("%w: %q", model.ErrProjectInUse, name)
			}
		}
		for _, id := range s.frameOrder {
			if s.frames[id].Project == name {
				return fmt.Errorf("%w: %q", model.ErrProjectInUse, name)
			}
		}
		delete(s.projects, name)
		s.projOrder = remove(s.projOrder, name)
		return s.persistProjects()
	})
}

// CreateTask adds a task to an existing project, failing on a duplicate
// (project, name) pair.
func (s *Store) CreateTask(project, name, description string) (*model.Task, error) {
	t, err := model.NewTask(project, name, description)
	if err != nil {
		return nil, err
	}
	err = s.mutate(func() error {
		if _, ok := s.projects[t.Project]; !ok {
			return fmt.Errorf("%w: %q", model.ErrUnknownProject, t.Project)
		}
		if _, ok := s.tasks[t.Key()]; ok {
			return fmt.Errorf("%w: %q in project %q", model.ErrDuplicateTask, t.Name, t.Project)
		}
		s.tasks[t.Key()] = t
		s.taskOrder = append(s.taskOrder, t.Key())
		return s.persistTasks()
	})
	if err != nil {
		return nil, err
	}
	util.LogInfof("created task %q in project %q", t.Name, t.Project)
	return t.Clone(), nil
}

// DeleteTask removes a task that no frame references.
func (s *Store) DeleteTask(project, name string) error {
	key := model.TaskKey(project, name)
	return s.mutate(func() error {
		if _, ok := s.tasks[key]; !ok {
			return fmt.Errorf("%w: %q in project %q", model.ErrUnknownTask, name, project)
		}
		for _, id := range s.frameOrder {
			f := s.frames[id]
			if f.Project == project && f.Task == name {
				return fmt.Errorf("%w: %q", model.ErrTaskInUse, name)
			}
		}
		delete(s.tasks, key)
		s.taskOrder = remove(s.taskOrder, key)
		return s.persistTasks()
	})
}

// CreateFrame opens a running frame against a project and optional task,
// merging the project's default tags into the frame's tag set. At most one
// running frame may exist; a second attempt fails with
// ErrOverlappingRunningFrame even when it races another process.
func (s *Store) CreateFrame(project, task string, start time.Time, tags []string, note string) (*model.Frame, error) {
	f, err := model.NewFrame(project, task, start, tags, note)
	if err != nil {
		return nil, err
	}
	err = s.mutate(func() error {
		if err := s.checkFrameRefs(f); err != nil {
			return err
		}
		if open, ok := s.runningLocked(); ok {
			return fmt.Errorf("%w: frame %s", model.ErrOverlappingRunningFrame, util.ShortID(open.ID))
		}
		f.Tags = model.MergeTags(f.Tags, s.projects[f.Project].DefaultTags)
		return s.appendFrame(f)
	})
	if err != nil {
		return nil, err
	}
	util.LogInfof("started frame %s on project %q", util.ShortID(f.ID), f.Project)
	return f.Clone(), nil
}

// LogFrame records an already-finished interval of work. Overlaps with
// existing frames are permitted here and surfaced by the report engine.
func (s *Store) LogFrame(project, task string, start, end time.Time, tags []string, note string) (*model.Frame, error) {
	f, err := model.NewFrame(project, task, start, tags, note)
	if err != nil {
		return nil, err
	}
	f, err = f.WithEnd(end)
	if err != nil {
		return nil, err
	}
	err = s.mutate(func() error {
		if err := s.checkFrameRefs(f); err != nil {
			return err
		}
		f.Tags = model.MergeTags(f.Tags, s.projects[f.Project].DefaultTags)
		return s.appendFrame(f)
	})
	if err != nil {
		return nil, err
	}
	return f.Clone(), nil
}

// CloseFrame sets the end timestamp of a running frame.
func (s *Store) CloseFrame(id string, end time.Time) (*model.Frame, error) {
	var out *model.Frame
	err := s.mutate(func() error {
		f, ok := s.frames[id]
		if !ok {
			return fmt.Errorf("%w: %s", model.ErrUnknownFrame, id)
		}
		if !f.Running() {
			return fmt.Errorf("%w: frame %s is already closed", model.ErrNotRunning, util.ShortID(id))
		}
		closed, err := f.WithEnd(end)
		if err != nil {
			return err
		}
		s.frames[id] = closed
		out = closed
		return s.persistFrames()
	})
	if err != nil {
		return nil, err
	}
	return out.Clone(), nil
}

// AmendFrame applies a partial edit to a frame and rewrites the frames file.
func (s *Store) AmendFrame(id string, patch model.FramePatch) (*model.Frame, error) {
	var out *model.Frame
	err := s.mutate(func() error {
		f, ok := s.frames[id]
		if !ok {
			return fmt.Errorf("%w: %s", model.ErrUnknownFrame, id)
		}
		patched, err := patch.Apply(f)
		if err != nil {
			return err
		}
		if err := s.checkFrameRefs(patched); err != nil {
			return err
		}
		if patched.Running() {
			if open, ok := s.runningLocked(); ok && open.ID != id {
				return fmt.Errorf("%w: frame %s", model.ErrOverlappingRunningFrame, util.ShortID(open.ID))
			}
		}
		s.frames[id] = patched
		out = patched
		return s.persistFrames()
	})
	if err != nil {
		return nil, err
	}
	return out.Clone(), nil
}

// DeleteFrame removes a frame and rewrites the frames file.
func (s *Store) DeleteFrame(id string) error {
	return s.mutate(func() error {
		if _, ok := s.frames[id]; !ok {
			return fmt.Errorf("%w: %s", model.ErrUnknownFrame, id)
		}
		delete(s.frames, id)
		s.frameOrder = remove(s.frameOrder, id)
		return s.persistFrames()
	})
}

// checkFrameRefs verifies the frame's project and task exist.
func (s *Store) checkFrameRefs(f *model.Frame) error {
	if _, ok := s.projects[f.Project]; !ok {
		return fmt.Errorf("%w: %q", model.ErrUnknownProject, f.Project)
	}
	if f.Task != "" {
		if _, ok := s.tasks[model.TaskKey(f.Project, f.Task)]; !ok {
			return fmt.Errorf("%w: %q in project %q", model.ErrUnknownTask, f.Task, f.Project)
		}
	}
	return nil
}

func (s *Store) runningLocked() (*model.Frame, bool) {
	for _, id := range s.frameOrder {
		if f := s.frames[id]; f.Running() {
			return f, true
		}
	}
	return nil, false
}

// appendFrame adds a frame at the end of the file order and persists. The
// content change is a pure append (one new trailing line), which keeps diffs
// minimal even though the write itself goes through an atomic replace.
func (s *Store) appendFrame(f *model.Frame) error {
	s.frames[f.ID] = f
	s.frameOrder = append(s.frameOrder, f.ID)
	return s.persistFrames()
}

func (s *Store) persistProjects() error {
	var b strings.Builder
	for _, name := range s.projOrder {
		b.WriteString(codec.EncodeProject(s.projects[name]))
		b.WriteByte('\n')
	}
	return atomicWrite(filepath.Join(s.dir, projectsFile), []byte(b.String()))
}

func (s *Store) persistTasks() error {
	var b strings.Builder
	for _, key := range s.taskOrder {
		b.WriteString(codec.EncodeTask(s.tasks[key]))
		b.WriteByte('\n')
	}
	return atomicWrite(filepath.Join(s.dir, tasksFile), []byte(b.String()))
}

func (s *Store) persistFrames() error {
	var b strings.Builder
	for _, id := range s.frameOrder {
		b.WriteString(codec.EncodeFrame(s.frames[id]))
		b.WriteByte('\n')
	}
	return atomicWrite(filepath.Join(s.dir, framesFile), []byte(b.String()))
}

func remove(list []string, item string) []string {
	out := list[:0]
	for _, v := range list {
		if v != item {
			out = append(out, v)
		}
	}
	return out
}
