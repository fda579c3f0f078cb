package store

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvisser/tempo/internal/core/model"
	"github.com/kvisser/tempo/internal/data/codec"
)

var (
	tsStart = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	tsEnd   = time.Date(2025, 3, 10, 10, 30, 0, 0, time.UTC)
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	return s
}

func seedProject(t *testing.T, s *Store, name string, tags ...string) {
	t.Helper()
	_, err := s.CreateProject(name, "", tags)
	require.NoError(t, err)
}

func TestCreateProject(t *testing.T) {
	s := openTestStore(t)

	p, err := s.CreateProject("website", "client work", []string{"web"})
	require.NoError(t, err)
	assert.Equal(t, "website", p.Name)
	assert.Equal(t, []string{"web"}, p.DefaultTags)

	_, err = s.CreateProject("website", "", nil)
	assert.ErrorIs(t, err, model.ErrDuplicateProject)

	_, err = s.CreateProject("", "", nil)
	var verr *model.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestDeleteProjectGuards(t *testing.T) {
	s := openTestStore(t)
	seedProject(t, s, "website")
	seedProject(t, s, "idle")

	_, err := s.CreateTask("website", "deploy", "")
	require.NoError(t, err)

	err = s.DeleteProject("website")
	assert.ErrorIs(t, err, model.ErrProjectInUse)

	err = s.DeleteProject("idle")
	require.NoError(t, err)
	_, err = s.Project("idle")
	assert.ErrorIs(t, err, model.ErrUnknownProject)

	err = s.DeleteProject("missing")
	assert.ErrorIs(t, err, model.ErrUnknownProject)
}

func TestTaskLifecycle(t *testing.T) {
	s := openTestStore(t)
	seedProject(t, s, "website")

	task, err := s.CreateTask("website", "deploy", "ship it")
	require.NoError(t, err)
	assert.Equal(t, "website", task.Project)

	_, err = s.CreateTask("website", "deploy", "")
	assert.ErrorIs(t, err, model.ErrDuplicateTask)

	_, err = s.CreateTask("missing", "deploy", "")
	assert.ErrorIs(t, err, model.ErrUnknownProject)

	// Same name in another project is fine.
	seedProject(t, s, "backend")
	_, err = s.CreateTask("backend", "deploy", "")
	require.NoError(t, err)

	_, err = s.LogFrame("website", "deploy", tsStart, tsEnd, nil, "")
	require.NoError(t, err)
	err = s.DeleteTask("website", "deploy")
	assert.ErrorIs(t, err, model.ErrTaskInUse)

	err = s.DeleteTask("backend", "deploy")
	require.NoError(t, err)
	err = s.DeleteTask("backend", "deploy")
	assert.ErrorIs(t, err, model.ErrUnknownTask)
}

func TestCreateFrameMergesDefaultTags(t *testing.T) {
	s := openTestStore(t)
	seedProject(t, s, "website", "web", "client")

	f, err := s.CreateFrame("website", "", tsStart, []string{"urgent", "web"}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"client", "urgent", "web"}, f.Tags)
	assert.True(t, f.Running())
}

func TestSingleRunningFrame(t *testing.T) {
	s := openTestStore(t)
	seedProject(t, s, "website")
	seedProject(t, s, "backend")

	first, err := s.CreateFrame("website", "", tsStart, nil, "")
	require.NoError(t, err)

	_, err = s.CreateFrame("backend", "", tsStart.Add(time.Minute), nil, "")
	assert.ErrorIs(t, err, model.ErrOverlappingRunningFrame)

	open, ok := s.RunningFrame()
	require.True(t, ok)
	assert.Equal(t, first.ID, open.ID)

	closed, err := s.CloseFrame(first.ID, tsEnd)
	require.NoError(t, err)
	assert.False(t, closed.Running())

	_, err = s.CloseFrame(first.ID, tsEnd)
	assert.ErrorIs(t, err, model.ErrNotRunning)

	_, ok = s.RunningFrame()
	assert.False(t, ok)
}

func TestLogFrameAllowsOverlap(t *testing.T) {
	s := openTestStore(t)
	seedProject(t, s, "website")

	_, err := s.LogFrame("website", "", tsStart, tsEnd, nil, "morning")
	require.NoError(t, err)
	// Overlapping history is recorded as-is; reports surface it later.
	_, err = s.LogFrame("website", "", tsStart.Add(30*time.Minute), tsEnd.Add(time.Hour), nil, "")
	require.NoError(t, err)

	_, err = s.LogFrame("website", "", tsEnd, tsStart, nil, "")
	assert.ErrorIs(t, err, model.ErrInvalidInterval)
}

func TestAmendFrame(t *testing.T) {
	s := openTestStore(t)
	seedProject(t, s, "website")
	seedProject(t, s, "backend")
	_, err := s.CreateTask("backend", "api", "")
	require.NoError(t, err)

	f, err := s.LogFrame("website", "", tsStart, tsEnd, nil, "")
	require.NoError(t, err)

	proj, task := "backend", "api"
	note := "moved"
	got, err := s.AmendFrame(f.ID, model.FramePatch{Project: &proj, Task: &task, Note: &note})
	require.NoError(t, err)
	assert.Equal(t, "backend", got.Project)
	assert.Equal(t, "api", got.Task)
	assert.Equal(t, "moved", got.Note)

	bad := "missing"
	_, err = s.AmendFrame(f.ID, model.FramePatch{Project: &bad})
	assert.ErrorIs(t, err, model.ErrUnknownProject)

	early := tsStart.Add(-2 * time.Hour)
	_, err = s.AmendFrame(f.ID, model.FramePatch{End: &early})
	assert.ErrorIs(t, err, model.ErrInvalidInterval)
}

func TestAmendCannotReopenBesideRunning(t *testing.T) {
	s := openTestStore(t)
	seedProject(t, s, "website")

	closed, err := s.LogFrame("website", "", tsStart, tsEnd, nil, "")
	require.NoError(t, err)
	_, err = s.CreateFrame("website", "", tsEnd.Add(time.Minute), nil, "")
	require.NoError(t, err)

	var zero time.Time
	_, err = s.AmendFrame(closed.ID, model.FramePatch{End: &zero})
	assert.ErrorIs(t, err, model.ErrOverlappingRunningFrame)
}

func TestDeleteFrame(t *testing.T) {
	s := openTestStore(t)
	seedProject(t, s, "website")

	f, err := s.LogFrame("website", "", tsStart, tsEnd, nil, "")
	require.NoError(t, err)

	require.NoError(t, s.DeleteFrame(f.ID))
	err = s.DeleteFrame(f.ID)
	assert.ErrorIs(t, err, model.ErrUnknownFrame)
}

func TestResolveFrameID(t *testing.T) {
	s := openTestStore(t)
	seedProject(t, s, "website")

	a, err := s.LogFrame("website", "", tsStart, tsEnd, nil, "")
	require.NoError(t, err)

	got, err := s.ResolveFrameID(a.ID[:8])
	require.NoError(t, err)
	assert.Equal(t, a.ID, got)

	_, err = s.ResolveFrameID("zzzz")
	assert.ErrorIs(t, err, model.ErrUnknownFrame)

	// An empty prefix matches every frame and is ambiguous once there are two.
	_, err = s.LogFrame("website", "", tsStart.Add(2*time.Hour), tsEnd.Add(2*time.Hour), nil, "")
	require.NoError(t, err)
	_, err = s.ResolveFrameID("")
	assert.ErrorIs(t, err, model.ErrUnknownFrame)
}

func TestFramesOrderedByStart(t *testing.T) {
	s := openTestStore(t)
	seedProject(t, s, "website")

	// Inserted out of chronological order on purpose.
	_, err := s.LogFrame("website", "", tsStart.Add(2*time.Hour), tsStart.Add(3*time.Hour), nil, "")
	require.NoError(t, err)
	_, err = s.LogFrame("website", "", tsStart, tsEnd, nil, "")
	require.NoError(t, err)

	var starts []time.Time
	for f := range s.Frames(nil) {
		starts = append(starts, f.Start)
	}
	require.Len(t, starts, 2)
	assert.True(t, starts[0].Before(starts[1]))

	// The sequence restarts cleanly.
	count := 0
	for range s.Frames(func(f *model.Frame) bool { return f.Start.Equal(tsStart) }) {
		count++
	}
	assert.Equal(t, 1, count)
}

func TestReloadSeesOtherWriter(t *testing.T) {
	dir := t.TempDir()
	a, err := Open(dir)
	require.NoError(t, err)
	b, err := Open(dir)
	require.NoError(t, err)

	_, err = a.CreateProject("website", "", nil)
	require.NoError(t, err)

	// b's in-memory view predates a's write, but its mutation reloads under
	// the lock and must detect the duplicate.
	_, err = b.CreateProject("website", "", nil)
	assert.ErrorIs(t, err, model.ErrDuplicateProject)
}

func TestConcurrentStartsYieldOneRunningFrame(t *testing.T) {
	dir := t.TempDir()
	seed, err := Open(dir)
	require.NoError(t, err)
	seedProject(t, seed, "website")

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := Open(dir)
			if err != nil {
				errs[i] = err
				return
			}
			_, errs[i] = s.CreateFrame("website", "", tsStart, nil, "")
		}(i)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		if err == nil {
			won++
		} else {
			assert.ErrorIs(t, err, model.ErrOverlappingRunningFrame)
		}
	}
	assert.Equal(t, 1, won)
}

func TestLockTimeout(t *testing.T) {
	dir := t.TempDir()
	unlock, err := acquireLock(filepath.Join(dir, lockFileName), time.Second)
	require.NoError(t, err)
	defer unlock()

	s, err := Open(dir)
	require.NoError(t, err)
	s.SetLockWait(100 * time.Millisecond)

	_, err = s.CreateProject("website", "", nil)
	assert.ErrorIs(t, err, model.ErrStoreLocked)
}

func TestLoadCorruption(t *testing.T) {
	write := func(t *testing.T, dir, name, content string) {
		t.Helper()
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	tests := []struct {
		name  string
		setup func(t *testing.T, dir string)
	}{
		{
			name: "two running frames",
			setup: func(t *testing.T, dir string) {
				write(t, dir, projectsFile, "website\t\t\n")
				write(t, dir, framesFile,
					"aaaaaaaa-0000-0000-0000-000000000000\twebsite\t\t2025-03-10T09:00:00Z\t\t\t\n"+
						"bbbbbbbb-0000-0000-0000-000000000000\twebsite\t\t2025-03-10T10:00:00Z\t\t\t\n")
			},
		},
		{
			name: "frame with unknown project",
			setup: func(t *testing.T, dir string) {
				write(t, dir, framesFile,
					"aaaaaaaa-0000-0000-0000-000000000000\tghost\t\t2025-03-10T09:00:00Z\t2025-03-10T10:00:00Z\t\t\n")
			},
		},
		{
			name: "task with unknown project",
			setup: func(t *testing.T, dir string) {
				write(t, dir, tasksFile, "ghost\tdeploy\t\n")
			},
		},
		{
			name: "frame ends before start",
			setup: func(t *testing.T, dir string) {
				write(t, dir, projectsFile, "website\t\t\n")
				write(t, dir, framesFile,
					"aaaaaaaa-0000-0000-0000-000000000000\twebsite\t\t2025-03-10T10:00:00Z\t2025-03-10T09:00:00Z\t\t\n")
			},
		},
		{
			name: "duplicate project line",
			setup: func(t *testing.T, dir string) {
				write(t, dir, projectsFile, "website\t\t\nwebsite\t\t\n")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			tt.setup(t, dir)
			_, err := Open(dir)
			var cerr *CorruptError
			assert.ErrorAs(t, err, &cerr)
		})
	}
}

func TestLoadReportsFileAndLine(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, framesFile),
		[]byte("not a frame line\n"), 0o644))

	_, err := Open(dir)
	var cerr *codec.Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, framesFile, cerr.File)
	assert.Equal(t, 1, cerr.Line)
}

func TestPersistSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	seedProject(t, s, "website", "web")
	_, err = s.CreateTask("website", "deploy", "desc")
	require.NoError(t, err)
	f, err := s.LogFrame("website", "deploy", tsStart, tsEnd, []string{"ops"}, "note")
	require.NoError(t, err)

	reopened, err := Open(dir)
	require.NoError(t, err)

	p, err := reopened.Project("website")
	require.NoError(t, err)
	assert.Equal(t, []string{"web"}, p.DefaultTags)

	got, err := reopened.Frame(f.ID)
	require.NoError(t, err)
	assert.Equal(t, f.Note, got.Note)
	assert.ElementsMatch(t, []string{"ops", "web"}, got.Tags)
	assert.True(t, f.Start.Equal(got.Start))
}

func TestAccessorsReturnCopies(t *testing.T) {
	s := openTestStore(t)
	seedProject(t, s, "website", "web")

	p, err := s.Project("website")
	require.NoError(t, err)
	p.DefaultTags[0] = "mutated"

	again, err := s.Project("website")
	require.NoError(t, err)
	assert.Equal(t, []string{"web"}, again.DefaultTags)
}

func TestInterruptedWriteKeepsPreviousContents(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	seedProject(t, s, "website")
	f, err := s.LogFrame("website", "", tsStart, tsEnd, nil, "keep me")
	require.NoError(t, err)

	before, err := os.ReadFile(filepath.Join(dir, framesFile))
	require.NoError(t, err)

	// A crash between the temp-file flush and the rename leaves an orphaned
	// temp file next to the target. The target itself was never touched.
	tmp, err := os.CreateTemp(dir, "."+framesFile+".tmp-*")
	require.NoError(t, err)
	_, err = tmp.WriteString("half a rec")
	require.NoError(t, err)
	require.NoError(t, tmp.Close())

	after, err := os.ReadFile(filepath.Join(dir, framesFile))
	require.NoError(t, err)
	assert.Equal(t, before, after)

	reopened, err := Open(dir)
	require.NoError(t, err)
	got, err := reopened.Frame(f.ID)
	require.NoError(t, err)
	assert.Equal(t, "keep me", got.Note)

	// The next successful mutation replaces the target wholesale and is
	// unaffected by the leftover.
	_, err = reopened.LogFrame("website", "", tsStart.Add(2*time.Hour), tsEnd.Add(2*time.Hour), nil, "")
	require.NoError(t, err)

	final, err := os.ReadFile(filepath.Join(dir, framesFile))
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(final), "\n"))
	assert.NotContains(t, string(final), "half a rec")
}

func TestAtomicWriteReplacesWholeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "target.tsv")
	require.NoError(t, os.WriteFile(path, []byte("old content\n"), 0o644))

	require.NoError(t, atomicWrite(path, []byte("new content\n")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new content\n", string(data))

	// No temp files linger after a successful replace.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "target.tsv", entries[0].Name())
}
