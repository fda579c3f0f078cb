package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the CLI against the given data directory and returns its
// combined output. Flag state is reset between invocations so sequential
// commands behave like separate processes.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	debug = false
	logFile = ""
	dataDir = ""
	configPath = filepath.Join(dir, "config.toml")
	timezone = ""
	projectDescription, projectDefaultTags = "", nil
	taskDescription, taskProject = "", ""
	startTask, startTags, startNote, startAt = "", nil, "", ""
	stopAt = ""
	statusWatch = false
	amendProject, amendTask, amendStart, amendEnd, amendNote = "", "", "", "", ""
	amendTags = nil
	logTask, logTags, logNote = "", nil, ""
	filterProject, filterTask, filterFrom, filterTo, filterLookback = "", "", "", "", ""
	filterTags = nil
	reportGroupBy, reportOutput, reportFrames = "none", "table", false
	gapsMin = ""

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(append([]string{"--dir", dir}, args...))
	err := rootCmd.Execute()
	return buf.String(), err
}

func resetFlags(c *cobra.Command) {
	c.Flags().VisitAll(func(f *pflag.Flag) { f.Changed = false })
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func mustRun(t *testing.T, dir string, args ...string) string {
	t.Helper()
	out, err := run(t, dir, args...)
	require.NoError(t, err, out)
	return out
}

func TestProjectWorkflow(t *testing.T) {
	dir := t.TempDir()

	out := mustRun(t, dir, "project", "add", "website", "-t", "web")
	assert.Contains(t, out, `created project "website"`)

	_, err := run(t, dir, "project", "add", "website")
	assert.Error(t, err)

	out = mustRun(t, dir, "project", "list")
	assert.Contains(t, out, "website")
	assert.Contains(t, out, "[web]")

	out = mustRun(t, dir, "project", "remove", "website")
	assert.Contains(t, out, `removed project "website"`)

	out = mustRun(t, dir, "project", "list")
	assert.Contains(t, out, "no projects yet")
}

func TestTaskWorkflow(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "project", "add", "website")

	mustRun(t, dir, "task", "add", "website", "deploy", "-d", "ship it")
	out := mustRun(t, dir, "task", "list")
	assert.Contains(t, out, "website/deploy")
	assert.Contains(t, out, "ship it")

	_, err := run(t, dir, "task", "add", "missing", "deploy")
	assert.Error(t, err)

	mustRun(t, dir, "task", "remove", "website", "deploy")
	out = mustRun(t, dir, "task", "list")
	assert.Contains(t, out, "no tasks yet")
}

func TestTimerWorkflow(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "project", "add", "website")

	out := mustRun(t, dir, "status")
	assert.Contains(t, out, "no timer running")

	out = mustRun(t, dir, "start", "website", "-n", "morning work")
	assert.Contains(t, out, "started")

	out = mustRun(t, dir, "status")
	assert.Contains(t, out, "website")

	// A second start is rejected while the timer runs.
	_, err := run(t, dir, "start", "website")
	assert.Error(t, err)

	out = mustRun(t, dir, "stop")
	assert.Contains(t, out, "stopped")

	_, err = run(t, dir, "stop")
	assert.Error(t, err)
}

func TestCancelDiscardsWork(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "project", "add", "website")

	mustRun(t, dir, "start", "website")
	out := mustRun(t, dir, "cancel")
	assert.Contains(t, out, "nothing recorded")

	out = mustRun(t, dir, "frame", "list")
	assert.Contains(t, out, "no frames match")
}

func TestStartUsesDefaultProject(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"),
		[]byte("default_project = \"website\"\n"), 0o644))
	mustRun(t, dir, "project", "add", "website")

	out := mustRun(t, dir, "start")
	assert.Contains(t, out, "website")
	mustRun(t, dir, "stop")

	// Without a default, a bare start is an error.
	dir2 := t.TempDir()
	mustRun(t, dir2, "project", "add", "other")
	_, err := run(t, dir2, "start")
	assert.Error(t, err)
}

func TestLogAndReport(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "project", "add", "website")
	mustRun(t, dir, "project", "add", "backend")
	mustRun(t, dir, "task", "add", "website", "deploy")

	mustRun(t, dir, "log", "website",
		"2025-03-10T09:00:00", "2025-03-10T10:30:00", "-k", "deploy", "-t", "ops")
	mustRun(t, dir, "log", "backend",
		"2025-03-10T11:00:00", "2025-03-10T12:00:00")

	out := mustRun(t, dir, "report", "-g", "project")
	assert.Contains(t, out, "website")
	assert.Contains(t, out, "backend")
	assert.Contains(t, out, "1h 30m")
	assert.Contains(t, out, "Total: 2h 30m over 2 frames")

	out = mustRun(t, dir, "report", "-p", "website")
	assert.Contains(t, out, "Total: 1h 30m over 1 frames")

	out = mustRun(t, dir, "report", "-t", "ops")
	assert.Contains(t, out, "Total: 1h 30m over 1 frames")

	out = mustRun(t, dir, "report",
		"--from", "2025-03-10T10:45:00", "--to", "2025-03-10T23:00:00")
	assert.Contains(t, out, "Total: 1h 00m over 1 frames")
}

func TestReportJSON(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "project", "add", "website")
	mustRun(t, dir, "log", "website", "2025-03-10T09:00:00", "2025-03-10T10:00:00")

	out := mustRun(t, dir, "report", "-o", "json", "--frames", "-g", "day")

	var decoded map[string]any
	require.NoError(t, sonic.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "day", decoded["group_by"])
	assert.Equal(t, float64(3600), decoded["total_seconds"])
	groups := decoded["groups"].([]any)
	require.Len(t, groups, 1)
	assert.Equal(t, "2025-03-10", groups[0].(map[string]any)["key"])
}

func TestReportCSV(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "project", "add", "website")
	mustRun(t, dir, "log", "website", "2025-03-10T09:00:00", "2025-03-10T10:00:00")

	out := mustRun(t, dir, "report", "-o", "csv")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "id,project,task,start,end,seconds"))
	assert.Contains(t, lines[1], "website")
	assert.Contains(t, lines[1], "3600")
}

func TestReportRejectsBadFlags(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "project", "add", "website")

	_, err := run(t, dir, "report", "-g", "week")
	assert.Error(t, err)
	_, err = run(t, dir, "report", "-o", "yaml")
	assert.Error(t, err)
	_, err = run(t, dir, "report", "--from", "2025-03-10", "--to", "2025-03-01")
	assert.Error(t, err)
}

func TestAmendAndFrameCommands(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "project", "add", "website")
	mustRun(t, dir, "project", "add", "backend")
	mustRun(t, dir, "log", "website", "2025-03-10T09:00:00", "2025-03-10T10:00:00", "-n", "initial")

	out := mustRun(t, dir, "frame", "list")
	require.NotContains(t, out, "no frames match")
	id := strings.Fields(out)[0]

	out = mustRun(t, dir, "amend", id, "-p", "backend", "-n", "corrected")
	assert.Contains(t, out, "backend")

	out = mustRun(t, dir, "frame", "show", id)
	assert.Contains(t, out, "project: backend")
	assert.Contains(t, out, "note:    corrected")

	_, err := run(t, dir, "amend", id, "-p", "missing")
	assert.Error(t, err)

	mustRun(t, dir, "frame", "remove", id)
	out = mustRun(t, dir, "frame", "list")
	assert.Contains(t, out, "no frames match")
}

func TestAmendWithoutIDEditsRunningFrame(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "project", "add", "website")

	_, err := run(t, dir, "amend", "-n", "late start")
	assert.Error(t, err)

	mustRun(t, dir, "start", "website")
	out := mustRun(t, dir, "amend", "--start", "08:30")
	assert.Contains(t, out, "amended")
	mustRun(t, dir, "stop")
}

func TestOverlapsAndGaps(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "project", "add", "website")
	mustRun(t, dir, "log", "website", "2025-03-10T09:00:00", "2025-03-10T11:00:00")
	mustRun(t, dir, "log", "website", "2025-03-10T10:00:00", "2025-03-10T12:00:00")
	mustRun(t, dir, "log", "website", "2025-03-10T14:00:00", "2025-03-10T15:00:00")

	out := mustRun(t, dir, "overlaps")
	assert.Contains(t, out, "overlaps")

	out = mustRun(t, dir, "gaps")
	assert.Contains(t, out, "2h 00m idle")

	out = mustRun(t, dir, "gaps", "--min", "3h")
	assert.Contains(t, out, "no gaps found")
}

func TestCorruptStoreIsReported(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "project", "add", "website")
	// Two frames without an end timestamp can only come from manual edits.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "frames.tsv"), []byte(
		"aaaaaaaa-0000-0000-0000-000000000000\twebsite\t\t2025-03-10T09:00:00Z\t\t\t\n"+
			"bbbbbbbb-0000-0000-0000-000000000000\twebsite\t\t2025-03-10T10:00:00Z\t\t\t\n"), 0o644))

	_, err := run(t, dir, "status")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt store")
}

func TestFilesAreHumanReadable(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "project", "add", "website")
	mustRun(t, dir, "log", "website", "2025-03-10T09:00:00", "2025-03-10T10:00:00", "-t", "ops")

	data, err := os.ReadFile(filepath.Join(dir, "frames.tsv"))
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))
	fields := strings.Split(line, "\t")
	require.Len(t, fields, 7)
	assert.Equal(t, "website", fields[1])
	assert.Equal(t, "ops", fields[5])
}
