package logger

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportUpdate(t *testing.T) {
	var report Report
	entries := []*Entry{
		{Event: EventSessionStart},
		{Event: EventLogin, Login: &LoginEvent{User: "alice", RemoteAddr: "203.0.113.9:40022"}},
		{Event: EventBuiltin, Builtin: &BuiltinEvent{Name: "cd", Argv: []string{"cd", "/tmp"}}},
		{Event: EventCommand, Command: &CommandEvent{Argv: []string{"ls", "-l"}, OutputFile: "out.txt", Background: true, Pid: 4311}},
		{Event: EventBackgroundStart, Background: &BackgroundEvent{Pid: 4311}},
		{Event: EventCommand, Command: &CommandEvent{Argv: []string{"ls"}, Pid: 4312}},
		{Event: EventModeChange, Mode: &ModeEvent{ForegroundOnly: true}},
		{Event: EventBackgroundDone, Background: &BackgroundEvent{Pid: 4311, Status: "exit value 0"}},
		{Event: EventSessionEnd},
		{Event: "mystery"},
	}
	for _, e := range entries {
		report.Update(e)
	}

	assert.Equal(t, 10, report.LogEntries)
	assert.Equal(t, 1, report.InvalidEntries.Count("mystery"))

	assert.Equal(t, 1, report.Login.Usernames.Count("alice"))
	assert.Equal(t, 1, report.Login.RemoteAddrs.Count("203.0.113.9:40022"))

	assert.Equal(t, 2, report.Command.CommandNames.Count("ls"))
	assert.Equal(t, 1, report.Command.BackgroundCount)
	assert.Equal(t, 1, report.Command.RedirectionCount)

	assert.Equal(t, 1, report.Builtin.BuiltinNames.Count("cd"))

	assert.Equal(t, 1, report.Background.Started)
	assert.Equal(t, 1, report.Background.Finished)
	assert.Equal(t, 1, report.Background.Statuses.Count("exit value 0"))

	assert.Equal(t, 1, report.Session.Started)
	assert.Equal(t, 1, report.Session.Ended)
	assert.Equal(t, 1, report.Session.ModeChanges)
}

func TestReportIgnoresMissingPayloads(t *testing.T) {
	var report Report
	report.Update(&Entry{Event: EventCommand})
	report.Update(&Entry{Event: EventLogin})
	report.Update(&Entry{Event: EventBuiltin})
	report.Update(&Entry{Event: EventBackgroundDone})

	assert.Equal(t, 4, report.LogEntries)
	assert.Equal(t, 1, report.Background.Finished)
}

func TestStrCounterMarshal(t *testing.T) {
	var counter StrCounter
	counter.Increment("a")
	counter.Increment("b")
	counter.Increment("a")

	out, err := json.Marshal(counter)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":2,"b":1}`, string(out))

	empty, err := json.Marshal(StrCounter{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(empty))
}
