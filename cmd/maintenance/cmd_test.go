package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sasm-ims-api/internal/service"
)

type maintenanceStub struct {
	called    string
	opts      service.MaintenanceOptions
	email     string
	confirmed *bool
	pending   int
	err       error
}

func (m *maintenanceStub) report(command string, opts service.MaintenanceOptions) (*service.MaintenanceReport, error) {
	m.called = command
	m.opts = opts
	r := &service.MaintenanceReport{Command: command, DryRun: opts.DryRun, Examined: 2, Changed: 1}
	r.Lines = append(r.Lines, "user-1: relabelled")
	return r, m.err
}

func (m *maintenanceStub) FixAllSchedules(_ context.Context, opts service.MaintenanceOptions) (*service.MaintenanceReport, error) {
	return m.report("fix-all-schedules", opts)
}

func (m *maintenanceStub) FixScholarSchedules(_ context.Context, opts service.MaintenanceOptions) (*service.MaintenanceReport, error) {
	return m.report("fix-scholar-schedules", opts)
}

func (m *maintenanceStub) FixServiceDuration(_ context.Context, opts service.MaintenanceOptions) (*service.MaintenanceReport, error) {
	return m.report("fix-service-duration", opts)
}

func (m *maintenanceStub) SetEffectivityDates(_ context.Context, opts service.MaintenanceOptions, confirm service.ConfirmFunc) (*service.MaintenanceReport, error) {
	ok, err := confirm(m.pending)
	m.confirmed = &ok
	if err != nil {
		m.called = "set-effectivity-date"
		return nil, err
	}
	return m.report("set-effectivity-date", opts)
}

func (m *maintenanceStub) CheckOfficeFilter(_ context.Context, email string) (*service.MaintenanceReport, error) {
	m.email = email
	return m.report("check-office-filter", service.MaintenanceOptions{})
}

func newTestCLI(stub *maintenanceStub, input string) (*commandLine, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return &commandLine{svc: stub, stdin: strings.NewReader(input), stdout: out}, out
}

func withTerminal(t *testing.T, tty bool) {
	t.Helper()
	prev := isTerminalFunc
	isTerminalFunc = func(int) bool { return tty }
	t.Cleanup(func() { isTerminalFunc = prev })
}

func TestRunWithoutCommandPrintsUsage(t *testing.T) {
	cli, out := newTestCLI(&maintenanceStub{}, "")
	err := cli.run(context.Background(), []string{"maintenance"})
	assert.ErrorIs(t, err, errHelp)
	assert.Contains(t, out.String(), "fix-all-schedules")
}

func TestRunUnknownCommand(t *testing.T) {
	cli, _ := newTestCLI(&maintenanceStub{}, "")
	err := cli.run(context.Background(), []string{"maintenance", "drop-everything"})
	assert.ErrorIs(t, err, errHelp)
}

func TestRunDispatchesWithFlags(t *testing.T) {
	stub := &maintenanceStub{}
	cli, out := newTestCLI(stub, "")
	err := cli.run(context.Background(), []string{"maintenance", "fix-all-schedules", "-dry-run", "-actor", "hr-1"})
	require.NoError(t, err)
	assert.Equal(t, "fix-all-schedules", stub.called)
	assert.True(t, stub.opts.DryRun)
	assert.Equal(t, "hr-1", stub.opts.Actor)
	assert.Contains(t, out.String(), "user-1: relabelled")
	assert.Contains(t, out.String(), "would change 1")
}

func TestRunPropagatesServiceError(t *testing.T) {
	stub := &maintenanceStub{err: errors.New("boom")}
	cli, out := newTestCLI(stub, "")
	err := cli.run(context.Background(), []string{"maintenance", "fix-service-duration"})
	assert.EqualError(t, err, "boom")
	assert.Contains(t, out.String(), "fix-service-duration:")
}

func TestCheckOfficeFilterRequiresEmail(t *testing.T) {
	stub := &maintenanceStub{}
	cli, _ := newTestCLI(stub, "")
	assert.ErrorIs(t, cli.run(context.Background(), []string{"maintenance", "check-office-filter"}), errHelp)
	assert.Empty(t, stub.called)

	require.NoError(t, cli.run(context.Background(), []string{"maintenance", "check-office-filter", "-email", " office@example.edu "}))
	assert.Equal(t, "office@example.edu", stub.email)
}

func TestSetEffectivityDateYesSkipsPrompt(t *testing.T) {
	withTerminal(t, false)
	stub := &maintenanceStub{pending: 4}
	cli, out := newTestCLI(stub, "")
	require.NoError(t, cli.run(context.Background(), []string{"maintenance", "set-effectivity-date", "-yes"}))
	require.NotNil(t, stub.confirmed)
	assert.True(t, *stub.confirmed)
	assert.NotContains(t, out.String(), "Continue?")
}

func TestSetEffectivityDateRefusesWithoutTTY(t *testing.T) {
	withTerminal(t, false)
	stub := &maintenanceStub{pending: 4}
	cli, _ := newTestCLI(stub, "y\n")
	err := cli.run(context.Background(), []string{"maintenance", "set-effectivity-date"})
	assert.ErrorIs(t, err, errNoTTY)
}

func TestSetEffectivityDatePrompt(t *testing.T) {
	withTerminal(t, true)

	stub := &maintenanceStub{pending: 3}
	cli, out := newTestCLI(stub, "Y\n")
	require.NoError(t, cli.run(context.Background(), []string{"maintenance", "set-effectivity-date"}))
	assert.True(t, *stub.confirmed)
	assert.Contains(t, out.String(), "About to update 3 record(s)")

	stub = &maintenanceStub{pending: 3}
	cli, _ = newTestCLI(stub, "\n")
	require.NoError(t, cli.run(context.Background(), []string{"maintenance", "set-effectivity-date"}))
	assert.False(t, *stub.confirmed)
}
