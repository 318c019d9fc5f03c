package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	loggedIn bool
	failOn   string

	calls []string
}

func (f *fakeExec) record(name string) error {
	f.calls = append(f.calls, name)
	if f.failOn == name {
		return errors.New(name + " failed")
	}
	return nil
}

func (f *fakeExec) isLoggedIn() bool                   { return f.loggedIn }
func (f *fakeExec) Register(ctx context.Context) error { return f.record("register") }
func (f *fakeExec) Login(ctx context.Context) error {
	f.loggedIn = true
	return f.record("login")
}
func (f *fakeExec) WhoAmI(ctx context.Context) error { return f.record("whoami") }
func (f *fakeExec) Update(ctx context.Context) error { return f.record("update") }
func (f *fakeExec) Delete(ctx context.Context) error {
	f.loggedIn = false
	return f.record("delete")
}
func (f *fakeExec) Logout(ctx context.Context) error {
	f.loggedIn = false
	return f.record("logout")
}

func capturePrint(t *testing.T) *[]string {
	t.Helper()
	var out []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		out = append(out, strings.TrimSuffix(fmt.Sprintln(a...), "\n"))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &out
}

func runScript(exec *fakeExec, lines ...string) {
	sc := bufio.NewScanner(strings.NewReader(strings.Join(lines, "\n")))
	runREPL(context.Background(), exec, func() string { return "status" }, sc)
}

func TestRunREPL_LoginFlowAndCommands(t *testing.T) {
	out := capturePrint(t)

	exec := &fakeExec{}
	runScript(exec, "help", "whoami", "login", "help", "whoami", "me", "update", "logout", "foobar", "exit", "register")

	assert.Equal(t, []string{"login", "whoami", "whoami", "update", "logout"}, exec.calls)
	assert.Contains(t, *out, "Available commands: register, login, exit")
	assert.Contains(t, *out, "Available commands: whoami, update, delete, logout, exit")
	assert.Contains(t, *out, "Please login first")
	assert.Contains(t, *out, "Unknown command: foobar")
	assert.Equal(t, "Bye!", (*out)[len(*out)-1])
}

func TestRunREPL_ProtectedCommandsNeedLogin(t *testing.T) {
	capturePrint(t)

	exec := &fakeExec{}
	runScript(exec, "whoami", "update", "delete", "logout")

	assert.Empty(t, exec.calls)
}

func TestRunREPL_ErrorsArePrintedAndLoopContinues(t *testing.T) {
	out := capturePrint(t)

	exec := &fakeExec{failOn: "register"}
	runScript(exec, "register", "login")

	assert.Equal(t, []string{"register", "login"}, exec.calls)
	assert.Contains(t, *out, "Error: register failed")
}

func TestRunREPL_StopsOnEOFAndSkipsBlankLines(t *testing.T) {
	out := capturePrint(t)

	exec := &fakeExec{}
	runScript(exec, "", "   ", "register")

	assert.Equal(t, []string{"register"}, exec.calls)
	assert.NotContains(t, *out, "Bye!")
	assert.Equal(t, "ak (status) > ", (*out)[0])
}
