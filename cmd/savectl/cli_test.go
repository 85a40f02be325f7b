package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type runner struct {
	t    *testing.T
	base []string
}

func newRunner(t *testing.T) *runner {
	t.Helper()
	return &runner{t: t, base: []string{"savectl", "--driver", "file", "--path", t.TempDir()}}
}

func (r *runner) run(args ...string) (string, string, int) {
	r.t.Helper()
	var out, errOut bytes.Buffer
	code := Run(context.Background(), &out, &errOut, append(append([]string(nil), r.base...), args...))
	return out.String(), errOut.String(), code
}

func (r *runner) mustRun(args ...string) string {
	r.t.Helper()
	out, errOut, code := r.run(args...)
	if code != 0 {
		r.t.Fatalf("savectl %v exited %d: %s", args, code, errOut)
	}
	return out
}

func TestSetGet(t *testing.T) {
	r := newRunner(t)

	out := r.mustRun("set", "prefs", "volume=7", "lang=en")
	if !strings.Contains(out, "saved prefs (version 1)") {
		t.Errorf("unexpected set output %q", out)
	}
	r.mustRun("set", "prefs", "theme=dark", "-d", "lang")

	var got struct {
		Slot    string `json:"slot"`
		Type    string `json:"type"`
		Version int    `json:"version"`
		Record  struct {
			Values map[string]string `json:"values"`
		} `json:"record"`
	}
	if err := json.Unmarshal([]byte(r.mustRun("get", "prefs")), &got); err != nil {
		t.Fatalf("get output is not json: %v", err)
	}
	if got.Slot != "prefs" || got.Type != "kv" || got.Version != 1 {
		t.Errorf("unexpected header %+v", got)
	}
	want := map[string]string{"volume": "7", "theme": "dark"}
	if diff := cmp.Diff(want, got.Record.Values); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateLsRm(t *testing.T) {
	r := newRunner(t)

	r.mustRun("create", "a")
	r.mustRun("--user", "2", "create", "b")
	if _, _, code := r.run("create", "a"); code == 0 {
		t.Error("create over an existing slot should fail without --force")
	}
	r.mustRun("create", "a", "--force")

	if out := r.mustRun("ls"); out != "a\n" {
		t.Errorf("ls = %q, want a", out)
	}
	long := r.mustRun("-u", "2", "ls", "-l")
	if !strings.Contains(long, "SLOT") || !strings.Contains(long, "kv") {
		t.Errorf("unexpected ls -l output %q", long)
	}

	r.mustRun("rm", "a")
	if out := r.mustRun("ls"); out != "" {
		t.Errorf("ls after rm = %q, want empty", out)
	}
	if _, _, code := r.run("get", "a"); code == 0 {
		t.Error("get of a removed slot should fail")
	}
}

func TestSave(t *testing.T) {
	r := newRunner(t)
	r.mustRun("set", "prefs", "k=v")

	out := r.mustRun("save", "prefs")
	if !strings.Contains(out, "saved prefs") {
		t.Errorf("unexpected save output %q", out)
	}
	if _, errOut, code := r.run("save", "missing"); code == 0 || !strings.Contains(errOut, "empty") {
		t.Errorf("save of an empty slot: code=%d err=%q", code, errOut)
	}
}

func TestRelease_DryRun(t *testing.T) {
	r := newRunner(t)

	out := r.mustRun("-u", "1", "release", "profile", "-s", "player", "-r", "--dry-run")
	want := `{"subsystem":"player","user_index":1,"slot":"profile","reload":true}` + "\n"
	if out != want {
		t.Errorf("release output = %q, want %q", out, want)
	}

	if _, _, code := r.run("release", "profile", "-s", "player"); code == 0 {
		t.Error("release without an invalidation topic should fail")
	}
}

func TestUsageErrors(t *testing.T) {
	r := newRunner(t)

	tests := []struct {
		name string
		args []string
		code int
	}{
		{name: "no command", code: 1},
		{name: "unknown command", args: []string{"explode"}, code: 1},
		{name: "missing slot", args: []string{"get"}, code: 1},
		{name: "bad pair", args: []string{"set", "prefs", "novalue"}, code: 1},
		{name: "release without subsystem", args: []string{"release", "profile"}, code: 1},
		{name: "unknown flag", args: []string{"ls", "--colour"}, code: 1},
		{name: "help", args: []string{"--help"}, code: 0},
		{name: "command help", args: []string{"set", "--help"}, code: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, code := r.run(tt.args...); code != tt.code {
				t.Errorf("exit code = %d, want %d", code, tt.code)
			}
		})
	}

	var out, errOut bytes.Buffer
	if code := Run(context.Background(), &out, &errOut, []string{"savectl", "--driver", "file", "ls"}); code != 1 {
		t.Errorf("file driver without path: exit code = %d, want 1", code)
	}
}
