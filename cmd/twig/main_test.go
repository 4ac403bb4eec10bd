package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/polydawn/refmt"
	"github.com/polydawn/refmt/json"

	"github.com/odvcencio/twig"
	"github.com/odvcencio/twig/internal/testutil"
	"github.com/odvcencio/twig/pkg/object"
	"github.com/odvcencio/twig/pkg/repo"
)

type result struct {
	code   twig.ExitCode
	stdout string
	stderr string
}

func runTwig(t *testing.T, stdin io.Reader, args ...string) result {
	t.Helper()
	if stdin == nil {
		stdin = strings.NewReader("")
	}
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, stdin, &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func mustRun(t *testing.T, stdin io.Reader, args ...string) string {
	t.Helper()
	res := runTwig(t, stdin, args...)
	if res.code != twig.ExitSuccess {
		t.Fatalf("twig %s: exit %d: %s", strings.Join(args, " "), res.code, res.stderr)
	}
	return res.stdout
}

// isolate keeps tests away from the developer's own config.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("TWIG_CONFIG", filepath.Join(t.TempDir(), "absent.toml"))
}

var fixtureFiles = []testutil.File{
	{Path: "README.md", Content: "# demo\n"},
	{Path: "docs/guide.md", Content: "guide\n"},
	{Path: "docs/more/notes.txt", Content: "notes\n"},
	{Path: "bin/run", Content: "#!/bin/sh\necho run\n", Executable: true},
}

func TestPlumbing(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	mustRun(t, nil, "init", dir)

	if err := os.WriteFile(filepath.Join(dir, "hello.txt"), []byte("hello world\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	blob := strings.TrimSpace(mustRun(t, nil, "-C", dir, "hash-object", "-w", "hello.txt"))
	if blob != "3b18e512dba79e4c8300dd08aeb37f8e728b8dad" {
		t.Fatalf("hash-object = %s", blob)
	}
	if got := mustRun(t, strings.NewReader("hello world\n"), "hash-object", "--stdin"); strings.TrimSpace(got) != blob {
		t.Fatalf("hash-object --stdin = %s", got)
	}

	if got := mustRun(t, nil, "-C", dir, "cat-file", "-t", blob); got != "blob\n" {
		t.Fatalf("cat-file -t = %q", got)
	}
	if got := mustRun(t, nil, "-C", dir, "cat-file", "-s", blob); got != "12\n" {
		t.Fatalf("cat-file -s = %q", got)
	}
	if got := mustRun(t, nil, "-C", dir, "cat-file", "-p", blob); got != "hello world\n" {
		t.Fatalf("cat-file -p = %q", got)
	}

	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sub", "x.txt"), []byte("x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	tree := strings.TrimSpace(mustRun(t, nil, "-C", dir, "write-tree"))
	listing := mustRun(t, nil, "-C", dir, "ls-tree", tree)
	wantLines := []string{
		"100644 blob " + blob + "\thello.txt",
		"040000 tree ",
	}
	for _, want := range wantLines {
		if !strings.Contains(listing, want) {
			t.Fatalf("ls-tree output missing %q:\n%s", want, listing)
		}
	}
	if names := mustRun(t, nil, "-C", dir, "ls-tree", "--name-only", tree); names != "hello.txt\nsub\n" {
		t.Fatalf("ls-tree --name-only = %q", names)
	}

	now = func() time.Time { return time.Unix(1700000000, 0).UTC() }
	t.Cleanup(func() { now = time.Now })
	commit := strings.TrimSpace(mustRun(t, nil, "-C", dir, "commit-tree", tree, "-m", "first"))
	body := mustRun(t, nil, "-C", dir, "cat-file", "-p", commit)
	wantBody := "tree " + tree + "\n" +
		"author twig <twig@localhost> 1700000000 +0000\n" +
		"committer twig <twig@localhost> 1700000000 +0000\n" +
		"\nfirst\n"
	if body != wantBody {
		t.Fatalf("commit body:\n%s\nwant:\n%s", body, wantBody)
	}

	child := strings.TrimSpace(mustRun(t, nil, "-C", dir, "commit-tree", tree, "-p", commit, "-m", "second"))
	if !strings.Contains(mustRun(t, nil, "-C", dir, "cat-file", "-p", child), "parent "+commit+"\n") {
		t.Fatal("child commit does not record its parent")
	}
	if got := mustRun(t, nil, "-C", dir, "ls-tree", "--name-only", child); got != "hello.txt\nsub\n" {
		t.Fatalf("ls-tree of a commit = %q", got)
	}
}

func TestConfigUserIdentity(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "twig.toml")
	if err := os.WriteFile(cfgPath, []byte("[user]\nname = \"Ada\"\nemail = \"ada@example.com\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	repoDir := filepath.Join(dir, "r")
	mustRun(t, nil, "init", repoDir)
	tree := strings.TrimSpace(mustRun(t, nil, "-C", repoDir, "write-tree"))
	commit := strings.TrimSpace(mustRun(t, nil, "--config", cfgPath, "-C", repoDir, "commit-tree", tree, "-m", "m"))
	if body := mustRun(t, nil, "-C", repoDir, "cat-file", "-p", commit); !strings.Contains(body, "author Ada <ada@example.com> ") {
		t.Fatalf("commit body:\n%s", body)
	}
}

func TestCloneCommand(t *testing.T) {
	isolate(t)
	fx := testutil.BuildRepo(t, fixtureFiles)
	srv := testutil.NewRepoServer(t, fx, testutil.PackOptions{Deltas: true, DeltasFirst: true})
	srv.Progress = []string{"Enumerating objects: 9, done."}
	dest := filepath.Join(t.TempDir(), "demo")

	res := runTwig(t, nil, "clone", "--verbose", "--format", "json", srv.RepoURL(), dest)
	if res.code != twig.ExitSuccess {
		t.Fatalf("clone: exit %d: %s", res.code, res.stderr)
	}
	if !strings.Contains(res.stderr, "remote: Enumerating objects") || !strings.Contains(res.stderr, "Checked out") {
		t.Fatalf("verbose progress missing:\n%s", res.stderr)
	}

	var doc repo.CloneResult
	if err := refmt.UnmarshalAtlased(json.DecodeOptions{}, []byte(res.stdout), &doc, outputAtlas); err != nil {
		t.Fatalf("decode clone JSON: %v\n%s", err, res.stdout)
	}
	if doc.Commit != fx.Commit || doc.Head != "refs/heads/main" || doc.Checkout == nil || doc.Checkout.Files != len(fixtureFiles) {
		t.Fatalf("clone JSON = %+v", doc)
	}

	for _, f := range fixtureFiles {
		data, err := os.ReadFile(filepath.Join(dest, filepath.FromSlash(f.Path)))
		if err != nil {
			t.Fatalf("read %s: %v", f.Path, err)
		}
		if string(data) != f.Content {
			t.Errorf("%s = %q, want %q", f.Path, data, f.Content)
		}
	}
	info, err := os.Stat(filepath.Join(dest, "bin", "run"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode()&0o100 == 0 {
		t.Fatalf("bin/run mode = %v, want executable", info.Mode())
	}

	head, err := os.ReadFile(filepath.Join(dest, ".git", "HEAD"))
	if err != nil || string(head) != "ref: refs/heads/main\n" {
		t.Fatalf("HEAD = %q, %v", head, err)
	}
	ref, err := os.ReadFile(filepath.Join(dest, ".git", "refs", "heads", "main"))
	if err != nil || string(ref) != string(fx.Commit)+"\n" {
		t.Fatalf("refs/heads/main = %q, %v", ref, err)
	}
	loose := filepath.Join(dest, ".git", "objects", string(fx.Commit[:2]), string(fx.Commit[2:]))
	if _, err := os.Stat(loose); err != nil {
		t.Fatalf("commit object not stored loose: %v", err)
	}

	if got := mustRun(t, nil, "-C", dest, "cat-file", "-p", "HEAD:docs/more/notes.txt"); got != "notes\n" {
		t.Fatalf("cat-file HEAD:docs/more/notes.txt = %q", got)
	}
	if got := mustRun(t, nil, "-C", dest, "ls-tree", "--name-only", "main:docs"); got != "guide.md\nmore\n" {
		t.Fatalf("ls-tree main:docs = %q", got)
	}

	if got := mustRun(t, nil, "-C", dest, "ls-remote", "origin"); !strings.Contains(got, string(fx.Commit)+"\trefs/heads/main\n") {
		t.Fatalf("ls-remote origin = %q", got)
	}

	if got := mustRun(t, nil, "-C", dest, "write-tree"); strings.TrimSpace(got) != string(fx.Tree) {
		t.Fatalf("write-tree after clone = %s, want %s", got, fx.Tree)
	}
}

func TestCloneDefaultDirectory(t *testing.T) {
	isolate(t)
	fx := testutil.BuildRepo(t, fixtureFiles[:1])
	srv := testutil.NewRepoServer(t, fx, testutil.PackOptions{})
	parent := t.TempDir()

	out := mustRun(t, nil, "-C", parent, "clone", srv.RepoURL())
	if !strings.Contains(out, filepath.Join(parent, "repo")) {
		t.Fatalf("clone output = %q", out)
	}
	if _, err := os.Stat(filepath.Join(parent, "repo", "README.md")); err != nil {
		t.Fatalf("README.md not checked out: %v", err)
	}
}

func TestLsRemote(t *testing.T) {
	isolate(t)
	fx := testutil.BuildRepo(t, fixtureFiles[:1])
	srv := testutil.NewRepoServer(t, fx, testutil.PackOptions{})

	out := mustRun(t, nil, "ls-remote", srv.RepoURL())
	want := "ref: refs/heads/main\tHEAD\n" +
		string(fx.Commit) + "\tHEAD\n" +
		string(fx.Commit) + "\trefs/heads/main\n"
	if out != want {
		t.Fatalf("ls-remote:\n%s\nwant:\n%s", out, want)
	}

	var doc lsRemoteResult
	jsonOut := mustRun(t, nil, "ls-remote", "--format", "json", srv.RepoURL())
	if err := refmt.UnmarshalAtlased(json.DecodeOptions{}, []byte(jsonOut), &doc, outputAtlas); err != nil {
		t.Fatalf("decode ls-remote JSON: %v\n%s", err, jsonOut)
	}
	if len(doc.Refs) != 2 || doc.Refs[0].SymrefTarget != "refs/heads/main" {
		t.Fatalf("ls-remote JSON = %+v", doc)
	}
}

func TestUnpackObjects(t *testing.T) {
	isolate(t)
	fx := testutil.BuildRepo(t, fixtureFiles)
	dir := t.TempDir()
	mustRun(t, nil, "init", dir)

	pack := fx.Pack(t, testutil.PackOptions{Deltas: true})
	out := mustRun(t, bytes.NewReader(pack), "-C", dir, "unpack-objects")
	if !strings.HasPrefix(out, "Unpacked ") {
		t.Fatalf("unpack-objects output = %q", out)
	}
	if got := mustRun(t, nil, "-C", dir, "cat-file", "-t", string(fx.Commit)); got != "commit\n" {
		t.Fatalf("cat-file -t commit = %q", got)
	}
}

func TestExitCodes(t *testing.T) {
	isolate(t)
	fx := testutil.BuildRepo(t, fixtureFiles[:1])
	srv := testutil.NewRepoServer(t, fx, testutil.PackOptions{})

	repoDir := t.TempDir()
	mustRun(t, nil, "init", repoDir)
	nonEmpty := t.TempDir()
	if err := os.WriteFile(filepath.Join(nonEmpty, "x"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	missing := string(object.HashObject(object.TypeBlob, []byte("never written")))

	tests := []struct {
		name  string
		stdin string
		args  []string
		want  twig.ExitCode
	}{
		{name: "unknown flag", args: []string{"cat-file", "--bogus"}, want: twig.ExitUsage},
		{name: "unknown global flag", args: []string{"--bogus", "version"}, want: twig.ExitUsage},
		{name: "unknown command", args: []string{"bogus"}, want: twig.ExitUsage},
		{name: "too many arguments", args: []string{"-C", repoDir, "ls-tree", "a", "b"}, want: twig.ExitUsage},
		{name: "missing argument", args: []string{"ls-remote"}, want: twig.ExitUsage},
		{name: "cat-file without mode", args: []string{"-C", repoDir, "cat-file", missing}, want: twig.ExitUsage},
		{name: "missing object", args: []string{"-C", repoDir, "cat-file", "-p", missing}, want: twig.ExitObjectNotFound},
		{name: "not a repository", args: []string{"-C", t.TempDir(), "write-tree"}, want: twig.ExitUsage},
		{name: "clone into non-empty dir", args: []string{"clone", srv.RepoURL(), nonEmpty}, want: twig.ExitUsage},
		{name: "clone ssh url", args: []string{"clone", "ssh://example.com/r.git", filepath.Join(t.TempDir(), "d")}, want: twig.ExitUsage},
		{name: "clone 404", args: []string{"clone", srv.URL + "/absent.git", filepath.Join(t.TempDir(), "d")}, want: twig.ExitTransport},
		{name: "corrupt pack on stdin", stdin: "PACK garbage", args: []string{"-C", repoDir, "unpack-objects"}, want: twig.ExitCorrupt},
		{name: "bad format", args: []string{"ls-remote", "--format", "yaml", srv.RepoURL()}, want: twig.ExitUsage},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := runTwig(t, strings.NewReader(tc.stdin), tc.args...)
			if res.code != tc.want {
				t.Fatalf("exit = %d, want %d (stderr: %s)", res.code, tc.want, res.stderr)
			}
			if res.stderr == "" {
				t.Fatal("expected an error message on stderr")
			}
		})
	}
}

func TestExitCodeUncategorised(t *testing.T) {
	if got := exitCode(errors.New("boom")); got != twig.ExitUnknown {
		t.Fatalf("exitCode = %d, want %d", got, twig.ExitUnknown)
	}
	if got := exitCode(usageError(errors.New("bad flag"))); got != twig.ExitUsage {
		t.Fatalf("exitCode = %d, want %d", got, twig.ExitUsage)
	}
}
