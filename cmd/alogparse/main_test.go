package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const accessLog = `127.0.0.1 - frank [10/Oct/2000:13:55:36 -0700] "GET /apache_pb.gif HTTP/1.0" 200 2326 "http://www.example.com/start.html" "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
not an access log line
10.0.0.2 - - [10/Oct/2000:13:55:37 -0700] "POST /login HTTP/1.1" 302 - "-" "-"
`

// run executes the command line and returns stdout and stderr.
func run(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(strings.NewReader(stdin), &out, &errOut)
	cmd.SetArgs(args)
	err = cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func parseNDJSON(t *testing.T, output string) []map[string]any {
	t.Helper()
	var results []map[string]any
	for i, line := range strings.Split(strings.TrimSpace(output), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), "line %d: %s", i+1, line)
		results = append(results, m)
	}
	return results
}

func TestRoot_Stdin(t *testing.T) {
	r := require.New(t)

	stdout, stderr, err := run(t, accessLog, "--log-level", "warn")
	r.NoError(err)
	r.Contains(stderr, "1 of 3 lines did not match")

	results := parseNDJSON(t, stdout)
	r.Len(results, 2)
	r.Equal("127.0.0.1", results[0]["remote_hostname"])
	r.Equal("frank", results[0]["remote_user"])
	r.Equal("2000-10-10T13:55:36-07:00", results[0]["time"])

	req, ok := results[0]["first_line_of_http_request"].(map[string]any)
	r.True(ok)
	r.Equal("/apache_pb.gif", req["url"])

	ua, ok := results[0]["user_agent"].(map[string]any)
	r.True(ok)
	r.Equal("Chrome", ua["browser"])

	r.Equal("302", results[1]["final_status"])
	r.Equal("-", results[1]["user_agent"])
}

func TestRoot_FieldsAndMetadata(t *testing.T) {
	r := require.New(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "access_log")
	r.NoError(os.WriteFile(path, []byte(accessLog), 0o644))

	stdout, _, err := run(t, "", "--preset", "common", "--fields", "final_status,remote_hostname", "--line-number", "--source", path)
	r.NoError(err)

	// common stops after %b, so the combined lines carry trailing text and
	// do not match.
	r.Empty(strings.TrimSpace(stdout))

	common := "10.0.0.1 - - [10/Oct/2000:13:55:36 -0700] \"GET / HTTP/1.1\" 200 10\n"
	r.NoError(os.WriteFile(path, []byte(common), 0o644))

	stdout, _, err = run(t, "", "--preset", "common", "--fields", "final_status,remote_hostname", "--line-number", "--source", path)
	r.NoError(err)
	r.Equal(`{"final_status":"200","remote_hostname":"10.0.0.1","_lineNumber":1,"_source":"`+path+`"}`+"\n", stdout)
}

func TestRoot_CustomFormat(t *testing.T) {
	r := require.New(t)

	stdout, _, err := run(t, "10.0.0.1 \"203.0.113.7, 198.51.100.2\" 200\n",
		"--format", `%h "%{X-Forwarded-For}i" %>s`)
	r.NoError(err)

	results := parseNDJSON(t, stdout)
	r.Len(results, 1)
	r.Equal("203.0.113.7, 198.51.100.2", results[0]["x_forwarded_for"])
}

func TestRoot_FailFastAndLimit(t *testing.T) {
	r := require.New(t)

	_, _, err := run(t, accessLog, "--fail-fast", "--log-level", "error")
	r.ErrorContains(err, "-:2: unmatched line")

	stdout, _, err := run(t, accessLog, "--limit", "1", "--log-level", "error")
	r.NoError(err)
	r.Len(parseNDJSON(t, stdout), 1)
}

func TestRoot_SQLite(t *testing.T) {
	r := require.New(t)

	dir := t.TempDir()
	logPath := filepath.Join(dir, "access_log")
	dbPath := filepath.Join(dir, "records.db")
	r.NoError(os.WriteFile(logPath, []byte(accessLog), 0o644))

	stdout, _, err := run(t, "", "--quiet", "--sqlite", dbPath, "--log-level", "error", logPath)
	r.NoError(err)
	r.Empty(stdout)

	db, err := sql.Open("sqlite3", dbPath)
	r.NoError(err)
	defer db.Close()

	var n int
	r.NoError(db.QueryRow(`SELECT COUNT(*) FROM records`).Scan(&n))
	r.Equal(2, n)
}

func TestRoot_ConfigFile(t *testing.T) {
	r := require.New(t)

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "alogparse.yaml")
	r.NoError(os.WriteFile(cfgPath, []byte("format:\n  preset: agent\nlogging:\n  level: error\n"), 0o644))

	stdout, _, err := run(t, "curl/8.0\n", "--config", cfgPath)
	r.NoError(err)
	results := parseNDJSON(t, stdout)
	r.Len(results, 1)
	r.Contains(results[0], "user_agent")

	// Flags win over the file.
	stdout, _, err = run(t, "10.0.0.1\n", "--config", cfgPath, "--format", "%h")
	r.NoError(err)
	r.Equal(`{"remote_hostname":"10.0.0.1"}`+"\n", stdout)
}

func TestRoot_ConfigFileCompletedByFlags(t *testing.T) {
	r := require.New(t)

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "alogparse.yaml")
	logPath := filepath.Join(dir, "access_log")
	dbPath := filepath.Join(dir, "records.db")
	r.NoError(os.WriteFile(cfgPath, []byte("output:\n  quiet: true\nlogging:\n  level: error\n"), 0o644))
	r.NoError(os.WriteFile(logPath, []byte(accessLog), 0o644))

	stdout, _, err := run(t, "", "--config", cfgPath, "--sqlite", dbPath, logPath)
	r.NoError(err)
	r.Empty(stdout)

	// Without the flag the same file is still rejected.
	_, _, err = run(t, "", "--config", cfgPath, logPath)
	r.ErrorContains(err, "output.quiet")
}

func TestRoot_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := map[string]struct {
		args    []string
		wantErr string
	}{
		"unknown preset":      {args: []string{"--preset", "nginx"}, wantErr: "unknown format preset"},
		"bad format":          {args: []string{"--format", "%h %{Referer"}, wantErr: "unterminated brace"},
		"missing file":        {args: []string{filepath.Join(dir, "missing")}, wantErr: "does not exist"},
		"stdin mixed":         {args: []string{"-", filepath.Join(dir, "x")}, wantErr: "cannot be combined"},
		"unknown field":       {args: []string{"--fields", "nope"}, wantErr: "not produced by format"},
		"quiet without sink":  {args: []string{"--quiet"}, wantErr: "output.quiet"},
		"follow two paths":    {args: []string{"--follow", "a", "b"}, wantErr: "exactly one path"},
		"missing config file": {args: []string{"--config", filepath.Join(dir, "nope.yaml")}, wantErr: "read config"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := run(t, "", tt.args...)
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestFormatsCmd(t *testing.T) {
	r := require.New(t)

	stdout, _, err := run(t, "", "formats")
	r.NoError(err)
	for _, name := range []string{"agent", "combined", "common", "referer", "uberspace", "vhost_combined"} {
		r.Contains(stdout, name)
	}
	r.Contains(stdout, `%h %l %u %t "%r" %>s %b`)
}

func TestCompileCmd(t *testing.T) {
	r := require.New(t)

	stdout, _, err := run(t, "", "compile", "--format", `%h "%r"`,
		"--test", `10.0.0.1 "GET / HTTP/1.1"`,
		"--test", `garbage`)
	r.NoError(err)
	r.Contains(stdout, `pattern: ^(?P<remote_hostname>\S+) "(?P<first_line_of_http_request>.*?)"$`)
	r.Contains(stdout, "remote_hostname")
	r.Contains(stdout, `matched: {"remote_hostname":"10.0.0.1","first_line_of_http_request":{"method":"GET","url":"/","protocol_version":"HTTP/1.1"}}`)
	r.Contains(stdout, "unmatched: garbage")
}
