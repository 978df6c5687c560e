package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/wxjsx/internal/errors"
	"github.com/conneroisu/wxjsx/internal/testutils"
)

// resetFlags restores every flag of c and its subcommands to its default so
// commands can be executed repeatedly in one process.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

type execResult struct {
	stdout string
	stderr string
	err    error
}

func executeContext(ctx context.Context, stdin string, args ...string) execResult {
	viper.Reset()
	resetFlags(rootCmd)

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(ctx)
	return execResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func execute(t *testing.T, stdin string, args ...string) execResult {
	t.Helper()
	return executeContext(context.Background(), stdin, args...)
}

// project creates files under a temporary directory and makes it the
// working directory.
func project(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	testutils.WriteFiles(t, dir, files)
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
	return dir
}

func TestCompile(t *testing.T) {
	tests := map[string]struct {
		stdin string
		env   map[string]string
		want  string
	}{
		"events and text": {
			stdin: `<view bindtap="go">hi</view>`,
			want:  `<View onclick="go">hi</View>` + "\n",
		},
		"conditional from env": {
			stdin: `<view wx:if="{{ok}}"/>`,
			env:   map[string]string{"WXJSX_COMPILER_CONDITIONAL_IF": "true"},
			want:  `{ok && <View/>}` + "\n",
		},
		"wx:if ignored by default": {
			stdin: `<view wx:if="{{ok}}"/>`,
			want:  `<View/>` + "\n",
		},
		"loop": {
			stdin: `<view wx:for="{{items}}"><text>x</text></view>`,
			want:  `{items.map((item)=><View><Text>x</Text></View>)}` + "\n",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			project(t, nil)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			res := execute(t, tt.stdin, "compile")
			require.NoError(t, res.err)
			assert.Equal(t, tt.want, res.stdout)
		})
	}
}

func TestCompileFile(t *testing.T) {
	project(t, map[string]string{
		"page.wxml":   `<list-item wx:key="id"/>`,
		"broken.wxml": `<view class=x/>`,
	})

	res := execute(t, "", "compile", "page.wxml", "-o", "out/page.jsx")
	require.NoError(t, res.err)
	assert.Empty(t, res.stdout)
	data, err := os.ReadFile(filepath.Join("out", "page.jsx"))
	require.NoError(t, err)
	assert.Equal(t, `<List-item key="id"/>`, string(data))

	res = execute(t, "", "compile", "broken.wxml")
	require.Error(t, res.err)
	assert.True(t, errors.IsParseError(res.err))
	assert.Contains(t, res.err.Error(), "broken.wxml:1:13")
	assert.Contains(t, res.err.Error(), "MISSING_QUOTE")

	res = execute(t, "", "compile", "missing.wxml")
	require.Error(t, res.err)
	assert.True(t, errors.IsKind(res.err, errors.KindIO))

	res = execute(t, "", "compile", "a.wxml", "b.wxml")
	assert.Error(t, res.err)
}

func TestConfigFile(t *testing.T) {
	project(t, map[string]string{
		"custom.yml": "compiler:\n  legacy_for_wrap: true\n",
	})
	const src = `<view wx:for="{{items}}"><text>x</text></view>`

	res := execute(t, src, "--config", "custom.yml", "compile")
	require.NoError(t, res.err)
	assert.Equal(t, `{items.map((item)=><View><Text>x</Text></View>};`+"\n", res.stdout)

	t.Setenv(configFileEnv, "custom.yml")
	res = execute(t, src, "compile")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "};")

	res = execute(t, src, "--config", "nope.yml", "compile")
	require.Error(t, res.err)
	assert.True(t, errors.IsKind(res.err, errors.KindConfig))
}

func TestConfigDefaultFile(t *testing.T) {
	project(t, map[string]string{
		".wxjsx.yml": "compiler:\n  uniform_tag_case: true\n",
	})

	res := execute(t, `<list-item/>`, "compile")
	require.NoError(t, res.err)
	assert.Equal(t, "<ListItem/>\n", res.stdout)
}

func TestBuild(t *testing.T) {
	project(t, map[string]string{
		"index.wxml":        `<view>a</view>`,
		"pages/detail.wxml": `<text>b</text>`,
		"broken.wxml":       `<view>`,
	})

	res := execute(t, "", "build")
	require.Error(t, res.err)
	assert.Equal(t, "1 document failed to build", res.err.Error())
	assert.Contains(t, res.stdout, "Built 3 documents (0 cached, 1 failed)")
	assert.Contains(t, res.stderr, "broken.wxml")

	data, err := os.ReadFile(filepath.Join("dist", "index.jsx"))
	require.NoError(t, err)
	assert.Equal(t, "<View>a</View>", string(data))
	assert.FileExists(t, filepath.Join("dist", "pages", "detail.jsx"))
	assert.NoFileExists(t, filepath.Join("dist", "broken.jsx"))
}

func TestBuildDirsAndOutDir(t *testing.T) {
	project(t, map[string]string{
		"src/index.wxml": `<view>a</view>`,
		"other/x.wxml":   `<view>x</view>`,
	})

	res := execute(t, "", "build", "src", "--out-dir", "web", "--workers", "2")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Built 1 document (0 cached, 0 failed)")
	assert.FileExists(t, filepath.Join("web", "index.jsx"))
	assert.NoDirExists(t, "dist")

	res = execute(t, "", "build", "--workers", "0")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "workers must be a positive number")

	res = execute(t, "", "build", "../outside")
	require.Error(t, res.err)
	assert.True(t, errors.IsKind(res.err, errors.KindConfig))
}

func TestList(t *testing.T) {
	project(t, map[string]string{
		"b.wxml":       `<view/>`,
		"a/first.wxml": `<view/>`,
		"notes.txt":    `ignored`,
	})

	res := execute(t, "", "list", "-o", "json")
	require.NoError(t, res.err)

	var rows []documentRow
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "a/first.wxml", rows[0].Name)
	assert.Equal(t, filepath.Join("dist", "a", "first.jsx"), rows[0].Output)
	assert.Equal(t, "b.wxml", rows[1].Name)
	assert.Equal(t, int64(len(`<view/>`)), rows[1].Size)
	assert.NotEmpty(t, rows[1].Hash)

	res = execute(t, "", "list")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "NAME")
	assert.Contains(t, res.stdout, "a/first.wxml")

	res = execute(t, "", "list", "-o", "yaml")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "name: b.wxml")
}

func TestListEmpty(t *testing.T) {
	project(t, nil)

	res := execute(t, "", "list")
	require.NoError(t, res.err)
	assert.Equal(t, "No documents found.\n", res.stdout)
}

type jsonReport struct {
	File  string `json:"file"`
	Error *struct {
		Code     string `json:"code"`
		Line     int    `json:"line"`
		Severity string `json:"severity"`
	} `json:"error"`
	Diagnostics []struct {
		Rule     string `json:"rule"`
		Severity string `json:"severity"`
	} `json:"diagnostics"`
}

func TestCheck(t *testing.T) {
	project(t, map[string]string{
		"clean.wxml":  `<view bindtap="go"/>`,
		"native.wxml": `<div wx:if="{{x}}"/>`,
	})

	res := execute(t, "", "check")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "native-element")
	assert.Contains(t, res.stdout, "conditional-ignored")
	assert.Contains(t, res.stdout, "Checked 2 files: 0 failed, 1 warning")

	res = execute(t, "", "check", "--strict")
	require.Error(t, res.err)
	assert.Equal(t, "1 lint warning reported", res.err.Error())

	res = execute(t, "", "check", "native.wxml", "-o", "json")
	require.NoError(t, res.err)
	var reports []jsonReport
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &reports))
	require.Len(t, reports, 1)
	assert.Nil(t, reports[0].Error)
	require.Len(t, reports[0].Diagnostics, 2)
	assert.Equal(t, "native-element", reports[0].Diagnostics[0].Rule)
	assert.Equal(t, "warning", reports[0].Diagnostics[0].Severity)
	assert.Equal(t, "info", reports[0].Diagnostics[1].Severity)
}

func TestCheckCompileError(t *testing.T) {
	project(t, map[string]string{
		"broken.wxml": "<view>\n",
	})

	res := execute(t, "", "check", "broken.wxml", "-o", "json")
	require.Error(t, res.err)
	assert.Equal(t, "1 file failed to compile", res.err.Error())

	var reports []jsonReport
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &reports))
	require.Len(t, reports, 1)
	require.NotNil(t, reports[0].Error)
	assert.Equal(t, errors.CodeTruncated, reports[0].Error.Code)
	assert.Equal(t, "error", reports[0].Error.Severity)
	assert.Empty(t, reports[0].Diagnostics)

	res = execute(t, "", "check", "broken.wxml", "-o", "yaml")
	require.Error(t, res.err)
	assert.Contains(t, res.stdout, "code: TRUNCATED")
}

func TestInitAndValidate(t *testing.T) {
	project(t, map[string]string{
		"bad.yml":     "compiler:\n  no_such_key: true\n",
		"invalid.yml": "build:\n  workers: -1\n",
	})

	res := execute(t, "", "init")
	require.NoError(t, res.err)
	assert.Equal(t, "Wrote .wxjsx.yml\n", res.stdout)
	assert.FileExists(t, ".wxjsx.yml")

	res = execute(t, "", "init")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "already exists")

	res = execute(t, "", "init", "--force")
	require.NoError(t, res.err)

	res = execute(t, "", "config", "validate")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, ".wxjsx.yml is valid")

	res = execute(t, "", "config", "validate", "bad.yml")
	require.Error(t, res.err)
	assert.True(t, errors.IsKind(res.err, errors.KindConfig))

	res = execute(t, "", "config", "validate", "invalid.yml")
	require.Error(t, res.err)
	assert.Contains(t, res.stdout, "build.workers")
}

func TestConfigShow(t *testing.T) {
	project(t, nil)
	t.Setenv("WXJSX_SERVER_PORT", "9999")

	res := execute(t, "", "config", "show")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "port: 9999")
	assert.Contains(t, res.stdout, "strict_close_tags: true")
}

func TestVersion(t *testing.T) {
	res := execute(t, "", "version")
	require.NoError(t, res.err)
	assert.True(t, strings.HasPrefix(res.stdout, "wxjsx "))

	res = execute(t, "", "version", "--detailed")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Platform: ")

	res = execute(t, "", "version", "-o", "json")
	require.NoError(t, res.err)
	var info map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &info))
	assert.Contains(t, info, "version")
	assert.Contains(t, info, "go_version")

	res = execute(t, "", "version", "-o", "xml")
	assert.Error(t, res.err)
}

func TestFlagValidation(t *testing.T) {
	tests := map[string]struct {
		args []string
		want string
	}{
		"port out of range": {[]string{"serve", "--port", "0"}, "port must be between 1 and 65535"},
		"port not a number": {[]string{"serve", "--port", "http"}, "invalid port number"},
		"bad host":          {[]string{"serve", "--host", "a;b"}, "dangerous character"},
		"bad format":        {[]string{"list", "-o", "xml"}, "invalid output format"},
		"bad log level":     {[]string{"--log-level", "loud", "version"}, "invalid log level"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			project(t, nil)
			res := execute(t, "", tt.args...)
			require.Error(t, res.err)
			assert.Contains(t, res.err.Error(), tt.want)
		})
	}
}

func TestValidators(t *testing.T) {
	tests := map[string]struct {
		validate func(string) error
		input    string
		valid    bool
	}{
		"port":              {ValidatePort, "8080", true},
		"port high":         {ValidatePort, "65536", false},
		"workers":           {ValidateWorkers, "4", true},
		"workers negative":  {ValidateWorkers, "-2", false},
		"level warning":     {ValidateLogLevel, "warning", true},
		"level unknown":     {ValidateLogLevel, "trace", false},
		"format yaml":       {ValidateFormat, "yaml", true},
		"format csv":        {ValidateFormat, "csv", false},
		"host ip":           {ValidateHostFlag, "0.0.0.0", true},
		"host empty":        {ValidateHostFlag, "", false},
		"host with a slash": {ValidateHostFlag, "a/b", false},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := tt.validate(tt.input)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestLogDir(t *testing.T) {
	project(t, nil)
	t.Setenv("WXJSX_LOG_DIR", "logs")
	t.Setenv("WXJSX_LOG_LEVEL", "debug")

	res := execute(t, `<view/>`, "compile")
	require.NoError(t, res.err)

	entries, err := os.ReadDir("logs")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "wxjsx-"))
	assert.Contains(t, res.stderr, "compiled")
}

func TestWatch(t *testing.T) {
	project(t, map[string]string{
		"index.wxml": `<view>a</view>`,
	})
	t.Setenv("WXJSX_WATCH_DEBOUNCE", "20ms")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan execResult, 1)
	go func() { done <- executeContext(ctx, "", "watch") }()

	output := filepath.Join("dist", "index.jsx")
	readOutput := func() string {
		data, _ := os.ReadFile(output)
		return string(data)
	}
	require.Eventually(t, func() bool { return readOutput() == "<View>a</View>" },
		5*time.Second, 20*time.Millisecond)

	// Writing before the watcher is registered can be missed, so keep
	// rewriting until the rebuild shows up.
	require.Eventually(t, func() bool {
		_ = os.WriteFile("index.wxml", []byte(`<view>b</view>`), 0o644)
		return readOutput() == "<View>b</View>"
	}, 5*time.Second, 100*time.Millisecond)

	cancel()
	select {
	case res := <-done:
		assert.NoError(t, res.err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
