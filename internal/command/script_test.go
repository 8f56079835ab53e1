package command

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/joeycumines/vlist/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, code string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.js")
	require.NoError(t, os.WriteFile(path, []byte(code), 0o644))
	return path
}

func TestScriptCommand(t *testing.T) {
	t.Parallel()

	path := writeScript(t, `
		const vlist = require("vlist");
		const list = vlist.create({
			keys: 100,
			options: { bufferUnit: "items", bufferBehind: 0, bufferAhead: 0, velocityBias: 0 },
			extent: () => 50,
		});
		list.viewport(500).start();
		console.log("args " + args.join(" "));
		setTimeout(() => {
			console.log("resident " + list.resident().join(","));
			console.warn("done");
		}, 50);
	`)

	cmd := NewScriptCommand(config.NewConfig())
	var stdout, stderr bytes.Buffer
	require.NoError(t, cmd.Execute([]string{path, "a", "b"}, &stdout, &stderr))
	assert.Equal(t, "args a b\nresident 0,1,2,3,4,5,6,7,8,9\n", stdout.String())
	assert.Equal(t, "done\n", stderr.String())
}

func TestScriptCommand_Errors(t *testing.T) {
	t.Parallel()

	cmd := NewScriptCommand(config.NewConfig())
	var stdout, stderr bytes.Buffer

	assert.Error(t, cmd.Execute(nil, &stdout, &stderr))
	assert.Error(t, cmd.Execute([]string{filepath.Join(t.TempDir(), "missing.js")}, &stdout, &stderr))

	err := cmd.Execute([]string{writeScript(t, `throw new Error("boom")`)}, &stdout, &stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	err = cmd.Execute([]string{writeScript(t, `require("vlist").create({keys: ["a", "a"]})`)}, &stdout, &stderr)
	require.Error(t, err)
}
