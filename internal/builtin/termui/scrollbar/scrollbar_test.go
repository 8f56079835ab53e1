package scrollbar

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/dop251/goja"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/require"
)

func setupRuntime(t *testing.T) (*goja.Runtime, *Manager) {
	t.Helper()
	rt := goja.New()
	manager := NewManager()
	rt.Set("require", func(call goja.FunctionCall) goja.Value {
		if call.Argument(0).String() == "vlist/scrollbar" {
			mod := rt.NewObject()
			Require(manager)(rt, mod)
			return mod.Get("exports")
		}
		return goja.Undefined()
	})
	return rt, manager
}

func TestRequire_ExportsNew(t *testing.T) {
	rt := goja.New()
	module := rt.NewObject()
	require.NoError(t, module.Set("exports", rt.NewObject()))
	Require(NewManager())(rt, module)

	exports := module.Get("exports").ToObject(rt)
	require.NotNil(t, exports)
	_, ok := goja.AssertFunction(exports.Get("new"))
	require.True(t, ok)
}

func TestJS_SyncFromState(t *testing.T) {
	rt, manager := setupRuntime(t)

	v, err := rt.RunString(`
		const sb = require('vlist/scrollbar').new(10);
		sb.setChars('T', '.', 'R');
		sb.sync({contentExtent: 1000, viewport: 500, offset: 500, residentStart: 0, residentEnd: 1000});
		JSON.stringify({thumb: sb.thumb(), resident: sb.resident(), rows: sb.view().split('\n')});
	`)
	require.NoError(t, err)
	require.Equal(t, 1, manager.Len())
	require.JSONEq(t, `{
		"thumb": {"top": 5, "height": 5},
		"resident": {"top": 0, "end": 10},
		"rows": ["R","R","R","R","R","T","T","T","T","T"]
	}`, stripANSI(v.String()))
}

func TestJS_Setters(t *testing.T) {
	rt, _ := setupRuntime(t)
	orig := lipgloss.ColorProfile()
	t.Cleanup(func() { lipgloss.SetColorProfile(orig) })
	lipgloss.SetColorProfile(termenv.TrueColor)

	v, err := rt.RunString(`
		const sb = require('vlist/scrollbar').new(8)
			.setContentExtent(2000)
			.setViewportExtent(500)
			.setOffset(0)
			.setResident(0, 750)
			.setThumbBackground('#FF0000');
		sb.setHeight(-3);
		const empty = sb.height();
		sb.setHeight(4);
		[empty, sb.height(), sb.view()];
	`)
	require.NoError(t, err)
	got := v.Export().([]any)
	require.EqualValues(t, 0, got[0])
	require.EqualValues(t, 4, got[1])
	out := got[2].(string)
	require.Contains(t, out, "48;2;255;0;0")
	require.Len(t, strings.Split(out, "\n"), 4)
}

func TestNoArgsReturnUndefined(t *testing.T) {
	rt := goja.New()
	manager := NewManager()
	obj := createScrollbarObject(rt, manager, 0).ToObject(rt)

	for _, name := range []string{"setHeight", "setChars", "setResident", "setOffset"} {
		fn, ok := goja.AssertFunction(obj.Get(name))
		require.True(t, ok, name)
		res, err := fn(goja.Undefined())
		require.NoError(t, err, name)
		require.True(t, goja.IsUndefined(res), name)
	}

	// unknown ids render nothing
	view, _ := goja.AssertFunction(obj.Get("view"))
	res, err := view(goja.Undefined())
	require.NoError(t, err)
	require.Equal(t, "", res.String())
}

func TestSyncRejectsMissingState(t *testing.T) {
	rt, _ := setupRuntime(t)
	_, err := rt.RunString(`require('vlist/scrollbar').new(4).sync()`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "expected a list state")
}

func stripANSI(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == 0x1b {
			for i < len(s) && s[i] != 'm' {
				i++
			}
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
