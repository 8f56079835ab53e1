package builtin

import (
	"log/slog"

	"github.com/dop251/goja_nodejs/require"
	scrollbarmod "github.com/joeycumines/vlist/internal/builtin/termui/scrollbar"
	vlistmod "github.com/joeycumines/vlist/internal/builtin/vlist"
	"github.com/joeycumines/vlist/internal/engine"
	"github.com/joeycumines/vlist/internal/host"
)

// RegisterResult contains references to managers created during registration.
type RegisterResult struct {
	Lists      *vlistmod.Manager
	Scrollbars *scrollbarmod.Manager
}

// Register registers all native Go modules with the provided registry. Lists
// created by scripts run on h, starting from base.
func Register(registry *require.Registry, h host.Host, base engine.Options, logger *slog.Logger) RegisterResult {
	lists := vlistmod.NewManager(h, base, logger)
	registry.RegisterNativeModule("vlist", vlistmod.Require(lists))

	// stateless apart from the models it hands out
	scrollbars := scrollbarmod.NewManager()
	registry.RegisterNativeModule("vlist/scrollbar", scrollbarmod.Require(scrollbars))

	return RegisterResult{
		Lists:      lists,
		Scrollbars: scrollbars,
	}
}
