package commands

import (
	"strings"

	"github.com/goliatone/go-press/internal/logging"
	"github.com/goliatone/go-press/pkg/interfaces"
)

const moduleRoot = "press.commands"

// CommandLogger returns a module logger for the handlers of module.
func CommandLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	name := strings.TrimSpace(module)
	if name == "" {
		name = "core"
	}
	return logging.WithFields(logging.ModuleLogger(provider, moduleRoot+"."+name), map[string]any{
		"component":      "command",
		"command_module": name,
	})
}
