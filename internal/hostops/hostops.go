// Package hostops is the sole bridge from script code into native
// capability: structured logging through charmbracelet/log, and the
// lexical relative-path computation behind the prelude's path.rel.
package hostops

import (
	"path/filepath"

	"github.com/charmbracelet/log"

	"senc/internal/jsengine"
)

// Ops implements jsengine.HostOps against one charmbracelet/log logger per
// script host, tagged with the entrypoint it is running so interleaved
// parallel entrypoints stay distinguishable in the combined log stream.
type Ops struct {
	Logger     *log.Logger
	Entrypoint string
}

func New(logger *log.Logger, entrypoint string) *Ops {
	return &Ops{Logger: logger.With("entrypoint", entrypoint), Entrypoint: entrypoint}
}

var _ jsengine.HostOps = (*Ops)(nil)

// Log routes a console.* call to the matching structured-log level; any
// level the engine doesn't recognize falls back to Info rather than
// dropping the line.
func (o *Ops) Log(level, msg string) {
	switch level {
	case "error":
		o.Logger.Error(msg)
	case "warn":
		o.Logger.Warn(msg)
	case "debug":
		o.Logger.Debug(msg)
	default:
		o.Logger.Info(msg)
	}
}

// RelPath computes a lexical (not symlink-resolving) relative path from
// base to target, the operation backing the prelude's path.rel.
func (o *Ops) RelPath(base, target string) (string, error) {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}
