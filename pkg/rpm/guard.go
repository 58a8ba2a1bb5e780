// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-pkgtrust.
//
// go-pkgtrust is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package rpm

import (
	"strings"
	"sync"

	"github.com/jeremyhahn/go-pkgtrust/pkg/logging"
)

// logMu serializes all access to the engine's global log state. The mask and
// callback are process-wide, so concurrent operations must take turns or log
// lines get misattributed.
var logMu sync.Mutex

// LogGuard forwards engine log records to a logger for the duration of one
// operation. It opens the mask fully so nothing the engine says is lost, and
// restores the previous mask and callback on Close. The engine log mutex is
// held between construction and Close.
type LogGuard struct {
	engine  Engine
	oldMask LogMask
	oldCb   LogCallback
	closed  bool
}

// NewLogGuard acquires the engine log mutex and starts forwarding records to
// log. Callers must Close the guard on every exit path.
func NewLogGuard(engine Engine, log *logging.Logger) *LogGuard {
	logMu.Lock()
	g := &LogGuard{engine: engine}
	g.oldCb = engine.SetLogCallback(func(rec LogRecord) {
		forwardRecord(log, rec)
	})
	g.oldMask = engine.SetLogMask(MaskAll)
	return g
}

// Close restores the previous mask and callback and releases the engine log
// mutex. Close is idempotent.
func (g *LogGuard) Close() {
	if g.closed {
		return
	}
	g.closed = true
	g.engine.SetLogMask(g.oldMask)
	g.engine.SetLogCallback(g.oldCb)
	logMu.Unlock()
}

func forwardRecord(log *logging.Logger, rec LogRecord) {
	msg := strings.TrimSuffix(rec.Message, "\n")
	switch {
	case rec.Level <= LevelErr:
		log.Errorf("[engine] %s", msg)
	case rec.Level == LevelWarning:
		log.Warnf("[engine] %s", msg)
	case rec.Level == LevelNotice || rec.Level == LevelInfo:
		log.Infof("[engine] %s", msg)
	default:
		log.Debugf("[engine] %s", msg)
	}
}

// LogCapture collects engine log records into an ordered list of lines for
// the duration of one operation. The mask is raised to informational level
// (verification findings are logged at info) and restored on Close, together
// with the previous callback. The engine log mutex is held between
// construction and Close.
type LogCapture struct {
	engine  Engine
	oldMask LogMask
	oldCb   LogCallback
	lines   []string
	closed  bool
}

// NewLogCapture acquires the engine log mutex and starts collecting records.
// Callers must Close the capture on every exit path.
func NewLogCapture(engine Engine) *LogCapture {
	logMu.Lock()
	c := &LogCapture{engine: engine}
	c.oldCb = engine.SetLogCallback(func(rec LogRecord) {
		c.lines = append(c.lines, strings.TrimSuffix(rec.Message, "\n"))
	})
	c.oldMask = engine.SetLogMask(UpTo(LevelInfo))
	return c
}

// Lines returns the records captured so far, in emission order.
func (c *LogCapture) Lines() []string {
	return c.lines
}

// Close restores the previous mask and callback and releases the engine log
// mutex. Close is idempotent. Captured lines remain readable after Close.
func (c *LogCapture) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.engine.SetLogMask(c.oldMask)
	c.engine.SetLogCallback(c.oldCb)
	logMu.Unlock()
}
