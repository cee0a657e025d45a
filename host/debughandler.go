// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import "github.com/beevik/goasm64/cpu"

// The debugHandler receives notifications from the cpu debugger and
// forwards them to the host. It also owns the temporary breakpoint placed
// after a call while stepping over it.
type debugHandler struct {
	host     *Host
	stepOver *cpu.Breakpoint // breakpoint ending the current step over
}

func newDebugHandler(h *Host) *debugHandler {
	return &debugHandler{host: h}
}

func (h *debugHandler) OnBreakpoint(c *cpu.CPU, b *cpu.Breakpoint) {
	if b == h.stepOver {
		h.host.state = stateStepOverBreakpoint
		return
	}
	h.host.onBreakpoint(c, b)
}

func (h *debugHandler) OnDataBreakpoint(c *cpu.CPU, b *cpu.DataBreakpoint) {
	h.host.onDataBreakpoint(c, b)
}
