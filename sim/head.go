// Simulated scan-head hardware, host builds only: the same engine and
// interpreter that run on the device, driven by injected events instead
// of pin interrupts.
package sim

import "scancount/core"

// Head simulates the externally driven scan head. It implements
// core.DirectionInput; steps are injected through the owning Device.
type Head struct {
	forward bool
	eng     *core.Engine
}

// Forward reports the simulated direction level.
func (h *Head) Forward() bool { return h.forward }

func (h *Head) bind(eng *core.Engine) { h.eng = eng }

func (h *Head) step(forward bool) {
	h.forward = forward
	h.eng.StepEvent()
}
