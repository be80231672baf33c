// Package pipeline turns located hand regions into published sign
// predictions. It owns the motion-driven mode state machine, the sliding
// frame window, prediction smoothing and the published state.
//
// Everything except State is mutated by the processing loop alone and is
// not safe for concurrent use.
package pipeline

// ModeState is the recognition mode.
type ModeState int

const (
	// Idle: the hand is still; each frame is classified as a letter.
	Idle ModeState = iota
	// Motion: the hand is moving; frames feed the window for word
	// classification.
	Motion
	// Cooldown: motion just stopped; classification is suppressed for a
	// fixed number of frames.
	Cooldown
)

func (s ModeState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Motion:
		return "motion"
	case Cooldown:
		return "cooldown"
	default:
		return "unknown"
	}
}

// Dispatch is what the processor should do with the current frame.
type Dispatch int

const (
	DispatchNone Dispatch = iota
	DispatchStatic
	DispatchDynamic
)

func (d Dispatch) String() string {
	switch d {
	case DispatchStatic:
		return "static"
	case DispatchDynamic:
		return "dynamic"
	default:
		return "none"
	}
}

// DefaultCooldownFrames is the number of frames static classification stays
// suppressed after motion ends.
const DefaultCooldownFrames = 10

// ModeController is the Idle/Motion/Cooldown state machine.
type ModeController struct {
	state    ModeState
	cooldown int
	frames   int
	onChange func(from, to ModeState)
}

// NewModeController creates a controller in Idle. A negative cooldownFrames
// uses DefaultCooldownFrames; zero disables the cooldown.
func NewModeController(cooldownFrames int) *ModeController {
	if cooldownFrames < 0 {
		cooldownFrames = DefaultCooldownFrames
	}
	return &ModeController{state: Idle, frames: cooldownFrames}
}

// OnChange registers fn to be called on every state change.
func (m *ModeController) OnChange(fn func(from, to ModeState)) {
	m.onChange = fn
}

// Step advances the machine by one frame with a hand in it and says how the
// frame should be classified.
//
// After motion stops, exactly CooldownFrames frames return DispatchNone and
// the next one returns to Idle and DispatchStatic. Motion during cooldown
// goes straight back to Motion.
func (m *ModeController) Step(motion bool) Dispatch {
	switch m.state {
	case Idle:
		if motion {
			m.set(Motion)
			m.cooldown = m.frames
		}
	case Motion:
		if !motion {
			m.set(Cooldown)
			m.cooldown = m.frames
		}
	case Cooldown:
		if motion {
			m.set(Motion)
			m.cooldown = m.frames
		}
	}

	switch m.state {
	case Motion:
		return DispatchDynamic
	case Cooldown:
		if m.cooldown > 0 {
			m.cooldown--
			return DispatchNone
		}
		m.set(Idle)
		return DispatchStatic
	default:
		return DispatchStatic
	}
}

func (m *ModeController) set(s ModeState) {
	if s == m.state {
		return
	}
	from := m.state
	m.state = s
	if m.onChange != nil {
		m.onChange(from, s)
	}
}

// State returns the current mode.
func (m *ModeController) State() ModeState { return m.state }

// Cooldown returns the remaining cooldown frames.
func (m *ModeController) Cooldown() int { return m.cooldown }

// CooldownFrames returns the configured cooldown length.
func (m *ModeController) CooldownFrames() int { return m.frames }

// Reset returns the controller to Idle.
func (m *ModeController) Reset() {
	m.set(Idle)
	m.cooldown = 0
}
