package interaction

// State is the single mutually-exclusive phase of a voice interaction.
type State string

const (
	StateIdle       State = "idle"
	StateListening  State = "listening"
	StateProcessing State = "processing"
	StateSpeaking   State = "speaking"
	// StateDisabled is terminal: the platform lacks capture or synthesis.
	StateDisabled State = "disabled"
)

// Status messages shown next to the control.
const (
	StatusReady      = "Tap the orb to start"
	StatusListening  = "Listening..."
	StatusAccessing  = "Accessing Agent Core..."
	StatusSpeaking   = "Agent speaking..."
	StatusSpeechDone = "Tap the orb to start again"
	StatusSilenced   = "Agent silenced. Tap to start again."
	StatusMicBusy    = "Mic busy. Please try again."
	StatusDisabled   = "Component disabled: Unsupported"
)

// Snapshot is a copy of the machine state handed to readers.
type Snapshot struct {
	State  State  `json:"state"`
	Status string `json:"status"`
	// Transcript is only set while processing.
	Transcript string `json:"transcript,omitempty"`
	// Turn identifies the adapter operation the current state is waiting on.
	// Signals tagged with another turn are stale.
	Turn           uint64 `json:"turn"`
	DisabledReason string `json:"disabled_reason,omitempty"`
}

// Initial returns the snapshot of a freshly mounted machine.
func Initial() Snapshot {
	return Snapshot{State: StateIdle, Status: StatusReady}
}
