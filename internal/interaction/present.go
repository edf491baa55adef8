package interaction

const baseButtonClass = "mic-button slds-button_icon-border-filled slds-button_icon-inverse"

// View is the presentation projection of a snapshot.
type View struct {
	Icon           string `json:"icon"`
	AltText        string `json:"alt_text"`
	ButtonClass    string `json:"button_class"`
	SpinnerClass   string `json:"spinner_class"`
	ShowSpinner    bool   `json:"show_spinner"`
	ControlEnabled bool   `json:"control_enabled"`
}

func (s Snapshot) View() View {
	return View{
		Icon:           s.Icon(),
		AltText:        s.AltText(),
		ButtonClass:    s.ButtonClass(),
		SpinnerClass:   s.SpinnerClass(),
		ShowSpinner:    s.ShowSpinner(),
		ControlEnabled: s.ControlEnabled(),
	}
}

func (s Snapshot) Icon() string {
	switch {
	case s.State == StateListening:
		return "utility:close"
	case s.ProcessingVisuals():
		return "utility:settings_analog"
	default:
		return "utility:mic"
	}
}

func (s Snapshot) AltText() string {
	switch s.State {
	case StateListening:
		return "Stop Listening"
	case StateProcessing:
		return "Processing your request"
	case StateSpeaking:
		return "Agent is speaking"
	case StateDisabled:
		return "Voice agent unavailable"
	default:
		return "Start Listening"
	}
}

func (s Snapshot) ButtonClass() string {
	switch {
	case s.State == StateListening:
		return baseButtonClass + " mic-button-listening"
	case s.ProcessingVisuals():
		return baseButtonClass + " mic-button-processing"
	default:
		return baseButtonClass
	}
}

// ProcessingVisuals reports whether the control should look busy.
func (s Snapshot) ProcessingVisuals() bool {
	return s.State == StateProcessing || s.State == StateSpeaking || s.State == StateDisabled
}

// ShowSpinner is true only while waiting on the agent.
func (s Snapshot) ShowSpinner() bool {
	return s.State == StateProcessing
}

func (s Snapshot) SpinnerClass() string {
	if s.ShowSpinner() {
		return "spinner-container slds-m-top_small slds-visible"
	}
	return "spinner-container slds-m-top_small slds-hidden"
}

// ControlEnabled is false while processing and once disabled.
func (s Snapshot) ControlEnabled() bool {
	return s.State != StateProcessing && s.State != StateDisabled
}
