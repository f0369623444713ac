package wizard

import (
	"github.com/charmbracelet/bubbles/textinput"
)

// WizardState represents the current step in the wizard flow
type WizardState int

const (
	StateWelcome WizardState = iota
	StateCheckExisting
	StateDetails
	StateSummary
	StateCreating
	StateDone
	StateError
)

// Field positions inside the details form, in render order.
const (
	fieldHost = iota
	fieldOrganization
	fieldSourceOrgVDC
	fieldSourceProviderVDC
	fieldTargetProviderVDC
	fieldSourceExternalNetwork
	fieldTargetExternalNetwork
	fieldDummyExternalNetwork
	fieldDiscoveryFile
	fieldCount
)

// MigrationInput holds the values collected by the details form.
type MigrationInput struct {
	Host                  string
	Organization          string
	SourceOrgVDC          string
	SourceProviderVDC     string
	TargetProviderVDC     string
	SourceExternalNetwork string
	TargetExternalNetwork string
	DummyExternalNetwork  string
	DiscoveryFile         string
}

// InitResult reports what the wizard created.
type InitResult struct {
	ConfigCreated    bool
	ConfigPath       string
	EnvFileCreated   bool
	EnvFilePath      string
	GitignoreUpdated bool
}

// WizardModel holds the state for the Bubble Tea wizard
type WizardModel struct {
	state WizardState

	// Existing config detection
	existingConfigPath string

	// Details form
	inputs     []textinput.Model
	focusIndex int
	input      MigrationInput

	// Validation
	errors map[string]string

	// Final output
	result *InitResult
	err    error

	// Terminal dimensions
	width  int
	height int
}
