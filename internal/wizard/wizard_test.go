package wizard

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestUpdateStateTransitions(t *testing.T) {
	tests := []struct {
		name          string
		initialState  WizardState
		msg           tea.Msg
		expectedState WizardState
	}{
		{
			name:          "enter at welcome opens the details form",
			initialState:  StateWelcome,
			msg:           tea.KeyMsg{Type: tea.KeyEnter},
			expectedState: StateDetails,
		},
		{
			name:          "enter at existing-config notice opens the details form",
			initialState:  StateCheckExisting,
			msg:           tea.KeyMsg{Type: tea.KeyEnter},
			expectedState: StateDetails,
		},
		{
			name:          "successful file creation ends in done",
			initialState:  StateCreating,
			msg:           fileCreationResultMsg{result: &InitResult{}},
			expectedState: StateDone,
		},
		{
			name:          "failed file creation ends in error",
			initialState:  StateCreating,
			msg:           fileCreationResultMsg{err: errTest},
			expectedState: StateError,
		},
		{
			name:          "existing config detected",
			initialState:  StateWelcome,
			msg:           existingConfigMsg{path: "nsx-v2t.toml"},
			expectedState: StateCheckExisting,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New()
			m.state = tt.initialState
			newModel, _ := m.Update(tt.msg)

			if got := newModel.(WizardModel).state; got != tt.expectedState {
				t.Errorf("state = %v, want %v", got, tt.expectedState)
			}
		})
	}
}

type testError struct{}

func (testError) Error() string { return "test error" }

var errTest = testError{}

func TestEnterWalksTheForm(t *testing.T) {
	m := New()
	m.state = StateDetails
	m.initializeInputs()

	if m.focusIndex != 0 {
		t.Fatalf("focusIndex = %d, want 0", m.focusIndex)
	}
	newModel, _ := m.handleEnter()
	m = newModel.(WizardModel)
	if m.focusIndex != 1 {
		t.Errorf("focusIndex after enter = %d, want 1", m.focusIndex)
	}
	if m.state != StateDetails {
		t.Errorf("state = %v, want StateDetails until the last field", m.state)
	}
}

func TestSubmitWithEmptyHostStaysOnForm(t *testing.T) {
	m := New()
	m.state = StateDetails
	m.initializeInputs()
	m.focusIndex = len(m.inputs) - 1

	newModel, _ := m.handleEnter()
	m = newModel.(WizardModel)
	if m.state != StateDetails {
		t.Errorf("state = %v, want StateDetails on validation failure", m.state)
	}
	if len(m.errors) == 0 {
		t.Error("expected validation errors for the empty form")
	}
}

func TestViewRendersEveryState(t *testing.T) {
	states := []struct {
		state    WizardState
		contains string
	}{
		{StateWelcome, "Welcome"},
		{StateCheckExisting, "existing configuration"},
		{StateSummary, "Summary"},
		{StateCreating, "Creating"},
		{StateDone, "Setup complete"},
		{StateError, "error"},
	}
	for _, tt := range states {
		m := New()
		m.state = tt.state
		if got := m.View(); !strings.Contains(got, tt.contains) {
			t.Errorf("View() for state %v does not contain %q", tt.state, tt.contains)
		}
	}
}
