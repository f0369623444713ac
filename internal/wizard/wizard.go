package wizard

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/hbcalsoft/nsx-v2t/internal/config"
	"github.com/hbcalsoft/nsx-v2t/internal/docstore"
)

// New creates a new wizard model
func New() WizardModel {
	return WizardModel{
		state:  StateWelcome,
		errors: make(map[string]string),
	}
}

// Init initializes the wizard (Bubble Tea Init)
func (m WizardModel) Init() tea.Cmd {
	return checkForExistingConfig
}

// Update handles state transitions (Bubble Tea Update)
func (m WizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "q":
			// Inside the form "q" is a letter, not a quit key.
			if m.state != StateDetails {
				return m, tea.Quit
			}
			return m.handleTextInput(msg)

		case "enter":
			return m.handleEnter()

		case "up", "shift+tab":
			return m.handleUp()

		case "down", "tab":
			return m.handleDown()

		default:
			return m.handleTextInput(msg)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case fileCreationResultMsg:
		if msg.err != nil {
			m.err = msg.err
			m.state = StateError
			return m, nil
		}
		m.result = msg.result
		m.state = StateDone
		return m, nil

	case existingConfigMsg:
		if msg.path != "" {
			m.existingConfigPath = msg.path
			m.state = StateCheckExisting
		} else {
			m.state = StateWelcome
		}
		return m, nil
	}

	return m, nil
}

// View renders the wizard UI (Bubble Tea View)
func (m WizardModel) View() string {
	switch m.state {
	case StateWelcome:
		return m.renderWelcome()
	case StateCheckExisting:
		return m.renderCheckExisting()
	case StateDetails:
		return m.renderDetails()
	case StateSummary:
		return m.renderSummary()
	case StateCreating:
		return m.renderCreating()
	case StateDone:
		return m.renderDone()
	case StateError:
		return m.renderError()
	default:
		return "Unknown state"
	}
}

// State transition handlers

func (m WizardModel) handleEnter() (tea.Model, tea.Cmd) {
	switch m.state {
	case StateWelcome, StateCheckExisting:
		m.state = StateDetails
		m.initializeInputs()
		return m, nil

	case StateDetails:
		// Enter advances through the form; on the last field it submits.
		if m.focusIndex < len(m.inputs)-1 {
			m.focusIndex++
			m.updateInputFocus()
			return m, nil
		}
		if err := m.collectInputValues(); err != nil {
			return m, nil
		}
		m.state = StateSummary
		return m, nil

	case StateSummary:
		m.state = StateCreating
		return m, m.createFiles()

	case StateDone, StateError:
		return m, tea.Quit
	}

	return m, nil
}

func (m WizardModel) handleUp() (tea.Model, tea.Cmd) {
	if m.state == StateDetails && m.focusIndex > 0 {
		m.focusIndex--
		m.updateInputFocus()
	}
	return m, nil
}

func (m WizardModel) handleDown() (tea.Model, tea.Cmd) {
	if m.state == StateDetails && m.focusIndex < len(m.inputs)-1 {
		m.focusIndex++
		m.updateInputFocus()
	}
	return m, nil
}

func (m WizardModel) handleTextInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.state == StateDetails && len(m.inputs) > 0 {
		var cmd tea.Cmd
		m.inputs[m.focusIndex], cmd = m.inputs[m.focusIndex].Update(msg)
		return m, cmd
	}
	return m, nil
}

// Input management

func (m *WizardModel) initializeInputs() {
	m.inputs = make([]textinput.Model, fieldCount)
	m.focusIndex = 0

	m.inputs[fieldHost] = m.makeInput("Cloud Director host", "")
	m.inputs[fieldOrganization] = m.makeInput("Organization", "")
	m.inputs[fieldSourceOrgVDC] = m.makeInput("Source org VDC", "")
	m.inputs[fieldSourceProviderVDC] = m.makeInput("Source provider VDC (NSX-V)", "")
	m.inputs[fieldTargetProviderVDC] = m.makeInput("Target provider VDC (NSX-T)", "")
	m.inputs[fieldSourceExternalNetwork] = m.makeInput("Source external network", "")
	m.inputs[fieldTargetExternalNetwork] = m.makeInput("Target external network", "")
	m.inputs[fieldDummyExternalNetwork] = m.makeInput("Dummy external network", "")
	m.inputs[fieldDiscoveryFile] = m.makeInput("Discovery document path", docstore.DefaultFile)

	m.inputs[0].Focus()
}

func (m *WizardModel) makeInput(placeholder, value string) textinput.Model {
	input := textinput.New()
	input.Placeholder = placeholder
	input.SetValue(value)
	return input
}

func (m *WizardModel) updateInputFocus() {
	for i := range m.inputs {
		if i == m.focusIndex {
			m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}
}

func (m *WizardModel) collectInputValues() error {
	m.input = MigrationInput{
		Host:                  strings.TrimSpace(m.inputs[fieldHost].Value()),
		Organization:          strings.TrimSpace(m.inputs[fieldOrganization].Value()),
		SourceOrgVDC:          strings.TrimSpace(m.inputs[fieldSourceOrgVDC].Value()),
		SourceProviderVDC:     strings.TrimSpace(m.inputs[fieldSourceProviderVDC].Value()),
		TargetProviderVDC:     strings.TrimSpace(m.inputs[fieldTargetProviderVDC].Value()),
		SourceExternalNetwork: strings.TrimSpace(m.inputs[fieldSourceExternalNetwork].Value()),
		TargetExternalNetwork: strings.TrimSpace(m.inputs[fieldTargetExternalNetwork].Value()),
		DummyExternalNetwork:  strings.TrimSpace(m.inputs[fieldDummyExternalNetwork].Value()),
		DiscoveryFile:         strings.TrimSpace(m.inputs[fieldDiscoveryFile].Value()),
	}

	clear(m.errors)
	if err := ValidateHost(m.input.Host); err != nil {
		m.errors["host"] = err.Error()
	}
	if err := ValidateRequired("organization", m.input.Organization); err != nil {
		m.errors["organization"] = err.Error()
	}
	if err := ValidateRequired("source org VDC", m.input.SourceOrgVDC); err != nil {
		m.errors["source_org_vdc"] = err.Error()
	}
	if len(m.errors) > 0 {
		return fmt.Errorf("invalid input")
	}
	return nil
}

// Message types for async operations

type fileCreationResultMsg struct {
	result *InitResult
	err    error
}

func (m WizardModel) createFiles() tea.Cmd {
	return func() tea.Msg {
		result, err := GenerateFiles(m.input)
		return fileCreationResultMsg{result: result, err: err}
	}
}

type existingConfigMsg struct {
	path string
}

func checkForExistingConfig() tea.Msg {
	if _, err := os.Stat(config.FileName); err == nil {
		return existingConfigMsg{path: config.FileName}
	}
	return existingConfigMsg{}
}

// View renderers

func (m WizardModel) renderWelcome() string {
	var b strings.Builder

	b.WriteString(renderHeader("NSX-V to NSX-T Migration Setup"))
	b.WriteString("\n\n")
	b.WriteString("Welcome! Let's set up the migration preflight for your organization.\n\n")
	b.WriteString(renderInfo("This wizard will help you:\n" +
		"  • Name the source and target provider VDCs\n" +
		"  • Name the external networks involved\n" +
		"  • Create nsx-v2t.toml and a credentials template"))
	b.WriteString("\n\n")
	b.WriteString(renderStatusBar("Press Enter to continue, q to quit"))

	return borderStyle.Render(b.String())
}

func (m WizardModel) renderCheckExisting() string {
	var b strings.Builder

	b.WriteString(renderHeader("NSX-V to NSX-T Migration Setup"))
	b.WriteString("\n\n")
	b.WriteString(renderSuccess("Found existing configuration!"))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("Config: %s\n", m.existingConfigPath))
	b.WriteString("\n")
	b.WriteString(renderInfo("Continuing will overwrite it with the values\nyou enter in the next step."))
	b.WriteString("\n\n")
	b.WriteString(renderStatusBar("Press Enter to continue, q to quit"))

	return borderStyle.Render(b.String())
}

func (m WizardModel) renderDetails() string {
	var b strings.Builder

	b.WriteString(renderHeader("NSX-V to NSX-T Migration Setup"))
	b.WriteString("\n\n")
	b.WriteString(renderSectionHeader("Migration Details"))
	b.WriteString("\n\n")

	for i, input := range m.inputs {
		label := input.Placeholder
		if i == m.focusIndex {
			b.WriteString(selectedStyle.Render("► " + label + ":"))
		} else {
			b.WriteString(labelStyle.Render("  " + label + ":"))
		}
		b.WriteString("\n  ")
		b.WriteString(input.View())
		b.WriteString("\n\n")
	}

	if len(m.errors) > 0 {
		for _, errMsg := range m.errors {
			b.WriteString(renderError(errMsg))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(renderInfo("Credentials are never stored in nsx-v2t.toml.\nSet VCD_USERNAME and VCD_PASSWORD in .env instead."))
	b.WriteString("\n\n")
	b.WriteString(renderStatusBar("↑/↓ or Tab: navigate  Enter: next field / submit  ctrl+c: quit"))

	return borderStyle.Render(b.String())
}

func (m WizardModel) renderSummary() string {
	var b strings.Builder

	b.WriteString(renderHeader("NSX-V to NSX-T Migration Setup"))
	b.WriteString("\n\n")
	b.WriteString(renderSectionHeader("Summary"))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("  Host:                    %s\n", m.input.Host))
	b.WriteString(fmt.Sprintf("  Organization:            %s\n", m.input.Organization))
	b.WriteString(fmt.Sprintf("  Source org VDC:          %s\n", m.input.SourceOrgVDC))
	b.WriteString(fmt.Sprintf("  Source provider VDC:     %s\n", m.input.SourceProviderVDC))
	b.WriteString(fmt.Sprintf("  Target provider VDC:     %s\n", m.input.TargetProviderVDC))
	b.WriteString(fmt.Sprintf("  Source external network: %s\n", m.input.SourceExternalNetwork))
	b.WriteString(fmt.Sprintf("  Target external network: %s\n", m.input.TargetExternalNetwork))
	b.WriteString(fmt.Sprintf("  Dummy external network:  %s\n", m.input.DummyExternalNetwork))
	b.WriteString("\n")
	b.WriteString("This will create:\n")
	b.WriteString("  • " + config.FileName + "\n")
	b.WriteString("  • .env (credentials template, if absent)\n")
	b.WriteString("  • Update .gitignore\n")
	b.WriteString("\n\n")
	b.WriteString(renderStatusBar("Press Enter to create files, q to quit"))

	return borderStyle.Render(b.String())
}

func (m WizardModel) renderCreating() string {
	var b strings.Builder

	b.WriteString(renderHeader("NSX-V to NSX-T Migration Setup"))
	b.WriteString("\n\n")
	b.WriteString(infoStyle.Render(iconSpinner + " Creating project files..."))

	return borderStyle.Render(b.String())
}

func (m WizardModel) renderDone() string {
	var b strings.Builder

	b.WriteString(renderHeader("NSX-V to NSX-T Migration Setup"))
	b.WriteString("\n\n")
	b.WriteString(renderSuccess("Setup complete!"))
	b.WriteString("\n\n")

	if m.result != nil {
		b.WriteString("Created:\n")
		if m.result.ConfigCreated {
			b.WriteString(fmt.Sprintf("  %s %s\n", iconCheck, m.result.ConfigPath))
		}
		if m.result.EnvFileCreated {
			b.WriteString(fmt.Sprintf("  %s %s\n", iconCheck, m.result.EnvFilePath))
		}
		if m.result.GitignoreUpdated {
			b.WriteString(fmt.Sprintf("  %s .gitignore updated\n", iconCheck))
		}
	}

	b.WriteString("\n")
	b.WriteString(renderInfo("Next, fill in your credentials:\n" +
		"  Edit .env and set VCD_USERNAME / VCD_PASSWORD\n\n" +
		"  Then run the preflight checks:\n" +
		"  nsx-v2t validate"))
	b.WriteString("\n\n")
	b.WriteString(renderStatusBar("Press Enter to exit"))

	return borderStyle.Render(b.String())
}

func (m WizardModel) renderError() string {
	var b strings.Builder

	b.WriteString(renderHeader("NSX-V to NSX-T Migration Setup"))
	b.WriteString("\n\n")
	b.WriteString(renderError("An error occurred"))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render(m.err.Error()))
	}

	b.WriteString("\n\n")
	b.WriteString(renderStatusBar("Press Enter to exit"))

	return borderStyle.Render(b.String())
}

// Run starts the wizard
func Run() error {
	p := tea.NewProgram(New())
	_, err := p.Run()
	return err
}
