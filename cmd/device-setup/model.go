package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	inputStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86"))

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	keyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57")).
			Padding(0, 1)
)

type step int

const (
	stepEnteringEmail step = iota
	stepEnteringLoginPassword
	stepLoggingIn
	stepEnteringDeviceID
	stepEnteringName
	stepEnteringLocation
	stepRegistering
	stepComplete
)

type model struct {
	client *apiClient

	step         step
	email        string
	loginPass    string
	userID       string
	authToken    string
	deviceID     string
	name         string
	location     string
	apiKey       string
	currentInput string
	message      string
	quitting     bool
}

func initialModel(client *apiClient) model {
	return model{client: client, step: stepEnteringEmail}
}

func (m model) Init() tea.Cmd {
	return nil
}

// acceptsText reports whether the current step reads typed input.
func (m model) acceptsText() bool {
	switch m.step {
	case stepEnteringEmail, stepEnteringLoginPassword, stepEnteringDeviceID, stepEnteringName, stepEnteringLocation:
		return true
	}
	return false
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quitting = true
			return m, tea.Quit

		case tea.KeyBackspace:
			if len(m.currentInput) > 0 {
				m.currentInput = m.currentInput[:len(m.currentInput)-1]
			}

		case tea.KeyRunes:
			if m.acceptsText() {
				m.currentInput += string(msg.Runes)
			}

		case tea.KeySpace:
			if m.acceptsText() {
				m.currentInput += " "
			}

		case tea.KeyEnter:
			return m.submit()
		}

	case loginSuccessMsg:
		m.userID = msg.userID
		m.authToken = msg.token
		m.step = stepEnteringDeviceID
		m.message = successStyle.Render("✓ Logged in as " + m.email)

	case registerSuccessMsg:
		m.apiKey = msg.apiKey
		if msg.deviceID != "" {
			m.deviceID = msg.deviceID
		}
		m.step = stepComplete
		m.message = successStyle.Render("✓ Device registered!")

	case errMsg:
		m.message = errorStyle.Render("✗ " + msg.err.Error())
		if m.step == stepLoggingIn {
			m.step = stepEnteringEmail
		} else {
			m.step = stepEnteringDeviceID
		}
	}

	return m, nil
}

func (m model) submit() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.currentInput)
	switch m.step {
	case stepEnteringEmail:
		if input != "" {
			m.email = input
			m.currentInput = ""
			m.step = stepEnteringLoginPassword
		}

	case stepEnteringLoginPassword:
		if m.currentInput != "" {
			m.loginPass = m.currentInput
			m.currentInput = ""
			m.step = stepLoggingIn
			m.message = "Logging in..."
			return m, m.client.login(m.email, m.loginPass)
		}

	case stepEnteringDeviceID:
		// empty lets the server assign an ID
		m.deviceID = input
		m.currentInput = ""
		m.step = stepEnteringName

	case stepEnteringName:
		if input != "" {
			m.name = input
			m.currentInput = ""
			m.step = stepEnteringLocation
		}

	case stepEnteringLocation:
		m.location = input
		m.currentInput = ""
		m.step = stepRegistering
		m.message = "Registering device..."
		return m, m.client.registerDevice(m.authToken, m.deviceID, m.name, m.location)

	case stepComplete:
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render("Telemetry Device Setup"))
	s.WriteString("\n\n")

	prompt := func(label, value string) {
		if m.message != "" {
			s.WriteString(m.message + "\n\n")
		}
		s.WriteString(promptStyle.Render(label) + "\n")
		s.WriteString(inputStyle.Render("> " + value))
		s.WriteString("\n\nPress Enter (Esc to quit)\n")
	}

	switch m.step {
	case stepEnteringEmail:
		prompt("Enter your email:", m.currentInput)
	case stepEnteringLoginPassword:
		prompt("Enter your password:", strings.Repeat("•", len(m.currentInput)))
	case stepEnteringDeviceID:
		prompt("Device ID (leave empty to generate one):", m.currentInput)
	case stepEnteringName:
		prompt("Device name:", m.currentInput)
	case stepEnteringLocation:
		prompt("Location (optional):", m.currentInput)
	case stepLoggingIn, stepRegistering:
		s.WriteString(m.message + "\n")
	case stepComplete:
		s.WriteString(m.message + "\n\n")
		s.WriteString(fmt.Sprintf("Device ID: %s\n", m.deviceID))
		s.WriteString("API key (shown once, store it on the device):\n")
		s.WriteString(keyStyle.Render(m.apiKey) + "\n")
		s.WriteString("\nPress Enter to exit\n")
	}
	return s.String()
}
