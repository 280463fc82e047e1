package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func typeText(t *testing.T, m model, text string) model {
	t.Helper()
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return next.(model)
}

func press(t *testing.T, m model, k tea.KeyType) (model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(tea.KeyMsg{Type: k})
	return next.(model), cmd
}

func TestSetupFlow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v1/auth/login":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"token": "tok", "user_id": "u1", "success": true})
		case "/api/v1/devices":
			if r.Header.Get("Authorization") != "Bearer tok" {
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "missing or invalid token"})
				return
			}
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"data":    map[string]string{"device_id": "pi-7"},
				"api_key": "tk_secret",
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	m := initialModel(newAPIClient(srv.URL))
	m = typeText(t, m, "me@example.com")
	m, _ = press(t, m, tea.KeyEnter)
	m = typeText(t, m, "password1")
	if !strings.Contains(m.View(), "•••••••••") {
		t.Fatalf("password should be masked:\n%s", m.View())
	}
	m, cmd := press(t, m, tea.KeyEnter)
	if m.step != stepLoggingIn || cmd == nil {
		t.Fatalf("want login command, step=%v", m.step)
	}
	next, _ := m.Update(cmd())
	m = next.(model)
	if m.step != stepEnteringDeviceID || m.authToken != "tok" {
		t.Fatalf("after login: step=%v token=%q", m.step, m.authToken)
	}

	m = typeText(t, m, "pi-7")
	m, _ = press(t, m, tea.KeyEnter)
	m = typeText(t, m, "Garden")
	m, _ = press(t, m, tea.KeyEnter)
	m, cmd = press(t, m, tea.KeyEnter)
	if m.step != stepRegistering || cmd == nil {
		t.Fatalf("want register command, step=%v", m.step)
	}
	next, _ = m.Update(cmd())
	m = next.(model)
	if m.step != stepComplete || m.apiKey != "tk_secret" || m.deviceID != "pi-7" {
		t.Fatalf("after register: %+v", m)
	}
	if !strings.Contains(m.View(), "tk_secret") {
		t.Fatalf("api key not shown:\n%s", m.View())
	}
}

func TestLoginFailureReturnsToEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid email or password"})
	}))
	defer srv.Close()

	m := initialModel(newAPIClient(srv.URL))
	m.email, m.step, m.currentInput = "me@example.com", stepEnteringLoginPassword, "wrong"
	m, cmd := press(t, m, tea.KeyEnter)
	next, _ := m.Update(cmd())
	m = next.(model)
	if m.step != stepEnteringEmail {
		t.Fatalf("step: want=%v got=%v", stepEnteringEmail, m.step)
	}
	if !strings.Contains(m.message, "invalid email or password") {
		t.Fatalf("message: %q", m.message)
	}
}
