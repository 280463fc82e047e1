package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

type loginSuccessMsg struct {
	userID string
	token  string
}

type registerSuccessMsg struct {
	deviceID string
	apiKey   string
}

type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

// apiError reads the server's {"error": ...} body.
func apiError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body.Error == "" {
		body.Error = resp.Status
	}
	return fmt.Errorf("server returned %d: %s", resp.StatusCode, body.Error)
}

func (c *apiClient) post(path, token string, payload interface{}, out interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("server not reachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *apiClient) login(email, password string) tea.Cmd {
	return func() tea.Msg {
		var result struct {
			Token  string `json:"token"`
			UserID string `json:"user_id"`
		}
		err := c.post("/api/v1/auth/login", "", map[string]string{
			"email":    email,
			"password": password,
		}, &result)
		if err != nil {
			return errMsg{fmt.Errorf("login failed: %w", err)}
		}
		if result.Token == "" || result.UserID == "" {
			return errMsg{fmt.Errorf("login failed: empty token")}
		}
		return loginSuccessMsg{userID: result.UserID, token: result.Token}
	}
}

func (c *apiClient) registerDevice(token, deviceID, name, location string) tea.Cmd {
	return func() tea.Msg {
		var result struct {
			Data struct {
				DeviceID string `json:"device_id"`
			} `json:"data"`
			APIKey string `json:"api_key"`
		}
		err := c.post("/api/v1/devices", token, map[string]string{
			"device_id": deviceID,
			"name":      name,
			"location":  location,
		}, &result)
		if err != nil {
			return errMsg{fmt.Errorf("registration failed: %w", err)}
		}
		return registerSuccessMsg{deviceID: result.Data.DeviceID, apiKey: result.APIKey}
	}
}
