package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"time"
)

// questbot is an end-to-end smoke client: it signs up a throwaway user,
// walks the happy path (active tasks, one completion, the daily bonus)
// and prints the resulting profile. Run against a disposable database.

type authResponse struct {
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
	Username string `json:"username,omitempty"`
	Token    string `json:"token,omitempty"`
}

type activeTasksResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	Tasks []struct {
		Name      string `json:"name"`
		Reward    int64  `json:"reward"`
		UpdatedOn string `json:"updatedOn"`
	} `json:"tasks"`
}

type completeTaskResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Balance int64  `json:"balance,omitempty"`
}

type bonusClaimResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Amount  int64  `json:"amount,omitempty"`
	Balance int64  `json:"balance,omitempty"`
}

type profileResponse struct {
	OK             bool   `json:"ok"`
	Error          string `json:"error,omitempty"`
	Username       string `json:"username,omitempty"`
	Balance        int64  `json:"balance"`
	BonusAvailable bool   `json:"bonusAvailable"`
}

type client struct {
	baseURL string
	token   string
	http    *http.Client
}

func main() {
	baseURL := strings.TrimSpace(os.Getenv("API_BASE_URL"))
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	c := &client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}

	username := fmt.Sprintf("questbot%d", rand.New(rand.NewSource(time.Now().UnixNano())).Intn(1_000_000))
	password := "questbot-smoke-pass"

	var auth authResponse
	if err := c.post("/api/signup", map[string]string{
		"username": username,
		"password": password,
	}, &auth); err != nil {
		fail("signup request failed: %v", err)
	}
	if !auth.OK {
		fail("signup rejected: %s", auth.Error)
	}
	c.token = auth.Token
	fmt.Println("signed up as", auth.Username)

	var active activeTasksResponse
	if err := c.get("/api/active-tasks", &active); err != nil {
		fail("active tasks request failed: %v", err)
	}
	if !active.OK {
		fail("active tasks rejected: %s", active.Error)
	}
	fmt.Println("active tasks today:")
	for _, task := range active.Tasks {
		fmt.Printf("  %s (reward %d, rotated %s)\n", task.Name, task.Reward, task.UpdatedOn)
	}
	if len(active.Tasks) == 0 {
		fail("no active tasks returned")
	}

	first := active.Tasks[0]
	var completed completeTaskResponse
	if err := c.post("/api/complete-task", map[string]interface{}{
		"taskName": first.Name,
		"imageUrl": "https://example.com/proof.jpg",
		"reward":   first.Reward,
	}, &completed); err != nil {
		fail("complete task request failed: %v", err)
	}
	if !completed.OK {
		fail("complete task rejected: %s", completed.Error)
	}
	fmt.Printf("completed %q, balance now %d\n", first.Name, completed.Balance)

	// A second submission of the same task must bounce.
	var dup completeTaskResponse
	if err := c.post("/api/complete-task", map[string]interface{}{
		"taskName": first.Name,
		"imageUrl": "https://example.com/proof.jpg",
		"reward":   first.Reward,
	}, &dup); err != nil {
		fail("duplicate completion request failed: %v", err)
	}
	if dup.OK || dup.Error != "ALREADY_COMPLETED" {
		fail("duplicate completion was not rejected (ok=%v error=%s)", dup.OK, dup.Error)
	}
	fmt.Println("duplicate completion rejected as expected")

	var bonus bonusClaimResponse
	if err := c.post("/api/bonus/claim", map[string]string{}, &bonus); err != nil {
		fail("bonus claim request failed: %v", err)
	}
	if !bonus.OK {
		fail("bonus claim rejected: %s", bonus.Error)
	}
	fmt.Printf("claimed daily bonus of %d, balance now %d\n", bonus.Amount, bonus.Balance)

	var profile profileResponse
	if err := c.get("/api/profile", &profile); err != nil {
		fail("profile request failed: %v", err)
	}
	if !profile.OK {
		fail("profile rejected: %s", profile.Error)
	}
	fmt.Printf("profile: %s balance=%d bonusAvailable=%v\n", profile.Username, profile.Balance, profile.BonusAvailable)
	fmt.Println("smoke run passed")
}

func (c *client) post(path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *client) get(path string, out interface{}) error {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *client) do(req *http.Request, out interface{}) error {
	if c.token != "" {
		req.Header.Set("X-Session-Token", c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
