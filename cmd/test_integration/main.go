package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

func main() {
	baseURL := os.Getenv("REDLINE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	// Wait for server to start
	time.Sleep(2 * time.Second)

	fmt.Println("Starting Integration Test...")
	workspace := fmt.Sprintf("smoke-%d", time.Now().Unix())

	fmt.Println("1. Correcting attempt...")
	var review struct {
		Annotations []struct {
			ID string `json:"id"`
		} `json:"errors"`
		OriginalHighlights []json.RawMessage `json:"originalHighlights"`
	}
	ok := sendRequest(baseURL, "POST", "/correct", map[string]any{
		"workspaceId": workspace,
		"zh":          "我昨天去商店买水果",
		"en":          "Yesterday I go to the shop to buy fruits.",
	}, &review)
	if !ok || len(review.Annotations) == 0 {
		fmt.Println("FAILED: Correct")
		os.Exit(1)
	}
	fmt.Printf("PASSED: Correct (%d annotations, %d highlights)\n", len(review.Annotations), len(review.OriginalHighlights))

	if len(review.Annotations) >= 2 {
		fmt.Println("2. Merging the first two annotations...")
		steps := []struct {
			endpoint string
			body     any
		}{
			{"/merge", map[string]any{"seed": review.Annotations[0].ID}},
			{"/merge/toggle", map[string]any{"id": review.Annotations[1].ID}},
			{"/merge/confirm", map[string]any{}},
		}
		for _, s := range steps {
			if !sendRequest(baseURL, "POST", "/workspaces/"+workspace+s.endpoint, s.body, nil) {
				fmt.Printf("FAILED: %s\n", s.endpoint)
				os.Exit(1)
			}
		}
		fmt.Println("PASSED: Merge")
	}

	fmt.Println("3. Saving all annotations to the right stash...")
	if !sendRequest(baseURL, "POST", "/workspaces/"+workspace+"/saved/all", map[string]any{"stash": "right"}, nil) {
		fmt.Println("FAILED: Save")
		os.Exit(1)
	}
	var list struct {
		Saved []json.RawMessage `json:"saved"`
	}
	if !sendRequest(baseURL, "GET", "/saved?stash=right", nil, &list) || len(list.Saved) == 0 {
		fmt.Println("FAILED: List saved")
		os.Exit(1)
	}
	fmt.Printf("PASSED: Save (%d on right stash)\n", len(list.Saved))

	fmt.Println("4. Clearing the right stash...")
	if !sendRequest(baseURL, "DELETE", "/saved?stash=right", nil, nil) {
		fmt.Println("FAILED: Clear")
		os.Exit(1)
	}
	fmt.Println("PASSED: Clear")
}

func sendRequest(baseURL, method, endpoint string, payload, out any) bool {
	var body io.Reader
	if payload != nil {
		jsonBytes, _ := json.Marshal(payload)
		body = bytes.NewBuffer(jsonBytes)
	}

	req, err := http.NewRequest(method, baseURL+endpoint, body)
	if err != nil {
		fmt.Printf("Error creating request: %v\n", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 2 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error sending request: %v\n", err)
		return false
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	fmt.Printf("Response Status: %s\n", resp.Status)

	if resp.StatusCode >= 300 {
		fmt.Printf("Response Body: %s\n", string(respBody))
		return false
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			fmt.Printf("Error decoding response: %v\n", err)
			return false
		}
	}
	return true
}
