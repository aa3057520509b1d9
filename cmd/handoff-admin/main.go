// ABOUTME: Operator CLI for the handoff-gateway HTTP API
// ABOUTME: Lists threads, shows transcripts, and drives join/leave/send actions

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
)

const banner = `
 _                     _       __  __           _           _
| |__   __ _ _ __   __| | ___ / _|/ _|     __ _| |_ __ ___ (_)_ __
| '_ \ / _' | '_ \ / _' |/ _ \ |_| |_ ___ / _' | | '_ ' _ \| | '_ \
| | | | (_| | | | | (_| | (_) |  _|  |___| (_| | | | | | | | | | | |
|_| |_|\__,_|_| |_|\__,_|\___/|_| |_|      \__,_|_|_| |_| |_|_|_| |_|
`

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	baseURL := os.Getenv("HANDOFF_GATEWAY_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "threads":
		err = cmdThreads(baseURL)
	case "messages":
		err = cmdMessages(baseURL, args)
	case "join":
		err = cmdJoin(baseURL, args)
	case "leave":
		err = cmdLeave(baseURL, args)
	case "send":
		err = cmdSend(baseURL, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println()
	fmt.Println("Usage: handoff-admin <command> [args]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  threads                  List conversation threads")
	fmt.Println("  messages <conversation>  Show the transcript of a conversation")
	fmt.Println("  join <conversation>      Join a conversation as a live agent")
	fmt.Println("  leave <conversation>     Leave a conversation, handing it back to the bot")
	fmt.Println("  send <conversation> <text>  Send a message as a live agent")
	fmt.Println()
	yellow.Println("Environment:")
	fmt.Println("  HANDOFF_GATEWAY_URL      Gateway base URL (default: http://localhost:8080)")
	fmt.Println()
	yellow.Println("Examples:")
	fmt.Println("  handoff-admin threads")
	fmt.Println("  handoff-admin join 1a2b3c")
	fmt.Println("  handoff-admin send 1a2b3c 'A human here, how can I help?'")
	fmt.Println()
}

// threadListing mirrors the gateway's GET /api/threads response.
type threadListing struct {
	Threads []struct {
		ConversationID  string `json:"conversation_id"`
		State           string `json:"state"`
		DisplayName     string `json:"display_name"`
		LastMessageText string `json:"last_message_text"`
		LastUpdated     string `json:"last_updated"`
	} `json:"threads"`
}

// transcript mirrors the gateway's GET /api/conversations/{id}/messages response.
type transcript struct {
	ConversationID string `json:"conversation_id"`
	Messages       []struct {
		MessageText string `json:"message_text"`
		UserType    string `json:"user_type"`
		DisplayName string `json:"display_name"`
		CreatedDate string `json:"created_date"`
	} `json:"messages"`
}

func cmdThreads(baseURL string) error {
	var listing threadListing
	if err := getJSON(baseURL+"/api/threads", &listing); err != nil {
		return err
	}

	if len(listing.Threads) == 0 {
		fmt.Println("No threads.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CONVERSATION\tSTATE\tUSER\tLAST MESSAGE\tUPDATED")
	for _, t := range listing.Threads {
		state := t.State
		switch state {
		case "Queued":
			state = color.YellowString(state)
		case "Live Agent":
			state = color.GreenString(state)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			t.ConversationID, state, t.DisplayName, truncate(t.LastMessageText, 40), t.LastUpdated)
	}
	return w.Flush()
}

func cmdMessages(baseURL string, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: handoff-admin messages <conversation>")
	}

	var tr transcript
	if err := getJSON(baseURL+"/api/conversations/"+args[0]+"/messages", &tr); err != nil {
		return err
	}

	gray := color.New(color.FgHiBlack)
	for _, m := range tr.Messages {
		if m.UserType == "CRM" {
			color.New(color.FgCyan).Printf("%s: ", m.DisplayName)
		} else {
			color.New(color.FgGreen).Printf("%s: ", m.DisplayName)
		}
		fmt.Print(m.MessageText)
		gray.Printf("  (%s)\n", m.CreatedDate)
	}
	return nil
}

func cmdJoin(baseURL string, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: handoff-admin join <conversation>")
	}
	if err := postJSON(baseURL+"/api/conversations/"+args[0]+"/join", nil); err != nil {
		return err
	}
	color.Green("Joined %s - you are now the live agent\n", args[0])
	return nil
}

func cmdLeave(baseURL string, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: handoff-admin leave <conversation>")
	}
	if err := postJSON(baseURL+"/api/conversations/"+args[0]+"/leave", nil); err != nil {
		return err
	}
	color.Green("Left %s - the bot has the conversation again\n", args[0])
	return nil
}

func cmdSend(baseURL string, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: handoff-admin send <conversation> <text>")
	}
	text := strings.Join(args[1:], " ")

	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return err
	}
	if err := postJSON(baseURL+"/api/conversations/"+args[0]+"/send", body); err != nil {
		return err
	}
	color.Green("Sent.\n")
	return nil
}

func getJSON(url string, out any) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func postJSON(url string, body []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	return nil
}

// apiError extracts the JSON error message from a non-200 response.
func apiError(resp *http.Response) error {
	data, _ := io.ReadAll(resp.Body)
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error != "" {
		return fmt.Errorf("%s (status %d)", payload.Error, resp.StatusCode)
	}
	return fmt.Errorf("status %d", resp.StatusCode)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
