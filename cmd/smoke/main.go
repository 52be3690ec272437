package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"yuzu/interview/internal/types"

	ws "nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

func main() {
	serverURL := flag.String("server", "http://localhost:5000", "Interview server base URL")
	code := flag.String("code", "console.log('hello from smoke')", "Code to send as an update")
	timeout := flag.Duration("timeout", 10*time.Second, "Overall timeout")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	base := strings.TrimSuffix(*serverURL, "/")

	fmt.Printf("=== Interview Smoke Test ===\n")
	fmt.Printf("Server: %s\n\n", base)

	// Step 1: create a session over REST
	fmt.Println("[1] Creating session...")
	sessionID, shareLink, err := createSession(ctx, base)
	if err != nil {
		log.Fatalf("create session: %v", err)
	}
	fmt.Printf("    session=%s share=%s\n", sessionID, shareLink)

	wsURL := "ws" + strings.TrimPrefix(base, "http") + "/ws"

	// Step 2: interviewer joins
	fmt.Println("[2] Joining as Interviewer...")
	interviewer, err := join(ctx, wsURL, sessionID, "Interviewer")
	if err != nil {
		log.Fatalf("join interviewer: %v", err)
	}
	defer interviewer.Close(ws.StatusNormalClosure, "smoke done")
	expect(ctx, interviewer, "interviewer", types.EventSyncCode)
	expect(ctx, interviewer, "interviewer", types.EventParticipantsList)

	// Step 3: candidate joins
	fmt.Println("[3] Joining as Candidate...")
	candidate, err := join(ctx, wsURL, sessionID, "Candidate")
	if err != nil {
		log.Fatalf("join candidate: %v", err)
	}
	expect(ctx, interviewer, "interviewer", types.EventUserJoined)
	expect(ctx, candidate, "candidate", types.EventSyncCode)
	expect(ctx, candidate, "candidate", types.EventParticipantsList)

	// Step 4: candidate edits, interviewer observes
	fmt.Printf("[4] Sending code_update: %q\n", *code)
	if err := send(ctx, candidate, types.EventCodeUpdate, types.CodeUpdate{SessionID: sessionID, Code: *code}); err != nil {
		log.Fatalf("send code_update: %v", err)
	}
	expect(ctx, interviewer, "interviewer", types.EventCodeChanged)

	// Step 5: candidate leaves
	fmt.Println("[5] Closing candidate...")
	_ = candidate.Close(ws.StatusNormalClosure, "bye")
	expect(ctx, interviewer, "interviewer", types.EventUserLeft)

	fmt.Println("\n=== Smoke Test Complete ===")
}

func createSession(ctx context.Context, base string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/api/sessions", nil)
	if err != nil {
		return "", "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var out struct {
		SessionID string `json:"sessionId"`
		ShareLink string `json:"shareLink"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", "", err
	}
	return out.SessionID, out.ShareLink, nil
}

func join(ctx context.Context, wsURL, sessionID, name string) (*ws.Conn, error) {
	c, _, err := ws.Dial(ctx, wsURL, nil)
	if err != nil {
		return nil, err
	}
	if err := send(ctx, c, types.EventJoinSession, types.JoinSession{SessionID: sessionID, UserName: name}); err != nil {
		c.Close(ws.StatusInternalError, "join failed")
		return nil, err
	}
	return c, nil
}

func send(ctx context.Context, c *ws.Conn, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return wsjson.Write(ctx, c, types.Envelope{Event: event, Data: data})
}

// expect reads the next event for who and exits if it is not the wanted one.
func expect(ctx context.Context, c *ws.Conn, who, event string) {
	var env types.Envelope
	if err := wsjson.Read(ctx, c, &env); err != nil {
		log.Fatalf("%s: waiting for %s: %v", who, event, err)
	}
	fmt.Printf("    %-11s <- %s %s\n", who, env.Event, string(env.Data))
	if env.Event != event {
		log.Fatalf("%s: expected %s, got %s", who, event, env.Event)
	}
}
