package main

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/botlisten/botcast/internal/common/cnst"
	"github.com/botlisten/botcast/internal/message"
)

var (
	baseURL           string
	heartbeatInterval time.Duration
	numBots           int

	rootCmd = &cobra.Command{
		Use:   "botcast-client",
		Short: "Test clients for the botcast relay",
	}

	broadcasterCmd = &cobra.Command{
		Use:   "broadcaster",
		Short: "Connect as the broadcaster and stream stdin lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBroadcaster()
		},
	}

	viewerCmd = &cobra.Command{
		Use:   "viewer",
		Short: "Connect as a single bot viewer with a random personality",
		RunE: func(cmd *cobra.Command, args []string) error {
			botID := uuid.NewString()
			return runBot(botID, newPersonality(botID), true)
		},
	}

	multiCmd = &cobra.Command{
		Use:   "multi",
		Short: "Simulate several bot viewers at once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMulti()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&baseURL, "addr", "ws://localhost:8000", "base websocket URL of the relay")
	viewerCmd.Flags().DurationVar(&heartbeatInterval, "heartbeat", 30*time.Second, "heartbeat period")
	multiCmd.Flags().DurationVar(&heartbeatInterval, "heartbeat", 30*time.Second, "heartbeat period")
	multiCmd.Flags().IntVar(&numBots, "bots", 3, "number of bots to simulate")
	rootCmd.AddCommand(broadcasterCmd, viewerCmd, multiCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// client wraps a websocket connection with serialized writes so the
// heartbeat ticker and the main loop can share it.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func dialClient(path string) (*client, error) {
	conn, _, err := websocket.DefaultDialer.Dial(baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s%s: %w", baseURL, path, err)
	}
	return &client{conn: conn}, nil
}

func (c *client) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *client) close() {
	c.mu.Lock()
	frame := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, frame, time.Now().Add(time.Second))
	c.mu.Unlock()
	_ = c.conn.Close()
}

func runBroadcaster() error {
	c, err := dialClient("/broadcaster")
	if err != nil {
		return err
	}
	defer c.close()

	streamID := uuid.NewString()
	broadcasterID := uuid.NewString()
	title := "Test Stream"

	fmt.Println("Connected as broadcaster.")
	fmt.Println("Type stream content and press Enter. /title <text> changes the title, /viewers asks for the viewer count.")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var m map[string]any
			if err := c.conn.ReadJSON(&m); err != nil {
				return
			}
			printBroadcasterMessage(m)
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "/title "):
			if t := strings.TrimSpace(strings.TrimPrefix(line, "/title ")); t != "" {
				title = t
				fmt.Printf("Stream title set to %q\n", title)
			}
			continue
		case strings.TrimSpace(line) == "/viewers":
			if err := c.writeJSON(map[string]any{"command": cnst.CommandGetViewers}); err != nil {
				return err
			}
			continue
		case strings.TrimSpace(line) == "":
			continue
		}

		payload := map[string]any{
			"content": line,
			"metadata": map[string]any{
				"timestamp":      message.Now(),
				"stream_id":      streamID,
				"broadcaster_id": broadcasterID,
				"stream_title":   title,
				"language":       "ja",
			},
		}
		if err := c.writeJSON(payload); err != nil {
			return err
		}
	}

	c.close()
	<-done
	fmt.Println("Stream ended.")
	return scanner.Err()
}

func printBroadcasterMessage(m map[string]any) {
	info, _ := m["bot_info"].(map[string]any)
	switch m["type"] {
	case string(cnst.TypeBotReaction):
		name, _ := info["name"].(string)
		if name == "" {
			name = "anonymous bot"
		}
		fmt.Printf("[%s] %v\n", name, m["content"])
	case string(cnst.TypeViewerUpdate):
		fmt.Printf("viewers: %v (%v)\n", m["count"], m["event"])
	case string(cnst.TypeSystemInfo):
		fmt.Printf("system: %v\n", m["message"])
	}
}

var personalityTypes = []string{"enthusiastic", "critical", "curious", "shy", "funny", "technical", "supportive"}

var interestSets = [][]string{
	{"Technology", "Games", "Music"},
	{"Anime", "Manga", "Movies"},
	{"Programming", "AI", "Machine Learning"},
	{"Sports", "Health", "Cooking"},
	{"Science", "Space", "History"},
}

var emojiLevels = []string{"high", "medium", "low"}

func newPersonality(botID string) map[string]any {
	return map[string]any{
		"id":               botID,
		"name":             "BotViewer_" + botID[:6],
		"personality_type": personalityTypes[rand.Intn(len(personalityTypes))],
		"interests":        interestSets[rand.Intn(len(interestSets))],
		"emoji_usage":      emojiLevels[rand.Intn(len(emojiLevels))],
	}
}

// runBot connects a viewer, heartbeats its profile, and requests an
// automatic reaction for every piece of stream content it receives.
func runBot(botID string, personality map[string]any, verbose bool) error {
	c, err := dialClient("/bot-viewer")
	if err != nil {
		return err
	}
	defer c.close()

	name := personality["name"]
	if verbose {
		fmt.Printf("Connected as %v (%v)\n", name, personality["personality_type"])
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := c.writeJSON(map[string]any{"type": cnst.TypeHeartbeat, "bot_info": personality}); err != nil {
					return
				}
			}
		}
	}()

	// Announce the profile right away instead of waiting a full period.
	if err := c.writeJSON(map[string]any{"type": cnst.TypeHeartbeat, "bot_info": personality}); err != nil {
		return err
	}

	for {
		var m map[string]any
		if err := c.conn.ReadJSON(&m); err != nil {
			if verbose {
				fmt.Println("Disconnected.")
			}
			return nil
		}

		switch m["type"] {
		case string(cnst.TypeStreamContent):
			if verbose {
				fmt.Printf("stream: %v\n", m["content"])
			}
			req := map[string]any{
				"type":      cnst.TypeReceiveStreamContent,
				"content":   m["content"],
				"bot_info":  personality,
				"timestamp": message.Now(),
			}
			if err := c.writeJSON(req); err != nil {
				return err
			}
		case string(cnst.TypeReaction):
			fmt.Printf("[%v] %v\n", name, m["content"])
		default:
			if verbose {
				fmt.Printf("received: %v\n", m)
			}
		}
	}
}

func runMulti() error {
	fmt.Printf("Simulating %d bot viewers...\n", numBots)

	var wg sync.WaitGroup
	for i := 0; i < numBots; i++ {
		botID := fmt.Sprintf("bot_%d_%s", i+1, uuid.NewString()[:6])
		personality := newPersonality(botID)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := runBot(botID, personality, false); err != nil {
				fmt.Fprintf(os.Stderr, "%s: %v\n", botID, err)
			}
		}()
	}
	wg.Wait()
	return nil
}
