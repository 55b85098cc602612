// watchclient subscribes to the /v1/events stream and prints every session
// snapshot the service pushes.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/websocket"
)

func main() {
	server := flag.String("server", "ws://localhost:8080", "service WebSocket base URL")
	flag.Parse()

	url := *server + "/v1/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		log.Fatalf("dial %s: %v", url, err)
	}
	defer conn.Close()
	log.Printf("watching %s", url)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		conn.Close()
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			log.Printf("stream closed: %v", err)
			return
		}
		// Compact the snapshot to one line per event
		var buf map[string]any
		if err := json.Unmarshal(payload, &buf); err != nil {
			log.Printf("bad frame: %v", err)
			continue
		}
		records := 0
		if recs, ok := buf["records"].([]any); ok {
			records = len(recs)
		}
		line, _ := json.Marshal(map[string]any{
			"listening":   buf["listening"],
			"interimText": buf["interimText"],
			"remoteReady": buf["remoteReady"],
			"status":      buf["status"],
			"records":     records,
		})
		log.Printf("%s", line)
	}
}
