// dictateclient is a smoke-test client: it toggles a recognition session,
// waits for a transcript record, and saves it.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"time"
)

type snapshot struct {
	SessionID   string `json:"sessionId"`
	Supported   bool   `json:"supported"`
	Listening   bool   `json:"listening"`
	InterimText string `json:"interimText"`
	Records     []struct {
		ID          string `json:"id"`
		Text        string `json:"text"`
		Persistence string `json:"persistence"`
	} `json:"records"`
	RemoteReady bool   `json:"remoteReady"`
	Status      string `json:"status"`
}

func main() {
	server := flag.String("server", "http://localhost:8080", "service base URL")
	flag.Parse()

	client := &http.Client{Timeout: 10 * time.Second}

	snap := post(client, *server+"/v1/session/toggle")
	log.Printf("session %s: supported=%v listening=%v remoteReady=%v",
		snap.SessionID, snap.Supported, snap.Listening, snap.RemoteReady)
	if !snap.Supported {
		log.Fatal("no speech capability on the server")
	}

	// Wait for the engine to produce a record
	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		snap = get(client, *server+"/v1/state")
		if snap.InterimText != "" {
			log.Printf("interim: %s", snap.InterimText)
		}
		if len(snap.Records) > 0 {
			break
		}
		time.Sleep(200 * time.Millisecond)
	}
	if len(snap.Records) == 0 {
		log.Fatal("no transcript record arrived")
	}

	rec := snap.Records[0]
	log.Printf("transcript: %q (%s)", rec.Text, rec.Persistence)

	post(client, *server+"/v1/records/"+rec.ID+"/save")
	for time.Now().Before(deadline) {
		snap = get(client, *server+"/v1/state")
		if len(snap.Records) > 0 && snap.Records[0].Persistence == "saved" {
			log.Printf("record saved: %s", snap.Status)
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	log.Fatalf("record never reached saved state, last status: %s", snap.Status)
}

func post(client *http.Client, url string) snapshot {
	resp, err := client.Post(url, "application/json", bytes.NewReader(nil))
	if err != nil {
		log.Fatalf("POST %s: %v", url, err)
	}
	return decode(resp, url)
}

func get(client *http.Client, url string) snapshot {
	resp, err := client.Get(url)
	if err != nil {
		log.Fatalf("GET %s: %v", url, err)
	}
	return decode(resp, url)
}

func decode(resp *http.Response, url string) snapshot {
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		log.Fatalf("%s: status %d", url, resp.StatusCode)
	}
	var snap snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		log.Fatalf("decode %s: %v", url, err)
	}
	return snap
}
