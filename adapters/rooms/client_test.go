package rooms

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/20407002036/LughaBridge/domain/entities"
)

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(ClientConfig{}, zap.NewNop())
	if c.apiBaseURL != "http://localhost:8000/api" {
		t.Errorf("Unexpected API base URL: %q", c.apiBaseURL)
	}
	if c.wsBaseURL != "ws://localhost:8000" {
		t.Errorf("Unexpected websocket base URL: %q", c.wsBaseURL)
	}
}

func TestSessionURL(t *testing.T) {
	c := NewClient(ClientConfig{WSBaseURL: "ws://rooms.example:9000/"}, zap.NewNop())
	got := c.SessionURL("LUGHA-7Q2F")
	want := "ws://rooms.example:9000/ws/room/LUGHA-7Q2F/"
	if got != want {
		t.Errorf("SessionURL = %q, want %q", got, want)
	}
}

func TestCreateRoom(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/rooms/create/" {
			t.Errorf("Unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["source_lang"] != "Kikuyu" || body["target_lang"] != "English" {
			t.Errorf("Unexpected payload: %v", body)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"room_code": "LUGHA-7Q2F",
			"ws_url":    "ws://localhost:8000/ws/room/LUGHA-7Q2F/",
		})
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{APIBaseURL: srv.URL}, zap.NewNop())
	created, err := c.CreateRoom(context.Background(), entities.LanguageKikuyu, entities.LanguageEnglish)
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if created.RoomCode != "LUGHA-7Q2F" {
		t.Errorf("Unexpected room code: %q", created.RoomCode)
	}
}

func TestJoinRoom(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rooms/LUGHA-7Q2F/join/" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"room_code":   "LUGHA-7Q2F",
			"source_lang": "kikuyu", // short-code shape
			"target_lang": "english",
			"messages": []map[string]interface{}{
				{"id": "1", "sender": "A", "original_text": "Wĩ mwega?", "confidence": 0.94},
				{"id": "2", "sender": "B", "originalText": "Hello", "original_language": "English"},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{APIBaseURL: srv.URL}, zap.NewNop())
	joined, err := c.JoinRoom(context.Background(), "LUGHA-7Q2F")
	if err != nil {
		t.Fatalf("JoinRoom failed: %v", err)
	}

	if joined.Room.SourceLanguage != entities.LanguageKikuyu {
		t.Errorf("Unexpected source language: %s", joined.Room.SourceLanguage)
	}
	if joined.Room.TargetLanguage != entities.LanguageEnglish {
		t.Errorf("Unexpected target language: %s", joined.Room.TargetLanguage)
	}
	if len(joined.Messages) != 2 {
		t.Fatalf("Expected 2 history messages, got %d", len(joined.Messages))
	}
	if joined.Messages[0].Confidence != 0.94 {
		t.Errorf("Unexpected confidence: %f", joined.Messages[0].Confidence)
	}
	if joined.Messages[1].OriginalLanguage != entities.LanguageEnglish {
		t.Errorf("Unexpected language: %s", joined.Messages[1].OriginalLanguage)
	}
}

func TestJoinRoomNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{APIBaseURL: srv.URL}, zap.NewNop())
	_, err := c.JoinRoom(context.Background(), "NOPE")
	if !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("Expected ErrRoomNotFound, got %v", err)
	}
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health/" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"status": "ok", "demo_mode": true})
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{APIBaseURL: srv.URL}, zap.NewNop())
	health, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if health.Status != "ok" || !health.DemoMode {
		t.Errorf("Unexpected health payload: %+v", health)
	}
}
