package telephony

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gasguard/gasguard/internal/state"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestInitiate_InvalidTarget(t *testing.T) {
	store := state.NewStore(100)
	c := NewClient("AC123", "token", "+15550100")
	init := NewInitiator(c, store, "gasguard.example.com", discardLogger())

	for _, target := range []string{"", "not-a-number", "+1555abc"} {
		_, err := init.Initiate(context.Background(), target, CallContext{})
		if !errors.Is(err, ErrInvalidTarget) {
			t.Errorf("Initiate(%q) error = %v, want ErrInvalidTarget", target, err)
		}
	}

	// Nothing dispatched, slot never claimed.
	if store.Snapshot().Call.Active {
		t.Error("invalid target claimed the call slot")
	}
}

func TestInitiate_Success(t *testing.T) {
	var gotTwiml, gotCallback string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		gotTwiml = r.PostForm.Get("Twiml")
		gotCallback = r.PostForm.Get("StatusCallback")
		json.NewEncoder(w).Encode(map[string]string{"sid": "CA99"})
	}))
	defer srv.Close()

	store := state.NewStore(100)
	c := NewClient("AC123", "token", "+15550100")
	c.baseURL = srv.URL
	init := NewInitiator(c, store, "gasguard.example.com", discardLogger())

	sid, err := init.Initiate(context.Background(), "+15550111", CallContext{
		CustomerName: "Sana Khan",
		Language:     "ur",
		Reading:      "240",
	})
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	if sid != "CA99" {
		t.Errorf("sid = %q, want CA99", sid)
	}

	snap := store.Snapshot()
	if !snap.Call.Active {
		t.Error("Active = false after successful dispatch, want true")
	}
	if snap.Call.LastCallAttemptAt.IsZero() {
		t.Error("LastCallAttemptAt not stamped")
	}

	// The redirect TwiML must carry the call context so it survives the
	// provider's answer hop.
	if !strings.Contains(gotTwiml, "<Redirect") {
		t.Errorf("twiml %q missing redirect instruction", gotTwiml)
	}
	if !strings.Contains(gotTwiml, "gasguard.example.com/twilio/inbound-call") {
		t.Errorf("twiml %q does not point back at the inbound handler", gotTwiml)
	}
	if !strings.Contains(gotTwiml, url.QueryEscape("Sana Khan")) {
		t.Errorf("twiml %q missing escaped customer name", gotTwiml)
	}
	if !strings.Contains(gotTwiml, "Reading=240") {
		t.Errorf("twiml %q missing reading", gotTwiml)
	}
	if gotCallback != "https://gasguard.example.com/twilio/call-status" {
		t.Errorf("status callback = %q", gotCallback)
	}
}

func TestInitiate_DispatchFailureReleasesSlot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{"code": 20003, "message": "Authenticate"})
	}))
	defer srv.Close()

	store := state.NewStore(100)
	c := NewClient("AC123", "bad-token", "+15550100")
	c.baseURL = srv.URL
	init := NewInitiator(c, store, "gasguard.example.com", discardLogger())

	_, err := init.Initiate(context.Background(), "+15550111", CallContext{})
	if err == nil {
		t.Fatal("expected dispatch error, got nil")
	}

	snap := store.Snapshot()
	if snap.Call.Active {
		t.Error("Active = true after dispatch failure, want false")
	}
	if snap.Call.LastCallAttemptAt.IsZero() {
		t.Error("LastCallAttemptAt cleared on failure; cooldown must still cover failed attempts")
	}
}

func TestValidTarget(t *testing.T) {
	valid := []string{"+15550111", "15550111", "+923001234567"}
	invalid := []string{"", "+", "555-0111", "+1 555", "tel:+15550111"}

	for _, target := range valid {
		if !validTarget(target) {
			t.Errorf("validTarget(%q) = false, want true", target)
		}
	}
	for _, target := range invalid {
		if validTarget(target) {
			t.Errorf("validTarget(%q) = true, want false", target)
		}
	}
}
