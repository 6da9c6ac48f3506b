package services

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"612345678", "34612345678"},
		{"712345678", "34712345678"},
		{"612 345 678", "34612345678"},
		{"+34 612-345-678", "34612345678"},
		{"34612345678", "34612345678"},
		{"912345678", "912345678"}, // landline, left as is
		{"5551234", "5551234"},
	}
	for _, tt := range tests {
		if got := NormalizePhone(tt.in); got != tt.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGreenAPISendSuccess(t *testing.T) {
	var gotPath, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.Write([]byte(`{"idMessage":"ABC123"}`))
	}))
	defer server.Close()

	g := NewGreenAPIGateway(server.URL, "token", "7107")
	result := g.SendText("612345678", "hola")

	if !result.Success {
		t.Fatalf("expected success, got error %q", result.ErrorMessage)
	}
	if result.ExternalID != "ABC123" {
		t.Errorf("expected provider id ABC123, got %q", result.ExternalID)
	}
	if gotPath != "/waInstance7107/sendMessage/token" {
		t.Errorf("unexpected endpoint path %q", gotPath)
	}
	if !strings.Contains(gotBody, `"chatId":"34612345678@c.us"`) {
		t.Errorf("request body missing normalized chat id: %s", gotBody)
	}
}

func TestGreenAPISendHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	g := NewGreenAPIGateway(server.URL, "token", "7107")
	result := g.SendText("612345678", "hola")

	if result.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(result.ErrorMessage, "429") {
		t.Errorf("error should carry the HTTP status: %q", result.ErrorMessage)
	}
}

func TestGreenAPISendMissingMessageID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"something":"else"}`))
	}))
	defer server.Close()

	g := NewGreenAPIGateway(server.URL, "token", "7107")
	result := g.SendText("612345678", "hola")

	if result.Success {
		t.Fatal("a response without idMessage is a failed send")
	}
}

func TestGreenAPIUnconfigured(t *testing.T) {
	g := NewGreenAPIGateway("", "", "")
	result := g.SendText("612345678", "hola")
	if result.Success {
		t.Fatal("unconfigured gateway must not report success")
	}

	ok, detail := g.CheckStatus()
	if ok {
		t.Fatalf("unconfigured gateway reported healthy: %s", detail)
	}
}

func TestGreenAPICheckStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/waInstance7107/getStateInstance/token" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"stateInstance":"authorized"}`))
	}))
	defer server.Close()

	g := NewGreenAPIGateway(server.URL, "token", "7107")
	ok, detail := g.CheckStatus()
	if !ok {
		t.Fatalf("expected authorized instance, got %q", detail)
	}
}
