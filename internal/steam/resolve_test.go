package steam

import (
	"context"
	"errors"
	"net/http"
	"testing"
)

const vanityPath = "/ISteamUser/ResolveVanityURL/v0001"

func newVanityEnv(t *testing.T) *testEnv {
	t.Helper()
	env := newTestEnv(t, nil)
	env.steam.handle(vanityPath, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("vanityurl") {
		case "Pho3niX90":
			_, _ = w.Write([]byte(`{"response":{"steamid":"76561198007433923","success":1}}`))
		default:
			_, _ = w.Write([]byte(`{"response":{"success":42,"message":"No match"}}`))
		}
	})
	return env
}

func TestResolveID_CanonicalNeedsNoNetwork(t *testing.T) {
	env := newVanityEnv(t)

	for _, id := range []string{pho3niX90, "76561199044451528", " 76561198007433923 "} {
		got, err := env.client.ResolveID(context.Background(), id)
		if err != nil {
			t.Fatalf("ResolveID(%q) error = %v", id, err)
		}
		if got == "" || got[0] == ' ' {
			t.Errorf("ResolveID(%q) = %q", id, got)
		}
	}
	if got := env.steam.requests(); got != 0 {
		t.Errorf("expected no network calls, got %d", got)
	}
}

func TestResolveID_EquivalentForms(t *testing.T) {
	env := newVanityEnv(t)

	for _, id := range []string{"Pho3niX90", pho3niX90v2, pho3niX90v3, pho3niX90} {
		got, err := env.client.ResolveID(context.Background(), id)
		if err != nil {
			t.Fatalf("ResolveID(%q) error = %v", id, err)
		}
		if got != pho3niX90 {
			t.Errorf("ResolveID(%q) = %q, want %q", id, got, pho3niX90)
		}
	}
	if got := env.steam.count(vanityPath); got != 1 {
		t.Errorf("only the vanity name should hit the network, got %d calls", got)
	}
}

func TestResolveID_SecondAccount(t *testing.T) {
	env := newVanityEnv(t)

	for _, id := range []string{"STEAM_0:0:542092900", "[U:1:1084185800]"} {
		got, err := env.client.ResolveID(context.Background(), id)
		if err != nil {
			t.Fatalf("ResolveID(%q) error = %v", id, err)
		}
		if got != "76561199044451528" {
			t.Errorf("ResolveID(%q) = %q", id, got)
		}
	}
}

func TestResolveID_Errors(t *testing.T) {
	env := newVanityEnv(t)

	if _, err := env.client.ResolveID(context.Background(), ""); !errors.Is(err, ErrIDNotProvided) {
		t.Errorf("expected ErrIDNotProvided, got %v", err)
	}
	if _, err := env.client.ResolveID(context.Background(), "   "); !errors.Is(err, ErrIDNotProvided) {
		t.Errorf("expected ErrIDNotProvided for blank id, got %v", err)
	}
	if _, err := env.client.ResolveID(context.Background(), "null/*-/-*"); !errors.Is(err, ErrIDNotFound) {
		t.Errorf("expected ErrIDNotFound, got %v", err)
	}
}

func TestResolveID_MalformedResponse(t *testing.T) {
	env := newTestEnv(t, nil)
	env.steam.ok(vanityPath, `{"response":{"success":1}}`)

	if _, err := env.client.ResolveID(context.Background(), "someone"); !errors.Is(err, ErrIDNotFound) {
		t.Errorf("expected ErrIDNotFound for missing steamid, got %v", err)
	}
}

func TestResolveID_PropagatesGatewayErrors(t *testing.T) {
	env := newTestEnv(t, nil)
	env.steam.reply(vanityPath, http.StatusTooManyRequests, "")

	_, err := env.client.ResolveID(context.Background(), "someone")
	if !errors.Is(err, ErrTooManyRequests) {
		t.Errorf("expected ErrTooManyRequests, got %v", err)
	}
}
