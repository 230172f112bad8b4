package crypto

import (
	"strings"
	"testing"
)

func TestCanonicalSortsKeys(t *testing.T) {
	got := Canonical("/trade/api/v2/order", map[string]string{
		"symbol":   "BTCINR",
		"quantity": "2",
		"side":     "buy",
	})
	want := "/trade/api/v2/order?quantity=2&side=buy&symbol=BTCINR"
	if got != want {
		t.Fatalf("Canonical = %q, want %q", got, want)
	}
}

func TestCanonicalEmptyParams(t *testing.T) {
	if got := Canonical("/trade/api/v2/ping", nil); got != "/trade/api/v2/ping?" {
		t.Fatalf("Canonical = %q", got)
	}
}

func TestSignKnownVector(t *testing.T) {
	auth := HMACAuth{Key: "key", Secret: "topsecret"}
	params := StampAt(map[string]string{
		"symbol":   "BTCINR",
		"quantity": "2",
		"side":     "buy",
	}, 1700000000000)

	got := auth.Sign("/trade/api/v2/order", params)
	want := "ea2ba87e885c08c8eec7965705258624d6cce65502c4839f2671e87699e40f78"
	if got != want {
		t.Fatalf("Sign = %s, want %s", got, want)
	}
}

func TestStampAtDoesNotMutateInput(t *testing.T) {
	in := map[string]string{"symbol": "BTCINR"}
	out := StampAt(in, 42)

	if _, ok := in["timestamp"]; ok {
		t.Fatal("StampAt mutated its input map")
	}
	if out["timestamp"] != "42" {
		t.Fatalf("timestamp = %q, want %q", out["timestamp"], "42")
	}
	if out["symbol"] != "BTCINR" {
		t.Fatalf("original params not carried over: %v", out)
	}
}

func TestHeaders(t *testing.T) {
	auth := HMACAuth{Key: "api-key-1", Secret: "s"}
	params := StampAt(nil, 1)

	headers := auth.Headers("/trade/api/v2/orders", params)
	if headers["X-AUTH-APIKEY"] != "api-key-1" {
		t.Errorf("X-AUTH-APIKEY = %q", headers["X-AUTH-APIKEY"])
	}
	if headers["X-AUTH-SIGNATURE"] != auth.Sign("/trade/api/v2/orders", params) {
		t.Error("X-AUTH-SIGNATURE does not match Sign output")
	}
}

func TestStringRedactsCredentials(t *testing.T) {
	auth := HMACAuth{Key: "abcdef123456", Secret: "supersecretvalue"}
	s := auth.String()

	if strings.Contains(s, "abcdef123456") || strings.Contains(s, "supersecretvalue") {
		t.Fatalf("String leaked credentials: %s", s)
	}
	if !strings.Contains(s, "abcd****") || !strings.Contains(s, "supe****") {
		t.Fatalf("String missing redacted prefixes: %s", s)
	}
}
