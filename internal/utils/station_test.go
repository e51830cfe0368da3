package utils

import "testing"

func TestStationIDRoundTrip(t *testing.T) {
	secret := []byte("test-secret")

	id, err := GenerateStationID(secret)
	if err != nil {
		t.Fatalf("GenerateStationID failed: %v", err)
	}

	if !VerifyStationID(id, secret) {
		t.Error("generated station ID failed verification")
	}
	if VerifyStationID(id, []byte("other-secret")) {
		t.Error("station ID verified with wrong secret")
	}
	if VerifyStationID("not-a-station-id", secret) {
		t.Error("malformed station ID verified")
	}
	if VerifyStationID(id+"0", secret) {
		t.Error("tampered station ID verified")
	}
}
