package logger

import "testing"

func TestInit_ValidLevel(t *testing.T) {
	if err := Init("debug", true); err != nil {
		t.Fatalf("Init should accept debug level, got: %v", err)
	}
	if !Log.Desugar().Core().Enabled(-1) {
		t.Error("Expected debug level to be enabled")
	}
	Sync()
}

func TestInit_InvalidLevel(t *testing.T) {
	before := Log
	if err := Init("loud", false); err == nil {
		t.Fatal("Expected an error for an unknown level")
	}
	if Log != before {
		t.Error("Log should not be replaced when Init fails")
	}
}
