package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestSetupSuccess(t *testing.T) {
	orig := installAccessRule
	installAccessRule = func(ctx context.Context) error { return nil }
	t.Cleanup(func() { installAccessRule = orig })

	var stdout, stderr bytes.Buffer
	code := runSetup(nil, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "Log out and back in") {
		t.Errorf("output = %q", stdout.String())
	}
}

func TestSetupFailure(t *testing.T) {
	orig := installAccessRule
	installAccessRule = func(ctx context.Context) error {
		return errors.New("pkexec: authentication failed")
	}
	t.Cleanup(func() { installAccessRule = orig })

	var stdout, stderr bytes.Buffer
	code := runSetup(nil, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "authentication failed") {
		t.Errorf("stderr = %q", stderr.String())
	}
}
