// Package testutil provides helper functions for testing remedy components
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/remedy-kit/remedy/domain"
)

// TempWorkspace creates a temporary workspace populated with the given files
// (workspace-relative path -> content) and returns its root.
func TempWorkspace(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		WriteWorkspaceFile(t, root, rel, content)
	}
	return root
}

// WriteWorkspaceFile writes one file under root, creating parent directories
func WriteWorkspaceFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", rel, err)
	}
	return path
}

// ReadWorkspaceFile reads one file under root, failing the test on error
func ReadWorkspaceFile(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, rel))
	if err != nil {
		t.Fatalf("Failed to read %s: %v", rel, err)
	}
	return string(data)
}

// MakeIncident builds a well-formed incident for a workspace file
func MakeIncident(root, rel, message string, line int) domain.Incident {
	return domain.Incident{
		URI:        domain.FileURI(filepath.Join(root, rel)),
		Message:    message,
		LineNumber: line,
	}
}

// MakeRuleSet builds a ruleset with a single violation
func MakeRuleSet(name, violationID string, incidents ...domain.Incident) domain.RuleSet {
	return domain.RuleSet{
		Name: name,
		Violations: map[string]domain.Violation{
			violationID: {
				Description: violationID,
				Incidents:   incidents,
			},
		},
	}
}

// AssertNoError fails the test if err is not nil
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("Expected error but got nil")
	}
}

// AssertEqual fails the test if expected != actual
func AssertEqual(t *testing.T, expected, actual any) {
	t.Helper()
	if expected != actual {
		t.Errorf("Expected %v, got %v", expected, actual)
	}
}

// AssertTrue fails the test if condition is false
func AssertTrue(t *testing.T, condition bool, msg string) {
	t.Helper()
	if !condition {
		t.Error(msg)
	}
}

// AssertFalse fails the test if condition is true
func AssertFalse(t *testing.T, condition bool, msg string) {
	t.Helper()
	if condition {
		t.Error(msg)
	}
}

// AssertNotNil fails the test if value is nil
func AssertNotNil(t *testing.T, value any) {
	t.Helper()
	if value == nil {
		t.Error("Expected non-nil value")
	}
}

// AssertNil fails the test if value is not nil
func AssertNil(t *testing.T, value any) {
	t.Helper()
	if value != nil {
		t.Errorf("Expected nil, got %v", value)
	}
}

// AssertErrorCode fails the test unless err is a DomainError with the code
func AssertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("Expected error with code %s but got nil", code)
	}
	if !domain.IsErrorCode(err, code) {
		t.Errorf("Expected error code %s, got %v", code, err)
	}
}
