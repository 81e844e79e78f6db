//go:build darwin

package notify

import (
	"strings"
	"testing"
)

func TestEscapeAppleScript(t *testing.T) {
	escaped := escapeAppleScript(`He said "hello" and \n stuff`)
	expected := `He said \"hello\" and \\n stuff`
	if escaped != expected {
		t.Errorf("escapeAppleScript: expected %q, got %q", expected, escaped)
	}
}

func TestOSAScript_EscapesContent(t *testing.T) {
	script := osaScript(Notification{
		Title: `Critical threat: "Port Scan"`,
		Body:  `payload \ with backslash`,
	})
	if !strings.Contains(script, `subtitle "Critical threat: \"Port Scan\""`) {
		t.Errorf("title not escaped: %s", script)
	}
	if !strings.Contains(script, `payload \\ with backslash`) {
		t.Errorf("body not escaped: %s", script)
	}
}

func TestOSAScriptNotifier_MissingTool(t *testing.T) {
	n := NewOSAScriptNotifier(nil)
	n.lookPath = func(string) (string, error) { return "", errNotFound }

	if n.Current() != PermissionDenied {
		t.Errorf("Current: want denied without osascript, got %s", n.Current())
	}
	p, err := n.Request(t.Context())
	if err != nil || p != PermissionDenied {
		t.Errorf("Request: want (denied, nil), got (%s, %v)", p, err)
	}
}
