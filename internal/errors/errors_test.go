package errors

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{"config error", "E101", "Invalid config file", CategoryConfig},
		{"server error", "E200", "Could not start server", CategoryServer},
		{"publish error", "E600", "No bucket configured", CategoryPublish},
		{"unknown error code", "E999", "Unknown error", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestRetainError_Error(t *testing.T) {
	err := New("E100")
	if got, want := err.Error(), "E100: Config file not found"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	err = Newf(CategoryCLI, "bad flag %q", "--x")
	if got, want := err.Error(), `bad flag "--x"`; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	cause := errors.New("connection refused")
	err = New("E601").Wrap(cause)
	if got, want := err.Error(), "E601: Upload failed: connection refused"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "E500") != nil {
		t.Error("FromError(nil) should be nil")
	}

	re := New("E100")
	if FromError(re, "E500") != re {
		t.Error("FromError should return an existing RetainError unchanged")
	}

	plain := errors.New("boom")
	got := FromError(plain, "E500")
	if got.Code != "E500" || got.Wrapped != plain {
		t.Errorf("FromError = %+v, want code E500 wrapping cause", got)
	}
}

func writeConfig(t *testing.T) (string, []byte) {
	t.Helper()
	content := []byte("{\n  \"server\": {\n    \"port\": 8080,\n    \"title\": ,\n  }\n}\n")
	path := filepath.Join(t.TempDir(), "retain.json")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}
	return path, content
}

func TestWithLocation(t *testing.T) {
	path, _ := writeConfig(t)

	err := New("E101").WithLocation(path, 4, 14)
	if err.Location == nil {
		t.Fatal("Location is nil")
	}
	if err.Location.Line != 4 || err.Location.Column != 14 {
		t.Errorf("Location = %v, want line 4 column 14", err.Location)
	}
	if len(err.Context) != 5 {
		t.Fatalf("Expected 5 context lines, got %d", len(err.Context))
	}
	if !strings.Contains(err.Context[2], `"title": ,`) {
		t.Errorf("Expected context line 4 to hold the title, got %q", err.Context[3])
	}
}

func TestWithOffset(t *testing.T) {
	path, content := writeConfig(t)

	var syntax *json.SyntaxError
	if err := json.Unmarshal(content, new(map[string]any)); !errors.As(err, &syntax) {
		t.Fatalf("Expected a syntax error, got %v", err)
	}

	err := New("E101").WithOffset(path, content, syntax.Offset)
	if err.Location.Line != 4 {
		t.Errorf("Expected line 4, got %d", err.Location.Line)
	}
	if err.Location.Column < 14 {
		t.Errorf("Expected column past the colon, got %d", err.Location.Column)
	}
}

func TestLocation_String(t *testing.T) {
	tests := []struct {
		loc  *Location
		want string
	}{
		{&Location{File: "retain.json", Line: 3, Column: 7}, "retain.json:3:7"},
		{&Location{File: "retain.json", Line: 3}, "retain.json:3"},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := tt.loc.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	path, _ := writeConfig(t)
	err := New("E101").
		WithLocation(path, 4, 14).
		WithSuggestion("Remove the dangling comma").
		Wrap(errors.New("invalid character ','"))

	formatted := err.Format()
	for _, want := range []string{
		"ERROR E101: Invalid config file",
		path + ":4:14",
		"→    4 │",
		"^",
		"Hint: Remove the dangling comma",
		"Cause: invalid character ','",
	} {
		if !strings.Contains(formatted, want) {
			t.Errorf("Format should contain %q, got:\n%s", want, formatted)
		}
	}
	if strings.Contains(formatted, "\033[") {
		t.Error("Format should not contain ANSI codes when colors are disabled")
	}
}

func TestFormatCompact(t *testing.T) {
	err := New("E102").WithLocation("retain.json", 10, 5)
	want := "retain.json:10:5: E102: Invalid config value"
	if got := err.FormatCompact(); got != want {
		t.Errorf("FormatCompact() = %q, want %q", got, want)
	}
}

func TestFormatJSON(t *testing.T) {
	err := New("E102").WithLocation("retain.json", 10, 5).WithSuggestion("use a positive value")

	var out map[string]any
	if e := json.Unmarshal([]byte(err.FormatJSON()), &out); e != nil {
		t.Fatalf("FormatJSON produced invalid JSON: %v", e)
	}
	if out["code"] != "E102" {
		t.Errorf("Expected code E102, got %v", out["code"])
	}
	if out["category"] != "config" {
		t.Errorf("Expected category config, got %v", out["category"])
	}
	loc, ok := out["location"].(map[string]any)
	if !ok || loc["file"] != "retain.json" || loc["line"] != float64(10) {
		t.Errorf("Unexpected location %v", out["location"])
	}
}

func TestPrint(t *testing.T) {
	DisableColors()
	defer EnableColors()

	var b strings.Builder
	Print(&b, errors.New("plain failure"))
	if !strings.Contains(b.String(), "ERROR: plain failure") {
		t.Errorf("Unexpected output %q", b.String())
	}

	b.Reset()
	Print(&b, New("E200"))
	if !strings.Contains(b.String(), "ERROR E200: Could not start server") {
		t.Errorf("Unexpected output %q", b.String())
	}
}

func TestRegistry(t *testing.T) {
	codes := GetAllCodes()
	if len(codes) == 0 {
		t.Fatal("GetAllCodes() should return codes")
	}
	for i := 1; i < len(codes); i++ {
		if codes[i-1] >= codes[i] {
			t.Fatalf("codes not sorted: %v", codes)
		}
	}

	Register("E999", ErrorTemplate{Category: CategoryCLI, Message: "Custom"})
	defer delete(registry, "E999")
	tmpl, ok := GetTemplate("E999")
	if !ok || tmpl.Message != "Custom" {
		t.Errorf("GetTemplate(E999) = %+v, %v", tmpl, ok)
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText("the quick brown fox jumps over the lazy dog", 10)
	for _, l := range lines {
		if len(l) > 10 {
			t.Errorf("line %q exceeds width", l)
		}
	}
	if strings.Join(lines, " ") != "the quick brown fox jumps over the lazy dog" {
		t.Errorf("wrapText lost words: %v", lines)
	}
	if wrapText("", 10) != nil {
		t.Error("wrapText of empty text should be nil")
	}
}
