package symbols

import (
	"os"
	"path/filepath"
	"testing"

	"pricemirror/internal/domain"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "symbols.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func equal(a, b []domain.Symbol) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSanitize(t *testing.T) {
	tests := map[string]string{
		"BRK.B":    "BRK-B",
		"  aapl  ": "aapl",
		"BF..B":    "BF-B",
		"^GSPC":    "-GSPC",
		"":         "",
	}
	for in, want := range tests {
		if got := Sanitize(in); got != want {
			t.Errorf("Sanitize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestReadFile(t *testing.T) {
	path := writeFile(t, "aapl\n\nBRK.B, Berkshire\n  msft  \n")
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	want := []domain.Symbol{"AAPL", "BRK-B", "MSFT"}
	if !equal(got, want) {
		t.Errorf("ReadFile = %v, want %v", got, want)
	}
}

func TestReadFileMissing(t *testing.T) {
	if _, err := ReadFile(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestResolveOrder(t *testing.T) {
	path := writeFile(t, "IBM\n")

	got, _ := Resolve([]string{"tsla"}, path, []string{"GE"})
	if !equal(got, []domain.Symbol{"TSLA"}) {
		t.Errorf("args should win, got %v", got)
	}

	got, _ = Resolve(nil, path, []string{"GE"})
	if !equal(got, []domain.Symbol{"IBM"}) {
		t.Errorf("file should win over config, got %v", got)
	}

	got, _ = Resolve(nil, "", []string{"ge"})
	if !equal(got, []domain.Symbol{"GE"}) {
		t.Errorf("config should win over default, got %v", got)
	}

	got, _ = Resolve(nil, "", nil)
	if len(got) != len(Default) || got[0] != "ITOT" {
		t.Errorf("default list = %v", got)
	}
}
