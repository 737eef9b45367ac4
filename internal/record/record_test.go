package record

import (
	"errors"
	"strings"
	"testing"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		key, value string
		want       string
	}{
		{"a", "1", "a,1"},
		{"name", "John Doe", "name,John Doe"},
		{"empty", "", "empty,"},
		{"", "v", ",v"},
		{"unicode", "héllo wörld", "unicode,héllo wörld"},
	}
	for _, tt := range tests {
		got, err := Encode(tt.key, tt.value)
		if err != nil {
			t.Fatalf("Encode(%q, %q): %v", tt.key, tt.value, err)
		}
		if got != tt.want {
			t.Errorf("Encode(%q, %q) = %q, want %q", tt.key, tt.value, got, tt.want)
		}
	}
}

func TestEncodeRejectsForbiddenCharacters(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"comma in key", "a,b", "v"},
		{"comma in value", "k", "1,2"},
		{"newline in key", "k\n", "v"},
		{"newline in value", "k", "line1\nline2"},
		{"carriage return in value", "k", "v\r"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.key, tt.value)
			if !errors.Is(err, ErrInvalidField) {
				t.Fatalf("Encode(%q, %q) = %q, %v; want ErrInvalidField", tt.key, tt.value, got, err)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		line string
		want Record
	}{
		{"x,10", Record{"x", "10"}},
		{"key,", Record{"key", ""}},
		{",value", Record{"", "value"}},
		{"k,with spaces", Record{"k", "with spaces"}},
	}
	for _, tt := range tests {
		got, err := Decode(tt.line)
		if err != nil {
			t.Fatalf("Decode(%q): %v", tt.line, err)
		}
		if got != tt.want {
			t.Errorf("Decode(%q) = %+v, want %+v", tt.line, got, tt.want)
		}
	}
}

func TestDecodeMalformed(t *testing.T) {
	for _, line := range []string{"no-separator", "a,b,c", ",,", "x,1,"} {
		_, err := Decode(line)
		if !errors.Is(err, ErrMalformed) {
			t.Fatalf("Decode(%q): got %v, want ErrMalformed", line, err)
		}
		var me *MalformedError
		if !errors.As(err, &me) {
			t.Fatalf("Decode(%q): error is not *MalformedError", line)
		}
		if me.Line != line {
			t.Errorf("MalformedError.Line = %q, want %q", me.Line, line)
		}
		if !strings.Contains(err.Error(), line) {
			t.Errorf("error %q should name the offending line", err)
		}
	}
}

func TestEncodeDecodeAgree(t *testing.T) {
	line, err := Encode("color", "blue")
	if err != nil {
		t.Fatal(err)
	}
	rec, err := Decode(line)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Key != "color" || rec.Value != "blue" {
		t.Errorf("Decode(Encode(color, blue)) = %+v", rec)
	}
}

func TestIsBlank(t *testing.T) {
	for _, line := range []string{"", " ", "\t"} {
		if !IsBlank(line) {
			t.Errorf("IsBlank(%q) = false, want true", line)
		}
	}
	if IsBlank("a,1") {
		t.Error(`IsBlank("a,1") = true, want false`)
	}
}
