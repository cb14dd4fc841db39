package core

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestReadImportText(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{"plain", []byte("a,b\n1,2"), "a,b\n1,2"},
		{"BOM stripped", append([]byte{0xEF, 0xBB, 0xBF}, "a,b"...), "a,b"},
		{"only BOM", []byte{0xEF, 0xBB, 0xBF}, ""},
		{"partial BOM kept", []byte{0xEF, 0xBB, 'a'}, "??a"},
		{"empty", []byte{}, ""},
		{"short input", []byte("a"), "a"},
		{"invalid byte replaced", []byte{'h', 'e', 0x80, 'l', 'o'}, "he?lo"},
		{"valid multibyte kept", []byte("Kepler-☉"), "Kepler-☉"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadImportText(bytes.NewReader(tt.input), 0)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReadImportText_SizeLimit(t *testing.T) {
	t.Run("at limit", func(t *testing.T) {
		got, err := ReadImportText(strings.NewReader("12345"), 5)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "12345" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("over limit", func(t *testing.T) {
		_, err := ReadImportText(strings.NewReader("123456"), 5)
		if !errors.Is(err, ErrFileTooLarge) {
			t.Errorf("expected ErrFileTooLarge, got %v", err)
		}
	})

	t.Run("BOM does not count", func(t *testing.T) {
		input := append([]byte{0xEF, 0xBB, 0xBF}, "12345"...)
		if _, err := ReadImportText(bytes.NewReader(input), 5); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("disk on fire")
}

func TestReadImportText_ReadError(t *testing.T) {
	_, err := ReadImportText(failingReader{}, 0)
	if err == nil {
		t.Fatal("expected error")
	}
	if got := MapError(err).Code; got != "FILE004" {
		t.Errorf("MapError code = %q, want FILE004", got)
	}
}
