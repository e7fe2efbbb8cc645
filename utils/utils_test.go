package utils

import (
	"bytes"
	"errors"
	"testing"
)

func TestDataURLRoundTrip(t *testing.T) {
	data := []byte{0x89, 'P', 'N', 'G', 0, 1, 2}
	url := EncodeDataURL("image/png", data)
	if url[:22] != "data:image/png;base64," {
		t.Errorf("unexpected prefix %s", url[:22])
	}
	mime, got, err := DecodeDataURL(url)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if mime != "image/png" || !bytes.Equal(got, data) {
		t.Errorf("round trip mismatch: %s %v", mime, got)
	}
}

func TestDecodeDataURLBareBase64(t *testing.T) {
	mime, got, err := DecodeDataURL("aGVsbG8=")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if mime != "image/png" || string(got) != "hello" {
		t.Errorf("unexpected %s %q", mime, got)
	}
}

func TestDecodeDataURLInvalid(t *testing.T) {
	for _, s := range []string{"data:image/png,plain", "data:image/png;base64", "data:;base64,!!!"} {
		if _, _, err := DecodeDataURL(s); !errors.Is(err, ErrInvalidDataURL) {
			t.Errorf("%q: expected ErrInvalidDataURL, got %v", s, err)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"  my photo  ":     "my_photo",
		`a/b\c?d%e*f:g|h"`: "a-b-c-d-e-f-g-h-",
		"<x>":              "-x-",
		"   ":              "export",
	}
	for in, want := range cases {
		if got := SanitizeFilename(in); got != want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDefaultExportName(t *testing.T) {
	cases := map[string]string{
		"cat.png":          "cat-transparent",
		"dir/dog.tar.jpeg": "dog-transparent",
		"noext":            "noext-transparent",
		".hidden":          "image-transparent",
		"":                 "image-transparent",
	}
	for in, want := range cases {
		if got := DefaultExportName(in); got != want {
			t.Errorf("DefaultExportName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBytesMD5(t *testing.T) {
	if got := BytesMD5([]byte("abc")); got != "900150983cd24fb0d6963f7d28e17f72" {
		t.Errorf("unexpected md5 %s", got)
	}
}

func TestGenerateIDUnique(t *testing.T) {
	if GenerateID() == GenerateID() {
		t.Error("expected unique ids")
	}
}
