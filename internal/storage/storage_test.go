package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.Black)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png failed: %v", err)
	}
	return buf.Bytes()
}

func TestCleanKey(t *testing.T) {
	good := map[string]string{
		"delivery/12/1700000000_0.jpg": "delivery/12/1700000000_0.jpg",
		"return//3/./sig.png":          "return/3/sig.png",
	}
	for in, want := range good {
		got, err := CleanKey(in)
		if err != nil || got != want {
			t.Fatalf("CleanKey(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	for _, bad := range []string{"", "/etc/passwd", "../x", "a/../../b", ".."} {
		if _, err := CleanKey(bad); !errors.Is(err, ErrInvalidKey) {
			t.Fatalf("CleanKey(%q) should fail, got %v", bad, err)
		}
	}
}

func TestLocalStoragePutAndDelete(t *testing.T) {
	root := t.TempDir()
	s := NewLocalStorage(root, "/uploads/")

	obj, err := s.Put(context.Background(), "delivery/5/100_0.png", "image/png", bytes.NewReader([]byte("data")))
	if err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if obj.URL != "/uploads/delivery/5/100_0.png" {
		t.Fatalf("unexpected url: %s", obj.URL)
	}
	content, err := os.ReadFile(filepath.Join(root, "delivery", "5", "100_0.png"))
	if err != nil || string(content) != "data" {
		t.Fatalf("unexpected stored content: %q %v", content, err)
	}

	if err := s.Delete(context.Background(), obj.Key); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := s.Delete(context.Background(), obj.Key); err != nil {
		t.Fatalf("deleting a missing object should succeed: %v", err)
	}
}

func TestLocalStoragePutHonoursCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewLocalStorage(t.TempDir(), "").Put(ctx, "a.png", "image/png", strings.NewReader("x"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}

func TestInspectImage(t *testing.T) {
	policy := ImagePolicy{MaxSize: 1 << 20, AllowedTypes: []string{"image/png", "image/jpeg"}, MaxWidth: 64, MaxHeight: 64}

	info, err := InspectImage(pngBytes(t, 32, 16), policy)
	if err != nil {
		t.Fatalf("inspect failed: %v", err)
	}
	if info.Ext != "png" || info.Width != 32 || info.Height != 16 {
		t.Fatalf("unexpected info: %+v", info)
	}

	if _, err := InspectImage(pngBytes(t, 128, 8), policy); !errors.Is(err, ErrImageDimensions) {
		t.Fatalf("expected dimension error, got %v", err)
	}
	if _, err := InspectImage([]byte("plain text, not an image"), policy); !errors.Is(err, ErrImageType) {
		t.Fatalf("expected type error, got %v", err)
	}
	if _, err := InspectImage(nil, policy); !errors.Is(err, ErrImageEmpty) {
		t.Fatalf("expected empty error, got %v", err)
	}
	small := ImagePolicy{MaxSize: 10}
	if _, err := InspectImage(pngBytes(t, 4, 4), small); !errors.Is(err, ErrImageTooLarge) {
		t.Fatalf("expected size error, got %v", err)
	}
}

func TestDecodeDataURL(t *testing.T) {
	raw := pngBytes(t, 2, 2)
	got, err := DecodeDataURL("data:image/png;base64," + base64.StdEncoding.EncodeToString(raw))
	if err != nil || !bytes.Equal(got, raw) {
		t.Fatalf("decode failed: %v", err)
	}
	for _, bad := range []string{"", "image/png;base64,xx", "data:image/png,plain", "data:image/png;base64,@@"} {
		if _, err := DecodeDataURL(bad); !errors.Is(err, ErrDataURL) {
			t.Fatalf("DecodeDataURL(%q) should fail, got %v", bad, err)
		}
	}
}

func TestWebPChunkDimensions(t *testing.T) {
	vp8x := []byte{0, 0, 0, 0, 0x3F, 0x01, 0x00, 0xEF, 0x00, 0x00}
	w, h, err := webpChunkDimensions("VP8X", vp8x)
	if err != nil || w != 320 || h != 240 {
		t.Fatalf("unexpected VP8X dims %dx%d %v", w, h, err)
	}
}
