package gcp

import (
	"testing"
	"time"
)

func storeWith(cfg StorageConfig) *VideoStore {
	return &VideoStore{cfg: cfg, now: func() time.Time { return time.Date(2025, 3, 9, 23, 0, 0, 0, time.UTC) }}
}

func TestObjectKey(t *testing.T) {
	s := storeWith(StorageConfig{KeyPrefix: "videos"})
	if got, want := s.objectKey("agentic-video-1.mp4"), "videos/2025/03/09/agentic-video-1.mp4"; got != want {
		t.Fatalf("objectKey: want=%q got=%q", want, got)
	}
	if got, want := s.objectKey("../../etc/x.mp4"), "videos/2025/03/09/x.mp4"; got != want {
		t.Fatalf("objectKey traversal: want=%q got=%q", want, got)
	}
}

func TestPublicURL(t *testing.T) {
	cases := []struct {
		name string
		cfg  StorageConfig
		want string
	}{
		{"gcs default", StorageConfig{Mode: StorageModeGCS, Bucket: "b"}, "https://storage.googleapis.com/b/videos/a.mp4"},
		{"cdn", StorageConfig{Mode: StorageModeGCS, Bucket: "b", CDNDomain: "cdn.example.com"}, "https://cdn.example.com/videos/a.mp4"},
		{"public base", StorageConfig{Mode: StorageModeGCS, Bucket: "b", PublicBaseURL: "http://localhost:4443"}, "http://localhost:4443/b/videos/a.mp4"},
		{"emulator", StorageConfig{Mode: StorageModeGCSEmulator, Bucket: "b", EmulatorHost: "http://fake-gcs:4443"}, "http://fake-gcs:4443/storage/v1/b/b/o/videos%2Fa.mp4?alt=media"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := storeWith(tc.cfg).PublicURL("/videos/a.mp4"); got != tc.want {
				t.Fatalf("PublicURL: want=%q got=%q", tc.want, got)
			}
		})
	}
}
