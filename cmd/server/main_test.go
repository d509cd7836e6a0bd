package main

import (
	"context"
	"testing"

	"github.com/atinyakov/HanziDeck/internal/config"
	"github.com/atinyakov/HanziDeck/internal/media"
)

func TestNewMediaStore(t *testing.T) {
	tests := []struct {
		name      string
		backend   string
		wantLocal bool
		wantErr   bool
	}{
		{name: "explicit local", backend: "local", wantLocal: true},
		{name: "unset backend", backend: "", wantLocal: true},
		{name: "unknown backend", backend: "s3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := &config.Options{MediaBackend: tt.backend, MediaDir: t.TempDir(), MediaBaseURL: "/uploads"}
			store, closeStore, err := newMediaStore(context.Background(), opts)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("newMediaStore: %v", err)
			}
			defer closeStore()

			_, isLocal := store.(*media.LocalStore)
			if isLocal != tt.wantLocal {
				t.Errorf("store is %T", store)
			}
			// The router mounts the media directory under the same condition.
			if usesLocalMedia(tt.backend) != isLocal {
				t.Errorf("usesLocalMedia(%q) = %v, store is %T", tt.backend, usesLocalMedia(tt.backend), store)
			}
		})
	}
}

func TestUsesLocalMedia(t *testing.T) {
	for backend, want := range map[string]bool{"local": true, "": true, "gcs": false} {
		if got := usesLocalMedia(backend); got != want {
			t.Errorf("usesLocalMedia(%q) = %v; want %v", backend, got, want)
		}
	}
}
