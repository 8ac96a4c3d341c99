package services

import (
	"errors"
	"testing"

	"github.com/ochairo/reloaded/internal/domain/entities"
)

func TestParseInstallIntent(t *testing.T) {
	tests := []struct {
		name    string
		uri     string
		want    string
		wantErr bool
	}{
		{
			name: "market scheme",
			uri:  "market://details?id=com.example.app",
			want: "com.example.app",
		},
		{
			name: "play store https",
			uri:  "https://play.google.com/store/apps/details?id=org.sample.tool&hl=en",
			want: "org.sample.tool",
		},
		{
			name: "play store host case insensitive",
			uri:  "https://PLAY.GOOGLE.COM/store/apps/details?id=a.b",
			want: "a.b",
		},
		{
			name:    "missing id",
			uri:     "market://details",
			wantErr: true,
		},
		{
			name:    "other host",
			uri:     "https://example.com/details?id=com.example.app",
			wantErr: true,
		},
		{
			name:    "empty",
			uri:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseInstallIntent(tt.uri)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseInstallIntent(%q) expected error, got %q", tt.uri, got)
				}
				if !errors.Is(err, entities.ErrInvalid) {
					t.Errorf("error should wrap ErrInvalid, got: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseInstallIntent(%q) error = %v", tt.uri, err)
			}
			if got != tt.want {
				t.Errorf("ParseInstallIntent(%q) = %q, want %q", tt.uri, got, tt.want)
			}
		})
	}
}
