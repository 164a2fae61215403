package cache

import (
	"errors"
	"testing"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid-redis", "redis://localhost:6379", false},
		{"valid-with-db", "redis://localhost:6379/0", false},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseURL() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNew_UnreachableHost(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping unreachable host test in short mode")
	}

	ctx := t.Context()
	_, err := New(ctx, "redis://localhost:59999")
	if err == nil {
		t.Fatal("New() should return error for unreachable host")
	}
}

func TestKey(t *testing.T) {
	if got := Key("course_status", "SAA-C03"); got != "cloudmaster:course_status:SAA-C03" {
		t.Errorf("Key() = %q", got)
	}
}

func TestPattern(t *testing.T) {
	tests := []struct {
		parts []string
		want  string
	}{
		{nil, "cloudmaster:*"},
		{[]string{"course_status"}, "cloudmaster:course_status:*"},
	}
	for _, tt := range tests {
		if got := Pattern(tt.parts...); got != tt.want {
			t.Errorf("Pattern(%v) = %q, want %q", tt.parts, got, tt.want)
		}
	}
}

func TestParseURL_Empty(t *testing.T) {
	if _, err := ParseURL(""); !errors.Is(err, errEmptyURL) {
		t.Errorf("ParseURL(\"\") error = %v, want errEmptyURL", err)
	}
}
