package assets

import (
	"errors"
	"testing"
)

func TestRawURL(t *testing.T) {
	tests := []struct {
		name string
		repo string
		path string
		want string
	}{
		{
			name: "github repository",
			repo: "https://github.com/Ditectrev/AWS-SAA-C03-Practice-Tests",
			path: "images/SAA-C03/images/question2.png",
			want: "https://raw.githubusercontent.com/Ditectrev/AWS-SAA-C03-Practice-Tests/main/images/question2.png",
		},
		{
			name: "trailing slash",
			repo: "https://github.com/owner/repo/",
			path: "images/SAA-C03/images/a/b.jpg",
			want: "https://raw.githubusercontent.com/owner/repo/main/images/a/b.jpg",
		},
		{
			name: "space in file name",
			repo: "https://github.com/owner/repo",
			path: "images/SAA-C03/images/a b.png",
			want: "https://raw.githubusercontent.com/owner/repo/main/images/a%20b.png",
		},
		{
			name: "non github host keeps host",
			repo: "http://127.0.0.1:8080/owner/repo",
			path: "images/SAA-C03/images/x.png",
			want: "http://127.0.0.1:8080/owner/repo/main/images/x.png",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RawURL(tt.repo, "SAA-C03", tt.path)
			if err != nil {
				t.Fatalf("RawURL() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("RawURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRawURL_Invalid(t *testing.T) {
	for _, repo := range []string{"", "not a url", "ftp://github.com/x", "://bad"} {
		if _, err := RawURL(repo, "SAA-C03", "images/SAA-C03/images/x.png"); !errors.Is(err, ErrInvalidURL) {
			t.Errorf("RawURL(%q) error = %v, want ErrInvalidURL", repo, err)
		}
	}
}

func TestLocalPath(t *testing.T) {
	if got := LocalPath("AZ-900", "images/AZ-900/images/q.png"); got != "images/q.png" {
		t.Errorf("LocalPath() = %q", got)
	}
}
