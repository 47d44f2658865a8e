package domain

import (
	"encoding/json"
	"testing"
)

func TestCaptionOrDefault(t *testing.T) {
	tests := []struct {
		caption  string
		expected string
	}{
		{"", DefaultCaption},
		{"   ", DefaultCaption},
		{"Sunset", "Sunset"},
	}

	for _, tt := range tests {
		p := RemotePost{Caption: tt.caption}
		if got := p.CaptionOrDefault(); got != tt.expected {
			t.Errorf("CaptionOrDefault(%q) = %q, want %q", tt.caption, got, tt.expected)
		}
	}
}

func TestCountsDefaultToZero(t *testing.T) {
	var p RemotePost
	if err := json.Unmarshal([]byte(`{"id":"1","media_type":"IMAGE"}`), &p); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if p.Likes() != "0" {
		t.Errorf("Expected likes '0', got '%s'", p.Likes())
	}
	if p.Comments() != "0" {
		t.Errorf("Expected comments '0', got '%s'", p.Comments())
	}

	p.LikeCount = 12
	p.CommentsCount = 3
	if p.Likes() != "12" || p.Comments() != "3" {
		t.Errorf("Expected 12/3, got %s/%s", p.Likes(), p.Comments())
	}
}
