package services

import (
	"errors"
	"testing"
)

func TestParseReturnPath(t *testing.T) {
	tests := []struct {
		name      string
		next      string
		wantErr   bool
		community string
		join      bool
	}{
		{"join intent", "/communities/c2?intent=join", false, "c2", true},
		{"community page", "/communities/c2", false, "c2", false},
		{"other intent", "/communities/c2?intent=view", false, "c2", false},
		{"home page", "/communities/c2/home", false, "", false},
		{"root", "/", false, "", false},
		{"empty", "", true, "", false},
		{"absolute url", "https://evil.example.com/communities/c2", true, "", false},
		{"protocol relative", "//evil.example.com", true, "", false},
		{"backslash", "/\\evil.example.com", true, "", false},
		{"relative", "communities/c2", true, "", false},
		{"javascript", "javascript:alert(1)", true, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rp, err := ParseReturnPath(tt.next)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsafeReturnPath) {
					t.Errorf("ParseReturnPath(%q) error = %v, expected ErrUnsafeReturnPath", tt.next, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseReturnPath(%q) error = %v", tt.next, err)
			}
			if rp.CommunityID != tt.community {
				t.Errorf("CommunityID = %q, expected %q", rp.CommunityID, tt.community)
			}
			if rp.JoinIntent != tt.join {
				t.Errorf("JoinIntent = %v, expected %v", rp.JoinIntent, tt.join)
			}
		})
	}
}

func TestSignupURL_RoundTrip(t *testing.T) {
	got := SignupURL("/auth/signup", JoinReturnPath("c2"))
	expected := "/auth/signup?next=%2Fcommunities%2Fc2%3Fintent%3Djoin"
	if got != expected {
		t.Errorf("SignupURL() = %q, expected %q", got, expected)
	}

	rp, err := ParseReturnPath(JoinReturnPath("c2"))
	if err != nil || rp.CommunityID != "c2" || !rp.JoinIntent {
		t.Errorf("ParseReturnPath(JoinReturnPath) = (%+v, %v)", rp, err)
	}
}

func TestCommunityPaths(t *testing.T) {
	if got := CommunityPath("c2"); got != "/communities/c2" {
		t.Errorf("CommunityPath() = %q", got)
	}
	if got := CommunityHomePath("c2"); got != "/communities/c2/home" {
		t.Errorf("CommunityHomePath() = %q", got)
	}
}
