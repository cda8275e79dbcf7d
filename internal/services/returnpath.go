package services

import (
	"errors"
	"net/url"
	"strings"
)

// ErrUnsafeReturnPath is returned for anything that could lead off-site.
var ErrUnsafeReturnPath = errors.New("return path must be a relative path")

const joinIntent = "join"

// ReturnPath is a parsed `next` parameter carried through sign-up.
type ReturnPath struct {
	Path        string
	CommunityID string
	JoinIntent  bool
}

// CommunityPath is the public page of a community.
func CommunityPath(communityID string) string {
	return "/communities/" + url.PathEscape(communityID)
}

// CommunityHomePath is the member view of a community.
func CommunityHomePath(communityID string) string {
	return CommunityPath(communityID) + "/home"
}

// JoinReturnPath encodes the intent to join communityID after authentication.
func JoinReturnPath(communityID string) string {
	return CommunityPath(communityID) + "?intent=" + joinIntent
}

// SignupURL appends next to the sign-up page.
func SignupURL(signupPath, next string) string {
	return signupPath + "?next=" + url.QueryEscape(next)
}

// ParseReturnPath accepts only same-site relative paths such as
// "/communities/c1?intent=join".
func ParseReturnPath(next string) (ReturnPath, error) {
	next = strings.TrimSpace(next)
	if next == "" || !strings.HasPrefix(next, "/") ||
		strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return ReturnPath{}, ErrUnsafeReturnPath
	}

	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return ReturnPath{}, ErrUnsafeReturnPath
	}

	rp := ReturnPath{Path: u.RequestURI()}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) == 2 && parts[0] == "communities" && parts[1] != "" {
		rp.CommunityID = parts[1]
		rp.JoinIntent = u.Query().Get("intent") == joinIntent
	}
	return rp, nil
}
