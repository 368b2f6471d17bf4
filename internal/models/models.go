// Package models holds the domain types shared across the app server packages.
package models

import (
	"errors"
	"strings"
	"time"
)

// ErrUnknownReactionKind indicates a reaction other than like or dislike was supplied.
var ErrUnknownReactionKind = errors.New("unknown reaction kind")

// Video is the metadata stored for an uploaded video, keyed by (Owner, Title).
type Video struct {
	Owner        string
	Title        string
	Location     string
	CreatedAt    time.Time
	FileLocation string
	Visible      bool
	Description  *string
}

// DescriptionText returns the description or the empty string when it is absent.
func (v Video) DescriptionText() string {
	if v.Description == nil {
		return ""
	}
	return *v.Description
}

// ReactionKind is the reaction a user leaves on a video.
type ReactionKind string

const (
	ReactionLike    ReactionKind = "like"
	ReactionDislike ReactionKind = "dislike"
)

// ParseReactionKind validates a client supplied reaction.
func ParseReactionKind(raw string) (ReactionKind, error) {
	switch ReactionKind(strings.ToLower(strings.TrimSpace(raw))) {
	case ReactionLike:
		return ReactionLike, nil
	case ReactionDislike:
		return ReactionDislike, nil
	default:
		return "", ErrUnknownReactionKind
	}
}

// ReactionCounts aggregates the reactions of a single video.
type ReactionCounts struct {
	Like    int `json:"like"`
	Dislike int `json:"dislike"`
}

// Approval is likes minus dislikes.
func (c ReactionCounts) Approval() int {
	return c.Like - c.Dislike
}

// VideoWithReactions pairs a video with its aggregated reactions.
type VideoWithReactions struct {
	Video     Video
	Reactions ReactionCounts
}

// Comment is an append-only comment left on a video.
type Comment struct {
	Author    string
	Owner     string
	Title     string
	Content   string
	Timestamp time.Time
}

// PrivateMessage is a direct message between two friends. HiddenTo lists the
// users that deleted the conversation on their side.
type PrivateMessage struct {
	ID        string
	From      string
	To        string
	Timestamp time.Time
	Content   string
	HiddenTo  []string
}

// HiddenFor reports whether the message was soft-deleted by user.
func (m PrivateMessage) HiddenFor(user string) bool {
	for _, hidden := range m.HiddenTo {
		if hidden == user {
			return true
		}
	}
	return false
}

// Counterparty returns the other participant of the message from user's point of view.
func (m PrivateMessage) Counterparty(user string) string {
	if m.From == user {
		return m.To
	}
	return m.From
}

// Profile is the public identity of a user as returned by the auth server.
type Profile struct {
	Email       string `json:"email"`
	Fullname    string `json:"fullname,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Photo       string `json:"photo,omitempty"`
}

// VideoEntry is a video decorated with its author's profile and reactions.
type VideoEntry struct {
	Author    Profile
	Video     Video
	Reactions ReactionCounts
}

// FriendRequest represents a pending invitation between two users.
type FriendRequest struct {
	ID        string
	From      string
	To        string
	CreatedAt time.Time
}

// APICall captures a single served HTTP request for the statistics recorder.
type APICall struct {
	Path      string
	Method    string
	Status    int
	Timestamp time.Time
	Duration  time.Duration
}
