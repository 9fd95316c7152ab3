package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
)

// Comment is attached to one Question or one Answer. The target is not
// stored on the comment; it is only known at creation time.
type Comment struct {
	ID              string    `json:"_id"             bson:"_id"`
	Text            string    `json:"text"            bson:"text"`
	CommentBy       string    `json:"commentBy"       bson:"commentBy"`
	CommentDateTime time.Time `json:"commentDateTime" bson:"commentDateTime"`
}

// TargetKind tags a CommentTarget.
type TargetKind string

const (
	TargetQuestion TargetKind = "question"
	TargetAnswer   TargetKind = "answer"
)

// CommentTarget identifies what a comment is attached to. Parse it once at
// the entry point with ParseCommentTarget and switch on Kind afterwards.
type CommentTarget struct {
	Kind TargetKind
	ID   string
}

// ErrInvalidTargetID is returned by ParseCommentTarget for a malformed ID.
var ErrInvalidTargetID = errors.New("invalid target id")

// ParseCommentTarget validates the (id, type) pair of a comment request.
func ParseCommentTarget(id, kind string) (CommentTarget, error) {
	k := TargetKind(kind)
	if k != TargetQuestion && k != TargetAnswer {
		return CommentTarget{}, fmt.Errorf("unknown comment target type %q", kind)
	}
	if !IsValidID(id) {
		return CommentTarget{}, ErrInvalidTargetID
	}
	return CommentTarget{Kind: k, ID: id}, nil
}

// IsValidID reports whether s is a well-formed entity ID.
func IsValidID(s string) bool {
	_, err := xid.FromString(s)
	return err == nil
}
