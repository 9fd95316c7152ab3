package model

import "time"

// Question is the root of the Q&A tree. It owns its answers and its own
// comments; UpVotes and DownVotes are disjoint sets of usernames.
type Question struct {
	ID          string    `json:"_id"         bson:"_id"`
	Title       string    `json:"title"       bson:"title"`
	Text        string    `json:"text"        bson:"text"`
	Tags        []string  `json:"tags"        bson:"tags"`
	AskedBy     string    `json:"askedBy"     bson:"askedBy"`
	AskDateTime time.Time `json:"askDateTime" bson:"askDateTime"`
	Answers     []string  `json:"answers"     bson:"answers"`  // answer IDs
	Comments    []string  `json:"comments"    bson:"comments"` // comment IDs
	Views       []string  `json:"views"       bson:"views"`
	UpVotes     []string  `json:"upVotes"     bson:"upVotes"`
	DownVotes   []string  `json:"downVotes"   bson:"downVotes"`
}

// Normalize replaces nil lists with empty ones.
func (q *Question) Normalize() {
	q.Tags = nonNil(q.Tags)
	q.Answers = nonNil(q.Answers)
	q.Comments = nonNil(q.Comments)
	q.Views = nonNil(q.Views)
	q.UpVotes = nonNil(q.UpVotes)
	q.DownVotes = nonNil(q.DownVotes)
}

// PopulatedQuestion is a Question with its reference lists resolved one
// level down: each answer carries its own resolved comments.
type PopulatedQuestion struct {
	ID          string            `json:"_id"`
	Title       string            `json:"title"`
	Text        string            `json:"text"`
	Tags        []string          `json:"tags"`
	AskedBy     string            `json:"askedBy"`
	AskDateTime time.Time         `json:"askDateTime"`
	Answers     []PopulatedAnswer `json:"answers"`
	Comments    []Comment         `json:"comments"`
	Views       []string          `json:"views"`
	UpVotes     []string          `json:"upVotes"`
	DownVotes   []string          `json:"downVotes"`
}

// VoteDirection selects which vote list a vote targets.
type VoteDirection string

const (
	VoteUp   VoteDirection = "up"
	VoteDown VoteDirection = "down"
)
