package model

import "time"

// Answer belongs to exactly one Question. The back-reference lives in
// Question.Answers, not here.
type Answer struct {
	ID          string    `json:"_id"         bson:"_id"`
	Text        string    `json:"text"        bson:"text"`
	AnsBy       string    `json:"ansBy"       bson:"ansBy"`
	AnsDateTime time.Time `json:"ansDateTime" bson:"ansDateTime"`
	Comments    []string  `json:"comments"    bson:"comments"`
}

// PopulatedAnswer is an Answer with its comments resolved.
type PopulatedAnswer struct {
	ID          string    `json:"_id"`
	Text        string    `json:"text"`
	AnsBy       string    `json:"ansBy"`
	AnsDateTime time.Time `json:"ansDateTime"`
	Comments    []Comment `json:"comments"`
}
