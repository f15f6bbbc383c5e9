package models

import "time"

type Forum struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Category      string    `json:"category"`
	PostCount     int       `json:"post_count"`
	CreatedBy     string    `json:"created_by"`
	CreatedByName string    `json:"created_by_name"`
	CreatedAt     time.Time `json:"created_at"`
}

type ForumPost struct {
	ID        string    `json:"id"`
	ForumID   string    `json:"forum_id"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	UserRole  string    `json:"user_role"`
	Content   string    `json:"content"`
	ParentID  *string   `json:"parent_id,omitempty"`
	ImageURL  *string   `json:"image_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Question struct {
	ID          string    `json:"id"`
	PatientID   string    `json:"-"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Condition   *string   `json:"condition,omitempty"`
	IsAnonymous bool      `json:"is_anonymous"`
	AnswerCount int       `json:"answer_count"`
	CreatedAt   time.Time `json:"created_at"`
}

type Answer struct {
	ID                  string    `json:"id"`
	QuestionID          string    `json:"question_id"`
	ResearcherID        string    `json:"researcher_id"`
	ResearcherName      string    `json:"researcher_name"`
	ResearcherSpecialty *string   `json:"researcher_specialty,omitempty"`
	Content             string    `json:"content"`
	Likes               int       `json:"likes"`
	Dislikes            int       `json:"dislikes"`
	ParentID            *string   `json:"parent_id,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}

// ForumMembership lets a user post in a forum. Specialty is "Patient" for
// patients and the researcher's first two specialties otherwise.
type ForumMembership struct {
	ID          string    `json:"id"`
	ForumID     string    `json:"forum_id"`
	ForumName   string    `json:"forum_name"`
	UserID      string    `json:"user_id"`
	UserName    string    `json:"user_name"`
	Specialty   string    `json:"specialty"`
	IsModerator bool      `json:"is_moderator"`
	JoinedAt    time.Time `json:"joined_at"`
}

// Answer vote types
const (
	VoteLike    = "like"
	VoteDislike = "dislike"
)

// VoteTally is an answer's counts after a vote, with the caller's standing
// vote or "" when the vote was withdrawn
type VoteTally struct {
	AnswerID string `json:"answer_id"`
	Vote     string `json:"vote"`
	Likes    int    `json:"likes"`
	Dislikes int    `json:"dislikes"`
}
