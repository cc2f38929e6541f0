package api

import (
	"html/template"
	"time"

	"yatube/pkg/paginator"
	"yatube/pkg/storage"
)

// LogEntry is the access-log record shipped to Kafka by the logging
// middleware.
type LogEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	IP         string    `json:"ip"`
	StatusCode int       `json:"status_code"`
	RequestID  string    `json:"request_id"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	Duration   float64   `json:"duration"`
	Service    string    `json:"service"`
}

// postListData feeds the shared "post_list" template: one page of
// posts plus the path pagination links point at.
type postListData struct {
	Path string
	Page paginator.Page[storage.Post]
}

type indexData struct {
	Viewer *storage.User
	Posts  template.HTML
}

type groupData struct {
	Viewer *storage.User
	Group  storage.Group
	List   postListData
}

type profileData struct {
	Viewer    *storage.User
	Profile   storage.User
	PostCount int
	Following bool
	IsSelf    bool
	List      postListData
}

type feedData struct {
	Viewer *storage.User
	List   postListData
}

type detailData struct {
	Viewer       *storage.User
	Post         storage.Post
	Group        *storage.Group
	Comments     []storage.Comment
	CanEdit      bool
	CommentError string
}

type postFormData struct {
	Viewer  *storage.User
	Form    postForm
	Groups  []storage.Group
	Editing bool
	PostID  string
}

type authData struct {
	Viewer   *storage.User
	Username string
	Email    string
	Next     string
	Errors   map[string]string
}
