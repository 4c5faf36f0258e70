// Package tasks wraps the TaskFlow task service endpoints: task boards,
// per-task comment threads, and file attachments.
package tasks

import "github.com/taskflow/taskflow-go/apiclient"

// Status is a task's board column.
type Status string

const (
	StatusTodo       Status = "TODO"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
)

// Priority is a task's urgency level.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// Task is one task board entry.
type Task struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Status           Status   `json:"status"`
	Priority         Priority `json:"priority"`
	DueDate          string   `json:"due_date"`
	CreatedByUserID  int64    `json:"created_by_user_id"`
	AssignedToUserID int64    `json:"assigned_to_user_id"`
	TeamID           int64    `json:"team_id"`
	CreatedAt        string   `json:"created_at"`
}

// Comment is one entry in a task's comment thread.
type Comment struct {
	ID              string        `json:"id"`
	Text            string        `json:"text"`
	TaskID          string        `json:"task_id"`
	CreatedByUserID int64         `json:"created_by_user_id"`
	CreatedAt       string        `json:"created_at"`
	Files           []CommentFile `json:"files,omitempty"`
}

// TaskFile is a file attached directly to a task.
type TaskFile struct {
	ID               string `json:"id"`
	File             string `json:"file"`
	TaskID           string `json:"task_id"`
	UploadedByUserID int64  `json:"uploaded_by_user_id"`
	UploadedAt       string `json:"uploaded_at"`
}

// CommentFile is a file attached to a comment.
type CommentFile struct {
	ID               string `json:"id"`
	File             string `json:"file"`
	CommentID        string `json:"comment_id"`
	UploadedByUserID int64  `json:"uploaded_by_user_id"`
	UploadedAt       string `json:"uploaded_at"`
}

// TaskDetails is a task together with its comments and attachments.
type TaskDetails struct {
	Task
	Comments []Comment  `json:"comments"`
	Files    []TaskFile `json:"files"`
}

// File aliases the client upload part type so callers only import this
// package for task operations.
type File = apiclient.File
