package tasks

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"

	"github.com/pkg/errors"
	"github.com/taskflow/taskflow-go/apiclient"
)

// Filter narrows the task list. Zero values are omitted from the query.
type Filter struct {
	TeamID           int64
	AssignedToUserID int64
	Status           Status
	DueDateFrom      string
	DueDateTo        string
}

func (f Filter) values() url.Values {
	params := url.Values{}
	if f.TeamID != 0 {
		params.Set("team_id", strconv.FormatInt(f.TeamID, 10))
	}
	if f.AssignedToUserID != 0 {
		params.Set("assigned_to_user_id", strconv.FormatInt(f.AssignedToUserID, 10))
	}
	if f.Status != "" {
		params.Set("status", string(f.Status))
	}
	if f.DueDateFrom != "" {
		params.Set("due_date_from", f.DueDateFrom)
	}
	if f.DueDateTo != "" {
		params.Set("due_date_to", f.DueDateTo)
	}
	return params
}

// CreateParams are the fields accepted by the task create endpoint.
type CreateParams struct {
	Title            string
	Description      string
	AssignedToUserID int64
	TeamID           int64
	Priority         Priority // Defaults to MEDIUM
	DueDate          string
	Status           Status // Defaults to TODO
}

// UpdateParams are the fields accepted by the task update endpoint. Nil
// fields are left unchanged by the backend.
type UpdateParams struct {
	Title            *string
	Description      *string
	AssignedToUserID *int64
	Status           *Status
	Priority         *Priority
	DueDate          *string
}

func (p UpdateParams) payload() map[string]any {
	payload := map[string]any{}
	if p.Title != nil {
		payload["title"] = *p.Title
	}
	if p.Description != nil {
		payload["description"] = *p.Description
	}
	if p.AssignedToUserID != nil {
		payload["assigned_to_user_id"] = *p.AssignedToUserID
	}
	if p.Status != nil {
		payload["status"] = *p.Status
	}
	if p.Priority != nil {
		payload["priority"] = *p.Priority
	}
	if p.DueDate != nil {
		payload["due_date"] = *p.DueDate
	}
	return payload
}

// Service talks to the task backend through the shared authenticated client.
type Service struct {
	client *apiclient.Client
}

func NewService(client *apiclient.Client) (*Service, error) {
	if client == nil {
		return nil, errors.New("[tasks.NewService] client is required")
	}
	return &Service{client: client}, nil
}

// List returns tasks matching the filter.
func (s *Service) List(ctx context.Context, filter Filter) ([]Task, error) {
	var list []Task
	path := apiclient.Query("/api/tasks/tasks/", filter.values())
	if err := s.client.Get(ctx, path, &list); err != nil {
		return nil, errors.Wrap(err, "[Service.List]")
	}
	return list, nil
}

// Create creates a task without attachments.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Task, error) {
	var task Task
	if err := s.client.Post(ctx, "/api/tasks/tasks/create/", createPayload(params), &task); err != nil {
		return nil, errors.Wrap(err, "[Service.Create]")
	}
	return &task, nil
}

// CreateWithFiles creates a task and uploads its initial attachments in one
// multipart request.
func (s *Service) CreateWithFiles(ctx context.Context, params CreateParams, files []File) (*Task, error) {
	fields := map[string]string{
		"title":               params.Title,
		"description":         params.Description,
		"assigned_to_user_id": strconv.FormatInt(params.AssignedToUserID, 10),
		"team_id":             strconv.FormatInt(params.TeamID, 10),
		"priority":            string(defaultPriority(params.Priority)),
		"due_date":            params.DueDate,
		"status":              string(defaultStatus(params.Status)),
	}
	var task Task
	if err := s.client.PostMultipart(ctx, "/api/tasks/tasks/create/", fields, files, &task); err != nil {
		return nil, errors.Wrap(err, "[Service.CreateWithFiles]")
	}
	return &task, nil
}

// Details returns a task with its comments and attachments.
func (s *Service) Details(ctx context.Context, taskID string) (*TaskDetails, error) {
	var details TaskDetails
	path := fmt.Sprintf("/api/tasks/tasks/%s/", taskID)
	if err := s.client.Get(ctx, path, &details); err != nil {
		return nil, errors.Wrap(err, "[Service.Details]")
	}
	return &details, nil
}

// Update applies a partial update and returns the updated task.
func (s *Service) Update(ctx context.Context, taskID string, params UpdateParams) (*Task, error) {
	var task Task
	path := fmt.Sprintf("/api/tasks/tasks/%s/update/", taskID)
	if err := s.client.Put(ctx, path, params.payload(), &task); err != nil {
		return nil, errors.Wrap(err, "[Service.Update]")
	}
	return &task, nil
}

// Delete removes a task.
func (s *Service) Delete(ctx context.Context, taskID string) error {
	path := fmt.Sprintf("/api/tasks/tasks/%s/delete/", taskID)
	if err := s.client.Delete(ctx, path); err != nil {
		return errors.Wrap(err, "[Service.Delete]")
	}
	return nil
}

// SetStatus moves a task to another board column.
func (s *Service) SetStatus(ctx context.Context, taskID string, status Status) (*Task, error) {
	var task Task
	path := fmt.Sprintf("/api/tasks/tasks/%s/status/", taskID)
	if err := s.client.Patch(ctx, path, map[string]Status{"status": status}, &task); err != nil {
		return nil, errors.Wrap(err, "[Service.SetStatus]")
	}
	return &task, nil
}

// AddComment posts a comment, with optional file attachments sent as
// multipart in the same request.
func (s *Service) AddComment(ctx context.Context, taskID, text string, files ...File) (*Comment, error) {
	path := fmt.Sprintf("/api/tasks/tasks/%s/comments/add/", taskID)
	var comment Comment
	if len(files) == 0 {
		if err := s.client.Post(ctx, path, map[string]string{"text": text}, &comment); err != nil {
			return nil, errors.Wrap(err, "[Service.AddComment]")
		}
		return &comment, nil
	}
	if err := s.client.PostMultipart(ctx, path, map[string]string{"text": text}, files, &comment); err != nil {
		return nil, errors.Wrap(err, "[Service.AddComment]")
	}
	return &comment, nil
}

// ListComments returns a task's comment thread.
func (s *Service) ListComments(ctx context.Context, taskID string) ([]Comment, error) {
	var list []Comment
	path := fmt.Sprintf("/api/tasks/tasks/%s/comments/", taskID)
	if err := s.client.Get(ctx, path, &list); err != nil {
		return nil, errors.Wrap(err, "[Service.ListComments]")
	}
	return list, nil
}

// DeleteComment removes one comment.
func (s *Service) DeleteComment(ctx context.Context, taskID, commentID string) error {
	path := fmt.Sprintf("/api/tasks/tasks/%s/comments/%s/delete/", taskID, commentID)
	if err := s.client.Delete(ctx, path); err != nil {
		return errors.Wrap(err, "[Service.DeleteComment]")
	}
	return nil
}

// AttachFiles uploads attachments to a task.
func (s *Service) AttachFiles(ctx context.Context, taskID string, files []File) ([]TaskFile, error) {
	var attached []TaskFile
	path := fmt.Sprintf("/api/tasks/tasks/%s/files/attach/", taskID)
	if err := s.client.PostMultipart(ctx, path, nil, files, &attached); err != nil {
		return nil, errors.Wrap(err, "[Service.AttachFiles]")
	}
	return attached, nil
}

// ListFiles returns a task's attachments.
func (s *Service) ListFiles(ctx context.Context, taskID string) ([]TaskFile, error) {
	var list []TaskFile
	path := fmt.Sprintf("/api/tasks/tasks/%s/files/", taskID)
	if err := s.client.Get(ctx, path, &list); err != nil {
		return nil, errors.Wrap(err, "[Service.ListFiles]")
	}
	return list, nil
}

// FileURL returns the path serving a task file. download selects the
// attachment disposition instead of inline viewing.
func FileURL(taskID, fileID string, download bool) string {
	return fmt.Sprintf("/api/tasks/tasks/%s/files/%s/%s", taskID, fileID, downloadFlag(download))
}

// DownloadFile streams a task file. The caller owns closing the reader.
func (s *Service) DownloadFile(ctx context.Context, taskID, fileID string, download bool) (io.ReadCloser, string, error) {
	body, contentType, err := s.client.Download(ctx, FileURL(taskID, fileID, download))
	if err != nil {
		return nil, "", errors.Wrap(err, "[Service.DownloadFile]")
	}
	return body, contentType, nil
}

// DeleteFile removes a task attachment.
func (s *Service) DeleteFile(ctx context.Context, taskID, fileID string) error {
	path := fmt.Sprintf("/api/tasks/tasks/%s/files/%s/delete/", taskID, fileID)
	if err := s.client.Delete(ctx, path); err != nil {
		return errors.Wrap(err, "[Service.DeleteFile]")
	}
	return nil
}

// AttachCommentFiles uploads attachments to an existing comment.
func (s *Service) AttachCommentFiles(ctx context.Context, taskID, commentID string, files []File) ([]CommentFile, error) {
	var attached []CommentFile
	path := fmt.Sprintf("/api/tasks/tasks/%s/comments/%s/files/attach/", taskID, commentID)
	if err := s.client.PostMultipart(ctx, path, nil, files, &attached); err != nil {
		return nil, errors.Wrap(err, "[Service.AttachCommentFiles]")
	}
	return attached, nil
}

// CommentFileURL returns the path serving a comment file.
func CommentFileURL(taskID, commentID, fileID string, download bool) string {
	return fmt.Sprintf("/api/tasks/tasks/%s/comments/%s/files/%s/%s", taskID, commentID, fileID, downloadFlag(download))
}

// DownloadCommentFile streams a comment file. The caller owns closing the
// reader.
func (s *Service) DownloadCommentFile(ctx context.Context, taskID, commentID, fileID string, download bool) (io.ReadCloser, string, error) {
	body, contentType, err := s.client.Download(ctx, CommentFileURL(taskID, commentID, fileID, download))
	if err != nil {
		return nil, "", errors.Wrap(err, "[Service.DownloadCommentFile]")
	}
	return body, contentType, nil
}

// DeleteCommentFile removes a comment attachment.
func (s *Service) DeleteCommentFile(ctx context.Context, taskID, commentID, fileID string) error {
	path := fmt.Sprintf("/api/tasks/tasks/%s/comments/%s/files/%s/delete/", taskID, commentID, fileID)
	if err := s.client.Delete(ctx, path); err != nil {
		return errors.Wrap(err, "[Service.DeleteCommentFile]")
	}
	return nil
}

// createPayload leaves unset priority and status out of the request so the
// backend applies its own defaults. Multipart creation has no omission
// mechanism, so CreateWithFiles fills the defaults client-side instead.
func createPayload(params CreateParams) map[string]any {
	payload := map[string]any{
		"title":               params.Title,
		"description":         params.Description,
		"assigned_to_user_id": params.AssignedToUserID,
		"team_id":             params.TeamID,
		"due_date":            params.DueDate,
	}
	if params.Priority != "" {
		payload["priority"] = params.Priority
	}
	if params.Status != "" {
		payload["status"] = params.Status
	}
	return payload
}

func defaultPriority(p Priority) Priority {
	if p == "" {
		return PriorityMedium
	}
	return p
}

func defaultStatus(s Status) Status {
	if s == "" {
		return StatusTodo
	}
	return s
}

func downloadFlag(download bool) string {
	if download {
		return "?download=true"
	}
	return ""
}
