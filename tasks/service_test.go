package tasks_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/taskflow/taskflow-go/apiclient"
	"github.com/taskflow/taskflow-go/credentials"
	"github.com/taskflow/taskflow-go/internal/utils"
	"github.com/taskflow/taskflow-go/tasks"
)

const testTaskID = "0b7a9c1e-1111-2222-3333-444455556666"

type wireCall struct {
	method string
	path   string
	query  string
	body   map[string]any
	form   map[string]string
	files  map[string]string // filename -> content
}

func fixture(t *testing.T, respond http.HandlerFunc) (*tasks.Service, *[]wireCall) {
	t.Helper()

	var calls []wireCall
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := wireCall{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery}
		contentType := r.Header.Get("Content-Type")
		switch {
		case strings.HasPrefix(contentType, "multipart/form-data"):
			require.NoError(t, r.ParseMultipartForm(1<<20))
			call.form = map[string]string{}
			for key := range r.MultipartForm.Value {
				call.form[key] = r.FormValue(key)
			}
			call.files = map[string]string{}
			for _, headers := range r.MultipartForm.File {
				for _, header := range headers {
					file, err := header.Open()
					require.NoError(t, err)
					content, err := io.ReadAll(file)
					require.NoError(t, err)
					file.Close()
					call.files[header.Filename] = string(content)
				}
			}
		default:
			if data, _ := io.ReadAll(r.Body); len(data) > 0 {
				_ = json.Unmarshal(data, &call.body)
			}
		}
		calls = append(calls, call)
		respond(w, r)
	}))
	t.Cleanup(server.Close)

	store := credentials.NewMemoryStore()
	refresher, err := apiclient.NewRefresher(server.URL, store)
	require.NoError(t, err)
	client, err := apiclient.New(server.URL, store, refresher)
	require.NoError(t, err)
	service, err := tasks.NewService(client)
	require.NoError(t, err)
	return service, &calls
}

func respondTask(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(tasks.Task{ID: testTaskID, Title: "Ship it", Status: tasks.StatusTodo})
}

func TestListBuildsFilterQuery(t *testing.T) {
	service, calls := fixture(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]tasks.Task{})
	})

	_, err := service.List(context.Background(), tasks.Filter{
		TeamID:      4,
		Status:      tasks.StatusInProgress,
		DueDateFrom: "2026-01-01",
	})
	require.NoError(t, err)

	call := (*calls)[0]
	require.Equal(t, "/api/tasks/tasks/", call.path)
	require.Contains(t, call.query, "team_id=4")
	require.Contains(t, call.query, "status=IN_PROGRESS")
	require.Contains(t, call.query, "due_date_from=2026-01-01")
	require.NotContains(t, call.query, "assigned_to_user_id")
}

func TestListWithEmptyFilterSendsNoQuery(t *testing.T) {
	service, calls := fixture(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]tasks.Task{})
	})

	_, err := service.List(context.Background(), tasks.Filter{})
	require.NoError(t, err)
	require.Empty(t, (*calls)[0].query)
}

func TestCreateOmitsUnsetOptionalFields(t *testing.T) {
	service, calls := fixture(t, respondTask)

	task, err := service.Create(context.Background(), tasks.CreateParams{
		Title:            "Ship it",
		Description:      "now",
		AssignedToUserID: 7,
		TeamID:           4,
		DueDate:          "2026-09-15",
	})
	require.NoError(t, err)
	require.Equal(t, testTaskID, task.ID)

	// Unset priority and status stay out of the payload so the backend
	// applies its own defaults.
	call := (*calls)[0]
	require.Equal(t, "POST", call.method)
	require.Equal(t, "/api/tasks/tasks/create/", call.path)
	require.NotContains(t, call.body, "priority")
	require.NotContains(t, call.body, "status")
	require.EqualValues(t, 7, call.body["assigned_to_user_id"])
}

func TestCreateSendsExplicitPriorityAndStatus(t *testing.T) {
	service, calls := fixture(t, respondTask)

	_, err := service.Create(context.Background(), tasks.CreateParams{
		Title:            "Ship it",
		Description:      "now",
		AssignedToUserID: 7,
		TeamID:           4,
		Priority:         tasks.PriorityHigh,
		Status:           tasks.StatusInProgress,
		DueDate:          "2026-09-15",
	})
	require.NoError(t, err)

	call := (*calls)[0]
	require.Equal(t, "HIGH", call.body["priority"])
	require.Equal(t, "IN_PROGRESS", call.body["status"])
}

func TestCreateWithFilesSendsMultipart(t *testing.T) {
	service, calls := fixture(t, respondTask)

	_, err := service.CreateWithFiles(context.Background(), tasks.CreateParams{
		Title:            "Ship it",
		Description:      "now",
		AssignedToUserID: 7,
		TeamID:           4,
		Priority:         tasks.PriorityHigh,
		DueDate:          "2026-09-15",
	}, []tasks.File{
		{Name: "spec.pdf", Content: strings.NewReader("pdf-bytes")},
		{Name: "notes.txt", Content: strings.NewReader("some notes")},
	})
	require.NoError(t, err)

	call := (*calls)[0]
	require.Equal(t, "Ship it", call.form["title"])
	require.Equal(t, "HIGH", call.form["priority"])
	require.Equal(t, "TODO", call.form["status"])
	require.Equal(t, "7", call.form["assigned_to_user_id"])
	require.Equal(t, "pdf-bytes", call.files["spec.pdf"])
	require.Equal(t, "some notes", call.files["notes.txt"])
}

func TestUpdateSendsOnlySetFields(t *testing.T) {
	service, calls := fixture(t, respondTask)

	_, err := service.Update(context.Background(), testTaskID, tasks.UpdateParams{
		Title:  utils.Ptr("New title"),
		Status: utils.Ptr(tasks.StatusDone),
	})
	require.NoError(t, err)

	call := (*calls)[0]
	require.Equal(t, "PUT", call.method)
	require.Equal(t, "/api/tasks/tasks/"+testTaskID+"/update/", call.path)
	require.Equal(t, "New title", call.body["title"])
	require.Equal(t, "DONE", call.body["status"])
	_, hasDescription := call.body["description"]
	require.False(t, hasDescription)
	_, hasPriority := call.body["priority"]
	require.False(t, hasPriority)
}

func TestSetStatus(t *testing.T) {
	service, calls := fixture(t, respondTask)

	_, err := service.SetStatus(context.Background(), testTaskID, tasks.StatusInProgress)
	require.NoError(t, err)

	call := (*calls)[0]
	require.Equal(t, "PATCH", call.method)
	require.Equal(t, "/api/tasks/tasks/"+testTaskID+"/status/", call.path)
	require.Equal(t, "IN_PROGRESS", call.body["status"])
}

func TestAddCommentWithoutFilesIsJSON(t *testing.T) {
	service, calls := fixture(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(tasks.Comment{ID: "c1", Text: "hello"})
	})

	comment, err := service.AddComment(context.Background(), testTaskID, "hello")
	require.NoError(t, err)
	require.Equal(t, "c1", comment.ID)

	call := (*calls)[0]
	require.Equal(t, "/api/tasks/tasks/"+testTaskID+"/comments/add/", call.path)
	require.Equal(t, "hello", call.body["text"])
	require.Nil(t, call.form)
}

func TestAddCommentWithFilesIsMultipart(t *testing.T) {
	service, calls := fixture(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(tasks.Comment{ID: "c1"})
	})

	_, err := service.AddComment(context.Background(), testTaskID, "see attached",
		tasks.File{Name: "log.txt", Content: strings.NewReader("trace")})
	require.NoError(t, err)

	call := (*calls)[0]
	require.Equal(t, "see attached", call.form["text"])
	require.Equal(t, "trace", call.files["log.txt"])
}

func TestFileURLDownloadFlag(t *testing.T) {
	require.Equal(t,
		"/api/tasks/tasks/t1/files/f1/",
		tasks.FileURL("t1", "f1", false))
	require.Equal(t,
		"/api/tasks/tasks/t1/files/f1/?download=true",
		tasks.FileURL("t1", "f1", true))
	require.Equal(t,
		"/api/tasks/tasks/t1/comments/c1/files/f1/?download=true",
		tasks.CommentFileURL("t1", "c1", "f1", true))
}

func TestDownloadFileStreamsBody(t *testing.T) {
	service, calls := fixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png-bytes"))
	})

	body, contentType, err := service.DownloadFile(context.Background(), testTaskID, "f1", false)
	require.NoError(t, err)
	defer body.Close()

	require.Equal(t, "image/png", contentType)
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	require.Equal(t, "png-bytes", string(data))
	require.Equal(t, "/api/tasks/tasks/"+testTaskID+"/files/f1/", (*calls)[0].path)
}

func TestDeleteRoutes(t *testing.T) {
	service, calls := fixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, service.Delete(context.Background(), testTaskID))
	require.NoError(t, service.DeleteComment(context.Background(), testTaskID, "c1"))
	require.NoError(t, service.DeleteFile(context.Background(), testTaskID, "f1"))
	require.NoError(t, service.DeleteCommentFile(context.Background(), testTaskID, "c1", "f1"))

	require.Equal(t, "/api/tasks/tasks/"+testTaskID+"/delete/", (*calls)[0].path)
	require.Equal(t, "/api/tasks/tasks/"+testTaskID+"/comments/c1/delete/", (*calls)[1].path)
	require.Equal(t, "/api/tasks/tasks/"+testTaskID+"/files/f1/delete/", (*calls)[2].path)
	require.Equal(t, "/api/tasks/tasks/"+testTaskID+"/comments/c1/files/f1/delete/", (*calls)[3].path)
	for _, call := range *calls {
		require.Equal(t, "DELETE", call.method)
	}
}

func TestDetailsIncludesThreadAndFiles(t *testing.T) {
	service, _ := fixture(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(tasks.TaskDetails{
			Task: tasks.Task{ID: testTaskID, Title: "Ship it"},
			Comments: []tasks.Comment{
				{ID: "c1", Text: "first", Files: []tasks.CommentFile{{ID: "cf1", CommentID: "c1"}}},
			},
			Files: []tasks.TaskFile{{ID: "f1", TaskID: testTaskID}},
		})
	})

	details, err := service.Details(context.Background(), testTaskID)
	require.NoError(t, err)
	require.Len(t, details.Comments, 1)
	require.Len(t, details.Comments[0].Files, 1)
	require.Len(t, details.Files, 1)
}
