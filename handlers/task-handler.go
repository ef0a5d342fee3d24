package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"workhub-manager/server/models"
	"workhub-manager/server/services"
	"workhub-manager/server/utils"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TaskHandler struct {
	Tasks     *services.TaskService
	Dashboard *services.DashboardService
	Uploader  *utils.Uploader
}

func NewTaskHandler(tasks *services.TaskService, dashboard *services.DashboardService, uploader *utils.Uploader) *TaskHandler {
	return &TaskHandler{Tasks: tasks, Dashboard: dashboard, Uploader: uploader}
}

// taskForm is the wire shape of create and update bodies. Pointer fields
// distinguish omitted values from empty ones.
type taskForm struct {
	Title    *string   `json:"title"`
	Team     *[]string `json:"team"`
	Stage    *string   `json:"stage"`
	Date     *string   `json:"date"`
	Priority *string   `json:"priority"`
	Assets   *[]string `json:"assets"`

	uploaded []string
}

// readTaskForm accepts a JSON body or a multipart form with uploaded assets.
func (h *TaskHandler) readTaskForm(w http.ResponseWriter, r *http.Request) (*taskForm, error) {
	form := &taskForm{}
	if !utils.IsMultipart(r) {
		if err := decodeJSON(r, form); err != nil {
			return nil, err
		}
		return form, nil
	}

	if err := h.Uploader.ParseForm(w, r); err != nil {
		if errors.Is(err, utils.ErrBodyTooLarge) || errors.Is(err, utils.ErrTooManyFiles) {
			return nil, services.Validation("%v", err)
		}
		return nil, services.Validation("Invalid multipart form: %v", err)
	}
	values := r.MultipartForm.Value
	form.Title = formValue(values, "title")
	form.Stage = formValue(values, "stage")
	form.Date = formValue(values, "date")
	form.Priority = formValue(values, "priority")
	form.Team = formList(values, "team")
	form.Assets = formList(values, "assets")

	uploaded, err := h.Uploader.SaveAssets(r.MultipartForm)
	if errors.Is(err, utils.ErrFileTooLarge) {
		return nil, services.Validation("%v", err)
	}
	if err != nil {
		return nil, err
	}
	form.uploaded = uploaded
	return form, nil
}

func formValue(values map[string][]string, key string) *string {
	if v, ok := values[key]; ok && len(v) > 0 {
		return &v[0]
	}
	return nil
}

// formList reads a list sent as repeated fields, as key[] fields, as a JSON
// array or as a comma separated string.
func formList(values map[string][]string, key string) *[]string {
	raw, ok := values[key]
	if !ok {
		raw, ok = values[key+"[]"]
	}
	if !ok {
		return nil
	}

	list := []string{}
	if len(raw) == 1 {
		single := strings.TrimSpace(raw[0])
		if strings.HasPrefix(single, "[") {
			if err := json.Unmarshal([]byte(single), &list); err == nil {
				return &list
			}
		}
		raw = strings.Split(single, ",")
	}
	for _, v := range raw {
		if v = strings.TrimSpace(v); v != "" {
			list = append(list, v)
		}
	}
	return &list
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (f *taskForm) createRequest() models.CreateTaskRequest {
	req := models.CreateTaskRequest{
		Title:    deref(f.Title),
		Stage:    deref(f.Stage),
		Date:     deref(f.Date),
		Priority: deref(f.Priority),
	}
	if f.Team != nil {
		req.Team = *f.Team
	}
	if f.Assets != nil {
		req.Assets = *f.Assets
	}
	req.Assets = append(req.Assets, f.uploaded...)
	return req
}

// update validates the present fields and builds a partial update.
func (f *taskForm) update() (models.TaskUpdate, error) {
	u := models.TaskUpdate{Title: f.Title, Uploaded: f.uploaded}
	if f.Date != nil {
		date, err := models.ParseDate(*f.Date)
		if err != nil {
			return u, services.Validation("%v", err)
		}
		u.Date = &date
	}
	if f.Stage != nil {
		stage, err := models.ParseStage(*f.Stage)
		if err != nil {
			return u, services.Validation("%v", err)
		}
		u.Stage = &stage
	}
	if f.Priority != nil {
		priority, err := models.ParsePriority(*f.Priority)
		if err != nil {
			return u, services.Validation("%v", err)
		}
		u.Priority = &priority
	}
	if f.Team != nil {
		team, err := models.ParseIDs(*f.Team)
		if err != nil {
			return u, services.Validation("team: %v", err)
		}
		u.Team, u.HasTeam = team, true
	}
	if f.Assets != nil {
		u.Assets, u.HasAssets = *f.Assets, true
	}
	return u, nil
}

func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	form, err := h.readTaskForm(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	task, err := h.Tasks.CreateTask(r.Context(), identity(r), form.createRequest())
	if err != nil {
		h.Uploader.Remove(form.uploaded)
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"status":  true,
		"task":    task,
		"message": "Task created successfully.",
	})
}

func (h *TaskHandler) DuplicateTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	task, err := h.Tasks.DuplicateTask(r.Context(), identity(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"status":  true,
		"task":    task,
		"message": "Task duplicated successfully.",
	})
}

func (h *TaskHandler) PostActivity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req models.ActivityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.Tasks.PostActivity(r.Context(), identity(r), id, req); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Activity posted successfully.")
}

func (h *TaskHandler) DashboardStatistics(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Dashboard.Statistics(r.Context(), identity(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"status": true, "summary": summary})
}

func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	tasks, err := h.Tasks.ListTasks(r.Context(), query.Get("stage"), query.Get("isTrashed") == "true")
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"status": true, "tasks": tasks})
}

func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	task, err := h.Tasks.GetTask(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"status": true, "task": task})
}

func (h *TaskHandler) CreateSubTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req models.SubTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	sub, err := h.Tasks.CreateSubTask(r.Context(), id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"status":  true,
		"message": "SubTask added successfully.",
		"subTask": sub,
	})
}

func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	form, err := h.readTaskForm(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	update, err := form.update()
	if err != nil {
		h.Uploader.Remove(form.uploaded)
		writeError(w, r, err)
		return
	}

	task, err := h.Tasks.UpdateTask(r.Context(), id, update)
	if err != nil {
		h.Uploader.Remove(form.uploaded)
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"status":  true,
		"message": "Task updated successfully.",
		"task":    task,
	})
}

func (h *TaskHandler) ChangeStage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		Stage string `json:"stage"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.Tasks.ChangeStage(r.Context(), id, req.Stage); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Task stage changed successfully.")
}

func (h *TaskHandler) TrashTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.Tasks.TrashTask(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Task trashed successfully.")
}

func (h *TaskHandler) DeleteRestoreTask(w http.ResponseWriter, r *http.Request) {
	var id *primitive.ObjectID
	if _, ok := mux.Vars(r)["id"]; ok {
		parsed, err := pathID(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		id = &parsed
	}

	action := models.TrashAction(r.URL.Query().Get("actionType"))
	if err := h.Tasks.DeleteRestoreTask(r.Context(), id, action); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Operation performed successfully.")
}
