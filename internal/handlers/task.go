package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/ideaforge/backend/internal/services"
	"github.com/huangang/ideaforge/backend/pkg/response"
)

// TaskHandler serves the Kanban board.
type TaskHandler struct {
	taskService *services.TaskService
}

func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// taskParams reads the project and task ids from the path.
func taskParams(c *gin.Context) (uint, uint, bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return 0, 0, false
	}
	taskID, ok := paramID(c, "taskId")
	if !ok {
		return 0, 0, false
	}
	return id, taskID, true
}

// List returns every task ordered by column and position
// GET /api/projects/:id/tasks
func (h *TaskHandler) List(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	tasks, err := h.taskService.ListTasks(actor(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, tasks)
}

// Create adds a task that is not backed by a feature
// POST /api/projects/:id/tasks
func (h *TaskHandler) Create(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req services.CreateTaskRequest
	if !bindJSON(c, &req) {
		return
	}

	task, err := h.taskService.CreateTask(actor(c), id, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, task)
}

// Update
// PUT /api/projects/:id/tasks/:taskId
func (h *TaskHandler) Update(c *gin.Context) {
	id, taskID, ok := taskParams(c)
	if !ok {
		return
	}
	var req services.UpdateTaskRequest
	if !bindJSON(c, &req) {
		return
	}

	task, err := h.taskService.UpdateTask(actor(c), id, taskID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, task)
}

// Move places a task in a column and returns that column in order
// POST /api/projects/:id/tasks/:taskId/move
func (h *TaskHandler) Move(c *gin.Context) {
	id, taskID, ok := taskParams(c)
	if !ok {
		return
	}
	var req services.MoveTaskRequest
	if !bindJSON(c, &req) {
		return
	}

	column, err := h.taskService.MoveTask(actor(c), id, taskID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, column)
}

// Assign sets or clears the assignee
// PUT /api/projects/:id/tasks/:taskId/assignee
func (h *TaskHandler) Assign(c *gin.Context) {
	id, taskID, ok := taskParams(c)
	if !ok {
		return
	}
	var req services.AssignTaskRequest
	if !bindJSON(c, &req) {
		return
	}

	task, err := h.taskService.AssignTask(actor(c), id, taskID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, task)
}

// UpdateNotes
// PUT /api/projects/:id/tasks/:taskId/notes
func (h *TaskHandler) UpdateNotes(c *gin.Context) {
	id, taskID, ok := taskParams(c)
	if !ok {
		return
	}
	var req services.UpdateNotesRequest
	if !bindJSON(c, &req) {
		return
	}

	task, err := h.taskService.UpdateNotes(actor(c), id, taskID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, task)
}

// Delete
// DELETE /api/projects/:id/tasks/:taskId
func (h *TaskHandler) Delete(c *gin.Context) {
	id, taskID, ok := taskParams(c)
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(actor(c), id, taskID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"message": "task deleted successfully"})
}
