package api

import (
	"encoding/json"
	"time"

	"github.com/taskforge/taskforge/internal/domain"
)

// CreateTaskRequest is the body of POST /tasks.
type CreateTaskRequest struct {
	Name              string          `json:"name"              validate:"required,min=1,max=255"`
	Args              json.RawMessage `json:"args,omitempty"`
	Kwargs            json.RawMessage `json:"kwargs,omitempty"`
	ReservedResources []string        `json:"reserved_resources,omitempty" validate:"max=100,dive,min=1,max=255"`
	ParentTaskID      *string         `json:"parent_task_id,omitempty"     validate:"omitempty,uuid"`
	TaskGroupID       *string         `json:"task_group_id,omitempty"      validate:"omitempty,uuid"`
}

// CreateTaskGroupRequest is the body of POST /task-groups.
type CreateTaskGroupRequest struct {
	Description string `json:"description" validate:"required,min=1,max=1024"`
}

// TaskErrorResponse mirrors the structured failure payload of a task.
type TaskErrorResponse struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Traceback   string `json:"traceback,omitempty"`
}

// TaskResponse represents a task in API responses.
type TaskResponse struct {
	ID                string             `json:"id"`
	State             string             `json:"state"`
	Name              string             `json:"name"`
	LoggingCID        string             `json:"logging_cid,omitempty"`
	StartedAt         *time.Time         `json:"started_at,omitempty"`
	FinishedAt        *time.Time         `json:"finished_at,omitempty"`
	Error             *TaskErrorResponse `json:"error,omitempty"`
	Args              json.RawMessage    `json:"args,omitempty"`
	Kwargs            json.RawMessage    `json:"kwargs,omitempty"`
	ReservedResources []string           `json:"reserved_resources,omitempty"`
	ParentTaskID      *string            `json:"parent_task_id,omitempty"`
	TaskGroupID       *string            `json:"task_group_id,omitempty"`
	Worker            *string            `json:"worker,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
}

// WorkerResponse represents a worker in API responses.
type WorkerResponse struct {
	Name          string    `json:"name"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
	Online        bool      `json:"online"`
	CreatedAt     time.Time `json:"created_at"`
}

// TaskGroupResponse represents a task group in API responses.
type TaskGroupResponse struct {
	ID                 string    `json:"id"`
	Description        string    `json:"description"`
	AllTasksDispatched bool      `json:"all_tasks_dispatched"`
	CreatedAt          time.Time `json:"created_at"`
}

func taskToResponse(task *domain.Task) TaskResponse {
	resp := TaskResponse{
		ID:                task.ID.String(),
		State:             string(task.State),
		Name:              task.Name,
		LoggingCID:        task.LoggingCID,
		StartedAt:         task.StartedAt,
		FinishedAt:        task.FinishedAt,
		Args:              task.Args,
		Kwargs:            task.Kwargs,
		ReservedResources: task.ReservedResources,
		Worker:            task.WorkerName,
		CreatedAt:         task.CreatedAt,
	}
	if task.Error != nil {
		resp.Error = &TaskErrorResponse{
			Type:        task.Error.Type,
			Description: task.Error.Description,
			Traceback:   task.Error.Traceback,
		}
	}
	if task.ParentTaskID != nil {
		s := task.ParentTaskID.String()
		resp.ParentTaskID = &s
	}
	if task.TaskGroupID != nil {
		s := task.TaskGroupID.String()
		resp.TaskGroupID = &s
	}
	return resp
}

func workerToResponse(worker *domain.Worker, online bool) WorkerResponse {
	return WorkerResponse{
		Name:          worker.Name,
		LastHeartbeat: worker.LastHeartbeat,
		Online:        online,
		CreatedAt:     worker.CreatedAt,
	}
}

func taskGroupToResponse(group *domain.TaskGroup) TaskGroupResponse {
	return TaskGroupResponse{
		ID:                 group.ID.String(),
		Description:        group.Description,
		AllTasksDispatched: group.AllTasksDispatched,
		CreatedAt:          group.CreatedAt,
	}
}
