package protocolclient

import (
	"bytes"
	"encoding/json"
	"fmt"

	"beacon/agent/internal/command"
	"beacon/agent/internal/device"
	"beacon/agent/internal/logger"
)

const (
	ActionCheckin  = "checkin"
	ActionGetTasks = "get_tasks"
	ActionResponse = "response"

	StatusSuccess   = "success"
	StatusCompleted = "completed"
	StatusError     = "error"
)

type CheckinRequest struct {
	Action       string             `json:"action"`
	IP           string             `json:"ip"`
	OS           string             `json:"os"`
	OSRelease    string             `json:"os_release,omitempty"`
	User         string             `json:"user"`
	Host         string             `json:"host"`
	PID          int                `json:"pid"`
	PPID         int                `json:"ppid"`
	UUID         string             `json:"uuid"`
	Architecture string             `json:"architecture"`
	Domain       string             `json:"domain"`
	ProcessName  string             `json:"process_name"`
	Interfaces   []device.Interface `json:"interfaces"`
}

func NewCheckin(id device.Identity) CheckinRequest {
	ifs := id.Interfaces
	if ifs == nil {
		ifs = []device.Interface{}
	}
	return CheckinRequest{
		Action:       ActionCheckin,
		IP:           id.LocalIP(),
		OS:           id.OS,
		OSRelease:    id.OSRelease,
		User:         id.Username,
		Host:         id.Hostname,
		PID:          id.PID,
		PPID:         id.PPID,
		UUID:         id.UUID,
		Architecture: id.Arch,
		Domain:       id.FQDN,
		ProcessName:  id.Executable,
		Interfaces:   ifs,
	}
}

type CheckinResponse struct {
	Status string `json:"status"`
	UUID   string `json:"uuid,omitempty"`
}

type TaskListRequest struct {
	Action string `json:"action"`
	UUID   string `json:"uuid"`
}

type TaskListResponse struct {
	Status string    `json:"status"`
	Tasks  TaskBatch `json:"tasks"`
}

// TaskBatch decodes each task on its own; an entry that does not decode is
// dropped so it cannot take its siblings with it.
type TaskBatch []Task

func (b *TaskBatch) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(TaskBatch, 0, len(raw))
	for _, r := range raw {
		var t Task
		if err := json.Unmarshal(r, &t); err != nil {
			logger.Debugf("Dropping undecodable task: %v", err)
			continue
		}
		out = append(out, t)
	}
	*b = out
	return nil
}

// TaskID accepts both JSON strings and numbers.
type TaskID string

func (t *TaskID) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = TaskID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("task id: %w", err)
	}
	*t = TaskID(n.String())
	return nil
}

type Task struct {
	ID         TaskID         `json:"id"`
	Command    string         `json:"command"`
	Parameters command.Params `json:"parameters"`
}

// Valid reports whether the task carries both an id and a command.
func (t Task) Valid() bool { return t.ID != "" && t.Command != "" }

type TaskResultRequest struct {
	Action string `json:"action"`
	TaskID string `json:"task_id"`
	Status string `json:"status"`
	Output string `json:"output"`
}

type GenericResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
