package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskNotifyChat = "recordings.notify"

const TaskFailureAlert = "recordings.failure_alert"

type NotifyChatPayload struct {
	ChatID int64  `json:"chatId"`
	Text   string `json:"text"`
}

type FailureAlertPayload struct {
	RecordingID  string `json:"recordingId"`
	ErrorMessage string `json:"errorMessage"`
}

func NewNotifyChatTask(payload NotifyChatPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotifyChat, data), nil
}

func ParseNotifyChatPayload(task *asynq.Task) (NotifyChatPayload, error) {
	var payload NotifyChatPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return NotifyChatPayload{}, err
	}
	return payload, nil
}

func NewFailureAlertTask(payload FailureAlertPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFailureAlert, data), nil
}

func ParseFailureAlertPayload(task *asynq.Task) (FailureAlertPayload, error) {
	var payload FailureAlertPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return FailureAlertPayload{}, err
	}
	return payload, nil
}
