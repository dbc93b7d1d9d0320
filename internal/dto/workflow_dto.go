package dto

import (
	"encoding/json"
	"time"

	"github.com/scholaris-io/results-api/internal/models"
)

// WorkflowResponse exposes the finalization stage of one (exam, class) pair.
type WorkflowResponse struct {
	ExamID        uint                      `json:"exam_id"`
	ClassID       uint                      `json:"class_id"`
	CurrentStage  string                    `json:"current_stage"`
	MarksComplete bool                      `json:"marks_complete"`
	StageHistory  []WorkflowStageTransition `json:"stage_history,omitempty"`
	UpdatedAt     time.Time                 `json:"updated_at"`
}

// WorkflowStageTransition is one recorded stage change.
type WorkflowStageTransition struct {
	Stage   string    `json:"stage"`
	ActorID uint      `json:"actor_id"`
	At      time.Time `json:"at"`
}

// NewWorkflowResponse converts a ReportWorkflow model into a DTO.
func NewWorkflowResponse(model models.ReportWorkflow) WorkflowResponse {
	response := WorkflowResponse{
		ExamID:        model.ExamID,
		ClassID:       model.ClassID,
		CurrentStage:  string(model.CurrentStage),
		MarksComplete: model.MarksComplete,
		UpdatedAt:     model.UpdatedAt,
	}

	if len(model.StageHistory) > 0 {
		var transitions []models.StageTransition
		if err := json.Unmarshal(model.StageHistory, &transitions); err == nil {
			for _, transition := range transitions {
				response.StageHistory = append(response.StageHistory, WorkflowStageTransition{
					Stage:   string(transition.Stage),
					ActorID: transition.ActorID,
					At:      transition.At,
				})
			}
		}
	}

	return response
}
