// internal/domain/liveclass/dto.go
package liveclass

import "time"

type ScheduleRequest struct {
	Title     string    `json:"title" binding:"required,max=255"`
	UserID    string    `json:"user_id" binding:"required"`
	CourseIDs []string  `json:"course_ids" binding:"required,min=1,dive,required"`
	StartTime time.Time `json:"start_time" binding:"required"`
	Platform  Platform  `json:"platform" binding:"omitempty,oneof=zoom merithub"`
}

type UpdateRequest struct {
	Title     *string    `json:"title" binding:"omitempty,max=255"`
	CourseIDs []string   `json:"course_ids" binding:"omitempty,min=1,dive,required"`
	StartTime *time.Time `json:"start_time"`
	Platform  *Platform  `json:"platform" binding:"omitempty,oneof=zoom merithub"`
}

// EditOptions carries the admin's answer when the pre-edit status check fails.
type EditOptions struct {
	// Force edits even when the status re-check could not reach the server.
	Force bool `form:"force"`
}

// DeleteOptions carries the admin's answers to the delete prompts.
type DeleteOptions struct {
	Confirmed bool `form:"confirm"`
	// Force deletes even when the status re-check could not reach the server.
	Force bool `form:"force"`
}

type GoLiveResult struct {
	ClassID  string   `json:"class_id"`
	JoinURL  string   `json:"join_url"`
	Snapshot Snapshot `json:"snapshot"`
}

type TransitionListFilters struct {
	ClassID  string `form:"class_id"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

type TransitionListResponse struct {
	Transitions []StatusTransition `json:"transitions"`
	Total       int64              `json:"total"`
	Page        int                `json:"page"`
	PageSize    int                `json:"page_size"`
	TotalPages  int                `json:"total_pages"`
}
