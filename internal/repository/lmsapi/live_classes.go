// internal/repository/lmsapi/live_classes.go
package lmsapi

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"lms-admin-service/internal/domain/liveclass"
)

type liveClassDTO struct {
	ID             string    `json:"id"`
	MongoID        string    `json:"_id"`
	Title          string    `json:"title"`
	UserID         string    `json:"userId"`
	CourseIDs      []string  `json:"courseIds"`
	StartTime      time.Time `json:"startTime"`
	Platform       string    `json:"platform"`
	Status         string    `json:"status"`
	JoinURL        string    `json:"joinUrl"`
	InstructorLink string    `json:"instructorLink"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (d liveClassDTO) toDomain() liveclass.LiveClass {
	id := d.ID
	if id == "" {
		id = d.MongoID
	}
	platform := liveclass.Platform(d.Platform)
	if platform == "" {
		platform = liveclass.PlatformMeritHub
	}
	return liveclass.LiveClass{
		ID:             id,
		Title:          d.Title,
		UserID:         d.UserID,
		CourseIDs:      d.CourseIDs,
		StartTime:      d.StartTime,
		Platform:       platform,
		Status:         liveclass.ParseStatus(d.Status),
		JoinURL:        d.JoinURL,
		InstructorLink: d.InstructorLink,
		CreatedAt:      d.CreatedAt,
	}
}

// classEnvelope accepts both {"class": {...}} and a bare class object.
type classEnvelope struct {
	Class *liveClassDTO `json:"class"`
	liveClassDTO
}

func (e classEnvelope) toDomain() liveclass.LiveClass {
	if e.Class != nil {
		return e.Class.toDomain()
	}
	return e.liveClassDTO.toDomain()
}

type liveClassWriteDTO struct {
	Title     string     `json:"title,omitempty"`
	UserID    string     `json:"userId,omitempty"`
	CourseIDs []string   `json:"courseIds,omitempty"`
	StartTime *time.Time `json:"startTime,omitempty"`
	Platform  string     `json:"platform,omitempty"`
}

// StatusResponse is the server's authoritative view of a class.
type StatusResponse struct {
	Status    string `json:"status"`
	CanDelete bool   `json:"canDelete"`
	CanEdit   bool   `json:"canEdit"`
	Message   string `json:"message"`
}

// LiveClassStatus fetches the current status and allowed actions of a class.
func (c *Client) LiveClassStatus(ctx context.Context, classID string) (StatusResponse, error) {
	var out StatusResponse
	err := c.do(ctx, http.MethodGet, "/admin/live-classes/"+url.PathEscape(classID)+"/status", nil, &out)
	return out, err
}

// ListUpcomingLiveClasses returns the classes shown on the dashboard.
func (c *Client) ListUpcomingLiveClasses(ctx context.Context) ([]liveclass.LiveClass, error) {
	var out struct {
		Classes []liveClassDTO `json:"classes"`
	}
	if err := c.do(ctx, http.MethodGet, "/admin/upcoming-live-classes", nil, &out); err != nil {
		return nil, err
	}

	classes := make([]liveclass.LiveClass, 0, len(out.Classes))
	for _, d := range out.Classes {
		classes = append(classes, d.toDomain())
	}
	return classes, nil
}

// ScheduleLiveClass creates a class and returns it as stored upstream.
func (c *Client) ScheduleLiveClass(ctx context.Context, req liveclass.ScheduleRequest) (liveclass.LiveClass, error) {
	start := req.StartTime
	body := liveClassWriteDTO{
		Title:     req.Title,
		UserID:    req.UserID,
		CourseIDs: req.CourseIDs,
		StartTime: &start,
		Platform:  string(req.Platform),
	}

	var out classEnvelope
	if err := c.do(ctx, http.MethodPost, "/admin/live-classes", body, &out); err != nil {
		return liveclass.LiveClass{}, err
	}
	return out.toDomain(), nil
}

// EditLiveClass updates a class and returns it as stored upstream.
func (c *Client) EditLiveClass(ctx context.Context, classID string, req liveclass.UpdateRequest) (liveclass.LiveClass, error) {
	body := liveClassWriteDTO{
		CourseIDs: req.CourseIDs,
		StartTime: req.StartTime,
	}
	if req.Title != nil {
		body.Title = *req.Title
	}
	if req.Platform != nil {
		body.Platform = string(*req.Platform)
	}

	var out classEnvelope
	if err := c.do(ctx, http.MethodPut, "/admin/edit-live-classes/"+url.PathEscape(classID), body, &out); err != nil {
		return liveclass.LiveClass{}, err
	}
	return out.toDomain(), nil
}

// DeleteLiveClass removes a class upstream.
func (c *Client) DeleteLiveClass(ctx context.Context, classID string) error {
	return c.do(ctx, http.MethodDelete, "/admin/delete-live-classes/"+url.PathEscape(classID), nil, nil)
}
