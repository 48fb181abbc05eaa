package dto

import (
	"time"

	"github.com/deskforge/helpdesk/internal/domain"
)

// AuthResponse is an issued access token.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Role           string    `json:"role"`
	OrganizationID string    `json:"organization_id,omitempty"`
	ParentUserID   *string   `json:"parent_user_id"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// OrganizationResponse is organization metadata.
type OrganizationResponse struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	MaxUsers           int       `json:"max_users"`
	SubscriptionStatus string    `json:"subscription_status"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// TicketResponse is a ticket.
type TicketResponse struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	CreatedBy   string     `json:"created_by"`
	AssignedTo  *string    `json:"assigned_to"`
	ResolvedAt  *time.Time `json:"resolved_at"`
	Version     int64      `json:"version"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TicketDetailResponse is a ticket with its visible responses.
type TicketDetailResponse struct {
	TicketResponse
	Responses []ResponseResponse `json:"responses"`
}

// ResponseResponse is a ticket response.
type ResponseResponse struct {
	ID         string    `json:"id"`
	TicketID   string    `json:"ticket_id"`
	UserID     string    `json:"user_id"`
	Content    string    `json:"content"`
	IsInternal bool      `json:"is_internal"`
	CreatedAt  time.Time `json:"created_at"`
}

// HistoryResponse is a ticket history entry.
type HistoryResponse struct {
	ID         string         `json:"id"`
	ChangedBy  string         `json:"changed_by"`
	ChangeType string         `json:"change_type"`
	OldValue   map[string]any `json:"old_value"`
	NewValue   map[string]any `json:"new_value"`
	CreatedAt  time.Time      `json:"created_at"`
}

// PlanResponse is a pricing plan.
type PlanResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MaxUsers     int    `json:"max_users"`
	Price        int64  `json:"price"`
	BillingCycle string `json:"billing_cycle"`
	IsActive     bool   `json:"is_active"`
}

// SubscriptionResponse is an organization subscription.
type SubscriptionResponse struct {
	ID        string     `json:"id"`
	PlanID    string     `json:"plan_id"`
	Status    string     `json:"status"`
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
}

// NewUserResponse maps an account.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		Role:           string(u.Role),
		OrganizationID: u.OrganizationID,
		ParentUserID:   u.ParentUserID,
		Status:         string(u.Status),
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

// NewOrganizationResponse maps an organization.
func NewOrganizationResponse(o *domain.Organization) OrganizationResponse {
	return OrganizationResponse{
		ID:                 o.ID,
		Name:               o.Name,
		MaxUsers:           o.MaxUsers,
		SubscriptionStatus: string(o.SubscriptionStatus),
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
}

// NewTicketResponse maps a ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Category:    t.Category,
		Priority:    string(t.Priority),
		Status:      string(t.Status),
		CreatedBy:   t.CreatedBy,
		AssignedTo:  t.AssignedTo,
		ResolvedAt:  t.ResolvedAt,
		Version:     t.Version,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// NewResponseResponse maps a ticket response.
func NewResponseResponse(r *domain.Response) ResponseResponse {
	return ResponseResponse{
		ID:         r.ID,
		TicketID:   r.TicketID,
		UserID:     r.UserID,
		Content:    r.Content,
		IsInternal: r.IsInternal,
		CreatedAt:  r.CreatedAt,
	}
}

// NewResponseList maps responses, never returning nil.
func NewResponseList(responses []domain.Response) []ResponseResponse {
	out := make([]ResponseResponse, 0, len(responses))
	for i := range responses {
		out = append(out, NewResponseResponse(&responses[i]))
	}
	return out
}

// NewHistoryResponse maps a history entry.
func NewHistoryResponse(h *domain.TicketHistory) HistoryResponse {
	return HistoryResponse{
		ID:         h.ID,
		ChangedBy:  h.ChangedBy,
		ChangeType: string(h.ChangeType),
		OldValue:   h.OldValue,
		NewValue:   h.NewValue,
		CreatedAt:  h.CreatedAt,
	}
}

// NewPlanResponse maps a pricing plan.
func NewPlanResponse(p *domain.PricingPlan) PlanResponse {
	return PlanResponse{
		ID:           p.ID,
		Name:         p.Name,
		MaxUsers:     p.MaxUsers,
		Price:        p.Price,
		BillingCycle: string(p.BillingCycle),
		IsActive:     p.IsActive,
	}
}

// NewSubscriptionResponse maps a subscription.
func NewSubscriptionResponse(s *domain.Subscription) SubscriptionResponse {
	return SubscriptionResponse{
		ID:        s.ID,
		PlanID:    s.PlanID,
		Status:    string(s.Status),
		StartDate: s.StartDate,
		EndDate:   s.EndDate,
	}
}
