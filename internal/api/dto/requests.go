package dto

import (
	"bytes"
	"encoding/json"
)

// Nullable distinguishes an absent JSON field from an explicit null.
type Nullable[T any] struct {
	Set   bool
	Value *T
}

// UnmarshalJSON records that the field was present.
func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

// SignupRequest registers an organization and its root admin.
type SignupRequest struct {
	OrganizationName string `json:"organization_name"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	Password         string `json:"password"`
}

// LoginRequest authenticates any account.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ChangePasswordRequest rotates the caller's password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// CreateTicketRequest opens a ticket.
type CreateTicketRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Priority    *string `json:"priority"`
	AssignedTo  *string `json:"assigned_to"`
}

// UpdateTicketRequest is a partial update. assigned_to: null unassigns.
type UpdateTicketRequest struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	Category    *string          `json:"category"`
	Priority    *string          `json:"priority"`
	Status      *string          `json:"status"`
	AssignedTo  Nullable[string] `json:"assigned_to"`
}

// CreateResponseRequest adds a response to a ticket.
type CreateResponseRequest struct {
	Content    string `json:"content"`
	IsInternal bool   `json:"is_internal"`
}

// CreateUserRequest provisions a subuser.
type CreateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// UpdateUserRequest changes an account.
type UpdateUserRequest struct {
	Name   *string `json:"name"`
	Role   *string `json:"role"`
	Status *string `json:"status"`
}

// SubscribeRequest moves the organization onto a plan.
type SubscribeRequest struct {
	PlanID string `json:"plan_id"`
}

// CreatePlanRequest defines a pricing plan.
type CreatePlanRequest struct {
	Name         string `json:"name"`
	MaxUsers     int    `json:"max_users"`
	Price        int64  `json:"price"`
	BillingCycle string `json:"billing_cycle"`
	IsActive     *bool  `json:"is_active"`
}

// UpdatePlanRequest changes a pricing plan.
type UpdatePlanRequest struct {
	Name         *string `json:"name"`
	MaxUsers     *int    `json:"max_users"`
	Price        *int64  `json:"price"`
	BillingCycle *string `json:"billing_cycle"`
	IsActive     *bool   `json:"is_active"`
}
