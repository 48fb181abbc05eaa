package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/deskforge/helpdesk/internal/domain"
	"github.com/deskforge/helpdesk/internal/repository"
	apperrors "github.com/deskforge/helpdesk/pkg/util/errorutil"
)

const pgTicketID = "6f1c2d4e-8a1b-4c3d-9e2f-0a1b2c3d4e5f"

var pgAgent = domain.Actor{
	UserID:         "0b7e4a52-3c1d-4f6e-8a9b-1c2d3e4f5a6b",
	Role:           domain.RoleAgent,
	OrganizationID: "org-a",
}

func newPostgresTicketService(t *testing.T) (*TicketService, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	svc := NewTicketService(TicketDependencies{
		Store:  repository.NewPostgresStore(mock),
		Logger: zap.NewNop(),
	})
	return svc, mock
}

func invalidUUID(value string) error {
	return &pgconn.PgError{Code: "22P02", Message: `invalid input syntax for type uuid: "` + value + `"`}
}

func TestPostgresMalformedTicketIDIsNotFound(t *testing.T) {
	svc, mock := newPostgresTicketService(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM tickets WHERE id=$1")).
		WithArgs("not-a-uuid").
		WillReturnError(invalidUUID("not-a-uuid"))

	_, err := svc.GetTicket(context.Background(), pgAgent, "not-a-uuid")
	requireKind(t, err, apperrors.CodeNotFound)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.False(t, domainErr.Retryable())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMalformedAssigneeIsInvalid(t *testing.T) {
	svc, mock := newPostgresTicketService(t)
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM tickets WHERE id=$1 FOR UPDATE")).
		WithArgs(pgTicketID).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "organization_id", "title", "description", "category", "priority", "status",
			"created_by", "assigned_to", "resolved_at", "version", "created_at", "updated_at",
		}).AddRow(
			pgTicketID, "org-a", "Printer jam", "", "hardware",
			domain.TicketPriorityHigh, domain.TicketStatusOpen,
			"cust-1", (*string)(nil), (*time.Time)(nil), int64(1), now, now,
		))
	mock.ExpectRollback()

	assignee := "abc"
	_, err := svc.UpdateTicket(context.Background(), pgAgent, pgTicketID, TicketPatch{AssignedTo: &assignee})
	requireKind(t, err, apperrors.CodeInvalidAssignee)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMalformedAssigneeFilterListsNothing(t *testing.T) {
	svc, mock := newPostgresTicketService(t)
	assignee := "abc"

	tickets, err := svc.ListTickets(context.Background(), pgAgent, TicketListFilter{AssignedTo: &assignee})
	require.NoError(t, err)
	assert.Empty(t, tickets)
	require.NoError(t, mock.ExpectationsWereMet())
}
