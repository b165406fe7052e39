package postgres_test

import (
	"context"
	"motolens/internal/models"
	"motolens/internal/repository"
	"motolens/internal/repository/postgres/integration"
	"motolens/internal/testutil"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func recordEvent(t *testing.T, tc *integration.TestContext, userID *uuid.UUID, eventType models.SecurityEventType, ip string) {
	t.Helper()
	err := tc.EventRepo.Create(context.Background(), &models.CreateSecurityEventRequest{
		UserID:      userID,
		EventType:   eventType,
		Description: string(eventType),
		Metadata:    `{"test":true}`,
		IPAddress:   ip,
		UserAgent:   "go-test",
	})
	require.NoError(t, err)
}

func TestSecurityEventRepository_Create(t *testing.T) {
	tc := integration.NewTestContext(t)
	ctx := context.Background()

	user := tc.CreateTestUser("events@example.com", "Summer2024", models.RoleMechanic, true)
	recordEvent(t, tc, &user.ID, models.EventLoginSuccess, "10.0.0.1")

	events, err := tc.EventRepo.List(ctx, repository.SecurityEventFilter{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, models.EventLoginSuccess, events[0].EventType)
	require.Equal(t, user.ID, *events[0].UserID)
	require.Equal(t, "10.0.0.1", events[0].IPAddress)
	require.JSONEq(t, `{"test":true}`, events[0].Metadata)
}

func TestSecurityEventRepository_CreateWithoutUser(t *testing.T) {
	tc := integration.NewTestContext(t)
	ctx := context.Background()

	// Failed logins against unknown accounts are recorded without a user id
	recordEvent(t, tc, nil, models.EventLoginFailed, "10.0.0.2")

	events, err := tc.EventRepo.List(ctx, repository.SecurityEventFilter{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Nil(t, events[0].UserID)
}

func TestSecurityEventRepository_ListFilters(t *testing.T) {
	tc := integration.NewTestContext(t)
	ctx := context.Background()

	alice := tc.CreateTestUser("alice@example.com", "Summer2024", models.RoleMechanic, true)
	bob := tc.CreateTestUser("bob@example.com", "Summer2024", models.RoleMechanic, true)

	recordEvent(t, tc, &alice.ID, models.EventLoginSuccess, "10.0.0.1")
	recordEvent(t, tc, &alice.ID, models.EventLoginFailed, "10.0.0.1")
	recordEvent(t, tc, &bob.ID, models.EventLoginFailed, "10.0.0.2")
	recordEvent(t, tc, &bob.ID, models.EventPasswordChanged, "10.0.0.2")

	tests := []struct {
		name     string
		filter   repository.SecurityEventFilter
		expected int
	}{
		{
			name:     "no filter returns everything",
			filter:   repository.SecurityEventFilter{},
			expected: 4,
		},
		{
			name:     "by user",
			filter:   repository.SecurityEventFilter{UserID: &alice.ID},
			expected: 2,
		},
		{
			name: "by event type",
			filter: repository.SecurityEventFilter{
				EventTypes: []models.SecurityEventType{models.EventLoginFailed},
			},
			expected: 2,
		},
		{
			name: "by multiple event types",
			filter: repository.SecurityEventFilter{
				EventTypes: []models.SecurityEventType{models.EventLoginFailed, models.EventPasswordChanged},
			},
			expected: 3,
		},
		{
			name:     "by ip address",
			filter:   repository.SecurityEventFilter{IPAddress: testutil.String("10.0.0.2")},
			expected: 2,
		},
		{
			name: "user and type combined",
			filter: repository.SecurityEventFilter{
				UserID:     &bob.ID,
				EventTypes: []models.SecurityEventType{models.EventLoginFailed},
			},
			expected: 1,
		},
		{
			name:     "limit",
			filter:   repository.SecurityEventFilter{Limit: testutil.Int(2)},
			expected: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := tc.EventRepo.List(ctx, tt.filter)
			require.NoError(t, err)
			require.Len(t, events, tt.expected)
		})
	}
}

func TestSecurityEventRepository_ListTimeWindow(t *testing.T) {
	tc := integration.NewTestContext(t)
	ctx := context.Background()

	user := tc.CreateTestUser("window@example.com", "Summer2024", models.RoleMechanic, true)
	recordEvent(t, tc, &user.ID, models.EventLoginSuccess, "10.0.0.1")

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	events, err := tc.EventRepo.List(ctx, repository.SecurityEventFilter{
		CreatedAfter:  &past,
		CreatedBefore: &future,
	})
	require.NoError(t, err)
	require.Len(t, events, 1)

	events, err = tc.EventRepo.List(ctx, repository.SecurityEventFilter{CreatedAfter: &future})
	require.NoError(t, err)
	require.Empty(t, events)

	events, err = tc.EventRepo.List(ctx, repository.SecurityEventFilter{CreatedBefore: &past})
	require.NoError(t, err)
	require.Empty(t, events)
}

func TestSecurityEventRepository_ListOrder(t *testing.T) {
	tc := integration.NewTestContext(t)
	ctx := context.Background()

	user := tc.CreateTestUser("order@example.com", "Summer2024", models.RoleMechanic, true)
	recordEvent(t, tc, &user.ID, models.EventLoginSuccess, "10.0.0.1")

	// Backdate a second event so ordering is deterministic
	older := uuid.New()
	_, err := tc.DB.ExecContext(ctx, `
		INSERT INTO security_events (id, user_id, event_type, description, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, '10.0.0.1', 'go-test', NOW() - INTERVAL '1 day')`,
		older, user.ID, models.EventUserRegistered, "USER_REGISTERED")
	require.NoError(t, err)

	events, err := tc.EventRepo.List(ctx, repository.SecurityEventFilter{
		OrderBy:   "created_at",
		OrderDesc: true,
	})
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, models.EventLoginSuccess, events[0].EventType)
	require.Equal(t, older, events[1].ID)
}

func TestSecurityEventRepository_GetByUserID(t *testing.T) {
	tc := integration.NewTestContext(t)
	ctx := context.Background()

	alice := tc.CreateTestUser("alice@example.com", "Summer2024", models.RoleMechanic, true)
	bob := tc.CreateTestUser("bob@example.com", "Summer2024", models.RoleMechanic, true)

	recordEvent(t, tc, &alice.ID, models.EventLoginSuccess, "10.0.0.1")
	recordEvent(t, tc, &bob.ID, models.EventLoginSuccess, "10.0.0.2")

	events, err := tc.EventRepo.GetByUserID(ctx, alice.ID, repository.SecurityEventFilter{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, alice.ID, *events[0].UserID)
}

func TestSecurityEventRepository_UserIDSurvivesAccountDeletion(t *testing.T) {
	tc := integration.NewTestContext(t)
	ctx := context.Background()

	user := tc.CreateTestUser("gone@example.com", "Summer2024", models.RoleMechanic, true)
	recordEvent(t, tc, &user.ID, models.EventLoginSuccess, "10.0.0.1")

	_, err := tc.DB.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, user.ID)
	require.NoError(t, err)

	// Audit rows outlive the account, with user_id nulled
	events, err := tc.EventRepo.List(ctx, repository.SecurityEventFilter{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Nil(t, events[0].UserID)
}

func TestSecurityEventRepository_CleanupOld(t *testing.T) {
	tc := integration.NewTestContext(t)
	ctx := context.Background()

	user := tc.CreateTestUser("retention@example.com", "Summer2024", models.RoleMechanic, true)
	recordEvent(t, tc, &user.ID, models.EventLoginSuccess, "10.0.0.1")
	recordEvent(t, tc, &user.ID, models.EventLogout, "10.0.0.1")

	_, err := tc.DB.ExecContext(ctx, `
		UPDATE security_events SET created_at = NOW() - INTERVAL '100 days'
		WHERE event_type = $1`, models.EventLogout)
	require.NoError(t, err)

	require.NoError(t, tc.EventRepo.CleanupOld(ctx, 90*24*time.Hour))

	events, err := tc.EventRepo.List(ctx, repository.SecurityEventFilter{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, models.EventLoginSuccess, events[0].EventType)
}
