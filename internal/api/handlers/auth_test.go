package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"motolens/internal/auth"
	"motolens/internal/models"
	"motolens/internal/repository"
	"motolens/internal/testutil"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	m.Run()
}

// doRequest runs a JSON request through the full router, middleware included
func doRequest(t *testing.T, tc *testutil.TestContext, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "go-test")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	tc.Router.ServeHTTP(w, req)
	return w
}

func decodeJSON[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	return out
}

func TestAuthHandler_Register(t *testing.T) {
	tests := []struct {
		name       string
		setupFunc  func(*testutil.TestContext)
		input      models.RegisterRequest
		wantStatus int
		errMsg     string
		validate   func(*testing.T, *testutil.TestContext, *httptest.ResponseRecorder)
	}{
		{
			name: "Success",
			input: models.RegisterRequest{
				Email:     "new@example.com",
				Password:  "CorrectHorse99!x",
				FirstName: "New",
				LastName:  "Mechanic",
			},
			wantStatus: http.StatusCreated,
			validate: func(t *testing.T, tc *testutil.TestContext, w *httptest.ResponseRecorder) {
				resp := decodeJSON[models.AuthResponse](t, w)
				require.NotEmpty(t, resp.AccessToken)
				require.NotEmpty(t, resp.RefreshToken)
				require.Equal(t, "new@example.com", resp.User.Email)
				require.Equal(t, models.RoleMechanic, resp.User.Role, "role defaults to mechanic")
				require.False(t, resp.User.EmailVerified)

				// The account is immediately logged in
				claims, err := tc.AuthService.VerifyAccess(resp.AccessToken)
				require.NoError(t, err)
				require.Equal(t, resp.User.ID.String(), claims.Subject)

				// A verification email went out
				require.NotEmpty(t, tc.EmailService.WaitForToken("new@example.com", "verification", ""))

				// The registration is on the audit trail
				events, err := tc.EventRepo.GetByUserID(context.Background(), resp.User.ID, repository.SecurityEventFilter{
					EventTypes: []models.SecurityEventType{models.EventUserRegistered},
				})
				require.NoError(t, err)
				require.Len(t, events, 1)
			},
		},
		{
			name: "Email Normalized",
			input: models.RegisterRequest{
				Email:     "Mixed.Case@Example.COM",
				Password:  "CorrectHorse99!x",
				FirstName: "Mixed",
				LastName:  "Case",
			},
			wantStatus: http.StatusCreated,
			validate: func(t *testing.T, tc *testutil.TestContext, w *httptest.ResponseRecorder) {
				resp := decodeJSON[models.AuthResponse](t, w)
				require.Equal(t, "mixed.case@example.com", resp.User.Email)
			},
		},
		{
			name: "Duplicate Email",
			setupFunc: func(tc *testutil.TestContext) {
				tc.CreateTestUser("taken@example.com", "CorrectHorse99!x", models.RoleMechanic, true)
			},
			input: models.RegisterRequest{
				Email:     "Taken@Example.com",
				Password:  "CorrectHorse99!x",
				FirstName: "Second",
				LastName:  "Claim",
			},
			wantStatus: http.StatusConflict,
			errMsg:     "email already registered",
		},
		{
			name: "Weak Password",
			input: models.RegisterRequest{
				Email:     "weak@example.com",
				Password:  "password123",
				FirstName: "Weak",
				LastName:  "Password",
			},
			wantStatus: http.StatusBadRequest,
			validate: func(t *testing.T, tc *testutil.TestContext, w *httptest.ResponseRecorder) {
				resp := decodeJSON[models.PasswordStrengthResponse](t, w)
				require.Equal(t, "weak", resp.Strength)
				require.NotEmpty(t, resp.Feedback)

				// The account was never created
				_, err := tc.UserRepo.GetByEmail(context.Background(), "weak@example.com")
				require.ErrorIs(t, err, repository.ErrUserNotFound)
			},
		},
		{
			name: "Admin Role Without Privileges",
			input: models.RegisterRequest{
				Email:     "wannabe@example.com",
				Password:  "CorrectHorse99!x",
				FirstName: "Wannabe",
				LastName:  "Admin",
				Role:      models.RoleAdmin,
			},
			wantStatus: http.StatusForbidden,
			errMsg:     "admin role requires admin privileges",
		},
		{
			name: "Unknown Role",
			input: models.RegisterRequest{
				Email:     "odd@example.com",
				Password:  "CorrectHorse99!x",
				FirstName: "Odd",
				LastName:  "Role",
				Role:      "superuser",
			},
			wantStatus: http.StatusBadRequest,
			errMsg:     "Key: 'RegisterRequest.Role' Error:Field validation for 'Role' failed on the 'oneof' tag",
		},
		{
			name: "Missing Email",
			input: models.RegisterRequest{
				Password:  "CorrectHorse99!x",
				FirstName: "No",
				LastName:  "Email",
			},
			wantStatus: http.StatusBadRequest,
			errMsg:     "Key: 'RegisterRequest.Email' Error:Field validation for 'Email' failed on the 'required' tag",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := testutil.NewTestContext(t)
			if tt.setupFunc != nil {
				tt.setupFunc(tc)
			}

			w := doRequest(t, tc, http.MethodPost, "/api/v1/auth/register", tt.input, "")
			require.Equal(t, tt.wantStatus, w.Code)

			if tt.errMsg != "" {
				resp := decodeJSON[models.ErrorResponse](t, w)
				require.Equal(t, tt.errMsg, resp.Error)
			}
			if tt.validate != nil {
				tt.validate(t, tc, w)
			}
		})
	}
}

func TestAuthHandler_Login(t *testing.T) {
	tests := []struct {
		name       string
		setupFunc  func(*testutil.TestContext)
		input      models.LoginRequest
		wantStatus int
		errMsg     string
		validate   func(*testing.T, *testutil.TestContext, *httptest.ResponseRecorder)
	}{
		{
			name: "Success",
			setupFunc: func(tc *testutil.TestContext) {
				tc.CreateTestUser("login@example.com", "CorrectHorse99!x", models.RoleMechanic, true)
			},
			input: models.LoginRequest{
				Email:    "login@example.com",
				Password: "CorrectHorse99!x",
			},
			wantStatus: http.StatusOK,
			validate: func(t *testing.T, tc *testutil.TestContext, w *httptest.ResponseRecorder) {
				resp := decodeJSON[models.AuthResponse](t, w)
				require.NotEmpty(t, resp.AccessToken)
				require.NotEmpty(t, resp.RefreshToken)

				claims, err := tc.AuthService.VerifyAccess(resp.AccessToken)
				require.NoError(t, err)
				require.Equal(t, resp.User.ID.String(), claims.Subject)

				// Last login was stamped and a session row exists
				user, err := tc.UserRepo.GetByID(context.Background(), resp.User.ID)
				require.NoError(t, err)
				require.NotNil(t, user.LastLoginAt)

				sessions, err := tc.SessionRepo.ListActiveByUserID(context.Background(), user.ID)
				require.NoError(t, err)
				require.Len(t, sessions, 1)
				require.Equal(t, auth.HashToken(resp.RefreshToken), sessions[0].RefreshTokenHash)
			},
		},
		{
			name: "Case Insensitive Email",
			setupFunc: func(tc *testutil.TestContext) {
				tc.CreateTestUser("case@example.com", "CorrectHorse99!x", models.RoleMechanic, true)
			},
			input: models.LoginRequest{
				Email:    "Case@Example.COM",
				Password: "CorrectHorse99!x",
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "Wrong Password",
			setupFunc: func(tc *testutil.TestContext) {
				tc.CreateTestUser("wrong@example.com", "CorrectHorse99!x", models.RoleMechanic, true)
			},
			input: models.LoginRequest{
				Email:    "wrong@example.com",
				Password: "NotThePassword1!",
			},
			wantStatus: http.StatusUnauthorized,
			validate: func(t *testing.T, tc *testutil.TestContext, w *httptest.ResponseRecorder) {
				resp := decodeJSON[models.LoginFailureResponse](t, w)
				require.Equal(t, "invalid credentials", resp.Error)
				require.Equal(t, repository.MaxLoginAttempts-1, resp.RemainingAttempts)
			},
		},
		{
			name:      "Unknown Email",
			setupFunc: nil,
			input: models.LoginRequest{
				Email:    "nobody@example.com",
				Password: "CorrectHorse99!x",
			},
			wantStatus: http.StatusUnauthorized,
			errMsg:     "invalid credentials",
		},
		{
			name: "Deleted Account",
			setupFunc: func(tc *testutil.TestContext) {
				user := tc.CreateTestUser("deleted@example.com", "CorrectHorse99!x", models.RoleMechanic, true)
				_, err := tc.DB.Exec("UPDATE users SET deleted_at = CURRENT_TIMESTAMP WHERE id = $1", user.ID)
				require.NoError(t, err)
			},
			input: models.LoginRequest{
				Email:    "deleted@example.com",
				Password: "CorrectHorse99!x",
			},
			wantStatus: http.StatusUnauthorized,
			errMsg:     "invalid credentials",
		},
		{
			name: "Unverified Email Can Log In",
			setupFunc: func(tc *testutil.TestContext) {
				tc.CreateTestUser("unverified@example.com", "CorrectHorse99!x", models.RoleMechanic, false)
			},
			input: models.LoginRequest{
				Email:    "unverified@example.com",
				Password: "CorrectHorse99!x",
			},
			wantStatus: http.StatusOK,
		},
		{
			name:      "Missing Password",
			setupFunc: nil,
			input: models.LoginRequest{
				Email: "login@example.com",
			},
			wantStatus: http.StatusBadRequest,
			errMsg:     "Key: 'LoginRequest.Password' Error:Field validation for 'Password' failed on the 'required' tag",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := testutil.NewTestContext(t)
			if tt.setupFunc != nil {
				tt.setupFunc(tc)
			}

			w := doRequest(t, tc, http.MethodPost, "/api/v1/auth/login", tt.input, "")
			require.Equal(t, tt.wantStatus, w.Code)

			if tt.errMsg != "" {
				resp := decodeJSON[models.ErrorResponse](t, w)
				require.Equal(t, tt.errMsg, resp.Error)
			}
			if tt.validate != nil {
				tt.validate(t, tc, w)
			}
		})
	}
}

func TestAuthHandler_LoginLockout(t *testing.T) {
	tc := testutil.NewTestContext(t)
	user := tc.CreateTestUser("lockout@example.com", "CorrectHorse99!x", models.RoleMechanic, true)

	badLogin := models.LoginRequest{Email: "lockout@example.com", Password: "NotThePassword1!"}

	// Attempts before the last one count down remaining_attempts
	for i := 1; i < repository.MaxLoginAttempts; i++ {
		w := doRequest(t, tc, http.MethodPost, "/api/v1/auth/login", badLogin, "")
		require.Equal(t, http.StatusUnauthorized, w.Code)

		resp := decodeJSON[models.LoginFailureResponse](t, w)
		require.Equal(t, repository.MaxLoginAttempts-i, resp.RemainingAttempts)
	}

	// The final failure trips the lockout
	w := doRequest(t, tc, http.MethodPost, "/api/v1/auth/login", badLogin, "")
	require.Equal(t, http.StatusLocked, w.Code)

	locked := decodeJSON[models.AccountLockedResponse](t, w)
	require.Equal(t, "account is locked due to too many failed login attempts", locked.Error)
	require.Greater(t, locked.MinutesRemaining, 0)
	require.NotEmpty(t, locked.LockedUntil)

	// The correct password is rejected while the lock holds
	w = doRequest(t, tc, http.MethodPost, "/api/v1/auth/login",
		models.LoginRequest{Email: "lockout@example.com", Password: "CorrectHorse99!x"}, "")
	require.Equal(t, http.StatusLocked, w.Code)

	// The lockout is on the audit trail
	events, err := tc.EventRepo.GetByUserID(context.Background(), user.ID, repository.SecurityEventFilter{
		EventTypes: []models.SecurityEventType{models.EventAccountLocked},
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
}

func TestAuthHandler_LoginSuccessResetsCounter(t *testing.T) {
	tc := testutil.NewTestContext(t)
	tc.CreateTestUser("counter@example.com", "CorrectHorse99!x", models.RoleMechanic, true)

	badLogin := models.LoginRequest{Email: "counter@example.com", Password: "NotThePassword1!"}
	goodLogin := models.LoginRequest{Email: "counter@example.com", Password: "CorrectHorse99!x"}

	for i := 0; i < repository.MaxLoginAttempts-1; i++ {
		w := doRequest(t, tc, http.MethodPost, "/api/v1/auth/login", badLogin, "")
		require.Equal(t, http.StatusUnauthorized, w.Code)
	}

	// One attempt left, but a correct password clears the slate
	w := doRequest(t, tc, http.MethodPost, "/api/v1/auth/login", goodLogin, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, tc, http.MethodPost, "/api/v1/auth/login", badLogin, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	resp := decodeJSON[models.LoginFailureResponse](t, w)
	require.Equal(t, repository.MaxLoginAttempts-1, resp.RemainingAttempts)
}

func TestAuthHandler_LoginSingleSession(t *testing.T) {
	tc := testutil.NewTestContext(t)
	tc.Config.Auth.SingleSession = true

	user := tc.CreateTestUser("single@example.com", "CorrectHorse99!x", models.RoleMechanic, true)
	login := models.LoginRequest{Email: "single@example.com", Password: "CorrectHorse99!x"}

	w := doRequest(t, tc, http.MethodPost, "/api/v1/auth/login", login, "")
	require.Equal(t, http.StatusOK, w.Code)
	first := decodeJSON[models.AuthResponse](t, w)

	w = doRequest(t, tc, http.MethodPost, "/api/v1/auth/login", login, "")
	require.Equal(t, http.StatusOK, w.Code)
	second := decodeJSON[models.AuthResponse](t, w)

	// Only the newest session survives
	sessions, err := tc.SessionRepo.ListActiveByUserID(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.Equal(t, auth.HashToken(second.RefreshToken), sessions[0].RefreshTokenHash)

	// The kicked session can no longer refresh
	w = doRequest(t, tc, http.MethodPost, "/api/v1/auth/refresh",
		models.RefreshRequest{RefreshToken: first.RefreshToken}, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_Refresh(t *testing.T) {
	tc := testutil.NewTestContext(t)
	user := tc.CreateTestUser("refresh@example.com", "CorrectHorse99!x", models.RoleMechanic, true)
	pair, _ := tc.OpenTestSession(user)

	w := doRequest(t, tc, http.MethodPost, "/api/v1/auth/refresh",
		models.RefreshRequest{RefreshToken: pair.RefreshToken}, "")
	require.Equal(t, http.StatusOK, w.Code)

	rotated := decodeJSON[models.TokenPairResponse](t, w)
	require.NotEmpty(t, rotated.AccessToken)
	require.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	// The session row was swapped to the new token
	sessions, err := tc.SessionRepo.ListActiveByUserID(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.Equal(t, auth.HashToken(rotated.RefreshToken), sessions[0].RefreshTokenHash)

	// Replaying the rotated-out token fails
	w = doRequest(t, tc, http.MethodPost, "/api/v1/auth/refresh",
		models.RefreshRequest{RefreshToken: pair.RefreshToken}, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	resp := decodeJSON[models.ErrorResponse](t, w)
	require.Equal(t, "invalid or expired refresh token", resp.Error)

	// The replacement still works
	w = doRequest(t, tc, http.MethodPost, "/api/v1/auth/refresh",
		models.RefreshRequest{RefreshToken: rotated.RefreshToken}, "")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestAuthHandler_RefreshRejectsBadTokens(t *testing.T) {
	tc := testutil.NewTestContext(t)
	user := tc.CreateTestUser("badref@example.com", "CorrectHorse99!x", models.RoleMechanic, true)

	// An access token is not accepted in place of a refresh token
	access := tc.GetTestJWT(user)
	w := doRequest(t, tc, http.MethodPost, "/api/v1/auth/refresh",
		models.RefreshRequest{RefreshToken: access}, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// Neither is garbage
	w = doRequest(t, tc, http.MethodPost, "/api/v1/auth/refresh",
		models.RefreshRequest{RefreshToken: "not-a-jwt"}, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// A valid token without a live session row is rejected too
	pair, session := tc.OpenTestSession(user)
	require.NoError(t, tc.SessionRepo.Deactivate(context.Background(), session.ID))
	w = doRequest(t, tc, http.MethodPost, "/api/v1/auth/refresh",
		models.RefreshRequest{RefreshToken: pair.RefreshToken}, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_Logout(t *testing.T) {
	tc := testutil.NewTestContext(t)
	user := tc.CreateTestUser("logout@example.com", "CorrectHorse99!x", models.RoleMechanic, true)
	pair, session := tc.OpenTestSession(user)

	w := doRequest(t, tc, http.MethodPost, "/api/v1/auth/logout",
		models.LogoutRequest{RefreshToken: pair.RefreshToken}, pair.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)

	// The session is deactivated and the refresh token is dead
	_, err := tc.SessionRepo.GetByTokenHash(context.Background(), session.RefreshTokenHash)
	require.ErrorIs(t, err, repository.ErrSessionInactive)

	w = doRequest(t, tc, http.MethodPost, "/api/v1/auth/refresh",
		models.RefreshRequest{RefreshToken: pair.RefreshToken}, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_LogoutRequiresAuth(t *testing.T) {
	tc := testutil.NewTestContext(t)

	w := doRequest(t, tc, http.MethodPost, "/api/v1/auth/logout",
		models.LogoutRequest{RefreshToken: "whatever"}, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_LogoutAll(t *testing.T) {
	tc := testutil.NewTestContext(t)
	user := tc.CreateTestUser("everywhere@example.com", "CorrectHorse99!x", models.RoleMechanic, true)

	first, _ := tc.OpenTestSession(user)
	second, _ := tc.OpenTestSession(user)

	w := doRequest(t, tc, http.MethodPost, "/api/v1/auth/logout-all", nil, first.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)

	sessions, err := tc.SessionRepo.ListActiveByUserID(context.Background(), user.ID)
	require.NoError(t, err)
	require.Empty(t, sessions)

	for _, pair := range []*auth.TokenPair{first, second} {
		w = doRequest(t, tc, http.MethodPost, "/api/v1/auth/refresh",
			models.RefreshRequest{RefreshToken: pair.RefreshToken}, "")
		require.Equal(t, http.StatusUnauthorized, w.Code)
	}
}

func TestAuthHandler_ForgotPassword(t *testing.T) {
	tc := testutil.NewTestContext(t)
	tc.CreateTestUser("forgot@example.com", "CorrectHorse99!x", models.RoleMechanic, true)

	ack := "if the email exists, a reset link will be sent"

	// Known account: acknowledged, email recorded
	w := doRequest(t, tc, http.MethodPost, "/api/v1/auth/forgot-password",
		models.ForgotPasswordRequest{Email: "forgot@example.com"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, ack, decodeJSON[models.SuccessResponse](t, w).Message)
	require.NotEmpty(t, tc.EmailService.WaitForToken("forgot@example.com", "reset", ""))

	// Unknown account: the identical acknowledgement, no email
	w = doRequest(t, tc, http.MethodPost, "/api/v1/auth/forgot-password",
		models.ForgotPasswordRequest{Email: "nobody@example.com"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, ack, decodeJSON[models.SuccessResponse](t, w).Message)
	require.Empty(t, tc.EmailService.LastToken("nobody@example.com", "reset"))
}

func TestAuthHandler_ResetPassword(t *testing.T) {
	tc := testutil.NewTestContext(t)
	user := tc.CreateTestUser("reset@example.com", "CorrectHorse99!x", models.RoleMechanic, true)
	pair, _ := tc.OpenTestSession(user)

	w := doRequest(t, tc, http.MethodPost, "/api/v1/auth/forgot-password",
		models.ForgotPasswordRequest{Email: "reset@example.com"}, "")
	require.Equal(t, http.StatusOK, w.Code)

	token := tc.EmailService.WaitForToken("reset@example.com", "reset", "")
	require.NotEmpty(t, token)

	// A weak replacement is rejected without consuming the token
	w = doRequest(t, tc, http.MethodPost, "/api/v1/auth/reset-password",
		models.ResetPasswordRequest{Token: token, NewPassword: "password123"}, "")
	require.Equal(t, http.StatusBadRequest, w.Code)

	// Reusing the current password is rejected
	w = doRequest(t, tc, http.MethodPost, "/api/v1/auth/reset-password",
		models.ResetPasswordRequest{Token: token, NewPassword: "CorrectHorse99!x"}, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "cannot reuse recent passwords", decodeJSON[models.ErrorResponse](t, w).Error)

	w = doRequest(t, tc, http.MethodPost, "/api/v1/auth/reset-password",
		models.ResetPasswordRequest{Token: token, NewPassword: "FreshStart2026!x"}, "")
	require.Equal(t, http.StatusOK, w.Code)

	// Old password out, new password in
	w = doRequest(t, tc, http.MethodPost, "/api/v1/auth/login",
		models.LoginRequest{Email: "reset@example.com", Password: "CorrectHorse99!x"}, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(t, tc, http.MethodPost, "/api/v1/auth/login",
		models.LoginRequest{Email: "reset@example.com", Password: "FreshStart2026!x"}, "")
	require.Equal(t, http.StatusOK, w.Code)

	// The pre-reset session was revoked
	w = doRequest(t, tc, http.MethodPost, "/api/v1/auth/refresh",
		models.RefreshRequest{RefreshToken: pair.RefreshToken}, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// The token was single-use
	w = doRequest(t, tc, http.MethodPost, "/api/v1/auth/reset-password",
		models.ResetPasswordRequest{Token: token, NewPassword: "DifferentAgain3!x"}, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "invalid reset token", decodeJSON[models.ErrorResponse](t, w).Error)

	// A confirmation email went out
	require.True(t, tc.EmailService.WaitForEmail("reset@example.com", "changed"))
}

func TestAuthHandler_ResetPasswordExpiredToken(t *testing.T) {
	tc := testutil.NewTestContext(t)
	tc.CreateTestUser("stale@example.com", "CorrectHorse99!x", models.RoleMechanic, true)

	w := doRequest(t, tc, http.MethodPost, "/api/v1/auth/forgot-password",
		models.ForgotPasswordRequest{Email: "stale@example.com"}, "")
	require.Equal(t, http.StatusOK, w.Code)

	token := tc.EmailService.WaitForToken("stale@example.com", "reset", "")
	require.NotEmpty(t, token)

	_, err := tc.DB.Exec("UPDATE password_resets SET expires_at = NOW() - INTERVAL '1 hour'")
	require.NoError(t, err)

	w = doRequest(t, tc, http.MethodPost, "/api/v1/auth/reset-password",
		models.ResetPasswordRequest{Token: token, NewPassword: "FreshStart2026!x"}, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "reset token has expired", decodeJSON[models.ErrorResponse](t, w).Error)
}

func TestAuthHandler_ChangePassword(t *testing.T) {
	tc := testutil.NewTestContext(t)
	user := tc.CreateTestUser("change@example.com", "CorrectHorse99!x", models.RoleMechanic, true)
	pair, _ := tc.OpenTestSession(user)

	// Wrong current password
	w := doRequest(t, tc, http.MethodPost, "/api/v1/auth/change-password",
		models.ChangePasswordRequest{CurrentPassword: "NotThePassword1!", NewPassword: "FreshStart2026!x"},
		pair.AccessToken)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "current password is incorrect", decodeJSON[models.ErrorResponse](t, w).Error)

	// Weak replacement
	w = doRequest(t, tc, http.MethodPost, "/api/v1/auth/change-password",
		models.ChangePasswordRequest{CurrentPassword: "CorrectHorse99!x", NewPassword: "password123"},
		pair.AccessToken)
	require.Equal(t, http.StatusBadRequest, w.Code)

	// Success
	w = doRequest(t, tc, http.MethodPost, "/api/v1/auth/change-password",
		models.ChangePasswordRequest{CurrentPassword: "CorrectHorse99!x", NewPassword: "FreshStart2026!x"},
		pair.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)

	// Every session was kicked
	sessions, err := tc.SessionRepo.ListActiveByUserID(context.Background(), user.ID)
	require.NoError(t, err)
	require.Empty(t, sessions)

	w = doRequest(t, tc, http.MethodPost, "/api/v1/auth/login",
		models.LoginRequest{Email: "change@example.com", Password: "FreshStart2026!x"}, "")
	require.Equal(t, http.StatusOK, w.Code)

	events, err := tc.EventRepo.GetByUserID(context.Background(), user.ID, repository.SecurityEventFilter{
		EventTypes: []models.SecurityEventType{models.EventPasswordChanged},
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
}

func TestAuthHandler_VerifyEmail(t *testing.T) {
	tc := testutil.NewTestContext(t)
	user := tc.CreateTestUser("verify@example.com", "CorrectHorse99!x", models.RoleMechanic, false)

	w := doRequest(t, tc, http.MethodPost, "/api/v1/auth/resend-verification",
		models.ResendVerificationRequest{Email: "verify@example.com"}, "")
	require.Equal(t, http.StatusOK, w.Code)

	token := tc.EmailService.WaitForToken("verify@example.com", "verification", "")
	require.NotEmpty(t, token)

	w = doRequest(t, tc, http.MethodPost, "/api/v1/auth/verify-email",
		models.VerifyEmailRequest{Token: token}, "")
	require.Equal(t, http.StatusOK, w.Code)

	updated, err := tc.UserRepo.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.True(t, updated.EmailVerified)

	// The token was consumed
	w = doRequest(t, tc, http.MethodPost, "/api/v1/auth/verify-email",
		models.VerifyEmailRequest{Token: token}, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "invalid verification token", decodeJSON[models.ErrorResponse](t, w).Error)
}

func TestAuthHandler_VerifyEmailInvalidToken(t *testing.T) {
	tc := testutil.NewTestContext(t)

	w := doRequest(t, tc, http.MethodPost, "/api/v1/auth/verify-email",
		models.VerifyEmailRequest{Token: "0123456789abcdef"}, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "invalid verification token", decodeJSON[models.ErrorResponse](t, w).Error)
}

func TestAuthHandler_ResendVerification(t *testing.T) {
	tc := testutil.NewTestContext(t)
	tc.CreateTestUser("already@example.com", "CorrectHorse99!x", models.RoleMechanic, true)

	// Already-verified accounts get the uniform acknowledgement, with no
	// email behind it, so the response never confirms an address exists
	w := doRequest(t, tc, http.MethodPost, "/api/v1/auth/resend-verification",
		models.ResendVerificationRequest{Email: "already@example.com"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	verifiedAck := decodeJSON[models.SuccessResponse](t, w)
	require.Empty(t, tc.EmailService.LastToken("already@example.com", "verification"))

	// Unknown addresses get the same acknowledgement
	w = doRequest(t, tc, http.MethodPost, "/api/v1/auth/resend-verification",
		models.ResendVerificationRequest{Email: "nobody@example.com"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, verifiedAck, decodeJSON[models.SuccessResponse](t, w))
}

func TestAuthHandler_ResendVerificationInvalidatesPrior(t *testing.T) {
	tc := testutil.NewTestContext(t)
	user := tc.CreateTestUser("reissue@example.com", "CorrectHorse99!x", models.RoleMechanic, false)

	resend := models.ResendVerificationRequest{Email: "reissue@example.com"}

	w := doRequest(t, tc, http.MethodPost, "/api/v1/auth/resend-verification", resend, "")
	require.Equal(t, http.StatusOK, w.Code)
	first := tc.EmailService.WaitForToken("reissue@example.com", "verification", "")

	w = doRequest(t, tc, http.MethodPost, "/api/v1/auth/resend-verification", resend, "")
	require.Equal(t, http.StatusOK, w.Code)
	second := tc.EmailService.WaitForToken("reissue@example.com", "verification", first)
	require.NotEqual(t, first, second)

	// Only the newest token verifies
	w = doRequest(t, tc, http.MethodPost, "/api/v1/auth/verify-email",
		models.VerifyEmailRequest{Token: first}, "")
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, tc, http.MethodPost, "/api/v1/auth/verify-email",
		models.VerifyEmailRequest{Token: second}, "")
	require.Equal(t, http.StatusOK, w.Code)

	updated, err := tc.UserRepo.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.True(t, updated.EmailVerified)
}

func TestAuthHandler_CheckPasswordStrength(t *testing.T) {
	tests := []struct {
		name         string
		password     string
		wantStrength string
		wantValid    bool
	}{
		{"Strong", "CorrectHorse99!x", "strong", true},
		{"Medium", "Summer2024", "medium", true},
		{"Weak Common", "password123", "weak", false},
		{"Too Short", "Ab1", "medium", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := testutil.NewTestContext(t)

			w := doRequest(t, tc, http.MethodPost, "/api/v1/auth/password-strength",
				map[string]string{"password": tt.password}, "")
			require.Equal(t, http.StatusOK, w.Code)

			result := decodeJSON[auth.StrengthResult](t, w)
			require.Equal(t, tt.wantStrength, result.Strength)
			require.Equal(t, tt.wantValid, result.IsValid)
		})
	}
}

func TestAuthHandler_Me(t *testing.T) {
	tc := testutil.NewTestContext(t)
	user := tc.CreateTestUser("me@example.com", "CorrectHorse99!x", models.RoleMechanic, true)

	w := doRequest(t, tc, http.MethodGet, "/api/v1/auth/me", nil, tc.GetTestJWT(user))
	require.Equal(t, http.StatusOK, w.Code)

	me := decodeJSON[models.User](t, w)
	require.Equal(t, user.ID, me.ID)
	require.Equal(t, "me@example.com", me.Email)

	w = doRequest(t, tc, http.MethodGet, "/api/v1/auth/me", nil, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
