package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helix/internal/auth"
	"helix/internal/testing/mock"
)

type countingClearer struct {
	clears int
}

func (c *countingClearer) Clear() { c.clears++ }

func newManager(t *testing.T, identity *mock.IdentityClient, opts ...auth.LoginOption) *auth.LoginManager {
	t.Helper()
	m, err := auth.NewLoginManager(identity, []string{"User.Read"}, opts...)
	require.NoError(t, err)
	return m
}

func TestNewLoginManager_RequiresIdentity(t *testing.T) {
	_, err := auth.NewLoginManager(nil, nil)
	require.Error(t, err)
}

func TestLoginManager_PollWithoutStart(t *testing.T) {
	m := newManager(t, mock.NewIdentityClient())
	assert.Equal(t, auth.LoginNotStarted, m.Poll().Status)
}

func TestLoginManager_StartIssuesDeviceCode(t *testing.T) {
	identity := mock.NewIdentityClient()
	m := newManager(t, identity)

	res, err := m.Start(context.Background())
	require.NoError(t, err)
	assert.False(t, res.AlreadyAuthenticated)
	assert.Equal(t, "CODE-1", res.UserCode)
	assert.Equal(t, "https://microsoft.com/devicelogin", res.VerificationURL)
	assert.NotEmpty(t, res.AttemptID)

	poll := m.Poll()
	assert.Equal(t, auth.LoginPending, poll.Status)
	assert.Equal(t, res.AttemptID, poll.AttemptID)
}

func TestLoginManager_SuccessIsReportedOnce(t *testing.T) {
	identity := mock.NewIdentityClient()
	m := newManager(t, identity)

	_, err := m.Start(context.Background())
	require.NoError(t, err)

	identity.Flows()[0].Succeed(
		auth.Account{HomeAccountID: "u", Username: "adele@contoso.com"},
		auth.Token{Value: "t", ExpiresAt: time.Now().Add(time.Hour)},
	)

	var poll auth.PollResult
	require.Eventually(t, func() bool {
		poll = m.Poll()
		return poll.Status != auth.LoginPending
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, auth.LoginSucceeded, poll.Status)
	assert.Equal(t, "adele@contoso.com", poll.Account)

	assert.Equal(t, auth.LoginNotStarted, m.Poll().Status)
}

func TestLoginManager_FailureIsReportedOnce(t *testing.T) {
	identity := mock.NewIdentityClient()
	m := newManager(t, identity)

	_, err := m.Start(context.Background())
	require.NoError(t, err)

	declined := errors.New("authorization_declined")
	identity.Flows()[0].Fail(declined)

	var poll auth.PollResult
	require.Eventually(t, func() bool {
		poll = m.Poll()
		return poll.Status != auth.LoginPending
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, auth.LoginFailed, poll.Status)
	assert.ErrorIs(t, poll.Err, declined)
	assert.Equal(t, auth.LoginNotStarted, m.Poll().Status)
}

func TestLoginManager_SecondStartSupersedesFirst(t *testing.T) {
	identity := mock.NewIdentityClient()
	m := newManager(t, identity)

	first, err := m.Start(context.Background())
	require.NoError(t, err)
	second, err := m.Start(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "CODE-1", first.UserCode)
	assert.Equal(t, "CODE-2", second.UserCode)
	assert.NotEqual(t, first.AttemptID, second.AttemptID)

	// Completing the abandoned flow must not leak into the current attempt.
	flows := identity.Flows()
	require.Len(t, flows, 2)
	flows[0].Fail(errors.New("expired_token"))

	assert.Never(t, func() bool {
		return m.Poll().Status != auth.LoginPending
	}, 50*time.Millisecond, 5*time.Millisecond)
	assert.Equal(t, second.AttemptID, m.Poll().AttemptID)

	flows[1].Succeed(auth.Account{HomeAccountID: "u", Username: "adele@contoso.com"}, auth.Token{Value: "t"})
	res, err := m.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, auth.LoginSucceeded, res.Status)
	assert.Equal(t, second.AttemptID, res.AttemptID)
}

func TestLoginManager_WaitReportsItsOwnAttempt(t *testing.T) {
	identity := mock.NewIdentityClient()
	m := newManager(t, identity)

	first, err := m.Start(context.Background())
	require.NoError(t, err)

	secondID := make(chan string, 1)
	go func() {
		time.Sleep(20 * time.Millisecond)
		second, err := m.Start(context.Background())
		if err != nil {
			secondID <- ""
			return
		}
		secondID <- second.AttemptID
		identity.Flows()[0].Succeed(auth.Account{HomeAccountID: "u", Username: "adele@contoso.com"}, auth.Token{Value: "t"})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	res, err := m.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, auth.LoginSucceeded, res.Status)
	assert.Equal(t, first.AttemptID, res.AttemptID)
	assert.Equal(t, "adele@contoso.com", res.Account)

	// The replacing attempt is still pending and was not consumed.
	id := <-secondID
	require.NotEmpty(t, id)
	poll := m.Poll()
	assert.Equal(t, auth.LoginPending, poll.Status)
	assert.Equal(t, id, poll.AttemptID)
}

func TestLoginManager_StartWhenAlreadyAuthenticated(t *testing.T) {
	identity := mock.NewIdentityClient(auth.Account{HomeAccountID: "u", Username: "adele@contoso.com"})
	identity.SetSilent(func([]string, auth.Account) auth.SilentResult {
		return auth.Fresh(auth.Token{Value: "t", ExpiresAt: time.Now().Add(time.Hour)})
	})
	m := newManager(t, identity)

	res, err := m.Start(context.Background())
	require.NoError(t, err)
	assert.True(t, res.AlreadyAuthenticated)
	assert.Equal(t, "adele@contoso.com", res.Account)
	assert.Empty(t, identity.Flows())
	assert.Equal(t, auth.LoginNotStarted, m.Poll().Status)
}

func TestLoginManager_StartWithStaleAccountIssuesCode(t *testing.T) {
	identity := mock.NewIdentityClient(auth.Account{HomeAccountID: "u", Username: "adele@contoso.com"})
	m := newManager(t, identity)

	res, err := m.Start(context.Background())
	require.NoError(t, err)
	assert.False(t, res.AlreadyAuthenticated)
	assert.Len(t, identity.Flows(), 1)
}

func TestLoginManager_StartError(t *testing.T) {
	identity := mock.NewIdentityClient()
	identity.SetStartError(errors.New("AADSTS700016: application not found"))
	m := newManager(t, identity)

	_, err := m.Start(context.Background())
	var acqErr *auth.TokenAcquisitionError
	require.ErrorAs(t, err, &acqErr)
	assert.Equal(t, auth.KindInteractive, acqErr.Strategy)
	assert.Equal(t, auth.LoginNotStarted, m.Poll().Status)
}

func TestLoginManager_FlowOutlivesStartContext(t *testing.T) {
	identity := mock.NewIdentityClient()
	m := newManager(t, identity)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := m.Start(ctx)
	require.NoError(t, err)
	cancel()

	assert.Equal(t, auth.LoginPending, m.Poll().Status)

	identity.Flows()[0].Succeed(auth.Account{HomeAccountID: "u", Username: "adele@contoso.com"}, auth.Token{Value: "t"})
	res, err := m.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, auth.LoginSucceeded, res.Status)
}

func TestLoginManager_WaitHonoursContext(t *testing.T) {
	identity := mock.NewIdentityClient()
	m := newManager(t, identity)

	res, err := m.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, auth.LoginNotStarted, res.Status)

	_, err = m.Start(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	res, err = m.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, auth.LoginPending, res.Status)
}

func TestLoginManager_LogoutWithoutAccounts(t *testing.T) {
	clearer := &countingClearer{}
	m := newManager(t, mock.NewIdentityClient(), auth.WithCacheClearer(clearer))

	res := m.Logout(context.Background())
	assert.Equal(t, 0, res.Removed)
	assert.Empty(t, res.Accounts)
	assert.Equal(t, 1, clearer.clears)
}

func TestLoginManager_LogoutRemovesAccounts(t *testing.T) {
	identity := mock.NewIdentityClient(
		auth.Account{HomeAccountID: "a", Username: "adele@contoso.com"},
		auth.Account{HomeAccountID: "b", Username: "alex@contoso.com"},
		auth.Account{HomeAccountID: "c", Username: "megan@contoso.com"},
	)
	identity.SetRemoveError("alex@contoso.com", errors.New("cache write failed"))

	clearer := &countingClearer{}
	hooked := 0
	m := newManager(t, identity,
		auth.WithCacheClearer(clearer),
		auth.WithLogoutHook(func() { hooked++ }),
	)

	_, err := m.Start(context.Background())
	require.NoError(t, err)

	res := m.Logout(context.Background())
	assert.Equal(t, 2, res.Removed)
	assert.Equal(t, []string{"adele@contoso.com", "megan@contoso.com"}, res.Accounts)
	assert.Equal(t, 1, clearer.clears)
	assert.Equal(t, 1, hooked)

	// Logout abandons the pending attempt.
	assert.Equal(t, auth.LoginNotStarted, m.Poll().Status)
}

func TestLoginManager_LogoutSurvivesAccountListingFailure(t *testing.T) {
	identity := mock.NewIdentityClient()
	identity.SetAccountsError(errors.New("cache unreadable"))
	clearer := &countingClearer{}
	m := newManager(t, identity, auth.WithCacheClearer(clearer))

	res := m.Logout(context.Background())
	assert.Equal(t, 0, res.Removed)
	assert.Equal(t, 1, clearer.clears)
}

func TestLoginStatus_String(t *testing.T) {
	assert.Equal(t, "not_started", auth.LoginNotStarted.String())
	assert.Equal(t, "pending", auth.LoginPending.String())
	assert.Equal(t, "succeeded", auth.LoginSucceeded.String())
	assert.Equal(t, "failed", auth.LoginFailed.String())
}
