package auth

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freeRedirectURL(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return "http://" + addr
}

// browserThatApproves plays the user: it follows the authorization URL back
// to the redirect target with the given code or error.
func browserThatApproves(t *testing.T, query func(state string) url.Values) Navigator {
	return func(authURL string) error {
		u, err := url.Parse(authURL)
		if err != nil {
			return err
		}
		redirect := u.Query().Get("redirect_uri")
		q := query(u.Query().Get("state"))

		go func() {
			resp, err := http.Get(redirect + "/?" + q.Encode())
			if err != nil {
				t.Logf("callback request failed: %v", err)
				return
			}
			resp.Body.Close()
		}()
		return nil
	}
}

func newAuthorizeManager(t *testing.T, ts *tokenServer, nav Navigator) (*Manager, *CredentialStore) {
	t.Helper()

	m, creds, _ := newTestManager(t, ts, "secret")
	m.oauth.RedirectURL = freeRedirectURL(t)
	m.navigate = nav
	return m, creds
}

func TestAuthorizeCompletesFlow(t *testing.T) {
	ts := newTokenServer(t)
	m, creds := newAuthorizeManager(t, ts, browserThatApproves(t, func(state string) url.Values {
		return url.Values{"code": {"code-42"}, "state": {state}, "scope": {Scope}}
	}))

	require.NoError(t, Authorize(context.Background(), m))

	calls := ts.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "code-42", calls[0].Get("code"))
	assert.Equal(t, m.RedirectURL(), calls[0].Get("redirect_uri"))

	cred, err := creds.Load()
	require.NoError(t, err)
	assert.Equal(t, "access-new", cred.AccessToken)
}

func TestAuthorizeRejectsStateMismatch(t *testing.T) {
	ts := newTokenServer(t)
	m, creds := newAuthorizeManager(t, ts, browserThatApproves(t, func(string) url.Values {
		return url.Values{"code": {"code-42"}, "state": {"forged"}}
	}))

	err := Authorize(context.Background(), m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "state mismatch")
	assert.Empty(t, ts.calls())

	_, err = creds.Load()
	assert.ErrorIs(t, err, ErrNoCredential)
}

func TestAuthorizeUserDenied(t *testing.T) {
	ts := newTokenServer(t)
	m, _ := newAuthorizeManager(t, ts, browserThatApproves(t, func(state string) url.Values {
		return url.Values{"error": {"access_denied"}, "state": {state}}
	}))

	err := Authorize(context.Background(), m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access_denied")
	assert.Empty(t, ts.calls())
}

func TestAuthorizeCancelled(t *testing.T) {
	ts := newTokenServer(t)
	ctx, cancel := context.WithCancel(context.Background())

	m, _ := newAuthorizeManager(t, ts, func(string) error {
		cancel()
		return nil
	})

	err := Authorize(ctx, m)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAuthorizeInvalidRedirect(t *testing.T) {
	ts := newTokenServer(t)
	m, _, _ := newTestManager(t, ts, "secret")
	m.oauth.RedirectURL = "not a url"

	err := Authorize(context.Background(), m)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestCallbackListener(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantCode int
		wantRes  bool
	}{
		{"bare visit", "", http.StatusNotFound, false},
		{"state mismatch", "?code=c&state=other", http.StatusBadRequest, true},
		{"denied", "?error=access_denied&state=s1", http.StatusBadRequest, true},
		{"missing code", "?state=s1", http.StatusBadRequest, true},
		{"approved", "?code=c&state=s1", http.StatusOK, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newCallbackListener("/", "s1")
			rec := httptest.NewRecorder()
			l.handle(rec, httptest.NewRequest(http.MethodGet, "/"+tt.query, nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			select {
			case res := <-l.result:
				require.True(t, tt.wantRes, "unexpected result %+v", res)
				if tt.wantCode == http.StatusOK {
					assert.Equal(t, "c", res.code)
					assert.NoError(t, res.err)
				} else {
					assert.Error(t, res.err)
				}
			default:
				assert.False(t, tt.wantRes, "expected a result")
			}
		})
	}
}

func TestCallbackListenerKeepsFirstResult(t *testing.T) {
	l := newCallbackListener("/", "s1")
	l.handle(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/?code=first&state=s1", nil))
	l.handle(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/?code=second&state=s1", nil))

	res := <-l.result
	assert.Equal(t, "first", res.code)
}

func ExampleManager_AuthorizationURL() {
	m := NewManager(NewOAuthConfig(Config{
		ClientID:    "123",
		RedirectURL: "http://localhost:8089",
	}), nil)

	fmt.Println(m.AuthorizationURL("state"))
	// Output: https://www.strava.com/oauth/authorize?client_id=123&redirect_uri=http%3A%2F%2Flocalhost%3A8089&response_type=code&scope=read%2Cprofile%3Aread_all%2Cactivity%3Aread_all&state=state
}
