package rest

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swiftwave-org/swctl/pkg/log"
)

const testBase = "http://swiftwave.test"

func newTestClient(t *testing.T) (*Client, *httpmock.MockTransport, *log.TestLogger) {
	t.Helper()
	mock := httpmock.NewMockTransport()
	logger := log.NewTestLogger()
	c, err := NewClient(&ClientOptions{BaseURL: testBase + "/", Transport: mock, Logger: logger})
	require.NoError(t, err)
	return c, mock, logger
}

func TestNewClientRejectsBadBaseURL(t *testing.T) {
	_, err := NewClient(&ClientOptions{BaseURL: "not a url"})
	assert.Error(t, err)
}

func TestLogin(t *testing.T) {
	c, mock, _ := newTestClient(t)

	mock.RegisterResponder(http.MethodPost, testBase+"/auth/login",
		func(req *http.Request) (*http.Response, error) {
			if err := req.ParseForm(); err != nil {
				return httpmock.NewStringResponse(http.StatusBadRequest, `{"message":"bad form"}`), nil
			}
			if req.PostForm.Get("username") != "admin" || req.PostForm.Get("password") != "secret" {
				return httpmock.NewStringResponse(http.StatusUnauthorized, `{"message":"invalid credentials"}`), nil
			}
			if req.PostForm.Get("totp") == "" {
				return httpmock.NewStringResponse(http.StatusUnauthorized,
					`{"message":"totp required","totp_required":true}`), nil
			}
			return httpmock.NewStringResponse(http.StatusOK, `{"token":"jwt-token"}`), nil
		})

	token, err := c.Login(context.Background(), "admin", "secret", "123456")
	require.NoError(t, err)
	assert.Equal(t, "jwt-token", token)

	_, err = c.Login(context.Background(), "admin", "secret", "")
	rerr, ok := AsResponseError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, rerr.StatusCode)
	assert.Equal(t, "totp required", rerr.Message)
	assert.True(t, rerr.TOTPRequired)
	assert.False(t, IsNetworkError(err))

	_, err = c.Login(context.Background(), "admin", "wrong", "123456")
	rerr, ok = AsResponseError(err)
	require.True(t, ok)
	assert.Equal(t, "invalid credentials", rerr.Message)
	assert.False(t, rerr.TOTPRequired)
}

func TestLoginInvalidResponseBody(t *testing.T) {
	for name, body := range map[string]string{
		"malformed": `<html>proxy</html>`,
		"no token":  `{"token":""}`,
	} {
		t.Run(name, func(t *testing.T) {
			c, mock, _ := newTestClient(t)
			mock.RegisterResponder(http.MethodPost, testBase+"/auth/login",
				httpmock.NewStringResponder(http.StatusOK, body))

			_, err := c.Login(context.Background(), "admin", "secret", "")
			rerr, ok := AsResponseError(err)
			require.True(t, ok)
			assert.Equal(t, http.StatusOK, rerr.StatusCode)
			assert.Equal(t, MessageInvalidLoginResponse, rerr.Message)
			assert.False(t, IsNetworkError(err))
		})
	}
}

func TestLoginNetworkFailure(t *testing.T) {
	c, mock, _ := newTestClient(t)
	mock.RegisterResponder(http.MethodPost, testBase+"/auth/login",
		httpmock.NewErrorResponder(errors.New("connection refused")))

	_, err := c.Login(context.Background(), "admin", "secret", "")
	require.Error(t, err)
	assert.True(t, IsNetworkError(err))
	_, ok := AsResponseError(err)
	assert.False(t, ok)
}

func TestVerifyAuth(t *testing.T) {
	c, mock, _ := newTestClient(t)

	mock.RegisterResponder(http.MethodGet, testBase+"/verify-auth",
		func(req *http.Request) (*http.Response, error) {
			if req.Header.Get("Authorization") == "Bearer good" {
				return httpmock.NewStringResponse(http.StatusOK, ""), nil
			}
			return httpmock.NewStringResponse(http.StatusUnauthorized, ""), nil
		})

	assert.NoError(t, c.VerifyAuth(context.Background(), "good"))

	err := c.VerifyAuth(context.Background(), "expired")
	rerr, ok := AsResponseError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, rerr.StatusCode)
}

func TestVerifyAuthRequiresExactlyOK(t *testing.T) {
	c, mock, _ := newTestClient(t)
	mock.RegisterResponder(http.MethodGet, testBase+"/verify-auth",
		httpmock.NewStringResponder(http.StatusNoContent, ""))

	err := c.VerifyAuth(context.Background(), "token")
	assert.Error(t, err)
	assert.False(t, IsNetworkError(err))
}

func TestVersion(t *testing.T) {
	c, mock, _ := newTestClient(t)

	mock.RegisterResponder(http.MethodGet, testBase+"/version",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "Bearer tok", req.Header.Get("Authorization"))
			return httpmock.NewStringResponse(http.StatusOK, `"v2.2.1"`), nil
		})

	v, err := c.Version(context.Background(), "Bearer tok")
	require.NoError(t, err)
	assert.Equal(t, "v2.2.1", v)

	mock.RegisterResponder(http.MethodGet, testBase+"/version",
		httpmock.NewStringResponder(http.StatusOK, "v2.2.2\n"))
	v, err = c.Version(context.Background(), "Bearer tok")
	require.NoError(t, err)
	assert.Equal(t, "v2.2.2", v)
}

func TestHealthcheck(t *testing.T) {
	c, mock, _ := newTestClient(t)

	mock.RegisterResponder(http.MethodGet, testBase+"/healthcheck",
		httpmock.NewStringResponder(http.StatusOK, "OK"))
	assert.NoError(t, c.Healthcheck(context.Background()))

	mock.RegisterResponder(http.MethodGet, testBase+"/healthcheck",
		httpmock.NewStringResponder(http.StatusServiceUnavailable, "down"))
	err := c.Healthcheck(context.Background())
	rerr, ok := AsResponseError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusServiceUnavailable, rerr.StatusCode)
	assert.Empty(t, rerr.Message)
}

func TestRequestsCarryUserAgentAndAreLogged(t *testing.T) {
	c, mock, logger := newTestClient(t)

	mock.RegisterResponder(http.MethodGet, testBase+"/healthcheck",
		func(req *http.Request) (*http.Response, error) {
			assert.Contains(t, req.Header.Get("User-Agent"), "swctl/")
			return httpmock.NewStringResponse(http.StatusOK, "OK"), nil
		})

	require.NoError(t, c.Healthcheck(context.Background()))
	assert.True(t, logger.AssertLoggedWithField(log.DebugLevel, "HTTP request", "path", "/healthcheck"))
	assert.Equal(t, 1, mock.GetCallCountInfo()["GET "+testBase+"/healthcheck"])
}
