// Package testbackend is an in-process SwiftWave backend for tests. It serves
// the REST auth endpoints and a GraphQL endpoint over HTTP and
// graphql-transport-ws, backed by in-memory fixtures.
package testbackend

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/swiftwave-org/swctl/pkg/types"
)

// Request is a recorded GraphQL operation.
type Request struct {
	RootField     string
	Query         string
	Variables     map[string]json.RawMessage
	Authorization string
}

// Backend is the fake server. Exported fixture fields may be set before the
// first request; use Lock/Unlock to change them afterwards.
type Backend struct {
	*httptest.Server

	mu sync.Mutex

	Username string
	Password string
	// TOTP is required at login when non-empty.
	TOTP    string
	Token   string
	Version string

	// Down makes /verify-auth and /version drop the connection.
	Down bool

	Applications map[string]*types.Application
	Deployments  map[string][]types.Deployment
	Logs         map[string][]types.DeploymentLog
	Servers      []types.Server
	Domains      []types.Domain
	GitCreds     []types.GitCredential
	RegistryCred []types.ImageRegistryCredential
	Volumes      []types.PersistentVolume

	// UpdateError makes updateApplication fail with this message.
	UpdateError string

	requests []Request
	inputs   []types.ApplicationInput
}

// New starts a backend with one user (admin/secret) and one application.
func New(t testing.TB) *Backend {
	t.Helper()

	b := &Backend{
		Username:     "admin",
		Password:     "secret",
		Token:        NewToken("admin", time.Now().Add(3*time.Hour)),
		Version:      "v2.2.0",
		Applications: map[string]*types.Application{},
		Deployments:  map[string][]types.Deployment{},
		Logs:         map[string][]types.DeploymentLog{},
	}
	b.Applications["app-1"] = SampleApplication("app-1", "web")

	r := mux.NewRouter()
	r.HandleFunc("/healthcheck", b.healthcheck).Methods(http.MethodGet)
	r.HandleFunc("/version", b.version).Methods(http.MethodGet)
	r.HandleFunc("/auth/login", b.login).Methods(http.MethodPost)
	r.HandleFunc("/verify-auth", b.verifyAuth).Methods(http.MethodGet)
	r.HandleFunc("/graphql", b.graphqlWS).Headers("Upgrade", "websocket")
	r.HandleFunc("/graphql", b.graphqlHTTP).Methods(http.MethodPost)

	b.Server = httptest.NewServer(r)
	t.Cleanup(b.Close)
	return b
}

// NewToken builds an unsigned-looking JWT carrying username and exp. The
// client never verifies signatures, so any signature bytes do.
func NewToken(username string, exp time.Time) string {
	enc := func(v interface{}) string {
		raw, _ := json.Marshal(v)
		return base64URL(raw)
	}
	header := enc(map[string]string{"alg": "HS256", "typ": "JWT"})
	claims := enc(map[string]interface{}{"username": username, "exp": exp.Unix()})
	return header + "." + claims + "." + base64URL([]byte("signature"))
}

// SampleApplication returns a replicated application with one of each list
// entry.
func SampleApplication(id, name string) *types.Application {
	gitCred := uint(0)
	return &types.Application{
		ID:             id,
		Name:           name,
		DeploymentMode: types.DeploymentModeReplicated,
		Replicas:       2,
		Hostname:       name,
		ResourceLimit:  types.ResourceLimit{MemoryMB: 512},
		EnvironmentVariables: []types.EnvironmentVariable{
			{Key: "PORT", Value: "8080"},
			{Key: "LOG_LEVEL", Value: "info"},
		},
		PersistentVolumeBindings: []types.PersistentVolumeBinding{
			{ID: 1, PersistentVolumeID: 7, MountingPath: "/data"},
		},
		ConfigMounts: []types.ConfigMount{
			{Content: "key=value", MountingPath: "/etc/app.conf", UID: 0, GID: 0},
		},
		LatestDeployment: types.Deployment{
			ID:               id + "-dep-1",
			Status:           types.DeploymentStatusDeployed,
			UpstreamType:     types.UpstreamTypeGit,
			GitProvider:      types.GitProviderGitHub,
			GitCredentialID:  &gitCred,
			RepositoryURL:    "https://github.com/swiftwave-org/" + name,
			RepositoryOwner:  "swiftwave-org",
			RepositoryName:   name,
			RepositoryBranch: "main",
			BuildArgs:        []types.BuildArg{{Key: "GO_VERSION", Value: "1.23"}},
		},
		PreferredServerHostnames: []string{"node-a", "node-b"},
		DockerProxyConfig: types.DockerProxyConfig{
			Permission: types.DockerProxyPermission{}.WithDefaults(),
		},
	}
}

// Lock guards fixture changes made while requests may be in flight.
func (b *Backend) Lock() { b.mu.Lock() }

// Unlock releases Lock.
func (b *Backend) Unlock() { b.mu.Unlock() }

// Requests returns the GraphQL operations received so far.
func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Request(nil), b.requests...)
}

// CountRequests counts received operations on rootField.
func (b *Backend) CountRequests(rootField string) int {
	n := 0
	for _, r := range b.Requests() {
		if r.RootField == rootField {
			n++
		}
	}
	return n
}

// Inputs returns the payloads of successful updateApplication calls.
func (b *Backend) Inputs() []types.ApplicationInput {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]types.ApplicationInput(nil), b.inputs...)
}

// WSURL is the WebSocket origin of the server.
func (b *Backend) WSURL() string {
	return "ws" + strings.TrimPrefix(b.URL, "http")
}

func (b *Backend) authorized(header string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return header == "Bearer "+b.Token
}

func (b *Backend) healthcheck(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("OK"))
}

func (b *Backend) dropIfDown(w http.ResponseWriter) bool {
	b.mu.Lock()
	down := b.Down
	b.mu.Unlock()
	if !down {
		return false
	}
	if hj, ok := w.(http.Hijacker); ok {
		if conn, _, err := hj.Hijack(); err == nil {
			conn.Close()
			return true
		}
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	return true
}

func (b *Backend) version(w http.ResponseWriter, r *http.Request) {
	if b.dropIfDown(w) {
		return
	}
	if !b.authorized(r.Header.Get("Authorization")) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	b.mu.Lock()
	v := b.Version
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, v)
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"message": "invalid form"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if r.PostForm.Get("username") != b.Username || r.PostForm.Get("password") != b.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"message": "Invalid username or password"})
		return
	}
	if b.TOTP != "" && r.PostForm.Get("totp") != b.TOTP {
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"message": "TOTP is required", "totp_required": true})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": b.Token})
}

func (b *Backend) verifyAuth(w http.ResponseWriter, r *http.Request) {
	if b.dropIfDown(w) {
		return
	}
	if !b.authorized(r.Header.Get("Authorization")) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type gqlRequest struct {
	Query         string                     `json:"query"`
	Variables     map[string]json.RawMessage `json:"variables"`
	OperationName string                     `json:"operationName"`
}

func (b *Backend) graphqlHTTP(w http.ResponseWriter, r *http.Request) {
	if !b.authorized(r.Header.Get("Authorization")) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"unauthorized"}`))
		return
	}

	var req gqlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": []map[string]string{{"message": err.Error()}}})
		return
	}

	data, err := b.resolve(req, r.Header.Get("Authorization"))
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"data":   nil,
			"errors": []map[string]string{{"message": err.Error()}},
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": data})
}

// rootField returns the first field of the first selection set.
func rootField(query string) string {
	i := strings.Index(query, "{")
	if i < 0 {
		return ""
	}
	rest := strings.TrimLeft(query[i+1:], " \t\r\n,")
	end := strings.IndexFunc(rest, func(r rune) bool {
		return !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
	})
	if end < 0 {
		return rest
	}
	return rest[:end]
}

func (b *Backend) resolve(req gqlRequest, auth string) (map[string]interface{}, error) {
	field := rootField(req.Query)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.requests = append(b.requests, Request{RootField: field, Query: req.Query, Variables: req.Variables, Authorization: auth})

	var id string
	if raw, ok := req.Variables["id"]; ok {
		_ = json.Unmarshal(raw, &id)
	}

	switch field {
	case "applications":
		var out []map[string]interface{}
		for _, a := range b.Applications {
			out = append(out, map[string]interface{}{
				"id":               a.ID,
				"name":             a.Name,
				"deploymentMode":   a.DeploymentMode,
				"replicas":         a.Replicas,
				"isDeleted":        false,
				"isSleeping":       a.IsSleeping,
				"latestDeployment": map[string]interface{}{"status": a.LatestDeployment.Status, "upstreamType": a.LatestDeployment.UpstreamType, "dockerImage": a.LatestDeployment.DockerImage, "repositoryUrl": a.LatestDeployment.RepositoryURL},
				"realtimeInfo":     map[string]interface{}{"InfoFound": true, "DesiredReplicas": a.Replicas, "RunningReplicas": a.Replicas, "HealthStatus": "healthy"},
			})
		}
		return map[string]interface{}{"applications": out}, nil

	case "application":
		a, ok := b.Applications[id]
		if !ok {
			return nil, fmt.Errorf("application not found")
		}
		if strings.Contains(req.Query, "deployments") {
			return map[string]interface{}{"application": map[string]interface{}{"deployments": b.Deployments[id]}}, nil
		}
		return map[string]interface{}{"application": a}, nil

	case "deployment":
		for _, deps := range b.Deployments {
			for _, d := range deps {
				if d.ID == id {
					return map[string]interface{}{"deployment": d}, nil
				}
			}
		}
		return nil, fmt.Errorf("deployment not found")

	case "updateApplication":
		if b.UpdateError != "" {
			return nil, fmt.Errorf("%s", b.UpdateError)
		}
		a, ok := b.Applications[id]
		if !ok {
			return nil, fmt.Errorf("application not found")
		}
		var in types.ApplicationInput
		if err := json.Unmarshal(req.Variables["input"], &in); err != nil {
			return nil, fmt.Errorf("invalid input: %v", err)
		}
		b.inputs = append(b.inputs, in)
		ApplyInput(a, &in)
		return map[string]interface{}{"updateApplication": map[string]string{"id": a.ID, "name": a.Name}}, nil

	case "isExistApplicationName":
		var name string
		_ = json.Unmarshal(req.Variables["name"], &name)
		exists := false
		for _, a := range b.Applications {
			if a.Name == name {
				exists = true
			}
		}
		return map[string]interface{}{field: exists}, nil

	case "rebuildApplication", "restartApplication", "sleepApplication", "wakeApplication", "deleteApplication":
		a, ok := b.Applications[id]
		if !ok {
			return nil, fmt.Errorf("application not found")
		}
		switch field {
		case "sleepApplication":
			a.IsSleeping = true
		case "wakeApplication":
			a.IsSleeping = false
		case "deleteApplication":
			delete(b.Applications, id)
		}
		return map[string]interface{}{field: true}, nil

	case "servers":
		return map[string]interface{}{field: nonNil(b.Servers)}, nil
	case "domains":
		return map[string]interface{}{field: nonNil(b.Domains)}, nil
	case "gitCredentials":
		return map[string]interface{}{field: nonNil(b.GitCreds)}, nil
	case "imageRegistryCredentials":
		return map[string]interface{}{field: nonNil(b.RegistryCred)}, nil
	case "persistentVolumes":
		return map[string]interface{}{field: nonNil(b.Volumes)}, nil
	}
	return nil, fmt.Errorf("unknown field %q", field)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// ApplyInput updates a the way the server applies an updateApplication
// payload.
func ApplyInput(a *types.Application, in *types.ApplicationInput) {
	a.Command = in.Command
	a.DeploymentMode = in.DeploymentMode
	a.Replicas = in.Replicas
	a.Hostname = in.Hostname
	a.ResourceLimit = in.ResourceLimit
	a.ReservedResource = in.ReservedResource
	a.EnvironmentVariables = in.EnvironmentVariables
	a.ConfigMounts = in.ConfigMounts
	a.PersistentVolumeBindings = nil
	for i, pv := range in.PersistentVolumeBindings {
		a.PersistentVolumeBindings = append(a.PersistentVolumeBindings, types.PersistentVolumeBinding{
			ID:                 uint(i + 1),
			PersistentVolumeID: pv.PersistentVolumeID,
			MountingPath:       pv.MountingPath,
		})
	}
	a.CustomHealthCheck = in.CustomHealthCheck
	a.PreferredServerHostnames = in.PreferredServerHostnames
	a.DockerProxyConfig = in.DockerProxyConfig
	a.Capabilities = in.Capabilities
	a.Sysctls = in.Sysctls

	d := &a.LatestDeployment
	d.BuildArgs = in.BuildArgs
	d.GitCredentialID = in.GitCredentialID
	d.RepositoryURL = in.RepositoryURL
	d.RepositoryBranch = in.RepositoryBranch
	d.CodePath = in.CodePath
	d.ImageRegistryCredentialID = in.ImageRegistryCredentialID
	d.DockerImage = in.DockerImage
	d.SourceCodeCompressedFileName = in.SourceCodeCompressedFileName
	d.Dockerfile = in.Dockerfile
}

var upgrader = websocket.Upgrader{Subprotocols: []string{"graphql-transport-ws"}}

type wsMessage struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// graphqlWS serves fetchDeploymentLog subscriptions: the stored log lines
// of the deployment followed by complete.
func (b *Backend) graphqlWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer ws.Close()

	var init wsMessage
	if err := ws.ReadJSON(&init); err != nil || init.Type != "connection_init" {
		return
	}
	var params struct {
		Authorization string `json:"authorization"`
	}
	_ = json.Unmarshal(init.Payload, &params)
	if !b.authorized(params.Authorization) {
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(4403, "Forbidden"), time.Now().Add(time.Second))
		return
	}
	if err := ws.WriteJSON(wsMessage{Type: "connection_ack"}); err != nil {
		return
	}

	for {
		var msg wsMessage
		if err := ws.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Type {
		case "ping":
			_ = ws.WriteJSON(wsMessage{Type: "pong"})
		case "subscribe":
			var req gqlRequest
			_ = json.Unmarshal(msg.Payload, &req)
			var id string
			_ = json.Unmarshal(req.Variables["id"], &id)

			b.mu.Lock()
			b.requests = append(b.requests, Request{RootField: rootField(req.Query), Query: req.Query, Variables: req.Variables, Authorization: params.Authorization})
			lines := append([]types.DeploymentLog(nil), b.Logs[id]...)
			b.mu.Unlock()

			for _, l := range lines {
				payload, _ := json.Marshal(map[string]interface{}{"data": map[string]interface{}{"fetchDeploymentLog": l}})
				if err := ws.WriteJSON(wsMessage{ID: msg.ID, Type: "next", Payload: payload}); err != nil {
					return
				}
			}
			_ = ws.WriteJSON(wsMessage{ID: msg.ID, Type: "complete"})
		}
	}
}

func base64URL(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
