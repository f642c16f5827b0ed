package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/lahnaomar31/ubo-relay-char/internal/api/middleware"
	"github.com/lahnaomar31/ubo-relay-char/internal/chat"
	"github.com/lahnaomar31/ubo-relay-char/internal/models"
)

// fakeData is an in-memory DataStore.
type fakeData struct {
	users map[string]*models.User // by username
	rooms map[uuid.UUID]*models.Room
	err   error
}

func newFakeData() *fakeData {
	return &fakeData{
		users: make(map[string]*models.User),
		rooms: make(map[uuid.UUID]*models.Room),
	}
}

func (f *fakeData) Close()                       {}
func (f *fakeData) Ping(_ context.Context) error { return f.err }

func (f *fakeData) CreateUser(_ context.Context, username, passwordHash string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	user := &models.User{ID: uuid.New(), Username: username, PasswordHash: passwordHash, CreatedAt: time.Now()}
	f.users[username] = user
	return user, nil
}

func (f *fakeData) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeData) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.users[username], nil
}

func (f *fakeData) ListUsers(_ context.Context) ([]models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.User
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeData) CreateRoom(_ context.Context, name string, createdBy *uuid.UUID) (*models.Room, error) {
	if f.err != nil {
		return nil, f.err
	}
	room := &models.Room{ID: uuid.New(), Name: name, CreatedBy: createdBy, CreatedAt: time.Now(), LastActiveAt: time.Now()}
	f.rooms[room.ID] = room
	return room, nil
}

func (f *fakeData) GetRoom(_ context.Context, id uuid.UUID) (*models.Room, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.rooms[id], nil
}

func (f *fakeData) ListRooms(_ context.Context) ([]models.Room, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Room
	for _, r := range f.rooms {
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeData) IncrementMessageCount(_ context.Context, id uuid.UUID) error {
	if room := f.rooms[id]; room != nil {
		room.MessageCount++
	}
	return nil
}

// fakeSessions is an in-memory session store.
type fakeSessions struct {
	sessions map[string]*models.User
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: make(map[string]*models.User)}
}

func (f *fakeSessions) SaveSession(_ context.Context, token string, user *models.User, _ time.Duration) error {
	f.sessions[token] = user
	return nil
}

func (f *fakeSessions) DeleteSession(_ context.Context, token string) error {
	delete(f.sessions, token)
	return nil
}

func (f *fakeSessions) SessionUser(_ context.Context, token string) (*models.User, error) {
	return f.sessions[token], nil
}

// fakeLog is an in-memory MessageLog.
type fakeLog struct {
	logs map[string][]models.Message
	err  error
}

func newFakeLog() *fakeLog {
	return &fakeLog{logs: make(map[string][]models.Message)}
}

func (l *fakeLog) Append(_ context.Context, logKey string, msg *models.Message) error {
	if l.err != nil {
		return l.err
	}
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	l.logs[logKey] = append(l.logs[logKey], *msg)
	return nil
}

func (l *fakeLog) ReadAll(_ context.Context, logKey string) ([]models.Message, error) {
	if l.err != nil {
		return nil, l.err
	}
	messages := l.logs[logKey]
	if messages == nil {
		messages = []models.Message{}
	}
	return messages, nil
}

// fakeBlob records uploads and returns a fixed URL.
type fakeBlob struct {
	url string
	err error
}

func (b *fakeBlob) Upload(_ context.Context, _, _ string, _ io.Reader) (string, error) {
	return b.url, b.err
}

type env struct {
	handler  *Handler
	data     *fakeData
	sessions *fakeSessions
	log      *fakeLog
	blob     *fakeBlob
}

func newEnv() *env {
	data := newFakeData()
	sessions := newFakeSessions()
	log := newFakeLog()
	blobStore := &fakeBlob{url: "https://blob.example/uploads/file.png"}

	conversations := chat.NewConversationService(log, zerolog.Nop())
	rooms := chat.NewRoomService(log, data, zerolog.Nop())

	return &env{
		handler:  NewHandler(data, sessions, conversations, rooms, blobStore, time.Hour),
		data:     data,
		sessions: sessions,
		log:      log,
		blob:     blobStore,
	}
}

func (e *env) addUser(t *testing.T, username, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user, err := e.data.CreateUser(context.Background(), username, string(hash))
	require.NoError(t, err)
	return user
}

// asUser injects an authenticated user, as the auth middleware would.
func asUser(r *http.Request, user *models.User) *http.Request {
	ctx := context.WithValue(r.Context(), middleware.UserContextKey, user)
	return r.WithContext(ctx)
}

// withURLParam injects a chi route parameter.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func jsonBody(t *testing.T, v interface{}) *bytes.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func TestRegisterAndLogin(t *testing.T) {
	e := newEnv()

	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/register", jsonBody(t, RegisterRequest{Username: "alice", Password: "motdepasse"}))
	e.handler.Register(w, r)
	require.Equal(t, http.StatusCreated, w.Code)

	var created UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.Equal(t, "alice", created.Username)

	w = httptest.NewRecorder()
	r = httptest.NewRequest("POST", "/login", jsonBody(t, LoginRequest{Username: "alice", Password: "motdepasse"}))
	e.handler.Login(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	var login LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	require.NotEmpty(t, login.Token)
	require.Equal(t, created.ID, login.User.ID)

	// The token resolves back to the user.
	user, err := e.sessions.SessionUser(context.Background(), login.Token)
	require.NoError(t, err)
	require.Equal(t, "alice", user.Username)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	e := newEnv()
	e.addUser(t, "alice", "motdepasse")

	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/login", jsonBody(t, LoginRequest{Username: "alice", Password: "wrong"}))
	e.handler.Login(w, r)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	e := newEnv()
	e.addUser(t, "alice", "motdepasse")

	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/register", jsonBody(t, RegisterRequest{Username: "alice", Password: "motdepasse"}))
	e.handler.Register(w, r)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestPostDirectMessageEchoesStoredMessage(t *testing.T) {
	e := newEnv()
	alice := e.addUser(t, "alice", "pw123456")

	body := jsonBody(t, PostDirectMessageRequest{RecipientID: "bob-id", Message: "salut"})
	w := httptest.NewRecorder()
	r := asUser(httptest.NewRequest("POST", "/messages", body), alice)
	e.handler.PostDirectMessage(w, r)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp PostMessageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Equal(t, "salut", resp.Message.Text)
	require.Equal(t, "alice", resp.Message.Sender)
	require.False(t, resp.Message.Timestamp.IsZero())
}

func TestPostDirectMessageRequiresContent(t *testing.T) {
	e := newEnv()
	alice := e.addUser(t, "alice", "pw123456")

	body := jsonBody(t, PostDirectMessageRequest{RecipientID: "bob-id"})
	w := httptest.NewRecorder()
	r := asUser(httptest.NewRequest("POST", "/messages", body), alice)
	e.handler.PostDirectMessage(w, r)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostDirectMessageUnauthenticated(t *testing.T) {
	e := newEnv()

	body := jsonBody(t, PostDirectMessageRequest{RecipientID: "bob-id", Message: "salut"})
	w := httptest.NewRecorder()
	e.handler.PostDirectMessage(w, httptest.NewRequest("POST", "/messages", body))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetConversationEmptyHistoryIsOK(t *testing.T) {
	e := newEnv()
	alice := e.addUser(t, "alice", "pw123456")

	w := httptest.NewRecorder()
	r := asUser(httptest.NewRequest("GET", "/conversations/bob-id", nil), alice)
	r = withURLParam(r, "recipientID", "bob-id")
	e.handler.GetConversation(w, r)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, "[]", w.Body.String())
}

func TestConversationVisibleFromBothSides(t *testing.T) {
	e := newEnv()
	alice := e.addUser(t, "alice", "pw123456")
	bob := e.addUser(t, "bob", "pw123456")

	post := func(sender *models.User, recipientID, text string) {
		t.Helper()
		body := jsonBody(t, PostDirectMessageRequest{RecipientID: recipientID, Message: text})
		w := httptest.NewRecorder()
		e.handler.PostDirectMessage(w, asUser(httptest.NewRequest("POST", "/messages", body), sender))
		require.Equal(t, http.StatusCreated, w.Code)
	}

	post(alice, bob.ID.String(), "hi")
	post(bob, alice.ID.String(), "hello")

	w := httptest.NewRecorder()
	r := asUser(httptest.NewRequest("GET", "/conversations/"+bob.ID.String(), nil), alice)
	r = withURLParam(r, "recipientID", bob.ID.String())
	e.handler.GetConversation(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	var messages []models.Message
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &messages))
	require.Len(t, messages, 2)
	require.Equal(t, "hi", messages[0].Text)
	require.Equal(t, "alice", messages[0].Sender)
	require.Equal(t, "hello", messages[1].Text)
	require.Equal(t, "bob", messages[1].Sender)
}

func TestRoomMessageFlow(t *testing.T) {
	e := newEnv()
	alice := e.addUser(t, "alice", "pw123456")
	room, err := e.data.CreateRoom(context.Background(), "general", nil)
	require.NoError(t, err)

	body := jsonBody(t, PostRoomMessageRequest{Message: "hi"})
	w := httptest.NewRecorder()
	r := asUser(httptest.NewRequest("POST", "/rooms/"+room.ID.String()+"/messages", body), alice)
	r = withURLParam(r, "roomID", room.ID.String())
	e.handler.PostRoomMessage(w, r)
	require.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	r = asUser(httptest.NewRequest("GET", "/rooms/"+room.ID.String()+"/messages", nil), alice)
	r = withURLParam(r, "roomID", room.ID.String())
	e.handler.GetRoomMessages(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	var messages []models.Message
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &messages))
	require.Len(t, messages, 1)
	require.Equal(t, "hi", messages[0].Text)

	// Direct-message logs are untouched by room traffic.
	for key := range e.log.logs {
		require.True(t, strings.HasPrefix(key, "room:"), "unexpected log key %q", key)
	}
}

func TestRoomMessageUnknownRoom(t *testing.T) {
	e := newEnv()
	alice := e.addUser(t, "alice", "pw123456")
	unknown := uuid.New().String()

	body := jsonBody(t, PostRoomMessageRequest{Message: "hi"})
	w := httptest.NewRecorder()
	r := asUser(httptest.NewRequest("POST", "/rooms/"+unknown+"/messages", body), alice)
	r = withURLParam(r, "roomID", unknown)
	e.handler.PostRoomMessage(w, r)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateRoomValidatesName(t *testing.T) {
	e := newEnv()
	alice := e.addUser(t, "alice", "pw123456")

	w := httptest.NewRecorder()
	r := asUser(httptest.NewRequest("POST", "/rooms", jsonBody(t, CreateRoomRequest{Name: "sal<on>"})), alice)
	e.handler.CreateRoom(w, r)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r = asUser(httptest.NewRequest("POST", "/rooms", jsonBody(t, CreateRoomRequest{Name: "general"})), alice)
	e.handler.CreateRoom(w, r)
	require.Equal(t, http.StatusCreated, w.Code)
}

func TestListUsersExcludesCaller(t *testing.T) {
	e := newEnv()
	alice := e.addUser(t, "alice", "pw123456")
	e.addUser(t, "bob", "pw123456")

	w := httptest.NewRecorder()
	r := asUser(httptest.NewRequest("GET", "/users", nil), alice)
	e.handler.ListUsers(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	var users []UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &users))
	require.Len(t, users, 1)
	require.Equal(t, "bob", users[0].Username)
}

func TestUploadReturnsURL(t *testing.T) {
	e := newEnv()
	alice := e.addUser(t, "alice", "pw123456")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "cat.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("not really a png"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	r := asUser(httptest.NewRequest("POST", "/upload", &buf), alice)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	e.handler.Upload(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	var resp UploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, e.blob.url, resp.URL)
}

func TestUploadFailureIsServerError(t *testing.T) {
	e := newEnv()
	e.blob.err = errors.New("bucket unavailable")
	alice := e.addUser(t, "alice", "pw123456")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "cat.png")
	require.NoError(t, err)
	part.Write([]byte("bytes"))
	require.NoError(t, mw.Close())

	r := asUser(httptest.NewRequest("POST", "/upload", &buf), alice)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	e.handler.Upload(w, r)
	require.Equal(t, http.StatusInternalServerError, w.Code)
}
