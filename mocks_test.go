package authware

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"testing"

	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// routerContext renames router.Context so embedding it does not create
// a field named Context, which would collide with the Context method.
type routerContext interface {
	router.Context
}

// fakeContext is a map backed router.Context for handler tests. Methods
// the code under test never touches fall through to the nil embedded
// interface and panic, which is the failure mode we want in a test.
type fakeContext struct {
	routerContext

	path    string
	headers map[string]string
	queries map[string]string
	cookies map[string]string
	params  map[string]string
	locals  map[any]any
	body    []byte

	ctx context.Context

	nextCalled bool
	nextErr    error

	status         int
	jsonStatus     int
	jsonBody       any
	sent           string
	redirectedTo   string
	redirectStatus int
	setCookies     []*router.Cookie
	setHeaders     map[string]string
}

func newFakeContext() *fakeContext {
	return &fakeContext{
		headers:    map[string]string{},
		queries:    map[string]string{},
		cookies:    map[string]string{},
		params:     map[string]string{},
		locals:     map[any]any{},
		setHeaders: map[string]string{},
		ctx:        context.Background(),
	}
}

func (f *fakeContext) withBody(t *testing.T, payload any) *fakeContext {
	t.Helper()
	b, err := json.Marshal(payload)
	require.NoError(t, err)
	f.body = b
	return f
}

func (f *fakeContext) Next() error {
	f.nextCalled = true
	return f.nextErr
}

func (f *fakeContext) Path() string {
	return f.path
}

func (f *fakeContext) Context() context.Context {
	if f.ctx == nil {
		return context.Background()
	}
	return f.ctx
}

func (f *fakeContext) SetContext(ctx context.Context) {
	f.ctx = ctx
}

func (f *fakeContext) GetString(key string, def string) string {
	if v, ok := f.headers[key]; ok {
		return v
	}
	return def
}

func (f *fakeContext) Query(key string, def ...string) string {
	if v, ok := f.queries[key]; ok {
		return v
	}
	if len(def) > 0 {
		return def[0]
	}
	return ""
}

func (f *fakeContext) Cookies(key string, def ...string) string {
	if v, ok := f.cookies[key]; ok {
		return v
	}
	if len(def) > 0 {
		return def[0]
	}
	return ""
}

func (f *fakeContext) Param(key string, def ...string) string {
	if v, ok := f.params[key]; ok {
		return v
	}
	if len(def) > 0 {
		return def[0]
	}
	return ""
}

func (f *fakeContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		f.locals[key] = value[0]
		return value[0]
	}
	return f.locals[key]
}

func (f *fakeContext) JSON(code int, val any) error {
	f.jsonStatus = code
	f.jsonBody = val
	return nil
}

func (f *fakeContext) Status(code int) router.Context {
	f.status = code
	return f
}

func (f *fakeContext) SendString(s string) error {
	f.sent = s
	return nil
}

func (f *fakeContext) SetHeader(key, val string) router.Context {
	f.setHeaders[key] = val
	return f
}

func (f *fakeContext) Cookie(cookie *router.Cookie) {
	f.setCookies = append(f.setCookies, cookie)
}

func (f *fakeContext) Redirect(path string, status ...int) error {
	f.redirectedTo = path
	if len(status) > 0 {
		f.redirectStatus = status[0]
	}
	return nil
}

func (f *fakeContext) Bind(i any) error {
	if len(f.body) == 0 {
		return nil
	}
	return json.Unmarshal(f.body, i)
}

// lastCookie returns the most recent cookie written under name.
func (f *fakeContext) lastCookie(name string) *router.Cookie {
	for i := len(f.setCookies) - 1; i >= 0; i-- {
		if f.setCookies[i].Name == name {
			return f.setCookies[i]
		}
	}
	return nil
}

func (f *fakeContext) envelope(t *testing.T) APIResponse {
	t.Helper()
	resp, ok := f.jsonBody.(APIResponse)
	require.True(t, ok, "expected APIResponse body, got %T", f.jsonBody)
	return resp
}

// recordingHook captures every event it is handed.
type recordingHook struct {
	mu     sync.Mutex
	events []Event
}

func (h *recordingHook) OnEvent(_ context.Context, event Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return nil
}

func (h *recordingHook) kinds() []EventKind {
	h.mu.Lock()
	defer h.mu.Unlock()
	kinds := make([]EventKind, len(h.events))
	for i, e := range h.events {
		kinds[i] = e.Kind
	}
	return kinds
}

func (h *recordingHook) last() (Event, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.events) == 0 {
		return Event{}, false
	}
	return h.events[len(h.events)-1], true
}

type sentMail struct {
	To   string
	Name string
	Link string
}

// recordingMailer captures outgoing mail instead of delivering it.
type recordingMailer struct {
	mu      sync.Mutex
	resets  []sentMail
	verifys []sentMail
	welcome []string
	done    chan struct{}
}

func newRecordingMailer() *recordingMailer {
	return &recordingMailer{done: make(chan struct{}, 8)}
}

func (m *recordingMailer) SendResetPasswordMail(_ context.Context, to, name, link string) error {
	m.mu.Lock()
	m.resets = append(m.resets, sentMail{To: to, Name: name, Link: link})
	m.mu.Unlock()
	m.done <- struct{}{}
	return nil
}

func (m *recordingMailer) SendVerificationMail(_ context.Context, to, name, link string) error {
	m.mu.Lock()
	m.verifys = append(m.verifys, sentMail{To: to, Name: name, Link: link})
	m.mu.Unlock()
	m.done <- struct{}{}
	return nil
}

func (m *recordingMailer) SendWelcomeMail(_ context.Context, to string) error {
	m.mu.Lock()
	m.welcome = append(m.welcome, to)
	m.mu.Unlock()
	m.done <- struct{}{}
	return nil
}

func (m *recordingMailer) lastReset() (sentMail, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.resets) == 0 {
		return sentMail{}, false
	}
	return m.resets[len(m.resets)-1], true
}

func (m *recordingMailer) lastVerification() (sentMail, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.verifys) == 0 {
		return sentMail{}, false
	}
	return m.verifys[len(m.verifys)-1], true
}

func newTestDB(t *testing.T) RepositoryManager {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() {
		db.Close()
	})

	require.NoError(t, CreateTables(context.Background(), db))

	return NewRepositoryManager(db)
}

func newTestTokens() TokenService {
	return NewTokenService([]byte("test-signing-key"), 3600, "authware-test", nil, nil)
}

func newTestConfig() Config {
	cfg := Config{
		AppName:    "Test App",
		SigningKey: "test-signing-key",
		Password:   &PasswordConfig{},
	}
	cfg.Normalize(DefaultLogger())
	return cfg
}

// seedUser persists an account with a hashed password and returns it
// with the digest still set.
func seedUser(t *testing.T, repo RepositoryManager, email, password string, status UserStatus) *User {
	t.Helper()

	hash, err := HashPassword(password)
	require.NoError(t, err)

	user := &User{
		Email:    email,
		Name:     "Seeded User",
		Password: hash,
		Status:   status,
	}
	user.EnsureDefaults()

	saved, err := repo.Users().Save(context.Background(), user)
	require.NoError(t, err)
	return saved
}
