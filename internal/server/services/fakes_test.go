package services

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/shiftdesk/internal/common"
	"github.com/dmitrijs2005/shiftdesk/internal/cryptox"
	"github.com/dmitrijs2005/shiftdesk/internal/dbx"
	"github.com/dmitrijs2005/shiftdesk/internal/server/config"
	"github.com/dmitrijs2005/shiftdesk/internal/server/models"
	accountsrepo "github.com/dmitrijs2005/shiftdesk/internal/server/repositories/accounts"
	logintokensrepo "github.com/dmitrijs2005/shiftdesk/internal/server/repositories/logintokens"
	refreshtokensrepo "github.com/dmitrijs2005/shiftdesk/internal/server/repositories/refreshtokens"
)

var errBoom = errors.New("boom")

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SecretKey = "k"
	return cfg
}

// --- accounts ---

type fakeAccounts struct {
	byID map[string]*models.Account

	getByEmailCalls int
	setPinCalls     int
	onlineWrites    []string

	getErr    error
	setPinErr error
	onlineErr error
	listErr   error
}

func newFakeAccounts(accounts ...*models.Account) *fakeAccounts {
	f := &fakeAccounts{byID: map[string]*models.Account{}}
	for _, a := range accounts {
		f.byID[a.ID] = a
	}
	return f
}

func (f *fakeAccounts) Create(_ context.Context, a *models.Account) (*models.Account, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.byID[a.ID] = a
	return a, nil
}

func (f *fakeAccounts) GetByID(_ context.Context, id string) (*models.Account, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	a, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAccounts) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	f.getByEmailCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, a := range f.byID {
		if strings.EqualFold(a.Email, email) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeAccounts) SetPin(_ context.Context, id string, pin models.PinSecret) error {
	f.setPinCalls++
	if f.setPinErr != nil {
		return f.setPinErr
	}
	a, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	a.Pin = pin
	a.QuickSwitchEnabled = true
	return nil
}

func (f *fakeAccounts) ClearPin(_ context.Context, id string) error {
	a, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	a.Pin = models.PinSecret{}
	a.QuickSwitchEnabled = false
	return nil
}

func (f *fakeAccounts) SetOnline(_ context.Context, id string, online bool) error {
	if f.onlineErr != nil {
		return f.onlineErr
	}
	a, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	a.IsOnline = online
	state := "offline"
	if online {
		state = "online"
	}
	f.onlineWrites = append(f.onlineWrites, id+":"+state)
	return nil
}

func (f *fakeAccounts) sorted() []models.UserSummary {
	out := make([]models.UserSummary, 0, len(f.byID))
	for _, a := range f.byID {
		out = append(out, a.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out
}

func (f *fakeAccounts) ListActive(_ context.Context, limit int) ([]models.UserSummary, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := f.sorted()
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeAccounts) ListByPresence(context.Context) ([]models.UserSummary, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := f.sorted()
	sort.SliceStable(out, func(i, j int) bool { return out[i].IsOnline && !out[j].IsOnline })
	return out, nil
}

// --- refresh tokens ---

type fakeRefreshRepo struct {
	tokens map[string]*models.RefreshToken

	findErr   error
	delErr    error
	createErr error
}

func newFakeRefreshRepo() *fakeRefreshRepo {
	return &fakeRefreshRepo{tokens: map[string]*models.RefreshToken{}}
}

func (f *fakeRefreshRepo) Create(_ context.Context, userID, token string, expiresAt time.Time) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.tokens[token] = &models.RefreshToken{UserID: userID, Token: token, Expires: expiresAt}
	return nil
}

func (f *fakeRefreshRepo) Find(_ context.Context, token string) (*models.RefreshToken, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	t, ok := f.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeRefreshRepo) Delete(_ context.Context, token string) error {
	if f.delErr != nil {
		return f.delErr
	}
	if _, ok := f.tokens[token]; !ok {
		return common.ErrorNotFound
	}
	delete(f.tokens, token)
	return nil
}

func (f *fakeRefreshRepo) DeleteByUser(_ context.Context, userID string) error {
	if f.delErr != nil {
		return f.delErr
	}
	for k, t := range f.tokens {
		if t.UserID == userID {
			delete(f.tokens, k)
		}
	}
	return nil
}

// --- login tokens ---

type fakeLoginRepo struct {
	tokens map[string]*models.LoginToken
}

func newFakeLoginRepo() *fakeLoginRepo {
	return &fakeLoginRepo{tokens: map[string]*models.LoginToken{}}
}

func (f *fakeLoginRepo) Create(_ context.Context, t *models.LoginToken) error {
	f.tokens[t.Digest] = t
	return nil
}

func (f *fakeLoginRepo) Consume(_ context.Context, digest string) (*models.LoginToken, error) {
	t, ok := f.tokens[digest]
	if !ok {
		return nil, common.ErrorNotFound
	}
	delete(f.tokens, digest)
	return t, nil
}

// --- manager ---

type fakeRepoManager struct {
	a *fakeAccounts
	r *fakeRefreshRepo
	l *fakeLoginRepo
}

func newFakeRepoManager(accounts ...*models.Account) *fakeRepoManager {
	return &fakeRepoManager{a: newFakeAccounts(accounts...), r: newFakeRefreshRepo(), l: newFakeLoginRepo()}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error        { return nil }
func (m *fakeRepoManager) Accounts(dbx.DBTX) accountsrepo.Repository           { return m.a }
func (m *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokensrepo.Repository { return m.r }
func (m *fakeRepoManager) LoginTokens(dbx.DBTX) logintokensrepo.Repository     { return m.l }

func newAccount(id, email, name, password string) *models.Account {
	return &models.Account{
		ID:           id,
		Email:        email,
		FullName:     name,
		Role:         "staff",
		PasswordHash: cryptox.HashPassword([]byte(password)),
	}
}
