package referral

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aayamfest/ambassador/backend/internal/auth"
	"github.com/aayamfest/ambassador/backend/internal/db"
	"github.com/aayamfest/ambassador/backend/internal/logging"
	"github.com/aayamfest/ambassador/backend/internal/models"
	"github.com/aayamfest/ambassador/backend/internal/notify"
)

const testSecret = "referral-test-secret"

var testDBCounter uint64

type fakeNotifier struct {
	mu      sync.Mutex
	notices []notify.ApprovalNotice
}

func (f *fakeNotifier) Approval(n notify.ApprovalNotice) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, n)
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.notices)
}

// newTestService returns a Service backed by its own in-memory SQLite database.
func newTestService(t *testing.T) (*Service, *fakeNotifier) {
	t.Helper()
	id := atomic.AddUint64(&testDBCounter, 1)
	dsn := fmt.Sprintf("file:referraldb%d?mode=memory&cache=shared&_pragma=foreign_keys(1)&_time_format=sqlite", id)
	store, err := db.Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	n := &fakeNotifier{}
	svc := NewService(store, n, logging.Discard(), Options{
		PointsPerSignup: 12,
		Location:        time.UTC,
		StoreTimeout:    5 * time.Second,
		SiteURL:         "https://aayam.example.com/",
		Secret:          testSecret,
	})
	return svc, n
}

func registerReq(email string) models.RegisterRequest {
	return models.RegisterRequest{
		Name:          "Asha Rao",
		Email:         email,
		Password:      "password123",
		Phone:         "9999999999",
		College:       "NST",
		Year:          "2",
		WhyAmbassador: "I like tech fests",
	}
}

// approvedAmbassador registers and approves an ambassador.
func approvedAmbassador(t *testing.T, svc *Service, email string) models.Ambassador {
	t.Helper()
	ctx := context.Background()
	amb, err := svc.Register(ctx, registerReq(email))
	require.NoError(t, err)
	amb, err = svc.ReviewAmbassador(ctx, models.ReviewAmbassadorRequest{AmbassadorID: amb.ID, Status: models.StatusApproved})
	require.NoError(t, err)
	return amb
}

func signupCount(t *testing.T, svc *Service, ambassadorID string) int {
	t.Helper()
	amb, err := getAmbassador(context.Background(), svc.db, ambassadorID)
	require.NoError(t, err)
	return amb.SignupCount
}

func addPoints(t *testing.T, svc *Service, ambassadorID string, points int) {
	t.Helper()
	require.NoError(t, appendPoints(context.Background(), svc.db, models.PointEntry{
		ID:           uuid.NewString(),
		AmbassadorID: ambassadorID,
		Points:       points,
		Source:       models.PointsFromAdmin,
		CreatedAt:    time.Now().UTC(),
	}))
}

// ---- Identity ----

func TestRegister(t *testing.T) {
	svc, _ := newTestService(t)

	amb, err := svc.Register(context.Background(), registerReq("  Asha@Example.com "))
	require.NoError(t, err)

	assert.Equal(t, "asha@example.com", amb.Email)
	assert.Equal(t, models.StatusPending, amb.Status)
	assert.Equal(t, 0, amb.SignupCount)
	assert.Equal(t, models.TierNone, amb.Tier)
	assert.Regexp(t, `^AAYAM[A-Z0-9]{6}$`, amb.ReferralCode)
	assert.Nil(t, amb.ApprovedAt)
	assert.True(t, auth.CheckPassword(amb.PasswordHash, "password123"))
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, registerReq("asha@example.com"))
	require.NoError(t, err)
	_, err = svc.Register(ctx, registerReq("ASHA@example.com"))
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestRegister_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	req := registerReq("not-an-email")
	req.Name = ""

	_, err := svc.Register(context.Background(), req)
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "name is required")
	assert.Contains(t, err.Error(), "email must be a valid email address")
}

func TestPasswordLongerThanBcryptLimit(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	long := strings.Repeat("a", 73)

	req := registerReq("long@example.com")
	req.Password = long
	_, err := svc.Register(ctx, req)
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "ValidationError", Kind(err))
	assert.Contains(t, err.Error(), "password must be at most 72 bytes")

	_, err = svc.CreateAdmin(ctx, "root@aayam.com", "Root", long)
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "password must be at most 72 bytes")

	// Exactly 72 bytes is still accepted.
	req.Password = long[:72]
	_, err = svc.Register(ctx, req)
	require.NoError(t, err)
}

func TestRegister_RetriesReferralCodeCollision(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	codes := []string{"AAYAMAAAAAA", "AAYAMAAAAAA", "AAYAMAAAAAA", "AAYAMBBBBBB"}
	var calls int
	svc.newCode = func() (string, error) {
		c := codes[calls]
		calls++
		return c, nil
	}

	first, err := svc.Register(ctx, registerReq("one@example.com"))
	require.NoError(t, err)
	assert.Equal(t, "AAYAMAAAAAA", first.ReferralCode)

	second, err := svc.Register(ctx, registerReq("two@example.com"))
	require.NoError(t, err)
	assert.Equal(t, "AAYAMBBBBBB", second.ReferralCode)
	assert.Equal(t, 4, calls)
}

func TestRegister_GivesUpAfterMaxAttempts(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	svc.newCode = func() (string, error) { return "AAYAMAAAAAA", nil }

	_, err := svc.Register(ctx, registerReq("one@example.com"))
	require.NoError(t, err)
	_, err = svc.Register(ctx, registerReq("two@example.com"))
	require.Error(t, err)
	assert.Equal(t, "Internal", Kind(err))
}

func TestRegister_ConcurrentCodesUnique(t *testing.T) {
	svc, _ := newTestService(t)
	const n = 8

	var wg sync.WaitGroup
	codes := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			amb, err := svc.Register(context.Background(), registerReq(fmt.Sprintf("amb%d@example.com", i)))
			codes[i], errs[i] = amb.ReferralCode, err
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.False(t, seen[codes[i]], "duplicate referral code %s", codes[i])
		seen[codes[i]] = true
	}
}

func TestLoginAmbassador_RequiresApproval(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	amb, err := svc.Register(ctx, registerReq("asha@example.com"))
	require.NoError(t, err)

	_, err = svc.LoginAmbassador(ctx, models.LoginRequest{Email: "asha@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials, "pending ambassador must not log in")

	_, err = svc.ReviewAmbassador(ctx, models.ReviewAmbassadorRequest{AmbassadorID: amb.ID, Status: models.StatusApproved})
	require.NoError(t, err)

	resp, err := svc.LoginAmbassador(ctx, models.LoginRequest{Email: "ASHA@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, amb.ID, resp.Ambassador.ID)

	claims, err := auth.ParseToken(resp.Token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, amb.ID, claims.SubjectID())
	assert.Equal(t, models.RoleAmbassador, claims.Role)
}

func TestLoginAmbassador_FailuresLookAlike(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	approvedAmbassador(t, svc, "asha@example.com")

	_, wrongPassword := svc.LoginAmbassador(ctx, models.LoginRequest{Email: "asha@example.com", Password: "nope-nope"})
	_, noUser := svc.LoginAmbassador(ctx, models.LoginRequest{Email: "ghost@example.com", Password: "password123"})

	require.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	require.ErrorIs(t, noUser, ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), noUser.Error())
}

func TestLoginAmbassador_RejectedCannotLogin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	amb, err := svc.Register(ctx, registerReq("asha@example.com"))
	require.NoError(t, err)
	_, err = svc.ReviewAmbassador(ctx, models.ReviewAmbassadorRequest{AmbassadorID: amb.ID, Status: models.StatusRejected})
	require.NoError(t, err)

	_, err = svc.LoginAmbassador(ctx, models.LoginRequest{Email: "asha@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAdminCreateAndLogin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	admin, err := svc.CreateAdmin(ctx, "Ops@Aayam.com", "Ops", "supersecret")
	require.NoError(t, err)
	assert.Equal(t, "ops@aayam.com", admin.Email)

	_, err = svc.CreateAdmin(ctx, "ops@aayam.com", "Ops again", "supersecret")
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	_, err = svc.CreateAdmin(ctx, "x@aayam.com", "X", "short")
	assert.ErrorIs(t, err, ErrValidation)

	resp, err := svc.LoginAdmin(ctx, models.LoginRequest{Email: "ops@aayam.com", Password: "supersecret"})
	require.NoError(t, err)
	assert.Equal(t, admin.ID, resp.Admin.ID)
	claims, err := auth.ParseToken(resp.Token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, claims.Role)

	_, err = svc.LoginAdmin(ctx, models.LoginRequest{Email: "ops@aayam.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.LoginAdmin(ctx, models.LoginRequest{Email: "nobody@aayam.com", Password: "supersecret"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.LoginAdmin(ctx, models.LoginRequest{Email: "ops@aayam.com"})
	assert.ErrorIs(t, err, ErrValidation)
}

// ---- Ambassador lifecycle ----

func TestReviewAmbassador_NotifiesOnceOnApproval(t *testing.T) {
	svc, notifier := newTestService(t)
	ctx := context.Background()

	amb, err := svc.Register(ctx, registerReq("asha@example.com"))
	require.NoError(t, err)

	approved, err := svc.ReviewAmbassador(ctx, models.ReviewAmbassadorRequest{AmbassadorID: amb.ID, Status: models.StatusApproved})
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedAt)

	require.Equal(t, 1, notifier.count())
	n := notifier.notices[0]
	assert.Equal(t, "asha@example.com", n.Email)
	assert.Equal(t, amb.ReferralCode, n.ReferralCode)
	assert.Equal(t, "https://aayam.example.com/ambassador/login", n.LoginURL)

	again, err := svc.ReviewAmbassador(ctx, models.ReviewAmbassadorRequest{AmbassadorID: amb.ID, Status: models.StatusApproved})
	require.NoError(t, err)
	assert.Equal(t, 1, notifier.count(), "re-approval must not notify again")
	assert.True(t, approved.ApprovedAt.Equal(*again.ApprovedAt))
}

func TestReviewAmbassador_Reject(t *testing.T) {
	svc, notifier := newTestService(t)
	ctx := context.Background()

	amb, err := svc.Register(ctx, registerReq("asha@example.com"))
	require.NoError(t, err)
	got, err := svc.ReviewAmbassador(ctx, models.ReviewAmbassadorRequest{AmbassadorID: amb.ID, Status: models.StatusRejected})
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, got.Status)
	assert.Nil(t, got.ApprovedAt)
	assert.Zero(t, notifier.count())
}

func TestReviewAmbassador_Errors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.ReviewAmbassador(ctx, models.ReviewAmbassadorRequest{AmbassadorID: "missing", Status: models.StatusApproved})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.ReviewAmbassador(ctx, models.ReviewAmbassadorRequest{AmbassadorID: "x", Status: models.StatusPending})
	assert.ErrorIs(t, err, ErrValidation)
}
