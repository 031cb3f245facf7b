package grpc

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/logging"
	pb "github.com/dmitrijs2005/accountkeeper/internal/proto"
	"github.com/dmitrijs2005/accountkeeper/internal/server/auth"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/dmitrijs2005/accountkeeper/internal/server/policy"
	"github.com/dmitrijs2005/accountkeeper/internal/server/services"
)

// ---- fakes ----

type call struct {
	op   string
	args []string
}

type fakeAccounts struct {
	calls []call

	result services.Result
	login  services.LoginResult
	status services.StatusResult
	err    error

	// demoted lists users whose stored account is no longer an active admin.
	demoted  map[string]bool
	adminErr error
}

func (f *fakeAccounts) rec(op string, args ...string) { f.calls = append(f.calls, call{op, args}) }

func (f *fakeAccounts) Register(_ context.Context, u, p string) (services.Result, error) {
	f.rec("register", u, p)
	return f.result, f.err
}
func (f *fakeAccounts) Login(_ context.Context, u, p string) (services.LoginResult, error) {
	f.rec("login", u, p)
	return f.login, f.err
}
func (f *fakeAccounts) ChangePassword(_ context.Context, u, o, n, r string) (services.Result, error) {
	f.rec("passwd", u, o, n, r)
	return f.result, f.err
}
func (f *fakeAccounts) ChangeRole(_ context.Context, acting, target string, role models.Role) (services.Result, error) {
	f.rec("role", acting, target, role.String())
	return f.result, f.err
}
func (f *fakeAccounts) ChangeActiveStatus(_ context.Context, target, acting string) (services.StatusResult, error) {
	f.rec("status", target, acting)
	return f.status, f.err
}
func (f *fakeAccounts) DeleteUser(_ context.Context, target, acting string) (services.Result, error) {
	f.rec("delete", target, acting)
	return f.result, f.err
}

func (f *fakeAccounts) IsActiveAdmin(_ context.Context, username string) (bool, error) {
	if f.adminErr != nil {
		return false, f.adminErr
	}
	return !f.demoted[username], nil
}

type fakeTokens struct {
	pair       *services.TokenPair
	issueErr   error
	refreshErr error
	revoked    []string
}

func (f *fakeTokens) Issue(context.Context, string) (*services.TokenPair, error) {
	return f.pair, f.issueErr
}
func (f *fakeTokens) Refresh(context.Context, string) (*services.TokenPair, error) {
	return f.pair, f.refreshErr
}
func (f *fakeTokens) Revoke(_ context.Context, username string) error {
	f.revoked = append(f.revoked, username)
	return nil
}

type fakeObserver struct{ methods []string }

func (f *fakeObserver) ObserveRPC(method, code string, _ time.Duration) {
	f.methods = append(f.methods, method+" "+code)
}

// ---- harness ----

const secret = "test-secret"

var okResult = services.Result{Success: true, Message: "ok", Outcome: services.OutcomeOK}

type harness struct {
	client   pb.AccountServiceClient
	accounts *fakeAccounts
	tokens   *fakeTokens
	issuer   *auth.Issuer
	observer *fakeObserver
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		accounts: &fakeAccounts{result: okResult},
		tokens:   &fakeTokens{pair: &services.TokenPair{AccessToken: "acc", RefreshToken: "ref"}},
		issuer:   auth.NewIssuer([]byte(secret), time.Hour),
		observer: &fakeObserver{},
	}
	srv := NewGRPCServer("bufnet", logging.Nop{}, h.accounts, h.tokens, h.issuer, policy.Default()).
		WithObserver(h.observer)

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		<-done
	})

	h.client = pb.NewAccountServiceClient(conn)
	return h
}

func (h *harness) token(t *testing.T, username string, role models.Role) context.Context {
	t.Helper()
	tok, err := h.issuer.Issue(username, role)
	require.NoError(t, err)
	return metadata.AppendToOutgoingContext(context.Background(), common.AccessTokenHeaderName, tok)
}

func req(kv ...string) *structpb.Struct {
	m := pb.NewMessage()
	for i := 0; i+1 < len(kv); i += 2 {
		m.SetString(kv[i], kv[i+1])
	}
	return m.Struct
}

// ---- tests ----

func TestRun_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	srv := NewGRPCServer("127.0.0.1:0", logging.Nop{}, &fakeAccounts{}, &fakeTokens{}, auth.NewIssuer([]byte(secret), time.Hour), policy.Default())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx)
	}()

	select {
	case err := <-done:
		t.Fatalf("server exited too early: %v", err)
	case <-time.After(150 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop within timeout after context cancel")
	}
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	t.Parallel()

	srv := NewGRPCServer("127.0.0.1:99999", logging.Nop{}, &fakeAccounts{}, &fakeTokens{}, auth.NewIssuer([]byte(secret), time.Hour), policy.Default())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	assert.Error(t, srv.Run(ctx))
}

func TestPing(t *testing.T) {
	h := newHarness(t)

	out, err := h.client.Call(context.Background(), pb.MethodPing, req())
	require.NoError(t, err)
	assert.Equal(t, "OK", pb.Wrap(out).GetString(pb.FieldStatus))
	assert.Equal(t, []string{pb.FullMethod(pb.MethodPing) + " OK"}, h.observer.methods)
}

func TestRegister_PolicyRejectsBeforeCore(t *testing.T) {
	h := newHarness(t)

	out, err := h.client.Call(context.Background(), pb.MethodRegister, req(pb.FieldUsername, "al", pb.FieldPassword, "AbCd12!@xy"))
	require.NoError(t, err)

	m := pb.Wrap(out)
	assert.False(t, m.GetBool(pb.FieldSuccess))
	assert.Equal(t, "InvalidInput", m.GetString(pb.FieldOutcome))
	assert.Empty(t, h.accounts.calls)

	out, err = h.client.Call(context.Background(), pb.MethodRegister, req(pb.FieldUsername, "alice_smith", pb.FieldPassword, "weak"))
	require.NoError(t, err)
	assert.Equal(t, "InvalidInput", pb.Wrap(out).GetString(pb.FieldOutcome))
	assert.Empty(t, h.accounts.calls)
}

func TestRegister_PassesThroughResult(t *testing.T) {
	h := newHarness(t)
	h.accounts.result = services.Result{Message: "username already exists", Outcome: services.OutcomeAlreadyExists}

	out, err := h.client.Call(context.Background(), pb.MethodRegister, req(pb.FieldUsername, "alice_smith", pb.FieldPassword, "AbCd12!@xy"))
	require.NoError(t, err)

	m := pb.Wrap(out)
	assert.False(t, m.GetBool(pb.FieldSuccess))
	assert.Equal(t, "AlreadyExists", m.GetString(pb.FieldOutcome))
	assert.Equal(t, "username already exists", m.GetString(pb.FieldMessage))
	require.Len(t, h.accounts.calls, 1)
}

func TestRegister_FaultIsInternal(t *testing.T) {
	h := newHarness(t)
	h.accounts.err = errors.New("db down")

	_, err := h.client.Call(context.Background(), pb.MethodRegister, req(pb.FieldUsername, "alice_smith", pb.FieldPassword, "AbCd12!@xy"))
	assert.Equal(t, codes.Internal, status.Code(err))
	assert.Equal(t, "internal error", status.Convert(err).Message())
}

func TestLogin_IssuesTokens(t *testing.T) {
	h := newHarness(t)
	h.accounts.login = services.LoginResult{Result: okResult, Username: "alice", Role: models.RoleAdmin, IsActive: true}

	out, err := h.client.Call(context.Background(), pb.MethodLogin, req(pb.FieldUsername, "alice", pb.FieldPassword, "pw"))
	require.NoError(t, err)

	m := pb.Wrap(out)
	assert.True(t, m.GetBool(pb.FieldSuccess))
	assert.Equal(t, "Admin", m.GetString(pb.FieldRole))
	assert.Equal(t, "acc", m.GetString(pb.FieldAccessToken))
	assert.Equal(t, "ref", m.GetString(pb.FieldRefreshToken))
}

func TestLogin_BusinessFailureHasNoTokens(t *testing.T) {
	h := newHarness(t)
	h.accounts.login = services.LoginResult{Result: services.Result{Message: "password has expired", Outcome: services.OutcomePasswordExpired}}

	out, err := h.client.Call(context.Background(), pb.MethodLogin, req(pb.FieldUsername, "alice", pb.FieldPassword, "pw"))
	require.NoError(t, err)

	m := pb.Wrap(out)
	assert.Equal(t, "PasswordExpired", m.GetString(pb.FieldOutcome))
	assert.Empty(t, m.GetString(pb.FieldAccessToken))
}

func TestLogin_InactiveRefused(t *testing.T) {
	h := newHarness(t)
	h.accounts.login = services.LoginResult{Result: okResult, Username: "alice", IsActive: false}

	_, err := h.client.Call(context.Background(), pb.MethodLogin, req(pb.FieldUsername, "alice", pb.FieldPassword, "pw"))
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
}

func TestRefreshToken(t *testing.T) {
	h := newHarness(t)

	_, err := h.client.Call(context.Background(), pb.MethodRefreshToken, req())
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	out, err := h.client.Call(context.Background(), pb.MethodRefreshToken, req(pb.FieldRefreshToken, "r"))
	require.NoError(t, err)
	assert.Equal(t, "acc", pb.Wrap(out).GetString(pb.FieldAccessToken))

	h.tokens.refreshErr = common.ErrRefreshTokenExpired
	_, err = h.client.Call(context.Background(), pb.MethodRefreshToken, req(pb.FieldRefreshToken, "r"))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	assert.Equal(t, "refresh token expired", status.Convert(err).Message())
}

func TestChangePassword_RequiresToken(t *testing.T) {
	h := newHarness(t)

	_, err := h.client.Call(context.Background(), pb.MethodChangePassword, req())
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	assert.Equal(t, "missing token", status.Convert(err).Message())

	bad := metadata.AppendToOutgoingContext(context.Background(), common.AccessTokenHeaderName, "not-a-jwt")
	_, err = h.client.Call(bad, pb.MethodChangePassword, req())
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	assert.Empty(t, h.accounts.calls)
}

func TestChangePassword_ActsAsTokenOwner(t *testing.T) {
	h := newHarness(t)
	ctx := h.token(t, "alice", models.RoleRegular)

	out, err := h.client.Call(ctx, pb.MethodChangePassword, req(
		pb.FieldUsername, "mallory",
		pb.FieldOldPassword, "old", pb.FieldNewPassword, "new", pb.FieldRepeatPassword, "new"))
	require.NoError(t, err)
	assert.True(t, pb.Wrap(out).GetBool(pb.FieldSuccess))

	require.Len(t, h.accounts.calls, 1)
	assert.Equal(t, []string{"alice", "old", "new", "new"}, h.accounts.calls[0].args)
	assert.Equal(t, []string{"alice"}, h.tokens.revoked)
}

func TestAdminMethods_RequireAdminRole(t *testing.T) {
	h := newHarness(t)
	ctx := h.token(t, "alice", models.RoleRegular)

	for _, m := range []string{pb.MethodChangeRole, pb.MethodChangeActiveStatus, pb.MethodDeleteUser} {
		_, err := h.client.Call(ctx, m, req(pb.FieldUsername, "bob"))
		assert.Equal(t, codes.PermissionDenied, status.Code(err), m)
	}
	assert.Empty(t, h.accounts.calls)
}

func TestChangeRole(t *testing.T) {
	h := newHarness(t)
	ctx := h.token(t, "root_admin", models.RoleAdmin)

	out, err := h.client.Call(ctx, pb.MethodChangeRole, req(pb.FieldUsername, "bob", pb.FieldRole, "superuser"))
	require.NoError(t, err)
	assert.Equal(t, "InvalidInput", pb.Wrap(out).GetString(pb.FieldOutcome))
	assert.Empty(t, h.accounts.calls)

	h.accounts.result = services.Result{Message: "cannot demote, deactivate or delete the last active administrator", Outcome: services.OutcomeLastAdminProtected}
	out, err = h.client.Call(ctx, pb.MethodChangeRole, req(pb.FieldUsername, "bob", pb.FieldRole, "regular"))
	require.NoError(t, err)
	assert.Equal(t, "LastAdminProtected", pb.Wrap(out).GetString(pb.FieldOutcome))
	assert.Equal(t, []string{"root_admin", "bob", "Regular"}, h.accounts.calls[0].args)
}

func TestChangeActiveStatus_RevokesOnDeactivate(t *testing.T) {
	h := newHarness(t)
	ctx := h.token(t, "root_admin", models.RoleAdmin)
	h.accounts.status = services.StatusResult{Result: okResult, IsActive: false}

	out, err := h.client.Call(ctx, pb.MethodChangeActiveStatus, req(pb.FieldUsername, "bob"))
	require.NoError(t, err)

	m := pb.Wrap(out)
	assert.True(t, m.GetBool(pb.FieldSuccess))
	assert.False(t, m.GetBool(pb.FieldIsActive))
	assert.Equal(t, []string{"bob", "root_admin"}, h.accounts.calls[0].args)
	assert.Equal(t, []string{"bob"}, h.tokens.revoked)
}

func TestDeleteUser(t *testing.T) {
	h := newHarness(t)
	ctx := h.token(t, "root_admin", models.RoleAdmin)
	h.accounts.result = services.Result{Message: "cannot perform this action on your own account", Outcome: services.OutcomeSelfActionForbidden}

	out, err := h.client.Call(ctx, pb.MethodDeleteUser, req(pb.FieldUsername, "root_admin"))
	require.NoError(t, err)
	assert.Equal(t, "SelfActionForbidden", pb.Wrap(out).GetString(pb.FieldOutcome))
	assert.Equal(t, []string{"root_admin", "root_admin"}, h.accounts.calls[0].args)
}
