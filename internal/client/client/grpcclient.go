// Package client is the gRPC client for accountkeeper.v1.AccountService used
// by the CLI. It attaches the access token to every call and renews it once
// with the refresh token when the server reports it expired.
package client

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	pb "github.com/dmitrijs2005/accountkeeper/internal/proto"
)

// Result mirrors the server's business result.
type Result struct {
	Success bool
	Message string
	Outcome string
}

// LoginResult is a Result plus what a successful login hands out.
type LoginResult struct {
	Result
	Role         string
	AccessToken  string
	RefreshToken string
}

type GRPCClient struct {
	endpointURL  string
	timeout      time.Duration
	conn         *grpc.ClientConn
	client       pb.AccountServiceClient
	accessToken  string
	refreshToken string
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	if token != "" {
		md.Set(common.AccessTokenHeaderName, token)
	}

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {

	err := invoker(withAccessToken(ctx, s.accessToken), method, req, reply, cc, opts...)
	if err == nil {
		return nil
	}

	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Unauthenticated || st.Message() != common.ErrTokenExpired.Error() {
		return err
	}
	if s.refreshToken == "" || method == pb.FullMethod(pb.MethodRefreshToken) {
		return err
	}

	if _, rerr := s.Refresh(ctx); rerr != nil {
		return err
	}

	// tokens refreshed, retry with the new access token
	return invoker(withAccessToken(ctx, s.accessToken), method, req, reply, cc, opts...)
}

// NewAccountKeeperClient dials endpointURL. No connection is made until the
// first call.
func NewAccountKeeperClient(endpointURL string, timeout time.Duration, accessToken, refreshToken string) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, timeout: timeout, accessToken: accessToken, refreshToken: refreshToken}

	conn, err := grpc.NewClient(c.endpointURL,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor))
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.client = pb.NewAccountServiceClient(conn)
	return c, nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

// Tokens returns the current access and refresh tokens.
func (s *GRPCClient) Tokens() (string, string) {
	return s.accessToken, s.refreshToken
}

func (s *GRPCClient) call(ctx context.Context, method string, in *structpb.Struct) (pb.Message, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	out, err := s.client.Call(ctx, method, in)
	if err != nil {
		return pb.Message{}, s.mapError(err)
	}
	return pb.Wrap(out), nil
}

func toResult(m pb.Message) Result {
	return Result{
		Success: m.GetBool(pb.FieldSuccess),
		Message: m.GetString(pb.FieldMessage),
		Outcome: m.GetString(pb.FieldOutcome),
	}
}

func (s *GRPCClient) Register(ctx context.Context, username, password string) (Result, error) {
	m, err := s.call(ctx, pb.MethodRegister, pb.NewMessage().
		SetString(pb.FieldUsername, username).
		SetString(pb.FieldPassword, password).Struct)
	if err != nil {
		return Result{}, err
	}
	return toResult(m), nil
}

// Login keeps the returned tokens for subsequent calls.
func (s *GRPCClient) Login(ctx context.Context, username, password string) (LoginResult, error) {
	m, err := s.call(ctx, pb.MethodLogin, pb.NewMessage().
		SetString(pb.FieldUsername, username).
		SetString(pb.FieldPassword, password).Struct)
	if err != nil {
		return LoginResult{}, err
	}

	res := LoginResult{
		Result:       toResult(m),
		Role:         m.GetString(pb.FieldRole),
		AccessToken:  m.GetString(pb.FieldAccessToken),
		RefreshToken: m.GetString(pb.FieldRefreshToken),
	}
	if res.Success {
		s.accessToken = res.AccessToken
		s.refreshToken = res.RefreshToken
	}
	return res, nil
}

// Refresh rotates the refresh token and stores the new pair.
func (s *GRPCClient) Refresh(ctx context.Context) (LoginResult, error) {
	if s.refreshToken == "" {
		return LoginResult{}, ErrUnauthorized
	}

	m, err := s.call(ctx, pb.MethodRefreshToken, pb.NewMessage().
		SetString(pb.FieldRefreshToken, s.refreshToken).Struct)
	if err != nil {
		return LoginResult{}, err
	}

	s.accessToken = m.GetString(pb.FieldAccessToken)
	s.refreshToken = m.GetString(pb.FieldRefreshToken)
	return LoginResult{
		Result:       Result{Success: true},
		AccessToken:  s.accessToken,
		RefreshToken: s.refreshToken,
	}, nil
}

func (s *GRPCClient) ChangePassword(ctx context.Context, oldPassword, newPassword, repeatPassword string) (Result, error) {
	m, err := s.call(ctx, pb.MethodChangePassword, pb.NewMessage().
		SetString(pb.FieldOldPassword, oldPassword).
		SetString(pb.FieldNewPassword, newPassword).
		SetString(pb.FieldRepeatPassword, repeatPassword).Struct)
	if err != nil {
		return Result{}, err
	}
	return toResult(m), nil
}

func (s *GRPCClient) ChangeRole(ctx context.Context, username, role string) (Result, error) {
	m, err := s.call(ctx, pb.MethodChangeRole, pb.NewMessage().
		SetString(pb.FieldUsername, username).
		SetString(pb.FieldRole, role).Struct)
	if err != nil {
		return Result{}, err
	}
	return toResult(m), nil
}

// ChangeActiveStatus flips the flag and reports the new value.
func (s *GRPCClient) ChangeActiveStatus(ctx context.Context, username string) (Result, bool, error) {
	m, err := s.call(ctx, pb.MethodChangeActiveStatus, pb.NewMessage().
		SetString(pb.FieldUsername, username).Struct)
	if err != nil {
		return Result{}, false, err
	}
	return toResult(m), m.GetBool(pb.FieldIsActive), nil
}

func (s *GRPCClient) DeleteUser(ctx context.Context, username string) (Result, error) {
	m, err := s.call(ctx, pb.MethodDeleteUser, pb.NewMessage().
		SetString(pb.FieldUsername, username).Struct)
	if err != nil {
		return Result{}, err
	}
	return toResult(m), nil
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	m, err := s.call(ctx, pb.MethodPing, pb.NewMessage().Struct)
	if err != nil {
		return err
	}
	if m.GetString(pb.FieldStatus) != "OK" {
		return ErrUnavailable
	}
	return nil
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.PermissionDenied:
		return fmt.Errorf("%w: %s", ErrForbidden, st.Message())
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", ErrInvalidInput, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
