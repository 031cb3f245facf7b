// Package grpc exposes the account service over gRPC. It is the caller of
// the account workflows: it validates input, enforces authentication and the
// admin role, mints tokens after a successful login and maps faults to codes.
package grpc

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"

	"github.com/dmitrijs2005/accountkeeper/internal/logging"
	pb "github.com/dmitrijs2005/accountkeeper/internal/proto"
	"github.com/dmitrijs2005/accountkeeper/internal/server/auth"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/dmitrijs2005/accountkeeper/internal/server/policy"
	"github.com/dmitrijs2005/accountkeeper/internal/server/services"
)

// AccountService is the subset of services.AccountService the server uses.
type AccountService interface {
	Register(ctx context.Context, username, password string) (services.Result, error)
	Login(ctx context.Context, username, password string) (services.LoginResult, error)
	ChangePassword(ctx context.Context, username, oldPassword, newPassword, repeatPassword string) (services.Result, error)
	ChangeRole(ctx context.Context, acting, target string, role models.Role) (services.Result, error)
	ChangeActiveStatus(ctx context.Context, target, acting string) (services.StatusResult, error)
	DeleteUser(ctx context.Context, target, acting string) (services.Result, error)
	IsActiveAdmin(ctx context.Context, username string) (bool, error)
}

// TokenService is the subset of services.TokenService the server uses.
type TokenService interface {
	Issue(ctx context.Context, username string) (*services.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Revoke(ctx context.Context, username string) error
}

// TokenParser validates access tokens.
type TokenParser interface {
	Parse(token string) (*auth.Identity, error)
}

// RPCObserver records finished calls.
type RPCObserver interface {
	ObserveRPC(method, code string, elapsed time.Duration)
}

type GRPCServer struct {
	address  string
	accounts AccountService
	tokens   TokenService
	parser   TokenParser
	policy   policy.Policy
	observer RPCObserver
	logger   logging.Logger
}

func NewGRPCServer(a string, l logging.Logger, as AccountService, ts TokenService, tp TokenParser, p policy.Policy) *GRPCServer {
	if l == nil {
		l = logging.Nop{}
	}
	return &GRPCServer{
		address:  a,
		logger:   l.With("module", "grpc_server"),
		accounts: as,
		tokens:   ts,
		parser:   tp,
		policy:   p,
	}
}

// WithObserver attaches per-call metrics and returns s.
func (s *GRPCServer) WithObserver(o RPCObserver) *GRPCServer {
	s.observer = o
	return s
}

func (s *GRPCServer) newServer() *grpc.Server {
	interceptors := []grpc.UnaryServerInterceptor{}
	if s.observer != nil {
		interceptors = append(interceptors, s.metricsInterceptor)
	}
	interceptors = append(interceptors, s.accessTokenInterceptor)

	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(interceptors...))
	pb.RegisterAccountServiceServer(srv, &handler{s: s})
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.serve(ctx, listen)
}

// serve accepts connections on lis until ctx is cancelled.
func (s *GRPCServer) serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}
