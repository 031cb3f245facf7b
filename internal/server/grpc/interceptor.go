package grpc

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	pb "github.com/dmitrijs2005/accountkeeper/internal/proto"
	"github.com/dmitrijs2005/accountkeeper/internal/server/auth"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
)

type ctxKey string

const identityKey ctxKey = "identity"

type access int

const (
	accessPublic access = iota
	accessAuthenticated
	accessAdmin
)

// methodAccess lists what each method requires. Unknown methods are public
// and rejected by gRPC itself.
var methodAccess = map[string]access{
	pb.FullMethod(pb.MethodRegister):           accessPublic,
	pb.FullMethod(pb.MethodLogin):              accessPublic,
	pb.FullMethod(pb.MethodRefreshToken):       accessPublic,
	pb.FullMethod(pb.MethodPing):               accessPublic,
	pb.FullMethod(pb.MethodChangePassword):     accessAuthenticated,
	pb.FullMethod(pb.MethodChangeRole):         accessAdmin,
	pb.FullMethod(pb.MethodChangeActiveStatus): accessAdmin,
	pb.FullMethod(pb.MethodDeleteUser):         accessAdmin,
}

// IdentityFromContext returns the caller identity stored by the interceptor.
func IdentityFromContext(ctx context.Context) (*auth.Identity, bool) {
	id, ok := ctx.Value(identityKey).(*auth.Identity)
	return id, ok
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	required := methodAccess[info.FullMethod]
	if required == accessPublic {
		return handler(ctx, req)
	}

	var accessToken string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		values := md.Get(common.AccessTokenHeaderName)
		if len(values) > 0 {
			accessToken = values[0]
		}
	}
	if len(accessToken) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	id, err := s.parser.Parse(accessToken)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, status.Error(codes.Unauthenticated, "token expired")
		}
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}

	if required == accessAdmin {
		if err := s.requireActiveAdmin(ctx, info.FullMethod, id); err != nil {
			return nil, err
		}
	}

	ctx = context.WithValue(ctx, identityKey, id)

	return handler(ctx, req)
}

// requireActiveAdmin checks the token role and then the stored account, so a
// token minted before a demotion or deactivation no longer grants admin
// rights.
func (s *GRPCServer) requireActiveAdmin(ctx context.Context, method string, id *auth.Identity) error {
	if id.Role != models.RoleAdmin {
		s.logger.Warn(ctx, "admin method refused", "method", method, "username", id.Username)
		return status.Error(codes.PermissionDenied, "admin role required")
	}

	active, err := s.accounts.IsActiveAdmin(ctx, id.Username)
	if err != nil {
		s.logger.Error(ctx, "admin check failed", "method", method, "username", id.Username, "error", err.Error())
		return status.Error(codes.Internal, "internal error")
	}
	if !active {
		s.logger.Warn(ctx, "stale admin token refused", "method", method, "username", id.Username)
		return status.Error(codes.PermissionDenied, "admin role required")
	}
	return nil
}

func (s *GRPCServer) metricsInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.observer.ObserveRPC(info.FullMethod, status.Code(err).String(), time.Since(start))
	return resp, err
}
