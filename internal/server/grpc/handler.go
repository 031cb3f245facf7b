package grpc

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	pb "github.com/dmitrijs2005/accountkeeper/internal/proto"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/dmitrijs2005/accountkeeper/internal/server/policy"
	"github.com/dmitrijs2005/accountkeeper/internal/server/services"
)

// handler implements pb.AccountServiceServer on top of GRPCServer.
type handler struct {
	s *GRPCServer
}

var _ pb.AccountServiceServer = (*handler)(nil)

func resultMessage(r services.Result) pb.Message {
	return pb.NewMessage().
		SetBool(pb.FieldSuccess, r.Success).
		SetString(pb.FieldMessage, r.Message).
		SetString(pb.FieldOutcome, r.Outcome.String())
}

func invalidInput(msg string) *structpb.Struct {
	return resultMessage(services.Result{Message: msg, Outcome: services.OutcomeInvalidInput}).Struct
}

// internal logs err and hides it from the client.
func (h *handler) internal(ctx context.Context, method string, err error) error {
	h.s.logger.Error(ctx, "request failed", "method", method, "error", err.Error())
	return status.Error(codes.Internal, "internal error")
}

func (h *handler) identity(ctx context.Context) (string, error) {
	id, ok := IdentityFromContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "missing token")
	}
	return id.Username, nil
}

func (h *handler) Register(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	in := pb.Wrap(req)
	username := in.GetString(pb.FieldUsername)
	password := in.GetString(pb.FieldPassword)

	h.s.logger.Info(ctx, "Registration request", "username", username)

	if err := policy.ValidateUsername(h.s.policy, username); err != nil {
		return invalidInput(err.Error()), nil
	}
	if err := policy.ValidatePassword(h.s.policy, password); err != nil {
		return invalidInput(err.Error()), nil
	}

	res, err := h.s.accounts.Register(ctx, username, password)
	if err != nil {
		return nil, h.internal(ctx, pb.MethodRegister, err)
	}

	return resultMessage(res).Struct, nil
}

func (h *handler) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	in := pb.Wrap(req)
	username := in.GetString(pb.FieldUsername)

	res, err := h.s.accounts.Login(ctx, username, in.GetString(pb.FieldPassword))
	if err != nil {
		return nil, h.internal(ctx, pb.MethodLogin, err)
	}
	if !res.Success {
		return resultMessage(res.Result).Struct, nil
	}
	if !res.IsActive {
		return nil, status.Error(codes.PermissionDenied, "account is inactive")
	}

	tokens, err := h.s.tokens.Issue(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			return nil, status.Error(codes.Unauthenticated, "unauthorized")
		}
		return nil, h.internal(ctx, pb.MethodLogin, err)
	}

	return resultMessage(res.Result).
		SetString(pb.FieldRole, res.Role.String()).
		SetString(pb.FieldAccessToken, tokens.AccessToken).
		SetString(pb.FieldRefreshToken, tokens.RefreshToken).
		Struct, nil
}

func (h *handler) RefreshToken(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	token := pb.Wrap(req).GetString(pb.FieldRefreshToken)
	if token == "" {
		return nil, status.Error(codes.InvalidArgument, "missing refresh token")
	}

	tokens, err := h.s.tokens.Refresh(ctx, token)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrRefreshTokenExpired):
			return nil, status.Error(codes.Unauthenticated, "refresh token expired")
		case errors.Is(err, common.ErrorUnauthorized):
			return nil, status.Error(codes.Unauthenticated, "unauthorized")
		}
		return nil, h.internal(ctx, pb.MethodRefreshToken, err)
	}

	return pb.NewMessage().
		SetString(pb.FieldAccessToken, tokens.AccessToken).
		SetString(pb.FieldRefreshToken, tokens.RefreshToken).
		Struct, nil
}

func (h *handler) ChangePassword(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	acting, err := h.identity(ctx)
	if err != nil {
		return nil, err
	}
	in := pb.Wrap(req)

	res, err := h.s.accounts.ChangePassword(ctx, acting,
		in.GetString(pb.FieldOldPassword), in.GetString(pb.FieldNewPassword), in.GetString(pb.FieldRepeatPassword))
	if err != nil {
		return nil, h.internal(ctx, pb.MethodChangePassword, err)
	}

	if res.Success {
		h.revoke(ctx, acting)
	}
	return resultMessage(res).Struct, nil
}

func (h *handler) ChangeRole(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	acting, err := h.identity(ctx)
	if err != nil {
		return nil, err
	}
	in := pb.Wrap(req)

	role, ok := models.ParseRole(in.GetString(pb.FieldRole))
	if !ok {
		return invalidInput(fmt.Sprintf("unknown role %q", in.GetString(pb.FieldRole))), nil
	}

	res, err := h.s.accounts.ChangeRole(ctx, acting, in.GetString(pb.FieldUsername), role)
	if err != nil {
		return nil, h.internal(ctx, pb.MethodChangeRole, err)
	}

	return resultMessage(res).Struct, nil
}

func (h *handler) ChangeActiveStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	acting, err := h.identity(ctx)
	if err != nil {
		return nil, err
	}
	target := pb.Wrap(req).GetString(pb.FieldUsername)

	res, err := h.s.accounts.ChangeActiveStatus(ctx, target, acting)
	if err != nil {
		return nil, h.internal(ctx, pb.MethodChangeActiveStatus, err)
	}

	if res.Success && !res.IsActive {
		h.revoke(ctx, target)
	}
	return resultMessage(res.Result).SetBool(pb.FieldIsActive, res.IsActive).Struct, nil
}

func (h *handler) DeleteUser(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	acting, err := h.identity(ctx)
	if err != nil {
		return nil, err
	}

	res, err := h.s.accounts.DeleteUser(ctx, pb.Wrap(req).GetString(pb.FieldUsername), acting)
	if err != nil {
		return nil, h.internal(ctx, pb.MethodDeleteUser, err)
	}

	return resultMessage(res).Struct, nil
}

func (h *handler) Ping(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	return pb.NewMessage().SetString(pb.FieldStatus, "OK").Struct, nil

}

// revoke drops refresh tokens of username; a failure is logged only, the
// business operation already succeeded.
func (h *handler) revoke(ctx context.Context, username string) {
	if err := h.s.tokens.Revoke(ctx, username); err != nil {
		h.s.logger.Warn(ctx, "revoking refresh tokens failed", "username", username, "error", err.Error())
	}
}
