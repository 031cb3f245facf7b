// Package proto describes the accountkeeper.v1.AccountService wire contract.
// Every request and response is a google.protobuf.Struct whose field names
// are the Field* constants below; the service descriptor and client are
// written by hand in the shape protoc-gen-go-grpc would produce.
package proto

import (
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "accountkeeper.v1.AccountService"

// Method names.
const (
	MethodRegister           = "Register"
	MethodLogin              = "Login"
	MethodRefreshToken       = "RefreshToken"
	MethodChangePassword     = "ChangePassword"
	MethodChangeRole         = "ChangeRole"
	MethodChangeActiveStatus = "ChangeActiveStatus"
	MethodDeleteUser         = "DeleteUser"
	MethodPing               = "Ping"
)

// FullMethod returns "/accountkeeper.v1.AccountService/<method>".
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// Message field names.
const (
	FieldUsername       = "username"
	FieldPassword       = "password"
	FieldOldPassword    = "old_password"
	FieldNewPassword    = "new_password"
	FieldRepeatPassword = "repeat_password"
	FieldRole           = "role"
	FieldIsActive       = "is_active"
	FieldAccessToken    = "access_token"
	FieldRefreshToken   = "refresh_token"
	FieldSuccess        = "success"
	FieldMessage        = "message"
	FieldOutcome        = "outcome"
	FieldStatus         = "status"
)

// Message is a thin builder/reader over structpb.Struct.
type Message struct {
	*structpb.Struct
}

func NewMessage() Message {
	return Message{Struct: &structpb.Struct{Fields: map[string]*structpb.Value{}}}
}

// Wrap reads an incoming struct. A nil struct reads as empty.
func Wrap(s *structpb.Struct) Message {
	if s == nil || s.Fields == nil {
		return NewMessage()
	}
	return Message{Struct: s}
}

func (m Message) SetString(key, v string) Message {
	m.Fields[key] = structpb.NewStringValue(v)
	return m
}

func (m Message) SetBool(key string, v bool) Message {
	m.Fields[key] = structpb.NewBoolValue(v)
	return m
}

// GetString returns the string field or "" when missing or of another kind.
func (m Message) GetString(key string) string {
	if v, ok := m.Fields[key]; ok {
		if s, ok := v.GetKind().(*structpb.Value_StringValue); ok {
			return s.StringValue
		}
	}
	return ""
}

// GetBool returns the bool field or false when missing or of another kind.
func (m Message) GetBool(key string) bool {
	if v, ok := m.Fields[key]; ok {
		if b, ok := v.GetKind().(*structpb.Value_BoolValue); ok {
			return b.BoolValue
		}
	}
	return false
}
