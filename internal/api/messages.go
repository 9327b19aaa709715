package api

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Field names used inside Struct messages.
const (
	FieldIdentifier  = "identifier"
	FieldSecret      = "secret"
	FieldSubjectID   = "subject_id"
	FieldAccessToken = "access_token"
	FieldPath        = "path"
	FieldValue       = "value"
)

func CredentialRequest(identifier, secret string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldIdentifier: structpb.NewStringValue(identifier),
		FieldSecret:     structpb.NewStringValue(secret),
	}}
}

func ParseCredentialRequest(s *structpb.Struct) (identifier, secret string) {
	return stringField(s, FieldIdentifier), stringField(s, FieldSecret)
}

func SessionResponse(subjectID, accessToken string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldSubjectID:   structpb.NewStringValue(subjectID),
		FieldAccessToken: structpb.NewStringValue(accessToken),
	}}
}

func ParseSessionResponse(s *structpb.Struct) (subjectID, accessToken string) {
	return stringField(s, FieldSubjectID), stringField(s, FieldAccessToken)
}

// WriteRequest carries a path and the value to store there. A nil value is
// sent as null.
func WriteRequest(path string, value *structpb.Value) *structpb.Struct {
	if value == nil {
		value = structpb.NewNullValue()
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldPath:  structpb.NewStringValue(path),
		FieldValue: value,
	}}
}

func ParseWriteRequest(s *structpb.Struct) (path string, value *structpb.Value) {
	path = stringField(s, FieldPath)
	value = s.GetFields()[FieldValue]
	if value == nil {
		value = structpb.NewNullValue()
	}
	return path, value
}

// ValueOf converts any JSON-marshalable Go value (including structs with
// json tags) into a structpb.Value.
func ValueOf(v any) (*structpb.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	out := new(structpb.Value)
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	return out, nil
}

// DecodeValue decodes v into dst using dst's json tags.
func DecodeValue(v *structpb.Value, dst any) error {
	if v == nil {
		v = structpb.NewNullValue()
	}
	b, err := protojson.Marshal(v)
	if err != nil {
		return fmt.Errorf("decode value: %w", err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("decode value: %w", err)
	}
	return nil
}

// IsNull reports whether v is absent or an explicit null.
func IsNull(v *structpb.Value) bool {
	if v == nil || v.GetKind() == nil {
		return true
	}
	_, null := v.GetKind().(*structpb.Value_NullValue)
	return null
}

func stringField(s *structpb.Struct, name string) string {
	return s.GetFields()[name].GetStringValue()
}
