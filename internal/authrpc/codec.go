package authrpc

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Encode converts v, which must marshal to a JSON object, into a Struct.
func Encode(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}

	s := &structpb.Struct{}
	if err := protojson.Unmarshal(b, s); err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return s, nil
}

// Decode fills v from s. A nil s decodes as an empty object. Malformed
// input is reported as common.ErrorValidation.
func Decode(s *structpb.Struct, v any) error {
	if s == nil {
		s = &structpb.Struct{}
	}

	b, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("%w: malformed message: %v", common.ErrorValidation, err)
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: malformed message: %v", common.ErrorValidation, err)
	}
	return nil
}
