package objspace

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/yndnr/statekeep/internal/core/domain"
)

// kindField is the one descriptor field every record carries.
const kindField = "kind"

// Descriptor identifies how to rebuild a persisted entity.
//
// It is stored as a JSON object holding "kind" plus any Params. Params go
// through google.protobuf.Struct, so numbers come back as float64 and
// nested values as map[string]any or []any.
type Descriptor struct {
	Kind   string
	Params map[string]any
}

// Param returns a construction parameter.
func (d Descriptor) Param(name string) (any, bool) {
	v, ok := d.Params[name]
	return v, ok
}

// Marshal encodes d.
func (d Descriptor) Marshal() ([]byte, error) {
	if d.Kind == "" {
		return nil, domain.ErrInvalidDescriptor.WithDetails("empty kind")
	}
	fields := make(map[string]any, len(d.Params)+1)
	for k, v := range d.Params {
		if k == kindField {
			return nil, domain.ErrInvalidDescriptor.WithDetailsf("parameter %q is reserved", kindField)
		}
		fields[k] = v
	}
	fields[kindField] = d.Kind

	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, domain.ErrInvalidDescriptor.WithDetailsf("kind %q", d.Kind).WithCause(err)
	}
	return protojson.Marshal(s)
}

// UnmarshalDescriptor decodes a descriptor written by Marshal.
func UnmarshalDescriptor(data []byte) (Descriptor, error) {
	var s structpb.Struct
	if err := protojson.Unmarshal(data, &s); err != nil {
		return Descriptor{}, domain.ErrInvalidDescriptor.WithCause(err)
	}

	fields := s.AsMap()
	kind, ok := fields[kindField].(string)
	if !ok || kind == "" {
		return Descriptor{}, domain.ErrInvalidDescriptor.WithDetailsf("missing %q field", kindField)
	}
	delete(fields, kindField)

	d := Descriptor{Kind: kind}
	if len(fields) > 0 {
		d.Params = fields
	}
	return d, nil
}

func (d Descriptor) String() string {
	if len(d.Params) == 0 {
		return d.Kind
	}
	var b strings.Builder
	b.WriteString(d.Kind)
	b.WriteByte('{')
	for i, k := range slices.Sorted(maps.Keys(d.Params)) {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%v", k, d.Params[k])
	}
	b.WriteByte('}')
	return b.String()
}
