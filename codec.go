package seguid

import (
	"github.com/pkg/errors"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Proto converts r to its protobuf form,
// a Struct with a string "seguid" field and a list "ids" field.
func (r Record) Proto() *structpb.Struct {
	vals := make([]*structpb.Value, 0, len(r.IDs))
	for _, id := range r.IDs {
		vals = append(vals, structpb.NewStringValue(id))
	}
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			"seguid": structpb.NewStringValue(string(r.Seguid)),
			"ids":    structpb.NewListValue(&structpb.ListValue{Values: vals}),
		},
	}
}

// RecordFromProto is the inverse of Record.Proto.
func RecordFromProto(st *structpb.Struct) (Record, error) {
	fp, ok := st.GetFields()["seguid"].GetKind().(*structpb.Value_StringValue)
	if !ok {
		return Record{}, errors.New(`record missing "seguid" string`)
	}
	rec := Record{Seguid: Seguid(fp.StringValue), IDs: []string{}}
	for i, v := range st.GetFields()["ids"].GetListValue().GetValues() {
		id, ok := v.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return Record{}, errors.Errorf("id %d of %s is not a string", i, rec.Seguid)
		}
		rec.IDs = append(rec.IDs, id.StringValue)
	}
	return rec, nil
}

// MarshalBinary implements encoding.BinaryMarshaler
// using the protobuf wire form of r.
func (r Record) MarshalBinary() ([]byte, error) {
	return proto.Marshal(r.Proto())
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (r *Record) UnmarshalBinary(b []byte) error {
	var st structpb.Struct
	if err := proto.Unmarshal(b, &st); err != nil {
		return errors.Wrap(err, "unmarshaling record")
	}
	rec, err := RecordFromProto(&st)
	if err != nil {
		return err
	}
	*r = rec
	return nil
}
