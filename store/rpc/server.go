package rpc

import (
	context "context"
	"errors"

	codes "google.golang.org/grpc/codes"
	status "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/bobg/seguid"
)

var _ StoreServer = &Server{}

// Server serves a seguid.Store over gRPC.
type Server struct {
	UnimplementedStoreServer

	s seguid.Store
}

// NewServer produces a Server for s.
func NewServer(s seguid.Store) *Server {
	return &Server{s: s}
}

func (s *Server) Get(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	rec, err := s.s.Get(ctx, seguid.Seguid(req.GetValue()))
	if err != nil {
		return nil, toStatus(err)
	}
	return rec.Proto(), nil
}

func (s *Server) ByID(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	rec, err := s.s.ByID(ctx, req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	return rec.Proto(), nil
}

func (s *Server) Merge(ctx context.Context, req *structpb.Struct) (*wrapperspb.Int32Value, error) {
	rec, err := seguid.RecordFromProto(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if !rec.Seguid.Valid() {
		return nil, status.Errorf(codes.InvalidArgument, "seguid %s has length %d", rec.Seguid, len(rec.Seguid))
	}
	outcome, err := s.s.Merge(ctx, rec.Seguid, rec.IDs)
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.Int32(int32(outcome)), nil
}

func (s *Server) ListSeguids(req *wrapperspb.StringValue, srv Store_ListSeguidsServer) error {
	return s.s.ListSeguids(srv.Context(), seguid.Seguid(req.GetValue()), func(fp seguid.Seguid) error {
		return srv.Send(wrapperspb.String(string(fp)))
	})
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, seguid.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, seguid.ErrMalformed):
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return err
}
