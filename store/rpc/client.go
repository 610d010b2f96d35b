package rpc

import (
	context "context"
	"io"

	"github.com/pkg/errors"
	grpc "google.golang.org/grpc"
	codes "google.golang.org/grpc/codes"
	status "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/bobg/seguid"
	"github.com/bobg/seguid/store"
)

var _ seguid.Store = &Client{}

// Client is a seguid.Store served by a remote Server.
type Client struct {
	sc StoreClient
}

// NewClient produces a Client on cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{sc: NewStoreClient(cc)}
}

func (c *Client) Get(ctx context.Context, fp seguid.Seguid) (seguid.Record, error) {
	resp, err := c.sc.Get(ctx, wrapperspb.String(string(fp)))
	if err != nil {
		return seguid.Record{}, fromStatus(err)
	}
	return seguid.RecordFromProto(resp)
}

func (c *Client) ByID(ctx context.Context, id string) (seguid.Record, error) {
	resp, err := c.sc.ByID(ctx, wrapperspb.String(id))
	if err != nil {
		return seguid.Record{}, fromStatus(err)
	}
	return seguid.RecordFromProto(resp)
}

func (c *Client) Merge(ctx context.Context, fp seguid.Seguid, ids []string) (seguid.Outcome, error) {
	resp, err := c.sc.Merge(ctx, seguid.Record{Seguid: fp, IDs: ids}.Proto())
	if err != nil {
		return seguid.Unchanged, fromStatus(err)
	}
	return seguid.Outcome(resp.GetValue()), nil
}

func (c *Client) ListSeguids(ctx context.Context, start seguid.Seguid, f func(seguid.Seguid) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lc, err := c.sc.ListSeguids(ctx, wrapperspb.String(string(start)))
	if err != nil {
		return err
	}
	for {
		resp, err := lc.Recv()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "receiving response")
		}
		err = f(seguid.Seguid(resp.GetValue()))
		if err != nil {
			return err
		}
	}
}

func fromStatus(err error) error {
	switch status.Code(err) {
	case codes.NotFound:
		return seguid.ErrNotFound
	case codes.InvalidArgument:
		return errors.Wrap(seguid.ErrMalformed, status.Convert(err).Message())
	}
	return err
}

func init() {
	store.Register("rpc", func(_ context.Context, conf map[string]interface{}) (seguid.Store, error) {
		addr, ok := conf["addr"].(string)
		if !ok {
			return nil, errors.New(`missing "addr" parameter`)
		}
		insecure, _ := conf["insecure"].(bool)
		var opts []grpc.DialOption
		if insecure {
			opts = append(opts, grpc.WithInsecure())
		}
		cc, err := grpc.Dial(addr, opts...)
		if err != nil {
			return nil, errors.Wrapf(err, "connecting to %s", addr)
		}
		return NewClient(cc), nil
	})
}
