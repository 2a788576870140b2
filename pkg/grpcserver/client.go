package grpcserver

import (
	"context"

	"google.golang.org/grpc"
)

// Client calls a FaceProjection service over an existing connection.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps a connection created with grpc.NewClient.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) Fit(ctx context.Context, in *FitRequest, opts ...grpc.CallOption) (*FitResponse, error) {
	out := new(FitResponse)
	if err := c.invoke(ctx, fitMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Project(ctx context.Context, in *ProjectRequest, opts ...grpc.CallOption) (*ProjectResponse, error) {
	out := new(ProjectResponse)
	if err := c.invoke(ctx, projectMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ProjectSealed(ctx context.Context, in *ProjectSealedRequest, opts ...grpc.CallOption) (*ProjectSealedResponse, error) {
	out := new(ProjectSealedResponse)
	if err := c.invoke(ctx, projectSealedMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Reconstruct(ctx context.Context, in *ReconstructRequest, opts ...grpc.CallOption) (*ReconstructResponse, error) {
	out := new(ReconstructResponse)
	if err := c.invoke(ctx, reconstructMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Status(ctx context.Context, in *StatusRequest, opts ...grpc.CallOption) (*StatusResponse, error) {
	out := new(StatusResponse)
	if err := c.invoke(ctx, statusMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	return c.cc.Invoke(ctx, method, in, out, opts...)
}
