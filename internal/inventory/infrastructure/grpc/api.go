package grpc

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// The inventory API is described by hand and carried as JSON, so neither
// side needs generated stubs. Clients select the codec with
// grpc.CallContentSubtype(CodecName).
const (
	CodecName   = "json"
	ServiceName = "inventory.v1.InventoryService"

	checkAvailabilityMethod = "/" + ServiceName + "/CheckAvailability"
	setCapacityMethod       = "/" + ServiceName + "/SetCapacity"
)

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return CodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type AvailabilityRequest struct {
	HotelID    string `json:"hotelId"`
	RoomTypeID string `json:"roomTypeId"`
	CheckIn    string `json:"checkIn"`
	CheckOut   string `json:"checkOut"`
	Rooms      int    `json:"rooms"`
}

type AvailabilityResponse struct {
	Available    bool   `json:"available"`
	MinAvailable int    `json:"minAvailable"`
	Nights       int    `json:"nights"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

type SetCapacityRequest struct {
	HotelID    string `json:"hotelId"`
	RoomTypeID string `json:"roomTypeId"`
	Date       string `json:"date"`
	TotalRooms int    `json:"totalRooms"`
	Price      int64  `json:"price"`
	Currency   string `json:"currency"`
}

type SetCapacityResponse struct {
	TotalRooms     int `json:"totalRooms"`
	AvailableRooms int `json:"availableRooms"`
	HeldRooms      int `json:"heldRooms"`
	BookedRooms    int `json:"bookedRooms"`
}

type InventoryServiceServer interface {
	CheckAvailability(ctx context.Context, req *AvailabilityRequest) (*AvailabilityResponse, error)
	SetCapacity(ctx context.Context, req *SetCapacityRequest) (*SetCapacityResponse, error)
}

func RegisterInventoryServiceServer(s grpc.ServiceRegistrar, srv InventoryServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*InventoryServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CheckAvailability", Handler: checkAvailabilityHandler},
		{MethodName: "SetCapacity", Handler: setCapacityHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "inventory/v1/inventory.json",
}

func checkAvailabilityHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(AvailabilityRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InventoryServiceServer).CheckAvailability(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: checkAvailabilityMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(InventoryServiceServer).CheckAvailability(ctx, req.(*AvailabilityRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func setCapacityHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SetCapacityRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InventoryServiceServer).SetCapacity(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: setCapacityMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(InventoryServiceServer).SetCapacity(ctx, req.(*SetCapacityRequest))
	}
	return interceptor(ctx, in, info, handler)
}

type InventoryServiceClient interface {
	CheckAvailability(ctx context.Context, req *AvailabilityRequest, opts ...grpc.CallOption) (*AvailabilityResponse, error)
	SetCapacity(ctx context.Context, req *SetCapacityRequest, opts ...grpc.CallOption) (*SetCapacityResponse, error)
}

type inventoryServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewInventoryServiceClient(cc grpc.ClientConnInterface) InventoryServiceClient {
	return &inventoryServiceClient{cc: cc}
}

func (c *inventoryServiceClient) CheckAvailability(ctx context.Context, req *AvailabilityRequest, opts ...grpc.CallOption) (*AvailabilityResponse, error) {
	out := new(AvailabilityResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, checkAvailabilityMethod, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *inventoryServiceClient) SetCapacity(ctx context.Context, req *SetCapacityRequest, opts ...grpc.CallOption) (*SetCapacityResponse, error) {
	out := new(SetCapacityResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, setCapacityMethod, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
