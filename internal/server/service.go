package server

import (
	"context"
	"encoding/json"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/pantry-receipts/internal/common"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "pantry.v1.PantryService"

// PantryServiceServer is the server API. Every method takes and returns a
// JSON-shaped structpb.Struct.
type PantryServiceServer interface {
	ProcessReceipt(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetReceipt(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CorrectItem(context.Context, *structpb.Struct) (*structpb.Struct, error)
	IngestFile(context.Context, *structpb.Struct) (*structpb.Struct, error)
	IngestDirectory(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetJob(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListInventory(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateBatch(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Recommend(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetPreferences(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetPreferences(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExportPantry(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(PantryServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func method(name string, m unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return m(srv.(PantryServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return m(srv.(PantryServiceServer), ctx, req.(*structpb.Struct))
			})
		},
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PantryServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		method("ProcessReceipt", PantryServiceServer.ProcessReceipt),
		method("GetReceipt", PantryServiceServer.GetReceipt),
		method("CorrectItem", PantryServiceServer.CorrectItem),
		method("IngestFile", PantryServiceServer.IngestFile),
		method("IngestDirectory", PantryServiceServer.IngestDirectory),
		method("GetJob", PantryServiceServer.GetJob),
		method("ListInventory", PantryServiceServer.ListInventory),
		method("UpdateBatch", PantryServiceServer.UpdateBatch),
		method("Recommend", PantryServiceServer.Recommend),
		method("GetPreferences", PantryServiceServer.GetPreferences),
		method("SetPreferences", PantryServiceServer.SetPreferences),
		method("ExportPantry", PantryServiceServer.ExportPantry),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pantry/v1/pantry.proto",
}

// RegisterPantryServiceServer registers srv on s.
func RegisterPantryServiceServer(s grpc.ServiceRegistrar, srv PantryServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

// Invoke calls one PantryService method over conn.
func Invoke(ctx context.Context, conn grpc.ClientConnInterface, name string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := conn.Invoke(ctx, "/"+ServiceName+"/"+name, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// decode converts a request payload into a typed request and runs its
// validate tags.
func decode(in *structpb.Struct, dst any) error {
	raw, err := protojson.Marshal(in)
	if err != nil {
		return common.InvalidArgumentErrorf("request: %v", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return common.InvalidArgumentErrorf("request: %v", err)
	}
	if err := common.ValidateStruct(dst); err != nil {
		return common.ToStatus(err)
	}
	return nil
}

// encode converts a response value into a structpb.Struct through its JSON
// form.
func encode(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, common.InternalErrorf("encode response: %v", err)
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, common.InternalErrorf("encode response: %v", err)
	}
	return out, nil
}

// fail logs err and maps it to a gRPC status.
func fail(logger *slog.Logger, msg string, err error, args ...any) error {
	logger.Error(msg, append(args, "error", err)...)
	return common.ToStatus(err)
}
