package airport

import (
	"os"

	"google.golang.org/grpc"

	"github.com/hugr-lab/airport-openapi/auth"
	"github.com/hugr-lab/airport-openapi/flight"
)

var logOutput = os.Stderr

// NewServer registers Airport Flight service handlers on the provided gRPC server.
//
// Returns error if config is invalid (e.g., nil Catalog).
// Does NOT start the gRPC server - user controls lifecycle via grpcServer.Serve().
//
//	cat, closeCat, err := airport.NewRemoteCatalog(remoteCfg, connectorCfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer closeCat()
//
//	config := airport.ServerConfig{Catalog: cat, Address: "localhost:50051"}
//	grpcServer := grpc.NewServer(airport.ServerOptions(config)...)
//	if err := airport.NewServer(grpcServer, config); err != nil {
//	    log.Fatal(err)
//	}
//	lis, _ := net.Listen("tcp", ":50051")
//	grpcServer.Serve(lis)
func NewServer(grpcServer *grpc.Server, config ServerConfig) error {
	if err := config.Validate(); err != nil {
		return err
	}
	config = config.WithDefaults()

	flightServer := flight.NewServer(config.Catalog, config.Allocator, config.Logger, config.Address)
	flight.RegisterFlightServer(grpcServer, flightServer)

	config.Logger.Info("Airport Flight server registered",
		"has_auth", config.Auth != nil,
		"address", config.Address,
		"max_message_size", config.MaxMessageSize,
	)
	return nil
}

// ServerOptions returns gRPC server options with authentication interceptors
// and message size limits.
func ServerOptions(config ServerConfig) []grpc.ServerOption {
	config = config.WithDefaults()

	var opts []grpc.ServerOption
	if config.Auth != nil {
		opts = append(opts,
			grpc.UnaryInterceptor(auth.UnaryServerInterceptor(config.Auth, config.Logger)),
			grpc.StreamInterceptor(auth.StreamServerInterceptor(config.Auth, config.Logger)),
		)
	}
	if config.MaxMessageSize > 0 {
		opts = append(opts,
			grpc.MaxRecvMsgSize(config.MaxMessageSize),
			grpc.MaxSendMsgSize(config.MaxMessageSize),
		)
	}
	return opts
}
