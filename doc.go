// Package airport serves tables of a generic REST service to DuckDB over
// Arrow Flight, speaking the protocol of DuckDB's Airport extension.
//
// The remote service exposes schemas, tables, splits and pages of varchar
// column blocks. The connector and restcatalog packages turn those into an
// Airport catalog; this package registers the Flight handlers for it on a
// user-provided grpc.Server.
//
// # Quick Start
//
//	cat, closeCat, err := airport.NewRemoteCatalog(
//	    remote.Config{BaseURL: "https://api.example.com/v1"},
//	    connector.Config{},
//	)
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
//
// Then, in DuckDB:
//
//	INSTALL airport FROM community;
//	LOAD airport;
//	ATTACH '' AS api (TYPE airport, LOCATION 'grpc://localhost:50051');
//	SELECT * FROM api.s1.users WHERE name = 'carol';
//
// # Scans
//
// DuckDB plans a scan with the endpoints action. The server answers with one
// endpoint per remote split, and DuckDB may fetch them in parallel with
// DoGet. Projected columns and equality filters on varchar columns are
// pushed down to the remote service; anything else is filtered by DuckDB.
//
// # Server Lifecycle
//
// The package registers Flight service handlers on a user-provided grpc.Server
// but does NOT manage server lifecycle (start/stop/listen). The cmd/airport-openapi
// binary does that, along with configuration, metrics and tracing.
//
// # Authentication
//
// Bearer token authentication of Flight clients is supported via BearerAuth
// and StaticToken. Credentials for the remote REST service are configured
// separately in remote.Config.
//
// # Memory Management
//
// Arrow uses manual reference counting. Callers MUST call Release() on
// RecordReaders returned by Table.Scan.
package airport
