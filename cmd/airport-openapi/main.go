// Command airport-openapi serves the tables of a REST service to DuckDB's
// Airport extension and offers a few commands to inspect the service.
package main

func main() {
	Execute()
}
