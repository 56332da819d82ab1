// Package dbcapabilities provides the registry describing every store kind the
// gateway can drive. Layers above the adapters use it to resolve configured
// type names, pick a sanitizer dialect and filter system namespaces.
//
// Minimal usage example:
//
//	import "github.com/redbco/redb-gateway/pkg/dbcapabilities"
//
//	func isSQL(configuredType string) bool {
//	    id, ok := dbcapabilities.ParseID(configuredType)
//	    return ok && dbcapabilities.MustGet(id).SupportsSQL
//	}
//
// ParseConnectionString extracts host, port and database from a configured
// connection string so connection errors can name the endpoint.
package dbcapabilities
