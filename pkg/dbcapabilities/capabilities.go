package dbcapabilities

import "strings"

// DatabaseType is the canonical identifier for a store kind the gateway can
// drive. The set is closed; adding a kind means adding a constant, a
// capability entry and a case in the connection factory.
type DatabaseType string

const (
	PostgreSQL    DatabaseType = "postgres"
	MySQL         DatabaseType = "mysql"
	OpenSearch    DatabaseType = "opensearch"
	Elasticsearch DatabaseType = "elasticsearch"
	MongoDB       DatabaseType = "mongodb"
	Redis         DatabaseType = "redis"
	Cassandra     DatabaseType = "cassandra"
)

// DataParadigm enumerates the store families the gateway normalizes over.
type DataParadigm string

const (
	ParadigmRelational  DataParadigm = "relational"  // Tables, schemas, SQL
	ParadigmSearchIndex DataParadigm = "searchindex" // Inverted indices and documents
	ParadigmKeyValue    DataParadigm = "keyvalue"    // Key/Value
	ParadigmWideColumn  DataParadigm = "widecolumn"  // Partitioned column families
)

// QueryLanguage describes what a store expects in the query string.
type QueryLanguage string

const (
	QuerySQL     QueryLanguage = "sql"
	QueryJSON    QueryLanguage = "json"
	QueryCommand QueryLanguage = "command"
	QueryCQL     QueryLanguage = "cql"
)

// Capability describes what a store kind supports in a way the gateway layers can consume uniformly.
type Capability struct {
	// Human-friendly vendor or product name, e.g., "PostgreSQL".
	Name string `json:"name"`

	// Canonical ID used across the codebase (see DatabaseType constants), e.g., "postgres".
	ID DatabaseType `json:"id"`

	// Family the store is normalized under.
	Paradigm DataParadigm `json:"paradigm"`

	// What the query string is parsed as.
	Language QueryLanguage `json:"language"`

	// Whether queries are SQL and go through the sanitizer.
	SupportsSQL bool `json:"supportsSQL"`

	// Whether execute can return an execution plan.
	SupportsPlan bool `json:"supportsPlan"`

	// Port assumed when a connection string omits one.
	DefaultPort int `json:"defaultPort"`

	// Namespaces never reported by relation listing.
	SystemNamespaces []string `json:"systemNamespaces,omitempty"`

	// Common aliases (driver names, product names) that map to this kind.
	Aliases []string `json:"aliases,omitempty"`
}

// All is a registry of capabilities keyed by the canonical database type.
var All = map[DatabaseType]Capability{
	PostgreSQL: {
		Name:             "PostgreSQL",
		ID:               PostgreSQL,
		Paradigm:         ParadigmRelational,
		Language:         QuerySQL,
		SupportsSQL:      true,
		SupportsPlan:     true,
		DefaultPort:      5432,
		SystemNamespaces: []string{"pg_catalog", "information_schema"},
		Aliases:          []string{"postgresql", "pgsql", "pg"},
	},
	MySQL: {
		Name:             "MySQL",
		ID:               MySQL,
		Paradigm:         ParadigmRelational,
		Language:         QuerySQL,
		SupportsSQL:      true,
		SupportsPlan:     true,
		DefaultPort:      3306,
		SystemNamespaces: []string{"information_schema", "performance_schema", "mysql", "sys"},
		Aliases:          []string{"mariadb", "aurora-mysql"},
	},
	OpenSearch: {
		Name:        "OpenSearch",
		ID:          OpenSearch,
		Paradigm:    ParadigmSearchIndex,
		Language:    QueryJSON,
		DefaultPort: 9200,
	},
	Elasticsearch: {
		Name:        "Elasticsearch",
		ID:          Elasticsearch,
		Paradigm:    ParadigmSearchIndex,
		Language:    QueryJSON,
		DefaultPort: 9200,
		Aliases:     []string{"elastic", "es"},
	},
	MongoDB: {
		Name:             "MongoDB",
		ID:               MongoDB,
		Paradigm:         ParadigmSearchIndex,
		Language:         QueryJSON,
		DefaultPort:      27017,
		SystemNamespaces: []string{"admin", "config", "local"},
		Aliases:          []string{"mongo"},
	},
	Redis: {
		Name:        "Redis",
		ID:          Redis,
		Paradigm:    ParadigmKeyValue,
		Language:    QueryCommand,
		DefaultPort: 6379,
		Aliases:     []string{"valkey"},
	},
	Cassandra: {
		Name:        "Apache Cassandra",
		ID:          Cassandra,
		Paradigm:    ParadigmWideColumn,
		Language:    QueryCQL,
		DefaultPort: 9042,
		Aliases:     []string{"scylla", "scylladb"},
		SystemNamespaces: []string{
			"system", "system_schema", "system_auth", "system_distributed",
			"system_traces", "system_views", "system_virtual_schema",
		},
	},
}

// nameToID is a normalized lookup index from any known name/alias to the canonical DatabaseType.
var nameToID map[string]DatabaseType

func init() {
	nameToID = make(map[string]DatabaseType, len(All)*3)
	for id, c := range All {
		nameToID[strings.ToLower(string(id))] = id
		if c.Name != "" {
			nameToID[strings.ToLower(c.Name)] = id
		}
		for _, a := range c.Aliases {
			if a == "" {
				continue
			}
			nameToID[strings.ToLower(a)] = id
		}
	}
}

// ParseID attempts to resolve an arbitrary store type name (canonical id, alias, or product name)
// to a canonical DatabaseType. Returns false if unknown.
func ParseID(name string) (DatabaseType, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return "", false
	}
	id, ok := nameToID[n]
	return id, ok
}

// IDs returns every supported type in a stable order.
func IDs() []DatabaseType {
	return []DatabaseType{PostgreSQL, MySQL, OpenSearch, Elasticsearch, MongoDB, Redis, Cassandra}
}

// Get returns capabilities for the given ID and a boolean indicating existence.
func Get(id DatabaseType) (Capability, bool) {
	c, ok := All[id]
	return c, ok
}

// MustGet returns capabilities for the given ID and panics if not found.
func MustGet(id DatabaseType) Capability {
	c, ok := Get(id)
	if !ok {
		panic("dbcapabilities: unknown database id: " + string(id))
	}
	return c
}

// IsSystemNamespace reports whether ns is internal to the given store kind.
func IsSystemNamespace(id DatabaseType, ns string) bool {
	c, ok := Get(id)
	if !ok {
		return false
	}
	for _, s := range c.SystemNamespaces {
		if strings.EqualFold(s, ns) {
			return true
		}
	}
	return false
}

// SupportsParadigm reports whether the store kind belongs to the given family.
func SupportsParadigm(id DatabaseType, p DataParadigm) bool {
	c, ok := Get(id)
	return ok && c.Paradigm == p
}
