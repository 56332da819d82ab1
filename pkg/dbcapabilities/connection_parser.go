package dbcapabilities

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// ConnectionDetails holds parsed connection information
type ConnectionDetails struct {
	DatabaseType DatabaseType      `json:"database_type"`
	Hosts        []string          `json:"hosts"`
	Host         string            `json:"host"`
	Port         int               `json:"port"`
	Username     string            `json:"username"`
	Password     string            `json:"password"`
	DatabaseName string            `json:"database_name"`
	SSL          bool              `json:"ssl"`
	Parameters   map[string]string `json:"parameters"`
}

// ParseConnectionString parses a configured connection string for the given
// store kind. URL-shaped strings are accepted for every kind; MySQL also
// accepts the go-sql-driver DSN form and Cassandra its
// host[:port][,host2...]/keyspace form.
func ParseConnectionString(id DatabaseType, connectionString string) (*ConnectionDetails, error) {
	connectionString = strings.TrimSpace(connectionString)
	if connectionString == "" {
		return nil, fmt.Errorf("connection string cannot be empty")
	}

	capability, ok := Get(id)
	if !ok {
		return nil, fmt.Errorf("unsupported database type: %s", id)
	}

	switch {
	case id == Cassandra && !strings.Contains(connectionString, "://"):
		return parseHostList(capability, connectionString)
	case id == MySQL && !strings.Contains(connectionString, "://"):
		return parseMySQLDSN(capability, connectionString)
	default:
		return parseURL(capability, connectionString)
	}
}

func parseURL(capability Capability, connectionString string) (*ConnectionDetails, error) {
	parsedURL, err := url.Parse(connectionString)
	if err != nil {
		return nil, fmt.Errorf("invalid connection string format: %v", err)
	}
	if parsedURL.Scheme == "" {
		return nil, fmt.Errorf("connection string must include a scheme (e.g., postgresql://)")
	}

	details := &ConnectionDetails{
		DatabaseType: capability.ID,
		Parameters:   make(map[string]string),
	}

	// Mongo seed lists carry several hosts in the authority section, which
	// url.Parse accepts but Hostname() only partially reports.
	for _, h := range strings.Split(parsedURL.Host, ",") {
		if h == "" {
			continue
		}
		details.Hosts = append(details.Hosts, h)
	}
	if len(details.Hosts) == 0 {
		return nil, fmt.Errorf("host is required in connection string")
	}
	host, port, err := splitHostPort(details.Hosts[0], capability.DefaultPort)
	if err != nil {
		return nil, err
	}
	details.Host, details.Port = host, port

	if parsedURL.User != nil {
		details.Username = parsedURL.User.Username()
		if password, hasPassword := parsedURL.User.Password(); hasPassword {
			details.Password = password
		}
	}

	if path := strings.Trim(parsedURL.Path, "/"); path != "" {
		details.DatabaseName = path
	}

	queryParams := parsedURL.Query()
	for key, values := range queryParams {
		if len(values) > 0 {
			details.Parameters[key] = values[0]
		}
	}
	details.SSL = parseSSL(capability.ID, parsedURL.Scheme, queryParams)

	return details, nil
}

// parseMySQLDSN handles user:pass@tcp(host:port)/db?params.
func parseMySQLDSN(capability Capability, dsn string) (*ConnectionDetails, error) {
	details := &ConnectionDetails{
		DatabaseType: capability.ID,
		Parameters:   make(map[string]string),
	}

	rest := dsn
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		user := rest[:at]
		rest = rest[at+1:]
		if colon := strings.Index(user, ":"); colon >= 0 {
			details.Username, details.Password = user[:colon], user[colon+1:]
		} else {
			details.Username = user
		}
	}

	slash := strings.Index(rest, "/")
	if slash < 0 {
		return nil, fmt.Errorf("invalid mysql DSN: missing '/' before database name")
	}
	addr, tail := rest[:slash], rest[slash+1:]
	if open := strings.Index(addr, "("); open >= 0 && strings.HasSuffix(addr, ")") {
		addr = addr[open+1 : len(addr)-1]
	}
	if addr == "" {
		addr = "127.0.0.1"
	}
	host, port, err := splitHostPort(addr, capability.DefaultPort)
	if err != nil {
		return nil, err
	}
	details.Hosts = []string{net.JoinHostPort(host, strconv.Itoa(port))}
	details.Host, details.Port = host, port

	if q := strings.Index(tail, "?"); q >= 0 {
		values, err := url.ParseQuery(tail[q+1:])
		if err != nil {
			return nil, fmt.Errorf("invalid mysql DSN parameters: %v", err)
		}
		for key, v := range values {
			if len(v) > 0 {
				details.Parameters[key] = v[0]
			}
		}
		tail = tail[:q]
		details.SSL = parseSSL(capability.ID, "", values)
	}
	details.DatabaseName = tail

	return details, nil
}

// parseHostList handles host[:port][,host2[:port]...][/keyspace].
func parseHostList(capability Capability, connectionString string) (*ConnectionDetails, error) {
	details := &ConnectionDetails{
		DatabaseType: capability.ID,
		Parameters:   make(map[string]string),
	}

	hostPart := connectionString
	if slash := strings.Index(connectionString, "/"); slash >= 0 {
		hostPart = connectionString[:slash]
		details.DatabaseName = strings.Trim(connectionString[slash+1:], "/")
	}

	for _, h := range strings.Split(hostPart, ",") {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		host, port, err := splitHostPort(h, capability.DefaultPort)
		if err != nil {
			return nil, err
		}
		details.Hosts = append(details.Hosts, net.JoinHostPort(host, strconv.Itoa(port)))
		if details.Host == "" {
			details.Host, details.Port = host, port
		}
	}
	if len(details.Hosts) == 0 {
		return nil, fmt.Errorf("host is required in connection string")
	}

	return details, nil
}

func splitHostPort(hostport string, defaultPort int) (string, int, error) {
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		// No port present.
		return strings.Trim(hostport, "[]"), defaultPort, nil
	}
	if portStr == "" {
		return host, defaultPort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port number: %s", portStr)
	}
	return host, port, nil
}

// parseSSL reports whether the connection requests TLS, using each driver's
// own parameter names.
func parseSSL(id DatabaseType, scheme string, queryParams url.Values) bool {
	switch id {
	case PostgreSQL:
		mode := queryParams.Get("sslmode")
		return mode != "" && mode != "disable"
	case MySQL:
		tls := queryParams.Get("tls")
		return tls == "true" || tls == "skip-verify" || tls == "preferred"
	case MongoDB:
		if tls := queryParams.Get("tls"); tls != "" {
			return tls == "true"
		}
		return queryParams.Get("ssl") == "true" || strings.EqualFold(scheme, "mongodb+srv")
	case Redis:
		return strings.EqualFold(scheme, "rediss")
	case OpenSearch, Elasticsearch:
		return strings.EqualFold(scheme, "https")
	default:
		return queryParams.Get("ssl") == "true"
	}
}
