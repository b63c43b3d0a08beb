package types

// UnknownClient keys anonymous requests that arrive without an address.
const UnknownClient = "unknown"

// Request is the transport-agnostic view of an inbound HTTP request that the
// detector analyses. Extraction from the wire is the caller's job.
type Request struct {
	IP      string
	Path    string
	Method  string
	URL     string
	Query   map[string]string
	Body    map[string]any
	Params  map[string]string
	Headers map[string]string
	// UserID is empty for anonymous traffic.
	UserID  string
	TraceID string
}

// ClientIP returns the client address, or UnknownClient when it is missing.
// Block checks and IP blocks both go through it.
func (r *Request) ClientIP() string {
	if r == nil || r.IP == "" {
		return UnknownClient
	}
	return r.IP
}

// TrackingKey returns the identity used by the rate and auth-failure
// trackers: the authenticated user when known, the client IP otherwise.
func (r *Request) TrackingKey() string {
	if r.UserID != "" {
		return r.UserID
	}
	return r.ClientIP()
}

func (r *Request) Authenticated() bool {
	return r.UserID != ""
}

// Header looks a header up case-insensitively.
func (r *Request) Header(name string) (string, bool) {
	return LookupHeader(r.Headers, name)
}
