package model

// Entrypoint names as exposed by the API. The engine-side names are configurable
// (see config.Config.EntrypointPlain / EntrypointSecure).
const (
	EntrypointPlain  = "plain"
	EntrypointSecure = "secure"
)

// AllowedEntrypoints lists every entrypoint a route may be attached to
var AllowedEntrypoints = []string{EntrypointPlain, EntrypointSecure}

// Route priority bounds
const (
	MinRoutePriority = 0
	MaxRoutePriority = 1000
)

// Route maps incoming requests to a backend service
type Route struct {
	Name         string   `json:"name"`
	Rule         string   `json:"rule"`
	Service      string   `json:"service"`
	Entrypoints  []string `json:"entrypoints"`
	Middlewares  []string `json:"middlewares"`
	Priority     int      `json:"priority"`
	TLSEnabled   bool     `json:"tls_enabled"`
	CertResolver string   `json:"cert_resolver,omitempty"`
	SourceFile   string   `json:"source_file"`
}

// CreateRouteRequest is the POST /routes payload. Pointer fields distinguish
// "omitted" from the zero value so server defaults can be applied.
type CreateRouteRequest struct {
	Name         string    `json:"name"`
	Rule         string    `json:"rule"`
	Service      string    `json:"service"`
	Entrypoints  *[]string `json:"entrypoints,omitempty"`
	Middlewares  []string  `json:"middlewares,omitempty"`
	Priority     *int      `json:"priority,omitempty"`
	TLSEnabled   *bool     `json:"tls_enabled,omitempty"`
	CertResolver string    `json:"cert_resolver,omitempty"`
}

// UpdateRouteRequest is the PUT /routes/:name payload; nil fields are left untouched
type UpdateRouteRequest struct {
	Rule         *string   `json:"rule,omitempty"`
	Service      *string   `json:"service,omitempty"`
	Entrypoints  *[]string `json:"entrypoints,omitempty"`
	Middlewares  *[]string `json:"middlewares,omitempty"`
	Priority     *int      `json:"priority,omitempty"`
	TLSEnabled   *bool     `json:"tls_enabled,omitempty"`
	CertResolver *string   `json:"cert_resolver,omitempty"`
}

// ToRoute applies server defaults and returns the route that will be stored
func (r *CreateRouteRequest) ToRoute(defaultResolver string) Route {
	route := Route{
		Name:         r.Name,
		Rule:         r.Rule,
		Service:      r.Service,
		Entrypoints:  []string{EntrypointSecure},
		Middlewares:  r.Middlewares,
		TLSEnabled:   true,
		CertResolver: r.CertResolver,
	}
	if r.Entrypoints != nil {
		route.Entrypoints = append([]string(nil), (*r.Entrypoints)...)
	}
	if r.Priority != nil {
		route.Priority = *r.Priority
	}
	if r.TLSEnabled != nil {
		route.TLSEnabled = *r.TLSEnabled
	}
	if route.Middlewares == nil {
		route.Middlewares = []string{}
	}
	if route.TLSEnabled && route.CertResolver == "" {
		route.CertResolver = defaultResolver
	}
	return route
}

// Apply merges the update onto a copy of the existing route
func (r *UpdateRouteRequest) Apply(existing Route) Route {
	out := existing
	out.Entrypoints = append([]string(nil), existing.Entrypoints...)
	out.Middlewares = append([]string{}, existing.Middlewares...)
	if r.Rule != nil {
		out.Rule = *r.Rule
	}
	if r.Service != nil {
		out.Service = *r.Service
	}
	if r.Entrypoints != nil {
		out.Entrypoints = append([]string(nil), (*r.Entrypoints)...)
	}
	if r.Middlewares != nil {
		out.Middlewares = append([]string{}, (*r.Middlewares)...)
	}
	if r.Priority != nil {
		out.Priority = *r.Priority
	}
	if r.TLSEnabled != nil {
		out.TLSEnabled = *r.TLSEnabled
	}
	if r.CertResolver != nil {
		out.CertResolver = *r.CertResolver
	}
	if !out.TLSEnabled {
		out.CertResolver = ""
	}
	return out
}
