// Package validator checks routes, middleware and whole configurations before they
// are written. Every function reports all violated rules at once.
package validator

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"proxy-config-guard/internal/model"
)

// MaxNameLength bounds route and middleware names
const MaxNameLength = 63

var nameRegex = regexp.MustCompile(`^[a-z0-9-]+$`)

// Result collects field errors and soft warnings
type Result struct {
	Errors   []model.FieldError
	Warnings []string
}

func (r *Result) add(field, format string, args ...interface{}) {
	r.Errors = append(r.Errors, model.FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (r *Result) warn(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *Result) merge(other *Result) {
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
}

// Valid reports whether no hard rule was violated
func (r *Result) Valid() bool {
	return len(r.Errors) == 0
}

// Err returns a *model.ValidationError when any rule was violated
func (r *Result) Err() error {
	if r.Valid() {
		return nil
	}
	return &model.ValidationError{Errors: r.Errors, Warnings: r.Warnings}
}

// ValidateName checks the shared route/middleware name pattern
func ValidateName(field, name string) []model.FieldError {
	switch {
	case name == "":
		return []model.FieldError{{Field: field, Message: "is required"}}
	case len(name) > MaxNameLength:
		return []model.FieldError{{Field: field, Message: fmt.Sprintf("must be at most %d characters", MaxNameLength)}}
	case !nameRegex.MatchString(name):
		return []model.FieldError{{Field: field, Message: "must match ^[a-z0-9-]+$"}}
	}
	return nil
}

// ValidateRoute checks a route's fields. References to services and middleware that
// do not exist in state are warnings so forward declarations remain possible.
func ValidateRoute(route model.Route, state *model.ConfigState) *Result {
	res := &Result{}
	res.Errors = append(res.Errors, ValidateName("name", route.Name)...)

	if _, err := ParseRule(route.Rule); err != nil {
		res.add("rule", "%s", err.Error())
	}

	if strings.TrimSpace(route.Service) == "" {
		res.add("service", "is required")
	} else if state != nil {
		if _, ok := state.Services[route.Service]; !ok {
			res.warn("route '%s' references unknown service '%s'", route.Name, route.Service)
		}
	}

	if len(route.Entrypoints) == 0 {
		res.add("entrypoints", "must contain at least one entrypoint")
	}
	seen := map[string]bool{}
	for i, ep := range route.Entrypoints {
		if !isAllowedEntrypoint(ep) {
			res.add(fmt.Sprintf("entrypoints[%d]", i), "must be one of %s", strings.Join(model.AllowedEntrypoints, ", "))
		} else if seen[ep] {
			res.add(fmt.Sprintf("entrypoints[%d]", i), "duplicates '%s'", ep)
		}
		seen[ep] = true
	}

	if route.Priority < model.MinRoutePriority || route.Priority > model.MaxRoutePriority {
		res.add("priority", "must be between %d and %d", model.MinRoutePriority, model.MaxRoutePriority)
	}

	for i, mw := range route.Middlewares {
		field := fmt.Sprintf("middlewares[%d]", i)
		if strings.TrimSpace(mw) == "" {
			res.add(field, "cannot be empty")
			continue
		}
		if state != nil && !middlewareExists(state, mw) {
			res.warn("route '%s' references unknown middleware '%s'", route.Name, mw)
		}
	}

	if !route.TLSEnabled && route.CertResolver != "" {
		res.add("cert_resolver", "requires tls_enabled")
	}
	if route.TLSEnabled && !seen[model.EntrypointSecure] {
		res.warn("route '%s' enables TLS but is not attached to the secure entrypoint", route.Name)
	}
	return res
}

// ValidateRouteCreate checks a new route. Field errors win over a name collision.
func ValidateRouteCreate(route model.Route, state *model.ConfigState) ([]string, error) {
	res := ValidateRoute(route, state)
	if err := res.Err(); err != nil {
		return res.Warnings, err
	}
	if _, ok := state.Routes[route.Name]; ok {
		return res.Warnings, &model.ConflictError{Kind: "Route", Name: route.Name}
	}
	return res.Warnings, nil
}

// ValidateRouteUpdate checks the merged result of an update to an existing route
func ValidateRouteUpdate(name string, route model.Route, state *model.ConfigState) ([]string, error) {
	if _, ok := state.Routes[name]; !ok {
		return nil, &model.NotFoundError{Kind: "Route", Name: name}
	}
	res := ValidateRoute(route, state)
	return res.Warnings, res.Err()
}

// ValidateRouteDelete checks that the route exists
func ValidateRouteDelete(name string, state *model.ConfigState) error {
	if _, ok := state.Routes[name]; !ok {
		return &model.NotFoundError{Kind: "Route", Name: name}
	}
	return nil
}

// ValidateMiddlewareConfig checks a raw config bag for typ and returns the decoded variant
func ValidateMiddlewareConfig(typ model.MiddlewareType, raw map[string]any) (model.MiddlewareConfig, *Result) {
	res := &Result{}
	if typ == "" {
		res.add("type", "is required")
		return nil, res
	}
	if !typ.Valid() {
		names := make([]string, 0)
		for _, t := range model.MiddlewareTypes() {
			names = append(names, string(t))
		}
		res.add("type", "must be one of %s", strings.Join(names, ", "))
		return nil, res
	}

	allowed := map[string]bool{}
	for _, k := range model.ConfigKeys(typ) {
		allowed[k] = true
	}
	unknown := make([]string, 0)
	for k := range raw {
		if !allowed[k] {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)
	for _, k := range unknown {
		res.add("config."+k, "is not a valid key for %s", typ)
	}

	// Keys are decoded one at a time so a badly typed value does not hide the
	// missing-key and value checks of the rest.
	clean := make(map[string]any, len(raw))
	wrongType := map[string]bool{}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !allowed[k] {
			continue
		}
		if _, err := model.DecodeMiddlewareConfig(typ, map[string]any{k: raw[k]}); err != nil {
			res.add("config."+k, "has the wrong type: %s", decodeErrorDetail(err))
			wrongType["config."+k] = true
			continue
		}
		clean[k] = raw[k]
	}

	cfg, err := model.DecodeMiddlewareConfig(typ, clean)
	if err != nil {
		res.add("config", "has values of the wrong type: %s", decodeErrorDetail(err))
		return nil, res
	}
	checked := checkMiddlewareConfig(cfg)
	for _, fe := range checked.Errors {
		if wrongType[fe.Field] {
			continue
		}
		res.Errors = append(res.Errors, fe)
	}
	res.Warnings = append(res.Warnings, checked.Warnings...)
	return cfg, res
}

func decodeErrorDetail(err error) string {
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	if i := strings.LastIndex(msg, "cannot unmarshal"); i >= 0 {
		return msg[i:]
	}
	return msg
}

// checkMiddlewareConfig applies the required-field contract and value checks of a variant
func checkMiddlewareConfig(cfg model.MiddlewareConfig) *Result {
	res := &Result{}
	for _, key := range cfg.Missing() {
		res.add("config."+key, "is required for %s", cfg.Type())
	}

	switch c := cfg.(type) {
	case model.RateLimitConfig:
		if c.Average != nil && *c.Average <= 0 {
			res.add("config.average", "must be greater than 0")
		}
		if strings.TrimSpace(c.Period) != "" {
			if d, err := parsePeriod(c.Period); err != nil || d <= 0 {
				res.add("config.period", "must be a positive duration such as 1s or 1m")
			}
		}
		if c.Burst != nil && *c.Burst < 0 {
			res.add("config.burst", "cannot be negative")
		}
	case model.HeadersConfig:
		if c.IsEmpty() {
			res.add("config", "must set at least one header field")
		}
		if c.STSSeconds != nil && *c.STSSeconds < 0 {
			res.add("config.stsSeconds", "cannot be negative")
		}
	case model.CORSConfig:
		for i, origin := range c.AllowOrigins {
			if origin != "*" && !isAbsoluteURL(origin) {
				res.add(fmt.Sprintf("config.allowOrigins[%d]", i), "must be '*' or an absolute origin URL")
			}
		}
		for i, method := range c.AllowMethods {
			if !isHTTPMethod(method) {
				res.add(fmt.Sprintf("config.allowMethods[%d]", i), "is not an HTTP method")
			}
		}
		if c.MaxAge != nil && *c.MaxAge < 0 {
			res.add("config.maxAge", "cannot be negative")
		}
	case model.ForwardAuthConfig:
		if strings.TrimSpace(c.Address) != "" && !isAbsoluteURL(c.Address) {
			res.add("config.address", "must be an absolute http or https URL")
		}
	case model.RedirectSchemeConfig:
		if c.Scheme != "" && c.Scheme != "http" && c.Scheme != "https" {
			res.add("config.scheme", "must be http or https")
		}
		if c.Port != "" {
			if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
				res.add("config.port", "must be a port number between 1 and 65535")
			}
		}
	case model.CompressConfig:
		if c.MinResponseBodyBytes != nil && *c.MinResponseBodyBytes < 0 {
			res.add("config.minResponseBodyBytes", "cannot be negative")
		}
	case model.StripPrefixConfig:
		for i, prefix := range c.Prefixes {
			if !strings.HasPrefix(prefix, "/") {
				res.add(fmt.Sprintf("config.prefixes[%d]", i), "must start with /")
			}
		}
	case model.AddPrefixConfig:
		if c.Prefix != "" && !strings.HasPrefix(c.Prefix, "/") {
			res.add("config.prefix", "must start with /")
		}
	case model.BasicAuthConfig:
		for i, entry := range c.Users {
			user, hash, ok := strings.Cut(entry, ":")
			field := fmt.Sprintf("config.users[%d]", i)
			if !ok || user == "" || hash == "" {
				res.add(field, "must be in user:hash form")
				continue
			}
			if _, err := bcrypt.Cost([]byte(hash)); err != nil {
				res.add(field, "must carry a bcrypt hash")
			}
		}
	case model.IPAllowListConfig:
		for i, cidr := range c.SourceRange {
			if !isIPOrCIDR(cidr) {
				res.add(fmt.Sprintf("config.sourceRange[%d]", i), "must be an IP address or CIDR")
			}
		}
	}
	return res
}

// ValidateMiddlewareCreate checks a create payload and returns the middleware to store
func ValidateMiddlewareCreate(req model.CreateMiddlewareRequest, state *model.ConfigState) (model.Middleware, error) {
	res := &Result{}
	res.Errors = append(res.Errors, ValidateName("name", req.Name)...)
	if req.Type == model.MiddlewareCustom {
		res.add("type", "custom middleware cannot be created through the API")
	}
	cfg, cfgRes := ValidateMiddlewareConfig(req.Type, req.Config)
	if req.Type != model.MiddlewareCustom {
		res.merge(cfgRes)
	}
	if err := res.Err(); err != nil {
		return model.Middleware{}, err
	}
	if _, ok := state.Middlewares[req.Name]; ok {
		return model.Middleware{}, &model.ConflictError{Kind: "Middleware", Name: req.Name}
	}
	return model.Middleware{Name: req.Name, Type: req.Type, Config: cfg}, nil
}

// ValidateMiddlewareUpdate merges the update onto the stored middleware and checks the result
func ValidateMiddlewareUpdate(name string, req model.UpdateMiddlewareRequest, state *model.ConfigState) (model.Middleware, error) {
	existing, ok := state.Middlewares[name]
	if !ok {
		return model.Middleware{}, &model.NotFoundError{Kind: "Middleware", Name: name}
	}
	if existing.Type == model.MiddlewareCustom && (req.Type == nil || *req.Type == model.MiddlewareCustom) {
		return model.Middleware{}, &model.ValidationError{Errors: []model.FieldError{
			{Field: "type", Message: "custom middleware can only be replaced by a supported type"},
		}}
	}
	typ, bag, err := req.MergeConfig(existing)
	if err != nil {
		return model.Middleware{}, err
	}
	cfg, res := ValidateMiddlewareConfig(typ, bag)
	if err := res.Err(); err != nil {
		return model.Middleware{}, err
	}
	return model.Middleware{Name: name, Type: typ, Config: cfg, SourceFile: existing.SourceFile}, nil
}

// ValidateMiddlewareDelete checks that the middleware exists and warns about routes that still use it
func ValidateMiddlewareDelete(name string, state *model.ConfigState) ([]string, error) {
	if _, ok := state.Middlewares[name]; !ok {
		return nil, &model.NotFoundError{Kind: "Middleware", Name: name}
	}
	var warnings []string
	for _, route := range state.RouteList() {
		for _, mw := range route.Middlewares {
			if mw == name {
				warnings = append(warnings, fmt.Sprintf("route '%s' still references middleware '%s'", route.Name, name))
			}
		}
	}
	return warnings, nil
}

// ValidateState dry-runs a complete configuration: every route and middleware is
// checked as if it were being written, and cross references are resolved.
func ValidateState(state *model.ConfigState) *Result {
	res := &Result{}
	for _, route := range state.RouteList() {
		r := ValidateRoute(route, state)
		prefix := fmt.Sprintf("routes.%s.", route.Name)
		for _, fe := range r.Errors {
			res.add(prefix+fe.Field, "%s", fe.Message)
		}
		res.Warnings = append(res.Warnings, r.Warnings...)
	}

	for _, m := range state.MiddlewareList() {
		prefix := fmt.Sprintf("middlewares.%s.", m.Name)
		for _, fe := range ValidateName("name", m.Name) {
			res.add(prefix+fe.Field, "%s", fe.Message)
		}
		if custom, ok := m.Config.(model.CustomConfig); ok {
			res.warn("middleware '%s' uses unsupported kind '%s' and is kept as-is", m.Name, custom.Kind)
			continue
		}
		var r *Result
		if m.Raw != nil {
			_, r = ValidateMiddlewareConfig(m.Type, m.Raw)
		} else {
			r = checkMiddlewareConfig(m.Config)
		}
		for _, fe := range r.Errors {
			res.add(prefix+fe.Field, "%s", fe.Message)
		}
	}

	for _, svc := range state.ServiceList() {
		if len(svc.Servers) == 0 {
			res.warn("service '%s' has no servers", svc.Name)
		}
		for i, server := range svc.Servers {
			if u, err := url.Parse(server); err != nil || u.Scheme == "" || u.Host == "" {
				res.add(fmt.Sprintf("services.%s.servers[%d]", svc.Name, i), "must be an absolute URL")
			}
		}
	}
	return res
}

func middlewareExists(state *model.ConfigState, ref string) bool {
	if _, ok := state.Middlewares[ref]; ok {
		return true
	}
	// provider-qualified references (name@provider) resolve outside this directory
	return strings.Contains(ref, "@")
}

func isAllowedEntrypoint(ep string) bool {
	for _, allowed := range model.AllowedEntrypoints {
		if ep == allowed {
			return true
		}
	}
	return false
}

// parsePeriod accepts a Go duration or a bare number of seconds
func parsePeriod(s string) (time.Duration, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(s)
}

func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func isIPOrCIDR(s string) bool {
	if _, _, err := net.ParseCIDR(s); err == nil {
		return true
	}
	return net.ParseIP(s) != nil
}

func isHTTPMethod(m string) bool {
	switch strings.ToUpper(m) {
	case "GET", "HEAD", "POST", "PUT", "PATCH", "DELETE", "CONNECT", "OPTIONS", "TRACE", "*":
		return true
	}
	return false
}
