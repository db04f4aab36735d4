package model

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// MiddlewareType is the closed set of middleware kinds the API can author
type MiddlewareType string

const (
	MiddlewareRateLimit      MiddlewareType = "rate-limit"
	MiddlewareHeaders        MiddlewareType = "headers"
	MiddlewareCORS           MiddlewareType = "cors"
	MiddlewareForwardAuth    MiddlewareType = "forward-auth"
	MiddlewareRedirectScheme MiddlewareType = "redirect-scheme"
	MiddlewareCompress       MiddlewareType = "compress"
	MiddlewareStripPrefix    MiddlewareType = "strip-prefix"
	MiddlewareAddPrefix      MiddlewareType = "add-prefix"
	MiddlewareBasicAuth      MiddlewareType = "basic-auth"
	MiddlewareIPAllowList    MiddlewareType = "ip-allow-list"

	// MiddlewareCustom marks on-disk middleware of a kind this API does not model.
	// It can be listed and deleted but never created.
	MiddlewareCustom MiddlewareType = "custom"
)

// middlewareDiskKeys maps each type to the key used inside the dynamic document
var middlewareDiskKeys = map[MiddlewareType]string{
	MiddlewareRateLimit:      "rateLimit",
	MiddlewareHeaders:        "headers",
	MiddlewareCORS:           "cors",
	MiddlewareForwardAuth:    "forwardAuth",
	MiddlewareRedirectScheme: "redirectScheme",
	MiddlewareCompress:       "compress",
	MiddlewareStripPrefix:    "stripPrefix",
	MiddlewareAddPrefix:      "addPrefix",
	MiddlewareBasicAuth:      "basicAuth",
	MiddlewareIPAllowList:    "ipAllowList",
}

// MiddlewareTypes returns the authorable types in a stable order
func MiddlewareTypes() []MiddlewareType {
	types := make([]MiddlewareType, 0, len(middlewareDiskKeys))
	for t := range middlewareDiskKeys {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Valid reports whether t is one of the authorable types
func (t MiddlewareType) Valid() bool {
	_, ok := middlewareDiskKeys[t]
	return ok
}

// DiskKey returns the document key for t
func (t MiddlewareType) DiskKey() string {
	return middlewareDiskKeys[t]
}

// MiddlewareTypeFromDiskKey resolves a document key back to a type
func MiddlewareTypeFromDiskKey(key string) (MiddlewareType, bool) {
	for t, k := range middlewareDiskKeys {
		if k == key {
			return t, true
		}
	}
	return "", false
}

// MiddlewareConfig is one variant of the middleware tagged union.
// Missing lists required keys that are absent for the variant.
type MiddlewareConfig interface {
	Type() MiddlewareType
	Missing() []string
}

type RateLimitConfig struct {
	Average *int64 `yaml:"average,omitempty"`
	Period  string `yaml:"period,omitempty"`
	Burst   *int64 `yaml:"burst,omitempty"`
}

func (RateLimitConfig) Type() MiddlewareType { return MiddlewareRateLimit }

func (c RateLimitConfig) Missing() []string {
	var missing []string
	if c.Average == nil {
		missing = append(missing, "average")
	}
	if strings.TrimSpace(c.Period) == "" {
		missing = append(missing, "period")
	}
	return missing
}

type HeadersConfig struct {
	CustomRequestHeaders  map[string]string `yaml:"customRequestHeaders,omitempty"`
	CustomResponseHeaders map[string]string `yaml:"customResponseHeaders,omitempty"`
	SSLRedirect           *bool             `yaml:"sslRedirect,omitempty"`
	STSSeconds            *int64            `yaml:"stsSeconds,omitempty"`
	FrameDeny             *bool             `yaml:"frameDeny,omitempty"`
	ContentTypeNosniff    *bool             `yaml:"contentTypeNosniff,omitempty"`
	BrowserXSSFilter      *bool             `yaml:"browserXssFilter,omitempty"`
	ReferrerPolicy        string            `yaml:"referrerPolicy,omitempty"`
	ContentSecurityPolicy string            `yaml:"contentSecurityPolicy,omitempty"`
}

func (HeadersConfig) Type() MiddlewareType { return MiddlewareHeaders }
func (HeadersConfig) Missing() []string    { return nil }

// IsEmpty reports whether no header directive is set
func (c HeadersConfig) IsEmpty() bool {
	return reflect.ValueOf(c).IsZero()
}

type CORSConfig struct {
	AllowOrigins     []string `yaml:"allowOrigins,omitempty"`
	AllowMethods     []string `yaml:"allowMethods,omitempty"`
	AllowHeaders     []string `yaml:"allowHeaders,omitempty"`
	ExposeHeaders    []string `yaml:"exposeHeaders,omitempty"`
	AllowCredentials *bool    `yaml:"allowCredentials,omitempty"`
	MaxAge           *int64   `yaml:"maxAge,omitempty"`
}

func (CORSConfig) Type() MiddlewareType { return MiddlewareCORS }

func (c CORSConfig) Missing() []string {
	if len(c.AllowOrigins) == 0 {
		return []string{"allowOrigins"}
	}
	return nil
}

type ForwardAuthConfig struct {
	Address             string   `yaml:"address,omitempty"`
	TrustForwardHeader  *bool    `yaml:"trustForwardHeader,omitempty"`
	AuthResponseHeaders []string `yaml:"authResponseHeaders,omitempty"`
	AuthRequestHeaders  []string `yaml:"authRequestHeaders,omitempty"`
}

func (ForwardAuthConfig) Type() MiddlewareType { return MiddlewareForwardAuth }

func (c ForwardAuthConfig) Missing() []string {
	if strings.TrimSpace(c.Address) == "" {
		return []string{"address"}
	}
	return nil
}

type RedirectSchemeConfig struct {
	Scheme    string `yaml:"scheme,omitempty"`
	Port      string `yaml:"port,omitempty"`
	Permanent *bool  `yaml:"permanent,omitempty"`
}

func (RedirectSchemeConfig) Type() MiddlewareType { return MiddlewareRedirectScheme }

func (c RedirectSchemeConfig) Missing() []string {
	if strings.TrimSpace(c.Scheme) == "" {
		return []string{"scheme"}
	}
	return nil
}

type CompressConfig struct {
	ExcludedContentTypes []string `yaml:"excludedContentTypes,omitempty"`
	MinResponseBodyBytes *int64   `yaml:"minResponseBodyBytes,omitempty"`
}

func (CompressConfig) Type() MiddlewareType { return MiddlewareCompress }
func (CompressConfig) Missing() []string    { return nil }

type StripPrefixConfig struct {
	Prefixes   []string `yaml:"prefixes,omitempty"`
	ForceSlash *bool    `yaml:"forceSlash,omitempty"`
}

func (StripPrefixConfig) Type() MiddlewareType { return MiddlewareStripPrefix }

func (c StripPrefixConfig) Missing() []string {
	if len(c.Prefixes) == 0 {
		return []string{"prefixes"}
	}
	return nil
}

type AddPrefixConfig struct {
	Prefix string `yaml:"prefix,omitempty"`
}

func (AddPrefixConfig) Type() MiddlewareType { return MiddlewareAddPrefix }

func (c AddPrefixConfig) Missing() []string {
	if strings.TrimSpace(c.Prefix) == "" {
		return []string{"prefix"}
	}
	return nil
}

type BasicAuthConfig struct {
	Users        []string `yaml:"users,omitempty"`
	Realm        string   `yaml:"realm,omitempty"`
	RemoveHeader *bool    `yaml:"removeHeader,omitempty"`
}

func (BasicAuthConfig) Type() MiddlewareType { return MiddlewareBasicAuth }

func (c BasicAuthConfig) Missing() []string {
	if len(c.Users) == 0 {
		return []string{"users"}
	}
	return nil
}

type IPAllowListConfig struct {
	SourceRange []string `yaml:"sourceRange,omitempty"`
}

func (IPAllowListConfig) Type() MiddlewareType { return MiddlewareIPAllowList }

func (c IPAllowListConfig) Missing() []string {
	if len(c.SourceRange) == 0 {
		return []string{"sourceRange"}
	}
	return nil
}

// CustomConfig keeps an unknown on-disk middleware verbatim
type CustomConfig struct {
	Kind string
	Raw  map[string]any
}

func (CustomConfig) Type() MiddlewareType { return MiddlewareCustom }
func (CustomConfig) Missing() []string    { return nil }

// newMiddlewareConfig returns an empty variant for t
func newMiddlewareConfig(t MiddlewareType) (MiddlewareConfig, bool) {
	switch t {
	case MiddlewareRateLimit:
		return &RateLimitConfig{}, true
	case MiddlewareHeaders:
		return &HeadersConfig{}, true
	case MiddlewareCORS:
		return &CORSConfig{}, true
	case MiddlewareForwardAuth:
		return &ForwardAuthConfig{}, true
	case MiddlewareRedirectScheme:
		return &RedirectSchemeConfig{}, true
	case MiddlewareCompress:
		return &CompressConfig{}, true
	case MiddlewareStripPrefix:
		return &StripPrefixConfig{}, true
	case MiddlewareAddPrefix:
		return &AddPrefixConfig{}, true
	case MiddlewareBasicAuth:
		return &BasicAuthConfig{}, true
	case MiddlewareIPAllowList:
		return &IPAllowListConfig{}, true
	}
	return nil, false
}

// ConfigKeys returns the config keys accepted by a middleware type
func ConfigKeys(t MiddlewareType) []string {
	cfg, ok := newMiddlewareConfig(t)
	if !ok {
		return nil
	}
	rt := reflect.TypeOf(cfg).Elem()
	keys := make([]string, 0, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		tag := rt.Field(i).Tag.Get("yaml")
		name := strings.Split(tag, ",")[0]
		if name != "" {
			keys = append(keys, name)
		}
	}
	return keys
}

// DecodeMiddlewareConfig converts a raw config bag into the variant for t.
// Unknown keys are ignored here; the validator reports them.
func DecodeMiddlewareConfig(t MiddlewareType, raw map[string]any) (MiddlewareConfig, error) {
	cfg, ok := newMiddlewareConfig(t)
	if !ok {
		return nil, fmt.Errorf("unknown middleware type %q", t)
	}
	if len(raw) == 0 {
		return deref(cfg), nil
	}
	data, err := yaml.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return deref(cfg), nil
}

// EncodeMiddlewareConfig converts a variant back into a plain config bag
func EncodeMiddlewareConfig(cfg MiddlewareConfig) (map[string]any, error) {
	if custom, ok := cfg.(CustomConfig); ok {
		return custom.Raw, nil
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// deref stores variants by value so type switches match on the struct type
func deref(cfg MiddlewareConfig) MiddlewareConfig {
	return reflect.ValueOf(cfg).Elem().Interface().(MiddlewareConfig)
}

// Middleware is a named, reusable request/response transform
type Middleware struct {
	Name       string
	Type       MiddlewareType
	Config     MiddlewareConfig
	SourceFile string

	// Raw is the config bag as read from disk, nil for API-built values
	Raw map[string]any
}

type middlewareJSON struct {
	Name       string         `json:"name"`
	Type       MiddlewareType `json:"type"`
	Kind       string         `json:"kind,omitempty"`
	Config     map[string]any `json:"config"`
	SourceFile string         `json:"source_file"`
}

func (m Middleware) MarshalJSON() ([]byte, error) {
	out := middlewareJSON{
		Name:       m.Name,
		Type:       m.Type,
		SourceFile: m.SourceFile,
		Config:     map[string]any{},
	}
	if m.Config != nil {
		bag, err := EncodeMiddlewareConfig(m.Config)
		if err != nil {
			return nil, err
		}
		if bag != nil {
			out.Config = bag
		}
		if custom, ok := m.Config.(CustomConfig); ok {
			out.Kind = custom.Kind
		}
	}
	return json.Marshal(out)
}

// CreateMiddlewareRequest is the POST /middleware payload
type CreateMiddlewareRequest struct {
	Name   string         `json:"name"`
	Type   MiddlewareType `json:"type"`
	Config map[string]any `json:"config"`
}

// UpdateMiddlewareRequest is the PUT /middleware/:name payload. When Type changes the
// config bag is replaced, otherwise keys are merged (a null value removes a key).
type UpdateMiddlewareRequest struct {
	Type   *MiddlewareType `json:"type,omitempty"`
	Config map[string]any  `json:"config,omitempty"`
}

// MergeConfig returns the raw bag the update produces on top of existing
func (r *UpdateMiddlewareRequest) MergeConfig(existing Middleware) (MiddlewareType, map[string]any, error) {
	typ := existing.Type
	if r.Type != nil && *r.Type != existing.Type {
		return *r.Type, r.Config, nil
	}
	base := map[string]any{}
	if existing.Config != nil {
		bag, err := EncodeMiddlewareConfig(existing.Config)
		if err != nil {
			return "", nil, err
		}
		for k, v := range bag {
			base[k] = v
		}
	}
	for k, v := range r.Config {
		if v == nil {
			delete(base, k)
			continue
		}
		base[k] = v
	}
	return typ, base, nil
}
