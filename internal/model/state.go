package model

import (
	"sort"
	"time"
)

// SkippedFile is a dynamic document that could not be parsed during load
type SkippedFile struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// ConfigState is the merged view of every dynamic document
type ConfigState struct {
	Routes       map[string]Route
	Middlewares  map[string]Middleware
	Services     map[string]Service
	Files        []string
	SkippedFiles []SkippedFile
	LoadedAt     time.Time

	// Raw holds the text of every readable document at load time, skipped ones included
	Raw map[string]string
}

// NewConfigState returns an empty state
func NewConfigState() *ConfigState {
	return &ConfigState{
		Routes:      map[string]Route{},
		Middlewares: map[string]Middleware{},
		Services:    map[string]Service{},
		Raw:         map[string]string{},
	}
}

// RouteList returns routes sorted by name
func (s *ConfigState) RouteList() []Route {
	out := make([]Route, 0, len(s.Routes))
	for _, r := range s.Routes {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// MiddlewareList returns middlewares sorted by name
func (s *ConfigState) MiddlewareList() []Middleware {
	out := make([]Middleware, 0, len(s.Middlewares))
	for _, m := range s.Middlewares {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ServiceList returns services sorted by name
func (s *ConfigState) ServiceList() []Service {
	out := make([]Service, 0, len(s.Services))
	for _, svc := range s.Services {
		out = append(out, svc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ConfigDocument is the whole-of-config payload: file name to YAML text
type ConfigDocument struct {
	Files map[string]string `json:"files"`
}

// ConfigView is the GET /config response body
type ConfigView struct {
	Files        map[string]string `json:"files"`
	Routes       []Route           `json:"routes"`
	Middlewares  []Middleware      `json:"middlewares"`
	Services     []Service         `json:"services"`
	SkippedFiles []SkippedFile     `json:"skipped_files,omitempty"`
}

// ConfigSummary is the GET /config/summary response body
type ConfigSummary struct {
	Routes                   int            `json:"routes"`
	TLSRoutes                int            `json:"tls_routes"`
	Middlewares              int            `json:"middlewares"`
	MiddlewaresByType        map[string]int `json:"middlewares_by_type"`
	Services                 int            `json:"services"`
	Files                    int            `json:"files"`
	SkippedFiles             []SkippedFile  `json:"skipped_files,omitempty"`
	Certificates             map[string]int `json:"certificates"`
	CertificatesExpiringSoon int            `json:"certificates_expiring_soon"`
	Backups                  BackupStats    `json:"backups"`
	LoadedAt                 time.Time      `json:"loaded_at"`
}

// ValidationReport is the POST /config/validate response body
type ValidationReport struct {
	Valid    bool         `json:"valid"`
	Errors   []FieldError `json:"errors"`
	Warnings []string     `json:"warnings"`
}
