package repository

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"proxy-config-guard/internal/model"
)

// fileNameRegex restricts dynamic document names to plain YAML files in one directory
var fileNameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*\.ya?ml$`)

// ValidFileName reports whether name is an acceptable dynamic document name
func ValidFileName(name string) bool {
	return len(name) <= 255 && fileNameRegex.MatchString(name) && !strings.Contains(name, "..")
}

// Document is one dynamic configuration file. Sections this service does not
// manage are kept in Extra and written back untouched.
type Document struct {
	HTTP  *HTTPSection   `yaml:"http,omitempty"`
	Extra map[string]any `yaml:",inline"`
}

type HTTPSection struct {
	Routers     map[string]*RouterSpec    `yaml:"routers,omitempty"`
	Middlewares map[string]map[string]any `yaml:"middlewares,omitempty"`
	Services    map[string]*ServiceSpec   `yaml:"services,omitempty"`
	Extra       map[string]any            `yaml:",inline"`
}

type RouterSpec struct {
	Rule        string         `yaml:"rule"`
	Service     string         `yaml:"service"`
	EntryPoints []string       `yaml:"entryPoints,omitempty"`
	Middlewares []string       `yaml:"middlewares,omitempty"`
	Priority    int            `yaml:"priority,omitempty"`
	TLS         *RouterTLS     `yaml:"tls,omitempty"`
	Extra       map[string]any `yaml:",inline"`
}

type RouterTLS struct {
	CertResolver string         `yaml:"certResolver,omitempty"`
	Extra        map[string]any `yaml:",inline"`
}

type ServiceSpec struct {
	LoadBalancer *LoadBalancerSpec `yaml:"loadBalancer,omitempty"`
	Extra        map[string]any    `yaml:",inline"`
}

type LoadBalancerSpec struct {
	Servers []ServerSpec   `yaml:"servers,omitempty"`
	Extra   map[string]any `yaml:",inline"`
}

type ServerSpec struct {
	URL   string         `yaml:"url"`
	Extra map[string]any `yaml:",inline"`
}

// EntrypointNames maps the API entrypoint vocabulary to the engine's listener names
type EntrypointNames struct {
	Plain  string
	Secure string
}

func (e EntrypointNames) toEngine(name string) string {
	switch name {
	case model.EntrypointPlain:
		return e.Plain
	case model.EntrypointSecure:
		return e.Secure
	}
	return name
}

func (e EntrypointNames) fromEngine(name string) string {
	switch name {
	case e.Plain:
		return model.EntrypointPlain
	case e.Secure:
		return model.EntrypointSecure
	}
	return name
}

// ConfigStore loads and atomically rewrites the dynamic configuration directory
type ConfigStore struct {
	dir         string
	entrypoints EntrypointNames
}

func NewConfigStore(dir string, entrypoints EntrypointNames) *ConfigStore {
	return &ConfigStore{dir: dir, entrypoints: entrypoints}
}

func (s *ConfigStore) Dir() string {
	return s.dir
}

// Files lists the dynamic documents in lexical order
func (s *ConfigStore) Files() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list config dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !ValidFileName(e.Name()) {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)
	return files, nil
}

// Load returns the merged view of every document. A malformed file is skipped and
// logged so one bad file never takes reads down.
func (s *ConfigStore) Load() (*model.ConfigState, error) {
	files, err := s.Files()
	if err != nil {
		return nil, err
	}

	state := model.NewConfigState()
	state.LoadedAt = time.Now().UTC()
	for _, name := range files {
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			log.Printf("[ConfigStore] Skipping unreadable file %s: %v", name, err)
			state.SkippedFiles = append(state.SkippedFiles, model.SkippedFile{File: name, Error: "unreadable"})
			continue
		}
		state.Raw[name] = string(data)
		doc, err := ParseDocument(data)
		if err != nil {
			log.Printf("[ConfigStore] Skipping malformed file %s: %v", name, err)
			state.SkippedFiles = append(state.SkippedFiles, model.SkippedFile{File: name, Error: err.Error()})
			continue
		}
		state.Files = append(state.Files, name)
		for _, dup := range s.merge(state, name, doc) {
			log.Printf("[ConfigStore] Ignoring duplicate definition in %s: %s", name, dup)
		}
	}
	return state, nil
}

// StateFromFiles builds a state from candidate documents without touching disk.
// Unlike Load, parse failures and cross-file duplicates are reported as field errors.
func (s *ConfigStore) StateFromFiles(files map[string]string) (*model.ConfigState, []model.FieldError) {
	var errs []model.FieldError
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	state := model.NewConfigState()
	state.LoadedAt = time.Now().UTC()
	for _, name := range names {
		field := "files." + name
		if !ValidFileName(name) {
			errs = append(errs, model.FieldError{Field: field, Message: "is not a valid file name (expected *.yml or *.yaml)"})
			continue
		}
		state.Raw[name] = files[name]
		doc, err := ParseDocument([]byte(files[name]))
		if err != nil {
			errs = append(errs, model.FieldError{Field: field, Message: "is not valid YAML: " + err.Error()})
			continue
		}
		state.Files = append(state.Files, name)
		for _, dup := range s.merge(state, name, doc) {
			errs = append(errs, model.FieldError{Field: field, Message: dup})
		}
	}
	return state, errs
}

// merge folds doc into state and returns descriptions of duplicate names
func (s *ConfigStore) merge(state *model.ConfigState, file string, doc *Document) []string {
	if doc.HTTP == nil {
		return nil
	}
	var dups []string
	for _, name := range sortedKeys(doc.HTTP.Routers) {
		if prev, ok := state.Routes[name]; ok {
			dups = append(dups, fmt.Sprintf("route '%s' is already defined in %s", name, prev.SourceFile))
			continue
		}
		state.Routes[name] = s.routeFromSpec(name, doc.HTTP.Routers[name], file)
	}
	for _, name := range sortedKeys(doc.HTTP.Middlewares) {
		if prev, ok := state.Middlewares[name]; ok {
			dups = append(dups, fmt.Sprintf("middleware '%s' is already defined in %s", name, prev.SourceFile))
			continue
		}
		state.Middlewares[name] = middlewareFromSpec(name, doc.HTTP.Middlewares[name], file)
	}
	for _, name := range sortedKeys(doc.HTTP.Services) {
		if prev, ok := state.Services[name]; ok {
			dups = append(dups, fmt.Sprintf("service '%s' is already defined in %s", name, prev.SourceFile))
			continue
		}
		state.Services[name] = serviceFromSpec(name, doc.HTTP.Services[name], file)
	}
	return dups
}

// ParseDocument decodes one YAML document. Empty input is an empty document.
func ParseDocument(data []byte) (*Document, error) {
	doc := &Document{}
	if len(bytes.TrimSpace(data)) == 0 {
		return doc, nil
	}
	if err := yaml.Unmarshal(data, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ReadFile returns the raw content of a document
func (s *ConfigStore) ReadFile(name string) ([]byte, error) {
	if !ValidFileName(name) {
		return nil, fmt.Errorf("invalid config file name %q", name)
	}
	return os.ReadFile(filepath.Join(s.dir, name))
}

// ReadAll returns every document's raw content keyed by file name
func (s *ConfigStore) ReadAll() (map[string]string, error) {
	files, err := s.Files()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(files))
	for _, name := range files {
		data, err := s.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		out[name] = string(data)
	}
	return out, nil
}

// ReadDocument parses one document; a missing file is an empty document
func (s *ConfigStore) ReadDocument(name string) (*Document, error) {
	data, err := s.ReadFile(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Document{}, nil
		}
		return nil, err
	}
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return doc, nil
}

// WriteDocument encodes doc and replaces the file atomically
func (s *ConfigStore) WriteDocument(name string, doc *Document) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	return s.WriteFile(name, buf.Bytes())
}

// WriteFile replaces a document's raw content atomically
func (s *ConfigStore) WriteFile(name string, data []byte) error {
	if !ValidFileName(name) {
		return fmt.Errorf("invalid config file name %q", name)
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	return AtomicWriteFile(filepath.Join(s.dir, name), data, 0644)
}

// RemoveFile deletes a document; a missing file is not an error
func (s *ConfigStore) RemoveFile(name string) error {
	if !ValidFileName(name) {
		return fmt.Errorf("invalid config file name %q", name)
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", name, err)
	}
	return nil
}

// PutRoute inserts or replaces a router in doc, keeping unmanaged keys of an existing entry
func (s *ConfigStore) PutRoute(doc *Document, route model.Route) {
	ensureHTTP(doc)
	if doc.HTTP.Routers == nil {
		doc.HTTP.Routers = map[string]*RouterSpec{}
	}
	spec := &RouterSpec{}
	if prev, ok := doc.HTTP.Routers[route.Name]; ok && prev != nil {
		spec.Extra = prev.Extra
		if prev.TLS != nil && route.TLSEnabled {
			spec.TLS = &RouterTLS{Extra: prev.TLS.Extra}
		}
	}
	spec.Rule = route.Rule
	spec.Service = route.Service
	spec.Priority = route.Priority
	spec.EntryPoints = nil
	for _, ep := range route.Entrypoints {
		spec.EntryPoints = append(spec.EntryPoints, s.entrypoints.toEngine(ep))
	}
	spec.Middlewares = append([]string(nil), route.Middlewares...)
	if route.TLSEnabled {
		if spec.TLS == nil {
			spec.TLS = &RouterTLS{}
		}
		spec.TLS.CertResolver = route.CertResolver
	} else {
		spec.TLS = nil
	}
	doc.HTTP.Routers[route.Name] = spec
}

// DeleteRoute removes a router from doc
func (s *ConfigStore) DeleteRoute(doc *Document, name string) {
	if doc.HTTP != nil {
		delete(doc.HTTP.Routers, name)
	}
}

// PutMiddleware inserts or replaces a middleware in doc
func (s *ConfigStore) PutMiddleware(doc *Document, m model.Middleware) error {
	ensureHTTP(doc)
	if doc.HTTP.Middlewares == nil {
		doc.HTTP.Middlewares = map[string]map[string]any{}
	}
	if custom, ok := m.Config.(model.CustomConfig); ok {
		doc.HTTP.Middlewares[m.Name] = custom.Raw
		return nil
	}
	bag, err := model.EncodeMiddlewareConfig(m.Config)
	if err != nil {
		return fmt.Errorf("failed to encode middleware %s: %w", m.Name, err)
	}
	doc.HTTP.Middlewares[m.Name] = map[string]any{m.Type.DiskKey(): bag}
	return nil
}

// DeleteMiddleware removes a middleware from doc
func (s *ConfigStore) DeleteMiddleware(doc *Document, name string) {
	if doc.HTTP != nil {
		delete(doc.HTTP.Middlewares, name)
	}
}

func ensureHTTP(doc *Document) {
	if doc.HTTP == nil {
		doc.HTTP = &HTTPSection{}
	}
}

func (s *ConfigStore) routeFromSpec(name string, spec *RouterSpec, file string) model.Route {
	route := model.Route{
		Name:        name,
		Entrypoints: []string{},
		Middlewares: []string{},
		SourceFile:  file,
	}
	if spec == nil {
		return route
	}
	route.Rule = spec.Rule
	route.Service = spec.Service
	route.Priority = spec.Priority
	for _, ep := range spec.EntryPoints {
		route.Entrypoints = append(route.Entrypoints, s.entrypoints.fromEngine(ep))
	}
	route.Middlewares = append(route.Middlewares, spec.Middlewares...)
	if spec.TLS != nil {
		route.TLSEnabled = true
		route.CertResolver = spec.TLS.CertResolver
	}
	return route
}

func middlewareFromSpec(name string, raw map[string]any, file string) model.Middleware {
	m := model.Middleware{Name: name, SourceFile: file}
	if len(raw) == 1 {
		for key, value := range raw {
			if typ, ok := model.MiddlewareTypeFromDiskKey(key); ok {
				bag, _ := value.(map[string]any)
				if value == nil || bag != nil {
					cfg, err := model.DecodeMiddlewareConfig(typ, bag)
					if err == nil {
						m.Type = typ
						m.Config = cfg
						m.Raw = bag
						return m
					}
					log.Printf("[ConfigStore] Middleware %s in %s kept as custom: %v", name, file, err)
				}
			}
		}
	}
	m.Type = model.MiddlewareCustom
	m.Config = model.CustomConfig{Kind: strings.Join(sortedKeys(raw), "+"), Raw: raw}
	return m
}

func serviceFromSpec(name string, spec *ServiceSpec, file string) model.Service {
	svc := model.Service{Name: name, Servers: []string{}, SourceFile: file}
	if spec != nil && spec.LoadBalancer != nil {
		for _, srv := range spec.LoadBalancer.Servers {
			svc.Servers = append(svc.Servers, srv.URL)
		}
	}
	return svc
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AtomicWriteFile writes data to a temp file in the target directory, syncs it and
// renames it over path, so a watcher never observes a partially written file.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
