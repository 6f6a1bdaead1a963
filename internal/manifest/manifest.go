// Package manifest builds the reconciliation service description document
// that OpenRefine fetches from the reconcile endpoint before sending queries.
package manifest

import (
	"os"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/knwanna/universal-reconciliation-service/pkg/constants"
	"github.com/knwanna/universal-reconciliation-service/pkg/errors"
)

// Config holds the service-specific parts of the manifest.
type Config struct {
	Name            string
	IdentifierSpace string
	SchemaSpace     string
	DefaultTypes    []Type
	// ViewURL is an entity page template containing {{id}}. Optional.
	ViewURL string
	// PathPrefix is the route prefix the protocol endpoints are mounted at.
	PathPrefix    string
	PreviewWidth  int
	PreviewHeight int
	// ExtendLimit is the default of the "limit" property setting.
	ExtendLimit int
}

// DefaultConfig returns a Config describing a general-purpose service.
func DefaultConfig() Config {
	return Config{
		Name:            constants.DefaultServiceName,
		IdentifierSpace: constants.DefaultIdentifierSpace,
		SchemaSpace:     constants.DefaultSchemaSpace,
		DefaultTypes:    []Type{{ID: "/general", Name: "General Entity"}},
		PathPrefix:      constants.DefaultPathPrefix,
		PreviewWidth:    constants.PreviewWidth,
		PreviewHeight:   constants.PreviewHeight,
		ExtendLimit:     constants.DefaultLimit,
	}
}

// Manifest is the service description document.
type Manifest struct {
	Versions        []string `json:"versions,omitempty" yaml:"versions,omitempty"`
	Name            string   `json:"name" yaml:"name"`
	IdentifierSpace string   `json:"identifierSpace" yaml:"identifierSpace"`
	SchemaSpace     string   `json:"schemaSpace" yaml:"schemaSpace"`
	DefaultTypes    []Type   `json:"defaultTypes" yaml:"defaultTypes"`
	View            *View    `json:"view,omitempty" yaml:"view,omitempty"`
	Preview         *Preview `json:"preview,omitempty" yaml:"preview,omitempty"`
	Suggest         *Suggest `json:"suggest,omitempty" yaml:"suggest,omitempty"`
	Extend          *Extend  `json:"extend,omitempty" yaml:"extend,omitempty"`
}

// Type is a default entity type offered to clients.
type Type struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// View points at entity pages.
type View struct {
	URL string `json:"url" yaml:"url"`
}

// Preview points at the preview endpoint.
type Preview struct {
	URL    string `json:"url" yaml:"url"`
	Width  int    `json:"width" yaml:"width"`
	Height int    `json:"height" yaml:"height"`
}

// Endpoint is a service URL plus path, as the protocol splits them.
type Endpoint struct {
	ServiceURL        string `json:"service_url" yaml:"service_url"`
	ServicePath       string `json:"service_path" yaml:"service_path"`
	FlyoutServiceURL  string `json:"flyout_service_url,omitempty" yaml:"flyout_service_url,omitempty"`
	FlyoutServicePath string `json:"flyout_service_path,omitempty" yaml:"flyout_service_path,omitempty"`
}

// Suggest lists the auto-complete endpoints.
type Suggest struct {
	Entity   *Endpoint `json:"entity,omitempty" yaml:"entity,omitempty"`
	Type     *Endpoint `json:"type,omitempty" yaml:"type,omitempty"`
	Property *Endpoint `json:"property,omitempty" yaml:"property,omitempty"`
}

// Extend describes data extension support.
type Extend struct {
	ProposeProperties *Endpoint         `json:"propose_properties,omitempty" yaml:"propose_properties,omitempty"`
	PropertySettings  []PropertySetting `json:"property_settings,omitempty" yaml:"property_settings,omitempty"`
}

// PropertySetting is a per-property option clients may send with extend.
type PropertySetting struct {
	Name     string `json:"name" yaml:"name"`
	Label    string `json:"label" yaml:"label"`
	Type     string `json:"type" yaml:"type"`
	Default  any    `json:"default" yaml:"default"`
	HelpText string `json:"help_text,omitempty" yaml:"help_text,omitempty"`
}

// Build returns the manifest for a service reachable at baseURL.
func Build(cfg Config, baseURL string) *Manifest {
	baseURL = strings.TrimRight(baseURL, "/")
	service := baseURL + cfg.PathPrefix
	endpoint := func(path string) *Endpoint {
		return &Endpoint{
			ServiceURL:        service,
			ServicePath:       path,
			FlyoutServiceURL:  service,
			FlyoutServicePath: "/suggest/flyout?id=${id}",
		}
	}

	types := cfg.DefaultTypes
	if types == nil {
		types = []Type{}
	}

	m := &Manifest{
		Versions:        []string{"0.1", "0.2"},
		Name:            cfg.Name,
		IdentifierSpace: cfg.IdentifierSpace,
		SchemaSpace:     cfg.SchemaSpace,
		DefaultTypes:    types,
		Preview: &Preview{
			URL:    service + "/preview?id={{id}}",
			Width:  cfg.PreviewWidth,
			Height: cfg.PreviewHeight,
		},
		Suggest: &Suggest{
			Entity:   endpoint("/suggest/entity"),
			Type:     endpoint("/suggest/type"),
			Property: endpoint("/suggest/property"),
		},
		Extend: &Extend{
			ProposeProperties: &Endpoint{ServiceURL: service, ServicePath: "/extend/propose"},
			PropertySettings: []PropertySetting{{
				Name:     "limit",
				Label:    "Limit",
				Type:     "number",
				Default:  cfg.ExtendLimit,
				HelpText: "Maximum number of values to return per row",
			}},
		},
	}
	if cfg.ViewURL != "" {
		m.View = &View{URL: cfg.ViewURL}
	}
	return m
}

// Load reads a YAML manifest file. Keys present in the file replace the
// corresponding parts of base; base itself is not modified.
func Load(path string, base *Manifest) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewConfigError("manifest", "cannot read manifest file", err)
	}

	m := &Manifest{}
	if base != nil {
		// Round-trip through YAML so the override never aliases base.
		raw, err := yaml.Marshal(base)
		if err != nil {
			return nil, errors.WrapParse("yaml", path, err)
		}
		if err := yaml.Unmarshal(raw, m); err != nil {
			return nil, errors.WrapParse("yaml", path, err)
		}
	}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, errors.WrapParse("yaml", path, err)
	}
	if m.Name == "" || m.IdentifierSpace == "" || m.SchemaSpace == "" {
		return nil, &errors.ValidationError{
			Field:   "manifest",
			Value:   path,
			Message: "name, identifierSpace and schemaSpace are required",
		}
	}
	if m.DefaultTypes == nil {
		m.DefaultTypes = []Type{}
	}
	return m, nil
}
