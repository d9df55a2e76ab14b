// Package config describes the rcraidctl.yaml configuration.
package config

import (
	"fmt"

	"github.com/creasty/defaults"
	validator "github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-version"
	yaml "gopkg.in/yaml.v2"
)

// APIVersion is the current api version
const APIVersion = "rcraidctl/v1beta1"

// minSDKVersion is the oldest vendor SDK drop the transformation catalogue
// is known to match.
const minSDKVersion = "9.3.0"

// Metadata defines driver metadata
type Metadata struct {
	// Name is the kernel module name.
	Name string `yaml:"name" validate:"required"`
}

// SDK points at the vendor source drop. The SDK tree is an external
// collaborator: rcraidctl transforms its files but never regenerates them.
type SDK struct {
	Path string `yaml:"path" validate:"required"`
	// Version is the vendor SDK version, used for the DKMS registration and
	// the minimum supported version check.
	Version string `yaml:"version" default:"9.3.0"`
}

// Signing configures the Secure Boot signing collaborators.
type Signing struct {
	PrivateKey  string `yaml:"privateKey"`
	Certificate string `yaml:"certificate"`
	// Enroll allows prompting for MOK enrollment of the certificate when
	// Secure Boot is enabled and the certificate is not yet trusted. A
	// pointer so an explicit false survives the defaulting pass.
	Enroll *bool `yaml:"enroll" default:"true"`
}

// Enabled is true when both key and certificate are configured.
func (s Signing) Enabled() bool {
	return s.PrivateKey != "" && s.Certificate != ""
}

// ShouldEnroll reports whether MOK enrollment may be offered.
func (s Signing) ShouldEnroll() bool {
	return s.Enroll == nil || *s.Enroll
}

// DKMS configures registration with the external DKMS system.
type DKMS struct {
	Enabled *bool `yaml:"enabled" default:"true"`
}

// IsEnabled reports whether DKMS registration is wanted.
func (d DKMS) IsEnabled() bool {
	return d.Enabled == nil || *d.Enabled
}

// Build holds optional overrides for the external build and sign command
// lines. Empty means the built-in invocations.
type Build struct {
	Command     string `yaml:"command"`
	SignCommand string `yaml:"signCommand"`
}

// Spec defines the driver handling configuration
type Spec struct {
	SDK     SDK     `yaml:"sdk"`
	Signing Signing `yaml:"signing"`
	DKMS    DKMS    `yaml:"dkms"`
	Build   Build   `yaml:"build"`
}

// Config describes the rcraidctl.yaml configuration
type Config struct {
	APIVersion string    `yaml:"apiVersion" validate:"eq=rcraidctl/v1beta1"`
	Kind       string    `yaml:"kind" validate:"eq=driver"`
	Metadata   *Metadata `yaml:"metadata"`
	Spec       *Spec     `yaml:"spec" validate:"required"`
}

// UnmarshalYAML sets in some sane defaults when unmarshaling the data from yaml
func (c *Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	c.Metadata = &Metadata{
		Name: "rcraid",
	}
	c.Spec = &Spec{}

	type config Config
	yc := (*config)(c)

	if err := unmarshal(yc); err != nil {
		return err
	}

	// an explicit null in the yaml wipes the preset pointer
	if c.Metadata == nil {
		c.Metadata = &Metadata{Name: "rcraid"}
	}

	if err := defaults.Set(c); err != nil {
		return fmt.Errorf("failed to set defaults: %w", err)
	}

	return nil
}

// Validate performs a configuration sanity check
func (c *Config) Validate() error {
	v := validator.New()
	v.RegisterStructValidation(validateSDKVersion, SDK{})
	return v.Struct(c)
}

func validateSDKVersion(sl validator.StructLevel) {
	if sdk, ok := sl.Current().Interface().(SDK); ok {
		if sdk.Version == "" {
			return
		}
		have, err := version.NewVersion(sdk.Version)
		if err != nil {
			sl.ReportError(sdk.Version, "version", "", "invalid version", "")
			return
		}
		minimum, err := version.NewVersion(minSDKVersion)
		if err != nil {
			panic("invalid sdk minversion")
		}
		if have.LessThan(minimum) {
			sl.ReportError(sdk.Version, "version", "", fmt.Sprintf("minimum supported sdk version is %s", minSDKVersion), "")
		}
	}
}

// FromYAML unmarshals and validates a configuration.
func FromYAML(content []byte) (*Config, error) {
	c := &Config{}
	if err := yaml.UnmarshalStrict(content, c); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("configuration is not valid: %w", err)
	}
	return c, nil
}
