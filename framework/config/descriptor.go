package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Descriptor is the bean archive descriptor. Entries are type keys
// (pkgpath.Name) except Stereotypes, which are stereotype names.
//
//	alternatives:
//	  - example.com/app.MockMailer
//	stereotypes:
//	  - Mock
//	decorators:
//	  - example.com/app.TimingDecorator
//	interceptors:
//	  - example.com/app.AuditInterceptor
//
// Decorators and interceptors are applied in the listed order.
type Descriptor struct {
	Alternatives []string `yaml:"alternatives" validate:"unique,dive,required"`
	Stereotypes  []string `yaml:"stereotypes" validate:"unique,dive,required"`
	Decorators   []string `yaml:"decorators" validate:"unique,dive,required"`
	Interceptors []string `yaml:"interceptors" validate:"unique,dive,required"`
}

// LoadDescriptor reads a YAML descriptor file.
func LoadDescriptor(path string) (Descriptor, error) {
	var d Descriptor
	data, err := os.ReadFile(path)
	if err != nil {
		return d, fmt.Errorf("failed to read descriptor: %w", err)
	}
	if err := yaml.Unmarshal(data, &d); err != nil {
		return d, fmt.Errorf("failed to parse descriptor %s: %w", path, err)
	}
	return d, nil
}
