package cmd

import (
	"os"

	"github.com/creasty/defaults"
	"github.com/rcraid-tools/rcraidctl/config"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v2"
)

var initCommand = &cli.Command{
	Name:  "init",
	Usage: "Create a configuration template",
	Action: func(ctx *cli.Context) error {
		cfg := config.Config{
			APIVersion: config.APIVersion,
			Kind:       "driver",
			Metadata: &config.Metadata{
				Name: "rcraid",
			},
			Spec: &config.Spec{
				SDK: config.SDK{
					Path: "/opt/rcraid/src",
				},
				Signing: config.Signing{
					PrivateKey:  "/etc/pki/rcraid/mok.priv",
					Certificate: "/etc/pki/rcraid/mok.der",
				},
			},
		}

		if err := defaults.Set(&cfg); err != nil {
			return err
		}

		encoder := yaml.NewEncoder(os.Stdout)
		return encoder.Encode(&cfg)
	},
}
