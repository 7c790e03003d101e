package cli

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// runConfig prints or checks the effective configuration.
func (c *CLI) runConfig(args []string) error {
	if len(args) == 0 || (args[0] != "show" && args[0] != "validate") {
		fmt.Fprintln(c.errOut, "Usage: shootout config <show|validate> [options]")
		return fmt.Errorf("%w: expected config show or config validate", ErrUsage)
	}

	flags := c.newFlagSet("config " + args[0])
	if _, err := c.parse(flags, args[1:], 0, 0); err != nil {
		return err
	}
	// open validates before returning.
	s, err := c.open(flags)
	if err != nil {
		return err
	}
	defer s.close()

	if args[0] == "validate" {
		source := s.manager.ConfigFileUsed()
		if source == "" {
			source = "defaults and environment"
		}
		fmt.Fprintf(c.out, "Configuration is valid (%s)\n", source)
		return nil
	}

	data, err := yaml.Marshal(s.manager.AllSettings())
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	_, err = c.out.Write(data)
	return err
}
