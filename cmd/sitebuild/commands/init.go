package commands

import (
	"fmt"
	"path/filepath"

	"git.home.luguber.info/inful/sitebuild/internal/config"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force  bool   `help:"Overwrite existing configuration file"`
	Output string `short:"o" name:"output" help:"Directory for the generated config file" type:"path"`
}

func (i *InitCmd) Run(_ *Global, root *CLI) error {
	path := root.Config
	switch {
	case i.Output != "":
		path = filepath.Join(i.Output, config.DefaultFileName)
	case path == "":
		path = config.DefaultFileName
	}
	if err := config.Init(path, i.Force); err != nil {
		return err
	}
	fmt.Printf("Wrote example configuration to %s\n", path)
	return nil
}
