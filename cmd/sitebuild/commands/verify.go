package commands

import (
	"fmt"

	"git.home.luguber.info/inful/sitebuild/internal/build"
	ferrors "git.home.luguber.info/inful/sitebuild/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuild/internal/linkverify"
)

// VerifyCmd implements the 'verify' command over the last promoted output.
type VerifyCmd struct{}

func (v *VerifyCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root, nil)
	if err != nil {
		return err
	}
	total := 0
	for _, t := range build.New(cfg, build.Options{}).Targets() {
		findings, err := linkverify.VerifyTree(t.Output, t.BasePath)
		if err != nil {
			return err
		}
		for _, f := range findings {
			fmt.Printf("%s: %s\n", t, f)
		}
		total += len(findings)
	}
	if total > 0 {
		return ferrors.ValidationError("broken internal references found").WithContext("count", total).Build()
	}
	fmt.Println("No broken references")
	return nil
}
