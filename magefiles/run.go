//go:build mage

package main

import (
	"fmt"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Runs the unit tests of every package.
func (Run) Tests() error {
	if _, err := executeCmd("go", withArgs("test", "-race", "./..."), withStream()); err != nil {
		return err
	}
	return nil
}

// Cooks every png under assets/textures into one texture array archive in bin/.
func (Run) Cook() error {
	mg.Deps(Build.Binary)
	images, err := filepath.Glob("assets/textures/*.png")
	if err != nil {
		return err
	}
	if len(images) == 0 {
		return fmt.Errorf("no images found in assets/textures")
	}
	args := append([]string{"-o", "bin"}, images...)
	if _, err := executeCmd("bin/anima-texarray", withArgs(args...), withStream()); err != nil {
		return err
	}
	return nil
}
