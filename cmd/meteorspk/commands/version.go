package commands

import (
	"fmt"

	"github.com/paulproteus/for-each-meteor-app/internal/version"
)

// VersionCmd implements the 'version' command.
type VersionCmd struct{}

func (VersionCmd) Run() error {
	fmt.Println(version.String())
	return nil
}
