package metadata

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

//go:embed metadata.json
var raw []byte

var info struct {
	Name    string
	Version string
	Commit  string
	Branch  string
}

func init() {
	err := json.Unmarshal(raw, &info)
	if err != nil {
		panic(err)
	}
}

func Name() string {
	return info.Name
}

func Version() string {
	return info.Version
}

// Revision identifies the build as branch@commit.
func Revision() string {
	return fmt.Sprintf("%s@%s", info.Branch, info.Commit)
}
