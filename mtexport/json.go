package mtexport

import (
	"encoding/json"

	"oss.terrastruct.com/mathtext/mtast"
)

// JSON returns blocks as indented JSON.
func JSON(blocks []mtast.Block) ([]byte, error) {
	if blocks == nil {
		blocks = []mtast.Block{}
	}
	b, err := json.MarshalIndent(blocks, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}
